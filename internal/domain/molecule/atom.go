package molecule

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementCount is one entry of an atom's element multiset.
type ElementCount struct {
	Symbol string
	Count  int
}

// Atom is a node of the molecular graph. A bracket group such as [NH4+] is a
// single Atom carrying several elements.
type Atom struct {
	ID       int
	Elements []ElementCount
	Charge   int
	Radical  bool
	// Mass overrides the isotope mass; zero means unset.
	Mass     int
	Aromatic bool
	// RingDigits are the ring-closure labels read at this atom.
	RingDigits []int
	// Bonds are the half-bonds this atom owns.
	Bonds      []Bond
	ChainDepth int
	// Implicit atoms are created by normalization and hidden from default
	// serialization.
	Implicit bool
	// Position and Length locate the atom in the source text. Length is zero
	// for atoms that did not come from text.
	Position int
	Length   int
}

// AddElement adds n of symbol to the multiset, merging with an existing
// entry.
func (a *Atom) AddElement(symbol string, n int) {
	for i := range a.Elements {
		if a.Elements[i].Symbol == symbol {
			a.Elements[i].Count += n
			return
		}
	}
	a.Elements = append(a.Elements, ElementCount{Symbol: symbol, Count: n})
}

// SetElement replaces the element multiset with a single symbol.
func (a *Atom) SetElement(symbol string) {
	a.Elements = []ElementCount{{Symbol: symbol, Count: 1}}
}

// Symbol returns the atom's element when it holds exactly one atom of one
// element, or "" otherwise.
func (a *Atom) Symbol() string {
	if len(a.Elements) == 1 && a.Elements[0].Count == 1 {
		return a.Elements[0].Symbol
	}
	return ""
}

// IsElement reports whether the atom is a single atom of one of symbols.
func (a *Atom) IsElement(symbols ...string) bool {
	s := a.Symbol()
	if s == "" {
		return false
	}
	for _, want := range symbols {
		if s == want {
			return true
		}
	}
	return false
}

// MatchesCharge reports whether the atom carries exactly charge.
func (a *Atom) MatchesCharge(charge int) bool {
	return a.Charge == charge
}

// InOrganicSubset reports whether the atom is a lone organic-subset element.
func (a *Atom) InOrganicSubset() bool {
	return IsOrganic(a.Symbol())
}

// ValenceChecked reports whether the valence rules apply: organic subset,
// uncharged and not a radical.
func (a *Atom) ValenceChecked() bool {
	return a.InOrganicSubset() && a.Charge == 0 && !a.Radical
}

// BondTo returns the index of the half-bond this atom owns towards dest, or
// -1.
func (a *Atom) BondTo(dest int) int {
	for i, b := range a.Bonds {
		if b.Dest == dest {
			return i
		}
	}
	return -1
}

// AddBond adds a half-bond owned by a. It only sees a's own half-bonds, so
// Molecule.AddBond is the check callers should use when the reverse
// direction may exist.
func (a *Atom) AddBond(order BondOrder, other *Atom) bool {
	if other == nil || other.ID == a.ID || a.BondTo(other.ID) != -1 {
		return false
	}
	a.Bonds = append(a.Bonds, Bond{Order: order, Dest: other.ID, Position: -1})
	return true
}

// ElementString renders the element multiset, e.g. "NH4".
func (a *Atom) ElementString() string {
	var sb strings.Builder
	for _, e := range a.Elements {
		sb.WriteString(e.Symbol)
		if e.Count != 1 {
			sb.WriteString(strconv.Itoa(e.Count))
		}
	}
	return sb.String()
}

// HeavyAtomCount returns the number of element atoms the group carries.
func (a *Atom) HeavyAtomCount() int {
	n := 0
	for _, e := range a.Elements {
		n += e.Count
	}
	return n
}

// ChargeString renders a charge as "+", "-", "+2", "-3", or "" for zero.
func ChargeString(charge int) string {
	switch {
	case charge == 0:
		return ""
	case charge == 1:
		return "+"
	case charge == -1:
		return "-"
	case charge > 0:
		return "+" + strconv.Itoa(charge)
	default:
		return strconv.Itoa(charge)
	}
}

func (a *Atom) String() string {
	s := a.ElementString() + ChargeString(a.Charge)
	if a.Radical {
		s += "."
	}
	return fmt.Sprintf("%s#%d", s, a.ID)
}

func (a *Atom) clone() *Atom {
	c := *a
	c.Elements = append([]ElementCount(nil), a.Elements...)
	c.RingDigits = append([]int(nil), a.RingDigits...)
	c.Bonds = append([]Bond(nil), a.Bonds...)
	return &c
}
