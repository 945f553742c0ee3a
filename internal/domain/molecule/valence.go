package molecule

import (
	"fmt"
	"strconv"
	"strings"
)

// ValenceHalves returns the bond-order sum of id in half bonds.
func (m *Molecule) ValenceHalves(id int) int {
	sum := 0
	for _, b := range m.AllBondsOf(id) {
		sum += b.Order.Halves()
	}
	return sum
}

// Valence returns the bond-order sum of id, aromatic bonds counting 1.5.
func (m *Molecule) Valence(id int) float64 {
	return float64(m.ValenceHalves(id)) / 2
}

// targetHalves returns the smallest permitted valence, in half bonds, that is
// at least current, or -1 when every permitted valence is below it.
func targetHalves(symbol string, current int) int {
	for _, v := range Valences(symbol) {
		if v*2 >= current {
			return v * 2
		}
	}
	return -1
}

// AddImplicitHydrogens saturates every valence-checked atom with implicit
// hydrogens up to its smallest permitted valence not below its current sum.
// Atoms already above every permitted valence are left for CheckValence to
// report. It returns the identifiers of the added hydrogens.
func (m *Molecule) AddImplicitHydrogens() []int {
	var added []int
	for _, a := range m.Atoms() {
		if !a.ValenceChecked() {
			continue
		}
		sum := m.ValenceHalves(a.ID)
		target := targetHalves(a.Symbol(), sum)
		for target >= 0 && sum+BondSingle.Halves() <= target {
			h := m.NewAtom("H")
			h.Implicit = true
			h.ChainDepth = a.ChainDepth
			h.Position = a.Position
			a.Bonds = append(a.Bonds, Bond{Order: BondSingle, Dest: h.ID, Position: -1})
			sum += BondSingle.Halves()
			added = append(added, h.ID)
		}
	}
	return added
}

// ValenceViolation describes an atom whose bond-order sum is not one of its
// permitted valences.
type ValenceViolation struct {
	Atom    *Atom
	Actual  float64
	Allowed []int
}

func (v *ValenceViolation) Error() string {
	allowed := make([]string, len(v.Allowed))
	for i, n := range v.Allowed {
		allowed[i] = strconv.Itoa(n)
	}
	return fmt.Sprintf("atom %s has bond order sum %s, expected %s",
		v.Atom, strconv.FormatFloat(v.Actual, 'f', -1, 64), strings.Join(allowed, " or "))
}

// CheckValence returns the first violation in ascending identifier order, or
// nil when every valence-checked atom is satisfied.
func (m *Molecule) CheckValence() *ValenceViolation {
	for _, a := range m.Atoms() {
		if !a.ValenceChecked() {
			continue
		}
		sum := m.ValenceHalves(a.ID)
		ok := false
		for _, v := range Valences(a.Symbol()) {
			if v*2 == sum {
				ok = true
				break
			}
		}
		if !ok {
			return &ValenceViolation{Atom: a, Actual: float64(sum) / 2, Allowed: Valences(a.Symbol())}
		}
	}
	return nil
}

// ImplicitHydrogenCount returns how many implicit hydrogens are bonded to id.
func (m *Molecule) ImplicitHydrogenCount(id int) int {
	n := 0
	for _, b := range m.AllBondsOf(id) {
		if h := m.atoms[b.Dest]; h != nil && h.Implicit && h.IsElement("H") {
			n++
		}
	}
	return n
}
