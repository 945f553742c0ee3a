// Package formula derives molecular, empirical and condensed formulas and
// molar masses from a molecule graph.
package formula

import (
	"sort"
	"strings"

	"github.com/turtacn/molnotation/internal/domain/molecule"
)

// AtomCount is one row of a formula: a distinct (label, charge) pair and how
// often it occurs.
type AtomCount struct {
	// Label is the plain element string, e.g. "C" or "NH4".
	Label    string                  `json:"label"`
	Elements []molecule.ElementCount `json:"elements,omitempty"`
	Charge   int                     `json:"charge"`
	Count    int                     `json:"count"`
}

// CountOptions controls CountAtoms.
type CountOptions struct {
	// Split breaks multi-element atoms such as [NH4+] into single elements.
	// Split rows cannot keep a charge and always report zero.
	Split bool
	// Hill orders carbon rows, then hydrogen rows, then the rest
	// alphabetically; ties are broken by ascending charge.
	Hill bool
	// IgnoreCharge merges rows that differ only in charge.
	IgnoreCharge bool
}

// DefaultCountOptions keeps groups whole, uses Hill order and keeps charges.
func DefaultCountOptions() CountOptions {
	return CountOptions{Hill: true}
}

// CountAtoms accumulates one row per distinct (label, charge) pair, visiting
// atoms in ascending identifier order.
func CountAtoms(m *molecule.Molecule, opts CountOptions) []AtomCount {
	var rows []AtomCount
	index := make(map[rowKey]int)
	add := func(label string, elements []molecule.ElementCount, charge, n int) {
		k := rowKey{label, charge}
		if i, ok := index[k]; ok {
			rows[i].Count += n
			return
		}
		index[k] = len(rows)
		rows = append(rows, AtomCount{Label: label, Elements: elements, Charge: charge, Count: n})
	}

	for _, a := range m.Atoms() {
		charge := a.Charge
		if opts.IgnoreCharge {
			charge = 0
		}
		if opts.Split {
			for _, e := range a.Elements {
				add(e.Symbol, []molecule.ElementCount{{Symbol: e.Symbol, Count: 1}}, 0, e.Count)
			}
			continue
		}
		elements := append([]molecule.ElementCount(nil), a.Elements...)
		add(a.ElementString(), elements, charge, 1)
	}

	if opts.Hill {
		rows = hillOrder(rows)
	}
	return rows
}

type rowKey struct {
	label  string
	charge int
}

func hillOrder(rows []AtomCount) []AtomCount {
	rank := func(label string) int {
		switch label {
		case "C":
			return 0
		case "H":
			return 1
		}
		return 2
	}
	out := append([]AtomCount(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i].Label), rank(out[j].Label)
		if ri != rj {
			return ri < rj
		}
		if ri == 2 && out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].Charge < out[j].Charge
	})
	return out
}

// Molecular concatenates rows as group, count and charge, e.g. C2H4O2 or
// (NH4){+}.
func Molecular(rows []AtomCount, markup Markup) string {
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(rowLabel(r, markup))
		if r.Count != 1 {
			sb.WriteString(markup.sub(r.Count))
		}
		sb.WriteString(markup.sup(r.Charge))
	}
	return sb.String()
}

// Empirical merges rows by label, divides every count by their greatest
// common divisor and concatenates the result. Charges are dropped.
func Empirical(rows []AtomCount, markup Markup) string {
	var (
		order  []AtomCount
		counts = make(map[string]int)
	)
	for _, r := range rows {
		if _, ok := counts[r.Label]; !ok {
			order = append(order, r)
		}
		counts[r.Label] += r.Count
	}
	d := 0
	for _, n := range counts {
		d = gcd(d, n)
	}
	if d == 0 {
		d = 1
	}
	var sb strings.Builder
	for _, r := range order {
		sb.WriteString(rowLabel(r, markup))
		if n := counts[r.Label] / d; n != 1 {
			sb.WriteString(markup.sub(n))
		}
	}
	return sb.String()
}

func rowLabel(r AtomCount, markup Markup) string {
	if len(r.Elements) == 0 {
		return r.Label
	}
	return markup.group(r.Elements)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// MolecularFormula is CountAtoms with charges ignored followed by Molecular.
func MolecularFormula(m *molecule.Molecule, split bool, markup Markup) string {
	return Molecular(CountAtoms(m, CountOptions{Split: split, Hill: true, IgnoreCharge: true}), markup)
}

// EmpiricalFormula is CountAtoms split into elements followed by Empirical.
func EmpiricalFormula(m *molecule.Molecule, markup Markup) string {
	return Empirical(CountAtoms(m, CountOptions{Split: true, Hill: true}), markup)
}

// MolarMass sums standard atomic weights over every atom, implicit hydrogens
// included. An isotope mass replaces the weight of the atom's first element.
func MolarMass(m *molecule.Molecule) float64 {
	total := 0.0
	for _, a := range m.Atoms() {
		for i, e := range a.Elements {
			if i == 0 && a.Mass > 0 {
				total += float64(a.Mass) + weight(e.Symbol)*float64(e.Count-1)
				continue
			}
			total += weight(e.Symbol) * float64(e.Count)
		}
	}
	return total
}

func weight(symbol string) float64 {
	if e, ok := molecule.LookupElement(symbol); ok {
		return e.Mass
	}
	return 0
}
