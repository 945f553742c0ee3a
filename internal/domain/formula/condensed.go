package formula

import (
	"strings"

	"github.com/turtacn/molnotation/internal/domain/molecule"
)

// Condensed renders the molecule as a condensed structural formula, e.g.
// CH3(CH2)2CH3 for butane or CH3COOH for ethanoic acid.
//
// Atoms are visited depth first from the lowest identifier. A neighbour that
// owns no half-bonds, typically a hydrogen, is a satellite: it is folded into
// the visiting atom's segment as a count instead of getting its own segment.
// Identical consecutive segments are then run-length encoded as (seg)n.
func Condensed(m *molecule.Molecule, markup Markup) string {
	return condensed(m, markup, true)
}

// CondensedExpanded is Condensed without run-length encoding.
func CondensedExpanded(m *molecule.Molecule, markup Markup) string {
	return condensed(m, markup, false)
}

func condensed(m *molecule.Molecule, markup Markup, collapse bool) string {
	done := make(map[int]bool)
	var parts []string
	for _, id := range m.IDs() {
		if done[id] {
			continue
		}
		segs := segments(m, id, done, markup)
		parts = append(parts, joinSegments(segs, markup, collapse))
	}
	return strings.Join(parts, ".")
}

type tokenCount struct {
	token string
	count int
}

// segments walks the component of root and returns one rendered segment per
// non-satellite atom in visiting order.
func segments(m *molecule.Molecule, root int, done map[int]bool, markup Markup) []string {
	var out []string
	stack := []int{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if done[id] {
			continue
		}
		done[id] = true

		a := m.Atom(id)
		seg := []tokenCount{{token: atomToken(a, markup), count: 1}}
		bonds := m.AllBondsOf(id)
		for j := len(bonds) - 1; j >= 0; j-- {
			dest := m.Atom(bonds[j].Dest)
			if done[dest.ID] || len(dest.Bonds) != 0 {
				continue
			}
			done[dest.ID] = true
			tok := atomToken(dest, markup)
			if i := indexOfToken(seg, tok); i != -1 {
				seg[i].count++
			} else {
				seg = append(seg, tokenCount{token: tok, count: 1})
			}
		}
		out = append(out, renderSegment(seg, markup))

		// Push in reverse so the first bond is walked first.
		for j := len(bonds) - 1; j >= 0; j-- {
			if !done[bonds[j].Dest] {
				stack = append(stack, bonds[j].Dest)
			}
		}
	}
	return out
}

func indexOfToken(seg []tokenCount, token string) int {
	for i, tc := range seg {
		if tc.token == token {
			return i
		}
	}
	return -1
}

// renderSegment writes each token with its count. Tokens strictly between
// the first and the last are parenthesized, e.g. C(H)O.
func renderSegment(seg []tokenCount, markup Markup) string {
	var sb strings.Builder
	for j, tc := range seg {
		s := tc.token
		if tc.count != 1 {
			s += markup.sub(tc.count)
		}
		if j > 0 && j < len(seg)-1 {
			s = "(" + s + ")"
		}
		sb.WriteString(s)
	}
	return sb.String()
}

func joinSegments(segs []string, markup Markup, collapse bool) string {
	if !collapse {
		return strings.Join(segs, "")
	}
	var (
		sb    strings.Builder
		last  string
		count int
	)
	flush := func() {
		switch count {
		case 0:
		case 1:
			sb.WriteString(last)
		default:
			sb.WriteString("(" + last + ")" + markup.sub(count))
		}
	}
	for _, s := range segs {
		if count > 0 && s == last {
			count++
			continue
		}
		flush()
		last, count = s, 1
	}
	flush()
	return sb.String()
}

// atomToken renders one atom for the condensed formula: its element string,
// parenthesized when it holds several atoms, followed by its charge.
func atomToken(a *molecule.Atom, markup Markup) string {
	s := markup.elementString(a.Elements)
	if len(a.Elements) > 1 {
		s = "(" + s + ")"
	}
	return s + markup.sup(a.Charge)
}
