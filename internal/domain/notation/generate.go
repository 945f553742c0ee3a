package notation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/turtacn/molnotation/internal/domain/molecule"
)

// Generate serializes m back to notation. The walk starts at the lowest
// visible identifier and follows bonds in AllBondsOf order; every bond the
// walk does not descend is written as a ring-closure label, allocated afresh
// so labels are reused once closed. Implicit atoms are omitted unless
// showImplicit is set. Disconnected parts are joined with '.'.
func Generate(m *molecule.Molecule, showImplicit bool) string {
	g := &generator{m: m, showImplicit: showImplicit, seen: make(map[int]bool)}
	var parts []string
	for _, id := range m.IDs() {
		if g.visible(id) && !g.seen[id] {
			parts = append(parts, g.component(id))
		}
	}
	return strings.Join(parts, ".")
}

type generator struct {
	m            *molecule.Molecule
	showImplicit bool
	seen         map[int]bool
	// explicitSingle forces '-' on single ring closures when the text will
	// also contain ':' between non-aromatic atoms, which would otherwise mark
	// the open rings aromatic on re-parse.
	explicitSingle bool
}

type closure struct {
	other int
	order molecule.BondOrder
}

type walkFrame struct {
	id    int
	bonds []molecule.Bond
	next  int
}

func (g *generator) visible(id int) bool {
	a := g.m.Atom(id)
	return a != nil && (g.showImplicit || !a.Implicit)
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// component renders the connected part reachable from root.
func (g *generator) component(root int) string {
	var (
		order    []int
		rank     = make(map[int]int)
		parent   = map[int]int{root: -1}
		via      = make(map[int]molecule.BondOrder)
		children = make(map[int][]int)
		opens    = make(map[int][]closure)
		closes   = make(map[int][]closure)
		recorded = make(map[[2]int]bool)
	)
	visit := func(id int) *walkFrame {
		g.seen[id] = true
		rank[id] = len(order)
		order = append(order, id)
		return &walkFrame{id: id, bonds: g.m.AllBondsOf(id)}
	}

	g.explicitSingle = false
	stack := []*walkFrame{visit(root)}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.bonds) {
			stack = stack[:len(stack)-1]
			continue
		}
		b := top.bonds[top.next]
		top.next++
		if !g.visible(b.Dest) || b.Dest == parent[top.id] {
			continue
		}
		if b.Order == molecule.BondAromatic && !(g.m.Atom(top.id).Aromatic && g.m.Atom(b.Dest).Aromatic) {
			g.explicitSingle = true
		}
		if !g.seen[b.Dest] {
			parent[b.Dest] = top.id
			via[b.Dest] = b.Order
			children[top.id] = append(children[top.id], b.Dest)
			stack = append(stack, visit(b.Dest))
			continue
		}
		key := edgeKey(top.id, b.Dest)
		if recorded[key] {
			continue
		}
		recorded[key] = true
		// First sighting of a non-tree edge is always from the descendant.
		opens[b.Dest] = append(opens[b.Dest], closure{other: top.id, order: b.Order})
		closes[top.id] = append(closes[top.id], closure{other: b.Dest, order: b.Order})
	}

	byRank := func(list []closure) {
		sort.Slice(list, func(i, j int) bool { return rank[list[i].other] < rank[list[j].other] })
	}

	tokens := make(map[int]string, len(order))
	labels := make(map[[2]int]int)
	inUse := make(map[int]bool)
	for _, id := range order {
		a := g.m.Atom(id)
		var sb strings.Builder
		if p := parent[id]; p != -1 {
			sb.WriteString(bondSymbol(via[id], g.m.Atom(p), a))
		}
		sb.WriteString(AtomText(a))

		// Openers claim labels before this atom's closers release theirs so
		// a label is never closed and reopened within one token.
		byRank(opens[id])
		var opened []int
		for _, c := range opens[id] {
			l := 1
			for inUse[l] {
				l++
			}
			inUse[l] = true
			labels[edgeKey(id, c.other)] = l
			opened = append(opened, l)
		}
		byRank(closes[id])
		for _, c := range closes[id] {
			l := labels[edgeKey(id, c.other)]
			sb.WriteString(g.closureSymbol(c.order, g.m.Atom(c.other), a))
			sb.WriteString(ringLabelText(l))
			delete(inUse, l)
		}
		for _, l := range opened {
			sb.WriteString(ringLabelText(l))
		}
		tokens[id] = sb.String()
	}

	text := make(map[int]string, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		var sb strings.Builder
		sb.WriteString(tokens[id])
		kids := children[id]
		for j, k := range kids {
			if j < len(kids)-1 {
				sb.WriteString("(" + text[k] + ")")
			} else {
				sb.WriteString(text[k])
			}
			delete(text, k)
		}
		text[id] = sb.String()
	}
	return text[root]
}

// bondSymbol is the text written between two adjacent atoms. Single bonds
// between non-aromatic atoms and aromatic bonds between aromatic atoms are
// implied.
func bondSymbol(order molecule.BondOrder, from, to *molecule.Atom) string {
	bothAromatic := from.Aromatic && to.Aromatic
	switch order {
	case molecule.BondUnset:
		return ""
	case molecule.BondSingle:
		if bothAromatic {
			return "-"
		}
		return ""
	case molecule.BondAromatic:
		if bothAromatic {
			return ""
		}
	}
	return order.Symbol()
}

func (g *generator) closureSymbol(order molecule.BondOrder, from, to *molecule.Atom) string {
	if order == molecule.BondSingle && g.explicitSingle && !(from.Aromatic && to.Aromatic) {
		return "-"
	}
	return bondSymbol(order, from, to)
}

func ringLabelText(l int) string {
	if l < 10 {
		return strconv.Itoa(l)
	}
	return fmt.Sprintf("%%%02d", l)
}

// AtomText renders a single atom: bare for uncharged organic-subset atoms
// without isotope or radical, bracketed otherwise.
func AtomText(a *molecule.Atom) string {
	if a.InOrganicSubset() && a.Charge == 0 && !a.Radical && a.Mass == 0 {
		if !a.Aromatic {
			return a.Symbol()
		}
		if low, ok := molecule.AromaticSpelling(a.Symbol()); ok {
			return low
		}
	}
	var sb strings.Builder
	sb.WriteByte('[')
	if a.Mass > 0 {
		sb.WriteString(strconv.Itoa(a.Mass))
	}
	for i, e := range a.Elements {
		sym := e.Symbol
		if i == 0 && a.Aromatic {
			if low, ok := molecule.AromaticSpelling(sym); ok {
				sym = low
			}
		}
		sb.WriteString(sym)
		if e.Count != 1 {
			sb.WriteString(strconv.Itoa(e.Count))
		}
	}
	sb.WriteString(molecule.ChargeString(a.Charge))
	if a.Radical {
		sb.WriteByte('.')
	}
	sb.WriteByte(']')
	return sb.String()
}
