package pattern

import (
	"context"

	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/pkg/errors"
)

// Bindings maps capture labels to atom identifiers.
type Bindings map[string]int

func (b Bindings) clone() Bindings {
	c := make(Bindings, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

type visitedSet map[int]bool

func (v visitedSet) clone() visitedSet {
	c := make(visitedSet, len(v)+1)
	for k := range v {
		c[k] = true
	}
	return c
}

// MatchAtom reports whether a satisfies p's element, exclusion and charge
// constraints. Neighbors are not considered.
func MatchAtom(p *Pattern, a *molecule.Atom) bool {
	if a == nil {
		return false
	}
	if len(p.Elements) > 0 && !a.IsElement(p.Elements...) {
		return false
	}
	if len(p.Excluded) > 0 && a.IsElement(p.Excluded...) {
		return false
	}
	if p.Charge != nil && !a.MatchesCharge(*p.Charge) {
		return false
	}
	return true
}

// MatchAtoms matches p rooted at a. Atoms in visited are never bound. Each
// neighbor pattern consumes a distinct bond of a; on failure the next
// candidate bond is tried. The caller's visited set is not modified.
func MatchAtoms(p *Pattern, a *molecule.Atom, m *molecule.Molecule, visited map[int]bool) (Bindings, bool) {
	b, _, ok := matchAtoms(p, a, m, visitedSet(visited))
	return b, ok
}

func matchAtoms(p *Pattern, a *molecule.Atom, m *molecule.Molecule, visited visitedSet) (Bindings, visitedSet, bool) {
	if !MatchAtom(p, a) || visited[a.ID] {
		return nil, nil, false
	}
	seen := visited.clone()
	seen[a.ID] = true
	b := Bindings{}
	if p.Capture != "" {
		b[p.Capture] = a.ID
	}
	if len(p.Neighbors) == 0 {
		return b, seen, true
	}
	bonds := m.AllBondsOf(a.ID)
	used := make([]bool, len(bonds))
	return matchNeighbors(p.Neighbors, bonds, used, m, seen, b)
}

// matchNeighbors binds neighbors[0] to some unused bond and recurses on the
// rest. A sibling's successful match passes its visited set on to the next
// sibling, so one atom is never bound twice.
func matchNeighbors(neighbors []NeighborPattern, bonds []molecule.Bond, used []bool,
	m *molecule.Molecule, visited visitedSet, b Bindings) (Bindings, visitedSet, bool) {
	if len(neighbors) == 0 {
		return b, visited, true
	}
	n := &neighbors[0]
	for j, bond := range bonds {
		if used[j] || visited[bond.Dest] {
			continue
		}
		if n.Bond != nil && *n.Bond != bond.Order {
			continue
		}
		sub, subVisited, ok := matchAtoms(&n.Pattern, m.Atom(bond.Dest), m, visited)
		if !ok {
			continue
		}
		merged := b.clone()
		for k, v := range sub {
			merged[k] = v
		}
		used[j] = true
		res, resVisited, ok := matchNeighbors(neighbors[1:], bonds, used, m, subVisited, merged)
		used[j] = false
		if ok {
			return res, resVisited, true
		}
	}
	return nil, nil, false
}

// MatchMolecule tries every atom of m as the root of p in ascending
// identifier order. With many false it stops after the first match.
func MatchMolecule(p *Pattern, m *molecule.Molecule, many bool) []Bindings {
	var out []Bindings
	for _, a := range m.Atoms() {
		if b, ok := MatchAtoms(p, a, m, nil); ok {
			out = append(out, b)
			if !many {
				break
			}
		}
	}
	return out
}

// MatchMoleculeContext is MatchMolecule with cancellation checked between
// roots. On cancellation it returns the matches found so far and an error
// with code NOTATION_004.
func MatchMoleculeContext(ctx context.Context, p *Pattern, m *molecule.Molecule, many bool) ([]Bindings, error) {
	var out []Bindings
	for _, a := range m.Atoms() {
		if err := ctx.Err(); err != nil {
			return out, errors.Wrap(err, errors.ErrCodeMatchTimeout, "pattern matching aborted")
		}
		if b, ok := MatchAtoms(p, a, m, nil); ok {
			out = append(out, b)
			if !many {
				break
			}
		}
	}
	return out, nil
}

// Matches reports whether p matches anywhere in m.
func Matches(p *Pattern, m *molecule.Molecule) bool {
	return len(MatchMolecule(p, m, false)) > 0
}
