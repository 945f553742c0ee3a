package notation

import (
	"strings"

	"github.com/turtacn/molnotation/internal/domain/molecule"
)

// ParseResult is the outcome of one successful Parse call.
type ParseResult struct {
	// Text is the parsed input.
	Text    string
	Options Options
	// Molecules are in textual order.
	Molecules []*molecule.Molecule
	// OpenRings is empty on success; unclosed rings are fatal.
	OpenRings []*molecule.Ring
	// ReactionIndexes holds, for every '>', the index of the last molecule
	// before it. A ">>" contributes the same index twice.
	ReactionIndexes []int
}

// IsReaction reports whether the text contained reaction arrows.
func (r *ParseResult) IsReaction() bool {
	return len(r.ReactionIndexes) > 0
}

// assignRoles labels molecules by how many arrows precede them: none means
// reactant, an odd count reagent and an even count product.
func (r *ParseResult) assignRoles() {
	for i, m := range r.Molecules {
		if !r.IsReaction() {
			m.Role = molecule.RoleGeneric
			continue
		}
		before := 0
		for _, idx := range r.ReactionIndexes {
			if idx < i {
				before++
			}
		}
		switch {
		case before == 0:
			m.Role = molecule.RoleReactant
		case before%2 == 1:
			m.Role = molecule.RoleReagent
		default:
			m.Role = molecule.RoleProduct
		}
	}
}

// ByRole returns the molecules carrying role, in order.
func (r *ParseResult) ByRole(role molecule.Role) []*molecule.Molecule {
	var out []*molecule.Molecule
	for _, m := range r.Molecules {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// Reactants returns the molecules before the first arrow.
func (r *ParseResult) Reactants() []*molecule.Molecule { return r.ByRole(molecule.RoleReactant) }

// Reagents returns the molecules between the arrows of a reaction.
func (r *ParseResult) Reagents() []*molecule.Molecule { return r.ByRole(molecule.RoleReagent) }

// Products returns the molecules after the last arrow.
func (r *ParseResult) Products() []*molecule.Molecule { return r.ByRole(molecule.RoleProduct) }

// Atom looks id up across all molecules.
func (r *ParseResult) Atom(id int) (*molecule.Atom, *molecule.Molecule) {
	for _, m := range r.Molecules {
		if a := m.Atom(id); a != nil {
			return a, m
		}
	}
	return nil, nil
}

// AtomCount returns the number of atoms over all molecules, implicit
// hydrogens included.
func (r *ParseResult) AtomCount() int {
	n := 0
	for _, m := range r.Molecules {
		n += m.Len()
	}
	return n
}

// Generate serializes every molecule, joining them with '.' and with '>' at
// each reaction index.
func (r *ParseResult) Generate(showImplicit bool) string {
	var sb strings.Builder
	for i, m := range r.Molecules {
		sb.WriteString(Generate(m, showImplicit))
		if i == len(r.Molecules)-1 {
			break
		}
		arrows := 0
		for _, idx := range r.ReactionIndexes {
			if idx == i {
				arrows++
			}
		}
		if arrows == 0 {
			sb.WriteByte('.')
		} else {
			sb.WriteString(strings.Repeat(">", arrows))
		}
	}
	return sb.String()
}
