// Package pattern implements backtracking subgraph matching of atom patterns
// against molecule graphs. It is what functional-group recognition and the
// reaction catalog are built on.
package pattern

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/molnotation/internal/domain/molecule"
)

// Pattern describes one atom and, recursively, the atoms bonded to it.
type Pattern struct {
	// Elements the atom must be one of; empty means any.
	Elements ElementSet `yaml:"atom,omitempty" json:"atom,omitempty"`
	// Excluded elements the atom must not be.
	Excluded ElementSet `yaml:"not,omitempty" json:"not,omitempty"`
	// Charge, when set, must equal the atom's charge.
	Charge *int `yaml:"charge,omitempty" json:"charge,omitempty"`
	// Capture names the binding this atom is recorded under.
	Capture string `yaml:"capture,omitempty" json:"capture,omitempty"`
	// Neighbors must each be matched through a distinct bond. Bonds beyond
	// the listed neighbors are allowed.
	Neighbors []NeighborPattern `yaml:"bonded,omitempty" json:"bonded,omitempty"`
}

// NeighborPattern is a Pattern reached through a bond, optionally of a fixed
// order.
type NeighborPattern struct {
	Bond    *molecule.BondOrder `yaml:"bond,omitempty" json:"bond,omitempty"`
	Pattern `yaml:",inline"`
}

// ElementSet is a list of element symbols. In YAML it may be written as a
// single scalar or as a sequence.
type ElementSet []string

// UnmarshalYAML accepts "C" as well as [C, H].
func (s *ElementSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = ElementSet{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: element set must be a symbol or a list of symbols", node.Line)
}

// Atom returns a pattern for one of the given elements.
func Atom(elements ...string) Pattern {
	return Pattern{Elements: elements}
}

// Not returns a pattern for any atom except the given elements.
func Not(elements ...string) Pattern {
	return Pattern{Excluded: elements}
}

// As sets the capture label.
func (p Pattern) As(capture string) Pattern {
	p.Capture = capture
	return p
}

// WithCharge requires a charge.
func (p Pattern) WithCharge(charge int) Pattern {
	p.Charge = &charge
	return p
}

// Bonded appends neighbors reachable through a bond of any order.
func (p Pattern) Bonded(neighbors ...Pattern) Pattern {
	for _, n := range neighbors {
		p.Neighbors = append(p.Neighbors, NeighborPattern{Pattern: n})
	}
	return p
}

// BondedBy appends one neighbor reachable through a bond of the given order.
func (p Pattern) BondedBy(order molecule.BondOrder, neighbor Pattern) Pattern {
	o := order
	p.Neighbors = append(p.Neighbors, NeighborPattern{Bond: &o, Pattern: neighbor})
	return p
}

// Validate checks that every symbol is a known element and every bond order
// is set.
func (p *Pattern) Validate() error {
	for _, list := range []ElementSet{p.Elements, p.Excluded} {
		for _, sym := range list {
			if !molecule.IsElementSymbol(sym) {
				return fmt.Errorf("unknown element %q", sym)
			}
		}
	}
	for i := range p.Neighbors {
		n := &p.Neighbors[i]
		if n.Bond != nil && *n.Bond == molecule.BondUnset {
			return fmt.Errorf("neighbor %d: bond order must be set when given", i)
		}
		if err := n.Pattern.Validate(); err != nil {
			return fmt.Errorf("neighbor %d: %w", i, err)
		}
	}
	return nil
}

// Captures lists the capture labels of p and its neighbors, depth first.
func (p *Pattern) Captures() []string {
	var out []string
	if p.Capture != "" {
		out = append(out, p.Capture)
	}
	for i := range p.Neighbors {
		out = append(out, p.Neighbors[i].Pattern.Captures()...)
	}
	return out
}
