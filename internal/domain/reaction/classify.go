package reaction

import (
	"context"

	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/internal/domain/pattern"
)

// GroupMatch is one functional group found in a molecule together with the
// capture bindings of each occurrence. A parent group carries the matches of
// its variants.
type GroupMatch struct {
	Group   *Group             `json:"group"`
	Matches []pattern.Bindings `json:"matches"`
}

// Match returns every occurrence of group id in m. For a parent group the
// occurrences of its variants are concatenated in variant order.
func (c *Catalog) Match(ctx context.Context, id int, m *molecule.Molecule) ([]pattern.Bindings, error) {
	g, ok := c.groups[id]
	if !ok {
		return nil, nil
	}
	if g.Pattern != nil {
		return pattern.MatchMoleculeContext(ctx, g.Pattern, m, true)
	}
	var out []pattern.Bindings
	for _, v := range c.variants[id] {
		got, err := c.Match(ctx, v, m)
		if err != nil {
			return out, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// Classify lists the functional groups present in m by ascending group id.
//
// Every group with a pattern is tried first. Parents are then added for each
// variant found. Finally, by ascending id, each present group that has not
// itself been dropped drops the groups in its remove_if_present list along
// with their variants: a carboxylic acid is not also reported as a ketone.
func (c *Catalog) Classify(ctx context.Context, m *molecule.Molecule) ([]GroupMatch, error) {
	found := make(map[int][]pattern.Bindings)
	for _, g := range c.Groups() {
		if g.Pattern == nil {
			continue
		}
		got, err := pattern.MatchMoleculeContext(ctx, g.Pattern, m, true)
		if err != nil {
			return nil, err
		}
		if len(got) > 0 {
			found[g.ID] = got
		}
	}
	for _, g := range c.Groups() {
		if g.VariantOf != 0 && len(found[g.ID]) > 0 {
			found[g.VariantOf] = append(found[g.VariantOf], found[g.ID]...)
		}
	}

	removed := make(map[int]bool)
	for _, g := range c.Groups() {
		if len(found[g.ID]) == 0 || removed[g.ID] {
			continue
		}
		for _, drop := range g.RemoveIfPresent {
			removed[drop] = true
			for _, v := range c.variants[drop] {
				removed[v] = true
			}
		}
	}

	var out []GroupMatch
	for _, g := range c.Groups() {
		if len(found[g.ID]) == 0 || removed[g.ID] {
			continue
		}
		out = append(out, GroupMatch{Group: g, Matches: found[g.ID]})
	}
	return out, nil
}
