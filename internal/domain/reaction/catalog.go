// Package reaction holds the functional-group and reaction catalog and the
// engine that applies reaction rules to parsed molecules.
package reaction

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/turtacn/molnotation/internal/domain/pattern"
	"github.com/turtacn/molnotation/pkg/errors"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Example is a representative molecule of a group.
type Example struct {
	Notation string `yaml:"notation" json:"notation"`
	Name     string `yaml:"name" json:"name"`
}

// Group is a functional group. A group without a pattern is a parent whose
// presence is implied by any of its variants.
type Group struct {
	ID              int              `yaml:"id" json:"id"`
	Repr            string           `yaml:"repr" json:"repr"`
	Name            string           `yaml:"name" json:"name"`
	Example         Example          `yaml:"example" json:"example"`
	VariantOf       int              `yaml:"variant_of,omitempty" json:"variant_of,omitempty"`
	RemoveIfPresent []int            `yaml:"remove_if_present,omitempty" json:"remove_if_present,omitempty"`
	Pattern         *pattern.Pattern `yaml:"pattern,omitempty" json:"pattern,omitempty"`
}

// IsParent reports whether the group has no pattern of its own.
func (g *Group) IsParent() bool {
	return g.Pattern == nil
}

// Rule converts molecules of one group into another.
type Rule struct {
	ID         int    `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Type       string `yaml:"type,omitempty" json:"type,omitempty"`
	From       int    `yaml:"from" json:"from"`
	To         int    `yaml:"to" json:"to"`
	Reagents   string `yaml:"reagents,omitempty" json:"reagents,omitempty"`
	Conditions string `yaml:"conditions,omitempty" json:"conditions,omitempty"`
	// ReactOnce stops after the first application.
	ReactOnce bool `yaml:"react_once,omitempty" json:"react_once,omitempty"`
	// External names the group a second reactant must belong to.
	External int `yaml:"external,omitempty" json:"external,omitempty"`
	// Mutation names the procedure that rewrites the graph. Rules without
	// one are listed but cannot be applied.
	Mutation string `yaml:"mutation,omitempty" json:"mutation,omitempty"`
}

// Catalog is an immutable, validated set of groups and rules.
type Catalog struct {
	groups   map[int]*Group
	rules    map[int]*Rule
	variants map[int][]int
}

type catalogFile struct {
	Groups    []*Group `yaml:"groups"`
	Reactions []*Rule  `yaml:"reactions"`
}

// DefaultCatalog returns the built-in catalog. It is decoded once and shared.
var DefaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := LoadCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in reaction catalog is invalid: %v", err))
	}
	return c
})

// LoadCatalogFile reads and validates a catalog from disk.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogInvalid, "failed to read catalog file")
	}
	return LoadCatalog(data)
}

// LoadCatalog decodes and validates a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogInvalid, "failed to decode catalog")
	}
	c := &Catalog{
		groups:   make(map[int]*Group, len(f.Groups)),
		rules:    make(map[int]*Rule, len(f.Reactions)),
		variants: make(map[int][]int),
	}
	for _, g := range f.Groups {
		if g.ID <= 0 {
			return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "group %q: id must be positive", g.Repr)
		}
		if _, dup := c.groups[g.ID]; dup {
			return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "duplicate group id %d", g.ID)
		}
		if g.Pattern != nil {
			if err := g.Pattern.Validate(); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeCatalogInvalid, fmt.Sprintf("group %d: invalid pattern", g.ID))
			}
		}
		c.groups[g.ID] = g
	}
	for _, g := range f.Groups {
		if g.VariantOf != 0 {
			parent, ok := c.groups[g.VariantOf]
			if !ok {
				return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "group %d: unknown parent %d", g.ID, g.VariantOf)
			}
			if parent.VariantOf != 0 || parent.ID == g.ID {
				return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "group %d: parent %d is itself a variant", g.ID, g.VariantOf)
			}
			c.variants[g.VariantOf] = append(c.variants[g.VariantOf], g.ID)
		}
		for _, id := range g.RemoveIfPresent {
			if _, ok := c.groups[id]; !ok {
				return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "group %d: remove_if_present names unknown group %d", g.ID, id)
			}
		}
	}
	for _, g := range f.Groups {
		if g.IsParent() && len(c.variants[g.ID]) == 0 {
			return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "group %d has neither a pattern nor variants", g.ID)
		}
	}
	for _, ids := range c.variants {
		sort.Ints(ids)
	}

	for _, r := range f.Reactions {
		if _, dup := c.rules[r.ID]; dup || r.ID <= 0 {
			return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "invalid or duplicate reaction id %d", r.ID)
		}
		for _, ref := range []int{r.From, r.To} {
			if _, ok := c.groups[ref]; !ok {
				return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "reaction %d: unknown group %d", r.ID, ref)
			}
		}
		if r.External != 0 {
			if _, ok := c.groups[r.External]; !ok {
				return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "reaction %d: unknown external group %d", r.ID, r.External)
			}
		}
		if r.Mutation != "" {
			if _, ok := lookupProcedure(r.Mutation); !ok {
				return nil, errors.Newf(errors.ErrCodeCatalogInvalid, "reaction %d: unknown mutation %q", r.ID, r.Mutation)
			}
		}
		c.rules[r.ID] = r
	}
	return c, nil
}

// Group returns the group with id.
func (c *Catalog) Group(id int) (*Group, bool) {
	g, ok := c.groups[id]
	return g, ok
}

// GroupByRepr finds a group by its short name, e.g. "1-alcohol".
func (c *Catalog) GroupByRepr(repr string) (*Group, bool) {
	for _, g := range c.groups {
		if g.Repr == repr {
			return g, true
		}
	}
	return nil, false
}

// Groups lists every group by ascending id.
func (c *Catalog) Groups() []*Group {
	out := make([]*Group, 0, len(c.groups))
	for _, g := range c.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Variants returns the ids of the groups declared as variants of id.
func (c *Catalog) Variants(id int) []int {
	return c.variants[id]
}

// Rule returns the reaction rule with id.
func (c *Catalog) Rule(id int) (*Rule, bool) {
	r, ok := c.rules[id]
	return r, ok
}

// Rules lists every rule by ascending id.
func (c *Catalog) Rules() []*Rule {
	out := make([]*Rule, 0, len(c.rules))
	for _, r := range c.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RulesFrom lists the rules starting from group id, by ascending rule id.
func (c *Catalog) RulesFrom(id int) []*Rule {
	var out []*Rule
	for _, r := range c.Rules() {
		if r.From == id {
			out = append(out, r)
		}
	}
	return out
}
