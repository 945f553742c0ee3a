package reaction

import (
	"context"
	"fmt"

	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/internal/domain/pattern"
	"github.com/turtacn/molnotation/pkg/errors"
)

// MaxApplications bounds how often a repeating rule is applied to one
// molecule.
const MaxApplications = 64

// Outcome is the result of applying a rule.
type Outcome struct {
	Rule *Rule
	// Products are the connected fragments of the rewritten molecule, the
	// fragment holding the lowest identifier first.
	Products []*molecule.Molecule
	// Applied counts the occurrences rewritten.
	Applied int
	// Truncated is set when MaxApplications stopped a repeating rule.
	Truncated bool
}

// Engine applies catalog rules. It reads the catalog from a Registry on every
// call, so a reload takes effect for the next reaction.
type Engine struct {
	registry *Registry
}

// NewEngine returns an engine over registry. A nil registry serves the
// built-in catalog.
func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry(nil)
	}
	return &Engine{registry: registry}
}

// Catalog returns the catalog currently in use.
func (e *Engine) Catalog() *Catalog {
	return e.registry.Current()
}

// React applies rule ruleID to mol and returns the products. mol and partner
// are never modified. partner is the second reactant for rules that name an
// external group and is ignored otherwise.
//
// The rule is applied to the first occurrence of its starting group, then the
// molecule is matched again and the rule reapplied until no occurrence is
// left, unless the rule reacts once or takes a partner.
func (e *Engine) React(ctx context.Context, mol *molecule.Molecule, ruleID int, opts Options, partner *molecule.Molecule) (*Outcome, error) {
	cat := e.registry.Current()
	rule, ok := cat.Rule(ruleID)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeReactionNotFound, "reaction %d not found", ruleID)
	}
	proc, ok := lookupProcedure(rule.Mutation)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeReactionUnsupported, "reaction %d (%s) has no mutation procedure", rule.ID, rule.Name)
	}
	if mol == nil || mol.Len() == 0 {
		return nil, errors.New(errors.ErrCodeReactantMissing, "no reactant given")
	}
	from, _ := cat.Group(rule.From)

	work := mol.Clone()
	validBefore := work.CheckValence() == nil
	matches, err := classified(ctx, cat, rule.From, work)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.Newf(errors.ErrCodeReactionInapplicable, "molecule is not a %s", from.Name)
	}

	mu := &Mutation{Mol: work, Opts: opts}
	if rule.External != 0 {
		ext, _ := cat.Group(rule.External)
		if partner == nil || partner.Len() == 0 {
			return nil, errors.Newf(errors.ErrCodeReactantMissing, "reaction %d requires a second reactant (%s)", rule.ID, ext.Name)
		}
		other := partner.Clone()
		pm, err := classified(ctx, cat, rule.External, other)
		if err != nil {
			return nil, err
		}
		if len(pm) == 0 {
			return nil, errors.Newf(errors.ErrCodeReactantMissing, "second reactant is not a %s", ext.Name)
		}
		mu.Partner = remap(pm[0], work.Merge(other))
	}

	out := &Outcome{Rule: rule}
	for {
		mu.Bind = matches[0]
		if err := proc(mu); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeReactionFailed,
				fmt.Sprintf("reaction %d (%s) failed", rule.ID, rule.Name))
		}
		out.Applied++
		if rule.ReactOnce || rule.External != 0 {
			break
		}
		if out.Applied >= MaxApplications {
			out.Truncated = true
			break
		}
		if matches, err = classified(ctx, cat, rule.From, work); err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			break
		}
	}

	if validBefore {
		if v := work.CheckValence(); v != nil {
			return nil, errors.Wrap(v, errors.ErrCodeReactionFailed,
				fmt.Sprintf("reaction %d (%s) produced an invalid structure", rule.ID, rule.Name))
		}
	}
	out.Products = splitFragments(work)
	return out, nil
}

func remap(b pattern.Bindings, mapping map[int]int) pattern.Bindings {
	out := make(pattern.Bindings, len(b))
	for k, v := range b {
		out[k] = mapping[v]
	}
	return out
}

// classified returns the occurrences of group id in m, or none when the
// classification of m drops the group in favour of a more specific one.
func classified(ctx context.Context, cat *Catalog, id int, m *molecule.Molecule) ([]pattern.Bindings, error) {
	found, err := cat.Classify(ctx, m)
	if err != nil {
		return nil, err
	}
	for _, g := range found {
		if g.Group.ID == id {
			return g.Matches, nil
		}
	}
	return nil, nil
}

func splitFragments(m *molecule.Molecule) []*molecule.Molecule {
	m.Role = molecule.RoleProduct
	out := []*molecule.Molecule{m}
	for cur := m; cur.Len() > 0; {
		rest := cur.SplitOff(cur.Root().ID)
		if rest == nil {
			break
		}
		out = append(out, rest)
		cur = rest
	}
	return out
}
