// Package molecule defines the data transfer objects of the analysis API: the
// request bodies, the analysis and reaction views and the worker job
// messages. Only plain data lives here.
package molecule

import (
	"fmt"
	"strings"

	"github.com/turtacn/molnotation/pkg/types/common"
)

// ParseOptions overrides individual parser switches. A nil field keeps the
// configured default.
type ParseOptions struct {
	Inorganic         *bool `json:"inorganic,omitempty" mapstructure:"inorganic"`
	Charges           *bool `json:"charges,omitempty" mapstructure:"charges"`
	Branches          *bool `json:"branches,omitempty" mapstructure:"branches"`
	Rings             *bool `json:"rings,omitempty" mapstructure:"rings"`
	Aromaticity       *bool `json:"aromaticity,omitempty" mapstructure:"aromaticity"`
	Disconnection     *bool `json:"disconnection,omitempty" mapstructure:"disconnection"`
	Reactions         *bool `json:"reactions,omitempty" mapstructure:"reactions"`
	MultipleReactions *bool `json:"multiple_reactions,omitempty" mapstructure:"multiple_reactions"`
	CumulativeCharge  *bool `json:"cumulative_charge,omitempty" mapstructure:"cumulative_charge"`
	ImplicitHydrogens *bool `json:"implicit_hydrogens,omitempty" mapstructure:"implicit_hydrogens"`
	CheckValence      *bool `json:"check_valence,omitempty" mapstructure:"check_valence"`
}

// AnalyzeRequest asks for a full analysis of one notation string.
type AnalyzeRequest struct {
	Notation string        `json:"notation" binding:"required"`
	Options  *ParseOptions `json:"options,omitempty"`
	// Markup is plain, html or unicode. Empty means the configured default.
	Markup string `json:"markup,omitempty"`
	// ShowImplicit writes implicit hydrogens into the canonical notation.
	ShowImplicit bool `json:"show_implicit,omitempty"`
	// Groups enables functional group classification.
	Groups bool `json:"groups,omitempty"`
}

// Validate rejects empty notation and unknown markup names.
func (r *AnalyzeRequest) Validate() error {
	if strings.TrimSpace(r.Notation) == "" {
		return fmt.Errorf("notation is required")
	}
	switch strings.ToLower(r.Markup) {
	case "", "plain", "html", "unicode":
	default:
		return fmt.Errorf("unknown markup %q", r.Markup)
	}
	return nil
}

// ReactRequest applies one catalog rule to the single molecule in Notation.
type ReactRequest struct {
	Notation string        `json:"notation" binding:"required"`
	Rule     int           `json:"rule" binding:"required"`
	Partner  string        `json:"partner,omitempty"`
	Options  *ParseOptions `json:"options,omitempty"`
	// AddHydrogens makes added hydrogens explicit in the products.
	AddHydrogens bool `json:"add_hydrogens,omitempty"`
	// Halogen is the halogen of halogenation rules; empty means Br.
	Halogen string `json:"halogen,omitempty"`
	Markup  string `json:"markup,omitempty"`
}

func (r *ReactRequest) Validate() error {
	if strings.TrimSpace(r.Notation) == "" {
		return fmt.Errorf("notation is required")
	}
	if r.Rule <= 0 {
		return fmt.Errorf("rule must be positive, got %d", r.Rule)
	}
	switch r.Halogen {
	case "", "F", "Cl", "Br", "I":
	default:
		return fmt.Errorf("halogen must be one of F, Cl, Br or I, got %q", r.Halogen)
	}
	return nil
}

// BondDTO is a half-bond as owned by its atom.
type BondDTO struct {
	To    int    `json:"to"`
	Order string `json:"order"`
}

// AtomDTO is one graph node.
type AtomDTO struct {
	ID       int       `json:"id"`
	Label    string    `json:"label"`
	Charge   int       `json:"charge,omitempty"`
	Radical  bool      `json:"radical,omitempty"`
	Mass     int       `json:"mass,omitempty"`
	Aromatic bool      `json:"aromatic,omitempty"`
	Implicit bool      `json:"implicit,omitempty"`
	Position int       `json:"position"`
	Length   int       `json:"length"`
	Bonds    []BondDTO `json:"bonds,omitempty"`
}

// RingDTO is a closed ring with its resolved member path.
type RingDTO struct {
	Digit    int    `json:"digit"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Order    string `json:"order"`
	Aromatic bool   `json:"aromatic,omitempty"`
	Members  []int  `json:"members"`
}

// GroupDTO names a functional group.
type GroupDTO struct {
	ID   int    `json:"id"`
	Repr string `json:"repr"`
	Name string `json:"name"`
	// Occurrences is how often the group was found in the molecule.
	Occurrences int `json:"occurrences,omitempty"`
}

// MoleculeDTO is the analysis of one molecule.
type MoleculeDTO struct {
	Index            int        `json:"index"`
	Role             string     `json:"role"`
	Notation         string     `json:"notation"`
	Formula          string     `json:"formula"`
	EmpiricalFormula string     `json:"empirical_formula"`
	CondensedFormula string     `json:"condensed_formula"`
	MolarMass        float64    `json:"molar_mass"`
	AtomCount        int        `json:"atom_count"`
	Atoms            []AtomDTO  `json:"atoms"`
	Rings            []RingDTO  `json:"rings,omitempty"`
	Groups           []GroupDTO `json:"groups,omitempty"`
}

// AnalysisDTO is the result of analysing one notation string.
type AnalysisDTO struct {
	ID        common.ID        `json:"id"`
	Notation  string           `json:"notation"`
	Canonical string           `json:"canonical"`
	Reaction  bool             `json:"reaction"`
	Markup    string           `json:"markup"`
	Molecules []MoleculeDTO    `json:"molecules"`
	CreatedAt common.Timestamp `json:"created_at"`
	// Cached is set when the analysis was served from the cache.
	Cached bool `json:"cached"`
}

// RuleDTO describes a catalog reaction rule.
type RuleDTO struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type,omitempty"`
	From       GroupDTO  `json:"from"`
	To         GroupDTO  `json:"to"`
	External   *GroupDTO `json:"external,omitempty"`
	Reagents   string    `json:"reagents,omitempty"`
	Conditions string    `json:"conditions,omitempty"`
	ReactOnce  bool      `json:"react_once,omitempty"`
	Mutation   string    `json:"mutation"`
}

// ReactionDTO is the outcome of a ReactRequest.
type ReactionDTO struct {
	Rule      RuleDTO       `json:"rule"`
	Reactant  string        `json:"reactant"`
	Partner   string        `json:"partner,omitempty"`
	Products  []MoleculeDTO `json:"products"`
	Applied   int           `json:"applied"`
	Truncated bool          `json:"truncated,omitempty"`
	// Equation is the reaction written as notation, e.g. "C=C>>CC".
	Equation string `json:"equation"`
}

// AnalysisJob is the message on the analysis request topic.
type AnalysisJob struct {
	JobID       common.ID        `json:"job_id"`
	Request     AnalyzeRequest   `json:"request"`
	RequestedAt common.Timestamp `json:"requested_at"`
	Attempt     int              `json:"attempt"`
}

// AnalysisCompleted is the message on the analysis result topic. Exactly one
// of Analysis and Error is set.
type AnalysisCompleted struct {
	JobID       common.ID           `json:"job_id"`
	Analysis    *AnalysisDTO        `json:"analysis,omitempty"`
	Error       *common.ErrorDetail `json:"error,omitempty"`
	CompletedAt common.Timestamp    `json:"completed_at"`
}
