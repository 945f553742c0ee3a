package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molnotation/pkg/errors"
	mtypes "github.com/turtacn/molnotation/pkg/types/molecule"
)

func TestParseCmd_Text(t *testing.T) {
	stdout, _, err := run(t, "parse", "CCO")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Canonical: CCO")
	assert.Contains(t, stdout, "[0] CCO")
	assert.Contains(t, stdout, "formula:    C2H6O")
	assert.Contains(t, stdout, "atoms:      9")
	assert.NotContains(t, stdout, "groups:")
}

func TestParseCmd_ReactionRoles(t *testing.T) {
	stdout, _, err := run(t, "parse", "C=C.O>>CCO")
	require.NoError(t, err)
	assert.Contains(t, stdout, "C=C (reactant)")
	assert.Contains(t, stdout, "CCO (product)")
}

func TestParseCmd_JSON(t *testing.T) {
	stdout, _, err := run(t, "parse", "CCO", "--groups", "-o", "json")
	require.NoError(t, err)

	var out mtypes.AnalysisDTO
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Molecules, 1)
	assert.Equal(t, "C2H6O", out.Molecules[0].Formula)
	assert.Len(t, out.Molecules[0].Atoms, 3)

	var reprs []string
	for _, g := range out.Molecules[0].Groups {
		reprs = append(reprs, g.Repr)
	}
	assert.Contains(t, reprs, "alcohol")
}

func TestParseCmd_VerboseTable(t *testing.T) {
	stdout, _, err := run(t, "parse", "C=C", "-o", "table", "-v")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Bonds")
	assert.Contains(t, stdout, "double->#1")
}

func TestParseCmd_Errors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		code   errors.ErrorCode
		stderr string
	}{
		{"syntax", []string{"parse", "CC(C"}, errors.ErrCodeNotationSyntax, "^"},
		{"unclosed ring", []string{"parse", "C1CC"}, errors.ErrCodeNotationSemantic, "Semantic Error"},
		{"rings disabled", []string{"parse", "C1CCCC1", "--disable", "rings"}, errors.ErrCodeNotationSyntax, "Syntax Error"},
		{"unknown feature", []string{"parse", "CCO", "--disable", "stereo"}, errors.ErrCodeBadRequest, "unknown parser feature"},
		{"bad markup", []string{"parse", "CCO", "--markup", "latex"}, "", "Error:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, err := run(t, tt.args...)
			require.Error(t, err)
			if tt.code != "" {
				assert.Equal(t, tt.code, errors.GetCode(err))
			}
			assert.Contains(t, stderr, tt.stderr)
		})
	}
}

func TestFormulaCmd_Kinds(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{"molecular", "C2H4O2\n"},
		{"empirical", "CH2O\n"},
		{"all", "C2H4O2  (empirical CH2O, condensed "},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			stdout, _, err := run(t, "formula", "CC(=O)O", "--kind", tt.kind)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(stdout, tt.want), stdout)
		})
	}
}

func TestFormulaCmd_InvalidKind(t *testing.T) {
	_, _, err := run(t, "formula", "CCO", "--kind", "structural")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --kind")
}

func TestFormulaCmd_ReactionJSON(t *testing.T) {
	stdout, _, err := run(t, "formula", "C=C.O>>CCO", "-o", "json")
	require.NoError(t, err)

	var rows []FormulaRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "reactant", rows[0].Role)
	assert.Equal(t, "C2H4", rows[0].Molecular)
	assert.Equal(t, "H2O", rows[1].Molecular)
	assert.Equal(t, "product", rows[2].Role)
	assert.Equal(t, "C2H6O", rows[2].Molecular)
}

func TestFormulaCmd_RolePrefix(t *testing.T) {
	stdout, _, err := run(t, "formula", "C=C.O>>CCO")
	require.NoError(t, err)
	assert.Equal(t, "reactant: C2H4\nreactant: H2O\nproduct: C2H6O\n", stdout)
}

func TestGroupsCmd_Catalog(t *testing.T) {
	stdout, _, err := run(t, "groups", "-o", "json")
	require.NoError(t, err)

	var groups []mtypes.GroupDTO
	require.NoError(t, json.Unmarshal([]byte(stdout), &groups))
	assert.Len(t, groups, 24)
	assert.Equal(t, "alkane", groups[0].Repr)

	stdout, _, err = run(t, "groups")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alkene")
}

func TestGroupsCmd_Classify(t *testing.T) {
	stdout, _, err := run(t, "groups", "OCCO")
	require.NoError(t, err)
	assert.Contains(t, stdout, "alcohol")
	assert.Contains(t, stdout, "x2")

	stdout, _, err = run(t, "groups", "CCO.CC", "-o", "json")
	require.NoError(t, err)
	var rows []GroupMatchRow
	require.NoError(t, json.Unmarshal([]byte(stdout), &rows))
	require.Len(t, rows, 2)
	assert.NotEmpty(t, rows[0].Groups)
	assert.NotNil(t, rows[1].Groups)
}

func TestReactCmd(t *testing.T) {
	stdout, _, err := run(t, "react", "C=C", "--rule", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Rule 1: ")
	assert.Contains(t, stdout, "C=C>>CC")
	assert.Contains(t, stdout, "applied 1 time(s)")
}

func TestReactCmd_JSON(t *testing.T) {
	stdout, _, err := run(t, "react", "C=C", "--rule", "1", "-o", "json")
	require.NoError(t, err)

	var out mtypes.ReactionDTO
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Equal(t, 1, out.Rule.ID)
	assert.Equal(t, "C=C>>CC", out.Equation)
	require.Len(t, out.Products, 1)
	assert.Equal(t, "C2H6", out.Products[0].Formula)
}

func TestReactCmd_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{"missing rule", []string{"react", "C=C"}, ""},
		{"unknown rule", []string{"react", "C=C", "--rule", "999"}, errors.ErrCodeReactionNotFound},
		{"bad notation", []string{"react", "C=(C", "--rule", "1"}, errors.ErrCodeNotationSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			if tt.code != "" {
				assert.Equal(t, tt.code, errors.GetCode(err))
			}
		})
	}
}

func TestReactionsCmd(t *testing.T) {
	stdout, _, err := run(t, "reactions", "-o", "json")
	require.NoError(t, err)
	var all []mtypes.RuleDTO
	require.NoError(t, json.Unmarshal([]byte(stdout), &all))
	assert.Len(t, all, 29)

	stdout, _, err = run(t, "reactions", "--from", "alkene", "-o", "json")
	require.NoError(t, err)
	var fromAlkene []mtypes.RuleDTO
	require.NoError(t, json.Unmarshal([]byte(stdout), &fromAlkene))
	require.NotEmpty(t, fromAlkene)
	for _, r := range fromAlkene {
		assert.Equal(t, "alkene", r.From.Repr)
	}

	stdout, _, err = run(t, "reactions", "--from", "2")
	require.NoError(t, err)
	assert.Equal(t, len(fromAlkene), strings.Count(stdout, "\n"))
}

func TestFilterRules(t *testing.T) {
	rules := []mtypes.RuleDTO{
		{ID: 1, From: mtypes.GroupDTO{ID: 2, Repr: "alkene"}},
		{ID: 5, From: mtypes.GroupDTO{ID: 3, Repr: "alkyne"}},
	}
	assert.Len(t, filterRules(rules, "2"), 1)
	assert.Len(t, filterRules(rules, "ALKYNE"), 1)
	assert.Empty(t, filterRules(rules, "ketone"))
}

func TestNotationFlags_Options(t *testing.T) {
	f := &notationFlags{}
	opts, err := f.options()
	require.NoError(t, err)
	assert.Nil(t, opts)

	f = &notationFlags{enable: []string{"Check-Valence"}, disable: []string{"rings", " charges "}}
	opts, err = f.options()
	require.NoError(t, err)
	require.NotNil(t, opts.CheckValence)
	assert.True(t, *opts.CheckValence)
	require.NotNil(t, opts.Rings)
	assert.False(t, *opts.Rings)
	require.NotNil(t, opts.Charges)
	assert.False(t, *opts.Charges)
	assert.Nil(t, opts.Branches)

	f = &notationFlags{disable: []string{"chirality"}}
	_, err = f.options()
	assert.True(t, errors.IsValidation(err))
}

func TestFeatureNames_Sorted(t *testing.T) {
	names := featureNames()
	assert.Len(t, names, 11)
	assert.IsIncreasing(t, names)
}
