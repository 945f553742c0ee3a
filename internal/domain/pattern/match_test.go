package pattern

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/molnotation/internal/domain/molecule"
	"github.com/turtacn/molnotation/internal/domain/notation"
	"github.com/turtacn/molnotation/pkg/errors"
)

func parseOne(t *testing.T, text string) *molecule.Molecule {
	t.Helper()
	res, err := notation.Parse(text)
	require.NoError(t, err)
	require.Len(t, res.Molecules, 1)
	return res.Molecules[0]
}

// primaryAlcohol is a carbon bearing OH, two non-carbons and one carbon or
// hydrogen.
func primaryAlcohol() Pattern {
	return Atom("C").As("carbon").Bonded(
		Atom("O").As("oxygen").Bonded(Atom("H").As("hydrogen")),
		Not("C"),
		Not("C"),
		Atom("C", "H"),
	)
}

func TestMatchMolecule_PrimaryAlcohol(t *testing.T) {
	p := primaryAlcohol()

	got := MatchMolecule(&p, parseOne(t, "CCO"), true)
	require.Len(t, got, 1)
	// C0 C1 O2, then implicit H: 3,4,5 on C0, 6,7 on C1, 8 on O2.
	assert.Equal(t, Bindings{"carbon": 1, "oxygen": 2, "hydrogen": 8}, got[0])

	assert.Empty(t, MatchMolecule(&p, parseOne(t, "CC(C)O"), true), "secondary alcohol")
}

func TestMatchMolecule_BondOrderAndMany(t *testing.T) {
	p := Atom("C").As("c").BondedBy(molecule.BondDouble, Atom("C"))
	m := parseOne(t, "C=CC")

	all := MatchMolecule(&p, m, true)
	require.Len(t, all, 2)
	assert.Equal(t, 0, all[0]["c"])
	assert.Equal(t, 1, all[1]["c"])

	first := MatchMolecule(&p, m, false)
	assert.Len(t, first, 1)

	single := Atom("C").BondedBy(molecule.BondTriple, Atom("C"))
	assert.False(t, Matches(&single, m))
}

func TestMatchAtoms_Backtracks(t *testing.T) {
	// The first neighbor would greedily take C2, leaving C0 for the second,
	// which has no oxygen.
	p := Atom("C").As("root").Bonded(
		Atom("C"),
		Atom("C").As("x").Bonded(Atom("O")),
	)
	got := MatchMolecule(&p, parseOne(t, "CCCO"), true)
	require.Len(t, got, 1)
	assert.Equal(t, Bindings{"root": 1, "x": 2}, got[0])
}

func TestMatchAtoms_DistinctBonds(t *testing.T) {
	water := Atom("O").Bonded(Atom("H"), Atom("H"))
	assert.True(t, Matches(&water, parseOne(t, "O")))
	assert.False(t, Matches(&water, parseOne(t, "CO")), "one hydrogen cannot be bound twice")
}

func TestMatchAtoms_VisitedIsNotModified(t *testing.T) {
	m := parseOne(t, "CO")
	p := Atom("C").Bonded(Atom("O"))
	visited := map[int]bool{1: true}

	_, ok := MatchAtoms(&p, m.Atom(0), m, visited)
	assert.False(t, ok, "visited atoms are never bound")
	assert.Equal(t, map[int]bool{1: true}, visited)

	_, ok = MatchAtoms(&p, m.Atom(0), m, nil)
	assert.True(t, ok)
}

func TestMatchAtom_Constraints(t *testing.T) {
	res, err := notation.Parse("[NH4+].[O-]")
	require.NoError(t, err)
	ammonium := res.Molecules[0].Atom(0)
	oxide := res.Molecules[1].Atom(1)

	anion := Atom("O").WithCharge(-1)
	assert.True(t, MatchAtom(&anion, oxide))
	neutral := Atom("O").WithCharge(0)
	assert.False(t, MatchAtom(&neutral, oxide))

	notN := Not("N")
	assert.True(t, MatchAtom(&notN, ammonium), "a multi-element group is not a single N")
	anyAtom := Pattern{}
	assert.True(t, MatchAtom(&anyAtom, ammonium))
	assert.False(t, MatchAtom(&anyAtom, nil))
}

func TestMatchMoleculeContext_Cancelled(t *testing.T) {
	p := Atom("C")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := MatchMoleculeContext(ctx, &p, parseOne(t, "CC"), true)
	assert.Empty(t, got)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMatchTimeout))

	got, err = MatchMoleculeContext(context.Background(), &p, parseOne(t, "CC"), true)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestPattern_YAML(t *testing.T) {
	src := `
atom: C
capture: carbon
bonded:
  - atom: O
    capture: oxygen
    bonded:
      - atom: H
        capture: hydrogen
  - not: C
  - not: C
  - atom: [C, H]
`
	var p Pattern
	require.NoError(t, yaml.Unmarshal([]byte(src), &p))
	require.NoError(t, p.Validate())
	assert.Equal(t, []string{"carbon", "oxygen", "hydrogen"}, p.Captures())

	want := primaryAlcohol()
	assert.Equal(t, want, p)

	var nitrile Pattern
	require.NoError(t, yaml.Unmarshal([]byte("atom: C\nbonded:\n  - atom: N\n    bond: \"#\"\n"), &nitrile))
	require.NotNil(t, nitrile.Neighbors[0].Bond)
	assert.Equal(t, molecule.BondTriple, *nitrile.Neighbors[0].Bond)
	assert.True(t, Matches(&nitrile, parseOne(t, "CC#N")))
}

func TestPattern_ValidateRejectsUnknownElements(t *testing.T) {
	p := Atom("C").Bonded(Atom("Xx"))
	assert.Error(t, p.Validate())

	var bad Pattern
	assert.Error(t, yaml.Unmarshal([]byte("atom: {a: 1}"), &bad))
}
