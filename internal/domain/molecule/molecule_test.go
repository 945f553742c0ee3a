package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain builds a linear molecule of the given symbols joined by single bonds.
func chain(symbols ...string) *Molecule {
	m := New(nil)
	var prev *Atom
	for _, s := range symbols {
		a := m.NewAtom(s)
		if prev != nil {
			m.AddBond(prev.ID, BondSingle, a.ID)
		}
		prev = a
	}
	return m
}

func TestIDAllocator_Monotonic(t *testing.T) {
	ids := NewIDAllocator()
	assert.Equal(t, 0, ids.Next())
	assert.Equal(t, 1, ids.Next())
	assert.Equal(t, 2, ids.Peek())
}

func TestAddBond_RejectsDuplicatesAndSelfBonds(t *testing.T) {
	m := chain("C", "C")

	assert.False(t, m.AddBond(0, BondSingle, 1), "same direction")
	assert.False(t, m.AddBond(1, BondDouble, 0), "reverse direction")
	assert.False(t, m.AddBond(0, BondSingle, 0), "self bond")
	assert.False(t, m.AddBond(0, BondSingle, 42), "unknown atom")

	assert.Len(t, m.Atom(0).Bonds, 1)
	assert.Empty(t, m.Atom(1).Bonds)
}

func TestAllBondsOf_UnionOfOwnedAndIncoming(t *testing.T) {
	m := chain("C", "C", "O")

	bonds := m.AllBondsOf(1)
	require.Len(t, bonds, 2)
	assert.Equal(t, 2, bonds[0].Dest, "owned half-bonds come first")
	assert.Equal(t, 0, bonds[1].Dest, "incoming half-bond is reversed")
	assert.Equal(t, []int{1}, m.Neighbors(0))
	assert.Nil(t, m.AllBondsOf(99))
}

func TestBondBetweenAndSetBondOrder(t *testing.T) {
	m := chain("C", "C")

	b, ok := m.BondBetween(1, 0)
	require.True(t, ok)
	assert.Equal(t, 0, b.Dest)
	assert.Equal(t, BondSingle, b.Order)

	require.True(t, m.SetBondOrder(1, 0, BondDouble))
	b, _ = m.BondBetween(0, 1)
	assert.Equal(t, BondDouble, b.Order)
	assert.False(t, m.SetBondOrder(0, 5, BondDouble))
}

func TestSeverBond(t *testing.T) {
	m := chain("C", "C", "C")

	assert.True(t, m.SeverBond(2, 1), "severs regardless of ownership")
	assert.False(t, m.SeverBond(1, 2), "already gone")
	_, ok := m.BondBetween(1, 2)
	assert.False(t, ok)
}

func TestRemoveUnbondedGroups(t *testing.T) {
	m := chain("C", "C", "O", "H")
	require.True(t, m.SeverBond(1, 2))

	removed := m.RemoveUnbondedGroups(0)
	assert.Equal(t, []int{2, 3}, removed)
	assert.Equal(t, []int{0, 1}, m.IDs())
}

func TestSplitOffAndFragments(t *testing.T) {
	m := chain("C", "C", "O", "H")
	m.Role = RoleReactant
	require.True(t, m.SeverBond(1, 2))

	assert.Equal(t, [][]int{{0, 1}, {2, 3}}, m.Fragments())

	rest := m.SplitOff(0)
	require.NotNil(t, rest)
	assert.Equal(t, []int{0, 1}, m.IDs())
	assert.Equal(t, []int{2, 3}, rest.IDs())
	assert.Equal(t, RoleReactant, rest.Role)
	assert.Same(t, m.Allocator(), rest.Allocator())

	assert.Nil(t, m.SplitOff(0), "nothing left to split")
}

func TestMerge_ReidentifiesForeignAtoms(t *testing.T) {
	m := chain("C", "C")
	other := chain("O", "H")

	mapping := m.Merge(other)
	assert.Equal(t, map[int]int{0: 2, 1: 3}, mapping)
	assert.Equal(t, 0, other.Len(), "ownership transfers")
	assert.Equal(t, []int{0, 1, 2, 3}, m.IDs())

	b, ok := m.BondBetween(2, 3)
	require.True(t, ok)
	assert.Equal(t, BondSingle, b.Order)
	assert.True(t, m.Atom(2).IsElement("O"))
	assert.Equal(t, 4, m.Allocator().Peek())
}

func TestMerge_SameSession(t *testing.T) {
	t.Run("disjoint atoms keep their identifiers", func(t *testing.T) {
		m := chain("C", "C", "O", "H")
		require.True(t, m.SeverBond(1, 2))
		rest := m.SplitOff(0)
		require.NotNil(t, rest)

		mapping := m.Merge(rest)
		assert.Equal(t, map[int]int{2: 2, 3: 3}, mapping)
		assert.Equal(t, []int{0, 1, 2, 3}, m.IDs())
		assert.Equal(t, 4, m.Allocator().Peek())
	})

	t.Run("overlapping atoms are given fresh identifiers", func(t *testing.T) {
		m := chain("C", "O")
		twin := m.Clone()
		require.Same(t, m.Allocator(), twin.Allocator())

		mapping := m.Merge(twin)
		assert.Equal(t, map[int]int{0: 2, 1: 3}, mapping)
		assert.Equal(t, 4, m.Len())
		assert.Equal(t, []int{0, 1, 2, 3}, m.IDs())

		b, ok := m.BondBetween(2, 3)
		require.True(t, ok)
		assert.Equal(t, BondSingle, b.Order)
		assert.True(t, m.Atom(3).IsElement("O"))
		_, ok = m.BondBetween(1, 2)
		assert.False(t, ok)
		assert.Len(t, m.Fragments(), 2)
	})
}

func TestRemoveAtom_DropsIncidentBondsAndRings(t *testing.T) {
	m := chain("C", "C", "C")
	require.True(t, m.AddBond(0, BondSingle, 2))
	m.Rings = []*Ring{{Digit: 1, Start: 0, End: 2, Closed: true, Members: []int{0, 1, 2}}}
	m.Atom(0).RingDigits = []int{1}

	require.True(t, m.RemoveAtom(2))
	assert.Empty(t, m.Rings)
	assert.Empty(t, m.Atom(0).RingDigits)
	assert.Len(t, m.AllBondsOf(0), 1)
	assert.False(t, m.RemoveAtom(2))
}

func TestClone_IsIndependent(t *testing.T) {
	m := chain("C", "O")
	c := m.Clone()

	c.SetBondOrder(0, 1, BondDouble)
	c.Atom(0).Charge = 1

	b, _ := m.BondBetween(0, 1)
	assert.Equal(t, BondSingle, b.Order)
	assert.Zero(t, m.Atom(0).Charge)
}

func TestAddImplicitHydrogens(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Molecule
		wantH   int
		checkOK bool
	}{
		{"ethane", func() *Molecule { return chain("C", "C") }, 6, true},
		{"methanol", func() *Molecule { return chain("C", "O") }, 4, true},
		{"nitrogen takes lowest valence", func() *Molecule { return chain("N") }, 3, true},
		{"charged atoms are skipped", func() *Molecule {
			m := chain("N")
			m.Atom(0).Charge = 1
			return m
		}, 0, true},
		{"over-bonded oxygen gets nothing", func() *Molecule {
			m := chain("O", "C")
			c := m.NewAtom("C")
			c2 := m.NewAtom("C")
			m.AddBond(0, BondSingle, c.ID)
			m.AddBond(0, BondSingle, c2.ID)
			return m
		}, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.build()
			added := m.AddImplicitHydrogens()
			assert.Len(t, added, tt.wantH)
			for _, id := range added {
				assert.True(t, m.Atom(id).Implicit)
			}
			if tt.checkOK {
				assert.Nil(t, m.CheckValence())
			} else {
				v := m.CheckValence()
				require.NotNil(t, v)
				assert.Equal(t, 0, v.Atom.ID)
				assert.Equal(t, 3.0, v.Actual)
				assert.Contains(t, v.Error(), "expected 2")
			}
		})
	}
}

func TestValence_AromaticCountsOneAndAHalf(t *testing.T) {
	m := New(nil)
	var ring []*Atom
	for i := 0; i < 6; i++ {
		a := m.NewAtom("C")
		a.Aromatic = true
		ring = append(ring, a)
	}
	for i := 0; i < 6; i++ {
		m.AddBond(ring[i].ID, BondAromatic, ring[(i+1)%6].ID)
	}
	assert.Equal(t, 3.0, m.Valence(0))

	m.AddImplicitHydrogens()
	assert.Equal(t, 12, m.Len(), "one hydrogen per aromatic carbon")
	assert.Nil(t, m.CheckValence())
	assert.Equal(t, 1, m.ImplicitHydrogenCount(0))
}

func TestResolveRingMembers_LongestPath(t *testing.T) {
	// Cyclohexane with a methyl branch: 0-1-2-3-4-5, closure 0-5, branch 2-6.
	m := chain("C", "C", "C", "C", "C", "C")
	b := m.NewAtom("C")
	m.AddBond(2, BondSingle, b.ID)
	require.True(t, m.AddBond(0, BondSingle, 5))
	r := &Ring{Digit: 1, Start: 0, End: 5, Closed: true, Members: []int{0, 1, 2, 6, 3, 4, 5}}
	m.Rings = []*Ring{r}

	m.ResolveRingMembers()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, r.Members)
	assert.True(t, m.IsClosureBond(5, 0))
	assert.Len(t, m.RingsAt(5), 1)
}

func TestBondOrder_Text(t *testing.T) {
	var o BondOrder
	require.NoError(t, o.UnmarshalText([]byte("=")))
	assert.Equal(t, BondDouble, o)
	require.NoError(t, o.UnmarshalText([]byte("aromatic")))
	assert.Equal(t, BondAromatic, o)
	assert.Error(t, o.UnmarshalText([]byte("quadruple")))
	assert.Equal(t, 1.5, BondAromatic.Value())
}

func TestAtom_Predicates(t *testing.T) {
	a := &Atom{ID: 3}
	a.AddElement("N", 1)
	a.AddElement("H", 4)
	a.Charge = 1

	assert.Equal(t, "NH4", a.ElementString())
	assert.Equal(t, "", a.Symbol())
	assert.False(t, a.IsElement("N"))
	assert.False(t, a.InOrganicSubset())
	assert.True(t, a.MatchesCharge(1))
	assert.Equal(t, "NH4+#3", a.String())

	assert.Equal(t, "-2", ChargeString(-2))
	assert.Equal(t, "+3", ChargeString(3))
	assert.Equal(t, "", ChargeString(0))
}

func TestElements(t *testing.T) {
	e, ok := LookupElement("Cl")
	require.True(t, ok)
	assert.Equal(t, 17, e.Number)
	assert.True(t, IsOrganic("Br"))
	assert.False(t, IsOrganic("Na"))
	assert.Equal(t, []int{2, 4, 6}, Valences("S"))

	sym, ok := AromaticElement("c")
	assert.True(t, ok)
	assert.Equal(t, "C", sym)
	low, ok := AromaticSpelling("N")
	assert.True(t, ok)
	assert.Equal(t, "n", low)
	_, ok = AromaticSpelling("Cl")
	assert.False(t, ok)
}
