package notation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCharge(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"+", 1, true},
		{"--", -2, true},
		{"+3", 3, true},
		{"-12", -12, true},
		{"+-", 0, false},
		{"2+", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseCharge(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractBetween(t *testing.T) {
	inner, end, open := extractBetween("C(C(O)C)N", '(', ')', 1)
	assert.Equal(t, "C(O)C", inner)
	assert.Equal(t, 7, end)
	assert.Zero(t, open)

	_, _, open = extractBetween("C((C)", '(', ')', 1)
	assert.Equal(t, 1, open)
}

func TestExtractOrganic(t *testing.T) {
	tests := []struct {
		in       string
		sym      string
		aromatic bool
		n        int
		organic  bool
	}{
		{"Cl", "Cl", false, 2, true},
		{"Sc", "S", false, 1, true},
		{"c1", "C", true, 1, true},
		{"Na", "Na", false, 2, false},
		{"?", "", false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sym, arom, n, organic := extractOrganic(tt.in, 0, true)
			assert.Equal(t, tt.sym, sym)
			assert.Equal(t, tt.aromatic, arom)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.organic, organic)
		})
	}
}

func TestLexRingDigits(t *testing.T) {
	toks, end, err := lexRingDigits("C12%34C", 1)
	require.Nil(t, err)
	assert.Equal(t, 6, end)
	require.Len(t, toks, 3)
	assert.Equal(t, 34, toks[2].digit)
	assert.Equal(t, 3, toks[2].width)

	_, _, err = lexRingDigits("C%3", 1)
	require.NotNil(t, err)
	assert.Contains(t, err.message, "two digits")
}

func TestParseBracket(t *testing.T) {
	b, err := parseBracket("13CH4+", true)
	require.Nil(t, err)
	assert.Equal(t, 13, b.mass)
	require.Len(t, b.elements, 2)
	assert.Equal(t, "H", b.elements[1].Symbol)
	assert.Equal(t, 4, b.elements[1].Count)
	assert.Equal(t, 1, b.charge)

	b, err = parseBracket("nH", true)
	require.Nil(t, err)
	assert.True(t, b.aromatic)
	assert.Equal(t, "N", b.elements[0].Symbol)

	b, err = parseBracket("CH3.", true)
	require.Nil(t, err)
	assert.True(t, b.radical)

	_, err = parseBracket("Fe+x", true)
	require.NotNil(t, err)
	assert.Equal(t, 2, err.offset)

	_, err = parseBracket("", true)
	require.NotNil(t, err)
	assert.Contains(t, err.message, "expected element")
}
