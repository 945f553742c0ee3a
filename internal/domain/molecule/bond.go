package molecule

import "fmt"

// BondOrder is the multiplicity of a bond. The zero value means "unset" and
// is used by patterns and rings to leave the order open.
type BondOrder int

const (
	BondUnset BondOrder = iota
	BondSingle
	BondDouble
	BondTriple
	BondAromatic
)

// ParseBondOrder maps a bond symbol onto its order.
func ParseBondOrder(symbol byte) (BondOrder, bool) {
	switch symbol {
	case '-':
		return BondSingle, true
	case '=':
		return BondDouble, true
	case '#':
		return BondTriple, true
	case ':':
		return BondAromatic, true
	}
	return BondUnset, false
}

// IsBondSymbol reports whether c is one of "- = # :".
func IsBondSymbol(c byte) bool {
	_, ok := ParseBondOrder(c)
	return ok
}

// Symbol returns the notation symbol of the order.
func (o BondOrder) Symbol() string {
	switch o {
	case BondSingle:
		return "-"
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondAromatic:
		return ":"
	}
	return ""
}

// Halves returns the order counted in half bonds, so that aromatic bonds
// (1.5) stay exact in valence sums.
func (o BondOrder) Halves() int {
	switch o {
	case BondSingle:
		return 2
	case BondDouble:
		return 4
	case BondTriple:
		return 6
	case BondAromatic:
		return 3
	}
	return 0
}

// Value returns the order as counted toward valence.
func (o BondOrder) Value() float64 {
	return float64(o.Halves()) / 2
}

func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondAromatic:
		return "aromatic"
	}
	return "unset"
}

// MarshalText encodes the order by its symbol.
func (o BondOrder) MarshalText() ([]byte, error) {
	return []byte(o.Symbol()), nil
}

// UnmarshalText accepts a bond symbol or the order's name.
func (o *BondOrder) UnmarshalText(text []byte) error {
	s := string(text)
	if len(s) == 1 {
		if b, ok := ParseBondOrder(s[0]); ok {
			*o = b
			return nil
		}
	}
	for _, b := range []BondOrder{BondSingle, BondDouble, BondTriple, BondAromatic} {
		if b.String() == s {
			*o = b
			return nil
		}
	}
	return fmt.Errorf("unknown bond order %q", s)
}

// Bond is a half-bond. It is owned by exactly one of its two atoms; Dest is
// the other end.
type Bond struct {
	Order BondOrder
	Dest  int
	// Position is the offset of the explicit bond symbol in the source text,
	// or -1 for implied bonds.
	Position int
}
