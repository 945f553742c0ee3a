package molecule

// Ring records one ring closure. While the ring is open Members collects every
// atom read in the meantime; ResolveRingMembers later replaces it with the
// ring's path from Start to End.
type Ring struct {
	Digit  int
	Start  int
	End    int
	Closed bool
	// Members is the ordered membership path once resolved.
	Members []int
	// Aromatic is set when the ':' symbol was used while the ring was open.
	Aromatic bool
	// Order is an explicit closure order written before the digit, e.g. the
	// '=' in C=1CCCCC1.
	Order BondOrder
	// Position is the offset of the opening digit token.
	Position int
}

// ClosureOrder is the order of the bond materialized between Start and End.
func (r *Ring) ClosureOrder() BondOrder {
	switch {
	case r.Order != BondUnset:
		return r.Order
	case r.Aromatic:
		return BondAromatic
	default:
		return BondSingle
	}
}

// Joins reports whether the ring's closure bond connects a and b.
func (r *Ring) Joins(a, b int) bool {
	return r.Closed && ((r.Start == a && r.End == b) || (r.Start == b && r.End == a))
}

// Touches reports whether id is one of the ring's endpoints.
func (r *Ring) Touches(id int) bool {
	return r.Start == id || (r.Closed && r.End == id)
}

// Contains reports whether id is in Members.
func (r *Ring) Contains(id int) bool {
	for _, m := range r.Members {
		if m == id {
			return true
		}
	}
	return false
}

func (r *Ring) clone() *Ring {
	c := *r
	c.Members = append([]int(nil), r.Members...)
	return &c
}
