// Package molecule is the molecular graph model shared by the notation parser,
// the pattern matcher, the formula generators and the reaction engine.
//
// A Molecule owns a set of Atoms keyed by identifier. Bonds are stored exactly
// once, as a half-bond on the atom that was created first; the reverse view
// ("every bond incident to X") is derived on demand by AllBondsOf. Keeping a
// single stored relation means no mutation can leave the two directions out
// of sync.
//
// Identifiers come from an IDAllocator scoped to one parse or reaction
// session. Molecules produced by the same session share the allocator, so
// atoms created later by a reaction never collide with parsed ones.
//
// Nothing here is synchronized: a Molecule has a single writer.
package molecule

import (
	"slices"
	"strings"
)

// ─────────────────────────────────────────────────────────────────────────────
// Identifier allocation
// ─────────────────────────────────────────────────────────────────────────────

// IDAllocator hands out monotonically increasing atom identifiers for one
// session.
type IDAllocator struct {
	next int
}

// NewIDAllocator returns an allocator starting at zero.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next returns a fresh identifier.
func (a *IDAllocator) Next() int {
	id := a.next
	a.next++
	return id
}

// Peek returns the identifier Next would return without consuming it.
func (a *IDAllocator) Peek() int {
	return a.next
}

// ─────────────────────────────────────────────────────────────────────────────
// Role
// ─────────────────────────────────────────────────────────────────────────────

// Role tags a molecule's place in reaction notation.
type Role int

const (
	RoleGeneric Role = iota
	RoleReactant
	RoleReagent
	RoleProduct
)

func (r Role) String() string {
	switch r {
	case RoleReactant:
		return "reactant"
	case RoleReagent:
		return "reagent"
	case RoleProduct:
		return "product"
	}
	return "generic"
}

// MarshalText encodes the role by name.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Molecule
// ─────────────────────────────────────────────────────────────────────────────

// Molecule is a connected (or, mid-reaction, temporarily disconnected) set of
// atoms together with the rings fully contained in it.
type Molecule struct {
	atoms map[int]*Atom
	Rings []*Ring
	Role  Role
	ids   *IDAllocator
}

// New returns an empty molecule drawing identifiers from ids. A nil ids gets
// a private allocator.
func New(ids *IDAllocator) *Molecule {
	if ids == nil {
		ids = NewIDAllocator()
	}
	return &Molecule{atoms: make(map[int]*Atom), ids: ids}
}

// Allocator returns the session allocator.
func (m *Molecule) Allocator() *IDAllocator {
	return m.ids
}

// NewAtom allocates an atom of one element and adds it to m.
func (m *Molecule) NewAtom(symbol string) *Atom {
	a := &Atom{ID: m.ids.Next()}
	a.SetElement(symbol)
	m.atoms[a.ID] = a
	return a
}

// Add inserts an atom whose identifier was allocated by the caller. It
// returns false if the identifier is taken.
func (m *Molecule) Add(a *Atom) bool {
	if _, ok := m.atoms[a.ID]; ok {
		return false
	}
	m.atoms[a.ID] = a
	return true
}

// Atom returns the atom with id, or nil.
func (m *Molecule) Atom(id int) *Atom {
	return m.atoms[id]
}

// Has reports whether id belongs to m.
func (m *Molecule) Has(id int) bool {
	_, ok := m.atoms[id]
	return ok
}

// Len returns the number of atoms.
func (m *Molecule) Len() int {
	return len(m.atoms)
}

// IDs returns the atom identifiers in ascending order.
func (m *Molecule) IDs() []int {
	ids := make([]int, 0, len(m.atoms))
	for id := range m.atoms {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Atoms returns the atoms in ascending identifier order.
func (m *Molecule) Atoms() []*Atom {
	ids := m.IDs()
	out := make([]*Atom, len(ids))
	for i, id := range ids {
		out[i] = m.atoms[id]
	}
	return out
}

// Root returns the lowest-identifier atom, or nil for an empty molecule.
func (m *Molecule) Root() *Atom {
	root := -1
	for id := range m.atoms {
		if root == -1 || id < root {
			root = id
		}
	}
	if root == -1 {
		return nil
	}
	return m.atoms[root]
}

// ─────────────────────────────────────────────────────────────────────────────
// Bond queries and primitives
// ─────────────────────────────────────────────────────────────────────────────

// AddBond bonds from to to with the half-bond owned by from. It returns false
// on a self-bond, an unknown atom, or when either direction already exists.
func (m *Molecule) AddBond(from int, order BondOrder, to int) bool {
	a, b := m.atoms[from], m.atoms[to]
	if a == nil || b == nil || from == to {
		return false
	}
	if b.BondTo(from) != -1 {
		return false
	}
	return a.AddBond(order, b)
}

// BondBetween returns the bond joining a and b, seen from a, and whether it
// exists.
func (m *Molecule) BondBetween(a, b int) (Bond, bool) {
	if x := m.atoms[a]; x != nil {
		if i := x.BondTo(b); i != -1 {
			return x.Bonds[i], true
		}
	}
	if y := m.atoms[b]; y != nil {
		if i := y.BondTo(a); i != -1 {
			bond := y.Bonds[i]
			bond.Dest = b
			return bond, true
		}
	}
	return Bond{}, false
}

// SetBondOrder changes the order of an existing bond in either direction.
func (m *Molecule) SetBondOrder(a, b int, order BondOrder) bool {
	if x := m.atoms[a]; x != nil {
		if i := x.BondTo(b); i != -1 {
			x.Bonds[i].Order = order
			return true
		}
	}
	if y := m.atoms[b]; y != nil {
		if i := y.BondTo(a); i != -1 {
			y.Bonds[i].Order = order
			return true
		}
	}
	return false
}

// AllBondsOf returns every bond incident to id: its own half-bonds first, in
// insertion order, then the half-bonds other atoms own towards it (reversed
// so Dest is the other atom), by ascending owner identifier.
func (m *Molecule) AllBondsOf(id int) []Bond {
	a := m.atoms[id]
	if a == nil {
		return nil
	}
	out := append([]Bond(nil), a.Bonds...)
	for _, other := range m.Atoms() {
		if other.ID == id {
			continue
		}
		if i := other.BondTo(id); i != -1 {
			b := other.Bonds[i]
			b.Dest = other.ID
			out = append(out, b)
		}
	}
	return out
}

// Neighbors returns the identifiers bonded to id, in AllBondsOf order.
func (m *Molecule) Neighbors(id int) []int {
	bonds := m.AllBondsOf(id)
	out := make([]int, len(bonds))
	for i, b := range bonds {
		out[i] = b.Dest
	}
	return out
}

// Degree returns the number of bonds incident to id.
func (m *Molecule) Degree(id int) int {
	return len(m.AllBondsOf(id))
}

// SeverBond removes the bond between a and b. A ring whose closure bond is
// severed stops being a ring.
func (m *Molecule) SeverBond(a, b int) bool {
	removed := false
	if x := m.atoms[a]; x != nil {
		if i := x.BondTo(b); i != -1 {
			x.Bonds = slices.Delete(x.Bonds, i, i+1)
			removed = true
		}
	}
	if !removed {
		if y := m.atoms[b]; y != nil {
			if i := y.BondTo(a); i != -1 {
				y.Bonds = slices.Delete(y.Bonds, i, i+1)
				removed = true
			}
		}
	}
	if removed {
		m.Rings = slices.DeleteFunc(m.Rings, func(r *Ring) bool {
			if !r.Joins(a, b) {
				return false
			}
			m.dropDigit(r.Start, r.Digit)
			m.dropDigit(r.End, r.Digit)
			return true
		})
	}
	return removed
}

// IsClosureBond reports whether the bond a-b was materialized from a ring
// closure.
func (m *Molecule) IsClosureBond(a, b int) bool {
	for _, r := range m.Rings {
		if r.Joins(a, b) {
			return true
		}
	}
	return false
}

// RingsAt returns the closed rings that start or end at id, in ring order.
func (m *Molecule) RingsAt(id int) []*Ring {
	var out []*Ring
	for _, r := range m.Rings {
		if r.Closed && r.Touches(id) {
			out = append(out, r)
		}
	}
	return out
}

func (m *Molecule) dropDigit(id, digit int) {
	a := m.atoms[id]
	if a == nil {
		return
	}
	if i := slices.Index(a.RingDigits, digit); i != -1 {
		a.RingDigits = slices.Delete(a.RingDigits, i, i+1)
	}
}

// Dump renders one line per atom with its outgoing bonds, for diagnostics.
func (m *Molecule) Dump() string {
	var sb strings.Builder
	for _, a := range m.Atoms() {
		sb.WriteString(a.String())
		for _, b := range a.Bonds {
			sb.WriteString(" ")
			sb.WriteString(b.Order.Symbol())
			sb.WriteString(m.atoms[b.Dest].String())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
