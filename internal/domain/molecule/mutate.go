package molecule

import "slices"

// RemoveAtom deletes id together with every bond incident to it. Rings that
// start or end at id are dropped; other rings forget it as a member.
func (m *Molecule) RemoveAtom(id int) bool {
	if _, ok := m.atoms[id]; !ok {
		return false
	}
	delete(m.atoms, id)
	for _, a := range m.atoms {
		if i := a.BondTo(id); i != -1 {
			a.Bonds = slices.Delete(a.Bonds, i, i+1)
		}
	}
	m.Rings = slices.DeleteFunc(m.Rings, func(r *Ring) bool {
		if r.Touches(id) {
			m.dropDigit(r.Start, r.Digit)
			m.dropDigit(r.End, r.Digit)
			return true
		}
		r.Members = slices.DeleteFunc(r.Members, func(x int) bool { return x == id })
		return false
	})
	return true
}

// Reachable returns the set of atoms connected to start, start included.
func (m *Molecule) Reachable(start int) map[int]bool {
	seen := make(map[int]bool)
	if !m.Has(start) {
		return seen
	}
	adj := m.adjacency()
	stack := []int{start}
	seen[start] = true
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, n := range adj[id] {
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return seen
}

// RemoveUnbondedGroups deletes every atom not reachable from start and
// returns the removed identifiers in ascending order.
func (m *Molecule) RemoveUnbondedGroups(start int) []int {
	keep := m.Reachable(start)
	var removed []int
	for _, id := range m.IDs() {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		m.RemoveAtom(id)
	}
	return removed
}

// Fragments returns the connected components as identifier lists. Components
// are ordered by their lowest identifier and each list is ascending.
func (m *Molecule) Fragments() [][]int {
	assigned := make(map[int]bool, len(m.atoms))
	var out [][]int
	for _, id := range m.IDs() {
		if assigned[id] {
			continue
		}
		var frag []int
		for n := range m.Reachable(id) {
			assigned[n] = true
			frag = append(frag, n)
		}
		slices.Sort(frag)
		out = append(out, frag)
	}
	return out
}

// SplitOff moves every atom unreachable from anchor into a new molecule of
// the same role and session, and returns it. It returns nil when everything
// is reachable. Rings follow their opening atom.
func (m *Molecule) SplitOff(anchor int) *Molecule {
	keep := m.Reachable(anchor)
	if len(keep) == len(m.atoms) || len(keep) == 0 {
		return nil
	}
	out := New(m.ids)
	out.Role = m.Role
	for id, a := range m.atoms {
		if !keep[id] {
			out.atoms[id] = a
			delete(m.atoms, id)
		}
	}
	var stay []*Ring
	for _, r := range m.Rings {
		if keep[r.Start] {
			stay = append(stay, r)
		} else {
			out.Rings = append(out.Rings, r)
		}
	}
	m.Rings = stay
	return out
}

// Merge moves every atom and ring of other into m and empties other. Atoms
// keep their identifiers only when other shares m's allocator and none of
// them is already in m; otherwise all of them are given fresh identifiers
// from m's allocator. The returned map translates old identifiers to new ones.
func (m *Molecule) Merge(other *Molecule) map[int]int {
	mapping := make(map[int]int, len(other.atoms))
	keep := other.ids == m.ids
	for id := range other.atoms {
		if m.Has(id) {
			keep = false
			break
		}
	}
	for _, id := range other.IDs() {
		if keep {
			mapping[id] = id
		} else {
			mapping[id] = m.ids.Next()
		}
	}
	for _, id := range other.IDs() {
		a := other.atoms[id]
		a.ID = mapping[id]
		for i := range a.Bonds {
			a.Bonds[i].Dest = mapping[a.Bonds[i].Dest]
		}
		m.atoms[a.ID] = a
	}
	for _, r := range other.Rings {
		r.Start = mapping[r.Start]
		if r.Closed {
			r.End = mapping[r.End]
		}
		for i, x := range r.Members {
			r.Members[i] = mapping[x]
		}
		m.Rings = append(m.Rings, r)
	}
	other.atoms = make(map[int]*Atom)
	other.Rings = nil
	return mapping
}

// Clone returns a deep copy with the same identifiers and allocator.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{atoms: make(map[int]*Atom, len(m.atoms)), Role: m.Role, ids: m.ids}
	for id, a := range m.atoms {
		c.atoms[id] = a.clone()
	}
	for _, r := range m.Rings {
		c.Rings = append(c.Rings, r.clone())
	}
	return c
}

func (m *Molecule) adjacency() map[int][]int {
	adj := make(map[int][]int, len(m.atoms))
	for id, a := range m.atoms {
		for _, b := range a.Bonds {
			if _, ok := m.atoms[b.Dest]; !ok {
				continue
			}
			adj[id] = append(adj[id], b.Dest)
			adj[b.Dest] = append(adj[b.Dest], id)
		}
	}
	return adj
}
