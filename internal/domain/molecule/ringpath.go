package molecule

// maxRingPathSteps bounds the simple-path search per ring. Past it the
// longest path found so far is kept.
const maxRingPathSteps = 1 << 16

// ResolveRingMembers replaces each closed ring's candidate members with the
// longest simple path from Start to End that stays inside the candidates and
// does not use the closure bond itself. This is a heuristic: on fused or
// bridged systems the longest path can differ from the chemical ring.
func (m *Molecule) ResolveRingMembers() {
	adj := m.adjacency()
	for _, r := range m.Rings {
		if !r.Closed {
			continue
		}
		allowed := make(map[int]bool, len(r.Members)+2)
		for _, id := range r.Members {
			allowed[id] = true
		}
		allowed[r.Start] = true
		allowed[r.End] = true
		if path := longestPath(adj, allowed, r.Start, r.End); path != nil {
			r.Members = path
		} else {
			r.Members = []int{r.Start, r.End}
		}
	}
}

func longestPath(adj map[int][]int, allowed map[int]bool, start, end int) []int {
	var best []int
	steps := 0
	onPath := map[int]bool{start: true}
	path := []int{start}

	var walk func(at int)
	walk = func(at int) {
		if steps >= maxRingPathSteps {
			return
		}
		steps++
		for _, next := range adj[at] {
			if !allowed[next] || onPath[next] {
				continue
			}
			if next == end {
				// The direct closure bond is not a path through the ring.
				if at == start {
					continue
				}
				if len(path)+1 > len(best) {
					best = append(append([]int(nil), path...), end)
				}
				continue
			}
			onPath[next] = true
			path = append(path, next)
			walk(next)
			path = path[:len(path)-1]
			delete(onPath, next)
		}
	}
	walk(start)
	return best
}
