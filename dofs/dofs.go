// Package dofs distributes the scalar unknowns of a finite element field
// across the ranks of a process group. Each DOF has exactly one owning rank;
// a rank additionally sees read-only "ghost" copies of the DOFs its elements
// touch but does not own.
package dofs

import (
	"fmt"
	"sort"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/mesh"
)

// Partition is the immutable product of Distribute: global DOF numbering,
// element connectivity in DOF terms, and one Layout per rank. Constructed
// once at setup and shared read-only by all worker goroutines.
type Partition struct {
	NParts      int
	NDofs       int
	DofsPerElem int
	Degree      int
	ElemDofs    [][]int       // element -> global dof ids
	Coords      [][3]float64  // dof support points (vertices, then edge midpoints)
	OwnedElems  [][]int       // rank -> locally owned element ids
	Layouts     []*Layout
}

// Layout is one rank's view of the DOF distribution. Ranks own contiguous
// global ranges, in rank order, so the concatenation of owned slices in rank
// order is the global vector.
type Layout struct {
	RankID     int
	Begin, End int   // owned global range [Begin, End)
	Starts     []int // rank r owns [Starts[r], Starts[r+1]); len NParts+1
	Ghosts     []int // sorted global ids of ghost dofs

	ghostPos map[int]int
	// PushDofs[r] lists this rank's owned dofs that are ghosts on rank r,
	// the scatter plan for ghost refreshes.
	PushDofs [][]int
}

func (l *Layout) NumOwned() int  { return l.End - l.Begin }
func (l *Layout) NumGlobal() int { return l.Starts[len(l.Starts)-1] }

func (l *Layout) IsOwned(g int) bool { return g >= l.Begin && g < l.End }

// Owner returns the rank owning global dof g.
func (l *Layout) Owner(g int) int {
	r := sort.SearchInts(l.Starts, g+1) - 1
	if r < 0 || r >= len(l.Starts)-1 {
		panic(fmt.Sprintf("dof %d outside global range [0,%d)", g, l.NumGlobal()))
	}
	return r
}

// Index classifies a global dof as locally owned or ghost and returns the
// local slot. A dof that is neither indicates an inconsistent partition,
// which must never happen for a valid one; there is no recovery.
func (l *Layout) Index(g int) (local int, ghost bool) {
	if l.IsOwned(g) {
		return g - l.Begin, false
	}
	if p, ok := l.ghostPos[g]; ok {
		return p, true
	}
	panic(fmt.Sprintf(
		"dof %d is neither owned nor ghost on rank %d: inconsistent partition", g, l.RankID))
}

// GhostSlot returns the ghost slot of g, or -1 when g is not a ghost here.
func (l *Layout) GhostSlot(g int) int {
	if p, ok := l.ghostPos[g]; ok {
		return p
	}
	return -1
}

// Distribute numbers the DOFs of the mesh for the given polynomial degree
// (1: vertices, 2: vertices and edge midpoints), assigns every DOF to the
// lowest rank whose elements touch it, renumbers so each rank owns one
// contiguous range, and derives the per-rank ghost sets and exchange plans.
func Distribute(m *mesh.Mesh, degree int, epart []int, nparts int) (*Partition, error) {
	if degree != 1 && degree != 2 {
		return nil, fmt.Errorf("unsupported polynomial degree %d, have 1 and 2", degree)
	}
	if len(epart) != m.NumElements() {
		return nil, fmt.Errorf("partition covers %d elements, mesh has %d",
			len(epart), m.NumElements())
	}
	for k, p := range epart {
		if p < 0 || p >= nparts {
			return nil, fmt.Errorf("element %d assigned to rank %d of %d", k, p, nparts)
		}
	}

	// Element connectivity in original dof numbering
	nVerts := m.NumVerts()
	nOld := nVerts
	dpe := 4
	if degree == 2 {
		m.BuildEdges()
		nOld += len(m.Edges)
		dpe = 10
	}
	oldDofs := make([][]int, m.NumElements())
	for k, ev := range m.EToV {
		ed := make([]int, 0, dpe)
		ed = append(ed, ev[0], ev[1], ev[2], ev[3])
		if degree == 2 {
			for _, eid := range m.EToE[k] {
				ed = append(ed, nVerts+eid)
			}
		}
		oldDofs[k] = ed
	}

	// Ownership: lowest touching rank
	owner := make([]int, nOld)
	for d := range owner {
		owner[d] = nparts
	}
	for k, ed := range oldDofs {
		r := epart[k]
		for _, d := range ed {
			if r < owner[d] {
				owner[d] = r
			}
		}
	}
	for d, r := range owner {
		if r == nparts {
			return nil, fmt.Errorf("dof %d is not touched by any element", d)
		}
	}

	// Renumber so each rank owns a contiguous range, preserving relative
	// order of dofs within a rank
	starts := make([]int, nparts+1)
	for _, r := range owner {
		starts[r+1]++
	}
	for r := 0; r < nparts; r++ {
		starts[r+1] += starts[r]
	}
	next := make([]int, nparts)
	copy(next, starts[:nparts])
	perm := make([]int, nOld)
	for d, r := range owner {
		perm[d] = next[r]
		next[r]++
	}

	p := &Partition{
		NParts:      nparts,
		NDofs:       nOld,
		DofsPerElem: dpe,
		Degree:      degree,
		ElemDofs:    make([][]int, m.NumElements()),
		Coords:      make([][3]float64, nOld),
		OwnedElems:  make([][]int, nparts),
		Layouts:     make([]*Layout, nparts),
	}
	for k, ed := range oldDofs {
		nd := make([]int, len(ed))
		for i, d := range ed {
			nd[i] = perm[d]
		}
		p.ElemDofs[k] = nd
		p.OwnedElems[epart[k]] = append(p.OwnedElems[epart[k]], k)
	}
	for v := 0; v < nVerts; v++ {
		p.Coords[perm[v]] = m.Verts[v]
	}
	if degree == 2 {
		for e, pair := range m.Edges {
			a, b := m.Verts[pair[0]], m.Verts[pair[1]]
			var mid [3]float64
			for d := 0; d < 3; d++ {
				mid[d] = 0.5 * (a[d] + b[d])
			}
			p.Coords[perm[nVerts+e]] = mid
		}
	}

	for r := 0; r < nparts; r++ {
		p.Layouts[r] = &Layout{
			RankID:   r,
			Begin:    starts[r],
			End:      starts[r+1],
			Starts:   starts,
			ghostPos: make(map[int]int),
			PushDofs: make([][]int, nparts),
		}
	}
	// Ghost sets: a rank is relevant to every element that touches one of
	// its owned dofs, not just the elements it owns. Assembled matrix rows
	// on the subdomain boundary couple to dofs of such neighbor elements,
	// so those dofs must be readable during matrix-vector products.
	seen := make([]map[int]bool, nparts)
	for r := range seen {
		seen[r] = make(map[int]bool)
	}
	touches := make([]int, 0, dpe)
	for k, ed := range p.ElemDofs {
		// the element's owner assembles on it and reads every dof, even
		// when lowest-touching-rank ownership gave it none of them
		touches = touches[:0]
		touches = append(touches, epart[k])
		for _, g := range ed {
			r := p.Layouts[0].Owner(g)
			found := false
			for _, t := range touches {
				if t == r {
					found = true
					break
				}
			}
			if !found {
				touches = append(touches, r)
			}
		}
		for _, r := range touches {
			lay := p.Layouts[r]
			for _, g := range ed {
				if !lay.IsOwned(g) && !seen[r][g] {
					seen[r][g] = true
					lay.Ghosts = append(lay.Ghosts, g)
				}
			}
		}
	}
	for r := 0; r < nparts; r++ {
		lay := p.Layouts[r]
		sort.Ints(lay.Ghosts)
		for i, g := range lay.Ghosts {
			lay.ghostPos[g] = i
		}
	}
	// Push plans: owners learn which of their dofs are ghosted where
	for r := 0; r < nparts; r++ {
		for _, g := range p.Layouts[r].Ghosts {
			o := p.Layouts[r].Owner(g)
			p.Layouts[o].PushDofs[r] = append(p.Layouts[o].PushDofs[r], g)
		}
	}
	return p, nil
}
