package mesh

import "fmt"

// Mesh is an unstructured tetrahedral mesh. It is immutable once partitioned:
// solvers only ever read connectivity and coordinates.
type Mesh struct {
	Verts [][3]float64
	EToV  [][4]int // element -> vertex ids

	// Built on demand by BuildEdges, needed for quadratic elements
	Edges [][2]int // unique vertex pairs, lo < hi
	EToE  [][6]int // element -> edge ids, local edge order below
}

// Local edge numbering within a tet, fixed across the code base.
var TetEdges = [6][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

func (m *Mesh) NumElements() int { return len(m.EToV) }
func (m *Mesh) NumVerts() int    { return len(m.Verts) }

// ElemVerts returns the four vertex coordinates of element k.
func (m *Mesh) ElemVerts(k int) (v [4][3]float64) {
	for i, vid := range m.EToV[k] {
		v[i] = m.Verts[vid]
	}
	return
}

// Validate checks basic consistency. A malformed mesh is a fatal setup error,
// detected here before any solver state is built.
func (m *Mesh) Validate() error {
	if m.NumElements() == 0 {
		return fmt.Errorf("mesh has no elements")
	}
	if m.NumVerts() < 4 {
		return fmt.Errorf("mesh has %d vertices, need at least 4", m.NumVerts())
	}
	touched := make([]bool, m.NumVerts())
	for k, ev := range m.EToV {
		for _, vid := range ev {
			if vid < 0 || vid >= m.NumVerts() {
				return fmt.Errorf("element %d references vertex %d, have %d vertices",
					k, vid, m.NumVerts())
			}
			touched[vid] = true
		}
		for i := 0; i < 4; i++ {
			for j := i + 1; j < 4; j++ {
				if ev[i] == ev[j] {
					return fmt.Errorf("element %d is degenerate: repeated vertex %d", k, ev[i])
				}
			}
		}
	}
	for vid, ok := range touched {
		if !ok {
			return fmt.Errorf("vertex %d is not referenced by any element", vid)
		}
	}
	return nil
}

// BuildEdges numbers the unique vertex pairs of the mesh and fills EToE.
// Idempotent; quadratic DOF distribution calls it once at setup.
func (m *Mesh) BuildEdges() {
	if m.Edges != nil {
		return
	}
	index := make(map[[2]int]int)
	m.EToE = make([][6]int, m.NumElements())
	for k, ev := range m.EToV {
		for le, pair := range TetEdges {
			a, b := ev[pair[0]], ev[pair[1]]
			if a > b {
				a, b = b, a
			}
			key := [2]int{a, b}
			id, ok := index[key]
			if !ok {
				id = len(m.Edges)
				index[key] = id
				m.Edges = append(m.Edges, key)
			}
			m.EToE[k][le] = id
		}
	}
}
