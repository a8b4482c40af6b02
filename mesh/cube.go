package mesh

// UnitCube builds a structured tetrahedral mesh of [0,1]^3 with n cells per
// side, each hex cell split into six tets along the main diagonal (Kuhn
// decomposition, conforming across cell faces). (n+1)^3 vertices, 6*n^3
// elements. This is the resolution-proxy mesh used when no grid file is given.
func UnitCube(n int) *Mesh {
	if n < 1 {
		n = 1
	}
	np := n + 1
	vid := func(i, j, k int) int { return i + np*(j+np*k) }

	m := &Mesh{
		Verts: make([][3]float64, np*np*np),
		EToV:  make([][4]int, 0, 6*n*n*n),
	}
	h := 1.0 / float64(n)
	for k := 0; k < np; k++ {
		for j := 0; j < np; j++ {
			for i := 0; i < np; i++ {
				m.Verts[vid(i, j, k)] = [3]float64{float64(i) * h, float64(j) * h, float64(k) * h}
			}
		}
	}

	// Each Kuhn simplex walks from the cell's low corner to its high corner
	// one axis at a time; the six axis orderings tile the hex.
	orders := [6][3]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				for _, ord := range orders {
					c := [3]int{i, j, k}
					tet := [4]int{vid(c[0], c[1], c[2])}
					for step := 0; step < 3; step++ {
						c[ord[step]]++
						tet[step+1] = vid(c[0], c[1], c[2])
					}
					m.EToV = append(m.EToV, tet)
				}
			}
		}
	}
	return m
}
