package mesh

import (
	"fmt"
	"sort"

	metis "github.com/notargets/go-metis"
)

// PartitionBlock assigns ne elements to nparts contiguous buckets with a
// maximum imbalance of one element. Deterministic, no geometry needed; the
// default strategy.
func PartitionBlock(ne, nparts int) []int {
	if nparts < 1 {
		panic(fmt.Sprintf("partition count must be positive, have %d", nparts))
	}
	epart := make([]int, ne)
	base := ne / nparts
	rem := ne % nparts
	e := 0
	for p := 0; p < nparts; p++ {
		sz := base
		if p < rem {
			sz++
		}
		for i := 0; i < sz; i++ {
			epart[e] = p
			e++
		}
	}
	return epart
}

// PartitionMetis partitions the element face-adjacency graph with METIS,
// minimizing the edge cut. Falls back to a single bucket for nparts == 1.
func PartitionMetis(m *Mesh, nparts int) ([]int, error) {
	if nparts < 1 {
		return nil, fmt.Errorf("partition count must be positive, have %d", nparts)
	}
	if nparts == 1 {
		return make([]int, m.NumElements()), nil
	}

	xadj, adjncy := buildAdjacency(m)

	opts := make([]int32, metis.NoOptions)
	if err := metis.SetDefaultOptions(opts); err != nil {
		return nil, fmt.Errorf("failed to set METIS options: %w", err)
	}
	opts[metis.OptionObjType] = metis.ObjTypeCut
	ubvec := []float32{1.05}

	part, _, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, nil, nil,
		int32(nparts), nil, ubvec, opts,
	)
	if err != nil {
		return nil, fmt.Errorf("METIS partitioning failed: %w", err)
	}

	epart := make([]int, m.NumElements())
	for i := range epart {
		epart[i] = int(part[i])
	}
	return epart, nil
}

// buildAdjacency converts face connectivity to the METIS CSR graph layout.
// Two tets are adjacent when they share a triangular face.
func buildAdjacency(m *Mesh) (xadj, adjncy []int32) {
	type face [3]int
	faceOf := func(ev [4]int, skip int) face {
		var f face
		n := 0
		for i := 0; i < 4; i++ {
			if i == skip {
				continue
			}
			f[n] = ev[i]
			n++
		}
		sort.Ints(f[:])
		return f
	}

	ne := m.NumElements()
	owners := make(map[face][2]int) // face -> up to two elements
	for k := 0; k < ne; k++ {
		for s := 0; s < 4; s++ {
			f := faceOf(m.EToV[k], s)
			if pair, ok := owners[f]; ok {
				pair[1] = k
				owners[f] = pair
			} else {
				owners[f] = [2]int{k, -1}
			}
		}
	}
	neighbors := make([][]int32, ne)
	for _, pair := range owners {
		if pair[1] >= 0 {
			neighbors[pair[0]] = append(neighbors[pair[0]], int32(pair[1]))
			neighbors[pair[1]] = append(neighbors[pair[1]], int32(pair[0]))
		}
	}

	xadj = make([]int32, ne+1)
	for k := 0; k < ne; k++ {
		adjncy = append(adjncy, neighbors[k]...)
		xadj[k+1] = int32(len(adjncy))
	}
	return xadj, adjncy
}
