package fem

import "fmt"

// Element tabulates Lagrange shape functions of a tetrahedron at the points
// of a quadrature rule: values and reference-space gradients, built once at
// setup. Degree 1 has the 4 vertex functions; degree 2 adds the 6 edge-bubble
// functions in the mesh.TetEdges local ordering.
type Element struct {
	Degree int
	NDofs  int
	Quad   *Quadrature

	Values   [][]float64    // [q][i]
	RefGrads [][][3]float64 // [q][i]
}

func NewElement(degree int) (*Element, error) {
	q, err := NewQuadrature(degree)
	if err != nil {
		return nil, err
	}
	var ndofs int
	switch degree {
	case 1:
		ndofs = 4
	case 2:
		ndofs = 10
	default:
		return nil, fmt.Errorf("unsupported polynomial degree %d, have 1 and 2", degree)
	}
	el := &Element{
		Degree:   degree,
		NDofs:    ndofs,
		Quad:     q,
		Values:   make([][]float64, q.Len()),
		RefGrads: make([][][3]float64, q.Len()),
	}
	for i, p := range q.Points {
		el.Values[i], el.RefGrads[i] = shapeAt(degree, p)
	}
	return el, nil
}

// barycentric gradients on the reference tet are constant
var lambdaGrad = [4][3]float64{
	{-1, -1, -1}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
}

// local edge pairs, same ordering as mesh.TetEdges
var edgePairs = [6][2]int{{0, 1}, {0, 2}, {0, 3}, {1, 2}, {1, 3}, {2, 3}}

func shapeAt(degree int, p [3]float64) (vals []float64, grads [][3]float64) {
	lambda := [4]float64{1 - p[0] - p[1] - p[2], p[0], p[1], p[2]}

	if degree == 1 {
		vals = make([]float64, 4)
		grads = make([][3]float64, 4)
		for i := 0; i < 4; i++ {
			vals[i] = lambda[i]
			grads[i] = lambdaGrad[i]
		}
		return
	}

	vals = make([]float64, 10)
	grads = make([][3]float64, 10)
	for i := 0; i < 4; i++ {
		// L_i (2 L_i - 1)
		vals[i] = lambda[i] * (2*lambda[i] - 1)
		for d := 0; d < 3; d++ {
			grads[i][d] = (4*lambda[i] - 1) * lambdaGrad[i][d]
		}
	}
	for e, pair := range edgePairs {
		a, b := pair[0], pair[1]
		// 4 L_a L_b
		vals[4+e] = 4 * lambda[a] * lambda[b]
		for d := 0; d < 3; d++ {
			grads[4+e][d] = 4 * (lambda[a]*lambdaGrad[b][d] + lambda[b]*lambdaGrad[a][d])
		}
	}
	return
}
