// Package fem supplies the reference-element side of the discretization:
// simplex quadrature rules, Lagrange shape functions on the reference
// tetrahedron, and the affine map to physical elements.
package fem

import "fmt"

// Quadrature is a fixed rule on the reference tetrahedron with vertices
// (0,0,0), (1,0,0), (0,1,0), (0,0,1). Weights sum to the reference volume 1/6,
// so a physical integral is sum_q w_q |detJ| f(x_q).
type Quadrature struct {
	Points  [][3]float64
	Weights []float64
}

func (q *Quadrature) Len() int { return len(q.Points) }

// NewQuadrature returns a rule sized for a Lagrange basis of the given
// polynomial degree, matching the original scheme of one order beyond the
// basis: degree 1 gets the 4-point order-2 rule, degree 2 the 14-point
// order-5 rule (all weights positive).
func NewQuadrature(degree int) (*Quadrature, error) {
	switch degree {
	case 1:
		const (
			a = 0.5854101966249685
			b = 0.1381966011250105
			w = 1.0 / 24.0
		)
		return &Quadrature{
			Points: [][3]float64{
				{a, b, b}, {b, a, b}, {b, b, a}, {b, b, b},
			},
			Weights: []float64{w, w, w, w},
		}, nil
	case 2:
		const (
			g1 = 0.09273525031089122640232391373703061
			g2 = 0.31088591926330060979734573376345783
			g3 = 0.04550370412564964949188052627933943
			w1 = 0.01224884051939365826
			w2 = 0.01878132095300264180
			w3 = 0.00709100346284691107
		)
		q := &Quadrature{}
		q.addBarycentric4(g1, w1)
		q.addBarycentric4(g2, w2)
		q.addBarycentric6(g3, w3)
		return q, nil
	default:
		return nil, fmt.Errorf("no quadrature rule for degree %d, have 1 and 2", degree)
	}
}

// addBarycentric4 adds the four permutations of (1-3g, g, g, g).
func (q *Quadrature) addBarycentric4(g, w float64) {
	bary := [4]float64{1 - 3*g, g, g, g}
	for pos := 0; pos < 4; pos++ {
		var b [4]float64
		for i := range b {
			b[i] = g
		}
		b[pos] = bary[0]
		q.Points = append(q.Points, [3]float64{b[1], b[2], b[3]})
		q.Weights = append(q.Weights, w)
	}
}

// addBarycentric6 adds the six permutations of (g, g, 1/2-g, 1/2-g).
func (q *Quadrature) addBarycentric6(g, w float64) {
	c := 0.5 - g
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			b := [4]float64{g, g, g, g}
			b[i], b[j] = c, c
			q.Points = append(q.Points, [3]float64{b[1], b[2], b[3]})
			q.Weights = append(q.Weights, w)
		}
	}
}
