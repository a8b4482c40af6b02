package fem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuadrature_WeightsSumToReferenceVolume(t *testing.T) {
	for _, degree := range []int{1, 2} {
		q, err := NewQuadrature(degree)
		require.NoError(t, err)
		var sum float64
		for _, w := range q.Weights {
			sum += w
		}
		assert.InDelta(t, 1.0/6.0, sum, 1e-14, "degree %d", degree)
	}
	_, err := NewQuadrature(3)
	assert.Error(t, err)
}

// monomial integrals over the reference tet: x^a y^b z^c has the closed form
// a! b! c! / (a+b+c+3)!
func refMonomialIntegral(a, b, c int) float64 {
	fact := func(n int) float64 {
		f := 1.0
		for i := 2; i <= n; i++ {
			f *= float64(i)
		}
		return f
	}
	return fact(a) * fact(b) * fact(c) / fact(a+b+c+3)
}

func TestQuadrature_Exactness(t *testing.T) {
	// degree-1 rule is exact to order 2, degree-2 rule to order 5
	maxOrder := map[int]int{1: 2, 2: 5}
	for degree, ord := range maxOrder {
		q, _ := NewQuadrature(degree)
		for a := 0; a <= ord; a++ {
			for b := 0; a+b <= ord; b++ {
				for c := 0; a+b+c <= ord; c++ {
					var got float64
					for i, p := range q.Points {
						got += q.Weights[i] *
							math.Pow(p[0], float64(a)) *
							math.Pow(p[1], float64(b)) *
							math.Pow(p[2], float64(c))
					}
					want := refMonomialIntegral(a, b, c)
					assert.InDelta(t, want, got, 1e-14,
						"degree %d rule, monomial x^%d y^%d z^%d", degree, a, b, c)
				}
			}
		}
	}
}

func TestElement_PartitionOfUnity(t *testing.T) {
	for _, degree := range []int{1, 2} {
		el, err := NewElement(degree)
		require.NoError(t, err)
		for q := 0; q < el.Quad.Len(); q++ {
			var sumV float64
			var sumG [3]float64
			for i := 0; i < el.NDofs; i++ {
				sumV += el.Values[q][i]
				for d := 0; d < 3; d++ {
					sumG[d] += el.RefGrads[q][i][d]
				}
			}
			assert.InDelta(t, 1.0, sumV, 1e-13)
			for d := 0; d < 3; d++ {
				assert.InDelta(t, 0.0, sumG[d], 1e-13)
			}
		}
	}
}

func TestElement_NodalProperty(t *testing.T) {
	// Shape i equals 1 at its own support point, 0 at the others
	nodesP2 := [][3]float64{
		{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1},
		{0.5, 0, 0}, {0, 0.5, 0}, {0, 0, 0.5},
		{0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5},
	}
	for i, p := range nodesP2 {
		vals, _ := shapeAt(2, p)
		for j := range vals {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, vals[j], 1e-14, "shape %d at node %d", j, i)
		}
	}
	for i, p := range nodesP2[:4] {
		vals, _ := shapeAt(1, p)
		for j := range vals {
			want := 0.0
			if i == j {
				want = 1.0
			}
			assert.InDelta(t, want, vals[j], 1e-14)
		}
	}
}

func TestFEValues_ReferenceAndScaledTet(t *testing.T) {
	el, err := NewElement(1)
	require.NoError(t, err)
	fv := NewFEValues(el)

	// identity map: JxW sums to 1/6, gradients match the reference ones
	ref := [4][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	require.NoError(t, fv.Reinit(ref))
	var vol float64
	for q := range fv.JxW {
		vol += fv.JxW[q]
		for i := 0; i < el.NDofs; i++ {
			for d := 0; d < 3; d++ {
				assert.InDelta(t, el.RefGrads[q][i][d], fv.Grads[q][i][d], 1e-14)
			}
		}
	}
	assert.InDelta(t, 1.0/6.0, vol, 1e-14)

	// uniform scaling by h: volume scales by h^3, gradients by 1/h
	h := 0.25
	scaled := ref
	for i := range scaled {
		for d := 0; d < 3; d++ {
			scaled[i][d] *= h
		}
	}
	require.NoError(t, fv.Reinit(scaled))
	vol = 0
	for q := range fv.JxW {
		vol += fv.JxW[q]
		for i := 0; i < el.NDofs; i++ {
			for d := 0; d < 3; d++ {
				assert.InDelta(t, el.RefGrads[q][i][d]/h, fv.Grads[q][i][d], 1e-12)
			}
		}
	}
	assert.InDelta(t, h*h*h/6.0, vol, 1e-14)

	// quadrature points land inside the element
	for _, p := range fv.QPoints {
		for d := 0; d < 3; d++ {
			assert.Greater(t, p[d], 0.0)
			assert.Less(t, p[d], h)
		}
	}

	// degenerate element rejected
	bad := ref
	bad[3] = bad[0]
	assert.Error(t, fv.Reinit(bad))
}

func TestFEValues_LinearFieldGradient(t *testing.T) {
	// On any tet, nodal interpolation of f = 2x - 3y + z must reproduce
	// grad f exactly at every quadrature point, for both degrees
	verts := [4][3]float64{{0.2, 0.1, 0}, {1.3, 0.2, 0.1}, {0.4, 1.1, 0.3}, {0.2, 0.4, 1.2}}
	f := func(p [3]float64) float64 { return 2*p[0] - 3*p[1] + p[2] }
	nodes := func(degree int) [][3]float64 {
		pts := make([][3]float64, 0, 10)
		for i := 0; i < 4; i++ {
			pts = append(pts, verts[i])
		}
		if degree == 2 {
			for _, pair := range edgePairs {
				var mid [3]float64
				for d := 0; d < 3; d++ {
					mid[d] = 0.5 * (verts[pair[0]][d] + verts[pair[1]][d])
				}
				pts = append(pts, mid)
			}
		}
		return pts
	}
	for _, degree := range []int{1, 2} {
		el, err := NewElement(degree)
		require.NoError(t, err)
		fv := NewFEValues(el)
		require.NoError(t, fv.Reinit(verts))
		coeffs := nodes(degree)
		for q := 0; q < el.Quad.Len(); q++ {
			var grad [3]float64
			var val float64
			for i := 0; i < el.NDofs; i++ {
				fi := f(coeffs[i])
				val += el.Values[q][i] * fi
				for d := 0; d < 3; d++ {
					grad[d] += fv.Grads[q][i][d] * fi
				}
			}
			assert.InDelta(t, f(fv.QPoints[q]), val, 1e-12)
			assert.InDelta(t, 2.0, grad[0], 1e-12)
			assert.InDelta(t, -3.0, grad[1], 1e-12)
			assert.InDelta(t, 1.0, grad[2], 1e-12)
		}
	}
}
