package fem

import (
	"fmt"
	"math"
)

// FEValues carries the per-element quantities assembly reads at each
// quadrature point: integration weights scaled by the Jacobian determinant,
// physical-space shape gradients, and physical quadrature point locations.
// Reinit recomputes them for an element's vertex coordinates; the shape
// values themselves live on the Element and never change (the map is affine).
type FEValues struct {
	El *Element

	JxW     []float64
	Grads   [][][3]float64 // [q][i] physical gradients
	QPoints [][3]float64
}

func NewFEValues(el *Element) *FEValues {
	nq := el.Quad.Len()
	fv := &FEValues{
		El:      el,
		JxW:     make([]float64, nq),
		Grads:   make([][][3]float64, nq),
		QPoints: make([][3]float64, nq),
	}
	for q := 0; q < nq; q++ {
		fv.Grads[q] = make([][3]float64, el.NDofs)
	}
	return fv
}

// Reinit sets up the affine reference-to-physical map for a tet with the
// given vertex coordinates and retabulates JxW, gradients and quadrature
// locations. Returns an error for a degenerate (zero-volume) element.
func (fv *FEValues) Reinit(v [4][3]float64) error {
	// Jacobian columns are the edge vectors from vertex 0
	var J [3][3]float64
	for d := 0; d < 3; d++ {
		J[d][0] = v[1][d] - v[0][d]
		J[d][1] = v[2][d] - v[0][d]
		J[d][2] = v[3][d] - v[0][d]
	}
	det := J[0][0]*(J[1][1]*J[2][2]-J[1][2]*J[2][1]) -
		J[0][1]*(J[1][0]*J[2][2]-J[1][2]*J[2][0]) +
		J[0][2]*(J[1][0]*J[2][1]-J[1][1]*J[2][0])
	if det == 0 || math.IsNaN(det) {
		return fmt.Errorf("degenerate element, |J| = %g", det)
	}
	inv := 1.0 / det
	var Jinv [3][3]float64
	Jinv[0][0] = (J[1][1]*J[2][2] - J[1][2]*J[2][1]) * inv
	Jinv[0][1] = (J[0][2]*J[2][1] - J[0][1]*J[2][2]) * inv
	Jinv[0][2] = (J[0][1]*J[1][2] - J[0][2]*J[1][1]) * inv
	Jinv[1][0] = (J[1][2]*J[2][0] - J[1][0]*J[2][2]) * inv
	Jinv[1][1] = (J[0][0]*J[2][2] - J[0][2]*J[2][0]) * inv
	Jinv[1][2] = (J[0][2]*J[1][0] - J[0][0]*J[1][2]) * inv
	Jinv[2][0] = (J[1][0]*J[2][1] - J[1][1]*J[2][0]) * inv
	Jinv[2][1] = (J[0][1]*J[2][0] - J[0][0]*J[2][1]) * inv
	Jinv[2][2] = (J[0][0]*J[1][1] - J[0][1]*J[1][0]) * inv

	el := fv.El
	absDet := math.Abs(det)
	for q := 0; q < el.Quad.Len(); q++ {
		fv.JxW[q] = el.Quad.Weights[q] * absDet

		p := el.Quad.Points[q]
		for d := 0; d < 3; d++ {
			fv.QPoints[q][d] = v[0][d] + J[d][0]*p[0] + J[d][1]*p[1] + J[d][2]*p[2]
		}
		for i := 0; i < el.NDofs; i++ {
			g := el.RefGrads[q][i]
			// physical gradient = J^{-T} grad_ref
			for d := 0; d < 3; d++ {
				fv.Grads[q][i][d] = Jinv[0][d]*g[0] + Jinv[1][d]*g[1] + Jinv[2][d]*g[2]
			}
		}
	}
	return nil
}
