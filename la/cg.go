package la

import (
	"fmt"
	"math"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/pgroup"
)

// NotConvergedError reports a Krylov solve that hit its iteration cap. The
// computed iterate is still in place; callers decide whether degraded
// accuracy is acceptable for the run.
type NotConvergedError struct {
	Iterations int
	Residual   float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("linear solve: no convergence in %d iterations, residual %e",
		e.Iterations, e.Residual)
}

type nzEntry struct {
	col int // local column
	val float64
}

// ssor is a symmetric Gauss-Seidel sweep over the rank's owned diagonal
// block; couplings to remote columns are dropped (block-Jacobi across ranks).
type ssor struct {
	lower, upper [][]nzEntry
	diag         []float64
}

func newSSOR(m *Matrix) *ssor {
	if m.csr == nil {
		panic("matrix used before Compress")
	}
	n := m.lay.NumOwned()
	p := &ssor{
		lower: make([][]nzEntry, n),
		upper: make([][]nzEntry, n),
		diag:  make([]float64, n),
	}
	lo := m.lay.Begin
	m.csr.DoNonZero(func(i, j int, v float64) {
		if !m.lay.IsOwned(j) {
			return
		}
		c := j - lo
		switch {
		case c == i:
			p.diag[i] = v
		case c < i:
			p.lower[i] = append(p.lower[i], nzEntry{col: c, val: v})
		default:
			p.upper[i] = append(p.upper[i], nzEntry{col: c, val: v})
		}
	})
	for i, d := range p.diag {
		if d == 0 {
			panic(fmt.Sprintf("zero diagonal in row %d, SSOR undefined", i+lo))
		}
	}
	return p
}

// apply computes z = M^{-1} r with M = (D+L) D^{-1} (D+U).
func (p *ssor) apply(z, r []float64) {
	n := len(r)
	// forward sweep: (D+L) y = r
	for i := 0; i < n; i++ {
		s := r[i]
		for _, e := range p.lower[i] {
			s -= e.val * z[e.col]
		}
		z[i] = s / p.diag[i]
	}
	// backward sweep: (D+U) z = D y
	for i := n - 1; i >= 0; i-- {
		s := p.diag[i] * z[i]
		for _, e := range p.upper[i] {
			s -= e.val * z[e.col]
		}
		z[i] = s / p.diag[i]
	}
}

// SolveCG solves A x = b for the owned range of x with preconditioned
// conjugate gradients, SSOR-preconditioned, starting from x = 0. Converged
// when the residual norm drops below rtol times its initial value, or
// immediately when b is zero. Collective throughout: every iteration
// synchronizes the group through ghost refreshes and reductions.
//
// Returns the iteration count; hitting maxIter returns the count alongside a
// *NotConvergedError while leaving the best iterate in x.
func SolveCG(a *Matrix, b, x *Vector, rtol float64, maxIter int) (int, error) {
	n := a.lay.NumOwned()
	prec := newSSOR(a)

	x.Zero()
	r := make([]float64, n)
	copy(r, b.Owned)
	norm0 := vecNorm(a.comm, r)
	if norm0 == 0 {
		return 0, nil
	}

	z := make([]float64, n)
	prec.apply(z, r)
	p := NewVector(a.lay, a.comm, a.env)
	copy(p.Owned, z)
	q := NewVector(a.lay, a.comm, a.env)

	rz := dot(a.comm, r, z)
	resNorm := norm0
	for it := 1; it <= maxIter; it++ {
		p.UpdateGhosts()
		a.MulVec(p, q)
		pq := dot(a.comm, p.Owned, q.Owned)
		alpha := rz / pq
		x.AXPY(alpha, p)
		for i := range r {
			r[i] -= alpha * q.Owned[i]
		}
		resNorm = vecNorm(a.comm, r)
		if resNorm <= rtol*norm0 {
			return it, nil
		}
		prec.apply(z, r)
		rzNew := dot(a.comm, r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p.Owned {
			p.Owned[i] = z[i] + beta*p.Owned[i]
		}
	}
	return maxIter, &NotConvergedError{Iterations: maxIter, Residual: resNorm}
}

func dot(c *pgroup.Comm, a, b []float64) float64 {
	var local float64
	for i := range a {
		local += a[i] * b[i]
	}
	return c.AllReduceSum(local)
}

func vecNorm(c *pgroup.Comm, a []float64) float64 {
	return math.Sqrt(dot(c, a, a))
}
