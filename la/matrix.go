package la

import (
	"github.com/james-bowman/sparse"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/dofs"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/pgroup"
)

// Matrix is one rank's share of a distributed sparse matrix: the block of
// rows it owns, with global column indices. Assembly accumulates into a DOK;
// Compress exchanges contributions staged for remote rows and converts the
// local block to CSR for the matvecs of the Krylov solve. The matrix is
// rebuilt from zero every Newton iteration, never patched.
type Matrix struct {
	lay  *dofs.Layout
	comm *pgroup.Comm
	env  *Env

	dok   *sparse.DOK
	csr   *sparse.CSR
	stage []MatEntry
}

func NewMatrix(lay *dofs.Layout, comm *pgroup.Comm, env *Env) *Matrix {
	return &Matrix{
		lay:  lay,
		comm: comm,
		env:  env,
		dok:  sparse.NewDOK(lay.NumOwned(), lay.NumGlobal()),
	}
}

func (m *Matrix) Layout() *dofs.Layout { return m.lay }

// Zero discards all entries and compressed state.
func (m *Matrix) Zero() {
	m.dok = sparse.NewDOK(m.lay.NumOwned(), m.lay.NumGlobal())
	m.csr = nil
	m.stage = m.stage[:0]
}

// Add accumulates x into global entry (i, j). Rows owned elsewhere are staged
// for the next Compress.
func (m *Matrix) Add(i, j int, x float64) {
	if m.lay.IsOwned(i) {
		r := i - m.lay.Begin
		m.dok.Set(r, j, m.dok.At(r, j)+x)
		return
	}
	m.stage = append(m.stage, MatEntry{Row: i, Col: j, Val: x})
}

// Compress exchanges staged remote-row contributions and freezes the local
// block as CSR. Collective; must run after assembly and before any matvec.
func (m *Matrix) Compress() {
	me := m.comm.Rank()
	for _, e := range m.stage {
		m.env.matEx.Post(me, m.lay.Owner(e.Row), e)
	}
	m.stage = m.stage[:0]
	for _, e := range m.env.matEx.Flush(m.comm) {
		r := e.Row - m.lay.Begin
		m.dok.Set(r, e.Col, m.dok.At(r, e.Col)+e.Val)
	}
	m.csr = m.dok.ToCSR()
}

// MulVec computes y = A x over the owned rows. x must be ghost-fresh: column
// indices reach into both the owned and ghost ranges of x. Local apart from
// that precondition.
func (m *Matrix) MulVec(x, y *Vector) {
	if m.csr == nil {
		panic("matrix used before Compress")
	}
	for i := range y.Owned {
		y.Owned[i] = 0
	}
	m.csr.DoNonZero(func(i, j int, v float64) {
		y.Owned[i] += v * x.At(j)
	})
}

// NNZ reports the nonzero count of the compressed local block.
func (m *Matrix) NNZ() int {
	if m.csr == nil {
		return m.dok.NNZ()
	}
	return m.csr.NNZ()
}
