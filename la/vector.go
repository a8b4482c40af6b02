// Package la provides the distributed sparse matrix and vector containers of
// the solver, plus the preconditioned Krylov solve. Storage is split by the
// dofs.Layout: each rank holds its owned range directly and a read-only ghost
// shadow of remote dofs its elements touch. Writes to remote-owned entries are
// staged locally and only land through the collective Compress; ghost reads
// are only valid after a collective UpdateGhosts.
package la

import (
	"fmt"
	"math"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/dofs"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/pgroup"
)

// Entry is one staged vector contribution addressed by global dof id.
type Entry struct {
	Idx int
	Val float64
}

// MatEntry is one staged matrix contribution addressed by global (row, col).
type MatEntry struct {
	Row, Col int
	Val      float64
}

// Env holds the exchange channels shared by all of a group's distributed
// containers. The group runs in lockstep, so one channel per payload type is
// reused for every sequential collective round.
type Env struct {
	vecEx *pgroup.Exchange[Entry]
	matEx *pgroup.Exchange[MatEntry]
}

func NewEnv(g *pgroup.Group) *Env {
	return &Env{
		vecEx: pgroup.NewExchange[Entry](g),
		matEx: pgroup.NewExchange[MatEntry](g),
	}
}

// Vector is one rank's share of a distributed vector.
type Vector struct {
	lay  *dofs.Layout
	comm *pgroup.Comm
	env  *Env

	Owned []float64       // authoritative values, global range [Begin, End)
	ghost []float64       // shadow of remote dofs, valid after UpdateGhosts
	stage map[int]float64 // staged adds to remote-owned entries
}

func NewVector(lay *dofs.Layout, comm *pgroup.Comm, env *Env) *Vector {
	return &Vector{
		lay:   lay,
		comm:  comm,
		env:   env,
		Owned: make([]float64, lay.NumOwned()),
		ghost: make([]float64, len(lay.Ghosts)),
		stage: make(map[int]float64),
	}
}

func (v *Vector) Layout() *dofs.Layout { return v.lay }

// Zero clears owned, ghost and staged state.
func (v *Vector) Zero() {
	for i := range v.Owned {
		v.Owned[i] = 0
	}
	for i := range v.ghost {
		v.ghost[i] = 0
	}
	if len(v.stage) > 0 {
		v.stage = make(map[int]float64)
	}
}

// Add accumulates into global entry g. Contributions to entries owned by
// other ranks are staged and only land at the next Compress.
func (v *Vector) Add(g int, x float64) {
	if v.lay.IsOwned(g) {
		v.Owned[g-v.lay.Begin] += x
		return
	}
	v.stage[g] += x
}

// At reads global entry g from owned or ghost storage. Ghost values reflect
// the last UpdateGhosts. A dof that is neither owned nor ghost panics: the
// partition is inconsistent.
func (v *Vector) At(g int) float64 {
	local, ghost := v.lay.Index(g)
	if ghost {
		return v.ghost[local]
	}
	return v.Owned[local]
}

// SetOwned writes directly to a locally owned entry.
func (v *Vector) SetOwned(g int, x float64) {
	if !v.lay.IsOwned(g) {
		panic(fmt.Sprintf("rank %d cannot set dof %d it does not own", v.lay.RankID, g))
	}
	v.Owned[g-v.lay.Begin] = x
}

// Compress routes staged contributions to their owners and adds them there.
// Collective: blocks until all ranks have flushed their staged entries.
func (v *Vector) Compress() {
	me := v.comm.Rank()
	for g, x := range v.stage {
		v.env.vecEx.Post(me, v.lay.Owner(g), Entry{Idx: g, Val: x})
	}
	if len(v.stage) > 0 {
		v.stage = make(map[int]float64)
	}
	for _, e := range v.env.vecEx.Flush(v.comm) {
		v.Owned[e.Idx-v.lay.Begin] += e.Val
	}
}

// UpdateGhosts pushes owned values to the ranks ghosting them, making ghost
// reads coherent with the current owned state. Collective.
func (v *Vector) UpdateGhosts() {
	me := v.comm.Rank()
	for r, push := range v.lay.PushDofs {
		for _, g := range push {
			v.env.vecEx.Post(me, r, Entry{Idx: g, Val: v.Owned[g-v.lay.Begin]})
		}
	}
	for _, e := range v.env.vecEx.Flush(v.comm) {
		v.ghost[v.lay.GhostSlot(e.Idx)] = e.Val
	}
}

// Norm is the global l2 norm. Collective.
func (v *Vector) Norm() float64 {
	var local float64
	for _, x := range v.Owned {
		local += x * x
	}
	return math.Sqrt(v.comm.AllReduceSum(local))
}

// Dot is the global inner product with w. Collective.
func (v *Vector) Dot(w *Vector) float64 {
	var local float64
	for i, x := range v.Owned {
		local += x * w.Owned[i]
	}
	return v.comm.AllReduceSum(local)
}

// AXPY adds a*x into the owned range. Local.
func (v *Vector) AXPY(a float64, x *Vector) {
	for i := range v.Owned {
		v.Owned[i] += a * x.Owned[i]
	}
}

// CopyFrom copies both owned and ghost storage from x. Local; the copy is as
// ghost-fresh as its source.
func (v *Vector) CopyFrom(x *Vector) {
	copy(v.Owned, x.Owned)
	copy(v.ghost, x.ghost)
}

// GatherOnRoot concatenates all owned ranges in rank order. Collective; the
// root receives the full global vector, other ranks nil.
func (v *Vector) GatherOnRoot() []float64 {
	return v.comm.GatherConcat(v.Owned)
}
