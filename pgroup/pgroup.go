package pgroup

import (
	"fmt"
	"sync"
)

/*
	A Group stands in for the MPI communicator of a cluster run: a fixed set of
	workers that execute the same control flow in lockstep, one goroutine per
	rank. Every cross-rank operation is a collective - all members must call it,
	and the call blocks until they do. There is no dynamic membership and no
	partial-failure handling: a rank that never arrives stalls the group.
*/
type Group struct {
	size       int
	mu         sync.Mutex
	cond       *sync.Cond
	arrived    int
	generation int
	// collective workspaces, indexed by rank
	reduceSlots []float64
	gatherSlots [][]float64
}

func NewGroup(size int) *Group {
	if size < 1 {
		panic(fmt.Sprintf("process group size must be positive, have %d", size))
	}
	g := &Group{
		size:        size,
		reduceSlots: make([]float64, size),
		gatherSlots: make([][]float64, size),
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

func (g *Group) Size() int { return g.size }

// Comm returns the handle rank uses for collective operations. One per worker
// goroutine; handles are not shared between ranks.
func (g *Group) Comm(rank int) *Comm {
	if rank < 0 || rank >= g.size {
		panic(fmt.Sprintf("rank %d out of range for group of size %d", rank, g.size))
	}
	return &Comm{g: g, rank: rank}
}

type Comm struct {
	g    *Group
	rank int
}

func (c *Comm) Rank() int    { return c.rank }
func (c *Comm) Size() int    { return c.g.size }
func (c *Comm) IsRoot() bool { return c.rank == 0 }

// Barrier blocks until every member of the group has called it.
func (c *Comm) Barrier() {
	g := c.g
	g.mu.Lock()
	gen := g.generation
	g.arrived++
	if g.arrived == g.size {
		g.arrived = 0
		g.generation++
		g.cond.Broadcast()
	} else {
		for gen == g.generation {
			g.cond.Wait()
		}
	}
	g.mu.Unlock()
}

// AllReduceSum is a collective: every rank contributes x and every rank
// receives the sum over all contributions.
func (c *Comm) AllReduceSum(x float64) float64 {
	g := c.g
	g.reduceSlots[c.rank] = x
	c.Barrier()
	var sum float64
	for _, v := range g.reduceSlots {
		sum += v
	}
	c.Barrier() // slots may not be reused until all ranks have read
	return sum
}

// AllReduceMax is a collective returning the maximum contribution.
func (c *Comm) AllReduceMax(x float64) float64 {
	g := c.g
	g.reduceSlots[c.rank] = x
	c.Barrier()
	max := g.reduceSlots[0]
	for _, v := range g.reduceSlots[1:] {
		if v > max {
			max = v
		}
	}
	c.Barrier()
	return max
}

// GatherConcat is a collective: rank contributions are concatenated in rank
// order. The root receives the result, all other ranks receive nil.
func (c *Comm) GatherConcat(x []float64) []float64 {
	g := c.g
	g.gatherSlots[c.rank] = x
	c.Barrier()
	var out []float64
	if c.IsRoot() {
		var n int
		for _, s := range g.gatherSlots {
			n += len(s)
		}
		out = make([]float64, 0, n)
		for _, s := range g.gatherSlots {
			out = append(out, s...)
		}
	}
	c.Barrier()
	return out
}

/*
	Exchange is a typed all-to-all staging area shared by the whole group.
	Between flushes each rank posts items addressed to peers; Flush is a
	collective that delivers everything addressed to the caller. Because the
	group runs in lockstep, one Exchange may be reused for any number of
	sequential rounds, but never for two rounds in flight at once.
*/
type Exchange[T any] struct {
	g     *Group
	boxes [][][]T // [src][dst]
}

func NewExchange[T any](g *Group) *Exchange[T] {
	e := &Exchange[T]{g: g, boxes: make([][][]T, g.size)}
	for i := range e.boxes {
		e.boxes[i] = make([][]T, g.size)
	}
	return e
}

// Post stages items from rank src to rank dst. Local, non-blocking; only the
// goroutine running rank src may post from src.
func (e *Exchange[T]) Post(src, dst int, items ...T) {
	e.boxes[src][dst] = append(e.boxes[src][dst], items...)
}

// Flush is a collective: it blocks until all ranks have flushed and returns
// everything posted to the calling rank this round, in source-rank order.
func (e *Exchange[T]) Flush(c *Comm) []T {
	c.Barrier() // all posts for this round are complete
	var in []T
	for src := 0; src < e.g.size; src++ {
		in = append(in, e.boxes[src][c.rank]...)
		e.boxes[src][c.rank] = nil
	}
	c.Barrier() // boxes are clear before the next round may post
	return in
}
