package pgroup

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_Collectives(t *testing.T) {
	{ // Trivial single-member group
		g := NewGroup(1)
		c := g.Comm(0)
		c.Barrier()
		assert.Equal(t, 42.0, c.AllReduceSum(42.0))
		assert.Equal(t, 42.0, c.AllReduceMax(42.0))
		assert.Equal(t, []float64{1, 2}, c.GatherConcat([]float64{1, 2}))
	}
	{ // Sum and max across ranks, several rounds back to back
		for _, np := range []int{2, 3, 8} {
			g := NewGroup(np)
			var wg sync.WaitGroup
			for rank := 0; rank < np; rank++ {
				wg.Add(1)
				go func(rank int) {
					defer wg.Done()
					c := g.Comm(rank)
					for round := 0; round < 10; round++ {
						sum := c.AllReduceSum(float64(rank + 1))
						assert.Equal(t, float64(np*(np+1)/2), sum)
						max := c.AllReduceMax(float64(rank))
						assert.Equal(t, float64(np-1), max)
					}
				}(rank)
			}
			wg.Wait()
		}
	}
	{ // Gather concatenates in rank order, root only
		np := 4
		g := NewGroup(np)
		var wg sync.WaitGroup
		for rank := 0; rank < np; rank++ {
			wg.Add(1)
			go func(rank int) {
				defer wg.Done()
				c := g.Comm(rank)
				out := c.GatherConcat([]float64{float64(rank), float64(rank)})
				if c.IsRoot() {
					assert.Equal(t, []float64{0, 0, 1, 1, 2, 2, 3, 3}, out)
				} else {
					assert.Nil(t, out)
				}
			}(rank)
		}
		wg.Wait()
	}
}

func TestExchange_AllToAll(t *testing.T) {
	type msg struct {
		From, Val int
	}
	np := 4
	g := NewGroup(np)
	ex := NewExchange[msg](g)
	var wg sync.WaitGroup
	for rank := 0; rank < np; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			c := g.Comm(rank)
			for round := 0; round < 5; round++ {
				// Each rank sends its rank id to every neighbor, twice to the root
				for dst := 0; dst < np; dst++ {
					if dst == rank {
						continue
					}
					ex.Post(rank, dst, msg{From: rank, Val: round})
					if dst == 0 {
						ex.Post(rank, dst, msg{From: rank, Val: round})
					}
				}
				in := ex.Flush(c)
				want := np - 1
				if rank == 0 {
					want = 2 * (np - 1)
				}
				require.Len(t, in, want)
				for _, m := range in {
					assert.Equal(t, round, m.Val)
					assert.NotEqual(t, rank, m.From)
				}
			}
		}(rank)
	}
	wg.Wait()
}

func TestGroup_Bounds(t *testing.T) {
	assert.Panics(t, func() { NewGroup(0) })
	g := NewGroup(2)
	assert.Panics(t, func() { g.Comm(-1) })
	assert.Panics(t, func() { g.Comm(2) })
	assert.Equal(t, 2, g.Size())
	assert.True(t, g.Comm(0).IsRoot())
	assert.False(t, g.Comm(1).IsRoot())
}
