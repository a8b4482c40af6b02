package Prion3D

import (
	"sync"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/dofs"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/la"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/mesh"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/pgroup"
)

// Run distributes the unknowns over nparts ranks per the element partition
// epart, spawns one worker goroutine per rank and drives the full simulation
// in lockstep. It returns the first error any rank reports.
func Run(cfg Config, msh *mesh.Mesh, epart []int, nparts int, sink Sink) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	part, err := dofs.Distribute(msh, cfg.Degree, epart, nparts)
	if err != nil {
		return err
	}
	return RunPartitioned(cfg, msh, part, sink)
}

// RunPartitioned is Run for callers that already built the DOF partition,
// e.g. tests comparing rank counts on identical numbering.
func RunPartitioned(cfg Config, msh *mesh.Mesh, part *dofs.Partition, sink Sink) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	g := pgroup.NewGroup(part.NParts)
	env := la.NewEnv(g)
	errs := make([]error, part.NParts)

	var wg sync.WaitGroup
	for rank := 0; rank < part.NParts; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			s, err := NewSolver(cfg, msh, part, g.Comm(rank), env)
			if err != nil {
				errs[rank] = err
				return
			}
			errs[rank] = s.Solve(sink)
		}(rank)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
