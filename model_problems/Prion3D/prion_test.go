package Prion3D

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/dofs"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/la"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/mesh"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/pgroup"
)

// recordingSink keeps every snapshot it receives.
type recordingSink struct {
	frames []int
	times  []float64
	last   []float64
}

func (r *recordingSink) WriteSnapshot(frame int, time float64, _ string, field []float64) error {
	r.frames = append(r.frames, frame)
	r.times = append(r.times, time)
	r.last = append([]float64{}, field...)
	return nil
}

func testConfig() Config {
	cfg := Config{
		FinalTime: 0.3,
		Dt:        0.1,
		Quiet:     true,
	}
	cfg.ApplyDefaults()
	return cfg
}

// singleRankSolver builds one solver on a one-rank group for tests that
// poke at assembly internals.
func singleRankSolver(t *testing.T, cfg Config, n int) *Solver {
	t.Helper()
	require.NoError(t, cfg.Validate())
	msh := mesh.UnitCube(n)
	part, err := dofs.Distribute(msh, cfg.Degree, mesh.PartitionBlock(msh.NumElements(), 1), 1)
	require.NoError(t, err)
	g := pgroup.NewGroup(1)
	s, err := NewSolver(cfg, msh, part, g.Comm(0), la.NewEnv(g))
	require.NoError(t, err)
	return s
}

func TestConfig_Validate(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.Validate())

	bad := cfg
	bad.Dt = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.FinalTime = -1
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.DExt = -5
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Degree = 3
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.OutputEvery = -1
	assert.Error(t, bad.Validate())
}

func TestDiffusivity(t *testing.T) {
	D := Diffusivity(5, 0, [3]float64{1, 1, 1})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				assert.Equal(t, 5.0, D[i][j])
			} else {
				assert.Zero(t, D[i][j])
			}
		}
	}

	// axonal part uses the raw direction components, so magnitude scales it
	D = Diffusivity(1, 3, [3]float64{0, 0, 2})
	assert.InDelta(t, 1.0, D[0][0], 1e-15)
	assert.InDelta(t, 13.0, D[2][2], 1e-15)
	assert.InDelta(t, 0.0, D[0][2], 1e-15)

	D = Diffusivity(0, 1, [3]float64{1, 1, 1})
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, 1.0, D[i][j], 1e-15)
		}
	}
}

func TestGaussianBump_WindowAndPeak(t *testing.T) {
	g := DefaultCubeBump()
	assert.InDelta(t, g.Amplitude, g.Value(g.Center), 1e-15)
	assert.Zero(t, g.Value([3]float64{0.9, 0.5, 0.5}))
	assert.Zero(t, g.Value([3]float64{0.5, 0.5, 0.61}))
	// inside the window the profile decays but stays positive
	v := g.Value([3]float64{0.55, 0.5, 0.5})
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, g.Amplitude)
}

func TestAssemble_StationaryStatesHaveZeroResidual(t *testing.T) {
	for _, degree := range []int{1, 2} {
		for _, uStar := range []float64{0, 1} {
			cfg := testConfig()
			cfg.Degree = degree
			s := singleRankSolver(t, cfg, 2)
			lay := s.part.Layouts[0]
			for g := lay.Begin; g < lay.End; g++ {
				s.u.SetOwned(g, uStar)
			}
			s.u.UpdateGhosts()
			s.uOld.CopyFrom(s.u)
			require.NoError(t, s.assembleSystem())
			assert.Less(t, s.res.Norm(), 1e-12,
				"degree %d, u = %g should be stationary", degree, uStar)
		}
	}
}

func TestAssemble_ReactionRateEvaluatedAtQuadraturePoints(t *testing.T) {
	// A reaction rate supported only near the origin must leave the residual
	// zero at far-away dofs: with a uniform iterate the time and diffusion
	// terms vanish, so only alpha at the physical quadrature points remains.
	cfg := testConfig()
	cfg.Alpha = GaussianBump{Center: [3]float64{0, 0, 0}, Width: 1, Amplitude: 4, Window: 0.3}
	s := singleRankSolver(t, cfg, 2)

	lay := s.part.Layouts[0]
	for g := lay.Begin; g < lay.End; g++ {
		s.u.SetOwned(g, 0.5)
	}
	s.u.UpdateGhosts()
	s.uOld.CopyFrom(s.u)
	require.NoError(t, s.assembleSystem())

	near, far := -1, -1
	for g, p := range s.part.Coords {
		if p == [3]float64{0, 0, 0} {
			near = g
		}
		if p == [3]float64{1, 1, 1} {
			far = g
		}
	}
	require.GreaterOrEqual(t, near, 0)
	require.GreaterOrEqual(t, far, 0)
	assert.Greater(t, s.res.At(near), 1e-3)
	assert.InDelta(t, 0.0, s.res.At(far), 1e-14)
}

func TestSolveNewton_ResidualDecreasesMonotonically(t *testing.T) {
	cfg := testConfig()
	// n=4 puts vertices at x=0.5, inside the seeding window
	s := singleRankSolver(t, cfg, 4)
	s.interpolateInitialCondition()
	s.uOld.CopyFrom(s.u)

	var norms []float64
	for it := 0; it < 20; it++ {
		require.NoError(t, s.assembleSystem())
		norms = append(norms, s.res.Norm())
		if norms[len(norms)-1] < cfg.NewtonTol {
			break
		}
		require.NoError(t, s.solveLinearSystem())
		s.u.AXPY(1, s.du)
		s.u.UpdateGhosts()
	}
	require.Greater(t, len(norms), 1)
	for i := 1; i < len(norms); i++ {
		assert.Less(t, norms[i], norms[i-1], "iteration %d", i)
	}
	assert.Less(t, norms[len(norms)-1], cfg.NewtonTol)
}

func TestSolve_ZeroInitialConditionStaysZero(t *testing.T) {
	msh := mesh.UnitCube(2)
	cfg := testConfig()
	cfg.InitialCondition = ConstantCoefficient(0)
	cfg.OutputEvery = 1
	sink := &recordingSink{}
	require.NoError(t, Run(cfg, msh, mesh.PartitionBlock(msh.NumElements(), 2), 2, sink))
	for _, v := range sink.last {
		assert.Zero(t, v)
	}
}

func TestSolve_StepCountAndCadence(t *testing.T) {
	msh := mesh.UnitCube(2)

	cfg := testConfig()
	cfg.FinalTime = 1.0
	cfg.Dt = 0.1
	cfg.OutputEvery = 1
	sink := &recordingSink{}
	require.NoError(t, Run(cfg, msh, mesh.PartitionBlock(msh.NumElements(), 1), 1, sink))
	// initial frame plus one per step, 10 steps total
	require.Len(t, sink.frames, 11)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, sink.frames)
	assert.InDelta(t, 1.0, sink.times[len(sink.times)-1], 1e-12)

	cfg.FinalTime = 0.6
	cfg.OutputEvery = 3
	sink = &recordingSink{}
	require.NoError(t, Run(cfg, msh, mesh.PartitionBlock(msh.NumElements(), 1), 1, sink))
	// t=0 plus steps 3 and 6
	require.Len(t, sink.frames, 3)
	assert.InDelta(t, 0.3, sink.times[1], 1e-12)
	assert.InDelta(t, 0.6, sink.times[2], 1e-12)
}

func TestSolve_RankCountDoesNotChangeSolution(t *testing.T) {
	msh := mesh.UnitCube(2)
	cfg := testConfig()

	fields := make([]map[[3]float64]float64, 0, 2)
	for _, nparts := range []int{1, 3} {
		epart := mesh.PartitionBlock(msh.NumElements(), nparts)
		part, err := dofs.Distribute(msh, cfg.Degree, epart, nparts)
		require.NoError(t, err)
		sink := &recordingSink{}
		c := cfg
		c.OutputEvery = 3 // capture the final step
		require.NoError(t, RunPartitioned(c, msh, part, sink))
		require.NotEmpty(t, sink.last)

		// key by support point so differing global numberings compare
		byCoord := make(map[[3]float64]float64, len(sink.last))
		for g, v := range sink.last {
			byCoord[part.Coords[g]] = v
		}
		fields = append(fields, byCoord)
	}

	require.Equal(t, len(fields[0]), len(fields[1]))
	for p, v := range fields[0] {
		assert.InDelta(t, v, fields[1][p], 1e-10, "support point %v", p)
	}
}

func TestSolve_AbortOnDivergence(t *testing.T) {
	msh := mesh.UnitCube(1)
	cfg := testConfig()
	cfg.InitialCondition = ConstantCoefficient(0.5) // nonzero residual everywhere
	cfg.NewtonMax = 1
	cfg.NewtonTol = 1e-300 // unreachable
	cfg.AbortOnDivergence = true
	err := Run(cfg, msh, mesh.PartitionBlock(msh.NumElements(), 1), 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "diverged")
}
