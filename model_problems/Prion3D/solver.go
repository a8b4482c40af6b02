package Prion3D

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/RobertoNeglia/NM4PDE-cluster-code/dofs"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/fem"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/la"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/mesh"
	"github.com/RobertoNeglia/NM4PDE-cluster-code/pgroup"
)

// Config collects the physical and numerical parameters of a run. Zero
// fields are filled by ApplyDefaults; Validate rejects combinations the
// solver cannot honor.
type Config struct {
	// physics
	Alpha         Coefficient // reaction (growth) rate, evaluated pointwise
	DExt          float64     // isotropic extracellular diffusion
	DAxn          float64     // axonal diffusion along AxonDirection
	AxonDirection [3]float64  // preferred transport direction

	InitialCondition Coefficient

	// discretization
	Degree int // Lagrange polynomial degree, 1 or 2

	// time stepping
	FinalTime float64
	Dt        float64

	// nonlinear and linear solve controls
	NewtonTol         float64
	NewtonMax         int
	LinearRTol        float64
	LinearMax         int
	AbortOnDivergence bool

	// output
	OutputEvery int // snapshot cadence in time steps; 0 disables periodic output
	FieldName   string
	Quiet       bool
}

func (c *Config) ApplyDefaults() {
	if c.Alpha == nil {
		c.Alpha = ConstantCoefficient(2.0)
	}
	if c.DExt == 0 {
		c.DExt = 5.0
	}
	if c.AxonDirection == ([3]float64{}) {
		c.AxonDirection = [3]float64{1, 1, 1}
	}
	if c.Degree == 0 {
		c.Degree = 1
	}
	if c.NewtonTol == 0 {
		c.NewtonTol = 1e-10
	}
	if c.NewtonMax == 0 {
		c.NewtonMax = 1000
	}
	if c.LinearRTol == 0 {
		c.LinearRTol = 1e-6
	}
	if c.LinearMax == 0 {
		c.LinearMax = 1000
	}
	if c.FieldName == "" {
		c.FieldName = "c"
	}
	if c.InitialCondition == nil {
		c.InitialCondition = DefaultCubeBump()
	}
}

func (c *Config) Validate() error {
	switch {
	case c.Dt <= 0:
		return fmt.Errorf("time step must be positive, have %g", c.Dt)
	case c.FinalTime <= 0:
		return fmt.Errorf("final time must be positive, have %g", c.FinalTime)
	case c.DExt < 0 || c.DAxn < 0:
		return fmt.Errorf("diffusion coefficients must be non-negative, have d_ext=%g d_axn=%g", c.DExt, c.DAxn)
	case c.NewtonTol <= 0 || c.LinearRTol <= 0:
		return fmt.Errorf("solver tolerances must be positive")
	case c.NewtonMax < 1 || c.LinearMax < 1:
		return fmt.Errorf("iteration caps must be at least 1")
	case c.Degree != 1 && c.Degree != 2:
		return fmt.Errorf("unsupported polynomial degree %d, have 1 and 2", c.Degree)
	case c.OutputEvery < 0:
		return fmt.Errorf("output cadence must be non-negative, have %d", c.OutputEvery)
	}
	return nil
}

// NewtonState is the outcome of one nonlinear solve.
type NewtonState int

const (
	Iterating NewtonState = iota
	Converged
	Diverged
)

// Solver advances the misfolded-protein concentration on one rank of the
// process group. All ranks execute the same call sequence; collective
// operations on the distributed vectors and matrix keep them in lockstep.
type Solver struct {
	cfg  Config
	msh  *mesh.Mesh
	part *dofs.Partition
	comm *pgroup.Comm
	env  *la.Env

	el *fem.Element
	fv *fem.FEValues
	D  [3][3]float64

	jac *la.Matrix
	res *la.Vector
	du  *la.Vector

	u    *la.Vector // current Newton iterate, ghosts kept fresh
	uOld *la.Vector // solution at the previous time step
}

// NewSolver builds the per-rank solver state. cfg must already have
// defaults applied and pass Validate.
func NewSolver(cfg Config, msh *mesh.Mesh, part *dofs.Partition, comm *pgroup.Comm, env *la.Env) (*Solver, error) {
	el, err := fem.NewElement(part.Degree)
	if err != nil {
		return nil, err
	}
	lay := part.Layouts[comm.Rank()]
	s := &Solver{
		cfg:  cfg,
		msh:  msh,
		part: part,
		comm: comm,
		env:  env,
		el:   el,
		fv:   fem.NewFEValues(el),
		D:    Diffusivity(cfg.DExt, cfg.DAxn, cfg.AxonDirection),
		jac:  la.NewMatrix(lay, comm, env),
		res:  la.NewVector(lay, comm, env),
		du:   la.NewVector(lay, comm, env),
		u:    la.NewVector(lay, comm, env),
		uOld: la.NewVector(lay, comm, env),
	}
	return s, nil
}

// Solution exposes the current iterate, mainly for tests and output.
func (s *Solver) Solution() *la.Vector { return s.u }

func (s *Solver) logf(format string, args ...interface{}) {
	if s.comm.IsRoot() && !s.cfg.Quiet {
		fmt.Printf(format, args...)
	}
}

// interpolateInitialCondition evaluates the seeding profile at the support
// points of the owned DOFs and refreshes ghosts so assembly can start.
func (s *Solver) interpolateInitialCondition() {
	lay := s.part.Layouts[s.comm.Rank()]
	for g := lay.Begin; g < lay.End; g++ {
		s.u.SetOwned(g, s.cfg.InitialCondition.Value(s.part.Coords[g]))
	}
	s.u.UpdateGhosts()
	s.uOld.CopyFrom(s.u)
}

// assembleSystem rebuilds the Newton residual and Jacobian around the
// current iterate for an implicit Euler step of size dt. With u_k the
// iterate and u_old the previous step, each cell contributes
//
//	J_ij += (φi φj / dt + ∇φi·D·∇φj − φi α (1 − 2 u_k) φj) JxW
//	R_i  += (−φi (u_k − u_old)/dt − ∇φi·D·∇u_k + φi α u_k (1 − u_k)) JxW
//
// so that J δ = R yields the Newton update δ to be added to u_k.
func (s *Solver) assembleSystem() error {
	s.jac.Zero()
	s.res.Zero()

	nd := s.el.NDofs
	cellJ := mat.NewDense(nd, nd, nil)
	cellR := make([]float64, nd)
	dt := s.cfg.Dt

	for _, k := range s.part.OwnedElems[s.comm.Rank()] {
		if err := s.fv.Reinit(s.msh.ElemVerts(k)); err != nil {
			return fmt.Errorf("element %d: %w", k, err)
		}
		cellJ.Zero()
		for i := range cellR {
			cellR[i] = 0
		}
		ed := s.part.ElemDofs[k]

		for q := 0; q < s.el.Quad.Len(); q++ {
			w := s.fv.JxW[q]
			phi := s.el.Values[q]
			grads := s.fv.Grads[q]
			alpha := s.cfg.Alpha.Value(s.fv.QPoints[q])

			// iterate and previous solution at the quadrature point
			var uk, uold float64
			var gradU [3]float64
			for j := 0; j < nd; j++ {
				uj := s.u.At(ed[j])
				uk += phi[j] * uj
				uold += phi[j] * s.uOld.At(ed[j])
				for d := 0; d < 3; d++ {
					gradU[d] += grads[j][d] * uj
				}
			}
			var dGradU [3]float64
			for d := 0; d < 3; d++ {
				dGradU[d] = s.D[d][0]*gradU[0] + s.D[d][1]*gradU[1] + s.D[d][2]*gradU[2]
			}

			for i := 0; i < nd; i++ {
				gi := grads[i]
				cellR[i] += (-phi[i]*(uk-uold)/dt -
					(gi[0]*dGradU[0] + gi[1]*dGradU[1] + gi[2]*dGradU[2]) +
					phi[i]*alpha*uk*(1-uk)) * w

				var dGj [3]float64
				for j := 0; j < nd; j++ {
					gj := grads[j]
					for d := 0; d < 3; d++ {
						dGj[d] = s.D[d][0]*gj[0] + s.D[d][1]*gj[1] + s.D[d][2]*gj[2]
					}
					cellJ.Set(i, j, cellJ.At(i, j)+
						(phi[i]*phi[j]/dt+
							gi[0]*dGj[0]+gi[1]*dGj[1]+gi[2]*dGj[2]-
							phi[i]*alpha*(1-2*uk)*phi[j])*w)
				}
			}
		}

		for i, gi := range ed {
			s.res.Add(gi, cellR[i])
			for j, gj := range ed {
				s.jac.Add(gi, gj, cellJ.At(i, j))
			}
		}
	}

	s.jac.Compress()
	s.res.Compress()
	return nil
}

// solveLinearSystem solves J δ = R by preconditioned CG and leaves δ in du.
// Hitting the iteration cap is reported but not fatal; the degraded update
// still moves the Newton iterate.
func (s *Solver) solveLinearSystem() error {
	iters, err := la.SolveCG(s.jac, s.res, s.du, s.cfg.LinearRTol, s.cfg.LinearMax)
	if err != nil {
		var nc *la.NotConvergedError
		if !errors.As(err, &nc) {
			return err
		}
		s.logf("  linear solve stalled: %v\n", nc)
	}
	s.logf("  %d CG iterations\n", iters)
	return nil
}

// solveNewton drives the nonlinear solve for one time step: assemble,
// check the residual, solve for the update, apply it, repeat.
func (s *Solver) solveNewton() (NewtonState, error) {
	state := Iterating
	for it := 0; it < s.cfg.NewtonMax && state == Iterating; it++ {
		if err := s.assembleSystem(); err != nil {
			return Diverged, err
		}
		resNorm := s.res.Norm()
		s.logf("  Newton iteration %d/%d - ||r|| = %e\n", it, s.cfg.NewtonMax, resNorm)
		if resNorm < s.cfg.NewtonTol {
			state = Converged
			break
		}
		if math.IsNaN(resNorm) || math.IsInf(resNorm, 0) {
			state = Diverged
			break
		}
		if err := s.solveLinearSystem(); err != nil {
			return Diverged, err
		}
		s.u.AXPY(1, s.du)
		s.u.UpdateGhosts()
	}
	if state == Iterating {
		state = Diverged
	}
	if state == Diverged {
		if s.cfg.AbortOnDivergence {
			return state, fmt.Errorf("newton solve diverged after %d iterations", s.cfg.NewtonMax)
		}
		s.logf("  Newton did not converge, continuing with current iterate\n")
	}
	return state, nil
}

// Solve runs the full simulation: interpolate the initial seeding, then
// march implicit Euler steps until FinalTime, emitting snapshots to sink on
// the configured cadence. sink may be nil to discard output.
func (s *Solver) Solve(sink Sink) error {
	s.interpolateInitialCondition()

	frame := 0
	if err := s.writeOutput(sink, frame, 0); err != nil {
		return err
	}
	frame++

	step := 0
	for t := 0.0; t < s.cfg.FinalTime-0.5*s.cfg.Dt; {
		t += s.cfg.Dt
		step++
		s.logf("n = %d, t = %g\n", step, t)

		s.uOld.CopyFrom(s.u)
		if _, err := s.solveNewton(); err != nil {
			return err
		}

		if s.cfg.OutputEvery > 0 && step%s.cfg.OutputEvery == 0 {
			if err := s.writeOutput(sink, frame, t); err != nil {
				return err
			}
			frame++
		}
	}
	return nil
}
