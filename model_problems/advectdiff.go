package model_problems

import (
	"fmt"
	"math"

	"github.com/notargets/mlsdc/amr"
	"github.com/notargets/mlsdc/utils"
)

type InitType uint8

const (
	CONSTANT InitType = iota
	SINE
	GAUSSIAN
)

func NewInitType(label string) InitType {
	switch label {
	case "constant", "":
		return CONSTANT
	case "sine":
		return SINE
	case "gaussian":
		return GAUSSIAN
	}
	panic(fmt.Errorf("unknown initial condition %q", label))
}

func (it InitType) Print() string {
	return []string{"constant", "sine", "gaussian"}[it]
}

/*
	AdvectionDiffusion is the IMEX model operator driven by the
	multilevel controller: explicit upwind advection, implicit centered
	diffusion.

		u_t + A u_x = Nu u_xx
*/
type AdvectionDiffusion struct {
	A, Nu     float64 // advection speed, diffusivity
	CFL       float64
	Length    float64 // physical domain length
	GradTol   float64 // refinement threshold on |u_x|
	StateName string
	Case      InitType
}

func NewAdvectionDiffusion(a, nu, cfl, length float64, Case InitType) (op *AdvectionDiffusion) {
	op = &AdvectionDiffusion{
		A:         a,
		Nu:        nu,
		CFL:       cfl,
		Length:    length,
		GradTol:   math.Inf(1),
		StateName: "state",
		Case:      Case,
	}
	return
}

func (op *AdvectionDiffusion) dx(lv *amr.Level) float64 {
	return op.Length / float64(lv.Domain.Size())
}

// X is the physical center of a cell on a level
func (op *AdvectionDiffusion) X(lv *amr.Level, cell int) float64 {
	return op.dx(lv) * (float64(cell) + 0.5)
}

// InitData fills a state field with the selected initial condition
func (op *AdvectionDiffusion) InitData(lv *amr.Level, name string, mf *amr.MultiField) {
	for p, b := range mf.Boxes {
		for c := b.Lo; c <= b.Hi; c++ {
			x := op.X(lv, c)
			var val float64
			switch op.Case {
			case CONSTANT:
				val = 1
			case SINE:
				val = math.Sin(2 * math.Pi * x / op.Length)
			case GAUSSIAN:
				xc := 0.5 * op.Length
				val = math.Exp(-100 * (x - xc) * (x - xc) / (op.Length * op.Length))
			}
			for comp := 0; comp < mf.NComp; comp++ {
				mf.Set(p, comp, c, val)
			}
		}
	}
}

// EvalExplicit computes the upwinded advection term, patch parallel
func (op *AdvectionDiffusion) EvalExplicit(f, q *amr.MultiField, t float64, lv *amr.Level) {
	var (
		oodx = 1.0 / op.dx(lv)
		pm   = utils.NewPartitionMap(len(q.Boxes), len(q.Boxes))
	)
	lv.FillBoundary(q, op.StateName, t, amr.FillFull)
	pm.ParallelFor(func(p int) {
		b := q.Boxes[p]
		for comp := 0; comp < q.NComp; comp++ {
			for c := b.Lo; c <= b.Hi; c++ {
				var du float64
				if op.A >= 0 {
					du = q.At(p, comp, c) - q.At(p, comp, c-1)
				} else {
					du = q.At(p, comp, c+1) - q.At(p, comp, c)
				}
				f.Set(p, comp, c, -op.A*du*oodx)
			}
		}
	})
}

// EvalImplicit computes the centered diffusion term, patch parallel
func (op *AdvectionDiffusion) EvalImplicit(f, q *amr.MultiField, t float64, lv *amr.Level) {
	var (
		oodx2 = 1.0 / (op.dx(lv) * op.dx(lv))
		pm    = utils.NewPartitionMap(len(q.Boxes), len(q.Boxes))
	)
	lv.FillBoundary(q, op.StateName, t, amr.FillFull)
	pm.ParallelFor(func(p int) {
		b := q.Boxes[p]
		for comp := 0; comp < q.NComp; comp++ {
			for c := b.Lo; c <= b.Hi; c++ {
				lap := q.At(p, comp, c-1) - 2*q.At(p, comp, c) + q.At(p, comp, c+1)
				f.Set(p, comp, c, op.Nu*lap*oodx2)
			}
		}
	})
}

/*
	SolveImplicit performs the backward Euler style solve
	q - dt*Nu*Lap(q) = rhs, one small dense system per patch. A patch
	spanning a periodic domain couples through the wrap; otherwise the
	ghost values of q close the stencil. The reported f2 is recovered
	algebraically as (q - rhs)/dt so the sweeper's update relation holds
	exactly.
*/
func (op *AdvectionDiffusion) SolveImplicit(q, rhs *amr.MultiField, dt, t float64, f *amr.MultiField, lv *amr.Level) {
	var (
		dxv    = op.dx(lv)
		lambda = dt * op.Nu / (dxv * dxv)
	)
	lv.FillBoundary(q, op.StateName, t, amr.FillFull)
	for p, b := range q.Boxes {
		var (
			n        = b.Size()
			periodic = lv.H.Periodic && n == lv.Domain.Size()
		)
		A := utils.NewMatrix(n, n)
		for i := 0; i < n; i++ {
			A.Set(i, i, 1+2*lambda)
			if i > 0 {
				A.Set(i, i-1, -lambda)
			}
			if i < n-1 {
				A.Set(i, i+1, -lambda)
			}
		}
		if periodic {
			A.Set(0, n-1, A.At(0, n-1)-lambda)
			A.Set(n-1, 0, A.At(n-1, 0)-lambda)
		}
		for comp := 0; comp < q.NComp; comp++ {
			bvec := utils.NewMatrix(n, 1)
			for i := 0; i < n; i++ {
				bvec.Set(i, 0, rhs.At(p, comp, b.Lo+i))
			}
			if !periodic {
				// current ghost values close the stencil at patch edges
				bvec.Set(0, 0, bvec.At(0, 0)+lambda*q.At(p, comp, b.Lo-1))
				bvec.Set(n-1, 0, bvec.At(n-1, 0)+lambda*q.At(p, comp, b.Hi+1))
			}
			x := A.Solve(bvec)
			oodt := 1.0 / dt
			for i := 0; i < n; i++ {
				c := b.Lo + i
				q.Set(p, comp, c, x.At(i, 0))
				f.Set(p, comp, c, (x.At(i, 0)-rhs.At(p, comp, c))*oodt)
			}
		}
	}
}

// EstimateDt returns the advective CFL limit for a level; diffusion is
// integrated implicitly and does not restrict the step
func (op *AdvectionDiffusion) EstimateDt(lv *amr.Level) float64 {
	if op.A == 0 {
		return math.Inf(1)
	}
	return op.CFL * op.dx(lv) / math.Abs(op.A)
}

// TagCells marks cells whose solution gradient exceeds GradTol
func (op *AdvectionDiffusion) TagCells(lv *amr.Level, time float64) (tags []amr.Box) {
	var (
		sd    = lv.State(op.StateName)
		oo2dx = 0.5 / op.dx(lv)
	)
	if math.IsInf(op.GradTol, 1) {
		return
	}
	for p, b := range sd.Cur.Boxes {
		for c := b.Lo + 1; c < b.Hi; c++ {
			grad := (sd.Cur.At(p, 0, c+1) - sd.Cur.At(p, 0, c-1)) * oo2dx
			if math.Abs(grad) > op.GradTol {
				tags = append(tags, amr.Box{Lo: c, Hi: c})
			}
		}
	}
	tags = amr.MergeBoxes(tags)
	return
}
