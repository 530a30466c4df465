package mlsdc

import (
	"fmt"

	"github.com/notargets/mlsdc/amr"
	"github.com/notargets/mlsdc/sdc"
)

/*
	Operator is the physics collaborator: the split right hand side and
	the implicit solve the IMEX sweeper needs, always told which level it
	is working on.
*/
type Operator interface {
	// EvalExplicit computes the explicitly integrated piece f1(q,t)
	EvalExplicit(f, q *amr.MultiField, t float64, lv *amr.Level)
	// EvalImplicit computes the implicitly integrated piece f2(q,t)
	EvalImplicit(f, q *amr.MultiField, t float64, lv *amr.Level)
	// SolveImplicit solves q - dt*f2(q) = rhs and stores f2(q) into f
	SolveImplicit(q, rhs *amr.MultiField, dt, t float64, f *amr.MultiField, lv *amr.Level)
}

// LevelSweeper owns one level's node storage through its IMEX sweeper
// and ties the physics callbacks to that level
type LevelSweeper struct {
	Level *amr.Level
	IMEX  *sdc.IMEX[*amr.MultiField]
}

// NodeCount gives level k's quadrature resolution: finer levels carry
// geometrically more nodes
func NodeCount(baseNodes, timeRatio, level int) (nnodes int) {
	if baseNodes < 2 || timeRatio < 1 {
		panic(fmt.Errorf("NodeCount: bad node configuration base=%d ratio=%d", baseNodes, timeRatio))
	}
	r := 1
	for i := 0; i < level; i++ {
		r *= timeRatio
	}
	nnodes = 1 + (baseNodes-1)*r
	return
}

// buildLevelSweeper creates a sweeper sized for one hierarchy level and
// wires the physics callbacks and bookkeeping hook to it
func (c *Controller) buildLevelSweeper(lv *amr.Level) (ls *LevelSweeper) {
	var (
		nnodes = NodeCount(c.Cfg.BaseNodes, c.Cfg.TimeRatio, lv.Index)
		ns     = sdc.NewNodeSet(nnodes, sdc.GaussLobatto)
		op     = c.Op
		state  = c.Cfg.StateName
	)
	encap := sdc.EncapFunc[*amr.MultiField](func() *amr.MultiField {
		return lv.NewFieldLike(state)
	})
	sw := sdc.NewIMEX(ns, encap,
		func(f, q *amr.MultiField, t float64) { op.EvalExplicit(f, q, t, lv) },
		func(f, q *amr.MultiField, t float64) { op.EvalImplicit(f, q, t, lv) },
		func(q, rhs *amr.MultiField, dt, t float64, f *amr.MultiField) {
			op.SolveImplicit(q, rhs, dt, t, f, lv)
		})
	sw.Hooks.Add(sdc.HookPostStep, c.postStepHook)
	ls = &LevelSweeper{Level: lv, IMEX: sw}
	return
}

// Destroy releases the node storage and detaches from the step library
func (ls *LevelSweeper) Destroy() {
	ls.IMEX.Destroy()
	ls.Level = nil
}
