package mlsdc

import (
	"fmt"
	"math"

	"github.com/notargets/mlsdc/amr"
	"github.com/notargets/mlsdc/sdc"
)

// Config carries the controller knobs; zero values take the defaults
type Config struct {
	MaxIters  int    // correction sweeps per coarse step, default 22
	MaxTrefs  int    // temporal sub-refinements, bookkeeping only, default 3
	BaseNodes int    // quadrature nodes on the base level, default 3
	TimeRatio int    // node growth ratio per level, default 2
	StateName string // the state field the controller integrates, default "state"
	Verbose   int
}

func (cfg *Config) applyDefaults() {
	if cfg.MaxIters == 0 {
		cfg.MaxIters = 22
	}
	if cfg.MaxTrefs == 0 {
		cfg.MaxTrefs = 3
	}
	if cfg.BaseNodes == 0 {
		cfg.BaseNodes = 3
	}
	if cfg.TimeRatio == 0 {
		cfg.TimeRatio = 2
	}
	if cfg.StateName == "" {
		cfg.StateName = "state"
	}
}

/*
	Controller drives the whole hierarchy through one coarse step per
	Step call: regrid, seed the node storage from the mesh solution,
	spread, run exactly MaxIters correction sweeps, and copy the
	corrected end-of-step solution back into the mesh.

	The sweeper arena is index aligned with the hierarchy's levels and is
	rebuilt as a unit whenever the hierarchy's shape changes; a partially
	rebuilt state is never observable because the fresh slice is swapped
	in only after every level is registered.
*/
type Controller struct {
	H        *amr.Hierarchy
	Op       Operator
	Cfg      Config
	MG       *sdc.MG[*amr.MultiField]
	Sweepers []*LevelSweeper

	Rebuilds int // diagnostic: completed rebuilds of the sweeper arena
	subSteps int // post-step hook invocations, sub-step bookkeeping
}

func NewController(h *amr.Hierarchy, op Operator, cfg Config) (c *Controller) {
	cfg.applyDefaults()
	if h.MaxLevel > 0 {
		for i := 0; i <= h.MaxLevel; i++ {
			if h.BlockingFactor(i) < 4 {
				panic(fmt.Errorf("for AMR runs, set blocking_factor to at least 4 (level %d has %d)",
					i, h.BlockingFactor(i)))
			}
		}
	}
	c = &Controller{
		H:   h,
		Op:  op,
		Cfg: cfg,
		MG:  sdc.NewMG[*amr.MultiField](h.MaxLevel + 1),
	}
	c.MG.Hooks.Add(sdc.HookPostTrans, c.postStepHook)
	return
}

func (c *Controller) postStepHook(s *sdc.State) { c.subSteps++ }

/*
	RebuildMLSDC tears down every sweeper and its node storage, then
	creates a fresh one per current hierarchy level with its transfer to
	the coarser neighbor, and sets up and allocates the multilevel stack.
	All or nothing: the new arena replaces the old only once complete.
*/
func (c *Controller) RebuildMLSDC() {
	c.MG.Reset()
	for _, ls := range c.Sweepers {
		if ls != nil {
			ls.Destroy()
		}
	}
	arena := make([]*LevelSweeper, c.H.MaxLevel+1)
	for lev := 0; lev <= c.H.FinestLevel(); lev++ {
		var (
			lv    = c.H.GetLevel(lev)
			ls    = c.buildLevelSweeper(lv)
			trans sdc.Transfer[*amr.MultiField]
		)
		if lev > 0 {
			trans = &levelTransfer{fine: lv, crse: c.H.GetLevel(lev - 1)}
		}
		c.MG.AddLevel(ls.IMEX, trans)
		arena[lev] = ls
	}
	c.MG.Setup()
	c.MG.Allocate()
	c.Sweepers = arena
	c.Rebuilds++
	if c.Cfg.Verbose > 0 {
		fmt.Printf("Rebuilt MLSDC: %d levels\n", c.MG.NLevels())
	}
}

// Regrid triggers the mesh provider's regrid and then unconditionally
// rebuilds the integration hierarchy
func (c *Controller) Regrid(lbase int, time float64, initial bool) {
	if !initial {
		c.H.Regrid(lbase, time)
	}
	c.RebuildMLSDC()
}

/*
	Step advances every level of the hierarchy by one coarse step.
	Multilevel stepping always starts at the base level. On return the
	"new" slot of the integrated state holds the corrected end-of-step
	solution on every level.
*/
func (c *Controller) Step(level int, time float64, iteration, niter int, stopTime float64) {
	if level != 0 {
		panic(fmt.Errorf("multilevel stepping always starts at the base level, got %d", level))
	}
	if c.Sweepers == nil || c.Sweepers[0] == nil {
		c.RebuildMLSDC()
	}
	c.regridPhase(level, time, stopTime)
	dt := c.H.DtLevel[0]
	if !(dt > 0) {
		panic(fmt.Errorf("Step: no positive dt set on the hierarchy (dt=%g)", dt))
	}
	c.seedPhase(time, dt)

	if c.Cfg.Verbose > 0 {
		fmt.Printf("MLSDC advancing with dt: %g\n", dt)
	}
	c.MG.Spread(time, dt)

	for k := 0; k < c.Cfg.MaxIters; k++ {
		c.MG.Sweep(time, dt, k == c.Cfg.MaxIters-1)
		if c.Cfg.Verbose > 0 {
			c.reportResiduals(k)
		}
	}

	c.finalizePhase()

	for lev := 0; lev <= c.H.FinestLevel(); lev++ {
		c.H.LevelSteps[lev]++
		c.H.LevelCount[lev]++
	}
	if c.Cfg.Verbose > 0 {
		fmt.Printf("Advanced %d cells at level %d\n", c.H.GetLevel(level).CountCells(), level)
	}
}

// regridPhase walks the levels from the base up, regridding any that
// are due and rebuilding the sweeper arena after every actual regrid.
// The loop bound is re-evaluated because the finest level can change.
func (c *Controller) regridPhase(level int, time, stopTime float64) {
	levTop := min(c.H.FinestLevel(), c.H.MaxLevel-1)
	for i := level; i <= levTop; i++ {
		oldFinest := c.H.FinestLevel()
		if c.H.OkToRegrid(i) {
			c.H.Regrid(i, time)
			c.H.ComputeNewDt(time, stopTime)
			for k := i; k <= c.H.FinestLevel(); k++ {
				c.H.LevelCount[k] = 0
			}
			c.RebuildMLSDC()
		}
		if oldFinest > c.H.FinestLevel() {
			levTop = min(c.H.FinestLevel(), c.H.MaxLevel-1)
		}
	}
}

// seedPhase copies the mesh hierarchy's current solution into Q[0] on
// every level and stamps the state time levels
func (c *Controller) seedPhase(time, dt float64) {
	for lev := 0; lev <= c.H.FinestLevel(); lev++ {
		var (
			lv   = c.H.GetLevel(lev)
			sd   = lv.State(c.Cfg.StateName)
			mode = amr.FillFull
		)
		if lev > 0 {
			mode = amr.FillCoarsePatch
		}
		lv.FillBoundary(sd.Cur, sd.Name, time, mode)
		Q0 := c.Sweepers[lev].IMEX.Q[0]
		if amr.StrictChecks {
			Q0.SetVal(math.NaN())
		}
		Q0.CopyFrom(sd.Cur)
		Q0.AssertNoNaN(true, fmt.Sprintf("seeded Q[0] on level %d", lev))
		sd.SetTimeLevel(time+dt, dt)
	}
}

// finalizePhase copies each level's final node into the mesh
// hierarchy's new-solution slot
func (c *Controller) finalizePhase() {
	for lev := 0; lev <= c.H.FinestLevel(); lev++ {
		var (
			sw   = c.Sweepers[lev].IMEX
			qEnd = sw.Q[sw.NodeSet.NNodes-1]
			sd   = c.H.GetLevel(lev).State(c.Cfg.StateName)
		)
		sd.New.CopyFrom(qEnd)
	}
}

func (c *Controller) reportResiduals(iter int) {
	for lev := 0; lev <= c.H.FinestLevel(); lev++ {
		var (
			sw = c.Sweepers[lev].IMEX
			R  = sw.R[sw.NodeSet.NNodes-2]
		)
		fmt.Printf("MLSDC iter: %d, level: %d, res norm0: %g, res norm2: %g\n",
			iter, lev, R.Norm0(), R.Norm2())
	}
}

// ResidualNorms exposes the diagnostic norms of the whole-interval
// residual on one level after a sweep
func (c *Controller) ResidualNorms(lev int) (norm0, norm2 float64) {
	sw := c.Sweepers[lev].IMEX
	R := sw.R[sw.NodeSet.NNodes-2]
	return R.Norm0(), R.Norm2()
}
