package mlsdc

import (
	"math"
	"testing"

	"github.com/notargets/mlsdc/amr"
	"github.com/notargets/mlsdc/model_problems"
	"github.com/stretchr/testify/assert"
)

func TestNodeCount(t *testing.T) {
	// 1 + (base-1)*ratio^level
	assert.Equal(t, 3, NodeCount(3, 2, 0))
	assert.Equal(t, 5, NodeCount(3, 2, 1))
	assert.Equal(t, 9, NodeCount(3, 2, 2))
	assert.Equal(t, 28, NodeCount(4, 3, 2))
	// ratio 1 keeps the node count flat
	assert.Equal(t, 3, NodeCount(3, 1, 5))
	assert.Panics(t, func() { NodeCount(1, 2, 0) })
	assert.Panics(t, func() { NodeCount(3, 0, 0) })
}

func TestBlockingFactorAbort(t *testing.T) {
	op := model_problems.NewAdvectionDiffusion(1, 0, 0.5, 1, model_problems.CONSTANT)
	// refined runs reject blocking factors below 4
	{
		h := amr.NewHierarchy(16, 1, 2, []int{2}, 2, true)
		assert.Panics(t, func() { NewController(h, op, Config{}) })
	}
	// single level runs do not care
	{
		h := amr.NewHierarchy(16, 0, 2, []int{2}, 0, true)
		assert.NotPanics(t, func() { NewController(h, op, Config{}) })
	}
}

// constantFixture is a two level periodic hierarchy holding a constant
// state, with the fine level forced over the middle of the domain
func constantFixture(t *testing.T, cfg Config) (h *amr.Hierarchy, c *Controller) {
	t.Helper()
	op := model_problems.NewAdvectionDiffusion(1, 0.1, 0.5, 1, model_problems.CONSTANT)
	h = amr.NewHierarchy(32, 1, 2, []int{4}, 0, true)
	h.AddState(op.StateName, 1, 2, []amr.BCType{amr.BCExtrap})
	h.Tagger = func(lv *amr.Level, time float64) []amr.Box {
		if lv.Index > 0 {
			return nil
		}
		return []amr.Box{{Lo: 8, Hi: 15}}
	}
	h.InitFromScratch(0, op.InitData)
	h.SetDt(0.01)
	c = NewController(h, op, cfg)
	return
}

func TestRebuildIdempotence(t *testing.T) {
	_, c := constantFixture(t, Config{MaxIters: 2})
	c.RebuildMLSDC()
	var (
		levels = c.MG.NLevels()
		nodes  []int
	)
	for lev := 0; lev < levels; lev++ {
		nodes = append(nodes, c.Sweepers[lev].IMEX.NodeSet.NNodes)
	}
	assert.Equal(t, []int{3, 5}, nodes)
	// rebuilding with an unchanged hierarchy reproduces the same stack
	c.RebuildMLSDC()
	assert.Equal(t, levels, c.MG.NLevels())
	for lev := 0; lev < levels; lev++ {
		assert.Equal(t, nodes[lev], c.Sweepers[lev].IMEX.NodeSet.NNodes)
	}
	assert.Equal(t, 2, c.Rebuilds)
}

func TestSeedingAndFinalization(t *testing.T) {
	h, c := constantFixture(t, Config{MaxIters: 2})
	c.Step(0, 0, 0, 1, 0)
	for lev := 0; lev <= h.FinestLevel(); lev++ {
		var (
			sw = c.Sweepers[lev].IMEX
			sd = h.GetLevel(lev).State("state")
		)
		// Q[0] still holds the seed, bit for bit
		for p, b := range sd.Cur.Boxes {
			for cell := b.Lo; cell <= b.Hi; cell++ {
				assert.Equal(t, sd.Cur.At(p, 0, cell), sw.Q[0].At(p, 0, cell))
			}
		}
		// the new slot holds the final node, bit for bit
		qEnd := sw.Q[sw.NodeSet.NNodes-1]
		for p, b := range sd.New.Boxes {
			for cell := b.Lo; cell <= b.Hi; cell++ {
				assert.Equal(t, qEnd.At(p, 0, cell), sd.New.At(p, 0, cell))
			}
		}
		// time levels were stamped for the step
		assert.Equal(t, 0.01, sd.TNew)
		assert.Equal(t, 0., sd.TOld)
	}
}

func TestConstantFieldIsPreserved(t *testing.T) {
	for _, iters := range []int{1, 4} {
		h, c := constantFixture(t, Config{MaxIters: iters})
		c.Step(0, 0, 0, 1, 0)
		// advection and diffusion of a constant vanish identically, so
		// every level's corrected solution stays at 1 through spreads,
		// sweeps, restrictions and FAS corrections
		for lev := 0; lev <= h.FinestLevel(); lev++ {
			sd := h.GetLevel(lev).State("state")
			for p, b := range sd.New.Boxes {
				for cell := b.Lo; cell <= b.Hi; cell++ {
					assert.True(t, near(sd.New.At(p, 0, cell), 1, 1.e-12))
				}
			}
		}
	}
}

func TestStepRejectsNonBaseLevel(t *testing.T) {
	_, c := constantFixture(t, Config{MaxIters: 1})
	assert.Panics(t, func() { c.Step(1, 0, 0, 1, 0) })
}

func TestStepRequiresDt(t *testing.T) {
	h, c := constantFixture(t, Config{MaxIters: 1})
	h.SetDt(0)
	assert.Panics(t, func() { c.Step(0, 0, 0, 1, 0) })
}

func TestRegridTriggersRebuild(t *testing.T) {
	op := model_problems.NewAdvectionDiffusion(0.5, 0.01, 0.5, 1, model_problems.GAUSSIAN)
	op.GradTol = 2
	h := amr.NewHierarchy(32, 1, 2, []int{4}, 1, true)
	h.AddState(op.StateName, 1, 2, []amr.BCType{amr.BCExtrap})
	h.Tagger = op.TagCells
	h.DtEstimator = op.EstimateDt
	h.InitFromScratch(0, op.InitData)
	assert.Equal(t, 1, h.FinestLevel())
	h.SetDt(0.001)
	c := NewController(h, op, Config{MaxIters: 2})

	// the first step builds the arena lazily but has nothing to regrid
	c.Step(0, 0, 0, 2, 0)
	assert.Equal(t, 1, c.Rebuilds)
	assert.Equal(t, 1, h.LevelCount[0])

	// with regrid_int 1 the second step regrids the base level, and a
	// regrid always rebuilds the integration hierarchy; the regrid resets
	// the interval counter before the step's own increment
	c.Step(0, 0.001, 1, 2, 0)
	assert.Equal(t, 2, c.Rebuilds)
	assert.Equal(t, 1, h.LevelCount[0])
}

func TestDiffusionDecayRate(t *testing.T) {
	var (
		n  = 32
		op = model_problems.NewAdvectionDiffusion(0, 0.1, 0.5, 1, model_problems.SINE)
		h  = amr.NewHierarchy(n, 0, 2, []int{4}, 0, true)
	)
	h.AddState(op.StateName, 1, 2, []amr.BCType{amr.BCExtrap})
	h.InitFromScratch(0, op.InitData)
	dt := 0.01
	h.SetDt(dt)
	c := NewController(h, op, Config{})
	c.Step(0, 0, 0, 1, 0)

	// the discrete sine mode decays at the centered Laplacian rate
	var (
		dx = 1.0 / float64(n)
		mu = op.Nu * (2 - 2*math.Cos(2*math.Pi*dx)) / (dx * dx)
		sd = h.GetLevel(0).State("state")
	)
	for cell := 0; cell < n; cell++ {
		want := math.Exp(-mu*dt) * math.Sin(2*math.Pi*(float64(cell)+0.5)*dx)
		assert.True(t, near(sd.New.At(0, 0, cell), want, 1.e-9))
	}
}
