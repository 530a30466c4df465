package amr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// linearInit seeds a state with the cell center coordinate of the unit
// domain, a profile every transfer operator here reproduces exactly
func linearInit(lv *Level, name string, mf *MultiField) {
	for p, b := range mf.Boxes {
		for c := b.Lo; c <= b.Hi; c++ {
			mf.Set(p, 0, c, xCenter(lv, c))
		}
	}
}

func xCenter(lv *Level, c int) float64 {
	return (float64(c) + 0.5) / float64(lv.Domain.Size())
}

func twoLevelHierarchy(t *testing.T, periodic bool, tag Box) *Hierarchy {
	t.Helper()
	h := NewHierarchy(16, 1, 2, []int{4}, 2, periodic)
	h.AddState("q", 1, 2, []BCType{BCExtrap})
	h.Tagger = func(lv *Level, time float64) []Box {
		if lv.Index > 0 {
			return nil
		}
		return []Box{tag}
	}
	h.InitFromScratch(0, linearInit)
	return h
}

func TestInitFromScratch(t *testing.T) {
	h := twoLevelHierarchy(t, true, Box{4, 7})
	assert.Equal(t, 1, h.FinestLevel())
	// tag [4,7] refines to [8,15]; blocking factor 4 keeps it intact
	assert.Equal(t, []Box{{8, 15}}, h.GetLevel(1).Boxes)
	// level data is seeded exactly, ghosts included
	for lev := 0; lev <= 1; lev++ {
		sd := h.GetLevel(lev).State("q")
		assert.False(t, sd.Cur.ContainsNaN(true))
		assert.False(t, sd.New.ContainsNaN(true))
	}
}

func TestFillBoundaryPeriodic(t *testing.T) {
	h := NewHierarchy(8, 0, 2, []int{4}, 0, true)
	h.AddState("q", 1, 2, []BCType{BCExtrap})
	h.InitFromScratch(0, linearInit)
	var (
		lv = h.GetLevel(0)
		mf = lv.State("q").Cur
	)
	lv.FillBoundary(mf, "q", 0, FillFull)
	// ghosts wrap around the domain
	assert.Equal(t, mf.At(0, 0, 7), mf.At(0, 0, -1))
	assert.Equal(t, mf.At(0, 0, 6), mf.At(0, 0, -2))
	assert.Equal(t, mf.At(0, 0, 0), mf.At(0, 0, 8))
	assert.Equal(t, mf.At(0, 0, 1), mf.At(0, 0, 9))
}

func TestPhysicalFill(t *testing.T) {
	h := NewHierarchy(8, 0, 2, []int{4}, 0, false)
	h.AddState("q", 3, 1, []BCType{BCExtrap, BCReflectEven, BCReflectOdd})
	h.InitFromScratch(0, func(lv *Level, name string, mf *MultiField) {
		for c := 0; c <= 7; c++ {
			for comp := 0; comp < 3; comp++ {
				mf.Set(0, comp, c, float64(c+1))
			}
		}
	})
	var (
		lv = h.GetLevel(0)
		mf = lv.State("q").Cur
	)
	lv.FillBoundary(mf, "q", 0, FillFull)
	// extrapolation copies the edge cell
	assert.Equal(t, 1., mf.At(0, 0, -1))
	assert.Equal(t, 8., mf.At(0, 0, 8))
	// even reflection mirrors, odd reflection mirrors with a sign flip
	assert.Equal(t, 1., mf.At(0, 1, -1))
	assert.Equal(t, 8., mf.At(0, 1, 8))
	assert.Equal(t, -1., mf.At(0, 2, -1))
	assert.Equal(t, -8., mf.At(0, 2, 8))
}

func TestCoarseFillLinear(t *testing.T) {
	h := twoLevelHierarchy(t, true, Box{4, 7})
	var (
		fine = h.GetLevel(1)
		mf   = fine.State("q").Cur
	)
	mf.SetVal(0)
	linearInit(fine, "q", mf)
	fine.FillBoundary(mf, "q", 0, FillCoarsePatch)
	// ghosts outside the fine patch come from conservative linear coarse
	// interpolation, exact for a linear profile
	for _, c := range []int{6, 7, 16, 17} {
		assert.True(t, near(mf.At(0, 0, c), xCenter(fine, c), 1.e-13))
	}
}

func TestAverageDownLinear(t *testing.T) {
	var (
		h    = twoLevelHierarchy(t, true, Box{4, 7})
		crse = h.GetLevel(0)
		fine = h.GetLevel(1)
		cf   = crse.State("q").Cur
		ff   = fine.State("q").Cur
	)
	// perturb the covered coarse cells, then restore them by restriction
	for c := 4; c <= 7; c++ {
		cf.Set(0, 0, c, -1)
	}
	crse.AverageDown(cf, ff)
	for c := 4; c <= 7; c++ {
		assert.True(t, near(cf.At(0, 0, c), xCenter(crse, c), 1.e-13))
	}
	// uncovered coarse cells are untouched
	assert.True(t, near(cf.At(0, 0, 2), xCenter(crse, 2), 1.e-13))
}

func TestRegridMigratesData(t *testing.T) {
	var (
		tag = Box{4, 7}
		h   = NewHierarchy(16, 1, 2, []int{4}, 2, true)
	)
	h.AddState("q", 1, 2, []BCType{BCExtrap})
	h.Tagger = func(lv *Level, time float64) []Box {
		if lv.Index > 0 {
			return nil
		}
		return []Box{tag}
	}
	h.InitFromScratch(0, linearInit)
	assert.Equal(t, []Box{{8, 15}}, h.GetLevel(1).Boxes)

	// shift the tagged region and regrid: the fine level moves
	tag = Box{6, 9}
	changed := h.Regrid(0, 0)
	assert.True(t, changed)
	assert.Equal(t, []Box{{12, 19}}, h.GetLevel(1).Boxes)

	// overlap with the old layout is copied, the rest interpolated from
	// the coarse level; both are exact for the linear profile
	var (
		fine = h.GetLevel(1)
		mf   = fine.State("q").Cur
	)
	for c := 12; c <= 19; c++ {
		assert.True(t, near(mf.At(0, 0, c), xCenter(fine, c), 1.e-13))
	}

	// regridding with unchanged tags reports no shape change
	assert.False(t, h.Regrid(0, 0))
}

func TestOkToRegrid(t *testing.T) {
	h := twoLevelHierarchy(t, true, Box{4, 7})
	assert.False(t, h.OkToRegrid(0))
	h.LevelCount[0] = 2
	assert.True(t, h.OkToRegrid(0))
	// the finest allowed level never regrids
	h.LevelCount[1] = 99
	assert.False(t, h.OkToRegrid(1))
	// disabled interval policy
	h.RegridInt = 0
	assert.False(t, h.OkToRegrid(0))
}

func TestComputeNewDt(t *testing.T) {
	h := twoLevelHierarchy(t, true, Box{4, 7})
	h.DtEstimator = func(lv *Level) float64 { return 0.5 / float64(lv.Index+1) }
	// the most restrictive level wins, every level gets the same dt
	dt := h.ComputeNewDt(0, 10)
	assert.True(t, near(dt, 0.25, 1.e-14))
	assert.Equal(t, h.DtLevel[0], h.DtLevel[1])
	// clipped to the stop time
	dt = h.ComputeNewDt(9.9, 10)
	assert.True(t, near(dt, 0.1, 1.e-12))
}

func TestCycleStates(t *testing.T) {
	h := twoLevelHierarchy(t, true, Box{4, 7})
	sd := h.GetLevel(0).State("q")
	sd.New.SetVal(7)
	h.CycleStates()
	assert.Equal(t, 7., h.GetLevel(0).State("q").Cur.At(0, 0, 0))
}
