package mlsdc

import (
	"github.com/notargets/mlsdc/amr"
	"github.com/notargets/mlsdc/sdc"
)

/*
	levelTransfer binds one fine/coarse level pair and implements the
	step library's Transfer contract for it. It is stateless: both
	operators are pure functions of the fields and the two levels'
	geometry, safe to invoke repeatedly in any adjacent-level order.
*/
type levelTransfer struct {
	fine, crse *amr.Level
}

var _ sdc.Transfer[*amr.MultiField] = (*levelTransfer)(nil)

/*
	Interpolate produces the fine resolution image of the coarse field:
	build a coarse shadow of the fine layout (one coarse patch per fine
	patch, covering its ghost frame), copy the coarse data in, boundary
	fill, then interpolate every local fine patch from its shadow patch.
	The shadow must be NaN free after the fill; the fine field comes back
	fully valid including its ghost region.
*/
func (tr *levelTransfer) Interpolate(fine, crse *amr.MultiField, s *sdc.State) {
	var (
		ratio  = tr.crse.FineRatio()
		shadow *amr.MultiField
	)
	shadowBoxes := make([]amr.Box, len(fine.Boxes))
	for i := range fine.Boxes {
		shadowBoxes[i] = fine.GrownBox(i).Coarsen(ratio)
	}
	// one ghost ring for the slope stencil
	shadow = amr.NewMultiField(shadowBoxes, fine.NComp, 1, fine.BCs)

	tr.crse.FillFrom(shadow, crse, true)
	tr.crse.FillBoundary(shadow, "", s.T, amr.FillPhysical)
	shadow.AssertNoNaN(true, "coarse shadow ahead of interpolation")

	for p := range fine.Boxes {
		gb := fine.GrownBox(p)
		for comp := 0; comp < fine.NComp; comp++ {
			for c := gb.Lo; c <= gb.Hi; c++ {
				fine.Set(p, comp, c, interpFromShadow(shadow, p, comp, c, ratio))
			}
		}
	}

	tr.fine.FillBoundary(fine, "", s.T, amr.FillPhysical)
	fine.AssertNoNaN(true, "fine field after interpolation")
}

// interpFromShadow evaluates the conservative linear interpolant of
// shadow patch p at one fine cell
func interpFromShadow(shadow *amr.MultiField, p, comp, fineCell, ratio int) float64 {
	var (
		cc     = floorDiv(fineCell, ratio)
		q      = shadow.At(p, comp, cc)
		slope  = 0.5 * (shadow.At(p, comp, cc+1) - shadow.At(p, comp, cc-1))
		offset = (float64(fineCell-cc*ratio)+0.5)/float64(ratio) - 0.5
	)
	return q + slope*offset
}

/*
	Restrict averages the fine field down onto the coarse field's covered
	patches. A solution state is boundary filled on the way through so
	the coarse representation reflects updated boundary information; a
	correction term is averaged as-is.
*/
func (tr *levelTransfer) Restrict(fine, crse *amr.MultiField, s *sdc.State) {
	if s.Kind == sdc.KindSolution {
		tr.fine.FillBoundary(fine, "", s.T, amr.FillFull)
	}
	tr.crse.AverageDown(crse, fine)
	if s.Kind == sdc.KindSolution {
		tr.crse.FillBoundary(crse, "", s.T, amr.FillFull)
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
