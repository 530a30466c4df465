package amr

import (
	"fmt"
)

type FillMode int

const (
	FillPhysical    FillMode = iota // physical domain boundaries only
	FillFull                        // interior (same level) plus physical
	FillCoarsePatch                 // interior, then interpolate uncovered ghosts from the coarser level
)

/*
	StateData is one named field's storage on one level: the current
	solution, the new (end of step) slot, and the time levels they
	correspond to.
*/
type StateData struct {
	Name   string
	NComp  int
	NGhost int
	BCs    []BCType
	Cur    *MultiField
	New    *MultiField
	TOld   float64
	TNew   float64
}

// SetTimeLevel assigns the new time and derives the old one from the
// step size, the way the mesh side tracks state ages across a step
func (sd *StateData) SetTimeLevel(tNew, dt float64) {
	sd.TNew = tNew
	sd.TOld = tNew - dt
}

// Swap exchanges current and new storage after a completed step
func (sd *StateData) Swap() {
	sd.Cur, sd.New = sd.New, sd.Cur
}

type Level struct {
	Index  int
	Domain Box // this level's resolution
	Boxes  []Box
	States []*StateData
	H      *Hierarchy
}

func (lv *Level) State(name string) (sd *StateData) {
	for _, s := range lv.States {
		if s.Name == name {
			return s
		}
	}
	panic(fmt.Errorf("level %d has no state named %q", lv.Index, name))
}

// FineRatio is the refinement ratio to the next finer level
func (lv *Level) FineRatio() int { return lv.H.RefRatio }

func (lv *Level) Coarser() *Level {
	if lv.Index == 0 {
		return nil
	}
	return lv.H.Levels[lv.Index-1]
}

// NewFieldLike allocates a field shaped like the named state on this
// level's current box layout
func (lv *Level) NewFieldLike(stateName string) *MultiField {
	sd := lv.State(stateName)
	return NewMultiField(lv.Boxes, sd.NComp, sd.NGhost, sd.BCs)
}

func (lv *Level) CountCells() (n int) {
	for _, b := range lv.Boxes {
		n += b.Size()
	}
	return
}

// wrap maps a possibly out-of-domain cell index onto the domain for
// periodic geometry. ok is false when the cell is a physical boundary
// cell that interior fill must not touch.
func (lv *Level) wrap(cell int) (mapped int, ok bool) {
	n := lv.Domain.Size()
	if lv.H.Periodic {
		mapped = ((cell % n) + n) % n
		ok = true
		return
	}
	if cell < 0 || cell >= n {
		return cell, false
	}
	return cell, true
}

/*
	FillBoundary fills a level-shaped field's ghost cells. The state name
	selects the coarse-level source field for FillCoarsePatch mode; modes
	that never reach below this level may pass "".

	Postcondition for FillFull / FillCoarsePatch on a properly nested
	field: every ghost cell holds a valid value.
*/
func (lv *Level) FillBoundary(mf *MultiField, stateName string, time float64, mode FillMode) {
	switch mode {
	case FillPhysical:
		lv.physicalFill(mf)
	case FillFull:
		lv.interiorFill(mf)
		lv.physicalFill(mf)
	case FillCoarsePatch:
		lv.interiorFill(mf)
		if lv.Index > 0 {
			lv.coarseFill(mf, stateName, time)
		}
		lv.physicalFill(mf)
	default:
		panic(fmt.Errorf("unknown fill mode %d", mode))
	}
}

// FillFrom copies into dst from src's valid regions wherever the two
// layouts overlap in this level's index space, with periodic wrapping.
// With includeGhost the dst ghost frames are candidates too.
func (lv *Level) FillFrom(dst, src *MultiField, includeGhost bool) {
	dst.ParallelCopy(src, includeGhost, lv.wrap)
}

// interiorFill copies ghost cells from any same-level patch whose valid
// region covers them, with periodic wrapping
func (lv *Level) interiorFill(mf *MultiField) {
	for p := range mf.Boxes {
		lv.fillGhostRange(mf, p, func(c int) bool {
			sc, ok := lv.wrap(c)
			if !ok {
				return false
			}
			sp := mf.patchContaining(sc)
			if sp < 0 {
				return false
			}
			for n := 0; n < mf.NComp; n++ {
				mf.Set(p, n, c, mf.At(sp, n, sc))
			}
			return true
		})
	}
}

// physicalFill applies per-component boundary conditions to ghost cells
// outside the physical domain. Periodic geometry has no physical edges.
func (lv *Level) physicalFill(mf *MultiField) {
	if lv.H.Periodic {
		return
	}
	n := lv.Domain.Size()
	for p := range mf.Boxes {
		// shadow layouts can hold out-of-domain cells in their valid
		// region, so scan the whole grown box, not just the ghost ring
		gb := mf.GrownBox(p)
		for c := gb.Lo; c <= gb.Hi; c++ {
			if c >= 0 && c < n {
				continue
			}
			var mirror int
			if c < 0 {
				mirror = -1 - c
			} else {
				mirror = 2*n - 1 - c
			}
			for comp := 0; comp < mf.NComp; comp++ {
				var val float64
				switch mf.BCs[comp] {
				case BCExtrap:
					if c < 0 {
						val = mf.At(p, comp, 0)
					} else {
						val = mf.At(p, comp, n-1)
					}
				case BCReflectEven:
					val = mf.At(p, comp, mirror)
				case BCReflectOdd:
					val = -mf.At(p, comp, mirror)
				}
				mf.Set(p, comp, c, val)
			}
		}
	}
}

// fillGhostRange visits the ghost cells on either side of patch p
func (lv *Level) fillGhostRange(mf *MultiField, p int, fill func(c int) bool) {
	b := mf.Boxes[p]
	for c := b.Lo - mf.NGhost; c < b.Lo; c++ {
		fill(c)
	}
	for c := b.Hi + 1; c <= b.Hi+mf.NGhost; c++ {
		fill(c)
	}
}

// coarseFill interpolates ghost cells not covered by this level from
// the coarser level's current state
func (lv *Level) coarseFill(mf *MultiField, stateName string, time float64) {
	var (
		crse   = lv.Coarser()
		src    = crse.State(stateName).Cur
		domLen = lv.Domain.Size()
	)
	_ = time // states are stored at a single time level here
	for p := range mf.Boxes {
		lv.fillGhostRange(mf, p, func(c int) bool {
			sc, ok := lv.wrap(c)
			if !ok {
				return false
			}
			if mf.patchContaining(sc) >= 0 {
				return false // interior fill already handled it
			}
			if sc < 0 || sc >= domLen {
				return false
			}
			for comp := 0; comp < mf.NComp; comp++ {
				mf.Set(p, comp, c, crse.interpCell(src, comp, sc, lv.H.RefRatio))
			}
			return true
		})
	}
}

// interpCell evaluates the conservative linear interpolant of a coarse
// field at one fine cell center. Slopes are central where both coarse
// neighbors exist, one sided at coverage edges, zero otherwise.
func (lv *Level) interpCell(src *MultiField, comp, fineCell, ratio int) float64 {
	var (
		cc = floorDiv(fineCell, ratio)
		pc = src.patchContaining(cc)
	)
	if pc < 0 {
		panic(fmt.Errorf("coarse cell %d not covered on level %d, hierarchy not properly nested", cc, lv.Index))
	}
	q := src.At(pc, comp, cc)
	slope := lv.slopeAt(src, comp, cc)
	offset := (float64(fineCell-cc*ratio)+0.5)/float64(ratio) - 0.5
	return q + slope*offset
}

func (lv *Level) slopeAt(src *MultiField, comp, cc int) float64 {
	var (
		qm, qp     float64
		okM, okP   bool
		q          float64
		pc         = src.patchContaining(cc)
		fetchValue = func(c int) (float64, bool) {
			sc, ok := lv.wrap(c)
			if !ok {
				return 0, false
			}
			if p := src.patchContaining(sc); p >= 0 {
				return src.At(p, comp, sc), true
			}
			return 0, false
		}
	)
	q = src.At(pc, comp, cc)
	qm, okM = fetchValue(cc - 1)
	qp, okP = fetchValue(cc + 1)
	switch {
	case okM && okP:
		return 0.5 * (qp - qm)
	case okP:
		return qp - q
	case okM:
		return q - qm
	}
	return 0
}

/*
	AverageDown restricts a fine field onto the coarse field's matching
	patches by conservative volume weighted averaging. Only coarse cells
	fully covered by fine cells are touched.
*/
func (lv *Level) AverageDown(crse, fine *MultiField) {
	var (
		r    = lv.H.RefRatio
		rInv = 1.0 / float64(r)
	)
	for pc, bc := range crse.Boxes {
		for pf, bf := range fine.Boxes {
			overlap := bc.Intersect(bf.Coarsen(r))
			if overlap.IsEmpty() {
				continue
			}
			for c := overlap.Lo; c <= overlap.Hi; c++ {
				if !bf.ContainsBox(Box{c * r, (c+1)*r - 1}) {
					continue
				}
				for comp := 0; comp < crse.NComp; comp++ {
					var sum float64
					for i := 0; i < r; i++ {
						sum += fine.At(pf, comp, c*r+i)
					}
					crse.Set(pc, comp, c, sum*rInv)
				}
			}
		}
	}
}
