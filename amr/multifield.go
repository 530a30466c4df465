package amr

import (
	"fmt"
	"math"

	"github.com/notargets/mlsdc/utils"
)

// StrictChecks enables NaN poisoning of fresh storage and consistency
// assertions after boundary fills and transfers. Tests run with it on;
// production runs may disable it for speed.
var StrictChecks = true

type BCType int

const (
	BCExtrap BCType = iota // first order extrapolation (outflow)
	BCReflectEven
	BCReflectOdd
)

/*
	A MultiField holds one field over a set of boxes, one data patch per
	box. Each patch is an NComp x (box size + 2*NGhost) matrix so that a
	component's row is a contiguous strip of cells with the ghost frame
	at either end.
*/
type MultiField struct {
	Boxes  []Box
	NComp  int
	NGhost int
	BCs    []BCType // per component, applied at non-periodic domain edges
	Patch  []utils.Matrix
}

func NewMultiField(boxes []Box, ncomp, nghost int, bcs []BCType) (mf *MultiField) {
	if len(bcs) != ncomp {
		panic(fmt.Errorf("NewMultiField: %d components but %d BC records", ncomp, len(bcs)))
	}
	mf = &MultiField{
		Boxes:  append([]Box{}, boxes...),
		NComp:  ncomp,
		NGhost: nghost,
		BCs:    append([]BCType{}, bcs...),
		Patch:  make([]utils.Matrix, len(boxes)),
	}
	for i, b := range boxes {
		mf.Patch[i] = utils.NewMatrix(ncomp, b.Size()+2*nghost)
	}
	if StrictChecks {
		mf.SetVal(math.NaN())
	}
	return
}

// col converts a cell index into a patch's column index
func (mf *MultiField) col(p, cell int) int { return cell - mf.Boxes[p].Lo + mf.NGhost }

func (mf *MultiField) At(p, comp, cell int) float64 {
	return mf.Patch[p].At(comp, mf.col(p, cell))
}

func (mf *MultiField) Set(p, comp, cell int, val float64) {
	mf.Patch[p].Set(comp, mf.col(p, cell), val)
}

// GrownBox is a patch's box including its ghost frame
func (mf *MultiField) GrownBox(p int) Box { return mf.Boxes[p].Grow(mf.NGhost) }

func (mf *MultiField) SameLayout(o *MultiField) bool {
	if len(mf.Boxes) != len(o.Boxes) || mf.NComp != o.NComp || mf.NGhost != o.NGhost {
		return false
	}
	for i, b := range mf.Boxes {
		if b != o.Boxes[i] {
			return false
		}
	}
	return true
}

// SetVal assigns every cell of every patch, ghost frame included
func (mf *MultiField) SetVal(val float64) {
	for _, m := range mf.Patch {
		m.SetVal(val)
	}
}

// CopyFrom copies all data, ghost frame included, from a field with an
// identical layout. A layout mismatch is fatal: it means the node
// storage and the mesh hierarchy have fallen out of step.
func (mf *MultiField) CopyFrom(src *MultiField) {
	if !mf.SameLayout(src) {
		panic(fmt.Errorf("MultiField.CopyFrom: layout mismatch, %d boxes ghost %d vs %d boxes ghost %d",
			len(mf.Boxes), mf.NGhost, len(src.Boxes), src.NGhost))
	}
	for i := range mf.Patch {
		mf.Patch[i].CopyFrom(src.Patch[i])
	}
}

// AXPY computes mf += a*x over every patch's valid region
func (mf *MultiField) AXPY(a float64, x *MultiField) {
	if !mf.SameLayout(x) {
		panic(fmt.Errorf("MultiField.AXPY: layout mismatch"))
	}
	for p, b := range mf.Boxes {
		for n := 0; n < mf.NComp; n++ {
			for c := b.Lo; c <= b.Hi; c++ {
				mf.Set(p, n, c, mf.At(p, n, c)+a*x.At(p, n, c))
			}
		}
	}
}

// ParallelCopy fills dst cells from src patches' valid regions wherever
// they overlap in index space. With includeGhost, dst ghost cells are
// candidates too (periodic wrapping is applied by the caller's level).
// Cells with no source are left untouched.
func (mf *MultiField) ParallelCopy(src *MultiField, includeGhost bool, wrap func(cell int) (int, bool)) {
	if mf.NComp != src.NComp {
		panic(fmt.Errorf("MultiField.ParallelCopy: %d components vs %d", mf.NComp, src.NComp))
	}
	for p := range mf.Boxes {
		rng := mf.Boxes[p]
		if includeGhost {
			rng = mf.GrownBox(p)
		}
		for c := rng.Lo; c <= rng.Hi; c++ {
			sc, ok := c, true
			if wrap != nil {
				sc, ok = wrap(c)
			}
			if !ok {
				continue
			}
			sp := src.patchContaining(sc)
			if sp < 0 {
				continue
			}
			for n := 0; n < mf.NComp; n++ {
				mf.Set(p, n, c, src.At(sp, n, sc))
			}
		}
	}
}

func (mf *MultiField) patchContaining(cell int) int {
	for p, b := range mf.Boxes {
		if b.Contains(cell) {
			return p
		}
	}
	return -1
}

// Norm0 is the max norm over all valid cells
func (mf *MultiField) Norm0() (n float64) {
	for p, b := range mf.Boxes {
		for comp := 0; comp < mf.NComp; comp++ {
			for c := b.Lo; c <= b.Hi; c++ {
				if v := math.Abs(mf.At(p, comp, c)); v > n {
					n = v
				}
			}
		}
	}
	return
}

// Norm2 is the discrete L2 norm over all valid cells
func (mf *MultiField) Norm2() (n float64) {
	for p, b := range mf.Boxes {
		for comp := 0; comp < mf.NComp; comp++ {
			for c := b.Lo; c <= b.Hi; c++ {
				v := mf.At(p, comp, c)
				n += v * v
			}
		}
	}
	n = math.Sqrt(n)
	return
}

func (mf *MultiField) ContainsNaN(includeGhost bool) bool {
	for p := range mf.Boxes {
		rng := mf.Boxes[p]
		if includeGhost {
			rng = mf.GrownBox(p)
		}
		for comp := 0; comp < mf.NComp; comp++ {
			for c := rng.Lo; c <= rng.Hi; c++ {
				if math.IsNaN(mf.At(p, comp, c)) {
					return true
				}
			}
		}
	}
	return false
}

// AssertNoNaN is the debug mode consistency check applied after seeds,
// interpolations and restrictions
func (mf *MultiField) AssertNoNaN(includeGhost bool, label string) {
	if !StrictChecks {
		return
	}
	if mf.ContainsNaN(includeGhost) {
		panic(fmt.Errorf("NaN detected in field: %s", label))
	}
}

// CountCells totals the valid cells across patches
func (mf *MultiField) CountCells() (n int) {
	for _, b := range mf.Boxes {
		n += b.Size()
	}
	return
}
