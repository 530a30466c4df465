package amr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func newTestField() *MultiField {
	return NewMultiField([]Box{{0, 3}, {8, 11}}, 1, 1, []BCType{BCExtrap})
}

func TestMultiFieldStorage(t *testing.T) {
	mf := newTestField()
	// fresh storage is NaN poisoned under strict checks
	assert.True(t, mf.ContainsNaN(true))
	// cell addressing is by level index, independent of the patch offset
	mf.SetVal(0)
	mf.Set(1, 0, 9, 42)
	assert.Equal(t, 42., mf.At(1, 0, 9))
	assert.Equal(t, 0., mf.At(0, 0, 2))
	assert.Equal(t, 8, mf.CountCells())
	assert.Equal(t, Box{-1, 4}, mf.GrownBox(0))
}

func TestMultiFieldCopyAXPY(t *testing.T) {
	var (
		a = newTestField()
		b = newTestField()
	)
	a.SetVal(2)
	b.SetVal(3)
	// CopyFrom is a full copy, ghost frame included
	b.CopyFrom(a)
	assert.Equal(t, 2., b.At(0, 0, -1))
	// AXPY touches the valid region only
	b.AXPY(2, a)
	assert.Equal(t, 6., b.At(0, 0, 0))
	assert.Equal(t, 2., b.At(0, 0, -1))
	// layout mismatches are fatal
	c := NewMultiField([]Box{{0, 7}}, 1, 1, []BCType{BCExtrap})
	assert.Panics(t, func() { b.CopyFrom(c) })
	assert.Panics(t, func() { b.AXPY(1, c) })
}

func TestMultiFieldNorms(t *testing.T) {
	mf := newTestField()
	mf.SetVal(0)
	mf.Set(0, 0, 1, -3)
	mf.Set(1, 0, 10, 4)
	// ghosts never enter the norms
	mf.Set(0, 0, -1, 100)
	assert.Equal(t, 4., mf.Norm0())
	assert.True(t, near(mf.Norm2(), 5, 1.e-12))
}

func TestParallelCopy(t *testing.T) {
	var (
		src = NewMultiField([]Box{{2, 9}}, 1, 0, []BCType{BCExtrap})
		dst = newTestField()
	)
	for c := 2; c <= 9; c++ {
		src.Set(0, 0, c, float64(c))
	}
	dst.SetVal(-1)
	// valid-region overlap only
	dst.ParallelCopy(src, false, nil)
	assert.Equal(t, -1., dst.At(0, 0, 0))
	assert.Equal(t, 2., dst.At(0, 0, 2))
	assert.Equal(t, 9., dst.At(1, 0, 9))
	assert.Equal(t, -1., dst.At(1, 0, 10))
	// ghost cells join in when requested
	dst.ParallelCopy(src, true, nil)
	assert.Equal(t, 4., dst.At(0, 0, 4))
	assert.Equal(t, 7., dst.At(1, 0, 7))
}

func TestAssertNoNaN(t *testing.T) {
	mf := newTestField()
	assert.Panics(t, func() { mf.AssertNoNaN(true, "fresh field") })
	mf.SetVal(0)
	assert.NotPanics(t, func() { mf.AssertNoNaN(true, "zeroed field") })
}
