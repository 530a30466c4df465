package utils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

type Matrix struct {
	M *mat.Dense
}

func NewMatrix(nr, nc int, dataO ...[]float64) (R Matrix) {
	var m *mat.Dense
	if len(dataO) != 0 {
		if len(dataO[0]) != nr*nc {
			err := fmt.Errorf("mismatch in allocation: NewMatrix nr,nc = %v,%v, len(data[0]) = %v",
				nr, nc, len(dataO[0]))
			panic(err)
		}
		m = mat.NewDense(nr, nc, dataO[0])
	} else {
		m = mat.NewDense(nr, nc, make([]float64, nr*nc))
	}
	R = Matrix{m}
	return
}

// Dims, At and T minimally satisfy the mat.Matrix interface.
func (m Matrix) Dims() (r, c int)          { return m.M.Dims() }
func (m Matrix) At(i, j int) float64       { return m.M.At(i, j) }
func (m Matrix) T() mat.Matrix             { return m.M.T() }
func (m Matrix) RawMatrix() blas64.General { return m.M.RawMatrix() }

func (m Matrix) IsEmpty() bool { return m.M == nil }

func (m Matrix) Data() []float64 { return m.M.RawMatrix().Data }

func (m Matrix) Set(i, j int, val float64) Matrix {
	m.M.Set(i, j, val)
	return m
}

func (m Matrix) Copy() (R Matrix) { // Does not change receiver
	var (
		nr, nc = m.Dims()
	)
	R = NewMatrix(nr, nc)
	R.M.CloneFrom(m.M)
	return
}

// CopyFrom overwrites the receiver's storage in place, requiring equal dims
func (m Matrix) CopyFrom(A Matrix) Matrix {
	var (
		nr, nc = m.Dims()
		ar, ac = A.Dims()
	)
	if nr != ar || nc != ac {
		err := fmt.Errorf("dimension mismatch in CopyFrom: have %d,%d, copying %d,%d",
			nr, nc, ar, ac)
		panic(err)
	}
	copy(m.Data(), A.Data())
	return m
}

func (m Matrix) SetVal(val float64) Matrix {
	var (
		data = m.Data()
	)
	for i := range data {
		data[i] = val
	}
	return m
}

func (m Matrix) Scale(a float64) Matrix {
	m.M.Scale(a, m.M)
	return m
}

// AXPY computes m += a * A in place
func (m Matrix) AXPY(a float64, A Matrix) Matrix {
	var (
		data  = m.Data()
		dataA = A.Data()
	)
	if len(data) != len(dataA) {
		err := fmt.Errorf("dimension mismatch in AXPY: have %d, adding %d",
			len(data), len(dataA))
		panic(err)
	}
	for i := range data {
		data[i] += a * dataA[i]
	}
	return m
}

func (m Matrix) Mul(A Matrix) (R Matrix) {
	var (
		nr, _ = m.Dims()
		_, nc = A.Dims()
	)
	R = NewMatrix(nr, nc)
	R.M.Mul(m.M, A.M)
	return
}

// Norm0 is the max norm over all entries
func (m Matrix) Norm0() (n float64) {
	for _, val := range m.Data() {
		if math.Abs(val) > n {
			n = math.Abs(val)
		}
	}
	return
}

// Norm2 is the discrete L2 norm (not normalized by entry count)
func (m Matrix) Norm2() (n float64) {
	for _, val := range m.Data() {
		n += val * val
	}
	n = math.Sqrt(n)
	return
}

func (m Matrix) ContainsNaN() bool {
	for _, val := range m.Data() {
		if math.IsNaN(val) {
			return true
		}
	}
	return false
}

// Solve returns x such that m * x = b, for a square well conditioned m
func (m Matrix) Solve(b Matrix) (R Matrix) {
	var (
		nr, nc = b.Dims()
	)
	R = NewMatrix(nr, nc)
	if err := R.M.Solve(m.M, b.M); err != nil {
		panic(err)
	}
	return
}

func (m Matrix) Print(msgO ...string) (o string) {
	var (
		name = ""
	)
	if len(msgO) != 0 {
		name = msgO[0]
	}
	o = fmt.Sprintf("%s = \n%8.4f\n", name, mat.Formatted(m.M, mat.Squeeze()))
	return
}
