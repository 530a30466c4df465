package sdc

/*
	Value is the storage contract the sweepers need from a solution or
	residual snapshot. The mesh side's field type satisfies it directly;
	the type parameter keeps the callbacks fully typed instead of passing
	opaque pointers across the library boundary.
*/
type Value[V any] interface {
	CopyFrom(src V)
	SetVal(val float64)
	AXPY(a float64, x V)
	Norm0() float64
	Norm2() float64
}

// Encap allocates node storage shaped for one level's field layout
type Encap[V Value[V]] interface {
	Create() V
}

// EncapFunc adapts a closure to the Encap interface
type EncapFunc[V Value[V]] func() V

func (f EncapFunc[V]) Create() V { return f() }

type Kind int

const (
	KindSolution   Kind = iota // transfers carry an actual solution state
	KindCorrection             // transfers carry a correction term
)

// State describes the moment a callback is invoked at
type State struct {
	T    float64 // quadrature time of the data in flight
	Dt   float64 // coarse step size
	Kind Kind
	Iter int // sweep iteration, for diagnostics
}
