package sdc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func near(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestLobattoNodes(t *testing.T) {
	// 3 nodes: endpoints plus midpoint
	{
		n := LobattoNodes(3)
		assert.True(t, near(n[0], 0, 1.e-14))
		assert.True(t, near(n[1], 0.5, 1.e-14))
		assert.True(t, near(n[2], 1, 1.e-14))
	}
	// 5 nodes: interior points at (1 +- sqrt(3/7))/2
	{
		n := LobattoNodes(5)
		x := 0.5 * math.Sqrt(3.0/7.0)
		assert.True(t, near(n[1], 0.5-x, 1.e-12))
		assert.True(t, near(n[2], 0.5, 1.e-14))
		assert.True(t, near(n[3], 0.5+x, 1.e-12))
	}
	// symmetry for larger sets
	{
		n := LobattoNodes(9)
		for i := range n {
			assert.True(t, near(n[i], 1-n[len(n)-1-i], 1.e-12))
		}
	}
}

func TestQuadratureMatrices(t *testing.T) {
	for _, nnodes := range []int{2, 3, 5, 9} {
		ns := NewNodeSet(nnodes, GaussLobatto)
		// SMat integrates polynomials up to degree nnodes-1 exactly over
		// each node-to-node interval
		for k := 0; k < nnodes; k++ {
			for m := 0; m < nnodes-1; m++ {
				var got float64
				for j := 0; j < nnodes; j++ {
					got += ns.SMat.At(m, j) * math.Pow(ns.Nodes[j], float64(k))
				}
				want := (math.Pow(ns.Nodes[m+1], float64(k+1)) -
					math.Pow(ns.Nodes[m], float64(k+1))) / float64(k+1)
				assert.True(t, near(got, want, 1.e-10))
			}
		}
		// QMat rows are cumulative sums of SMat rows
		for m := 0; m < nnodes-1; m++ {
			for j := 0; j < nnodes; j++ {
				var cum float64
				for i := 0; i <= m; i++ {
					cum += ns.SMat.At(i, j)
				}
				assert.True(t, near(cum, ns.QMat.At(m, j), 1.e-10))
			}
		}
	}
}

func TestInterpMatrix(t *testing.T) {
	// interpolation between node sets is exact for polynomials the source
	// set can represent
	var (
		src = LobattoNodes(3)
		dst = LobattoNodes(5)
		T   = InterpMatrix(src, dst)
	)
	f := func(x float64) float64 { return 2*x*x - 3*x + 1 }
	for i, x := range dst {
		var got float64
		for j, s := range src {
			got += T.At(i, j) * f(s)
		}
		assert.True(t, near(got, f(x), 1.e-12))
	}
	// endpoint rows are exact injections
	assert.True(t, near(T.At(0, 0), 1, 1.e-12))
	assert.True(t, near(T.At(len(dst)-1, len(src)-1), 1, 1.e-12))
}
