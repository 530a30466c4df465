package sdc

import (
	"fmt"
	"math"

	"github.com/notargets/mlsdc/utils"
)

type QuadratureType int

const (
	GaussLobatto QuadratureType = iota
)

/*
	NodeSet holds a quadrature node distribution on [0,1] together with
	the integration matrices the sweeper needs:
	  SMat[m][j] = integral of the j'th Lagrange basis over [tau_m, tau_m+1]
	  QMat[m][j] = integral of the j'th Lagrange basis over [0, tau_m+1]
*/
type NodeSet struct {
	NNodes int
	Qtype  QuadratureType
	Nodes  []float64
	SMat   utils.Matrix // (nnodes-1) x nnodes
	QMat   utils.Matrix // (nnodes-1) x nnodes
}

func NewNodeSet(nnodes int, qtype QuadratureType) (ns *NodeSet) {
	if nnodes < 2 {
		panic(fmt.Errorf("NewNodeSet: need at least 2 nodes, got %d", nnodes))
	}
	if qtype != GaussLobatto {
		panic(fmt.Errorf("NewNodeSet: unsupported quadrature type %d", qtype))
	}
	ns = &NodeSet{
		NNodes: nnodes,
		Qtype:  qtype,
		Nodes:  LobattoNodes(nnodes),
	}
	ns.SMat = utils.NewMatrix(nnodes-1, nnodes)
	ns.QMat = utils.NewMatrix(nnodes-1, nnodes)
	for m := 0; m < nnodes-1; m++ {
		row := IntegrationRow(ns.Nodes, ns.Nodes[m], ns.Nodes[m+1])
		qrow := IntegrationRow(ns.Nodes, 0, ns.Nodes[m+1])
		for j := 0; j < nnodes; j++ {
			ns.SMat.Set(m, j, row[j])
			ns.QMat.Set(m, j, qrow[j])
		}
	}
	return
}

/*
	LobattoNodes returns the n Gauss Lobatto points mapped to [0,1]:
	the endpoints plus the roots of P'_{n-1}, found by Newton iteration
	from Chebyshev initial guesses.
*/
func LobattoNodes(n int) (nodes []float64) {
	nodes = make([]float64, n)
	nodes[0], nodes[n-1] = -1, 1
	for i := 1; i < n-1; i++ {
		x := -math.Cos(math.Pi * float64(i) / float64(n-1))
		for iter := 0; iter < 100; iter++ {
			dp, ddp := legendreDerivs(n-1, x)
			dx := dp / ddp
			x -= dx
			if math.Abs(dx) < 1e-15 {
				break
			}
		}
		nodes[i] = x
	}
	for i := range nodes {
		nodes[i] = 0.5 * (nodes[i] + 1)
	}
	// pin exact symmetry
	if n%2 == 1 {
		nodes[(n-1)/2] = 0.5
	}
	return
}

// legendreDerivs evaluates P'_n and P''_n by the three term recurrence
func legendreDerivs(n int, x float64) (dp, ddp float64) {
	var (
		p0, p1 = 1.0, x
	)
	if n == 0 {
		return 0, 0
	}
	for k := 2; k <= n; k++ {
		p0, p1 = p1, ((2*float64(k)-1)*x*p1-(float64(k)-1)*p0)/float64(k)
	}
	// standard identities on (-1,1)
	dp = float64(n) * (x*p1 - p0) / (x*x - 1)
	ddp = (2*x*dp - float64(n)*float64(n+1)*p1) / (1 - x*x)
	return
}

/*
	lagrangeCoeffs solves the Vandermonde system for the monomial
	coefficients of every Lagrange basis polynomial on the given nodes.
	Column j of the result holds the coefficients of l_j.
*/
func lagrangeCoeffs(nodes []float64) (C utils.Matrix) {
	var (
		n = len(nodes)
		V = utils.NewMatrix(n, n)
		I = utils.NewMatrix(n, n)
	)
	for i, x := range nodes {
		pw := 1.0
		for k := 0; k < n; k++ {
			V.Set(i, k, pw)
			pw *= x
		}
		I.Set(i, i, 1)
	}
	C = V.Solve(I)
	return
}

// IntegrationRow integrates each Lagrange basis on the nodes over [a,b]
func IntegrationRow(nodes []float64, a, b float64) (row []float64) {
	var (
		n = len(nodes)
		C = lagrangeCoeffs(nodes)
	)
	row = make([]float64, n)
	for j := 0; j < n; j++ {
		var (
			s      float64
			pa, pb = a, b
		)
		for k := 0; k < n; k++ {
			s += C.At(k, j) * (pb - pa) / float64(k+1)
			pa *= a
			pb *= b
		}
		row[j] = s
	}
	return
}

/*
	InterpMatrix evaluates the Lagrange interpolant on src nodes at each
	dst node: (InterpMatrix * f(src)) approximates f(dst). Used for the
	temporal transfer between node sets of adjacent levels.
*/
func InterpMatrix(src, dst []float64) (T utils.Matrix) {
	var (
		ns = len(src)
		nd = len(dst)
		C  = lagrangeCoeffs(src)
	)
	T = utils.NewMatrix(nd, ns)
	for i, x := range dst {
		pw := 1.0
		powers := make([]float64, ns)
		for k := 0; k < ns; k++ {
			powers[k] = pw
			pw *= x
		}
		for j := 0; j < ns; j++ {
			var s float64
			for k := 0; k < ns; k++ {
				s += C.At(k, j) * powers[k]
			}
			T.Set(i, j, s)
		}
	}
	return
}
