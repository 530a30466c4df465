package sdc

import "fmt"

/*
	IMEX is a single level implicit-explicit SDC sweeper. The right hand
	side is split f = f1 + f2 with f1 integrated explicitly and f2
	implicitly; F2Comp performs the backward Euler style solve
	q - dt*f2(q) = rhs and reports f2(q) alongside q.

	Node storage: Q[m] and the split function values at every quadrature
	node, R[m] the residual over [0, tau_m+1], and optionally Tau[m], the
	FAS correction injected by the multilevel driver.
*/
type IMEX[V Value[V]] struct {
	NodeSet *NodeSet
	Encap   Encap[V]
	F1Eval  func(f, q V, t float64)
	F2Eval  func(f, q V, t float64)
	F2Comp  func(q, rhs V, dt, t float64, f V)
	Hooks   Hooks

	Q, F1, F2 []V
	R         []V
	Tau       []V // nil unless a finer level deposits a correction

	integrals []V
	rhs, tmp  V
	allocated bool
}

func NewIMEX[V Value[V]](ns *NodeSet, encap Encap[V],
	f1 func(f, q V, t float64),
	f2 func(f, q V, t float64),
	f2comp func(q, rhs V, dt, t float64, f V)) (sw *IMEX[V]) {
	if f1 == nil || f2 == nil || f2comp == nil {
		panic(fmt.Errorf("NewIMEX: all three evaluation callbacks are required"))
	}
	sw = &IMEX[V]{
		NodeSet: ns,
		Encap:   encap,
		F1Eval:  f1,
		F2Eval:  f2,
		F2Comp:  f2comp,
	}
	return
}

// Allocate creates the node storage through the encap factory
func (sw *IMEX[V]) Allocate() {
	var (
		n = sw.NodeSet.NNodes
	)
	sw.Q = make([]V, n)
	sw.F1 = make([]V, n)
	sw.F2 = make([]V, n)
	sw.R = make([]V, n-1)
	sw.integrals = make([]V, n-1)
	for m := 0; m < n; m++ {
		sw.Q[m] = sw.Encap.Create()
		sw.F1[m] = sw.Encap.Create()
		sw.F2[m] = sw.Encap.Create()
	}
	for m := 0; m < n-1; m++ {
		sw.R[m] = sw.Encap.Create()
		sw.integrals[m] = sw.Encap.Create()
	}
	sw.rhs = sw.Encap.Create()
	sw.tmp = sw.Encap.Create()
	sw.allocated = true
}

// AllocateTau adds FAS correction storage; called by the multilevel
// driver on levels that have a finer neighbor
func (sw *IMEX[V]) AllocateTau() {
	sw.Tau = make([]V, sw.NodeSet.NNodes-1)
	for m := range sw.Tau {
		sw.Tau[m] = sw.Encap.Create()
		sw.Tau[m].SetVal(0)
	}
}

// Destroy releases the node storage and detaches the sweeper
func (sw *IMEX[V]) Destroy() {
	sw.Q, sw.F1, sw.F2, sw.R, sw.Tau, sw.integrals = nil, nil, nil, nil, nil, nil
	var zero V
	sw.rhs, sw.tmp = zero, zero
	sw.allocated = false
}

func (sw *IMEX[V]) nodeTime(t0, dt float64, m int) float64 {
	return t0 + dt*sw.NodeSet.Nodes[m]
}

// Spread copies Q[0] to every node as the zeroth order initial guess
// and evaluates both function pieces everywhere
func (sw *IMEX[V]) Spread(t0, dt float64) {
	if !sw.allocated {
		panic(fmt.Errorf("IMEX.Spread: sweeper not allocated"))
	}
	for m := 1; m < sw.NodeSet.NNodes; m++ {
		sw.Q[m].CopyFrom(sw.Q[0])
	}
	sw.EvaluateAll(t0, dt)
}

// EvaluateAll refreshes F1 and F2 at every node from the current Q
func (sw *IMEX[V]) EvaluateAll(t0, dt float64) {
	for m := 0; m < sw.NodeSet.NNodes; m++ {
		t := sw.nodeTime(t0, dt, m)
		sw.F1Eval(sw.F1[m], sw.Q[m], t)
		sw.F2Eval(sw.F2[m], sw.Q[m], t)
	}
}

/*
	Sweep performs one SDC correction pass over the nodes. With last set
	the residual is evaluated only over the full step interval, the one
	entry diagnostics read after the final iteration.
*/
func (sw *IMEX[V]) Sweep(t0, dt float64, last bool, s *State) {
	var (
		ns    = sw.NodeSet
		n     = ns.NNodes
		nodes = ns.Nodes
	)
	if !sw.allocated {
		panic(fmt.Errorf("IMEX.Sweep: sweeper not allocated"))
	}
	// node to node integrals of the previous iterate, plus FAS term
	for m := 0; m < n-1; m++ {
		I := sw.integrals[m]
		I.SetVal(0)
		for j := 0; j < n; j++ {
			w := dt * ns.SMat.At(m, j)
			I.AXPY(w, sw.F1[j])
			I.AXPY(w, sw.F2[j])
		}
		if sw.Tau != nil {
			I.AXPY(1, sw.Tau[m])
		}
	}
	for m := 0; m < n-1; m++ {
		var (
			dtau = dt * (nodes[m+1] - nodes[m])
			tm   = sw.nodeTime(t0, dt, m)
			tm1  = sw.nodeTime(t0, dt, m+1)
		)
		// refresh f1 at the already-updated node m, keeping the old
		// value for the correction difference
		sw.tmp.CopyFrom(sw.F1[m])
		sw.F1Eval(sw.F1[m], sw.Q[m], tm)

		sw.rhs.CopyFrom(sw.Q[m])
		sw.rhs.AXPY(dtau, sw.F1[m])
		sw.rhs.AXPY(-dtau, sw.tmp)
		sw.rhs.AXPY(-dtau, sw.F2[m+1])
		sw.rhs.AXPY(1, sw.integrals[m])

		sw.F2Comp(sw.Q[m+1], sw.rhs, dtau, tm1, sw.F2[m+1])
	}
	sw.F1Eval(sw.F1[n-1], sw.Q[n-1], sw.nodeTime(t0, dt, n-1))
	sw.Residual(t0, dt, last)
	sw.Hooks.Call(HookPostStep, s)
}

/*
	Residual computes R[m] = Q[0] + dt*sum_j QMat[m][j]*(f1+f2)[j] +
	cumulative tau - Q[m+1]. With last set only the final interval is
	computed.
*/
func (sw *IMEX[V]) Residual(t0, dt float64, last bool) {
	var (
		ns = sw.NodeSet
		n  = ns.NNodes
		m0 = 0
	)
	if last {
		m0 = n - 2
	}
	for m := m0; m < n-1; m++ {
		R := sw.R[m]
		R.CopyFrom(sw.Q[0])
		for j := 0; j < n; j++ {
			w := dt * ns.QMat.At(m, j)
			R.AXPY(w, sw.F1[j])
			R.AXPY(w, sw.F2[j])
		}
		if sw.Tau != nil {
			for k := 0; k <= m; k++ {
				R.AXPY(1, sw.Tau[k])
			}
		}
		R.AXPY(-1, sw.Q[m+1])
	}
}
