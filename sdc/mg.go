package sdc

import (
	"fmt"

	"github.com/notargets/mlsdc/utils"
)

/*
	Transfer moves a field between two adjacent mesh levels. The driver
	calls it with matched quadrature states; implementations must be
	stateless with respect to repeated invocation.
*/
type Transfer[V Value[V]] interface {
	// Interpolate overwrites fine with the coarse field's fine resolution image
	Interpolate(fine, crse V, s *State)
	// Restrict averages fine down onto the coarse field's covered region
	Restrict(fine, crse V, s *State)
}

type mgLevel[V Value[V]] struct {
	Sweeper *IMEX[V]
	Trans   Transfer[V] // to the coarser neighbor; nil on the coarsest level

	// temporal transfer operators to/from the coarser neighbor
	interpT utils.Matrix // fine nnodes x coarse nnodes
	restrT  utils.Matrix // coarse nnodes x fine nnodes
	tauT    utils.Matrix // (coarse nnodes-1) x fine nnodes, cumulative integrals

	qSave    []V // pre-sweep snapshot when acting as the coarse side
	tmp, aux V
}

/*
	MG sequences SDC sweeps across the level stack in FAS multigrid
	fashion: sweep fine to coarse with solution restriction and tau
	correction, sweep the coarsest, then interpolate corrections back up
	with a re-sweep per level.

	Levels are registered coarsest first, index aligned with the mesh
	hierarchy.
*/
type MG[V Value[V]] struct {
	Levels []*mgLevel[V]
	Hooks  Hooks
	Iter   int

	isSetup     bool
	isAllocated bool
}

func NewMG[V Value[V]](maxLevels int) (mg *MG[V]) {
	mg = &MG[V]{Levels: make([]*mgLevel[V], 0, maxLevels)}
	return
}

func (mg *MG[V]) NLevels() int { return len(mg.Levels) }

// AddLevel registers a sweeper and its transfer to the coarser neighbor
func (mg *MG[V]) AddLevel(sw *IMEX[V], trans Transfer[V]) {
	if len(mg.Levels) > 0 && trans == nil {
		panic(fmt.Errorf("MG.AddLevel: non-base level registered without a transfer"))
	}
	mg.Levels = append(mg.Levels, &mgLevel[V]{Sweeper: sw, Trans: trans})
}

// Setup builds the temporal transfer matrices between adjacent node sets
func (mg *MG[V]) Setup() {
	for l := 1; l < len(mg.Levels); l++ {
		var (
			fn = mg.Levels[l].Sweeper.NodeSet.Nodes
			cn = mg.Levels[l-1].Sweeper.NodeSet.Nodes
		)
		mg.Levels[l].interpT = InterpMatrix(cn, fn)
		mg.Levels[l].restrT = InterpMatrix(fn, cn)
		tauT := utils.NewMatrix(len(cn)-1, len(fn))
		for m := 0; m < len(cn)-1; m++ {
			row := IntegrationRow(fn, 0, cn[m+1])
			for j := range fn {
				tauT.Set(m, j, row[j])
			}
		}
		mg.Levels[l].tauT = tauT
	}
	mg.isSetup = true
}

// Allocate creates node storage on every level plus the FAS and scratch
// fields the cycle needs
func (mg *MG[V]) Allocate() {
	if !mg.isSetup {
		panic(fmt.Errorf("MG.Allocate: Setup has not run"))
	}
	for l, lvl := range mg.Levels {
		lvl.Sweeper.Allocate()
		lvl.tmp = lvl.Sweeper.Encap.Create()
		lvl.aux = lvl.Sweeper.Encap.Create()
		if l < len(mg.Levels)-1 { // acts as a coarse side
			lvl.Sweeper.AllocateTau()
			lvl.qSave = make([]V, lvl.Sweeper.NodeSet.NNodes)
			for m := range lvl.qSave {
				lvl.qSave[m] = lvl.Sweeper.Encap.Create()
			}
		}
	}
	mg.isAllocated = true
}

// Reset destroys every registered sweeper's storage and empties the
// level stack so a rebuild can repopulate it
func (mg *MG[V]) Reset() {
	for _, lvl := range mg.Levels {
		lvl.Sweeper.Destroy()
	}
	mg.Levels = mg.Levels[:0]
	mg.Iter = 0
	mg.isSetup, mg.isAllocated = false, false
}

/*
	Spread initializes every node from its level's Q[0], then restricts
	the fine levels down so the hierarchy starts the iteration mutually
	consistent.
*/
func (mg *MG[V]) Spread(t, dt float64) {
	mg.checkReady("Spread")
	for l := len(mg.Levels) - 1; l >= 0; l-- {
		mg.Levels[l].Sweeper.Spread(t, dt)
	}
	for l := len(mg.Levels) - 1; l >= 1; l-- {
		mg.restrictQ(l, t, dt)
	}
}

/*
	Sweep runs one multilevel correction pass. With last set the sweepers
	skip all but the whole-interval residual entry.
*/
func (mg *MG[V]) Sweep(t, dt float64, last bool) {
	mg.checkReady("Sweep")
	var (
		L = len(mg.Levels) - 1
		s = &State{T: t, Dt: dt, Iter: mg.Iter, Kind: KindSolution}
	)
	if L == 0 {
		mg.Levels[0].Sweeper.Sweep(t, dt, last, s)
		mg.Iter++
		return
	}
	for l := L; l >= 1; l-- {
		var (
			crse = mg.Levels[l-1]
		)
		mg.Levels[l].Sweeper.Sweep(t, dt, last, s)
		mg.restrictQ(l, t, dt)
		mg.computeTau(l, t, dt)
		for m := range crse.qSave {
			crse.qSave[m].CopyFrom(crse.Sweeper.Q[m])
		}
		mg.Hooks.Call(HookPostTrans, s)
	}
	mg.Levels[0].Sweeper.Sweep(t, dt, last, s)
	for l := 1; l <= L; l++ {
		mg.correct(l, t, dt)
		mg.Hooks.Call(HookPostTrans, s)
		mg.Levels[l].Sweeper.Sweep(t, dt, last, s)
	}
	mg.Iter++
}

func (mg *MG[V]) checkReady(op string) {
	if !mg.isAllocated {
		panic(fmt.Errorf("MG.%s: level stack not allocated", op))
	}
}

// restrictQ maps level l's node solutions onto level l-1: temporal
// interpolation to the coarse node times, then spatial restriction
func (mg *MG[V]) restrictQ(l int, t, dt float64) {
	var (
		fine = mg.Levels[l]
		crse = mg.Levels[l-1]
		fn   = fine.Sweeper.NodeSet.NNodes
		cn   = crse.Sweeper.NodeSet
	)
	for mc := 0; mc < cn.NNodes; mc++ {
		fine.tmp.SetVal(0)
		for mf := 0; mf < fn; mf++ {
			fine.tmp.AXPY(fine.restrT.At(mc, mf), fine.Sweeper.Q[mf])
		}
		s := &State{T: t + dt*cn.Nodes[mc], Dt: dt, Kind: KindSolution, Iter: mg.Iter}
		fine.Trans.Restrict(fine.tmp, crse.Sweeper.Q[mc], s)
	}
	crse.Sweeper.EvaluateAll(t, dt)
}

/*
	computeTau deposits the FAS correction on level l-1: the restriction
	of the fine function integrals minus the coarse function integrals of
	the restricted solution, zero outside the fine level's coverage.
*/
func (mg *MG[V]) computeTau(l int, t, dt float64) {
	var (
		fine  = mg.Levels[l]
		crse  = mg.Levels[l-1]
		fsw   = fine.Sweeper
		csw   = crse.Sweeper
		fn    = fsw.NodeSet.Nodes
		cn    = csw.NodeSet.Nodes
		nc    = len(cn)
		cQMat = csw.NodeSet.QMat
	)
	for m := 0; m < nc-1; m++ {
		// coarse cumulative integral of the restricted solution
		crse.tmp.SetVal(0)
		for j := 0; j < len(cn); j++ {
			w := dt * cQMat.At(m, j)
			crse.tmp.AXPY(w, csw.F1[j])
			crse.tmp.AXPY(w, csw.F2[j])
		}
		// fine cumulative integral, aggregated to the coarse node time
		fine.aux.SetVal(0)
		for j := 0; j < len(fn); j++ {
			w := dt * fine.tauT.At(m, j)
			fine.aux.AXPY(w, fsw.F1[j])
			fine.aux.AXPY(w, fsw.F2[j])
		}
		if fsw.Tau != nil {
			for k := 0; k < len(fn)-1; k++ {
				if fn[k+1] <= cn[m+1]+1e-12 {
					fine.aux.AXPY(1, fsw.Tau[k])
				}
			}
		}
		// seed with the coarse integral so the difference vanishes where
		// the fine level does not cover the coarse one
		crse.aux.CopyFrom(crse.tmp)
		s := &State{T: t + dt*cn[m+1], Dt: dt, Kind: KindCorrection, Iter: mg.Iter}
		fine.Trans.Restrict(fine.aux, crse.aux, s)
		csw.Tau[m].CopyFrom(crse.aux)
		csw.Tau[m].AXPY(-1, crse.tmp)
	}
	// cumulative to interval form, in place from the top down
	for m := nc - 2; m >= 1; m-- {
		csw.Tau[m].AXPY(-1, csw.Tau[m-1])
	}
}

// correct interpolates the coarse level's sweep-induced change onto the
// fine nodes and refreshes the fine function values
func (mg *MG[V]) correct(l int, t, dt float64) {
	var (
		fine = mg.Levels[l]
		crse = mg.Levels[l-1]
		fn   = fine.Sweeper.NodeSet.Nodes
		cn   = crse.Sweeper.NodeSet.NNodes
	)
	for mf := 0; mf < len(fn); mf++ {
		crse.tmp.SetVal(0)
		for mc := 0; mc < cn; mc++ {
			w := fine.interpT.At(mf, mc)
			crse.tmp.AXPY(w, crse.Sweeper.Q[mc])
			crse.tmp.AXPY(-w, crse.qSave[mc])
		}
		s := &State{T: t + dt*fn[mf], Dt: dt, Kind: KindCorrection, Iter: mg.Iter}
		fine.Trans.Interpolate(fine.aux, crse.tmp, s)
		fine.Sweeper.Q[mf].AXPY(1, fine.aux)
	}
	fine.Sweeper.EvaluateAll(t, dt)
}
