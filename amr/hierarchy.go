package amr

import (
	"fmt"
	"math"
)

// StateDef describes one named field carried by every level
type StateDef struct {
	Name   string
	NComp  int
	NGhost int
	BCs    []BCType
}

/*
	Hierarchy owns the nested levels and the regrid policy. Level k+1 is
	nested inside level k at RefRatio; the shape of the hierarchy changes
	only inside Regrid.
*/
type Hierarchy struct {
	Domain0     Box // level 0 index space
	MaxLevel    int // finest allowed level index
	RefRatio    int
	Blocking    []int // per level blocking factor
	RegridInt   int   // steps between regrids, <=0 disables
	Periodic    bool
	Verbose     int
	Levels      []*Level
	LevelSteps  []int
	LevelCount  []int
	DtLevel     []float64
	stateDefs   []StateDef
	Tagger      func(lv *Level, time float64) []Box // boxes to refine, in lv's index space
	DtEstimator func(lv *Level) float64             // stable dt estimate for one level
}

func NewHierarchy(ncells, maxLevel, refRatio int, blocking []int, regridInt int, periodic bool) (h *Hierarchy) {
	if ncells < 1 || refRatio < 2 || maxLevel < 0 {
		panic(fmt.Errorf("bad hierarchy geometry: ncells=%d maxLevel=%d refRatio=%d",
			ncells, maxLevel, refRatio))
	}
	if len(blocking) == 1 {
		bf := blocking[0]
		blocking = make([]int, maxLevel+1)
		for i := range blocking {
			blocking[i] = bf
		}
	}
	if len(blocking) != maxLevel+1 {
		panic(fmt.Errorf("need %d blocking factors, have %d", maxLevel+1, len(blocking)))
	}
	h = &Hierarchy{
		Domain0:    Box{0, ncells - 1},
		MaxLevel:   maxLevel,
		RefRatio:   refRatio,
		Blocking:   append([]int{}, blocking...),
		RegridInt:  regridInt,
		Periodic:   periodic,
		LevelSteps: make([]int, maxLevel+1),
		LevelCount: make([]int, maxLevel+1),
		DtLevel:    make([]float64, maxLevel+1),
	}
	return
}

// AddState registers a field definition; call before InitFromScratch
func (h *Hierarchy) AddState(name string, ncomp, nghost int, bcs []BCType) {
	h.stateDefs = append(h.stateDefs, StateDef{name, ncomp, nghost, append([]BCType{}, bcs...)})
}

func (h *Hierarchy) FinestLevel() int { return len(h.Levels) - 1 }

func (h *Hierarchy) GetLevel(lev int) *Level { return h.Levels[lev] }

func (h *Hierarchy) BlockingFactor(lev int) int { return h.Blocking[lev] }

func (h *Hierarchy) domainAt(lev int) (d Box) {
	d = h.Domain0
	for i := 0; i < lev; i++ {
		d = d.Refine(h.RefRatio)
	}
	return
}

/*
	InitFromScratch builds level 0 over the whole domain, initializes its
	states through initFunc, then grows finer levels one at a time from
	the tagger until MaxLevel or no cells are tagged.
*/
func (h *Hierarchy) InitFromScratch(time float64, initFunc func(lv *Level, name string, mf *MultiField)) {
	if len(h.stateDefs) == 0 {
		panic(fmt.Errorf("InitFromScratch: no states registered"))
	}
	h.Levels = []*Level{h.newLevel(0, []Box{h.Domain0})}
	h.initLevelData(h.Levels[0], initFunc)

	for lev := 0; lev < h.MaxLevel && h.Tagger != nil; lev++ {
		boxes := h.fineBoxesFrom(h.Levels[lev], time)
		if len(boxes) == 0 {
			break
		}
		fine := h.newLevel(lev+1, boxes)
		h.Levels = append(h.Levels, fine)
		h.initLevelData(fine, initFunc)
	}
}

func (h *Hierarchy) newLevel(index int, boxes []Box) *Level {
	lv := &Level{
		Index:  index,
		Domain: h.domainAt(index),
		Boxes:  append([]Box{}, boxes...),
		H:      h,
	}
	for _, def := range h.stateDefs {
		lv.States = append(lv.States, &StateData{
			Name:   def.Name,
			NComp:  def.NComp,
			NGhost: def.NGhost,
			BCs:    append([]BCType{}, def.BCs...),
			Cur:    NewMultiField(boxes, def.NComp, def.NGhost, def.BCs),
			New:    NewMultiField(boxes, def.NComp, def.NGhost, def.BCs),
		})
	}
	return lv
}

func (h *Hierarchy) initLevelData(lv *Level, initFunc func(lv *Level, name string, mf *MultiField)) {
	for _, sd := range lv.States {
		initFunc(lv, sd.Name, sd.Cur)
		lv.FillBoundary(sd.Cur, sd.Name, 0, FillCoarsePatch)
		sd.New.CopyFrom(sd.Cur)
	}
}

// fineBoxesFrom runs the tagger on a level and converts the tags into a
// blocked, properly nested fine level layout
func (h *Hierarchy) fineBoxesFrom(lv *Level, time float64) (fine []Box) {
	var (
		tagged []Box
	)
	for _, t := range h.Tagger(lv, time) {
		t = t.Intersect(lv.Domain)
		if !t.IsEmpty() {
			tagged = append(tagged, t)
		}
	}
	if len(tagged) == 0 {
		return
	}
	tagged = MergeBoxes(tagged)
	var refined []Box
	for _, t := range tagged {
		refined = append(refined, t.Refine(h.RefRatio))
	}
	fineDomain := h.domainAt(lv.Index + 1)
	refined = BlockBoxes(refined, h.BlockingFactor(lv.Index+1), fineDomain)
	// clip to the parent's coverage so nesting holds
	coverage := MergeBoxes(lv.Boxes)
	for _, b := range refined {
		for _, cov := range coverage {
			clipped := b.Intersect(cov.Refine(h.RefRatio))
			if !clipped.IsEmpty() {
				fine = append(fine, clipped)
			}
		}
	}
	fine = MergeBoxes(fine)
	return
}

// OkToRegrid reports whether a level is due for regridding under the
// interval policy
func (h *Hierarchy) OkToRegrid(lev int) bool {
	if h.Tagger == nil || h.RegridInt <= 0 || lev >= h.MaxLevel {
		return false
	}
	return h.LevelCount[lev] >= h.RegridInt
}

/*
	Regrid rebuilds every level finer than lbase from fresh tags. Data on
	rebuilt levels is copied from the previous layout where it overlaps
	and interpolated from the coarser level elsewhere. Returns true when
	the hierarchy's shape actually changed.
*/
func (h *Hierarchy) Regrid(lbase int, time float64) (changed bool) {
	var (
		oldLevels = h.Levels
		newLevels = append([]*Level{}, h.Levels[:lbase+1]...)
	)
	for lev := lbase; lev < h.MaxLevel; lev++ {
		boxes := h.fineBoxesFrom(newLevels[lev], time)
		if len(boxes) == 0 {
			break
		}
		var old *Level
		if lev+1 < len(oldLevels) {
			old = oldLevels[lev+1]
		}
		fine := h.newLevel(lev+1, boxes)
		newLevels = append(newLevels, fine)
		// publish before migrating so coarse interpolation during the
		// data copy sees the new parent layout
		h.Levels = newLevels
		h.migrateLevelData(fine, old)
	}
	h.Levels = newLevels
	changed = len(newLevels) != len(oldLevels)
	if !changed {
		for lev := lbase + 1; lev < len(newLevels); lev++ {
			if !sameBoxes(newLevels[lev].Boxes, oldLevels[lev].Boxes) {
				changed = true
				break
			}
		}
	}
	if h.Verbose > 0 && changed {
		fmt.Printf("Regridded above level %d: %d levels\n", lbase, len(h.Levels))
	}
	return
}

// migrateLevelData seeds a rebuilt level's states: same-level copy where
// the old layout overlaps, coarse interpolation elsewhere
func (h *Hierarchy) migrateLevelData(lv *Level, old *Level) {
	crse := lv.Coarser()
	for _, sd := range lv.States {
		var oldSD *StateData
		if old != nil {
			oldSD = old.State(sd.Name)
		}
		for p, b := range sd.Cur.Boxes {
			for c := b.Lo; c <= b.Hi; c++ {
				var op = -1
				if oldSD != nil {
					op = oldSD.Cur.patchContaining(c)
				}
				for comp := 0; comp < sd.NComp; comp++ {
					var val float64
					if op >= 0 {
						val = oldSD.Cur.At(op, comp, c)
					} else {
						val = crse.interpCell(crse.State(sd.Name).Cur, comp, c, h.RefRatio)
					}
					sd.Cur.Set(p, comp, c, val)
				}
			}
		}
		lv.FillBoundary(sd.Cur, sd.Name, 0, FillCoarsePatch)
		sd.New.CopyFrom(sd.Cur)
		if oldSD != nil {
			sd.TOld, sd.TNew = oldSD.TOld, oldSD.TNew
		} else if crse != nil {
			sd.TOld, sd.TNew = crse.State(sd.Name).TOld, crse.State(sd.Name).TNew
		}
	}
}

func sameBoxes(a, b []Box) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

/*
	ComputeNewDt takes the most restrictive per level estimate, clips it
	to the stop time, and assigns it to every level (multilevel SDC steps
	all levels with the coarse dt).
*/
func (h *Hierarchy) ComputeNewDt(time, stopTime float64) (dt float64) {
	if h.DtEstimator == nil {
		return h.DtLevel[0]
	}
	dt = math.Inf(1)
	for _, lv := range h.Levels {
		if est := h.DtEstimator(lv); est < dt {
			dt = est
		}
	}
	if stopTime > 0 && time+dt > stopTime {
		dt = stopTime - time
	}
	for i := range h.DtLevel {
		h.DtLevel[i] = dt
	}
	return
}

// SetDt assigns a fixed step size to every level
func (h *Hierarchy) SetDt(dt float64) {
	for i := range h.DtLevel {
		h.DtLevel[i] = dt
	}
}

// CycleStates swaps current and new storage on every level after a
// completed coarse step
func (h *Hierarchy) CycleStates() {
	for _, lv := range h.Levels {
		for _, sd := range lv.States {
			sd.Swap()
		}
	}
}
