package amr

import "fmt"

/*
	A Box is a contiguous range of cell indices [Lo,Hi] at one level's
	resolution. All layout operations (coarsen, refine, intersect) work in
	this integer index space, the way BoxLib style AMR codes do it.
*/
type Box struct {
	Lo, Hi int // inclusive
}

func (b Box) Size() int { return b.Hi - b.Lo + 1 }

func (b Box) IsEmpty() bool { return b.Hi < b.Lo }

func (b Box) Contains(cell int) bool { return cell >= b.Lo && cell <= b.Hi }

func (b Box) ContainsBox(o Box) bool { return o.Lo >= b.Lo && o.Hi <= b.Hi }

func (b Box) Grow(n int) Box { return Box{b.Lo - n, b.Hi + n} }

func (b Box) Intersect(o Box) (r Box) {
	r.Lo = max(b.Lo, o.Lo)
	r.Hi = min(b.Hi, o.Hi)
	return
}

// Coarsen maps a box down by an integer ratio, rounding outward so the
// coarse box covers every fine cell (floor division on both ends)
func (b Box) Coarsen(ratio int) (r Box) {
	r.Lo = floorDiv(b.Lo, ratio)
	r.Hi = floorDiv(b.Hi, ratio)
	return
}

// Refine maps a box up by an integer ratio, covering exactly the fine
// cells of every coarse cell in b
func (b Box) Refine(ratio int) (r Box) {
	r.Lo = b.Lo * ratio
	r.Hi = (b.Hi+1)*ratio - 1
	return
}

func (b Box) String() string { return fmt.Sprintf("[%d,%d]", b.Lo, b.Hi) }

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// MergeBoxes collapses a set of boxes into a minimal sorted set of
// disjoint boxes, joining any that overlap or touch
func MergeBoxes(boxes []Box) (merged []Box) {
	if len(boxes) == 0 {
		return
	}
	work := make([]Box, len(boxes))
	copy(work, boxes)
	// insertion sort by Lo, box counts are small
	for i := 1; i < len(work); i++ {
		for j := i; j > 0 && work[j].Lo < work[j-1].Lo; j-- {
			work[j], work[j-1] = work[j-1], work[j]
		}
	}
	cur := work[0]
	for _, b := range work[1:] {
		if b.Lo <= cur.Hi+1 {
			if b.Hi > cur.Hi {
				cur.Hi = b.Hi
			}
		} else {
			merged = append(merged, cur)
			cur = b
		}
	}
	merged = append(merged, cur)
	return
}

// BlockBoxes widens each box outward to blocking factor boundaries and
// clips it to the domain, then re-merges
func BlockBoxes(boxes []Box, bf int, domain Box) (blocked []Box) {
	if bf < 1 {
		bf = 1
	}
	work := make([]Box, 0, len(boxes))
	for _, b := range boxes {
		nb := Box{
			Lo: floorDiv(b.Lo, bf) * bf,
			Hi: (floorDiv(b.Hi, bf)+1)*bf - 1,
		}
		nb = nb.Intersect(domain)
		if !nb.IsEmpty() {
			work = append(work, nb)
		}
	}
	blocked = MergeBoxes(work)
	return
}
