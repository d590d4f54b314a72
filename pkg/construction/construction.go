// Package construction builds an initial, feasible-as-possible assignment
// from scratch before the search phases refine it. It runs once per solve,
// at the very start of the phase pipeline (spec.md §4.11's Construct
// phase).
package construction

import (
	"slices"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// maxEvictedPerPlacement bounds how many already-seated exams a single
// construction placement may displace, per spec.md §4.6 item 2. Kept small
// so construction stays close to a from-scratch fill rather than chaining
// its way into a heavily reshuffled solution.
const maxEvictedPerPlacement = 1

// ExamConstruction builds an assignment by placing exams in decreasing
// order of constrainedness (fewest feasible placements first), each into
// its highest-scoring domain placement. Grounded on the teacher's
// most-constrained-variable ordering from permutations_generator_
// implementation.go, generalized from tuple enumeration to Model.Domain's
// heuristic-scored placement list.
type ExamConstruction struct {
	domainLimit int
}

// NewExamConstruction builds a constructor that considers up to
// domainLimit candidate placements per exam (0 means unbounded).
func NewExamConstruction(domainLimit int) *ExamConstruction {
	return &ExamConstruction{domainLimit: domainLimit}
}

// Run places every exam of m into a, skipping any exam whose domain is
// empty (left unassigned for the repair phase to resolve). A placement that
// requires displacing already-seated exams is only taken when its net
// delta value improves on the current total; each displaced exam is then
// reseated first-fit where possible (spec.md §4.6 item 2). It returns the
// ids of exams that could not be placed, including displaced exams left
// without a seat.
func (c *ExamConstruction) Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64) []uint64 {
	m := a.Model()
	order := c.examOrder(m)

	var unplaced []uint64
	for _, exam := range order {
		if _, ok := a.GetValue(exam); ok {
			continue
		}
		domain := m.Domain(exam, c.domainLimit)
		if c.placeFirstFit(a, iter, domain) {
			continue
		}
		if stranded, placed := c.placeByEviction(a, registry, iter, domain); placed {
			unplaced = append(unplaced, stranded...)
			continue
		}
		unplaced = append(unplaced, exam)
	}
	return unplaced
}

// placeFirstFit assigns the first domain placement that displaces no one.
func (c *ExamConstruction) placeFirstFit(a assignment.Assignment, iter *uint64, domain []model.Placement) bool {
	for _, p := range domain {
		if c.fits(a, p) {
			*iter++
			a.Assign(*iter, p)
			return true
		}
	}
	return false
}

// placeByEviction retries domain allowing placements that displace a
// bounded number of already-seated exams, taking the first candidate whose
// net delta value is an improvement and then trying to reseat each
// displaced exam first-fit. Displaced exams that could not be immediately
// reseated are returned for the repair phase to pick up.
func (c *ExamConstruction) placeByEviction(a assignment.Assignment, registry *criteria.Registry, iter *uint64, domain []model.Placement) ([]uint64, bool) {
	for _, p := range domain {
		conflicts := conflictsFor(a, p)
		if len(conflicts) == 0 || len(conflicts) > maxEvictedPerPlacement {
			continue
		}
		if registry.TotalDeltaValue(a, p, conflicts) >= 0 {
			continue
		}

		for _, evicted := range conflicts {
			*iter++
			a.Unassign(*iter, evicted)
		}
		*iter++
		a.Assign(*iter, p)

		var stranded []uint64
		for _, evicted := range conflicts {
			if !c.placeFirstFit(a, iter, a.Model().Domain(evicted, c.domainLimit)) {
				stranded = append(stranded, evicted)
			}
		}
		return stranded, true
	}
	return nil, false
}

// fits reports whether p can be assigned without displacing anyone.
func (c *ExamConstruction) fits(a assignment.Assignment, p model.Placement) bool {
	for _, room := range p.Rooms {
		if len(a.RoomOccupants(p.Period, room)) > 0 {
			return false
		}
	}
	return true
}

// conflictsFor returns the ids of exams currently occupying any room p
// would use, deduplicated.
func conflictsFor(a assignment.Assignment, p model.Placement) []uint64 {
	seen := make(map[uint64]bool)
	var conflicts []uint64
	for _, room := range p.Rooms {
		for _, exam := range a.RoomOccupants(p.Period, room) {
			if exam == p.Exam || seen[exam] {
				continue
			}
			seen[exam] = true
			conflicts = append(conflicts, exam)
		}
	}
	return conflicts
}

// examOrder ranks exams most-constrained-first: fewer allowed periods times
// allowed rooms first, larger exams (harder to seat) as a tiebreaker.
func (c *ExamConstruction) examOrder(m *model.Model) []uint64 {
	order := make([]uint64, len(m.Exams))
	for i := range order {
		order[i] = uint64(i)
	}
	slices.SortFunc(order, func(x, y uint64) int {
		ex, ey := m.Exams[x], m.Exams[y]
		cx := len(ex.Periods) * max(len(ex.Rooms), 1)
		cy := len(ey.Periods) * max(len(ey.Rooms), 1)
		if cx != cy {
			return cx - cy
		}
		if ex.Size != ey.Size {
			return int(ey.Size) - int(ex.Size)
		}
		return int(x) - int(y)
	})
	return order
}
