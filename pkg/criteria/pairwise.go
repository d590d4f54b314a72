package criteria

import (
	"math"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// relatedFunc returns the exams an assignment currently associates with
// placement p in a way this criterion cares about — e.g. every exam sharing
// p's period (direct conflicts) or every exam in the adjacent period
// (back-to-back).
type relatedFunc func(m *model.Model, a assignment.Assignment, p model.Placement) []uint64

// sharedFunc returns the magnitude of the relation between self (the exam
// under consideration, at the placement it currently holds or is about to
// take) and other (an already-placed exam looked up through a). Taking self
// as a full Placement, not just an exam id, lets room-aware variants (e.g.
// back-to-back room distance) see the placement that hasn't been committed
// to a yet during DeltaValue's "after" pass.
type sharedFunc func(m *model.Model, a assignment.Assignment, self model.Placement, other uint64) float64

// pairwiseCriterion is the shared engine behind every criterion whose value
// depends on pairs of simultaneously-assigned exams: student/instructor
// direct conflicts and back-to-back conflicts. Every unordered pair {x, y}
// with shared(x,y) > 0 and related(x,y) is counted exactly once.
type pairwiseCriterion struct {
	name    string
	weight  float64
	related relatedFunc
	shared  sharedFunc
}

func (c *pairwiseCriterion) Name() string    { return c.name }
func (c *pairwiseCriterion) Weight() float64 { return c.weight }

type pairwiseContext struct {
	crit  *pairwiseCriterion
	a     assignment.Assignment
	total float64
}

func (c *pairwiseContext) BeforeAssigned(uint64, model.Placement) {}

func (c *pairwiseContext) AfterAssigned(iter uint64, p model.Placement) {
	m := c.a.Model()
	for _, other := range c.crit.related(m, c.a, p) {
		if other == p.Exam {
			continue
		}
		c.total += c.crit.shared(m, c.a, p, other)
	}
}

func (c *pairwiseContext) BeforeUnassigned(iter uint64, p model.Placement) {
	m := c.a.Model()
	for _, other := range c.crit.related(m, c.a, p) {
		if other == p.Exam {
			continue
		}
		c.total -= c.crit.shared(m, c.a, p, other)
	}
}

func (c *pairwiseContext) AfterUnassigned(uint64, model.Placement) {}

func (c *pairwiseCriterion) CreateAssignmentContext(a assignment.Assignment) assignment.AssignmentContext {
	ctx := &pairwiseContext{crit: c, a: a}
	counted := make(map[[2]uint64]bool)
	m := a.Model()
	for _, p := range a.Assignments() {
		for _, other := range c.related(m, a, p) {
			if other == p.Exam {
				continue
			}
			key := pairKey(p.Exam, other)
			if counted[key] {
				continue
			}
			counted[key] = true
			ctx.total += c.shared(m, a, p, other)
		}
	}
	return ctx
}

func (c *pairwiseCriterion) Value(a assignment.Assignment) float64 {
	return a.GetContext(c).(*pairwiseContext).total
}

// DeltaValue computes the exact change in this criterion's total restricted
// to the local neighbourhood of the move: the moved exam, every evicted
// conflict, and whoever they are currently related to. Only pairs touching
// those exams can change, so the bounded neighbourhood stays exact for the
// move as a whole.
func (c *pairwiseCriterion) DeltaValue(a assignment.Assignment, placement model.Placement, conflicts []uint64) float64 {
	m := a.Model()
	exam := placement.Exam
	excluded := make(map[uint64]bool, len(conflicts))
	for _, id := range conflicts {
		excluded[id] = true
	}

	affected := append([]uint64{exam}, conflicts...)

	before := 0.0
	countedBefore := make(map[[2]uint64]bool)
	for _, id := range affected {
		p, ok := a.GetValue(id)
		if !ok {
			continue
		}
		for _, other := range c.related(m, a, p) {
			if other == id {
				continue
			}
			mag := c.shared(m, a, p, other)
			if mag == 0 {
				continue
			}
			key := pairKey(id, other)
			if countedBefore[key] {
				continue
			}
			countedBefore[key] = true
			before += mag
		}
	}

	after := 0.0
	countedAfter := make(map[[2]uint64]bool)
	for _, other := range c.related(m, a, placement) {
		if other == exam || excluded[other] {
			continue
		}
		mag := c.shared(m, a, placement, other)
		if mag == 0 {
			continue
		}
		key := pairKey(exam, other)
		if countedAfter[key] {
			continue
		}
		countedAfter[key] = true
		after += mag
	}

	return after - before
}

func (c *pairwiseCriterion) Bounds(a assignment.Assignment) (float64, float64) {
	return 0, math.Inf(1)
}

func samePeriodRelated(_ *model.Model, a assignment.Assignment, p model.Placement) []uint64 {
	return a.PeriodOccupants(p.Period)
}

func adjacentPeriodRelated(crossDay bool) relatedFunc {
	return func(m *model.Model, a assignment.Assignment, p model.Placement) []uint64 {
		var related []uint64
		for _, other := range m.Periods {
			if !m.BackToBack(p.Period, other.Id, crossDay) {
				continue
			}
			related = append(related, a.PeriodOccupants(other.Id)...)
		}
		return related
	}
}

func headcountShared(byExam func(m *model.Model, exam uint64) []uint64) sharedFunc {
	return func(m *model.Model, _ assignment.Assignment, self model.Placement, other uint64) float64 {
		x := byExam(m, self.Exam)
		y := byExam(m, other)
		if len(x) > len(y) {
			x, y = y, x
		}
		set := make(map[uint64]bool, len(y))
		for _, id := range y {
			set[id] = true
		}
		var count float64
		for _, id := range x {
			if set[id] {
				count++
			}
		}
		return count
	}
}

func violationShared(inner sharedFunc) sharedFunc {
	return func(m *model.Model, a assignment.Assignment, self model.Placement, other uint64) float64 {
		if inner(m, a, self, other) > 0 {
			return 1
		}
		return 0
	}
}

// roomDistanceShared weighs a violating pair by the physical distance
// between self's rooms and other's currently-assigned rooms, for every
// exam pair with a nonzero headcount relation. If other has no recorded
// placement (shouldn't happen since related() only returns occupants) it
// contributes zero.
func roomDistanceShared(byExam func(m *model.Model, exam uint64) []uint64) sharedFunc {
	headcount := headcountShared(byExam)
	return func(m *model.Model, a assignment.Assignment, self model.Placement, other uint64) float64 {
		if headcount(m, a, self, other) == 0 {
			return 0
		}
		otherPlacement, ok := a.GetValue(other)
		if !ok {
			return 0
		}
		var total uint64
		for _, r1 := range self.Rooms {
			for _, r2 := range otherPlacement.Rooms {
				total += m.RoomDistance(r1, r2)
			}
		}
		return float64(total)
	}
}

// NewStudentDirectConflicts scores, for every unordered pair of exams
// sharing at least one student and placed in the same period, the number of
// students they share (spec.md S3: 2 exams sharing 5 students in the same
// forced period score 5).
func NewStudentDirectConflicts(weight float64) Criterion {
	return &pairwiseCriterion{
		name:    "StudentDirectConflicts",
		weight:  weight,
		related: samePeriodRelated,
		shared:  headcountShared((*model.Model).StudentsOf),
	}
}

// NewStudentDirectConflictsViolations counts violating exam pairs rather
// than headcounts, for use when direct conflicts are demoted to soft.
func NewStudentDirectConflictsViolations(weight float64) Criterion {
	return &pairwiseCriterion{
		name:    "StudentDirectConflictsViolations",
		weight:  weight,
		related: samePeriodRelated,
		shared:  violationShared(headcountShared((*model.Model).StudentsOf)),
	}
}

// NewInstructorDirectConflicts mirrors NewStudentDirectConflicts for
// instructors.
func NewInstructorDirectConflicts(weight float64) Criterion {
	return &pairwiseCriterion{
		name:    "InstructorDirectConflicts",
		weight:  weight,
		related: samePeriodRelated,
		shared:  headcountShared((*model.Model).InstructorsOf),
	}
}

// NewInstructorDirectConflictsViolations mirrors
// NewStudentDirectConflictsViolations for instructors.
func NewInstructorDirectConflictsViolations(weight float64) Criterion {
	return &pairwiseCriterion{
		name:    "InstructorDirectConflictsViolations",
		weight:  weight,
		related: samePeriodRelated,
		shared:  violationShared(headcountShared((*model.Model).InstructorsOf)),
	}
}

// StudentDirectConflicts picks between the headcount-scoring
// NewStudentDirectConflicts and the violation-counting
// NewStudentDirectConflictsViolations, for callers that demote direct
// student conflicts from hard to soft via configuration: once demoted, the
// number of colliding students no longer matters, only whether a pair
// collides at all.
func StudentDirectConflicts(weight float64, soft bool) Criterion {
	if soft {
		return NewStudentDirectConflictsViolations(weight)
	}
	return NewStudentDirectConflicts(weight)
}

// InstructorDirectConflicts mirrors StudentDirectConflicts for instructors.
func InstructorDirectConflicts(weight float64, soft bool) Criterion {
	if soft {
		return NewInstructorDirectConflictsViolations(weight)
	}
	return NewInstructorDirectConflicts(weight)
}

// NewStudentBackToBackConflicts scores exam pairs placed in adjacent
// periods sharing a student. crossDay controls whether adjacency spanning a
// day boundary counts (spec.md S5).
func NewStudentBackToBackConflicts(weight float64, crossDay bool) Criterion {
	return &pairwiseCriterion{
		name:    "StudentBackToBackConflicts",
		weight:  weight,
		related: adjacentPeriodRelated(crossDay),
		shared:  headcountShared((*model.Model).StudentsOf),
	}
}

// NewInstructorBackToBackConflicts mirrors NewStudentBackToBackConflicts for
// instructors.
func NewInstructorBackToBackConflicts(weight float64, crossDay bool) Criterion {
	return &pairwiseCriterion{
		name:    "InstructorBackToBackConflicts",
		weight:  weight,
		related: adjacentPeriodRelated(crossDay),
		shared:  headcountShared((*model.Model).InstructorsOf),
	}
}

// NewStudentBackToBackDistance is the distance-weighted variant of
// NewStudentBackToBackConflicts (spec.md §4.4's distance variant): each
// violating pair contributes the physical distance between the two exams'
// rooms instead of a flat headcount.
func NewStudentBackToBackDistance(weight float64, crossDay bool) Criterion {
	return &pairwiseCriterion{
		name:    "StudentBackToBackDistance",
		weight:  weight,
		related: adjacentPeriodRelated(crossDay),
		shared:  roomDistanceShared((*model.Model).StudentsOf),
	}
}

// NewInstructorBackToBackDistance mirrors NewStudentBackToBackDistance for
// instructors.
func NewInstructorBackToBackDistance(weight float64, crossDay bool) Criterion {
	return &pairwiseCriterion{
		name:    "InstructorBackToBackDistance",
		weight:  weight,
		related: adjacentPeriodRelated(crossDay),
		shared:  roomDistanceShared((*model.Model).InstructorsOf),
	}
}
