package criteria

import (
	"math"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// contributionFunc scores a single exam's own placement in isolation from
// everyone else's. Criteria built on it are additive by construction: the
// total is exactly the sum of per-assignment contributions (spec.md §3's
// Criterion invariant).
type contributionFunc func(m *model.Model, p model.Placement) float64

// additiveCriterion is the shared engine behind every criterion whose value
// depends only on each exam's own placement (period/room preference,
// size fit, split penalties, perturbation from a prior solution, ...).
// Grounded on the teacher's predicateEvaluatorStandard, which likewise
// scores one exam/group at a time from static tables (Fits, RoomSimilar).
type additiveCriterion struct {
	name         string
	weight       float64
	contribution contributionFunc
	upperBound   func(m *model.Model) float64
}

func (c *additiveCriterion) Name() string    { return c.name }
func (c *additiveCriterion) Weight() float64 { return c.weight }

type additiveContext struct {
	crit  *additiveCriterion
	model *model.Model
	total float64
}

func (c *additiveContext) BeforeAssigned(uint64, model.Placement) {}
func (c *additiveContext) AfterAssigned(iter uint64, p model.Placement) {
	c.total += c.crit.contribution(c.model, p)
}
func (c *additiveContext) BeforeUnassigned(iter uint64, p model.Placement) {
	c.total -= c.crit.contribution(c.model, p)
}
func (c *additiveContext) AfterUnassigned(uint64, model.Placement) {}

func (c *additiveCriterion) CreateAssignmentContext(a assignment.Assignment) assignment.AssignmentContext {
	ctx := &additiveContext{crit: c, model: a.Model()}
	for _, p := range a.Assignments() {
		ctx.total += c.contribution(a.Model(), p)
	}
	return ctx
}

func (c *additiveCriterion) Value(a assignment.Assignment) float64 {
	return a.GetContext(c).(*additiveContext).total
}

func (c *additiveCriterion) DeltaValue(a assignment.Assignment, placement model.Placement, conflicts []uint64) float64 {
	delta := c.contribution(a.Model(), placement)
	for _, exam := range conflicts {
		if old, ok := a.GetValue(exam); ok {
			delta -= c.contribution(a.Model(), old)
		}
	}
	if current, ok := a.GetValue(placement.Exam); ok && !containsExam(conflicts, placement.Exam) {
		delta -= c.contribution(a.Model(), current)
	}
	return delta
}

func containsExam(exams []uint64, exam uint64) bool {
	for _, e := range exams {
		if e == exam {
			return true
		}
	}
	return false
}

func (c *additiveCriterion) Bounds(a assignment.Assignment) (float64, float64) {
	if c.upperBound == nil {
		return 0, math.Inf(1)
	}
	return 0, c.upperBound(a.Model())
}

// NewPeriodPenalty scores each exam by the negative of its placed period's
// global preference weight plus the exam's own preference weight for that
// period (a soft period the model or the exam dislikes costs more).
func NewPeriodPenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "PeriodPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			return -float64(m.Periods[p.Period].Weight + m.Exams[p.Exam].PeriodWeight(p.Period))
		},
	}
}

// NewRoomPenalty scores each exam by the negative sum of its rooms'
// preference weight against this exam.
func NewRoomPenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "RoomPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			e := m.Exams[p.Exam]
			var total float64
			for _, room := range p.Rooms {
				total -= float64(e.RoomWeight(room))
			}
			return total
		},
	}
}

// NewPeriodViolationPenalty scores, per exam, the number of hard-flagged
// period preferences the exam's current placement fails to honor. An exam
// with no hard period entries never contributes.
func NewPeriodViolationPenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "PeriodViolationPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			var count float64
			for _, pref := range m.Exams[p.Exam].Periods {
				if pref.Hard && pref.Period != p.Period {
					count++
				}
			}
			return count
		},
	}
}

// NewRoomViolationPenalty mirrors NewPeriodViolationPenalty for rooms: a
// hard-flagged room preference the placement's room set doesn't cover
// counts as one violation.
func NewRoomViolationPenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "RoomViolationPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			var count float64
			for _, pref := range m.Exams[p.Exam].Rooms {
				if pref.Hard && !containsRoom(p.Rooms, pref.Room) {
					count++
				}
			}
			return count
		},
	}
}

func containsRoom(rooms []uint64, room uint64) bool {
	for _, r := range rooms {
		if r == room {
			return true
		}
	}
	return false
}

// NewPeriodIndexPenalty penalizes exams scheduled far from the start of the
// period sequence, pushing every exam towards the beginning by its period's
// index (spec.md's ExamRotationPenalty is folded in
// here; see DESIGN.md).
func NewPeriodIndexPenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "PeriodIndexPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			return float64(m.Periods[p.Period].Index)
		},
	}
}

// NewPeriodSizePenalty penalizes placing a large exam far from its
// preferred average period, using the exam's AveragePeriod target.
func NewPeriodSizePenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "PeriodSizePenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			e := m.Exams[p.Exam]
			if !e.Large {
				return 0
			}
			diff := float64(m.Periods[p.Period].Index) - e.AveragePeriod
			return diff * diff
		},
	}
}

// NewRoomSizePenalty penalizes over-allocating room capacity beyond what an
// exam needs.
func NewRoomSizePenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "RoomSizePenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			capacity := p.TotalCapacity(m)
			e := m.Exams[p.Exam]
			if capacity <= e.Size {
				return 0
			}
			return float64(capacity - e.Size)
		},
	}
}

// NewRoomSplitPenalty counts, per exam, one penalty unit for every room
// beyond the first used to seat it (spec.md's S4 scenario: a 200-seat exam
// split across two rooms scores RoomSplitPenalty = 1).
func NewRoomSplitPenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "RoomSplitPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			if len(p.Rooms) <= 1 {
				return 0
			}
			return float64(len(p.Rooms) - 1)
		},
	}
}

// NewRoomSplitDistancePenalty penalizes physical distance between a split
// exam's rooms, which affects invigilation logistics.
func NewRoomSplitDistancePenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "RoomSplitDistancePenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			if len(p.Rooms) <= 1 {
				return 0
			}
			var total uint64
			for i := 0; i < len(p.Rooms); i++ {
				for j := i + 1; j < len(p.Rooms); j++ {
					total += m.RoomDistance(p.Rooms[i], p.Rooms[j])
				}
			}
			return float64(total)
		},
	}
}

// NewLargeExamsPenalty penalizes scheduling a large exam late in the exam
// period sequence, since large exams typically need early slack for grading.
func NewLargeExamsPenalty(weight float64) Criterion {
	return &additiveCriterion{
		name:   "LargeExamsPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			e := m.Exams[p.Exam]
			if !e.Large {
				return 0
			}
			return float64(m.Periods[p.Period].Index)
		},
	}
}

// PerturbationPenalty and RoomPerturbationPenalty score distance from a
// prior ("perturbed") solution the search is meant to stay close to, e.g.
// when re-optimizing after a late room outage. previous is nil for exams
// that had no prior placement.
func NewPerturbationPenalty(weight float64, previous map[uint64]model.Placement) Criterion {
	return &additiveCriterion{
		name:   "PerturbationPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			prior, ok := previous[p.Exam]
			if !ok || prior.Period == p.Period {
				return 0
			}
			return 1
		},
	}
}

func NewRoomPerturbationPenalty(weight float64, previous map[uint64]model.Placement) Criterion {
	return &additiveCriterion{
		name:   "RoomPerturbationPenalty",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			prior, ok := previous[p.Exam]
			if !ok {
				return 0
			}
			changed := len(prior.Rooms) != len(p.Rooms)
			if !changed {
				for i := range prior.Rooms {
					if prior.Rooms[i] != p.Rooms[i] {
						changed = true
						break
					}
				}
			}
			if changed {
				return 1
			}
			return 0
		},
	}
}

// NewStudentNotAvailable counts, per exam, how many of its students are
// unavailable during the period it was placed in.
func NewStudentNotAvailable(weight float64) Criterion {
	return &additiveCriterion{
		name:   "StudentNotAvailable",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			var count float64
			for _, student := range m.StudentsOf(p.Exam) {
				if m.Students[student].Unavailable[p.Period] {
					count++
				}
			}
			return count
		},
	}
}

// NewInstructorNotAvailable mirrors NewStudentNotAvailable for instructors.
func NewInstructorNotAvailable(weight float64) Criterion {
	return &additiveCriterion{
		name:   "InstructorNotAvailable",
		weight: weight,
		contribution: func(m *model.Model, p model.Placement) float64 {
			var count float64
			for _, instructor := range m.InstructorsOf(p.Exam) {
				if m.Instructors[instructor].Unavailable[p.Period] {
					count++
				}
			}
			return count
		},
	}
}
