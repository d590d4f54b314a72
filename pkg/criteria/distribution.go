package criteria

import (
	"math"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// distributionCriterion scores every DistributionConstraint of a chosen
// type: one penalty unit per exam pair inside the constraint that violates
// the type's relation, weighted by the constraint's own Weight when the
// constraint is soft. Hard constraints are scored too, at weight 1, so a
// stuck search can see how badly it is violating them.
type distributionCriterion struct {
	name      string
	weight    float64
	kind      model.DistributionType
	satisfied func(m *model.Model, a assignment.Assignment, examA, examB uint64) bool
}

func (c *distributionCriterion) Name() string    { return c.name }
func (c *distributionCriterion) Weight() float64 { return c.weight }

type distributionContext struct {
	crit  *distributionCriterion
	m     *model.Model
	a     assignment.Assignment
	total float64
}

// constraintsOf returns the constraints of this criterion's kind that
// mention exam.
func (c *distributionCriterion) constraintsOf(m *model.Model, exam uint64) []model.DistributionConstraint {
	var out []model.DistributionConstraint
	for _, id := range m.Exams[exam].Distributions {
		d := m.Distributions[id]
		if d.Type != c.kind {
			continue
		}
		out = append(out, d)
	}
	return out
}

func (c *distributionContext) violationsFor(exam uint64) float64 {
	var total float64
	for _, d := range c.crit.constraintsOf(c.m, exam) {
		weight := 1.0
		if !d.Hard {
			weight = float64(d.Weight)
		}
		for _, other := range d.Exams {
			if other == exam {
				continue
			}
			if _, ok := c.a.GetValue(other); !ok {
				continue
			}
			if !c.crit.satisfied(c.m, c.a, exam, other) {
				total += weight
			}
		}
	}
	return total
}

func (c *distributionContext) BeforeAssigned(uint64, model.Placement) {}
func (c *distributionContext) AfterAssigned(iter uint64, p model.Placement) {
	c.total += c.violationsFor(p.Exam)
}
func (c *distributionContext) BeforeUnassigned(iter uint64, p model.Placement) {
	c.total -= c.violationsFor(p.Exam)
}
func (c *distributionContext) AfterUnassigned(uint64, model.Placement) {}

// CreateAssignmentContext scores every unordered pair within every
// constraint of this criterion's kind exactly once (both endpoints must
// already be assigned), matching the once-per-pair convention the
// incremental AfterAssigned/BeforeUnassigned hooks rely on: a pair's
// contribution is only ever added when the later of its two exams is
// assigned, never from both endpoints independently.
func (c *distributionCriterion) CreateAssignmentContext(a assignment.Assignment) assignment.AssignmentContext {
	m := a.Model()
	ctx := &distributionContext{crit: c, m: m, a: a}
	for _, d := range m.Distributions {
		if d.Type != c.kind {
			continue
		}
		weight := 1.0
		if !d.Hard {
			weight = float64(d.Weight)
		}
		for i := 0; i < len(d.Exams); i++ {
			for j := i + 1; j < len(d.Exams); j++ {
				x, y := d.Exams[i], d.Exams[j]
				if _, ok := a.GetValue(x); !ok {
					continue
				}
				if _, ok := a.GetValue(y); !ok {
					continue
				}
				if !c.satisfied(m, a, x, y) {
					ctx.total += weight
				}
			}
		}
	}
	return ctx
}

func (c *distributionCriterion) Value(a assignment.Assignment) float64 {
	return a.GetContext(c).(*distributionContext).total
}

// DeltaValue rescores, exactly once each, every pair inside a constraint
// touched by the moved exam or an evicted conflict, comparing its violation
// state under the current assignment against a hypothetical view where
// placement has been applied and conflicts dropped.
func (c *distributionCriterion) DeltaValue(a assignment.Assignment, placement model.Placement, conflicts []uint64) float64 {
	m := a.Model()
	affected := map[uint64]bool{placement.Exam: true}
	for _, id := range conflicts {
		affected[id] = true
	}

	scratch := &deltaView{Assignment: a, override: placement, removed: conflicts}

	var delta float64
	seenConstraints := make(map[uint64]bool)
	for exam := range affected {
		for _, d := range c.constraintsOf(m, exam) {
			if seenConstraints[d.Id] {
				continue
			}
			seenConstraints[d.Id] = true
			weight := 1.0
			if !d.Hard {
				weight = float64(d.Weight)
			}
			for i := 0; i < len(d.Exams); i++ {
				for j := i + 1; j < len(d.Exams); j++ {
					x, y := d.Exams[i], d.Exams[j]

					_, xBefore := a.GetValue(x)
					_, yBefore := a.GetValue(y)
					if xBefore && yBefore && !c.satisfied(m, a, x, y) {
						delta -= weight
					}

					_, xAfter := scratch.GetValue(x)
					_, yAfter := scratch.GetValue(y)
					if xAfter && yAfter && !c.satisfied(m, scratch, x, y) {
						delta += weight
					}
				}
			}
		}
	}
	return delta
}

func (c *distributionCriterion) Bounds(a assignment.Assignment) (float64, float64) {
	return 0, math.Inf(1)
}

// deltaView wraps an assignment.Assignment, overriding a single exam's
// value to a hypothetical placement and hiding a set of removed exams,
// without mutating the underlying assignment. It exists solely so
// distributionCriterion.DeltaValue can rescore multi-exam constraints
// against a hypothetical post-move state.
type deltaView struct {
	assignment.Assignment
	override model.Placement
	removed  []uint64
}

func (v *deltaView) GetValue(exam uint64) (model.Placement, bool) {
	if exam == v.override.Exam {
		return v.override, true
	}
	if containsExam(v.removed, exam) {
		return model.Placement{}, false
	}
	return v.Assignment.GetValue(exam)
}

// NewDistributionPenalty builds a criterion scoring every constraint of the
// given type, using the standard relation semantics from spec.md's
// DistributionConstraint types.
func NewDistributionPenalty(kind model.DistributionType, weight float64) Criterion {
	name, satisfied := distributionSemantics(kind)
	return &distributionCriterion{name: name, weight: weight, kind: kind, satisfied: satisfied}
}

func distributionSemantics(kind model.DistributionType) (string, func(m *model.Model, a assignment.Assignment, examA, examB uint64) bool) {
	switch kind {
	case model.SamePeriod:
		return "SamePeriodPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return px.Period == py.Period
		}
	case model.DifferentPeriod:
		return "DifferentPeriodPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return px.Period != py.Period
		}
	case model.Precedence:
		return "PrecedencePenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return m.Periods[px.Period].Index < m.Periods[py.Period].Index
		}
	case model.SameRoom:
		return "SameRoomPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return sameRoomSet(px.Rooms, py.Rooms)
		}
	case model.DifferentRoom:
		return "DifferentRoomPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return !overlappingRooms(px.Rooms, py.Rooms)
		}
	case model.SameDay:
		return "SameDayPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return m.SameDay(px.Period, py.Period)
		}
	case model.DifferentDay:
		return "DifferentDayPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return !m.SameDay(px.Period, py.Period)
		}
	case model.SameAttendees:
		// Exams flagged as sharing the same attendee list must be
		// co-scheduled, same as SamePeriod.
		return "SameAttendeesPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool {
			px, _ := a.GetValue(x)
			py, _ := a.GetValue(y)
			return px.Period == py.Period
		}
	default:
		return "DistributionPenalty", func(m *model.Model, a assignment.Assignment, x, y uint64) bool { return true }
	}
}

func sameRoomSet(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uint64]bool, len(a))
	for _, r := range a {
		set[r] = true
	}
	for _, r := range b {
		if !set[r] {
			return false
		}
	}
	return true
}

func overlappingRooms(a, b []uint64) bool {
	set := make(map[uint64]bool, len(a))
	for _, r := range a {
		set[r] = true
	}
	for _, r := range b {
		if set[r] {
			return true
		}
	}
	return false
}
