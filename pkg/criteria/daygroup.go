package criteria

import (
	"math"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// dayGroupCriterion penalizes a person (student or instructor) sitting more
// than threshold exams on the same calendar day. Unlike pairwiseCriterion it
// groups by day rather than by exam pair, so it keeps its own per-day
// occupancy tables in its context instead of reusing the assignment's
// period-indexed ones.
type dayGroupCriterion struct {
	name        string
	weight      float64
	threshold   int
	examsOf     func(m *model.Model, exam uint64) []uint64 // students or instructors
	personExams func(m *model.Model, person uint64) []uint64
}

func (c *dayGroupCriterion) Name() string    { return c.name }
func (c *dayGroupCriterion) Weight() float64 { return c.weight }

type dayGroupContext struct {
	crit  *dayGroupCriterion
	m     *model.Model
	a     assignment.Assignment
	// perDay[person][day] -> count of that person's exams placed on day.
	perDay map[uint64]map[uint64]int
	total  float64
}

func (c *dayGroupContext) delta(person, day uint64, before, after int) float64 {
	cost := func(n int) float64 {
		if n <= c.crit.threshold {
			return 0
		}
		return float64(n - c.crit.threshold)
	}
	return cost(after) - cost(before)
}

func (c *dayGroupContext) adjust(exam uint64, period uint64, sign int) {
	day := c.m.Periods[period].Day
	for _, person := range c.crit.examsOf(c.m, exam) {
		days, ok := c.perDay[person]
		if !ok {
			days = make(map[uint64]int)
			c.perDay[person] = days
		}
		before := days[day]
		after := before + sign
		days[day] = after
		c.total += c.delta(person, day, before, after)
		if after == 0 {
			delete(days, day)
		}
	}
}

func (c *dayGroupContext) BeforeAssigned(uint64, model.Placement) {}
func (c *dayGroupContext) AfterAssigned(iter uint64, p model.Placement) {
	c.adjust(p.Exam, p.Period, 1)
}
func (c *dayGroupContext) BeforeUnassigned(iter uint64, p model.Placement) {
	c.adjust(p.Exam, p.Period, -1)
}
func (c *dayGroupContext) AfterUnassigned(uint64, model.Placement) {}

func (c *dayGroupCriterion) CreateAssignmentContext(a assignment.Assignment) assignment.AssignmentContext {
	m := a.Model()
	ctx := &dayGroupContext{crit: c, m: m, a: a, perDay: make(map[uint64]map[uint64]int)}
	for _, p := range a.Assignments() {
		ctx.adjust(p.Exam, p.Period, 1)
	}
	return ctx
}

func (c *dayGroupCriterion) Value(a assignment.Assignment) float64 {
	return a.GetContext(c).(*dayGroupContext).total
}

// DeltaValue recomputes the per-day cost only for the people attached to the
// moved exam and every evicted conflict, over the days involved.
func (c *dayGroupCriterion) DeltaValue(a assignment.Assignment, placement model.Placement, conflicts []uint64) float64 {
	m := a.Model()
	affected := append([]uint64{placement.Exam}, conflicts...)
	newDay := m.Periods[placement.Period].Day

	people := make(map[uint64]bool)
	for _, exam := range affected {
		for _, person := range c.examsOf(m, exam) {
			people[person] = true
		}
	}

	cost := func(n int) float64 {
		if n <= c.threshold {
			return 0
		}
		return float64(n - c.threshold)
	}

	var delta float64
	for person := range people {
		days := make(map[uint64]int)
		for _, exam := range c.personExams(m, person) {
			p, ok := a.GetValue(exam)
			if !ok || exam == placement.Exam || containsExam(conflicts, exam) {
				continue
			}
			days[m.Periods[p.Period].Day]++
		}
		before := make(map[uint64]int, len(days))
		for d, n := range days {
			before[d] = n
		}
		if !containsExam(conflicts, placement.Exam) {
			if p, ok := a.GetValue(placement.Exam); ok {
				before[m.Periods[p.Period].Day]++
			}
		}
		for _, exam := range conflicts {
			if p, ok := a.GetValue(exam); ok {
				before[m.Periods[p.Period].Day]++
			}
		}
		after := days
		after[newDay]++

		beforeCost, afterCost := 0.0, 0.0
		seen := make(map[uint64]bool)
		for d, n := range before {
			beforeCost += cost(n)
			seen[d] = true
		}
		for d, n := range after {
			afterCost += cost(n)
			seen[d] = true
		}
		delta += afterCost - beforeCost
	}
	return delta
}

func (c *dayGroupCriterion) Bounds(a assignment.Assignment) (float64, float64) {
	return 0, math.Inf(1)
}

// NewStudentMoreThan2ADay penalizes students sitting more than 2 exams on
// the same day, one penalty unit per exam beyond the threshold (spec.md
// S6).
func NewStudentMoreThan2ADay(weight float64) Criterion {
	return &dayGroupCriterion{
		name:        "StudentMoreThan2ADay",
		weight:      weight,
		threshold:   2,
		examsOf:     (*model.Model).StudentsOf,
		personExams: studentExams,
	}
}

// NewInstructorMoreThan2ADay mirrors NewStudentMoreThan2ADay for
// instructors.
func NewInstructorMoreThan2ADay(weight float64) Criterion {
	return &dayGroupCriterion{
		name:        "InstructorMoreThan2ADay",
		weight:      weight,
		threshold:   2,
		examsOf:     (*model.Model).InstructorsOf,
		personExams: instructorExams,
	}
}

func studentExams(m *model.Model, student uint64) []uint64 {
	return m.Students[student].Exams
}

func instructorExams(m *model.Model, instructor uint64) []uint64 {
	return m.Instructors[instructor].Exams
}
