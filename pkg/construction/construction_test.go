package construction

import (
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

func threeExamModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}}, Rooms: []model.RawRoomPref{{Room: 0}}},
			{Id: 1, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 1}}},
			{Id: 2, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}, {Room: 1}}},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0}, {Id: 1, Index: 1}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 20}, {Id: 1, Capacity: 20}},
	})
	assert.NoError(t, err)
	return m
}

func testRegistry() *criteria.Registry {
	return criteria.NewRegistry(criteria.NewPeriodPenalty(1), criteria.NewRoomPenalty(1))
}

func TestExamConstructionPlacesEveryExamWhenFeasible(t *testing.T) {
	m := threeExamModel(t)
	a := assignment.NewSingle(m)
	c := NewExamConstruction(8)
	var iter uint64

	unplaced := c.Run(a, testRegistry(), &iter)

	assert.Empty(t, unplaced)
	assert.Equal(t, 3, a.NrAssignedVariables())
}

func TestExamConstructionPrioritizesMostConstrainedExamFirst(t *testing.T) {
	m := threeExamModel(t)
	c := NewExamConstruction(8)

	order := c.examOrder(m)
	// Exam 0 has a single allowed period and room: most constrained.
	assert.Equal(t, uint64(0), order[0])
}

func TestExamConstructionLeavesUncontestedExamsUndisturbed(t *testing.T) {
	m := threeExamModel(t)
	a := assignment.NewSingle(m)
	c := NewExamConstruction(8)
	var iter uint64

	c.Run(a, testRegistry(), &iter)

	p0, ok := a.GetValue(0)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), p0.Period)
	assert.Equal(t, []uint64{0}, p0.Rooms)
}

func TestExamConstructionEvictsWhenReassignmentIsNetImproving(t *testing.T) {
	// Exam 0 strongly prefers period 1 but only room 0 is allowed for it.
	// Exam 1 is indifferent and already sits in room 0 at period 1, but has
	// an equally good period 0 alternative. Seating exam 0 in its preferred
	// slot by bumping exam 1 over to period 0 is a net improvement, so
	// construction should take it instead of leaving exam 0 unplaced.
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 1, Weight: 10}}, Rooms: []model.RawRoomPref{{Room: 0}}},
			{Id: 1, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}}},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0}, {Id: 1, Index: 1}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 20}},
	})
	assert.NoError(t, err)
	a := assignment.NewSingle(m)
	a.Assign(1, model.Placement{Exam: 1, Period: 1, Rooms: []uint64{0}})

	c := NewExamConstruction(8)
	var iter uint64 = 1

	unplaced := c.Run(a, criteria.NewRegistry(criteria.NewPeriodPenalty(1)), &iter)

	assert.Empty(t, unplaced)
	p0, ok0 := a.GetValue(0)
	p1, ok1 := a.GetValue(1)
	assert.True(t, ok0)
	assert.True(t, ok1)
	assert.Equal(t, uint64(1), p0.Period)
	assert.Equal(t, uint64(0), p1.Period)
}
