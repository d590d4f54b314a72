package construction

import (
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

func sharedStudentModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}}, Students: []uint64{0}},
			{Id: 1, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}}, Students: []uint64{0}},
		},
		Periods:  []model.RawPeriod{{Id: 0, Index: 0}, {Id: 1, Index: 1}},
		Rooms:    []model.RawRoom{{Id: 0, Capacity: 20}},
		Students: []model.RawStudent{{Id: 0, Exams: []uint64{0, 1}}},
	})
	assert.NoError(t, err)
	return m
}

func TestColoringConstructionSeparatesConflictingExams(t *testing.T) {
	m := sharedStudentModel(t)
	a := assignment.NewSingle(m)
	var iter uint64

	unplaced := NewColoringConstruction().Run(a, testRegistry(), &iter)
	assert.Empty(t, unplaced)

	p0, ok0 := a.GetValue(0)
	p1, ok1 := a.GetValue(1)
	assert.True(t, ok0)
	assert.True(t, ok1)
	assert.NotEqual(t, p0.Period, p1.Period)
}

func TestColoringConstructionLeavesUnseatableExamsForNextStage(t *testing.T) {
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}}, Rooms: []model.RawRoomPref{{Room: 0}}, Students: []uint64{0}},
			{Id: 1, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}}, Rooms: []model.RawRoomPref{{Room: 0}}, Students: []uint64{0}},
		},
		Periods:  []model.RawPeriod{{Id: 0, Index: 0}},
		Rooms:    []model.RawRoom{{Id: 0, Capacity: 20}},
		Students: []model.RawStudent{{Id: 0, Exams: []uint64{0, 1}}},
	})
	assert.NoError(t, err)
	a := assignment.NewSingle(m)
	var iter uint64

	unplaced := NewColoringConstruction().Run(a, testRegistry(), &iter)
	assert.Len(t, unplaced, 1)
}

func TestChainFeedsColoringLeftoversToExamConstruction(t *testing.T) {
	// Both exams only ever fit period 0, so coloring cannot legally seat
	// the second one without reusing a color a neighbour already holds.
	// A distinct room is still open, though, and ExamConstruction (which
	// doesn't police shared-student conflicts, only room occupancy) can
	// seat it there.
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}}, Rooms: []model.RawRoomPref{{Room: 0}}, Students: []uint64{0}},
			{Id: 1, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}}, Rooms: []model.RawRoomPref{{Room: 0}, {Room: 1}}, Students: []uint64{0}},
		},
		Periods:  []model.RawPeriod{{Id: 0, Index: 0}},
		Rooms:    []model.RawRoom{{Id: 0, Capacity: 20}, {Id: 1, Capacity: 6}},
		Students: []model.RawStudent{{Id: 0, Exams: []uint64{0, 1}}},
	})
	assert.NoError(t, err)
	a := assignment.NewSingle(m)
	var iter uint64

	coloringOnly := assignment.NewSingle(m)
	var soloIter uint64
	soloUnplaced := NewColoringConstruction().Run(coloringOnly, testRegistry(), &soloIter)
	assert.Len(t, soloUnplaced, 1, "coloring alone should strand the conflicting exam")

	chain := NewChain(NewColoringConstruction(), NewExamConstruction(8))
	unplaced := chain.Run(a, testRegistry(), &iter)
	assert.Empty(t, unplaced)
	assert.Equal(t, 2, a.NrAssignedVariables())

	p1, ok := a.GetValue(1)
	assert.True(t, ok)
	assert.Equal(t, []uint64{1}, p1.Rooms)
}
