package criteria

import (
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

func hardPreferenceModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{
				Id: 0, Size: 5, MinRooms: 1,
				Periods: []model.RawPeriodPref{{Period: 0, Hard: true}, {Period: 1}},
				Rooms:   []model.RawRoomPref{{Room: 0, Hard: true}, {Room: 1}},
			},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0}, {Id: 1, Index: 1}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 20}, {Id: 1, Capacity: 20}},
	})
	assert.NoError(t, err)
	return m
}

func TestPeriodViolationPenaltyScoresOnlyOffHardPeriod(t *testing.T) {
	m := hardPreferenceModel(t)
	a := assignment.NewSingle(m)
	crit := NewPeriodViolationPenalty(1)

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	assert.Equal(t, float64(0), crit.Value(a))

	a.Unassign(2, 0)
	a.Assign(3, model.Placement{Exam: 0, Period: 1, Rooms: []uint64{0}})
	assert.Equal(t, float64(1), crit.Value(a))
}

func TestPeriodViolationPenaltyIgnoresExamsWithNoHardPeriod(t *testing.T) {
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}}},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0}, {Id: 1, Index: 1}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 20}},
	})
	assert.NoError(t, err)
	a := assignment.NewSingle(m)
	crit := NewPeriodViolationPenalty(1)

	a.Assign(1, model.Placement{Exam: 0, Period: 1, Rooms: []uint64{0}})
	assert.Equal(t, float64(0), crit.Value(a))
}

func TestRoomViolationPenaltyScoresOnlyOffHardRoom(t *testing.T) {
	m := hardPreferenceModel(t)
	a := assignment.NewSingle(m)
	crit := NewRoomViolationPenalty(1)

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	assert.Equal(t, float64(0), crit.Value(a))

	a.Unassign(2, 0)
	a.Assign(3, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{1}})
	assert.Equal(t, float64(1), crit.Value(a))
}

func TestPeriodViolationPenaltyDeltaValueMatchesActualChange(t *testing.T) {
	m := hardPreferenceModel(t)
	a := assignment.NewSingle(m)
	crit := NewPeriodViolationPenalty(1)

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})

	before := crit.Value(a)
	move := model.Placement{Exam: 0, Period: 1, Rooms: []uint64{0}}
	predicted := crit.DeltaValue(a, move, nil)

	a.Unassign(2, 0)
	a.Assign(3, move)
	actual := crit.Value(a) - before

	assert.Equal(t, actual, predicted)
}
