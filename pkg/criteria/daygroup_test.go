package criteria

import (
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

func threeExamOneDayModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 1, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}}, Rooms: []model.RawRoomPref{{Room: 0}}},
			{Id: 1, Size: 1, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}}},
			{Id: 2, Size: 1, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 2}}, Rooms: []model.RawRoomPref{{Room: 0}}},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0, Day: 0}, {Id: 1, Index: 1, Day: 0}, {Id: 2, Index: 2, Day: 0}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 5}},
		Students: []model.RawStudent{
			{Id: 0, Exams: []uint64{0, 1, 2}},
		},
	})
	assert.NoError(t, err)
	return m
}

func TestStudentMoreThan2ADayPenalizesThirdExamOnSameDay(t *testing.T) {
	m := threeExamOneDayModel(t)
	a := assignment.NewSingle(m)
	crit := NewStudentMoreThan2ADay(1)

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	a.Assign(2, model.Placement{Exam: 1, Period: 1, Rooms: []uint64{0}})
	assert.Equal(t, float64(0), crit.Value(a))

	a.Assign(3, model.Placement{Exam: 2, Period: 2, Rooms: []uint64{0}})
	assert.Equal(t, float64(1), crit.Value(a))
}

func TestStudentMoreThan2ADayDeltaValueMatchesActualChange(t *testing.T) {
	m := threeExamOneDayModel(t)
	a := assignment.NewSingle(m)
	crit := NewStudentMoreThan2ADay(1)

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	a.Assign(2, model.Placement{Exam: 1, Period: 1, Rooms: []uint64{0}})

	before := crit.Value(a)
	move := model.Placement{Exam: 2, Period: 2, Rooms: []uint64{0}}
	predicted := crit.DeltaValue(a, move, nil)

	a.Assign(3, move)
	actual := crit.Value(a) - before

	assert.Equal(t, actual, predicted)
}
