package criteria

import (
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

func TestRegistryTotalValueSumsWeightedCriteria(t *testing.T) {
	m := sharedStudentsModel(t)
	a := assignment.NewSingle(m)
	reg := NewRegistry(
		NewStudentDirectConflicts(2),
		NewPeriodPenalty(1),
	)

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	a.Assign(2, model.Placement{Exam: 1, Period: 0, Rooms: []uint64{1}})

	total := reg.TotalValue(a)
	direct, _ := reg.ByName("StudentDirectConflicts")
	period, _ := reg.ByName("PeriodPenalty")

	expected := 2*direct.Value(a) + 1*period.Value(a)
	assert.Equal(t, expected, total)
}

func TestRegistryTotalDeltaValueMatchesActualTotalChange(t *testing.T) {
	m := sharedStudentsModel(t)
	a := assignment.NewSingle(m)
	reg := NewRegistry(
		NewStudentDirectConflicts(2),
		NewPeriodPenalty(1),
	)

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})

	before := reg.TotalValue(a)
	move := model.Placement{Exam: 1, Period: 0, Rooms: []uint64{1}}
	predicted := reg.TotalDeltaValue(a, move, nil)

	a.Assign(2, move)
	actual := reg.TotalValue(a) - before

	assert.Equal(t, actual, predicted)
}
