package neighbour

import (
	"math/rand"
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

func fixtureModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}, {Room: 1}}},
			{Id: 1, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}, {Room: 1}}},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0}, {Id: 1, Index: 1}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 20}, {Id: 1, Capacity: 20}},
	})
	assert.NoError(t, err)
	return m
}

func TestExamRandomMoveProducesFeasiblePlacements(t *testing.T) {
	m := fixtureModel(t)
	a := assignment.NewSingle(m)
	reg := criteria.NewRegistry(criteria.NewPeriodPenalty(1))
	n := NewExamRandomMove(reg)
	rng := rand.New(rand.NewSource(1))

	moves := n.Generate(a, rng, 10)
	assert.NotEmpty(t, moves)
	for _, mv := range moves {
		assert.True(t, m.FeasiblePlacement(mv.Placement))
	}
}

func TestExamTimeMoveChangesPeriod(t *testing.T) {
	m := fixtureModel(t)
	a := assignment.NewSingle(m)
	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	reg := criteria.NewRegistry(criteria.NewPeriodPenalty(1))
	n := NewExamTimeMove(reg)
	rng := rand.New(rand.NewSource(1))

	moves := n.Generate(a, rng, 5)
	for _, mv := range moves {
		assert.Equal(t, uint64(0), mv.Placement.Exam)
		assert.NotEqual(t, uint64(0), mv.Placement.Period)
	}
}

func TestConflictsForReportsOccupyingExams(t *testing.T) {
	m := fixtureModel(t)
	a := assignment.NewSingle(m)
	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})

	conflicts := conflictsFor(a, model.Placement{Exam: 1, Period: 0, Rooms: []uint64{0}})
	assert.Equal(t, []uint64{0}, conflicts)
}

func TestNeighbourValueMatchesRegistryDelta(t *testing.T) {
	m := fixtureModel(t)
	a := assignment.NewSingle(m)
	reg := criteria.NewRegistry(criteria.NewPeriodPenalty(1))
	n := NewExamRandomMove(reg)

	move := Move{Placement: model.Placement{Exam: 0, Period: 1, Rooms: []uint64{0}}, Conflicts: nil}
	assert.Equal(t, reg.TotalDeltaValue(a, move.Placement, move.Conflicts), n.Value(a, move))
}
