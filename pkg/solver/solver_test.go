package solver

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/construction"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/metaheuristic"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/limaJavier/examtimetabling/pkg/phase"
	"github.com/limaJavier/examtimetabling/pkg/repair"
	"github.com/stretchr/testify/assert"
)

func twoExamModel(t *testing.T) *model.Model {
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

func buildController(reg *criteria.Registry, rng *rand.Rand) *phase.Controller {
	neighbours := phase.DefaultNeighbours(reg)
	return phase.NewController(phase.Config{
		Constructor:  construction.NewExamConstruction(8),
		Repairer:     repair.NewRepairer(8, neighbours...),
		RepairBudget: 10,
		HillClimber:  metaheuristic.NewHillClimbing(4, 3, neighbours...),
		Meta:         metaheuristic.NewHillClimbing(4, 3, neighbours...),
		FinalSweep:   metaheuristic.NewHillClimbing(4, 3, neighbours...),
		Registry:     reg,
		Rng:          rng,
	})
}

type recordingListener struct {
	saved, restored, cleared, updated int
}

func (r *recordingListener) BestSaved(*Solution, float64)    { r.saved++ }
func (r *recordingListener) BestRestored(*Solution, float64) { r.restored++ }
func (r *recordingListener) BestCleared(*Solution)           { r.cleared++ }
func (r *recordingListener) SolutionUpdated(*Solution)       { r.updated++ }

// countingTermination allows exactly n calls to Step to see canContinue ==
// true before rejecting, driving the controller through Final and Done.
// Safe for concurrent use since ParallelSolver polls it from every worker.
type countingTermination struct {
	mu        sync.Mutex
	remaining int
}

func (c *countingTermination) CanContinue(*Solution) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 {
		return false
	}
	c.remaining--
	return true
}

func TestSolverReachesDoneAndRecordsABest(t *testing.T) {
	m := twoExamModel(t)
	a := assignment.NewSingle(m)
	reg := criteria.NewRegistry(criteria.NewPeriodIndexPenalty(1))
	rng := rand.New(rand.NewSource(1))
	controller := buildController(reg, rng)
	cond := &countingTermination{remaining: 4}

	s := New(a, reg, controller, cond, nil)
	listener := &recordingListener{}
	s.AddListener(listener)

	solution := s.Solve()

	assert.Equal(t, phase.Done, controller.State())
	best, ok := solution.BestValue()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, best, 0.0)
	assert.Greater(t, listener.saved, 0)
	assert.Equal(t, 1, listener.restored)
}

func TestSolverClearBestNotifiesListener(t *testing.T) {
	m := twoExamModel(t)
	a := assignment.NewSingle(m)
	reg := criteria.NewRegistry(criteria.NewPeriodIndexPenalty(1))
	rng := rand.New(rand.NewSource(1))
	controller := buildController(reg, rng)
	cond := &countingTermination{remaining: 4}

	s := New(a, reg, controller, cond, nil)
	listener := &recordingListener{}
	s.AddListener(listener)
	s.Solve()

	s.ClearBest()
	_, ok := s.solution.BestValue()
	assert.False(t, ok)
	assert.Equal(t, 1, listener.cleared)
}

func TestSignalStopsAllOnceTriggered(t *testing.T) {
	m := twoExamModel(t)
	a := assignment.NewSingle(m)
	reg := criteria.NewRegistry(criteria.NewPeriodIndexPenalty(1))
	rng := rand.New(rand.NewSource(1))
	controller := buildController(reg, rng)

	signal := &Signal{}
	cond := All{MaxIterations{Max: 1_000_000}, signal}

	s := New(a, reg, controller, cond, nil)
	signal.Trigger()
	solution := s.Solve()

	assert.Equal(t, phase.Done, controller.State())
	_, ok := solution.BestValue()
	assert.True(t, ok)
}

func TestSolverHonoursMaxUnassignedForBest(t *testing.T) {
	m := twoExamModel(t)
	a := assignment.NewSingle(m)
	reg := criteria.NewRegistry(criteria.NewPeriodIndexPenalty(1))
	rng := rand.New(rand.NewSource(1))
	controller := buildController(reg, rng)
	cond := &countingTermination{remaining: 4}

	s := New(a, reg, controller, cond, nil)
	s.SetMaxUnassignedForBest(0)
	solution := s.Solve()

	best, ok := solution.BestValue()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, best, 0.0)
}

func TestParallelSolverPromotesASharedBest(t *testing.T) {
	m := twoExamModel(t)
	reg := criteria.NewRegistry(criteria.NewPeriodIndexPenalty(1))
	cond := &countingTermination{remaining: 300}

	ps := NewParallelSolver(m, reg, 3, 7, cond, nil, func(a *assignment.ParallelAssignment, rng *rand.Rand) *phase.Controller {
		return buildController(reg, rng)
	})

	values, value, ok := ps.Solve()
	assert.True(t, ok)
	assert.Len(t, values, 2)
	assert.GreaterOrEqual(t, value, 0.0)
}
