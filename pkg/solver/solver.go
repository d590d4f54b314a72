// Package solver ties an assignment, its criteria registry and a phase
// controller together into a running search: it holds the current
// Solution, tracks the best snapshot seen so far, and drives phase steps
// until a TerminationCondition rejects continuation (spec.md §2's data
// flow, §4.12's listener contract, §5's concurrency model).
package solver

import (
	"log"
	"maps"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/limaJavier/examtimetabling/pkg/phase"
)

// Solution is (Model, Assignment, iteration counter, elapsed time,
// best-snapshot) per spec.md §3. Until the first snapshot is taken the
// stored best values are nil and BestValue reports ok=false.
type Solution struct {
	Model      *model.Model
	Assignment assignment.Assignment

	mu         sync.Mutex
	bestValues map[uint64]assignment.PlacementValue
	bestValue  float64
	hasBest    bool
	started    time.Time
}

func newSolution(a assignment.Assignment) *Solution {
	return &Solution{Model: a.Model(), Assignment: a, started: time.Now(), bestValue: 0}
}

// Elapsed reports wall-clock time since the solve started.
func (s *Solution) Elapsed() time.Duration { return time.Since(s.started) }

// Iteration reports the solve's current iteration counter.
func (s *Solution) Iteration() uint64 { return s.Assignment.Iteration() }

// BestValue reports the last recorded best total value and whether one has
// ever been recorded.
func (s *Solution) BestValue() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bestValue, s.hasBest
}

// saveBest records values/value as the new best under s.mu. Listeners are
// notified by the caller after saveBest returns, from the caller's
// single-threaded event loop, never concurrently for one Solution.
func (s *Solution) saveBest(values map[uint64]assignment.PlacementValue, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bestValues = maps.Clone(values)
	s.bestValue = value
	s.hasBest = true
}

func (s *Solution) restoreBest() (map[uint64]assignment.PlacementValue, float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasBest {
		return nil, 0, false
	}
	return maps.Clone(s.bestValues), s.bestValue, true
}

func (s *Solution) clearBest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bestValues = nil
	s.hasBest = false
}

// Listener is the multicast of spec.md §4.12's four solution events. Every
// registered listener sees events in the same order; a listener must not
// mutate the assignment it is given.
type Listener interface {
	BestSaved(s *Solution, value float64)
	BestRestored(s *Solution, value float64)
	BestCleared(s *Solution)
	SolutionUpdated(s *Solution)
}

// TerminationCondition decides when a solve should stop. CanContinue is
// polled once per phase step; StopWhenComplete instances should inspect
// s.Assignment.NrUnassignedVariables().
type TerminationCondition interface {
	CanContinue(s *Solution) bool
}

// MaxIterations stops once the assignment's iteration counter reaches a
// bound.
type MaxIterations struct{ Max uint64 }

func (m MaxIterations) CanContinue(s *Solution) bool { return s.Iteration() < m.Max }

// TimeOut stops once the elapsed wall-clock time exceeds a bound.
type TimeOut struct{ Max time.Duration }

func (t TimeOut) CanContinue(s *Solution) bool { return s.Elapsed() < t.Max }

// StopWhenComplete stops as soon as every exam is assigned.
type StopWhenComplete struct{}

func (StopWhenComplete) CanContinue(s *Solution) bool {
	return s.Assignment.NrUnassignedVariables() > 0
}

// All is satisfied only while every wrapped condition allows continuing.
type All []TerminationCondition

func (a All) CanContinue(s *Solution) bool {
	for _, c := range a {
		if !c.CanContinue(s) {
			return false
		}
	}
	return true
}

// Signal is a manually-triggered TerminationCondition, combined with the
// configured budget via All so an external interrupt (spec.md §7's
// Interrupted error kind) drives the same cooperative shutdown as running
// out of iterations or time: the current step completes, the phase
// controller runs its Final sweep, and the best is restored and saved.
type Signal struct {
	triggered atomic.Bool
}

// Trigger marks the signal as fired; CanContinue reports false from then on.
func (s *Signal) Trigger() { s.triggered.Store(true) }

func (s *Signal) CanContinue(*Solution) bool { return !s.triggered.Load() }

// Solver runs a single-threaded search: one phase.Controller stepping one
// Solution, saving a best snapshot on every strict improvement and
// notifying listeners in order (spec.md §5's single-threaded variant).
type Solver struct {
	solution   *Solution
	registry   *criteria.Registry
	controller *phase.Controller
	condition  TerminationCondition
	listeners  []Listener
	logger     *log.Logger

	// maxUnassignedForBest gates whether an assignment with unassigned
	// exams may still be recorded as best, per spec.md §6's
	// General.SaveBestUnassigned. -1 means unconditional.
	maxUnassignedForBest int
}

// New builds a single-threaded solver over a fresh assignment, driven by
// controller and stopping per condition.
func New(a assignment.Assignment, registry *criteria.Registry, controller *phase.Controller, condition TerminationCondition, logger *log.Logger) *Solver {
	if logger == nil {
		logger = log.Default()
	}
	return &Solver{
		solution:             newSolution(a),
		registry:             registry,
		controller:           controller,
		condition:            condition,
		logger:               logger,
		maxUnassignedForBest: -1,
	}
}

// AddListener registers l to receive future solution events.
func (s *Solver) AddListener(l Listener) {
	s.listeners = append(s.listeners, l)
}

// SetMaxUnassignedForBest bounds how many unassigned exams an assignment
// may still have to be recorded as best; -1 (the default) accepts any
// assignment.
func (s *Solver) SetMaxUnassignedForBest(n int) {
	s.maxUnassignedForBest = n
}

// ClearBest discards the recorded best snapshot, e.g. before starting a
// fresh solve over a reused Solver.
func (s *Solver) ClearBest() {
	s.solution.clearBest()
	for _, l := range s.listeners {
		l.BestCleared(s.solution)
	}
}

// Solve steps the phase controller until it reaches phase.Done, saving a
// best snapshot after each step that strictly improved on the recorded
// best and notifying listeners. It returns the final Solution.
func (s *Solver) Solve() *Solution {
	var iter uint64 = s.solution.Assignment.Iteration()
	for {
		canContinue := s.condition.CanContinue(s.solution)
		before := s.controller.State()
		if !canContinue && before != phase.Final {
			s.restoreBest(&iter)
		}
		state := s.controller.Step(s.solution.Assignment, &iter, canContinue)
		s.notifyUpdated()
		if state != before {
			s.logger.Printf("solver: phase %s -> %s", before, state)
		}

		s.considerBest()

		if state == phase.Done {
			break
		}
	}
	return s.solution
}

// restoreBest replaces the assignment's contents with the last saved best
// snapshot, if any, and notifies listeners. Called once, right before the
// closing finalization sweep, so it runs over the best restored assignment
// rather than wherever the search happened to leave off (spec.md §4.10).
func (s *Solver) restoreBest(iter *uint64) {
	values, value, ok := s.solution.restoreBest()
	if !ok {
		return
	}
	for _, exam := range s.solution.Assignment.Assignments() {
		if _, keep := values[exam.Exam]; !keep {
			*iter++
			s.solution.Assignment.Unassign(*iter, exam.Exam)
		}
	}
	for _, p := range values {
		*iter++
		s.solution.Assignment.Assign(*iter, p)
	}
	s.logger.Printf("solver: restored best value=%.4f", value)
	for _, l := range s.listeners {
		l.BestRestored(s.solution, value)
	}
}

// restoreWorkerBest mirrors (*Solver).restoreBest for a single parallel
// worker's local view, run right before that worker's controller enters
// its own Final phase so its closing sweep sees its own best, not
// wherever its local search happened to leave off (spec.md §4.10, applied
// per worker under §5's parallel model).
func restoreWorkerBest(view *assignment.ParallelAssignment, solution *Solution, iter *uint64) {
	values, _, ok := solution.restoreBest()
	if !ok {
		return
	}
	for _, exam := range view.Assignments() {
		if _, keep := values[exam.Exam]; !keep {
			*iter++
			view.Unassign(*iter, exam.Exam)
		}
	}
	for _, p := range values {
		*iter++
		view.Assign(*iter, p)
	}
}

// considerBest checks two candidates for a new best: the mid-phase snapshot
// the phase controller may have captured (the true best point a
// metaheuristic burst visited, which the live assignment can have since
// moved past) and the live assignment itself (covering Construct/Repair
// steps, which carry no snapshot of their own). Whichever qualifies and
// scores lower than the recorded best wins.
func (s *Solver) considerBest() {
	if values, value, ok := s.controller.BestSnapshot(); ok {
		s.considerCandidate(values, value, len(values))
	}
	values := make(map[uint64]assignment.PlacementValue)
	for _, p := range s.solution.Assignment.Assignments() {
		values[p.Exam] = p
	}
	s.considerCandidate(values, s.registry.TotalValue(s.solution.Assignment), s.solution.Assignment.NrAssignedVariables())
}

func (s *Solver) considerCandidate(values map[uint64]assignment.PlacementValue, value float64, nrAssigned int) {
	if s.maxUnassignedForBest >= 0 {
		unassigned := len(s.solution.Model.Exams) - nrAssigned
		if unassigned > s.maxUnassignedForBest {
			return
		}
	}
	best, hasBest := s.solution.BestValue()
	if hasBest && value >= best {
		return
	}
	s.solution.saveBest(values, value)
	s.logger.Printf("solver: new best value=%.4f", value)
	s.notifyBestSaved(value)
}

func (s *Solver) notifyUpdated() {
	for _, l := range s.listeners {
		l.SolutionUpdated(s.solution)
	}
}

func (s *Solver) notifyBestSaved(value float64) {
	for _, l := range s.listeners {
		l.BestSaved(s.solution, value)
	}
}

// ParallelSolver runs a fixed pool of workers, each with its own
// ParallelAssignment view sharing the underlying Model and a common
// SharedBest slot, promoting whenever a worker strictly improves beyond
// the shared best (spec.md §5). Grounded on
// other_examples/freedakipad-paiban__parallel.go's ParallelOptimizer:
// sync.WaitGroup fan-out, one mutex-guarded shared-best, per-worker RNG.
type ParallelSolver struct {
	shared     *assignment.SharedBest
	m          *model.Model
	registry   *criteria.Registry
	workers    int
	condition  TerminationCondition
	logger     *log.Logger
	buildWorker func(a *assignment.ParallelAssignment, rng *rand.Rand) *phase.Controller
	masterSeed int64

	maxUnassignedForBest int
}

// NewParallelSolver builds a parallel solver with the given worker count
// (clamped to at least 1), each worker's phase controller built by
// buildWorker over its own isolated view and seeded RNG.
func NewParallelSolver(m *model.Model, registry *criteria.Registry, workers int, masterSeed int64, condition TerminationCondition, logger *log.Logger, buildWorker func(a *assignment.ParallelAssignment, rng *rand.Rand) *phase.Controller) *ParallelSolver {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ParallelSolver{
		shared:               assignment.NewSharedBest(),
		m:                    m,
		registry:             registry,
		workers:              workers,
		condition:            condition,
		logger:               logger,
		buildWorker:          buildWorker,
		masterSeed:           masterSeed,
		maxUnassignedForBest: -1,
	}
}

// SetMaxUnassignedForBest mirrors (*Solver).SetMaxUnassignedForBest for
// every worker of the pool.
func (s *ParallelSolver) SetMaxUnassignedForBest(n int) {
	s.maxUnassignedForBest = n
}

// Solve runs every worker to completion and returns the globally best
// values recorded, promoted under s.shared's single writer lock. The
// master seed is logged once for reproducibility (spec.md §5).
func (s *ParallelSolver) Solve() (map[uint64]assignment.PlacementValue, float64, bool) {
	s.logger.Printf("solver: parallel solve, workers=%d masterSeed=%d", s.workers, s.masterSeed)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			view := assignment.NewParallelView(s.m, s.shared)
			rng := rand.New(rand.NewSource(s.masterSeed + int64(workerID)))
			controller := s.buildWorker(view, rng)
			solution := newSolution(view)

			considerWorkerValues := func(values map[uint64]assignment.PlacementValue, value float64, nrAssigned int) {
				if s.maxUnassignedForBest >= 0 && len(s.m.Exams)-nrAssigned > s.maxUnassignedForBest {
					return
				}
				best, hasBest := solution.BestValue()
				if hasBest && value >= best {
					return
				}
				solution.saveBest(values, value)
				if s.shared.Promote(value, values) {
					s.logger.Printf("solver: worker %d promoted shared best value=%.4f", workerID, value)
				}
			}

			var iter uint64
			for {
				canContinue := s.condition.CanContinue(solution)
				before := controller.State()
				if !canContinue && before != phase.Final {
					restoreWorkerBest(view, solution, &iter)
				}
				state := controller.Step(view, &iter, canContinue)

				if values, value, ok := controller.BestSnapshot(); ok {
					considerWorkerValues(values, value, len(values))
				}
				values := make(map[uint64]assignment.PlacementValue)
				for _, p := range view.Assignments() {
					values[p.Exam] = p
				}
				considerWorkerValues(values, s.registry.TotalValue(view), view.NrAssignedVariables())

				if state == phase.Done {
					break
				}
			}
		}(i)
	}
	wg.Wait()

	return s.shared.Snapshot()
}
