// Package metaheuristic implements the acceptance strategies that drive
// the search once an assignment is already feasible-ish: hill climbing,
// simulated annealing and great deluge. Grounded on
// other_examples/freedakipad-paiban's LocalSearchOptimizer (Boltzmann
// acceptance, geometric cooling, plateau detection).
package metaheuristic

import (
	"math"
	"math/rand"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/neighbour"
)

// Metaheuristic runs one full search loop over an assignment, applying
// accepted moves as it goes, and reports how many iterations it ran.
type Metaheuristic interface {
	Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64, rng *rand.Rand) Result
}

// Result summarizes one metaheuristic run. BestValues is a snapshot of the
// assignment at the moment BestValue was reached, independent of whatever
// the assignment holds when Run returns (spec.md §4.9): simulated annealing
// and great deluge both accept worsening moves, so the run's final state
// can be worse than the best point it actually visited. It is always set:
// a run that never improves reports the assignment as it was when Run
// started.
type Result struct {
	Iterations int
	BestValue  float64
	BestValues map[uint64]assignment.PlacementValue
	Improved   bool
}

// applyMove commits mv to a, evicting conflicts first. Callers add the
// move's predicted DeltaValue to their running total; no other move
// interleaves, so that total matches the realized change.
func applyMove(a assignment.Assignment, iter *uint64, mv neighbour.Move) {
	for _, evicted := range mv.Conflicts {
		*iter++
		a.Unassign(*iter, evicted)
	}
	*iter++
	a.Assign(*iter, mv.Placement)
}

// snapshotValues copies a's current placements into a fresh map, the same
// shape Solution.saveBest expects.
func snapshotValues(a assignment.Assignment) map[uint64]assignment.PlacementValue {
	values := make(map[uint64]assignment.PlacementValue)
	for _, p := range a.Assignments() {
		values[p.Exam] = p
	}
	return values
}

// HillClimbing greedily samples each configured neighbourhood and commits
// only strictly-improving moves, stopping after maxNoImprovement
// consecutive failures (spec.md §4.11's HillClimber phase).
type HillClimbing struct {
	neighbours        []neighbour.Neighbour
	samplesPerStep    int
	maxNoImprovement  int
}

// NewHillClimbing builds a hill-climbing metaheuristic sampling
// samplesPerStep candidates per neighbourhood each step, stopping after
// maxNoImprovement consecutive non-improving steps.
func NewHillClimbing(samplesPerStep, maxNoImprovement int, neighbours ...neighbour.Neighbour) *HillClimbing {
	return &HillClimbing{neighbours: neighbours, samplesPerStep: samplesPerStep, maxNoImprovement: maxNoImprovement}
}

func (h *HillClimbing) Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64, rng *rand.Rand) Result {
	best := registry.TotalValue(a)
	noImprovement := 0
	steps := 0
	improved := false

	for noImprovement < h.maxNoImprovement {
		steps++
		mv, value, ok := bestSampledMove(a, h.neighbours, rng, h.samplesPerStep)
		if !ok || value >= 0 {
			noImprovement++
			continue
		}
		applyMove(a, iter, mv)
		best += value
		noImprovement = 0
		improved = true
	}
	// Every accepted move strictly improves, so the live assignment is
	// already at its best point when the loop stops.
	return Result{Iterations: steps, BestValue: best, BestValues: snapshotValues(a), Improved: improved}
}

// SimulatedAnnealing accepts worsening moves with Boltzmann probability
// exp(-delta/temperature), cooling geometrically each step. Grounded on
// freedakipad-paiban's boltzmannProbability and CoolingRate.
type SimulatedAnnealing struct {
	neighbours     []neighbour.Neighbour
	samplesPerStep int
	initialTemp    float64
	coolingRate    float64
	maxSteps       int
	reheatAt       int // consecutive non-improving steps that trigger a reheat; 0 disables
}

// NewSimulatedAnnealing builds a simulated-annealing metaheuristic. reheatAt
// of 0 disables reheating.
func NewSimulatedAnnealing(initialTemp, coolingRate float64, maxSteps, samplesPerStep, reheatAt int, neighbours ...neighbour.Neighbour) *SimulatedAnnealing {
	return &SimulatedAnnealing{
		neighbours:     neighbours,
		samplesPerStep: samplesPerStep,
		initialTemp:    initialTemp,
		coolingRate:    coolingRate,
		maxSteps:       maxSteps,
		reheatAt:       reheatAt,
	}
}

func boltzmannProbability(delta, temperature float64) float64 {
	if delta <= 0 {
		return 1
	}
	if temperature <= 0 {
		return 0
	}
	return math.Exp(-delta / temperature)
}

func (s *SimulatedAnnealing) Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64, rng *rand.Rand) Result {
	current := registry.TotalValue(a)
	best := current
	bestValues := snapshotValues(a)
	improved := false
	temperature := s.initialTemp
	noImprovement := 0

	for step := 0; step < s.maxSteps; step++ {
		mv, value, ok := bestSampledMove(a, s.neighbours, rng, s.samplesPerStep)
		if !ok {
			continue
		}

		accept := value < 0 || rng.Float64() < boltzmannProbability(value, temperature)
		if accept {
			applyMove(a, iter, mv)
			current += value
			if current < best {
				best = current
				bestValues = snapshotValues(a)
				improved = true
				noImprovement = 0
			} else {
				noImprovement++
			}
		} else {
			noImprovement++
		}

		if s.reheatAt > 0 && noImprovement >= s.reheatAt {
			temperature = s.initialTemp
			noImprovement = 0
		}
		temperature *= s.coolingRate
	}
	return Result{Iterations: s.maxSteps, BestValue: best, BestValues: bestValues, Improved: improved}
}

// GreatDeluge accepts any move that keeps the total value under a bound
// that decays each step; a stagnant run resets the bound upward from the
// current value to escape a local trough.
type GreatDeluge struct {
	neighbours     []neighbour.Neighbour
	samplesPerStep int
	decayRate      float64
	maxSteps       int
	stagnationReset int
}

// NewGreatDeluge builds a great-deluge metaheuristic. The bound starts at
// the assignment's current value and shrinks by decayRate each step
// (0 < decayRate < 1); after stagnationReset consecutive rejected steps the
// bound is reset to the current value times (1+decayRate) to let the search
// escape.
func NewGreatDeluge(decayRate float64, maxSteps, samplesPerStep, stagnationReset int, neighbours ...neighbour.Neighbour) *GreatDeluge {
	return &GreatDeluge{neighbours: neighbours, samplesPerStep: samplesPerStep, decayRate: decayRate, maxSteps: maxSteps, stagnationReset: stagnationReset}
}

func (g *GreatDeluge) Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64, rng *rand.Rand) Result {
	current := registry.TotalValue(a)
	best := current
	bestValues := snapshotValues(a)
	bound := current
	improved := false
	stagnant := 0

	for step := 0; step < g.maxSteps; step++ {
		mv, value, ok := bestSampledMove(a, g.neighbours, rng, g.samplesPerStep)
		if !ok {
			continue
		}

		candidate := current + value
		if candidate <= bound {
			applyMove(a, iter, mv)
			current = candidate
			if current < best {
				best = current
				bestValues = snapshotValues(a)
				improved = true
			}
			stagnant = 0
		} else {
			stagnant++
		}

		if g.stagnationReset > 0 && stagnant >= g.stagnationReset {
			bound = current * (1 + g.decayRate)
			stagnant = 0
		} else {
			bound *= (1 - g.decayRate)
		}
	}
	return Result{Iterations: g.maxSteps, BestValue: best, BestValues: bestValues, Improved: improved}
}

// bestSampledMove draws samplesPerStep candidates from each neighbourhood
// and returns the least-worsening one found.
func bestSampledMove(a assignment.Assignment, neighbours []neighbour.Neighbour, rng *rand.Rand, samplesPerStep int) (neighbour.Move, float64, bool) {
	var best neighbour.Move
	var bestValue float64
	found := false

	for _, n := range neighbours {
		for _, mv := range n.Generate(a, rng, samplesPerStep) {
			value := n.Value(a, mv)
			if !found || value < bestValue {
				best, bestValue, found = mv, value, true
			}
		}
	}
	return best, bestValue, found
}
