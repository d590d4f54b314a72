// Package neighbour generates candidate moves — hypothetical reassignments
// of a single exam — that the search phases evaluate and possibly commit.
// A move is scored without mutating the assignment (spec.md §4.4's
// DeltaValue contract) so many can be sampled cheaply per iteration.
package neighbour

import (
	"math/rand"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// Move is a candidate placement together with the exams that would need to
// be unassigned first to make room for it.
type Move struct {
	Placement assignment.PlacementValue
	Conflicts []uint64
}

// Neighbour generates and scores candidate moves for a given assignment
// state. Implementations never mutate the assignment they are given.
type Neighbour interface {
	// Generate proposes up to n candidate moves. It may return fewer if the
	// neighbourhood is exhausted.
	Generate(a assignment.Assignment, rng *rand.Rand, n int) []Move

	// Value scores a move: the weighted delta the registry would report if
	// the move were committed.
	Value(a assignment.Assignment, m Move) float64
}

type registryNeighbour struct {
	registry *criteria.Registry
	pick     func(m *model.Model, a assignment.Assignment, rng *rand.Rand) (assignment.PlacementValue, []uint64, bool)
}

func (n *registryNeighbour) Value(a assignment.Assignment, mv Move) float64 {
	return n.registry.TotalDeltaValue(a, mv.Placement, mv.Conflicts)
}

func (n *registryNeighbour) Generate(a assignment.Assignment, rng *rand.Rand, count int) []Move {
	moves := make([]Move, 0, count)
	m := a.Model()
	for i := 0; i < count; i++ {
		placement, conflicts, ok := n.pick(m, a, rng)
		if !ok {
			continue
		}
		moves = append(moves, Move{Placement: placement, Conflicts: conflicts})
	}
	return moves
}

// conflictsFor computes which currently-assigned exams a placement would
// have to displace: any exam occupying one of the placement's rooms during
// its period, other than the exam being placed itself.
func conflictsFor(a assignment.Assignment, p assignment.PlacementValue) []uint64 {
	seen := make(map[uint64]bool)
	var conflicts []uint64
	for _, room := range p.Rooms {
		for _, exam := range a.RoomOccupants(p.Period, room) {
			if exam == p.Exam || seen[exam] {
				continue
			}
			seen[exam] = true
			conflicts = append(conflicts, exam)
		}
	}
	return conflicts
}

func randomExam(m *model.Model, rng *rand.Rand) uint64 {
	return uint64(rng.Intn(len(m.Exams)))
}

// NewExamRandomMove picks a random exam and a random feasible placement
// from its domain, ignoring its current placement (spec.md's ExamRandomMove
// neighbourhood).
func NewExamRandomMove(registry *criteria.Registry) Neighbour {
	return &registryNeighbour{
		registry: registry,
		pick: func(m *model.Model, a assignment.Assignment, rng *rand.Rand) (assignment.PlacementValue, []uint64, bool) {
			exam := randomExam(m, rng)
			domain := m.Domain(exam, 32)
			if len(domain) == 0 {
				return assignment.PlacementValue{}, nil, false
			}
			p := domain[rng.Intn(len(domain))]
			return p, conflictsFor(a, p), true
		},
	}
}

// NewExamTimeMove picks a random assigned exam and proposes moving it to a
// different period while keeping the same rooms where still feasible,
// falling back to the room search if not (spec.md's ExamTimeMove).
func NewExamTimeMove(registry *criteria.Registry) Neighbour {
	return &registryNeighbour{
		registry: registry,
		pick: func(m *model.Model, a assignment.Assignment, rng *rand.Rand) (assignment.PlacementValue, []uint64, bool) {
			assigned := a.Assignments()
			if len(assigned) == 0 {
				return assignment.PlacementValue{}, nil, false
			}
			current := assigned[rng.Intn(len(assigned))]
			domain := m.Domain(current.Exam, 32)
			var candidates []assignment.PlacementValue
			for _, p := range domain {
				if p.Period != current.Period {
					candidates = append(candidates, p)
				}
			}
			if len(candidates) == 0 {
				return assignment.PlacementValue{}, nil, false
			}
			p := candidates[rng.Intn(len(candidates))]
			if keep := (assignment.PlacementValue{Exam: current.Exam, Period: p.Period, Rooms: current.Rooms}); m.FeasiblePlacement(keep) {
				p = keep
			}
			return p, conflictsFor(a, p), true
		},
	}
}

// NewExamRoomMove picks a random assigned exam and proposes an alternate
// room set for its current period (spec.md's ExamRoomMove).
func NewExamRoomMove(registry *criteria.Registry) Neighbour {
	return &registryNeighbour{
		registry: registry,
		pick: func(m *model.Model, a assignment.Assignment, rng *rand.Rand) (assignment.PlacementValue, []uint64, bool) {
			assigned := a.Assignments()
			if len(assigned) == 0 {
				return assignment.PlacementValue{}, nil, false
			}
			current := assigned[rng.Intn(len(assigned))]
			domain := m.Domain(current.Exam, 32)
			var candidates []assignment.PlacementValue
			for _, p := range domain {
				if p.Period == current.Period && !sameRooms(p.Rooms, current.Rooms) {
					candidates = append(candidates, p)
				}
			}
			if len(candidates) == 0 {
				return assignment.PlacementValue{}, nil, false
			}
			p := candidates[rng.Intn(len(candidates))]
			return p, conflictsFor(a, p), true
		},
	}
}

// NewExamSplit proposes re-placing a random assigned exam into a
// multi-room split at its current period, when its domain offers one
// (spec.md's optional ExamSplit neighbourhood).
func NewExamSplit(registry *criteria.Registry) Neighbour {
	return &registryNeighbour{
		registry: registry,
		pick: func(m *model.Model, a assignment.Assignment, rng *rand.Rand) (assignment.PlacementValue, []uint64, bool) {
			assigned := a.Assignments()
			if len(assigned) == 0 {
				return assignment.PlacementValue{}, nil, false
			}
			current := assigned[rng.Intn(len(assigned))]
			if m.Exams[current.Exam].MaxSplit < 2 {
				return assignment.PlacementValue{}, nil, false
			}
			domain := m.Domain(current.Exam, 32)
			var candidates []assignment.PlacementValue
			for _, p := range domain {
				if p.Period == current.Period && len(p.Rooms) > 1 {
					candidates = append(candidates, p)
				}
			}
			if len(candidates) == 0 {
				return assignment.PlacementValue{}, nil, false
			}
			p := candidates[rng.Intn(len(candidates))]
			return p, conflictsFor(a, p), true
		},
	}
}

func sameRooms(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uint64]bool, len(a))
	for _, r := range a {
		set[r] = true
	}
	for _, r := range b {
		if !set[r] {
			return false
		}
	}
	return true
}
