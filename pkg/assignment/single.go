package assignment

import (
	"fmt"
	"slices"

	"github.com/limaJavier/examtimetabling/pkg/model"
)

// SingleAssignment is backed by a plain mapping; assign/unassign are O(1)
// and it performs no synchronization, matching spec.md §4.2.
type SingleAssignment struct {
	contextArena
	m         *model.Model
	values    map[uint64]PlacementValue
	byRoom    map[[2]uint64][]uint64 // (period, room) -> exam ids
	byPeriod  map[uint64][]uint64    // period -> exam ids
	listeners []Listener
	iter      uint64
}

// NewSingle creates an empty single-threaded assignment over m.
func NewSingle(m *model.Model) *SingleAssignment {
	return &SingleAssignment{
		contextArena: newContextArena(),
		m:            m,
		values:       make(map[uint64]PlacementValue),
		byRoom:       make(map[[2]uint64][]uint64),
		byPeriod:     make(map[uint64][]uint64),
	}
}

func (a *SingleAssignment) Model() *model.Model { return a.m }

func (a *SingleAssignment) GetValue(exam uint64) (PlacementValue, bool) {
	p, ok := a.values[exam]
	return p, ok
}

func (a *SingleAssignment) NrAssignedVariables() int { return len(a.values) }

func (a *SingleAssignment) NrUnassignedVariables() int {
	return len(a.m.Exams) - len(a.values)
}

func (a *SingleAssignment) RoomOccupants(period, room uint64) []uint64 {
	return a.byRoom[[2]uint64{period, room}]
}

func (a *SingleAssignment) PeriodOccupants(period uint64) []uint64 {
	return a.byPeriod[period]
}

func (a *SingleAssignment) GetContext(owner ContextCreator) AssignmentContext {
	return a.contextArena.get(a, owner)
}

func (a *SingleAssignment) AddListener(l Listener) {
	a.listeners = append(a.listeners, l)
}

func (a *SingleAssignment) Iteration() uint64 { return a.iter }

func (a *SingleAssignment) Assignments() []PlacementValue {
	out := make([]PlacementValue, 0, len(a.values))
	for _, p := range a.values {
		out = append(out, p)
	}
	slices.SortFunc(out, func(x, y PlacementValue) int { return int(x.Exam) - int(y.Exam) })
	return out
}

// Assign replaces any existing value for placement.Exam. Feasibility is the
// caller's obligation: an infeasible placement panics (spec.md §4.2 — moves
// produce only feasible placements, so reaching here with an infeasible one
// is a programmer bug).
func (a *SingleAssignment) Assign(iter uint64, placement PlacementValue) {
	if !a.m.FeasiblePlacement(placement) {
		panic(fmt.Sprintf("assignment: infeasible placement for exam %d at period %d", placement.Exam, placement.Period))
	}

	old, hadOld := a.values[placement.Exam]
	if hadOld {
		a.unassignLocked(iter, placement.Exam, old, true)
	}

	a.contextArena.fireBeforeAssigned(iter, placement)
	a.values[placement.Exam] = placement
	a.addOccupancy(placement)
	a.iter = iter
	a.contextArena.fireAfterAssigned(iter, placement)

	var oldPtr *PlacementValue
	if hadOld {
		oldPtr = &old
	}
	for _, l := range a.listeners {
		l.Assigned(iter, oldPtr, placement)
	}
}

// Unassign is a no-op if exam is not currently assigned (spec.md §8
// property 4, idempotent unassign).
func (a *SingleAssignment) Unassign(iter uint64, exam uint64) {
	old, ok := a.values[exam]
	if !ok {
		return
	}
	a.unassignLocked(iter, exam, old, false)
	for _, l := range a.listeners {
		l.Unassigned(iter, old)
	}
}

func (a *SingleAssignment) unassignLocked(iter uint64, exam uint64, old PlacementValue, replacing bool) {
	a.contextArena.fireBeforeUnassigned(iter, old)
	delete(a.values, exam)
	a.removeOccupancy(old)
	a.iter = iter
	a.contextArena.fireAfterUnassigned(iter, old)
	_ = replacing
}

func (a *SingleAssignment) addOccupancy(p PlacementValue) {
	a.byPeriod[p.Period] = append(a.byPeriod[p.Period], p.Exam)
	for _, room := range p.Rooms {
		key := [2]uint64{p.Period, room}
		a.byRoom[key] = append(a.byRoom[key], p.Exam)
	}
}

func (a *SingleAssignment) removeOccupancy(p PlacementValue) {
	a.byPeriod[p.Period] = removeExam(a.byPeriod[p.Period], p.Exam)
	for _, room := range p.Rooms {
		key := [2]uint64{p.Period, room}
		a.byRoom[key] = removeExam(a.byRoom[key], p.Exam)
	}
}

func removeExam(exams []uint64, exam uint64) []uint64 {
	idx := slices.Index(exams, exam)
	if idx < 0 {
		return exams
	}
	return slices.Delete(exams, idx, idx+1)
}

// replaceAll wholesale-replaces the assignment's contents, used only by
// ParallelAssignment reconciliation at a promotion boundary; it does not
// fire per-event notifications since it is not itself a search move.
func (a *SingleAssignment) replaceAll(values map[uint64]PlacementValue) {
	a.values = make(map[uint64]PlacementValue, len(values))
	a.byRoom = make(map[[2]uint64][]uint64)
	a.byPeriod = make(map[uint64][]uint64)
	for exam, p := range values {
		a.values[exam] = p
		a.addOccupancy(p)
	}
}
