package assignment

import "github.com/limaJavier/examtimetabling/pkg/model"

// PlacementValue is the value type Assignment maps exams to, an alias of
// model.Placement.
type PlacementValue = model.Placement

// Listener receives assign/unassign notifications with (old, new), as
// required by spec.md §4.2. Unlike AssignmentContext it is not
// per-component: it multicasts to whatever the assignment's owner
// registered (typically the solver, forwarding to solution listeners).
type Listener interface {
	Assigned(iter uint64, old *PlacementValue, new PlacementValue)
	Unassigned(iter uint64, old PlacementValue)
}

// Assignment is the authoritative source of "what is placed" (spec.md §3).
// SingleAssignment and ParallelAssignment both implement it with an
// identical external contract.
type Assignment interface {
	Model() *model.Model

	GetValue(exam uint64) (PlacementValue, bool)
	Assign(iter uint64, placement PlacementValue)
	Unassign(iter uint64, exam uint64)

	NrAssignedVariables() int
	NrUnassignedVariables() int

	// RoomOccupants returns the ids of exams currently placed in room during
	// period; PeriodOccupants returns every exam placed anywhere in period.
	RoomOccupants(period, room uint64) []uint64
	PeriodOccupants(period uint64) []uint64

	GetContext(owner ContextCreator) AssignmentContext
	AddListener(l Listener)

	// Assignments snapshots every currently-assigned placement, sorted by
	// exam id, for reporting, saving and cloning.
	Assignments() []PlacementValue

	Iteration() uint64
}
