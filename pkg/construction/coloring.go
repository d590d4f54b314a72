package construction

import (
	"slices"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/onsi/gomega/matchers/support/goraph/bipartitegraph"
	"github.com/samber/lo"
)

// Constructor is anything that can place exams into an assignment and
// report which ones it could not place. ExamConstruction and
// ColoringConstruction both satisfy it, so either can be chained or used
// standalone by the phase controller. registry is passed through so a
// constructor can weigh a placement's net effect before committing it, not
// just check room/period availability.
type Constructor interface {
	Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64) []uint64
}

// Chain runs a sequence of constructors in order, each seeing whatever the
// previous one already placed. Only the last stage's leftover list is
// reported to the caller, per spec.md §4.6's "two sub-strategies, tried in
// order": graph-coloring first, iterative-forward-search mopping up
// whatever coloring could not seat.
type Chain struct {
	stages []Constructor
}

// NewChain composes stages into a single Constructor.
func NewChain(stages ...Constructor) *Chain {
	return &Chain{stages: stages}
}

func (c *Chain) Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64) []uint64 {
	var unplaced []uint64
	for i, stage := range c.stages {
		u := stage.Run(a, registry, iter)
		if i == len(c.stages)-1 {
			unplaced = u
		}
	}
	return unplaced
}

// ColoringConstruction seats exams with a DSATUR-style graph coloring: the
// conflict graph's edges are shared students or instructors, and a color is
// a period. It runs in two passes: first every exam is given a
// conflict-free period (colored), then every period's exams are handed
// their rooms in one shot via a maximum bipartite matching, so an early
// exam doesn't greedily grab the only room a later one could have used.
// Exams a color or a room could not be found for are left for the next
// constructor in a Chain. Grounded on spec.md §4.6 item 1 for the coloring
// itself; the room-matching pass is grounded on the teacher's assignRooms
// (timetabler_utils.go), which resolves the same kind of variable-to-room
// bipartite problem with gomega's bipartitegraph.LargestMatching.
type ColoringConstruction struct{}

// NewColoringConstruction builds a graph-coloring constructor.
func NewColoringConstruction() *ColoringConstruction {
	return &ColoringConstruction{}
}

func (c *ColoringConstruction) Run(a assignment.Assignment, registry *criteria.Registry, iter *uint64) []uint64 {
	m := a.Model()
	neighbours := conflictNeighbours(m)

	remaining := make([]uint64, 0, len(m.Exams))
	for _, exam := range m.Exams {
		if _, ok := a.GetValue(exam.Id); ok {
			continue
		}
		remaining = append(remaining, exam.Id)
	}

	colorOf := make(map[uint64]uint64, len(remaining))
	var uncolored []uint64

	for len(remaining) > 0 {
		idx := mostSaturated(m, neighbours, colorOf, remaining)
		exam := remaining[idx]
		remaining = append(remaining[:idx], remaining[idx+1:]...)

		if period, ok := choosePeriod(m, exam, neighbours, colorOf); ok {
			colorOf[exam] = period
		} else {
			uncolored = append(uncolored, exam)
		}
	}

	byPeriod := make(map[uint64][]uint64)
	for exam, period := range colorOf {
		byPeriod[period] = append(byPeriod[period], exam)
	}

	unplaced := uncolored
	for period, exams := range byPeriod {
		placed := assignRoomsForPeriod(m, a, period, exams, iter)
		for _, exam := range exams {
			if !placed[exam] {
				unplaced = append(unplaced, exam)
			}
		}
	}
	return unplaced
}

// choosePeriod returns the highest-weighted period exam is allowed to sit
// that no color-conflicting neighbour already holds.
func choosePeriod(m *model.Model, exam uint64, neighbours map[uint64][]uint64, colorOf map[uint64]uint64) (uint64, bool) {
	e := m.Exams[exam]
	prefs := slices.Clone(e.Periods)
	slices.SortFunc(prefs, func(a, b model.PeriodPreference) int { return b.Weight - a.Weight })
	for _, pref := range prefs {
		if !e.PeriodAllowed(pref.Period) {
			continue
		}
		if colorConflicts(exam, pref.Period, neighbours, colorOf) {
			continue
		}
		return pref.Period, true
	}
	return 0, false
}

// assignRoomsForPeriod seats every exam colored with period. Exams whose
// best room-set requires more than one room are seated greedily first
// (matching only pairs one room per exam); everyone else competes for a
// single room through one maximum bipartite matching over the period's
// still-free rooms.
func assignRoomsForPeriod(m *model.Model, a assignment.Assignment, period uint64, exams []uint64, iter *uint64) map[uint64]bool {
	placed := make(map[uint64]bool, len(exams))

	var singleRoomExams []uint64
	for _, exam := range exams {
		if p, ok := domainPlacementFor(m, exam, period); ok && len(p.Rooms) > 1 {
			if roomsFree(a, p) {
				*iter++
				a.Assign(*iter, p)
				placed[exam] = true
			}
			continue
		}
		singleRoomExams = append(singleRoomExams, exam)
	}
	if len(singleRoomExams) == 0 {
		return placed
	}

	rooms := make([]uint64, len(m.Rooms))
	for i, r := range m.Rooms {
		rooms[i] = r.Id
	}

	variablesAny := lo.Map(singleRoomExams, func(exam uint64, _ int) any { return exam })
	roomsAny := lo.Map(rooms, func(room uint64, _ int) any { return room })

	fits := func(examAny, roomAny any) (bool, error) {
		exam, room := examAny.(uint64), roomAny.(uint64)
		if len(a.RoomOccupants(period, room)) > 0 {
			return false, nil
		}
		return m.FitsRooms(exam, period, []uint64{room}), nil
	}

	graph, err := bipartitegraph.NewBipartiteGraph(variablesAny, roomsAny, fits)
	if err != nil {
		return placed
	}

	for _, edge := range graph.LargestMatching() {
		exam := singleRoomExams[edge.Node1]
		room := rooms[edge.Node2-len(singleRoomExams)]
		*iter++
		a.Assign(*iter, model.Placement{Exam: exam, Period: period, Rooms: []uint64{room}})
		placed[exam] = true
	}
	return placed
}

func domainPlacementFor(m *model.Model, exam, period uint64) (model.Placement, bool) {
	for _, p := range m.Domain(exam, 0) {
		if p.Period == period {
			return p, true
		}
	}
	return model.Placement{}, false
}

func roomsFree(a assignment.Assignment, p model.Placement) bool {
	for _, room := range p.Rooms {
		if len(a.RoomOccupants(p.Period, room)) > 0 {
			return false
		}
	}
	return true
}

func colorConflicts(exam, period uint64, neighbours map[uint64][]uint64, colorOf map[uint64]uint64) bool {
	for _, other := range neighbours[exam] {
		if p, ok := colorOf[other]; ok && p == period {
			return true
		}
	}
	return false
}

// mostSaturated picks the index within remaining of the exam with the most
// distinctly-colored neighbours, breaking ties by degree then by size
// descending, per spec.md §4.6's DSATUR ordering.
func mostSaturated(m *model.Model, neighbours map[uint64][]uint64, colorOf map[uint64]uint64, remaining []uint64) int {
	best := 0
	bestSat, bestDeg := -1, -1
	for i, exam := range remaining {
		sat := saturation(exam, neighbours, colorOf)
		deg := len(neighbours[exam])
		switch {
		case i == 0:
			best, bestSat, bestDeg = i, sat, deg
		case sat > bestSat:
			best, bestSat, bestDeg = i, sat, deg
		case sat == bestSat && deg > bestDeg:
			best, bestSat, bestDeg = i, sat, deg
		case sat == bestSat && deg == bestDeg && m.Exams[exam].Size > m.Exams[remaining[best]].Size:
			best, bestSat, bestDeg = i, sat, deg
		}
	}
	return best
}

func saturation(exam uint64, neighbours map[uint64][]uint64, colorOf map[uint64]uint64) int {
	seen := make(map[uint64]bool)
	for _, other := range neighbours[exam] {
		if p, ok := colorOf[other]; ok {
			seen[p] = true
		}
	}
	return len(seen)
}

// conflictNeighbours builds the exam conflict graph: an edge for every pair
// sharing at least one student or instructor.
func conflictNeighbours(m *model.Model) map[uint64][]uint64 {
	out := make(map[uint64][]uint64, len(m.Exams))
	for i := 0; i < len(m.Exams); i++ {
		for j := i + 1; j < len(m.Exams); j++ {
			examA, examB := m.Exams[i].Id, m.Exams[j].Id
			if m.SharesStudents(examA, examB) || m.SharesInstructors(examA, examB) {
				out[examA] = append(out[examA], examB)
				out[examB] = append(out[examB], examA)
			}
		}
	}
	return out
}
