package model

import (
	"slices"

	"github.com/samber/lo"
)

// Model owns every entity of a problem instance once it has been loaded.
// It never mutates after construction and is shared freely across worker
// goroutines in the parallel solver.
type Model struct {
	Exams         []Exam
	Periods       []Period
	Rooms         []Room
	Students      []Student
	Instructors   []Instructor
	Distributions []DistributionConstraint

	// Derived indexes built by New; which exams occupy which period lives on
	// the Assignment (see pkg/assignment), not here.
	studentOfExam    map[uint64][]uint64 // exam -> students, cached from Exams for speed
	instructorOfExam map[uint64][]uint64
}

// New builds a Model from already-normalized entity slices and computes the
// derived indexes queries need. It is the single place entity invariants are
// checked; a violation is reported as a MalformedInputError.
func New(exams []Exam, periods []Period, rooms []Room, students []Student, instructors []Instructor, distributions []DistributionConstraint) (*Model, error) {
	m := &Model{
		Exams:         exams,
		Periods:       periods,
		Rooms:         rooms,
		Students:      students,
		Instructors:   instructors,
		Distributions: distributions,
	}

	for _, student := range students {
		for _, exam := range student.Exams {
			if exam >= uint64(len(exams)) {
				return nil, newMalformedInput("student %d references unknown exam %d", student.Id, exam)
			}
		}
	}
	for _, instructor := range instructors {
		for _, exam := range instructor.Exams {
			if exam >= uint64(len(exams)) {
				return nil, newMalformedInput("instructor %d references unknown exam %d", instructor.Id, exam)
			}
		}
	}
	for _, dist := range distributions {
		for _, exam := range dist.Exams {
			if exam >= uint64(len(exams)) {
				return nil, newMalformedInput("distribution %d references unknown exam %d", dist.Id, exam)
			}
		}
	}
	for _, exam := range exams {
		if len(exam.Periods) == 0 {
			return nil, newMalformedInput("exam %d has no allowed periods", exam.Id)
		}
		if len(exam.Rooms) == 0 && exam.Size > 0 {
			return nil, newMalformedInput("exam %d has no allowed rooms", exam.Id)
		}
	}

	m.studentOfExam = make(map[uint64][]uint64, len(exams))
	m.instructorOfExam = make(map[uint64][]uint64, len(exams))
	for _, student := range students {
		for _, exam := range student.Exams {
			m.studentOfExam[exam] = append(m.studentOfExam[exam], student.Id)
		}
	}
	for _, instructor := range instructors {
		for _, exam := range instructor.Exams {
			m.instructorOfExam[exam] = append(m.instructorOfExam[exam], instructor.Id)
		}
	}

	return m, nil
}

// StudentsOf returns the ids of the students attending exam.
func (m *Model) StudentsOf(exam uint64) []uint64 {
	return m.studentOfExam[exam]
}

// InstructorsOf returns the ids of the instructors teaching exam.
func (m *Model) InstructorsOf(exam uint64) []uint64 {
	return m.instructorOfExam[exam]
}

// SharesStudents reports whether exam1 and exam2 have at least one student
// in common. Grounded on the teacher's predicateEvaluatorStandard.Disjoint,
// generalized from group/group adjacency to exam/exam adjacency.
func (m *Model) SharesStudents(exam1, exam2 uint64) bool {
	if exam1 == exam2 {
		return false
	}
	students1 := m.studentOfExam[exam1]
	students2 := m.studentOfExam[exam2]
	if len(students1) > len(students2) {
		students1, students2 = students2, students1
	}
	for _, s := range students1 {
		if slices.Contains(students2, s) {
			return true
		}
	}
	return false
}

// SharesInstructors mirrors SharesStudents for instructors.
func (m *Model) SharesInstructors(exam1, exam2 uint64) bool {
	if exam1 == exam2 {
		return false
	}
	instructors1 := m.instructorOfExam[exam1]
	instructors2 := m.instructorOfExam[exam2]
	if len(instructors1) > len(instructors2) {
		instructors1, instructors2 = instructors2, instructors1
	}
	for _, i := range instructors1 {
		if slices.Contains(instructors2, i) {
			return true
		}
	}
	return false
}

// PeriodDistance returns the absolute index distance between two periods.
func (m *Model) PeriodDistance(period1, period2 uint64) int64 {
	i1, i2 := int64(m.Periods[period1].Index), int64(m.Periods[period2].Index)
	if i1 > i2 {
		return i1 - i2
	}
	return i2 - i1
}

// SameDay reports whether two periods fall on the same calendar day.
func (m *Model) SameDay(period1, period2 uint64) bool {
	return m.Periods[period1].Day == m.Periods[period2].Day
}

// BackToBack reports whether two periods are adjacent by index, honoring the
// cross-day flag (spec.md StudentBackToBackConflicts).
func (m *Model) BackToBack(period1, period2 uint64, allowCrossDay bool) bool {
	if m.PeriodDistance(period1, period2) != 1 {
		return false
	}
	return allowCrossDay || m.SameDay(period1, period2)
}

// RoomDistance returns the physical distance between two rooms.
func (m *Model) RoomDistance(room1, room2 uint64) uint64 {
	if room1 == room2 {
		return 0
	}
	return m.Rooms[room1].DistanceTo(room2)
}

// FitsRooms reports whether the total capacity of rooms covers exam's size
// and every room is available during period and allowed for the exam.
func (m *Model) FitsRooms(exam uint64, period uint64, rooms []uint64) bool {
	e := m.Exams[exam]
	if uint64(len(rooms)) > e.MaxSplit && e.MaxSplit > 0 {
		return false
	}
	if uint64(len(rooms)) < e.MinRooms {
		return false
	}
	var capacity uint64
	for _, room := range rooms {
		r := m.Rooms[room]
		if !r.AvailableAt(period) {
			return false
		}
		if !e.RoomAllowed(room) {
			return false
		}
		capacity += r.Capacity
	}
	return capacity >= e.Size
}

// FeasiblePlacement reports whether placement satisfies every hard
// invariant from spec.md's Placement invariants: total seating covers the
// exam, every room is available and allowed, and the period is allowed.
func (m *Model) FeasiblePlacement(p Placement) bool {
	e := m.Exams[p.Exam]
	if !e.PeriodAllowed(p.Period) {
		return false
	}
	return m.FitsRooms(p.Exam, p.Period, p.Rooms)
}

// heuristicScore ranks a candidate placement for domain ordering: higher is
// tried first during construction. It combines period preference, room
// preference and a size-fit bonus, following spec.md §4.1's domain-ordering
// rule.
func (m *Model) heuristicScore(p Placement) int {
	e := m.Exams[p.Exam]
	score := e.periodWeight(p.Period) * 10
	var capacity uint64
	for _, room := range p.Rooms {
		score += e.roomWeight(room)
		capacity += m.Rooms[room].Capacity
	}
	if capacity > 0 {
		// Reward tight fits over wasteful over-allocation.
		waste := capacity - e.Size
		score -= int(waste)
	}
	return score
}

// Domain enumerates feasible placements for exam, in decreasing heuristic
// score order, capped to limit for tractability on large room/period
// products. A limit of 0 means unbounded.
func (m *Model) Domain(exam uint64, limit int) []Placement {
	e := m.Exams[exam]
	placements := make([]Placement, 0, len(e.Periods))

	for _, periodPref := range e.Periods {
		rooms := m.bestRoomSets(exam, periodPref.Period)
		for _, roomSet := range rooms {
			placements = append(placements, Placement{Exam: exam, Period: periodPref.Period, Rooms: roomSet})
		}
	}

	placements = lo.Slice(sortByScore(placements, m), 0, boundedLen(len(placements), limit))
	return placements
}

func boundedLen(n, limit int) int {
	if limit <= 0 || limit > n {
		return n
	}
	return limit
}

func sortByScore(placements []Placement, m *Model) []Placement {
	scored := lo.Map(placements, func(p Placement, _ int) lo.Tuple2[Placement, int] {
		return lo.Tuple2[Placement, int]{A: p, B: m.heuristicScore(p)}
	})
	slices.SortFunc(scored, func(a, b lo.Tuple2[Placement, int]) int { return b.B - a.B })
	return lo.Map(scored, func(t lo.Tuple2[Placement, int], _ int) Placement { return t.A })
}

// bestRoomSets searches feasible room combinations for exam at period,
// preferring a single best-fit room and falling back to split combinations
// up to the exam's configured split maximum. Grounded on the teacher's
// permutation-based room search (permutations_generator_implementation.go),
// generalized here from Cartesian-product enumeration to subset search
// since a placement's value is a *set* of rooms, not a coordinate.
func (m *Model) bestRoomSets(exam uint64, period uint64) [][]uint64 {
	e := m.Exams[exam]
	candidates := lo.FilterMap(e.Rooms, func(pref RoomPreference, _ int) (Room, bool) {
		room := m.Rooms[pref.Room]
		return room, room.AvailableAt(period)
	})
	slices.SortFunc(candidates, func(a, b Room) int {
		if a.Capacity != b.Capacity {
			return int(a.Capacity) - int(b.Capacity)
		}
		return int(a.Id) - int(b.Id)
	})

	results := make([][]uint64, 0, 2)
	if single, ok := lo.Find(candidates, func(r Room) bool { return r.Capacity >= e.Size }); ok {
		results = append(results, []uint64{single.Id})
	}

	maxSplit := e.MaxSplit
	if maxSplit < 2 {
		return results
	}
	if split := m.smallestSplit(candidates, e.Size, maxSplit); split != nil {
		results = append(results, split)
	}
	return results
}

// smallestSplit greedily accumulates the largest remaining rooms until the
// exam's size is covered, bounded by maxRooms.
func (m *Model) smallestSplit(candidates []Room, size uint64, maxRooms uint64) []uint64 {
	sorted := slices.Clone(candidates)
	slices.SortFunc(sorted, func(a, b Room) int { return int(b.Capacity) - int(a.Capacity) })

	var chosen []uint64
	var capacity uint64
	for _, room := range sorted {
		if uint64(len(chosen)) >= maxRooms {
			break
		}
		chosen = append(chosen, room.Id)
		capacity += room.Capacity
		if capacity >= size {
			return chosen
		}
	}
	return nil
}
