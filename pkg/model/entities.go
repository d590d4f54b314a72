package model

// Placement is the value assigned to an Exam: a period together with the
// set of rooms hosting it.
type Placement struct {
	Exam   uint64
	Period uint64
	Rooms  []uint64
}

// TotalCapacity sums the normal-layout seating capacity of the rooms used by
// the placement, as reported by the given model.
func (p Placement) TotalCapacity(m *Model) uint64 {
	var total uint64
	for _, room := range p.Rooms {
		total += m.Rooms[room].Capacity
	}
	return total
}

// PeriodPreference is a single (period, weight) affinity entry. A negative
// weight is a penalty, a positive weight a preference. Hard marks the entry
// as a fixed requirement rather than an ordinary preference: the exam must
// keep this period, and criteria.PeriodViolationPenalty scores every
// hard-flagged period the exam's current placement isn't in.
type PeriodPreference struct {
	Period uint64
	Weight int
	Hard   bool
}

// RoomPreference mirrors PeriodPreference for rooms; criteria.
// RoomViolationPenalty is its Hard counterpart.
type RoomPreference struct {
	Room   uint64
	Weight int
	Hard   bool
}

// Exam is a scheduling variable: a course examination session to be placed
// on a period and a set of rooms.
type Exam struct {
	Id            uint64
	Name          string
	Size          uint64
	MinRooms      uint64
	MaxSplit      uint64
	Large         bool
	AveragePeriod float64
	Periods       []PeriodPreference
	Rooms         []RoomPreference
	Students      []uint64
	Instructors   []uint64
	Distributions []uint64
}

// PeriodAllowed reports whether period is in the exam's domain at all, that
// is, whether the exam lists any preference entry for it, whatever its
// weight or hard flag.
func (e Exam) PeriodAllowed(period uint64) bool {
	for _, pref := range e.Periods {
		if pref.Period == period {
			return true
		}
	}
	return false
}

// RoomAllowed mirrors PeriodAllowed for rooms.
func (e Exam) RoomAllowed(room uint64) bool {
	for _, pref := range e.Rooms {
		if pref.Room == room {
			return true
		}
	}
	return false
}

func (e Exam) periodWeight(period uint64) int { return e.PeriodWeight(period) }

func (e Exam) roomWeight(room uint64) int { return e.RoomWeight(room) }

// PeriodWeight returns the exam's preference weight for period, 0 if unset.
func (e Exam) PeriodWeight(period uint64) int {
	for _, pref := range e.Periods {
		if pref.Period == period {
			return pref.Weight
		}
	}
	return 0
}

// RoomWeight returns the exam's preference weight for room, 0 if unset.
func (e Exam) RoomWeight(room uint64) int {
	for _, pref := range e.Rooms {
		if pref.Room == room {
			return pref.Weight
		}
	}
	return 0
}

// Period is an ordered time slot.
type Period struct {
	Id        uint64
	Index     uint64
	Day       uint64
	TimeOfDay uint64
	Duration  uint64
	Weight    int
}

// Room is a physical location with capacity and per-period availability.
type Room struct {
	Id          uint64
	Name        string
	Capacity    uint64
	AltCapacity uint64
	Unavailable map[uint64]bool // period id -> unavailable
	Distances   map[uint64]uint64
}

// AvailableAt reports whether the room can be used during the given period.
func (r Room) AvailableAt(period uint64) bool {
	return !r.Unavailable[period]
}

// DistanceTo returns the physical distance to another room, 0 if unknown or
// identical.
func (r Room) DistanceTo(other uint64) uint64 {
	return r.Distances[other]
}

// Student attends a set of exams and may be unavailable during some
// periods (e.g. for religious observance or another program's exam).
type Student struct {
	Id          uint64
	Exams       []uint64
	Unavailable map[uint64]bool
}

// Instructor mirrors Student for teaching staff.
type Instructor struct {
	Id          uint64
	Exams       []uint64
	Unavailable map[uint64]bool
}

// DistributionType names the relation a DistributionConstraint enforces.
type DistributionType int

const (
	SamePeriod DistributionType = iota
	DifferentPeriod
	Precedence
	SameRoom
	DifferentRoom
	SameDay
	DifferentDay
	SameAttendees
)

// DistributionConstraint is a typed relation over a set of exams, with a
// hard-or-soft discipline.
type DistributionConstraint struct {
	Id     uint64
	Type   DistributionType
	Exams  []uint64
	Hard   bool
	Weight int
}
