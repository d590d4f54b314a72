package model

import (
	"encoding/json"
	"os"

	"github.com/mitchellh/mapstructure"
)

// RawPeriodPref and RawRoomPref carry a preference/hard flag pair as read
// from an input file; ProcessRawInput copies Weight and Hard unchanged.
type RawPeriodPref struct {
	Period uint64
	Weight int
	Hard   bool
}

type RawRoomPref struct {
	Room   uint64
	Weight int
	Hard   bool
}

// RawExam, RawPeriod, RawRoom, RawStudent, RawInstructor and
// RawDistribution mirror the wire shape of a problem file. Grounded on the
// teacher's RawEntry/RawModelInput two-stage decode (pkg/model/input.go):
// a loose, mapstructure-friendly shape is decoded first, then normalized
// into strict entities by ProcessRawInput.
type RawExam struct {
	Id            uint64
	Name          string
	Size          uint64
	MinRooms      uint64
	MaxSplit      uint64
	Large         bool
	AveragePeriod float64
	Periods       []RawPeriodPref
	Rooms         []RawRoomPref
	Students      []uint64
	Instructors   []uint64
	Distributions []uint64
}

type RawPeriod struct {
	Id        uint64
	Index     uint64
	Day       uint64
	TimeOfDay uint64
	Duration  uint64
	Weight    int
}

type RawRoom struct {
	Id          uint64
	Name        string
	Capacity    uint64
	AltCapacity uint64
	Unavailable []uint64
	Distances   map[uint64]uint64
}

type RawStudent struct {
	Id          uint64
	Exams       []uint64
	Unavailable []uint64
}

type RawInstructor struct {
	Id          uint64
	Exams       []uint64
	Unavailable []uint64
}

type RawDistribution struct {
	Id     uint64
	Type   string
	Exams  []uint64
	Hard   bool
	Weight int
}

// RawModelInput is the top-level decode target for a problem file, whether
// it originated as JSON (test fixtures) or was converted from XML by
// pkg/ioadapter.
type RawModelInput struct {
	Exams         []RawExam
	Periods       []RawPeriod
	Rooms         []RawRoom
	Students      []RawStudent
	Instructors   []RawInstructor
	Distributions []RawDistribution
}

var distributionTypes = map[string]DistributionType{
	"SamePeriod":      SamePeriod,
	"DifferentPeriod": DifferentPeriod,
	"Precedence":      Precedence,
	"SameRoom":        SameRoom,
	"DifferentRoom":   DifferentRoom,
	"SameDay":         SameDay,
	"DifferentDay":    DifferentDay,
	"SameAttendees":   SameAttendees,
}

// FromJSON loads a problem instance from a JSON file, following the
// teacher's InputFromJson (read bytes -> generic map -> mapstructure.Decode)
// pipeline exactly.
func FromJSON(file string) (*Model, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil, err
	}

	var rawInput RawModelInput
	if err := mapstructure.Decode(raw, &rawInput); err != nil {
		return nil, err
	}
	return ProcessRawInput(rawInput)
}

// ProcessRawInput normalizes a RawModelInput into a validated Model.
func ProcessRawInput(raw RawModelInput) (*Model, error) {
	exams := make([]Exam, len(raw.Exams))
	for i, r := range raw.Exams {
		exams[i] = Exam{
			Id:            r.Id,
			Name:          r.Name,
			Size:          r.Size,
			MinRooms:      max(r.MinRooms, 1),
			MaxSplit:      r.MaxSplit,
			Large:         r.Large,
			AveragePeriod: r.AveragePeriod,
			Periods:       toPeriodPrefs(r.Periods),
			Rooms:         toRoomPrefs(r.Rooms),
			Students:      r.Students,
			Instructors:   r.Instructors,
			Distributions: r.Distributions,
		}
	}

	periods := make([]Period, len(raw.Periods))
	for i, r := range raw.Periods {
		periods[i] = Period{Id: r.Id, Index: r.Index, Day: r.Day, TimeOfDay: r.TimeOfDay, Duration: r.Duration, Weight: r.Weight}
	}

	rooms := make([]Room, len(raw.Rooms))
	for i, r := range raw.Rooms {
		unavailable := make(map[uint64]bool, len(r.Unavailable))
		for _, p := range r.Unavailable {
			unavailable[p] = true
		}
		rooms[i] = Room{Id: r.Id, Name: r.Name, Capacity: r.Capacity, AltCapacity: r.AltCapacity, Unavailable: unavailable, Distances: r.Distances}
	}

	students := make([]Student, len(raw.Students))
	for i, r := range raw.Students {
		students[i] = Student{Id: r.Id, Exams: r.Exams, Unavailable: toSet(r.Unavailable)}
	}

	instructors := make([]Instructor, len(raw.Instructors))
	for i, r := range raw.Instructors {
		instructors[i] = Instructor{Id: r.Id, Exams: r.Exams, Unavailable: toSet(r.Unavailable)}
	}

	distributions := make([]DistributionConstraint, len(raw.Distributions))
	for i, r := range raw.Distributions {
		dt, ok := distributionTypes[r.Type]
		if !ok {
			return nil, newMalformedInput("unknown distribution type %q", r.Type)
		}
		distributions[i] = DistributionConstraint{Id: r.Id, Type: dt, Exams: r.Exams, Hard: r.Hard, Weight: r.Weight}
	}

	return New(exams, periods, rooms, students, instructors, distributions)
}

func toPeriodPrefs(raw []RawPeriodPref) []PeriodPreference {
	out := make([]PeriodPreference, len(raw))
	for i, r := range raw {
		out[i] = PeriodPreference{Period: r.Period, Weight: r.Weight, Hard: r.Hard}
	}
	return out
}

func toRoomPrefs(raw []RawRoomPref) []RoomPreference {
	out := make([]RoomPreference, len(raw))
	for i, r := range raw {
		out[i] = RoomPreference{Room: r.Room, Weight: r.Weight, Hard: r.Hard}
	}
	return out
}

func toSet(ids []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
