// Package report implements the CSV reports of spec.md §6, gated behind
// the config key `reports`. Grounded on rhyrak-go-schedule's
// internal/csvio pattern: row structs tagged for gocsv, marshaled with
// gocsv.MarshalFile/MarshalString.
package report

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// Report produces one CSV table from a solved assignment and can persist
// it to a file or return it as a string, mirroring spec.md §6's Report
// trait (`report(assignment) → Table; save(Table, path)`).
type Report interface {
	Name() string
	Rows(a assignment.Assignment) any
}

// Save marshals r's rows for a into path via gocsv.MarshalFile.
func Save(r Report, a assignment.Assignment, path string) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("report: cannot open %s: %w", path, err)
	}
	defer out.Close()
	if err := gocsv.MarshalFile(r.Rows(a), out); err != nil {
		return fmt.Errorf("report: cannot write %s: %w", r.Name(), err)
	}
	return nil
}

// String marshals r's rows for a into a CSV string.
func String(r Report, a assignment.Assignment) (string, error) {
	out, err := gocsv.MarshalString(r.Rows(a))
	if err != nil {
		return "", fmt.Errorf("report: cannot render %s: %w", r.Name(), err)
	}
	return out, nil
}

// ExamScheduleRow is one exam's final placement.
type ExamScheduleRow struct {
	Exam   uint64 `csv:"exam"`
	Name   string `csv:"name"`
	Period uint64 `csv:"period"`
	Day    uint64 `csv:"day"`
	Rooms  string `csv:"rooms"`
}

type examScheduleReport struct{}

// NewExamScheduleReport builds the per-exam schedule report.
func NewExamScheduleReport() Report { return &examScheduleReport{} }

func (examScheduleReport) Name() string { return "exam_schedule" }

func (examScheduleReport) Rows(a assignment.Assignment) any {
	m := a.Model()
	rows := make([]*ExamScheduleRow, 0, len(a.Assignments()))
	for _, p := range a.Assignments() {
		rows = append(rows, &ExamScheduleRow{
			Exam:   p.Exam,
			Name:   m.Exams[p.Exam].Name,
			Period: p.Period,
			Day:    m.Periods[p.Period].Day,
			Rooms:  joinRooms(p.Rooms),
		})
	}
	return &rows
}

// DirectConflictRow reports a student or instructor sharing two exams
// placed in the same period.
type DirectConflictRow struct {
	Person string `csv:"person"`
	ExamA  uint64 `csv:"examA"`
	ExamB  uint64 `csv:"examB"`
	Period uint64 `csv:"period"`
}

type directConflictReport struct {
	kind        string
	personExams func(m *model.Model) map[uint64][]uint64
}

// NewStudentDirectConflictReport lists every direct student conflict in the
// final assignment.
func NewStudentDirectConflictReport() Report {
	return &directConflictReport{kind: "student", personExams: func(m *model.Model) map[uint64][]uint64 {
		out := make(map[uint64][]uint64, len(m.Students))
		for _, s := range m.Students {
			out[s.Id] = s.Exams
		}
		return out
	}}
}

// NewInstructorDirectConflictReport mirrors NewStudentDirectConflictReport
// for instructors.
func NewInstructorDirectConflictReport() Report {
	return &directConflictReport{kind: "instructor", personExams: func(m *model.Model) map[uint64][]uint64 {
		out := make(map[uint64][]uint64, len(m.Instructors))
		for _, ins := range m.Instructors {
			out[ins.Id] = ins.Exams
		}
		return out
	}}
}

func (r *directConflictReport) Name() string { return r.kind + "_direct_conflicts" }

func (r *directConflictReport) Rows(a assignment.Assignment) any {
	m := a.Model()
	rows := []*DirectConflictRow{}
	for person, exams := range r.personExams(m) {
		for i := 0; i < len(exams); i++ {
			pi, ok := a.GetValue(exams[i])
			if !ok {
				continue
			}
			for j := i + 1; j < len(exams); j++ {
				pj, ok := a.GetValue(exams[j])
				if !ok || pi.Period != pj.Period {
					continue
				}
				rows = append(rows, &DirectConflictRow{
					Person: fmt.Sprintf("%s-%d", r.kind, person),
					ExamA:  exams[i],
					ExamB:  exams[j],
					Period: pi.Period,
				})
			}
		}
	}
	return &rows
}

// BackToBackRow reports a person with exams in consecutive periods of the
// same day.
type BackToBackRow struct {
	Person  string `csv:"person"`
	ExamA   uint64 `csv:"examA"`
	ExamB   uint64 `csv:"examB"`
	Day     uint64 `csv:"day"`
	PeriodA uint64 `csv:"periodA"`
	PeriodB uint64 `csv:"periodB"`
}

type backToBackReport struct {
	kind        string
	personExams func(m *model.Model) map[uint64][]uint64
}

// NewStudentBackToBackReport lists every pair of a student's exams placed
// in adjacent periods of the same day.
func NewStudentBackToBackReport() Report {
	return &backToBackReport{kind: "student", personExams: func(m *model.Model) map[uint64][]uint64 {
		out := make(map[uint64][]uint64, len(m.Students))
		for _, s := range m.Students {
			out[s.Id] = s.Exams
		}
		return out
	}}
}

// NewInstructorBackToBackReport mirrors NewStudentBackToBackReport for
// instructors.
func NewInstructorBackToBackReport() Report {
	return &backToBackReport{kind: "instructor", personExams: func(m *model.Model) map[uint64][]uint64 {
		out := make(map[uint64][]uint64, len(m.Instructors))
		for _, i := range m.Instructors {
			out[i.Id] = i.Exams
		}
		return out
	}}
}

func (r *backToBackReport) Name() string { return r.kind + "_back_to_back" }

func (r *backToBackReport) Rows(a assignment.Assignment) any {
	m := a.Model()
	rows := []*BackToBackRow{}
	for person, exams := range r.personExams(m) {
		for i := 0; i < len(exams); i++ {
			pi, ok := a.GetValue(exams[i])
			if !ok {
				continue
			}
			for j := i + 1; j < len(exams); j++ {
				pj, ok := a.GetValue(exams[j])
				if !ok {
					continue
				}
				periodI, periodJ := m.Periods[pi.Period], m.Periods[pj.Period]
				if periodI.Day != periodJ.Day {
					continue
				}
				if diff := int(periodI.Index) - int(periodJ.Index); diff != 1 && diff != -1 {
					continue
				}
				rows = append(rows, &BackToBackRow{
					Person:  fmt.Sprintf("%s-%d", r.kind, person),
					ExamA:   exams[i],
					ExamB:   exams[j],
					Day:     periodI.Day,
					PeriodA: pi.Period,
					PeriodB: pj.Period,
				})
			}
		}
	}
	return &rows
}

// MoreThanTwoADayRow reports a person with more than two exams on one day.
type MoreThanTwoADayRow struct {
	Person string `csv:"person"`
	Day    uint64 `csv:"day"`
	Count  int    `csv:"count"`
}

type moreThanTwoADayReport struct {
	kind        string
	personExams func(m *model.Model) map[uint64][]uint64
}

// NewStudentMoreThanTwoADayReport lists every student-day with more than
// two exams scheduled.
func NewStudentMoreThanTwoADayReport() Report {
	return &moreThanTwoADayReport{kind: "student", personExams: func(m *model.Model) map[uint64][]uint64 {
		out := make(map[uint64][]uint64, len(m.Students))
		for _, s := range m.Students {
			out[s.Id] = s.Exams
		}
		return out
	}}
}

// NewInstructorMoreThanTwoADayReport mirrors
// NewStudentMoreThanTwoADayReport for instructors.
func NewInstructorMoreThanTwoADayReport() Report {
	return &moreThanTwoADayReport{kind: "instructor", personExams: func(m *model.Model) map[uint64][]uint64 {
		out := make(map[uint64][]uint64, len(m.Instructors))
		for _, i := range m.Instructors {
			out[i.Id] = i.Exams
		}
		return out
	}}
}

func (r *moreThanTwoADayReport) Name() string { return r.kind + "_more_than_2_a_day" }

func (r *moreThanTwoADayReport) Rows(a assignment.Assignment) any {
	m := a.Model()
	rows := []*MoreThanTwoADayRow{}
	for person, exams := range r.personExams(m) {
		perDay := make(map[uint64]int)
		for _, exam := range exams {
			p, ok := a.GetValue(exam)
			if !ok {
				continue
			}
			perDay[m.Periods[p.Period].Day]++
		}
		for day, count := range perDay {
			if count > 2 {
				rows = append(rows, &MoreThanTwoADayRow{Person: fmt.Sprintf("%s-%d", r.kind, person), Day: day, Count: count})
			}
		}
	}
	return &rows
}

// PeriodUsageRow reports how many exams and how much seating a period used.
type PeriodUsageRow struct {
	Period   uint64 `csv:"period"`
	Day      uint64 `csv:"day"`
	NrExams  int    `csv:"nrExams"`
	Occupied uint64 `csv:"occupiedSeats"`
}

type periodUsageReport struct{}

// NewPeriodUsageReport builds the period-utilization report.
func NewPeriodUsageReport() Report { return &periodUsageReport{} }

func (periodUsageReport) Name() string { return "period_usage" }

func (periodUsageReport) Rows(a assignment.Assignment) any {
	m := a.Model()
	usage := make(map[uint64]*PeriodUsageRow, len(m.Periods))
	for _, period := range m.Periods {
		usage[period.Id] = &PeriodUsageRow{Period: period.Id, Day: period.Day}
	}
	for _, p := range a.Assignments() {
		row := usage[p.Period]
		row.NrExams++
		row.Occupied += m.Exams[p.Exam].Size
	}
	rows := make([]*PeriodUsageRow, 0, len(usage))
	for _, period := range m.Periods {
		rows = append(rows, usage[period.Id])
	}
	return &rows
}

// RoomScheduleRow reports one room-period occupancy.
type RoomScheduleRow struct {
	Room   uint64 `csv:"room"`
	Period uint64 `csv:"period"`
	Exam   uint64 `csv:"exam"`
}

type roomScheduleReport struct{}

// NewRoomScheduleReport builds the per-room occupancy report.
func NewRoomScheduleReport() Report { return &roomScheduleReport{} }

func (roomScheduleReport) Name() string { return "room_schedule" }

func (roomScheduleReport) Rows(a assignment.Assignment) any {
	rows := []*RoomScheduleRow{}
	for _, p := range a.Assignments() {
		for _, room := range p.Rooms {
			rows = append(rows, &RoomScheduleRow{Room: room, Period: p.Period, Exam: p.Exam})
		}
	}
	return &rows
}

// RoomSplitRow reports exams seated across more than one room.
type RoomSplitRow struct {
	Exam    uint64 `csv:"exam"`
	NrRooms int    `csv:"nrRooms"`
	Rooms   string `csv:"rooms"`
}

type roomSplitReport struct{}

// NewRoomSplitReport lists every exam whose placement spans multiple
// rooms.
func NewRoomSplitReport() Report { return &roomSplitReport{} }

func (roomSplitReport) Name() string { return "room_splits" }

func (roomSplitReport) Rows(a assignment.Assignment) any {
	rows := []*RoomSplitRow{}
	for _, p := range a.Assignments() {
		if len(p.Rooms) <= 1 {
			continue
		}
		rows = append(rows, &RoomSplitRow{Exam: p.Exam, NrRooms: len(p.Rooms), Rooms: joinRooms(p.Rooms)})
	}
	return &rows
}

func joinRooms(rooms []uint64) string {
	out := ""
	for i, r := range rooms {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%d", r)
	}
	return out
}
