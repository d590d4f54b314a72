// Package ioadapter reads and writes problem instances and solutions as
// XML, the wire format spec.md §6 names. It mirrors pkg/model's
// RawModelInput two-stage decode/normalize pipeline, adapted from JSON
// tags to XML tags since no third-party XML library appears anywhere in
// the retrieved corpus (see DESIGN.md).
package ioadapter

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// xmlPeriodPref and xmlRoomPref mirror model.RawPeriodPref/RawRoomPref with
// XML attribute tags.
type xmlPeriodPref struct {
	Period uint64 `xml:"period,attr"`
	Weight int    `xml:"weight,attr"`
	Hard   bool   `xml:"hard,attr"`
}

type xmlRoomPref struct {
	Room   uint64 `xml:"room,attr"`
	Weight int    `xml:"weight,attr"`
	Hard   bool   `xml:"hard,attr"`
}

type xmlExam struct {
	Id            uint64          `xml:"id,attr"`
	Name          string          `xml:"name,attr"`
	Size          uint64          `xml:"size,attr"`
	MinRooms      uint64          `xml:"minRooms,attr"`
	MaxSplit      uint64          `xml:"maxSplit,attr"`
	Large         bool            `xml:"large,attr"`
	AveragePeriod float64         `xml:"averagePeriod,attr"`
	Periods       []xmlPeriodPref `xml:"period"`
	Rooms         []xmlRoomPref   `xml:"room"`
	Students      []xmlRef        `xml:"student"`
	Instructors   []xmlRef        `xml:"instructor"`
	Distributions []xmlRef        `xml:"distribution"`
}

type xmlRef struct {
	Id uint64 `xml:"id,attr"`
}

type xmlPeriod struct {
	Id        uint64 `xml:"id,attr"`
	Index     uint64 `xml:"index,attr"`
	Day       uint64 `xml:"day,attr"`
	TimeOfDay uint64 `xml:"time,attr"`
	Duration  uint64 `xml:"length,attr"`
	Weight    int    `xml:"weight,attr"`
}

type xmlDistance struct {
	Room     uint64 `xml:"room,attr"`
	Distance uint64 `xml:"value,attr"`
}

type xmlRoom struct {
	Id          uint64        `xml:"id,attr"`
	Name        string        `xml:"name,attr"`
	Capacity    uint64        `xml:"capacity,attr"`
	AltCapacity uint64        `xml:"altCapacity,attr"`
	Unavailable []xmlRef      `xml:"unavailable"`
	Distances   []xmlDistance `xml:"distance"`
}

type xmlStudent struct {
	Id          uint64   `xml:"id,attr"`
	Exams       []xmlRef `xml:"exam"`
	Unavailable []xmlRef `xml:"unavailable"`
}

type xmlInstructor struct {
	Id          uint64   `xml:"id,attr"`
	Exams       []xmlRef `xml:"exam"`
	Unavailable []xmlRef `xml:"unavailable"`
}

type xmlDistribution struct {
	Id     uint64   `xml:"id,attr"`
	Type   string   `xml:"type,attr"`
	Exams  []xmlRef `xml:"exam"`
	Hard   bool     `xml:"hard,attr"`
	Weight int      `xml:"weight,attr"`
}

// xmlProblem is the root element of a problem file.
type xmlProblem struct {
	XMLName       xml.Name          `xml:"problem"`
	Exams         []xmlExam         `xml:"exams>exam"`
	Periods       []xmlPeriod       `xml:"periods>period"`
	Rooms         []xmlRoom         `xml:"rooms>room"`
	Students      []xmlStudent      `xml:"students>student"`
	Instructors   []xmlInstructor   `xml:"instructors>instructor"`
	Distributions []xmlDistribution `xml:"distributions>distribution"`
}

func refIds(refs []xmlRef) []uint64 {
	ids := make([]uint64, len(refs))
	for i, r := range refs {
		ids[i] = r.Id
	}
	return ids
}

// ProblemLoader decodes a problem instance from XML into a validated Model.
type ProblemLoader struct{}

// NewProblemLoader builds a ProblemLoader.
func NewProblemLoader() *ProblemLoader { return &ProblemLoader{} }

// Load reads a well-formed problem document from r and normalizes it into a
// Model, returning a *model.MalformedInputError wrapped with context on any
// invariant violation.
func (l *ProblemLoader) Load(r io.Reader) (*model.Model, error) {
	var doc xmlProblem
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("ioadapter: cannot decode problem xml: %w", err)
	}

	raw := model.RawModelInput{
		Exams:         make([]model.RawExam, len(doc.Exams)),
		Periods:       make([]model.RawPeriod, len(doc.Periods)),
		Rooms:         make([]model.RawRoom, len(doc.Rooms)),
		Students:      make([]model.RawStudent, len(doc.Students)),
		Instructors:   make([]model.RawInstructor, len(doc.Instructors)),
		Distributions: make([]model.RawDistribution, len(doc.Distributions)),
	}

	for i, e := range doc.Exams {
		periods := make([]model.RawPeriodPref, len(e.Periods))
		for j, p := range e.Periods {
			periods[j] = model.RawPeriodPref{Period: p.Period, Weight: p.Weight, Hard: p.Hard}
		}
		rooms := make([]model.RawRoomPref, len(e.Rooms))
		for j, rm := range e.Rooms {
			rooms[j] = model.RawRoomPref{Room: rm.Room, Weight: rm.Weight, Hard: rm.Hard}
		}
		raw.Exams[i] = model.RawExam{
			Id:            e.Id,
			Name:          e.Name,
			Size:          e.Size,
			MinRooms:      e.MinRooms,
			MaxSplit:      e.MaxSplit,
			Large:         e.Large,
			AveragePeriod: e.AveragePeriod,
			Periods:       periods,
			Rooms:         rooms,
			Students:      refIds(e.Students),
			Instructors:   refIds(e.Instructors),
			Distributions: refIds(e.Distributions),
		}
	}

	for i, p := range doc.Periods {
		raw.Periods[i] = model.RawPeriod{Id: p.Id, Index: p.Index, Day: p.Day, TimeOfDay: p.TimeOfDay, Duration: p.Duration, Weight: p.Weight}
	}

	for i, rm := range doc.Rooms {
		distances := make(map[uint64]uint64, len(rm.Distances))
		for _, d := range rm.Distances {
			distances[d.Room] = d.Distance
		}
		raw.Rooms[i] = model.RawRoom{
			Id:          rm.Id,
			Name:        rm.Name,
			Capacity:    rm.Capacity,
			AltCapacity: rm.AltCapacity,
			Unavailable: refIds(rm.Unavailable),
			Distances:   distances,
		}
	}

	for i, s := range doc.Students {
		raw.Students[i] = model.RawStudent{Id: s.Id, Exams: refIds(s.Exams), Unavailable: refIds(s.Unavailable)}
	}

	for i, ins := range doc.Instructors {
		raw.Instructors[i] = model.RawInstructor{Id: ins.Id, Exams: refIds(ins.Exams), Unavailable: refIds(ins.Unavailable)}
	}

	for i, d := range doc.Distributions {
		raw.Distributions[i] = model.RawDistribution{Id: d.Id, Type: d.Type, Exams: refIds(d.Exams), Hard: d.Hard, Weight: d.Weight}
	}

	m, err := model.ProcessRawInput(raw)
	if err != nil {
		return nil, fmt.Errorf("ioadapter: %w", err)
	}
	return m, nil
}

// xmlAssignment is one exam's placement in a solution document.
type xmlAssignment struct {
	Exam   uint64 `xml:"exam,attr"`
	Period uint64 `xml:"period,attr"`
	Rooms  string `xml:"rooms,attr"`
}

// xmlSolution is the root element of a solution file.
type xmlSolution struct {
	XMLName     xml.Name        `xml:"solution"`
	Assignments []xmlAssignment `xml:"assignment"`
}

// SolutionWriter serializes an assignment's current placements to
// pretty-printed XML.
type SolutionWriter struct{}

// NewSolutionWriter builds a SolutionWriter.
func NewSolutionWriter() *SolutionWriter { return &SolutionWriter{} }

// Save writes every currently-assigned placement of a to w as XML, indented
// two spaces per level via xml.MarshalIndent.
func (w *SolutionWriter) Save(dst io.Writer, a assignment.Assignment) error {
	doc := xmlSolution{}
	for _, p := range a.Assignments() {
		rooms := make([]string, len(p.Rooms))
		for i, r := range p.Rooms {
			rooms[i] = fmt.Sprintf("%d", r)
		}
		doc.Assignments = append(doc.Assignments, xmlAssignment{
			Exam:   p.Exam,
			Period: p.Period,
			Rooms:  strings.Join(rooms, " "),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("ioadapter: cannot marshal solution: %w", err)
	}
	if _, err := dst.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("ioadapter: cannot write solution: %w", err)
	}
	if _, err := dst.Write(out); err != nil {
		return fmt.Errorf("ioadapter: cannot write solution: %w", err)
	}
	_, err = dst.Write([]byte("\n"))
	return err
}
