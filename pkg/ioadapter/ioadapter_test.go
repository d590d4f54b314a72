package ioadapter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

const sampleProblem = `<?xml version="1.0"?>
<problem>
  <exams>
    <exam id="0" name="CS101" size="30" minRooms="1">
      <period period="0" weight="0" hard="false"/>
      <period period="1" weight="-5" hard="false"/>
      <room room="0" weight="0" hard="false"/>
      <student id="0"/>
    </exam>
  </exams>
  <periods>
    <period id="0" index="0" day="0" time="0" length="120" weight="0"/>
    <period id="1" index="1" day="0" time="120" length="120" weight="0"/>
  </periods>
  <rooms>
    <room id="0" name="R1" capacity="50" altCapacity="40">
      <distance room="1" value="3"/>
    </room>
  </rooms>
  <students>
    <student id="0">
      <exam id="0"/>
    </student>
  </students>
</problem>`

func TestProblemLoaderDecodesExamPeriodsAndRooms(t *testing.T) {
	l := NewProblemLoader()
	m, err := l.Load(strings.NewReader(sampleProblem))
	assert.NoError(t, err)
	assert.Len(t, m.Exams, 1)
	assert.Equal(t, uint64(30), m.Exams[0].Size)
	assert.True(t, m.Exams[0].PeriodAllowed(0))
	assert.True(t, m.Exams[0].PeriodAllowed(1))
	assert.Equal(t, -5, m.Exams[0].PeriodWeight(1))
	assert.Equal(t, uint64(3), m.Rooms[0].DistanceTo(1))
}

func TestProblemLoaderRejectsUnknownDistributionType(t *testing.T) {
	doc := `<?xml version="1.0"?>
<problem>
  <exams>
    <exam id="0" name="CS101" size="1" minRooms="1">
      <period period="0" weight="0" hard="false"/>
      <room room="0" weight="0" hard="false"/>
      <distribution id="0"/>
    </exam>
  </exams>
  <periods><period id="0" index="0" day="0" time="0" length="1" weight="0"/></periods>
  <rooms><room id="0" name="R1" capacity="1" altCapacity="1"/></rooms>
  <distributions>
    <distribution id="0" type="NotARealType">
      <exam id="0"/>
    </distribution>
  </distributions>
</problem>`
	l := NewProblemLoader()
	_, err := l.Load(strings.NewReader(doc))
	assert.Error(t, err)
}

func TestSolutionWriterSavesEveryAssignedPlacement(t *testing.T) {
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 5, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}}, Rooms: []model.RawRoomPref{{Room: 0}, {Room: 1}}},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 20}, {Id: 1, Capacity: 20}},
	})
	assert.NoError(t, err)
	a := assignment.NewSingle(m)
	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0, 1}})

	var buf bytes.Buffer
	w := NewSolutionWriter()
	assert.NoError(t, w.Save(&buf, a))

	out := buf.String()
	assert.Contains(t, out, `exam="0"`)
	assert.Contains(t, out, `period="0"`)
	assert.Contains(t, out, `rooms="0 1"`)
}
