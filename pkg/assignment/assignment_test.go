package assignment

import (
	"testing"

	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/stretchr/testify/assert"
)

func twoExamModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.ProcessRawInput(model.RawModelInput{
		Exams: []model.RawExam{
			{Id: 0, Size: 10, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 0}}},
			{Id: 1, Size: 10, MinRooms: 1, Periods: []model.RawPeriodPref{{Period: 0}, {Period: 1}}, Rooms: []model.RawRoomPref{{Room: 1}}},
		},
		Periods: []model.RawPeriod{{Id: 0, Index: 0}, {Id: 1, Index: 1}},
		Rooms:   []model.RawRoom{{Id: 0, Capacity: 20}, {Id: 1, Capacity: 20}},
	})
	assert.NoError(t, err)
	return m
}

// countingContext exercises the context system's round-trip invariant
// (spec.md §8 property 1): a running count that must equal the number of
// assigned exams at any point, recomputed incrementally.
type countingContext struct {
	assigned map[uint64]bool
}

func (c *countingContext) BeforeAssigned(iter uint64, p PlacementValue)   {}
func (c *countingContext) AfterAssigned(iter uint64, p PlacementValue)    { c.assigned[p.Exam] = true }
func (c *countingContext) BeforeUnassigned(iter uint64, p PlacementValue) {}
func (c *countingContext) AfterUnassigned(iter uint64, p PlacementValue)  { delete(c.assigned, p.Exam) }

type countingOwner struct{}

func (countingOwner) CreateAssignmentContext(a Assignment) AssignmentContext {
	ctx := &countingContext{assigned: make(map[uint64]bool)}
	for _, p := range a.Assignments() {
		ctx.assigned[p.Exam] = true
	}
	return ctx
}

func TestContextRoundTripMatchesFromScratchRecompute(t *testing.T) {
	m := twoExamModel(t)
	a := NewSingle(m)
	owner := countingOwner{}

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	a.Assign(2, model.Placement{Exam: 1, Period: 1, Rooms: []uint64{1}})

	ctx := a.GetContext(owner).(*countingContext)
	assert.Len(t, ctx.assigned, 2)

	a.Unassign(3, 0)
	assert.Len(t, ctx.assigned, 1)

	// From-scratch recompute: number of currently-assigned exams.
	assert.Equal(t, a.NrAssignedVariables(), len(ctx.assigned))
}

func TestGetContextVendsExactlyOnePerOwner(t *testing.T) {
	m := twoExamModel(t)
	a := NewSingle(m)
	owner := countingOwner{}

	ctx1 := a.GetContext(owner)
	ctx2 := a.GetContext(owner)
	assert.Same(t, ctx1, ctx2)
}

func TestUnassignAlreadyUnassignedIsNoOp(t *testing.T) {
	m := twoExamModel(t)
	a := NewSingle(m)
	a.Unassign(1, 0)
	assert.Equal(t, 0, a.NrAssignedVariables())
	assert.Equal(t, 2, a.NrUnassignedVariables())
}

func TestAssignReplacesExistingValueAndNotifiesOldAndNew(t *testing.T) {
	m := twoExamModel(t)
	a := NewSingle(m)

	var lastOld *model.Placement
	var lastNew model.Placement
	a.AddListener(recordingListener{
		onAssigned: func(iter uint64, old *model.Placement, n model.Placement) {
			lastOld, lastNew = old, n
		},
	})

	a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	assert.Nil(t, lastOld)
	assert.Equal(t, uint64(0), lastNew.Period)
}

type recordingListener struct {
	onAssigned   func(iter uint64, old *model.Placement, n model.Placement)
	onUnassigned func(iter uint64, old model.Placement)
}

func (r recordingListener) Assigned(iter uint64, old *model.Placement, n model.Placement) {
	if r.onAssigned != nil {
		r.onAssigned(iter, old, n)
	}
}

func (r recordingListener) Unassigned(iter uint64, old model.Placement) {
	if r.onUnassigned != nil {
		r.onUnassigned(iter, old)
	}
}

func TestAssignPanicsOnInfeasiblePlacement(t *testing.T) {
	m := twoExamModel(t)
	a := NewSingle(m)
	assert.Panics(t, func() {
		a.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{1}}) // room not allowed for exam 0
	})
}

func TestParallelAssignmentPromoteAndReconcile(t *testing.T) {
	m := twoExamModel(t)
	shared := NewSharedBest()

	view1 := NewParallelView(m, shared)
	view1.Assign(1, model.Placement{Exam: 0, Period: 0, Rooms: []uint64{0}})
	assert.True(t, view1.Promote(10))

	view2 := NewParallelView(m, shared)
	assert.True(t, view2.ReconcileFromShared())
	_, ok := view2.GetValue(0)
	assert.True(t, ok)

	// Worse candidate must not overwrite a better shared best.
	assert.False(t, view2.Promote(20))
}
