package assignment

import (
	"maps"
	"sync"

	"github.com/limaJavier/examtimetabling/pkg/model"
)

// SharedBest is the single-writer, multi-reader best-solution slot every
// parallel worker promotes into (spec.md §5). One mutex guards it.
type SharedBest struct {
	mu     sync.Mutex
	value  float64
	values map[uint64]PlacementValue
	set    bool
}

// NewSharedBest creates an empty shared-best slot.
func NewSharedBest() *SharedBest {
	return &SharedBest{}
}

// Promote atomically overwrites the shared best if candidateValue strictly
// improves on it (or nothing has been recorded yet), returning whether the
// promotion took effect.
func (s *SharedBest) Promote(candidateValue float64, values map[uint64]PlacementValue) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set && candidateValue >= s.value {
		return false
	}
	s.value = candidateValue
	s.values = maps.Clone(values)
	s.set = true
	return true
}

// Snapshot returns a defensive copy of the current shared best.
func (s *SharedBest) Snapshot() (values map[uint64]PlacementValue, value float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return nil, 0, false
	}
	return maps.Clone(s.values), s.value, true
}

// ParallelAssignment is one worker's isolated view over a shared Model
// (read-only after load). Updates within a view are sequentially
// consistent; the view is reconciled to shared state only at promotion
// boundaries (spec.md §5).
type ParallelAssignment struct {
	*SingleAssignment
	shared *SharedBest
}

// NewParallelView creates a fresh, empty view for one worker sharing best.
func NewParallelView(m *model.Model, shared *SharedBest) *ParallelAssignment {
	return &ParallelAssignment{
		SingleAssignment: NewSingle(m),
		shared:           shared,
	}
}

// Promote offers this view's current values as the new shared best if
// candidateValue improves on it.
func (a *ParallelAssignment) Promote(candidateValue float64) bool {
	return a.shared.Promote(candidateValue, a.values)
}

// ReconcileFromShared replaces this view's contents with the current shared
// best, if any has been recorded. Used when a worker restarts its local
// search from the globally best-known solution.
func (a *ParallelAssignment) ReconcileFromShared() bool {
	values, _, ok := a.shared.Snapshot()
	if !ok {
		return false
	}
	a.replaceAll(values)
	return true
}
