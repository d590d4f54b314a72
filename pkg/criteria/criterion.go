// Package criteria implements the weighted, incrementally-updated scorers
// that drive the search: every criterion contributes an additive share of
// the total assignment value under the contract of spec.md §4.4.
package criteria

import (
	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/model"
)

// Criterion is a named, weighted scorer. Implementations are stateless with
// respect to any one assignment: their running totals live in an
// assignment.AssignmentContext vended per (criterion, assignment) pair
// (spec.md §4.3), so the same Criterion value can score many assignments
// concurrently, as required by the parallel solver (spec.md §5).
type Criterion interface {
	assignment.ContextCreator

	Name() string
	Weight() float64

	// Value returns the total contribution under a.
	Value(a assignment.Assignment) float64

	// DeltaValue returns the delta in this criterion's contribution if
	// placement were assigned and every exam in conflicts were unassigned,
	// computed in time proportional to the local neighbourhood of
	// placement (spec.md §4.4).
	DeltaValue(a assignment.Assignment, placement model.Placement, conflicts []uint64) float64

	// Bounds reports the minimum and maximum value this criterion can take
	// under a, used for normalization and reporting.
	Bounds(a assignment.Assignment) (min, max float64)
}

func pairKey(x, y uint64) [2]uint64 {
	if x < y {
		return [2]uint64{x, y}
	}
	return [2]uint64{y, x}
}
