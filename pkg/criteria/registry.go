package criteria

import "github.com/limaJavier/examtimetabling/pkg/assignment"

// Registry holds the set of criteria active for a search run and exposes
// the aggregate value spec.md's Model conceptually carries. It exists so
// pkg/model never needs to import pkg/criteria: composition here stands in
// for the spec's Model-exposes-total-value relationship without creating a
// model<->criteria import cycle.
type Registry struct {
	criteria []Criterion
}

// NewRegistry builds a Registry over the given criteria, in the order they
// should be reported (e.g. for CSV summaries).
func NewRegistry(criteria ...Criterion) *Registry {
	return &Registry{criteria: criteria}
}

// Criteria returns the registered criteria in registration order.
func (r *Registry) Criteria() []Criterion {
	return r.criteria
}

// TotalValue returns the weighted sum of every registered criterion's
// value under a: Σ weight(c) * value(c, a).
func (r *Registry) TotalValue(a assignment.Assignment) float64 {
	var total float64
	for _, c := range r.criteria {
		total += c.Weight() * c.Value(a)
	}
	return total
}

// TotalDeltaValue returns the weighted sum of every registered criterion's
// DeltaValue for the given hypothetical move, without mutating a. Used by
// neighbour selection to score candidate moves in O(local) time (spec.md
// §4.4).
func (r *Registry) TotalDeltaValue(a assignment.Assignment, placement assignment.PlacementValue, conflicts []uint64) float64 {
	var total float64
	for _, c := range r.criteria {
		total += c.Weight() * c.DeltaValue(a, placement, conflicts)
	}
	return total
}

// ByName looks up a registered criterion by its Name(), used by reports
// that break the total down per criterion.
func (r *Registry) ByName(name string) (Criterion, bool) {
	for _, c := range r.criteria {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}
