// Package repair implements the tabu-search phase that resolves whatever
// exams construction could not place, by allowing moves that displace
// already-assigned exams (conflict-based selection) while avoiding cycling
// back through recently-undone moves. Grounded on the teacher-adjacent
// other_examples/freedakipad-paiban local search optimizer's TabuList
// (FNV-1a hashed keys, fixed-capacity FIFO eviction). Candidate scoring also
// folds in conflict-based statistics: a placement that has repeatedly forced
// evictions in the past accrues a penalty on top of its raw delta value.
package repair

import (
	"hash/fnv"
	"math/rand"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/neighbour"
)

// TabuList is a fixed-capacity FIFO set of recently-applied move keys.
// Grounded verbatim on freedakipad-paiban's TabuList shape, generalized to
// this package's move-key type.
type TabuList struct {
	items   map[uint64]struct{}
	order   []uint64
	maxSize int
}

// NewTabuList creates a tabu list holding at most size recent keys.
func NewTabuList(size int) *TabuList {
	return &TabuList{
		items:   make(map[uint64]struct{}),
		order:   make([]uint64, 0, size),
		maxSize: size,
	}
}

// Add records key as tabu, evicting the oldest entry if at capacity.
func (t *TabuList) Add(key uint64) {
	if _, exists := t.items[key]; exists {
		return
	}
	if len(t.order) >= t.maxSize {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.items, oldest)
	}
	t.items[key] = struct{}{}
	t.order = append(t.order, key)
}

// Contains reports whether key was recently applied.
func (t *TabuList) Contains(key uint64) bool {
	_, exists := t.items[key]
	return exists
}

func moveKey(mv neighbour.Move) uint64 {
	return placementKey(mv.Placement)
}

func placementKey(p assignment.PlacementValue) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	putUint64 := func(v uint64) {
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	putUint64(p.Exam)
	putUint64(p.Period)
	for _, room := range p.Rooms {
		putUint64(room)
	}
	return h.Sum64()
}

// conflictStats implements the conflict-based statistics (CBS) spec.md
// §4.7 names: a per-placement count of how many evictions committing that
// placement has caused across the whole repair run. bestMoveFor adds
// cbsWeight*count(p) to a candidate's score, so a placement that has
// repeatedly bumped other exams out gets progressively less attractive
// even when its immediate delta value looks fine, steering the search away
// from placements that keep re-triggering the same conflicts.
type conflictStats struct {
	counts map[uint64]int
}

func newConflictStats() *conflictStats {
	return &conflictStats{counts: make(map[uint64]int)}
}

func (c *conflictStats) record(key uint64, evictions int) {
	c.counts[key] += evictions
}

func (c *conflictStats) get(key uint64) int {
	return c.counts[key]
}

// cbsWeight is beta in spec.md §4.7's value(a,p,conflicts) + beta*cbs(p).
const cbsWeight = 2.0

// Repairer runs conflict-based tabu search: it repeatedly targets an
// unplaced or conflicted exam, evaluates candidate placements that may
// evict other exams, and commits the least-worsening non-tabu move.
type Repairer struct {
	tabu       *TabuList
	cbs        *conflictStats
	neighbours []neighbour.Neighbour
}

// NewRepairer builds a Repairer sampling from the given neighbourhoods,
// keeping a tabu list of the given size.
func NewRepairer(tabuSize int, neighbours ...neighbour.Neighbour) *Repairer {
	return &Repairer{tabu: NewTabuList(tabuSize), cbs: newConflictStats(), neighbours: neighbours}
}

// Run attempts to place every exam in unplaced, running up to maxIterations
// tabu-search steps. iter is the shared, monotone assignment iteration
// counter (spec.md §9). It returns the ids still unplaced when it stops.
func (r *Repairer) Run(a assignment.Assignment, registry *criteria.Registry, unplaced []uint64, maxIterations int, rng *rand.Rand, iter *uint64) []uint64 {
	remaining := make(map[uint64]bool, len(unplaced))
	for _, exam := range unplaced {
		remaining[exam] = true
	}

	for step := 0; step < maxIterations && len(remaining) > 0; step++ {
		exam := pickRemaining(remaining, rng)
		mv, ok := r.bestMoveFor(a, registry, exam, rng)
		if !ok {
			continue
		}

		key := moveKey(mv)
		if r.tabu.Contains(key) {
			continue
		}

		for _, evicted := range mv.Conflicts {
			*iter++
			a.Unassign(*iter, evicted)
			remaining[evicted] = true
		}
		if len(mv.Conflicts) > 0 {
			r.cbs.record(key, len(mv.Conflicts))
		}
		*iter++
		a.Assign(*iter, mv.Placement)
		delete(remaining, exam)
		r.tabu.Add(key)
	}

	out := make([]uint64, 0, len(remaining))
	for exam := range remaining {
		out = append(out, exam)
	}
	return out
}

// bestMoveFor evaluates exam's whole domain plus a handful of moves
// sampled from the configured neighbourhoods that happen to target exam,
// keeping the least-worsening candidate. Sampling the neighbourhoods too
// (rather than domain search alone) lets a stuck repair pass occasionally
// find room-split or cross-period moves domain search ranks low.
func (r *Repairer) bestMoveFor(a assignment.Assignment, registry *criteria.Registry, exam uint64, rng *rand.Rand) (neighbour.Move, bool) {
	m := a.Model()
	domain := m.Domain(exam, 16)
	var best neighbour.Move
	var bestValue float64
	found := false

	consider := func(mv neighbour.Move) {
		if r.tabu.Contains(moveKey(mv)) {
			return
		}
		value := registry.TotalDeltaValue(a, mv.Placement, mv.Conflicts) + cbsWeight*float64(r.cbs.get(placementKey(mv.Placement)))
		if !found || value < bestValue {
			best, bestValue, found = mv, value, true
		}
	}

	for _, p := range domain {
		consider(neighbour.Move{Placement: p, Conflicts: conflictsFor(a, p)})
	}
	for _, n := range r.neighbours {
		for _, mv := range n.Generate(a, rng, 4) {
			if mv.Placement.Exam == exam {
				consider(mv)
			}
		}
	}
	return best, found
}

func pickRemaining(remaining map[uint64]bool, rng *rand.Rand) uint64 {
	keys := make([]uint64, 0, len(remaining))
	for k := range remaining {
		keys = append(keys, k)
	}
	return keys[rng.Intn(len(keys))]
}

func conflictsFor(a assignment.Assignment, p assignment.PlacementValue) []uint64 {
	seen := make(map[uint64]bool)
	var conflicts []uint64
	for _, room := range p.Rooms {
		for _, exam := range a.RoomOccupants(p.Period, room) {
			if exam == p.Exam || seen[exam] {
				continue
			}
			seen[exam] = true
			conflicts = append(conflicts, exam)
		}
	}
	return conflicts
}

