// Package phase implements the search's phase controller: a small state
// machine that runs construction, then tabu repair, then hill climbing,
// then a configured metaheuristic, and finally a closing hill-climbing
// sweep once the outer termination condition first rejects continuation
// (spec.md §4.11).
package phase

import (
	"math/rand"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/construction"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/metaheuristic"
	"github.com/limaJavier/examtimetabling/pkg/neighbour"
	"github.com/limaJavier/examtimetabling/pkg/repair"
)

// State names a phase of the controller. Values match spec.md §4.11's
// numbering exactly, including the gap between Metaheuristic and Final that
// marks Final as reachable only via the termination override.
type State int

const (
	Init          State = -1
	Construct     State = 0
	Repair        State = 1
	HillClimb     State = 2
	Metaheuristic State = 3
	Final         State = 9999
	Done          State = 10000
)

func (s State) String() string {
	switch s {
	case Init:
		return "Init"
	case Construct:
		return "Construct"
	case Repair:
		return "Repair"
	case HillClimb:
		return "HillClimb"
	case Metaheuristic:
		return "Metaheuristic"
	case Final:
		return "Final"
	case Done:
		return "Done"
	default:
		return "Unknown"
	}
}

// Controller wires the search phases together. Construct, Repair and
// HillClimb each run once, as one call to their constructor, repairer or
// climber, before the controller moves on; Metaheuristic repeats on every
// Step until the termination condition rejects.
type Controller struct {
	constructor construction.Constructor
	repairer    *repair.Repairer
	repairBudget int

	climber       *metaheuristic.HillClimbing
	meta          metaheuristic.Metaheuristic
	finalClimber  *metaheuristic.HillClimbing

	registry *criteria.Registry
	rng      *rand.Rand

	state    State
	unplaced []uint64

	snapshot      map[uint64]assignment.PlacementValue
	snapshotValue float64
	hasSnapshot   bool
}

// Config bundles everything the controller needs to build its phases.
type Config struct {
	Constructor  construction.Constructor
	Repairer     *repair.Repairer
	RepairBudget int
	HillClimber  *metaheuristic.HillClimbing
	Meta         metaheuristic.Metaheuristic
	FinalSweep   *metaheuristic.HillClimbing
	Registry     *criteria.Registry
	Rng          *rand.Rand
}

// NewController builds a phase controller starting in Init.
func NewController(cfg Config) *Controller {
	return &Controller{
		constructor:  cfg.Constructor,
		repairer:     cfg.Repairer,
		repairBudget: cfg.RepairBudget,
		climber:      cfg.HillClimber,
		meta:         cfg.Meta,
		finalClimber: cfg.FinalSweep,
		registry:     cfg.Registry,
		rng:          cfg.Rng,
		state:        Init,
	}
}

// State reports the controller's current phase.
func (c *Controller) State() State { return c.state }

// Step moves the controller to its next phase, runs that phase's work on
// the assignment, and returns the phase it ran. canContinue is the outer
// termination condition's verdict for this step; once it turns false the
// controller moves into Final regardless of what phase it was in and runs
// exactly one closing hill-climbing sweep over the assignment; the next
// Step moves to Done. The override is one-shot: Step never re-enters Final
// once Done is reached, so the termination condition can keep reporting
// false.
func (c *Controller) Step(a assignment.Assignment, iter *uint64, canContinue bool) State {
	switch c.state {
	case Done:
		return Done
	case Final:
		c.state = Done
		return Done
	}

	if !canContinue {
		c.state = Final
	} else if c.state < Metaheuristic {
		c.state++
	}

	switch c.state {
	case Construct:
		c.unplaced = c.constructor.Run(a, c.registry, iter)
	case Repair:
		if c.repairer != nil && len(c.unplaced) > 0 {
			c.unplaced = c.repairer.Run(a, c.registry, c.unplaced, c.repairBudget, c.rng, iter)
		}
	case HillClimb:
		if c.climber != nil {
			c.captureSnapshot(c.climber.Run(a, c.registry, iter, c.rng))
		}
	case Metaheuristic:
		if c.meta != nil {
			c.captureSnapshot(c.meta.Run(a, c.registry, iter, c.rng))
		}
		// Stays in Metaheuristic: the outer loop keeps calling Step with
		// canContinue == true for as long as the termination condition
		// allows, each call running another burst of the configured
		// metaheuristic.
	case Final:
		if c.finalClimber != nil {
			c.captureSnapshot(c.finalClimber.Run(a, c.registry, iter, c.rng))
		}
	}
	return c.state
}

// captureSnapshot records res's best-point snapshot so BestSnapshot can
// surface it to the caller, letting a burst's true best survive even if the
// metaheuristic went on to accept a worsening move afterward (spec.md
// §4.9).
func (c *Controller) captureSnapshot(res metaheuristic.Result) {
	if res.BestValues == nil {
		return
	}
	c.snapshot = res.BestValues
	c.snapshotValue = res.BestValue
	c.hasSnapshot = true
}

// BestSnapshot returns and consumes the best-point snapshot captured by the
// last HillClimb, Metaheuristic or Final step, if any. Consuming it means a
// second call before the next Step returns ok=false.
func (c *Controller) BestSnapshot() (map[uint64]assignment.PlacementValue, float64, bool) {
	if !c.hasSnapshot {
		return nil, 0, false
	}
	values, value := c.snapshot, c.snapshotValue
	c.snapshot, c.hasSnapshot = nil, false
	return values, value, true
}

// Unplaced reports the exam ids construction and repair could not place, as
// of the last Repair step.
func (c *Controller) Unplaced() []uint64 {
	return c.unplaced
}

// DefaultNeighbours builds the three always-available move generators over
// registry, in the order spec.md §4.8's hill-climbing union samples from.
func DefaultNeighbours(registry *criteria.Registry) []neighbour.Neighbour {
	return []neighbour.Neighbour{
		neighbour.NewExamRandomMove(registry),
		neighbour.NewExamRoomMove(registry),
		neighbour.NewExamTimeMove(registry),
	}
}
