package main

import (
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/limaJavier/examtimetabling/pkg/assignment"
	"github.com/limaJavier/examtimetabling/pkg/config"
	"github.com/limaJavier/examtimetabling/pkg/construction"
	"github.com/limaJavier/examtimetabling/pkg/criteria"
	"github.com/limaJavier/examtimetabling/pkg/ioadapter"
	"github.com/limaJavier/examtimetabling/pkg/metaheuristic"
	"github.com/limaJavier/examtimetabling/pkg/model"
	"github.com/limaJavier/examtimetabling/pkg/neighbour"
	"github.com/limaJavier/examtimetabling/pkg/phase"
	"github.com/limaJavier/examtimetabling/pkg/repair"
	"github.com/limaJavier/examtimetabling/pkg/report"
	"github.com/limaJavier/examtimetabling/pkg/solver"
)

// neighbourBuilders maps the names Neighbour.Class and the *.Neighbours
// config keys may list to their constructors. There's no runtime Name()
// on neighbour.Neighbour, so the mapping lives here rather than on the
// type itself.
var neighbourBuilders = map[string]func(*criteria.Registry) neighbour.Neighbour{
	"ExamRandomMove": neighbour.NewExamRandomMove,
	"ExamRoomMove":   neighbour.NewExamRoomMove,
	"ExamTimeMove":   neighbour.NewExamTimeMove,
	"ExamSplit":      neighbour.NewExamSplit,
}

func main() {
	flag.Usage = func() {
		log.Printf("usage: %s <config> [<input>] [<output>]", path.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}
	configPath := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	inputFile := cfg.StringValue("General.Input", "")
	if len(args) >= 2 {
		inputFile = args[1]
	}
	if inputFile == "" {
		log.Fatal("no input file: pass it as the second argument or set General.Input")
	}

	outputFile := cfg.StringValue("General.OutputFile", cfg.StringValue("General.Output", ""))
	if len(args) >= 3 {
		outputFile = args[2]
	}

	m := loadModel(inputFile)
	registry := buildRegistry(cfg)
	seed := int64(cfg.IntValue("General.Seed", 1))

	condition, signalCond := buildCondition(cfg)
	go interruptOnSignal(signalCond)

	nrSolvers := cfg.IntValue("Parallel.NrSolvers", 1)
	maxUnassigned := cfg.IntValue("General.SaveBestUnassigned", -1)

	var best assignment.Assignment
	if nrSolvers <= 1 {
		best = runSingle(m, registry, cfg, condition, maxUnassigned, seed)
	} else {
		best = runParallel(m, registry, cfg, condition, maxUnassigned, nrSolvers, seed)
	}

	writer := ioadapter.NewSolutionWriter()
	if outputFile == "" {
		if err := writer.Save(os.Stdout, best); err != nil {
			log.Fatalf("cannot write solution: %v", err)
		}
	} else {
		out, err := os.OpenFile(outputFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatalf("cannot open output file: %v", err)
		}
		defer out.Close()
		if err := writer.Save(out, best); err != nil {
			log.Fatalf("cannot write solution: %v", err)
		}
	}

	if cfg.BoolValue("reports", false) && outputFile != "" {
		saveReports(best, path.Dir(outputFile))
	}
}

func loadModel(inputFile string) *model.Model {
	f, err := os.Open(inputFile)
	if err != nil {
		log.Fatalf("cannot open input file: %v", err)
	}
	defer f.Close()

	loader := ioadapter.NewProblemLoader()
	m, err := loader.Load(f)
	if err != nil {
		log.Fatalf("cannot load problem: %v", err)
	}
	return m
}

// buildRegistry wires one criterion per objective spec.md §2 names, plus a
// distribution penalty for every distribution constraint type the model
// might carry, so every distribution kind in a problem file is scored.
// General.SoftDirectConflicts demotes student/instructor direct conflicts
// from headcount-scored hard violations to a flat per-pair violation count,
// for problem files that treat them as soft.
func buildRegistry(cfg config.Config) *criteria.Registry {
	softDirect := cfg.BoolValue("General.SoftDirectConflicts", false)
	crits := []criteria.Criterion{
		criteria.NewPeriodPenalty(1),
		criteria.NewRoomPenalty(1),
		criteria.NewPeriodViolationPenalty(1000),
		criteria.NewRoomViolationPenalty(1000),
		criteria.NewPeriodIndexPenalty(1),
		criteria.NewPeriodSizePenalty(1),
		criteria.NewRoomSizePenalty(1),
		criteria.NewRoomSplitPenalty(5),
		criteria.NewRoomSplitDistancePenalty(1),
		criteria.NewLargeExamsPenalty(3),
		criteria.NewStudentNotAvailable(1000),
		criteria.NewInstructorNotAvailable(1000),
		criteria.NewStudentMoreThan2ADay(5),
		criteria.NewInstructorMoreThan2ADay(5),
		criteria.StudentDirectConflicts(1000, softDirect),
		criteria.InstructorDirectConflicts(1000, softDirect),
		criteria.NewStudentBackToBackConflicts(2, false),
		criteria.NewInstructorBackToBackConflicts(2, false),
		criteria.NewStudentBackToBackDistance(1, false),
		criteria.NewInstructorBackToBackDistance(1, false),
	}
	for _, kind := range []model.DistributionType{
		model.SamePeriod, model.DifferentPeriod, model.Precedence,
		model.SameRoom, model.DifferentRoom, model.SameDay,
		model.DifferentDay, model.SameAttendees,
	} {
		crits = append(crits, criteria.NewDistributionPenalty(kind, 10))
	}
	return criteria.NewRegistry(crits...)
}

// buildCondition assembles the outer termination condition from
// Termination.* config keys, always including a Signal so an OS interrupt
// drives the same cooperative shutdown as running out of budget.
func buildCondition(cfg config.Config) (solver.TerminationCondition, *solver.Signal) {
	sig := &solver.Signal{}
	all := solver.All{sig}
	if cfg.BoolValue("Termination.StopWhenComplete", false) {
		all = append(all, solver.StopWhenComplete{})
	}
	if maxIters := cfg.IntValue("Termination.MaxIters", 0); maxIters > 0 {
		all = append(all, solver.MaxIterations{Max: uint64(maxIters)})
	}
	if timeout := cfg.FloatValue("Termination.TimeOut", 0); timeout > 0 {
		all = append(all, solver.TimeOut{Max: time.Duration(timeout * float64(time.Second))})
	}
	return all, sig
}

func interruptOnSignal(sig *solver.Signal) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	<-ch
	sig.Trigger()
}

func buildConstructor(cfg config.Config) construction.Constructor {
	base := construction.NewExamConstruction(8)
	if cfg.BoolValue("Exam.ColoringConstruction", false) {
		return construction.NewChain(construction.NewColoringConstruction(), base)
	}
	return base
}

func resolveNeighbours(cfg config.Config, key string, registry *criteria.Registry) []neighbour.Neighbour {
	raw := cfg.StringValue(key, "")
	if raw == "" {
		return phase.DefaultNeighbours(registry)
	}
	var out []neighbour.Neighbour
	for _, name := range strings.Split(raw, ";") {
		name = strings.TrimSpace(name)
		build, ok := neighbourBuilders[name]
		if !ok {
			log.Fatalf("%s: unknown neighbour class %q", key, name)
		}
		out = append(out, build(registry))
	}
	return out
}

func buildMeta(cfg config.Config, registry *criteria.Registry) metaheuristic.Metaheuristic {
	if cfg.BoolValue("Exam.GreatDeluge", false) {
		neighbours := resolveNeighbours(cfg, "GreatDeluge.Neighbours", registry)
		return metaheuristic.NewGreatDeluge(0.995, 200, 8, 30, neighbours...)
	}
	neighbours := resolveNeighbours(cfg, "SimulatedAnnealing.Neighbours", registry)
	return metaheuristic.NewSimulatedAnnealing(100, 0.95, 200, 8, 30, neighbours...)
}

func buildControllerConfig(cfg config.Config, registry *criteria.Registry, rng *rand.Rand) phase.Config {
	hillNeighbours := resolveNeighbours(cfg, "HillClimber.Neighbours", registry)
	return phase.Config{
		Constructor:  buildConstructor(cfg),
		Repairer:     repair.NewRepairer(64, resolveNeighbours(cfg, "Neighbour.Class", registry)...),
		RepairBudget: 200,
		HillClimber:  metaheuristic.NewHillClimbing(8, 30, hillNeighbours...),
		Meta:         buildMeta(cfg, registry),
		FinalSweep:   metaheuristic.NewHillClimbing(8, 30, hillNeighbours...),
		Registry:     registry,
		Rng:          rng,
	}
}

func runSingle(m *model.Model, registry *criteria.Registry, cfg config.Config, condition solver.TerminationCondition, maxUnassigned int, seed int64) assignment.Assignment {
	a := assignment.NewSingle(m)
	rng := rand.New(rand.NewSource(seed))
	controller := phase.NewController(buildControllerConfig(cfg, registry, rng))

	s := solver.New(a, registry, controller, condition, nil)
	s.SetMaxUnassignedForBest(maxUnassigned)
	s.Solve()
	return a
}

func runParallel(m *model.Model, registry *criteria.Registry, cfg config.Config, condition solver.TerminationCondition, maxUnassigned, workers int, seed int64) assignment.Assignment {
	ps := solver.NewParallelSolver(m, registry, workers, seed, condition, nil, func(a *assignment.ParallelAssignment, rng *rand.Rand) *phase.Controller {
		return phase.NewController(buildControllerConfig(cfg, registry, rng))
	})
	ps.SetMaxUnassignedForBest(maxUnassigned)

	values, _, ok := ps.Solve()
	a := assignment.NewSingle(m)
	if !ok {
		return a
	}
	var iter uint64
	for _, p := range values {
		iter++
		a.Assign(iter, p)
	}
	return a
}

func saveReports(a assignment.Assignment, dir string) {
	reports := []report.Report{
		report.NewExamScheduleReport(),
		report.NewStudentDirectConflictReport(),
		report.NewInstructorDirectConflictReport(),
		report.NewStudentBackToBackReport(),
		report.NewInstructorBackToBackReport(),
		report.NewStudentMoreThanTwoADayReport(),
		report.NewInstructorMoreThanTwoADayReport(),
		report.NewPeriodUsageReport(),
		report.NewRoomScheduleReport(),
		report.NewRoomSplitReport(),
	}
	for _, r := range reports {
		out := path.Join(dir, r.Name()+".csv")
		if err := report.Save(r, a, out); err != nil {
			log.Printf("report %s: %v", r.Name(), err)
		}
	}
}
