// Package demoengine is a minimal, self-contained stand-in for an
// external CP routing engine. It never searches for a routing
// assignment; it builds one fixed synthetic problem (a depot, a chain of
// visits per vehicle, optional unpaid breaks and one sibling pair) and
// exposes it through delay.RoutingModel, so the CLI and integration tests
// can exercise the delay-propagation core without depending on a real
// solver.
package demoengine

import (
	"fmt"
	"math/rand"

	"github.com/gitrdm/rows-delay/pkg/delay"
)

// Visit describes one synthetic visit node in a generated problem.
type Visit struct {
	Vehicle     int
	StartMin    int64
	StartMax    int64
	TravelTime  int64 // travel time from the previous node on its route
	NominalDur  int64
	Sibling     int // index into the resulting Problem.Nodes, or delay.NoSibling
	DurationJit int64
}

// Problem is a fully-built synthetic routing assignment: one linear route
// per vehicle, depot-to-depot, with every Next pointer already bound.
type Problem struct {
	model    *Engine
	sample   *delay.DurationSample
	vehicles int
}

// Engine implements delay.RoutingModel over a fixed, already-bound Next
// assignment.
type Engine struct {
	numNodes int
	starts   []int
	ends     []int
	isEnd    map[int]bool
	next     map[int]int
	cumul    map[int]int64
	arcCost  map[[3]int]int64
	breaks   map[int][]delay.BreakInterval
	complete []*boolVar
	failed   bool
}

type intVar struct{ value int64 }

func (v *intVar) Min() int64   { return v.value }
func (v *intVar) Max() int64   { return v.value }
func (v *intVar) Value() int64 { return v.value }
func (v *intVar) Bound() bool  { return true }

type boolVar struct{ v int64 }

func (b *boolVar) Min() int64  { return b.v }
func (b *boolVar) Max() int64  { return b.v }
func (b *boolVar) Bound() bool { return true }

func (e *Engine) Vehicles() int    { return len(e.starts) }
func (e *Engine) Nodes() int       { return e.numNodes }
func (e *Engine) Start(v int) int  { return e.starts[v] }
func (e *Engine) End(v int) int    { return e.ends[v] }
func (e *Engine) IsEnd(n int) bool { return e.isEnd[n] }

func (e *Engine) NextVar(n int) delay.IntVar {
	if v, ok := e.next[n]; ok {
		return &intVar{value: int64(v)}
	}
	return &intVar{value: int64(n)}
}

func (e *Engine) CumulVar(n int) delay.IntVar {
	return &intVar{value: e.cumul[n]}
}

func (e *Engine) ArcCost(u, v, vehicle int) int64 {
	return e.arcCost[[3]int{u, v, vehicle}]
}

func (e *Engine) BreakIntervals(vehicle int) []delay.BreakInterval {
	return e.breaks[vehicle]
}

func (e *Engine) CompletedPathVar(vehicle int) delay.BoolVar {
	return e.complete[vehicle]
}

func (e *Engine) Fail() { e.failed = true }

// Failed reports whether Fail has been called since the Engine was built.
func (e *Engine) Failed() bool { return e.failed }

// Options sizes a generated synthetic problem.
type Options struct {
	Vehicles      int
	VisitsPerCar  int
	Scenarios     int
	BreakStart    int64
	BreakDuration int64
	Seed          int64
}

// Build constructs a synthetic Problem: one depot-to-depot route per
// vehicle, each visiting opts.VisitsPerCar nodes in sequence, with
// per-scenario durations drawn from a small deterministic jitter around a
// nominal duration so that the demo exercises both DelayNotExpectedConstraint
// and DelayRiskinessConstraint. The first two vehicles' last visits are
// linked as a sibling pair when at least two vehicles are requested, to
// exercise cross-route sibling synchronisation.
func Build(opts Options) (*Problem, error) {
	if opts.Vehicles <= 0 || opts.VisitsPerCar <= 0 || opts.Scenarios <= 0 {
		return nil, fmt.Errorf("demoengine: Vehicles, VisitsPerCar and Scenarios must all be > 0")
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	// Node layout: for each vehicle, [start-depot, visit_1..visit_k, end-depot].
	var (
		numNodes         int
		starts, ends     []int
		isEndMap         = map[int]bool{}
		next             = map[int]int{}
		cumul            = map[int]int64{}
		arcCost          = map[[3]int]int64{}
		startMin, startX []int64
		sibling          []int
		isVisit          []bool
		duration         [][]int64
	)

	lastVisitOfVehicle := make([]int, opts.Vehicles)

	for veh := 0; veh < opts.Vehicles; veh++ {
		startNode := numNodes
		numNodes++
		starts = append(starts, startNode)
		startMin = append(startMin, 0)
		startX = append(startX, 0)
		sibling = append(sibling, delay.NoSibling)
		isVisit = append(isVisit, false)
		duration = append(duration, make([]int64, opts.Scenarios))
		cumul[startNode] = 0

		prev := startNode
		for i := 0; i < opts.VisitsPerCar; i++ {
			node := numNodes
			numNodes++
			travel := int64(600 + 60*i)
			windowMin := int64(3600 * (i + 1))
			nominal := int64(900 + 300*i)

			row := make([]int64, opts.Scenarios)
			for s := 0; s < opts.Scenarios; s++ {
				jitter := int64(rng.Intn(7)-3) * 60
				d := nominal + jitter
				if d < 0 {
					d = 0
				}
				row[s] = d
			}

			startMin = append(startMin, windowMin)
			startX = append(startX, windowMin+900)
			sibling = append(sibling, delay.NoSibling)
			isVisit = append(isVisit, true)
			duration = append(duration, row)

			next[prev] = node
			arcCost[[3]int{prev, node, veh}] = travel
			prev = node
			lastVisitOfVehicle[veh] = node
		}

		endNode := numNodes
		numNodes++
		ends = append(ends, endNode)
		isEndMap[endNode] = true
		startMin = append(startMin, 0)
		startX = append(startX, 0)
		sibling = append(sibling, delay.NoSibling)
		isVisit = append(isVisit, false)
		duration = append(duration, make([]int64, opts.Scenarios))

		endTravel := int64(600)
		next[prev] = endNode
		arcCost[[3]int{prev, endNode, veh}] = endTravel
	}

	if opts.Vehicles >= 2 {
		a, b := lastVisitOfVehicle[0], lastVisitOfVehicle[1]
		sibling[a] = b
		sibling[b] = a
	}

	breaks := map[int][]delay.BreakInterval{}
	if opts.BreakDuration > 0 {
		for veh := 0; veh < opts.Vehicles; veh++ {
			breaks[veh] = []delay.BreakInterval{{
				StartMin:    opts.BreakStart,
				StartMax:    opts.BreakStart + 1800,
				DurationMin: opts.BreakDuration,
			}}
		}
	}

	complete := make([]*boolVar, opts.Vehicles)
	for i := range complete {
		complete[i] = &boolVar{v: 1}
	}

	engine := &Engine{
		numNodes: numNodes,
		starts:   starts,
		ends:     ends,
		isEnd:    isEndMap,
		next:     next,
		cumul:    cumul,
		arcCost:  arcCost,
		breaks:   breaks,
		complete: complete,
	}

	sample, err := delay.NewDurationSample(startMin, startX, duration, sibling, isVisit)
	if err != nil {
		return nil, fmt.Errorf("demoengine: building duration sample: %w", err)
	}

	return &Problem{model: engine, sample: sample, vehicles: opts.Vehicles}, nil
}

// Model returns the problem's RoutingModel.
func (p *Problem) Model() delay.RoutingModel { return p.model }

// Engine returns the concrete Engine, for callers that need Failed().
func (p *Problem) Engine() *Engine { return p.model }

// Sample returns the problem's DurationSample.
func (p *Problem) Sample() *delay.DurationSample { return p.sample }

// Vehicles returns the number of vehicles in the problem.
func (p *Problem) Vehicles() int { return p.vehicles }
