package delay

import "fmt"

// TrackRecord holds the per-node bookkeeping rebuilt by UpdatePath: the
// successor under the current routing assignment, the travel time to that
// successor, and the break window the carer straddles between the two.
type TrackRecord struct {
	Index int
	// Next is the successor node under the current assignment, or NoNext
	// if the node is not routed (an empty vehicle's start, or a node past
	// the end of a completed chain).
	Next int
	// Duration is the nominal (non-scenario) visit duration, used only
	// for service-time tie-breaks; it plays no part in arrival-time
	// propagation, which always uses the scenario-indexed DurationSample.
	Duration int64
	// TravelTime is the arc cost from Index to Next for the owning
	// vehicle.
	TravelTime int64
	// BreakMin and BreakDuration describe the effective break straddled
	// between Index and Next: the earliest clock time the break window
	// opens, and its total duration. Both are zero if no break belongs
	// to this arc.
	BreakMin      int64
	BreakDuration int64
}

// DelayTracker reconstructs vehicle paths from a RoutingModel and, against
// a shared DurationSample, propagates per-scenario arrival times and
// resulting delays. TrackRecord, start and delay arrays are owned
// exclusively by one DelayTracker and overwritten on each propagation.
type DelayTracker struct {
	model   RoutingModel
	sample  *DurationSample
	records []TrackRecord
	start   [][]int64 // start[n][s]
	delay   [][]int64 // delay[n][s]
}

// NewDelayTracker builds a DelayTracker over model, sharing sample (which
// must outlive the tracker and is never mutated by it).
func NewDelayTracker(model RoutingModel, sample *DurationSample) (*DelayTracker, error) {
	if model == nil {
		return nil, fmt.Errorf("delay: NewDelayTracker: nil model")
	}
	if sample == nil {
		return nil, fmt.Errorf("delay: NewDelayTracker: nil sample")
	}
	n := model.Nodes()
	if sample.NumIndices() != n {
		return nil, fmt.Errorf("delay: NewDelayTracker: model has %d nodes, sample has %d", n, sample.NumIndices())
	}
	s := sample.Size()
	start := make([][]int64, n)
	delayArr := make([][]int64, n)
	for i := 0; i < n; i++ {
		start[i] = make([]int64, s)
		delayArr[i] = make([]int64, s)
	}
	return &DelayTracker{
		model:   model,
		sample:  sample,
		records: make([]TrackRecord, n),
		start:   start,
		delay:   delayArr,
	}, nil
}

// UpdatePath rebuilds the TrackRecord entries for one vehicle by walking
// its Next chain from Start to End, tracking the break-window interaction
// at each hop against the vehicle's ordered break intervals.
func (t *DelayTracker) UpdatePath(vehicle int) {
	breaks := t.model.BreakIntervals(vehicle)
	start := t.model.Start(vehicle)

	pos := 0
	startMin := t.model.CumulVar(start).Min()
	for pos < len(breaks) && breaks[pos].StartMin+breaks[pos].DurationMin <= startMin {
		pos++
	}

	current := start
	for !t.model.IsEnd(current) {
		next := int(t.model.NextVar(current).Value())
		if next == current {
			// Empty vehicle: Start loops to itself.
			t.records[current] = TrackRecord{Index: current, Next: NoNext}
			return
		}

		nextMin := t.model.CumulVar(next).Min()
		var accumulated, lastMin, lastDur int64
		for pos < len(breaks) && breaks[pos].StartMin < nextMin {
			accumulated += breaks[pos].DurationMin
			lastMin = breaks[pos].StartMin
			lastDur = breaks[pos].DurationMin
			pos++
		}
		var breakMin, breakDuration int64
		if accumulated > 0 {
			breakMin = lastMin + lastDur - accumulated
			breakDuration = accumulated
		}

		t.records[current] = TrackRecord{
			Index:         current,
			Next:          next,
			Duration:      t.nominalDuration(current),
			TravelTime:    t.model.ArcCost(current, next, vehicle),
			BreakMin:      breakMin,
			BreakDuration: breakDuration,
		}
		current = next
	}
	t.records[current] = TrackRecord{Index: current, Next: NoNext}

	if pos < len(breaks) {
		endMin := t.model.CumulVar(current).Min()
		if breaks[pos].StartMin < endMin {
			panicInvariant("UpdatePath", "break cursor not exhausted ahead of vehicle end")
		}
	}
}

// nominalDuration is the non-scenario service time recorded on TrackRecord
// for tie-breaks; it is the scenario-averaged duration at the node, since
// this core has no separate "nominal planned duration" channel of its own.
func (t *DelayTracker) nominalDuration(node int) int64 {
	s := t.sample.Size()
	if s == 0 {
		return 0
	}
	var sum int64
	for scenario := 0; scenario < s; scenario++ {
		sum += t.sample.Duration(node, scenario)
	}
	return sum / int64(s)
}

// arrivalTime computes arrival(u,s) per the formula in the component
// design: scenario duration and travel time, adjusted by the break window
// straddled on the arc out of u.
func (t *DelayTracker) arrivalTime(u, s int) int64 {
	rec := t.records[u]
	arrival := t.start[u][s] + t.sample.Duration(u, s) + rec.TravelTime
	if arrival > rec.BreakMin {
		arrival += rec.BreakDuration
	} else {
		bw := rec.BreakMin + rec.BreakDuration
		if bw > arrival {
			arrival = bw
		}
	}
	return arrival
}

// propagateForwardFrom walks the Next chain starting at node, raising the
// successor's start[·][s] to arrival(·,s) and, when siblingSync is true,
// synchronising and enqueuing any sibling pushed later.
func (t *DelayTracker) propagateForwardFrom(node, s int, siblingSync bool, worklist *[]int) {
	current := node
	for {
		rec := t.records[current]
		if rec.Next == NoNext {
			return
		}
		v := rec.Next
		arrival := t.arrivalTime(current, s)
		if arrival > t.start[v][s] {
			t.start[v][s] = arrival
		}
		if siblingSync && t.sample.HasSibling(v) {
			sib := t.sample.Sibling(v)
			if t.start[v][s] > t.start[sib][s] {
				t.start[sib][s] = t.start[v][s]
				*worklist = append(*worklist, sib)
			}
		}
		current = v
	}
}

// UpdateAllPaths rebuilds every vehicle's TrackRecord chain, then for every
// scenario seeds each node at its start_min, propagates forward along every
// vehicle's path with sibling synchronisation, drains the resulting
// worklist, and finally recomputes delay for every visited node.
func (t *DelayTracker) UpdateAllPaths() {
	vehicles := t.model.Vehicles()
	for v := 0; v < vehicles; v++ {
		t.UpdatePath(v)
	}

	n := t.sample.NumIndices()
	s := t.sample.Size()
	for scenario := 0; scenario < s; scenario++ {
		for node := 0; node < n; node++ {
			t.start[node][scenario] = t.sample.StartMin(node)
		}
		var worklist []int
		for v := 0; v < vehicles; v++ {
			t.propagateForwardFrom(t.model.Start(v), scenario, true, &worklist)
		}
		for len(worklist) > 0 {
			node := worklist[0]
			worklist = worklist[1:]
			t.propagateForwardFrom(node, scenario, true, &worklist)
		}
	}

	for v := 0; v < vehicles; v++ {
		t.ComputePathDelay(v)
	}
}

// propagatePathNoSiblingSync seeds and propagates one vehicle's chain in
// isolation, without synchronising siblings that may live on another
// vehicle's incomplete path. Used by DelayConstraint.PropagatePath, which
// runs before every vehicle's path is complete.
func (t *DelayTracker) propagatePathNoSiblingSync(vehicle int) {
	s := t.sample.Size()
	start := t.model.Start(vehicle)
	for scenario := 0; scenario < s; scenario++ {
		current := start
		for {
			t.start[current][scenario] = maxInt64(t.start[current][scenario], t.sample.StartMin(current))
			rec := t.records[current]
			if rec.Next == NoNext {
				break
			}
			arrival := t.arrivalTime(current, scenario)
			if arrival > t.start[rec.Next][scenario] {
				t.start[rec.Next][scenario] = arrival
			}
			current = rec.Next
		}
	}
}

// ComputePathDelay recomputes delay[n][s] = start[n][s] - start_max[n] for
// every node on vehicle's chain, across every scenario. Un-routed nodes
// (never reached by any vehicle's chain) keep delay 0.
func (t *DelayTracker) ComputePathDelay(vehicle int) {
	s := t.sample.Size()
	current := t.model.Start(vehicle)
	for {
		for scenario := 0; scenario < s; scenario++ {
			t.delay[current][scenario] = t.start[current][scenario] - t.sample.StartMax(current)
		}
		rec := t.records[current]
		if rec.Next == NoNext {
			return
		}
		current = rec.Next
	}
}

// Delay returns delay[node][scenario].
func (t *DelayTracker) Delay(node, scenario int) int64 {
	return t.delay[node][scenario]
}

// Start returns start[node][scenario], the earliest feasible arrival at
// node under scenario.
func (t *DelayTracker) Start(node, scenario int) int64 {
	return t.start[node][scenario]
}

// Delays returns a defensive copy of delay[node][·] across all scenarios.
func (t *DelayTracker) Delays(node int) []int64 {
	out := make([]int64, len(t.delay[node]))
	copy(out, t.delay[node])
	return out
}

// Sibling returns the paired node of a two-carer visit, or NoSibling.
func (t *DelayTracker) Sibling(node int) int {
	return t.sample.Sibling(node)
}

// VisitNodesOnPath returns, in traversal order, the visit nodes on
// vehicle's chain as last rebuilt by UpdatePath.
func (t *DelayTracker) VisitNodesOnPath(vehicle int) []int {
	var out []int
	current := t.model.Start(vehicle)
	for {
		if t.sample.IsVisit(current) {
			out = append(out, current)
		}
		rec := t.records[current]
		if rec.Next == NoNext {
			return out
		}
		current = rec.Next
	}
}

// GetMeanDelay returns the arithmetic mean of delay[node][·] across
// scenarios, using integer division (truncation), consistent with the
// original C++ core's use of built-in integer division.
func (t *DelayTracker) GetMeanDelay(node int) int64 {
	s := t.sample.Size()
	if s == 0 {
		return 0
	}
	var sum int64
	for scenario := 0; scenario < s; scenario++ {
		sum += t.delay[node][scenario]
	}
	return sum / int64(s)
}

// GetDelayProbability returns ceil(100 * |{s: delay[node][s] > 0}| / S), a
// value in [0,100].
func (t *DelayTracker) GetDelayProbability(node int) int64 {
	s := t.sample.Size()
	if s == 0 {
		return 0
	}
	var positive int64
	for scenario := 0; scenario < s; scenario++ {
		if t.delay[node][scenario] > 0 {
			positive++
		}
	}
	return ceilDiv(100*positive, int64(s))
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
