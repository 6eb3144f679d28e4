package delay

import "math"

// fakeIntVar is a minimal borrowed-handle stand-in for the CP engine's
// integer variables, used only by this package's own tests.
type fakeIntVar struct {
	min, max, value int64
	bound           bool
}

func (v *fakeIntVar) Min() int64   { return v.min }
func (v *fakeIntVar) Max() int64   { return v.max }
func (v *fakeIntVar) Value() int64 { return v.value }
func (v *fakeIntVar) Bound() bool  { return v.bound }

func boundVar(value int64) *fakeIntVar {
	return &fakeIntVar{min: value, max: value, value: value, bound: true}
}

func cumulVar(min int64) *fakeIntVar {
	return &fakeIntVar{min: min, max: math.MaxInt64 / 2, bound: false}
}

// fakeBoolVar is a minimal stand-in for a CP boolean variable.
type fakeBoolVar struct{ min, max int64 }

func (v *fakeBoolVar) Min() int64  { return v.min }
func (v *fakeBoolVar) Max() int64  { return v.max }
func (v *fakeBoolVar) Bound() bool { return v.min == v.max }

// fakeMonotoneIntVar is a minimal stand-in for the shared riskiness_index
// objective variable.
type fakeMonotoneIntVar struct{ min int64 }

func (v *fakeMonotoneIntVar) Min() int64     { return v.min }
func (v *fakeMonotoneIntVar) SetMin(m int64) { v.min = m }

type arc struct {
	u, v, vehicle int
}

// fakeModel is a small in-memory stand-in for an external CP routing
// engine, built directly from a fixed Next assignment; it implements just
// enough of RoutingModel to drive the delay package's propagation in
// tests.
type fakeModel struct {
	numNodes int
	starts   []int
	ends     []int
	endSet   map[int]bool
	next     map[int]int
	cumul    map[int]*fakeIntVar
	arcCost  map[arc]int64
	breaks   map[int][]BreakInterval
	complete []*fakeBoolVar
	failed   bool
}

func newFakeModel(numNodes int, starts, ends []int) *fakeModel {
	endSet := make(map[int]bool, len(ends))
	for _, e := range ends {
		endSet[e] = true
	}
	complete := make([]*fakeBoolVar, len(starts))
	for i := range complete {
		complete[i] = &fakeBoolVar{min: 1, max: 1}
	}
	return &fakeModel{
		numNodes: numNodes,
		starts:   starts,
		ends:     ends,
		endSet:   endSet,
		next:     make(map[int]int),
		cumul:    make(map[int]*fakeIntVar),
		arcCost:  make(map[arc]int64),
		breaks:   make(map[int][]BreakInterval),
		complete: complete,
	}
}

func (m *fakeModel) setNext(u, v int)          { m.next[u] = v }
func (m *fakeModel) setCumul(n int, min int64) { m.cumul[n] = cumulVar(min) }
func (m *fakeModel) setArc(u, v, vehicle int, c int64) {
	m.arcCost[arc{u, v, vehicle}] = c
}
func (m *fakeModel) setBreaks(vehicle int, b []BreakInterval) { m.breaks[vehicle] = b }

func (m *fakeModel) Vehicles() int    { return len(m.starts) }
func (m *fakeModel) Nodes() int       { return m.numNodes }
func (m *fakeModel) Start(v int) int  { return m.starts[v] }
func (m *fakeModel) End(v int) int    { return m.ends[v] }
func (m *fakeModel) IsEnd(n int) bool { return m.endSet[n] }

func (m *fakeModel) NextVar(n int) IntVar {
	if v, ok := m.next[n]; ok {
		return boundVar(int64(v))
	}
	return boundVar(int64(n)) // un-routed: loops to itself
}

func (m *fakeModel) CumulVar(n int) IntVar {
	if v, ok := m.cumul[n]; ok {
		return v
	}
	return cumulVar(0)
}

func (m *fakeModel) ArcCost(u, v, vehicle int) int64 {
	return m.arcCost[arc{u, v, vehicle}]
}

func (m *fakeModel) BreakIntervals(vehicle int) []BreakInterval {
	return m.breaks[vehicle]
}

func (m *fakeModel) CompletedPathVar(vehicle int) BoolVar {
	return m.complete[vehicle]
}

func (m *fakeModel) Fail() { m.failed = true }
