package delay

import (
	"fmt"
	"time"
)

// DurationSample is the immutable per-scenario duration matrix shared by
// every DelayTracker built against one routing model. It is read-only after
// construction and may be shared by shared ownership across many
// constraint instances; it has no interior mutation.
type DurationSample struct {
	numNodes     int
	numScenarios int
	startMin     []int64
	startMax     []int64
	duration     [][]int64 // duration[n][s]
	sibling      []int     // sibling[n], NoSibling if none
	isVisit      []bool
}

// NewDurationSample builds a DurationSample directly from the per-node
// bounds, duration matrix and sibling index. It is the primary constructor
// used by the CP-engine-facing code: the engine already knows the time
// windows and has a pre-computed duration matrix (for example, produced by
// NewDurationSampleFromHistory below, or read from a solver checkpoint).
//
// duration must be a numNodes x numScenarios matrix; startMin, startMax,
// sibling, isVisit must each have length numNodes. sibling[n] == NoSibling
// means n has no paired visit; sibling must be symmetric
// (sibling[sibling[n]] == n whenever sibling[n] != NoSibling).
func NewDurationSample(startMin, startMax []int64, duration [][]int64, sibling []int, isVisit []bool) (*DurationSample, error) {
	n := len(startMin)
	if len(startMax) != n || len(duration) != n || len(sibling) != n || len(isVisit) != n {
		return nil, fmt.Errorf("delay: NewDurationSample: mismatched lengths (nodes=%d, startMax=%d, duration=%d, sibling=%d, isVisit=%d)",
			n, len(startMax), len(duration), len(sibling), len(isVisit))
	}
	var numScenarios int
	if n > 0 {
		numScenarios = len(duration[0])
		for i, row := range duration {
			if len(row) != numScenarios {
				return nil, fmt.Errorf("delay: NewDurationSample: duration row %d has %d scenarios, want %d", i, len(row), numScenarios)
			}
		}
	}
	for i, sib := range sibling {
		if sib == NoSibling {
			continue
		}
		if sib < 0 || sib >= n {
			return nil, fmt.Errorf("delay: NewDurationSample: sibling[%d]=%d out of range", i, sib)
		}
		if sibling[sib] != i {
			return nil, fmt.Errorf("delay: NewDurationSample: sibling link not symmetric between %d and %d", i, sib)
		}
	}

	durCopy := make([][]int64, n)
	for i, row := range duration {
		r := make([]int64, len(row))
		copy(r, row)
		durCopy[i] = r
	}
	smCopy := make([]int64, n)
	copy(smCopy, startMin)
	sxCopy := make([]int64, n)
	copy(sxCopy, startMax)
	sibCopy := make([]int, n)
	copy(sibCopy, sibling)
	visCopy := make([]bool, n)
	copy(visCopy, isVisit)

	return &DurationSample{
		numNodes:     n,
		numScenarios: numScenarios,
		startMin:     smCopy,
		startMax:     sxCopy,
		duration:     durCopy,
		sibling:      sibCopy,
		isVisit:      visCopy,
	}, nil
}

// HistoricalVisit is one past, completed visit used to derive a future
// visit's per-scenario duration sample.
type HistoricalVisit struct {
	ServiceUser      string
	Date             time.Time
	StartOfDayOffset time.Duration // planned start time, as an offset from midnight
	Tasks            []string      // unordered task set; compared as a set
	ActualDuration   int64         // seconds
}

// PlannedVisit describes one future visit for which a DurationSample row is
// to be derived from history.
type PlannedVisit struct {
	ServiceUser      string
	StartOfDayOffset time.Duration
	Tasks            []string
	NominalDuration  int64 // seconds; used when no matching history exists
}

// HistoryLookup resolves the historical visits recorded for one service
// user, across all available dates. Out of scope for this package proper;
// supplied by the caller (the problem/history collaborators of §6).
type HistoryLookup func(serviceUser string) []HistoricalVisit

// NewDurationSampleFromHistory derives a DurationSample's duration rows for
// a set of visit nodes from historical data, following the averaging rule:
// for each visit and each scenario date, average the actual durations of
// past visits for the same service user, on that date, whose planned
// start-of-day offset is within +/-2 hours of this visit's and whose task
// set equals this visit's task set; if no such sample exists for a date,
// fall back to the visit's nominal duration; if no historical data exists
// for the visit at all, fall back to zero.
//
// Non-visit nodes (depot nodes) are given an all-zero row. nodeToVisit maps
// a node index to an index into visits, or -1 for non-visit nodes; a node
// is marked as a visit exactly when it maps into visits. startMin,
// startMax and sibling must each have the same length as nodeToVisit.
func NewDurationSampleFromHistory(
	startMin, startMax []int64,
	sibling []int,
	nodeToVisit []int,
	visits []PlannedVisit,
	scenarioDates []time.Time,
	lookup HistoryLookup,
) (*DurationSample, error) {
	n := len(nodeToVisit)
	if len(startMin) != n || len(startMax) != n || len(sibling) != n {
		return nil, fmt.Errorf("delay: NewDurationSampleFromHistory: mismatched lengths")
	}
	isVisit := make([]bool, n)
	duration := make([][]int64, n)
	for node := 0; node < n; node++ {
		duration[node] = make([]int64, len(scenarioDates))
		vi := nodeToVisit[node]
		if vi < 0 {
			continue // depot row stays all zero
		}
		if vi >= len(visits) {
			return nil, fmt.Errorf("delay: NewDurationSampleFromHistory: node %d maps to out-of-range visit %d", node, vi)
		}
		isVisit[node] = true
		visit := visits[vi]
		history := lookup(visit.ServiceUser)
		for s, date := range scenarioDates {
			duration[node][s] = sampleDurationForDate(visit, date, history)
		}
	}
	return NewDurationSample(startMin, startMax, duration, sibling, isVisit)
}

func sampleDurationForDate(visit PlannedVisit, date time.Time, history []HistoricalVisit) int64 {
	const offsetTolerance = 2 * time.Hour
	var total, count int64
	for _, h := range history {
		if !sameDate(h.Date, date) {
			continue
		}
		offsetDelta := h.StartOfDayOffset - visit.StartOfDayOffset
		if offsetDelta < 0 {
			offsetDelta = -offsetDelta
		}
		if offsetDelta > offsetTolerance {
			continue
		}
		if !sameTaskSet(h.Tasks, visit.Tasks) {
			continue
		}
		total += h.ActualDuration
		count++
	}
	if count == 0 {
		if len(history) == 0 {
			return 0
		}
		return visit.NominalDuration
	}
	return total / count
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameTaskSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, t := range a {
		seen[t]++
	}
	for _, t := range b {
		seen[t]--
	}
	for _, c := range seen {
		if c != 0 {
			return false
		}
	}
	return true
}

// Size returns the number of scenarios S.
func (d *DurationSample) Size() int { return d.numScenarios }

// NumIndices returns the number of nodes N.
func (d *DurationSample) NumIndices() int { return d.numNodes }

// StartMin returns the lower bound of node n's time window.
func (d *DurationSample) StartMin(n int) int64 { return d.startMin[n] }

// StartMax returns the upper bound of node n's time window.
func (d *DurationSample) StartMax(n int) int64 { return d.startMax[n] }

// Duration returns the sampled visit duration at node n under scenario s.
func (d *DurationSample) Duration(n, s int) int64 { return d.duration[n][s] }

// IsVisit reports whether node n is a visit (as opposed to a depot node).
func (d *DurationSample) IsVisit(n int) bool { return d.isVisit[n] }

// HasSibling reports whether node n is one half of a two-carer visit.
func (d *DurationSample) HasSibling(n int) bool { return d.sibling[n] != NoSibling }

// Sibling returns the paired node of a two-carer visit, or NoSibling.
func (d *DurationSample) Sibling(n int) int { return d.sibling[n] }
