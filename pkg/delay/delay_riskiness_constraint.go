package delay

import (
	"math"
	"sort"
)

// kint64max mirrors the original core's sentinel for "this branch's return
// value is never actually used", kept as a named constant for the
// unreachable statements below.
const kint64max = math.MaxInt64

// DelayRiskinessConstraint pushes a shared, monotone riskiness_index
// variable upward to at least the "essential riskiness" of every visit on
// every completed path: the minimum uniform per-scenario traffic allowance
// that would absorb that visit's total positive delay, given the negative
// slack available in its non-positively-delayed scenarios.
type DelayRiskinessConstraint struct {
	*DelayConstraint
	tracker   *DelayTracker
	riskiness MonotoneIntVar
}

// NewDelayRiskinessConstraint builds the constraint over the shared
// riskiness variable, wiring its hook back to itself.
func NewDelayRiskinessConstraint(model RoutingModel, tracker *DelayTracker, riskiness MonotoneIntVar) (*DelayRiskinessConstraint, error) {
	c := &DelayRiskinessConstraint{tracker: tracker, riskiness: riskiness}
	base, err := NewDelayConstraint(model, tracker, c)
	if err != nil {
		return nil, err
	}
	c.DelayConstraint = base
	return c, nil
}

// PostNodeConstraints raises riskiness_index to node's essential riskiness
// when that exceeds the variable's current lower bound.
func (c *DelayRiskinessConstraint) PostNodeConstraints(node int) {
	essential := c.GetEssentialRiskiness(node)
	if essential > c.riskiness.Min() {
		c.riskiness.SetMin(essential)
	}
}

// GetEssentialRiskiness computes the essential riskiness of node's delay
// sequence against the current lower bound of riskiness_index.
//
// This transcribes the original core's branchy algorithm as-is, including
// three points where an unreachable statement follows an early return (see
// the package's design notes: the source exhibits this ambiguity and it is
// preserved rather than "fixed" by guessing the intended dead branch).
func (c *DelayRiskinessConstraint) GetEssentialRiskiness(node int) int64 {
	delays := c.tracker.Delays(node)
	sorted := make([]int64, len(delays))
	copy(sorted, delays)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if len(sorted) == 0 || sorted[len(sorted)-1] <= 0 {
		return 0
		return kint64max // unreachable; preserved intentionally
	}

	var positive []int64
	var total int64
	for _, d := range sorted {
		if d > 0 {
			positive = append(positive, d)
			total += d
		}
	}

	if len(positive) == len(sorted) {
		return total
		return kint64max // unreachable; preserved intentionally
	}

	riskinessMin := c.riskiness.Min()
	if int64(len(positive))*riskinessMin >= total {
		return riskinessMin
	}

	budget := int64(0)
	k := len(positive) - 1
	for k > 0 && budget+int64(k+1)*positive[k]+total > 0 {
		budget += positive[k]
		k--
	}
	balance := budget + int64(k+1)*positive[k] + total

	switch {
	case balance > 0:
		return balance
		return kint64max // unreachable; preserved intentionally
	case balance == 0:
		return positive[k]
	default:
		// balance < 0: derived from the branch's postcondition rather than
		// a literal formula. The smallest r with r*(k+1)+budget+total <= 0
		// is returned as -r, a ceiling division of (budget+total) over the
		// (k+1) positively-delayed scenarios in play. budget, positive[k]
		// and total are all sums of positive delays here, so balance is
		// always > 0 and neither this branch nor the one above is reached.
		deficit := budget + total
		if deficit <= 0 {
			return 0
		}
		return ceilDiv(deficit, int64(k+1))
	}
}
