// Package delay implements the stochastic delay-propagation core of a
// home-care vehicle routing model: given a candidate routing assignment and
// a historical sample of visit durations, it computes per-visit arrival
// times and lateness under every historical scenario, and exposes two CP
// constraints built on top of that computation.
//
// The package never reimplements the constraint-programming search that
// produces routing assignments. It consumes one through the RoutingModel
// interfaces in this file, which are borrowed handles into a model owned
// and driven by an external CP engine. A constraint built from this package
// never outlives the model it was posted against.
package delay

import "fmt"

// SecondsInDay bounds the reachable state space of any per-node arrival
// time; propagation is monotone and every start[n][s] is bounded above by
// this horizon.
const SecondsInDay int64 = 86400

// NoSibling is the sentinel sibling index for a node with no paired visit.
const NoSibling = -1

// NoNext is the sentinel successor index for an un-routed node.
const NoNext = -1

// IntVar is a borrowed handle to a CP integer variable, such as a Next
// pointer or a cumulative time variable. Bound() reports whether the
// engine has fixed the variable to a single value.
type IntVar interface {
	Min() int64
	Max() int64
	Value() int64
	Bound() bool
}

// BoolVar is a borrowed handle to a CP boolean variable, such as one
// vehicle's "path complete" indicator.
type BoolVar interface {
	Min() int64
	Max() int64
	Bound() bool
}

// MonotoneIntVar is a borrowed handle to a CP integer variable whose lower
// bound only ever rises, such as the shared riskiness_index objective.
// SetMin must be a no-op (or a no-op from the caller's point of view) when
// min does not exceed the variable's current lower bound.
type MonotoneIntVar interface {
	Min() int64
	SetMin(min int64)
}

// BreakInterval describes one unpaid break window within a carer's
// workday. StartMin/StartMax bound the earliest/latest clock time the
// break may begin; DurationMin is the break's fixed duration.
type BreakInterval struct {
	StartMin    int64
	StartMax    int64
	DurationMin int64
}

// RoutingModel is the CP-engine surface this package depends on. It is
// implemented by an external routing engine (out of scope for this
// package) or, for tests and demonstrations, by a minimal stand-in such as
// internal/demoengine.
type RoutingModel interface {
	Vehicles() int
	Nodes() int
	Start(vehicle int) int
	End(vehicle int) int
	IsEnd(node int) bool

	// NextVar returns the successor variable for node. When bound,
	// Value() names the next node on the route, or the node itself for
	// an un-routed (empty) vehicle's start node.
	NextVar(node int) IntVar

	// CumulVar returns the time-dimension cumulative variable at node:
	// the CP engine's own bound on the arrival time.
	CumulVar(node int) IntVar

	// ArcCost returns the deterministic travel time from u to v for the
	// given vehicle.
	ArcCost(u, v, vehicle int) int64

	// BreakIntervals returns the ordered list of unpaid break intervals
	// for the given vehicle's workday.
	BreakIntervals(vehicle int) []BreakInterval

	// CompletedPathVar returns the boolean variable that becomes true
	// once vehicle's Next chain from Start to End is fully bound.
	CompletedPathVar(vehicle int) BoolVar

	// Fail aborts the current search branch. It must be called only from
	// within a propagation cycle driven by this engine.
	Fail()
}

// InvariantViolation reports a programmer-invariant failure: state that
// should be unreachable if the CP engine and this package's own bookkeeping
// are both correct. Per the package's error-handling design, invariant
// violations are bugs, not recoverable errors, and are raised as panics
// rather than returned.
type InvariantViolation struct {
	Where string
	Why   string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("delay: invariant violated in %s: %s", e.Where, e.Why)
}

func panicInvariant(where, why string) {
	panic(&InvariantViolation{Where: where, Why: why})
}
