package delay

import "fmt"

// NodeConstraintPoster is the capability every concrete delay constraint
// must provide: a hook invoked once per visit node after a path's (or all
// paths') delay has been (re)computed. DelayConstraint is deliberately
// closed over this one capability rather than open to arbitrary
// subclassing — DelayNotExpectedConstraint and DelayRiskinessConstraint are
// the only two variants this package defines.
type NodeConstraintPoster interface {
	PostNodeConstraints(node int)
}

// constraintState tracks where a DelayConstraint sits in its lifecycle, for
// defensive precondition checks only; the CP engine is the real driver.
type constraintState int

const (
	stateUnposted constraintState = iota
	statePosted
)

// DelayConstraint is the CP-engine constraint lifecycle shared by
// DelayNotExpectedConstraint and DelayRiskinessConstraint: it watches each
// vehicle's path-completion variable, dispatches to per-path or
// all-paths propagation, and calls the concrete hook per visit node.
//
// A DelayConstraint never outlives the RoutingModel it was built from; its
// fields are borrowed handles with the same lifetime as that model.
type DelayConstraint struct {
	model   RoutingModel
	tracker *DelayTracker
	hook    NodeConstraintPoster

	completedPaths []BoolVar
	state          constraintState
}

// NewDelayConstraint builds an unposted DelayConstraint over model and
// tracker, dispatching its per-node hook to poster.
func NewDelayConstraint(model RoutingModel, tracker *DelayTracker, poster NodeConstraintPoster) (*DelayConstraint, error) {
	if model == nil {
		return nil, fmt.Errorf("delay: NewDelayConstraint: nil model")
	}
	if tracker == nil {
		return nil, fmt.Errorf("delay: NewDelayConstraint: nil tracker")
	}
	if poster == nil {
		return nil, fmt.Errorf("delay: NewDelayConstraint: nil poster")
	}
	return &DelayConstraint{model: model, tracker: tracker, hook: poster}, nil
}

// Post registers the constraint against the model's per-vehicle
// path-completion variables. It must be called exactly once, before
// InitialPropagate.
func (c *DelayConstraint) Post() {
	n := c.model.Vehicles()
	c.completedPaths = make([]BoolVar, n)
	for v := 0; v < n; v++ {
		c.completedPaths[v] = c.model.CompletedPathVar(v)
	}
	c.state = statePosted
}

// InitialPropagate runs the constraint's first propagation: every already
// -completed vehicle gets PropagatePath, or, if every vehicle is already
// complete, PropagateAllPaths runs directly.
func (c *DelayConstraint) InitialPropagate() {
	c.requirePosted("InitialPropagate")
	if c.allPathsCompleted() {
		c.PropagateAllPaths()
		return
	}
	for v, completed := range c.completedPaths {
		if completed.Min() != 0 {
			c.PropagatePath(v)
		}
	}
}

// PropagatePath propagates one completed vehicle's path in isolation,
// without sibling synchronisation, and posts the per-node hook along its
// chain. Precondition: vehicle's completed-path variable has Max() != 0.
func (c *DelayConstraint) PropagatePath(vehicle int) {
	if c.completedPaths[vehicle].Max() == 0 {
		panicInvariant("PropagatePath", "called for a vehicle whose path cannot be complete")
	}
	c.tracker.UpdatePath(vehicle)
	c.tracker.propagatePathNoSiblingSync(vehicle)
	c.tracker.ComputePathDelay(vehicle)
	c.postPathConstraints(vehicle)
}

// PropagateAllPaths runs the full sibling-aware propagation pipeline across
// every vehicle and posts the per-node hook along every vehicle's chain.
// Precondition: every vehicle's completed-path variable has Min() != 0.
func (c *DelayConstraint) PropagateAllPaths() {
	if !c.allPathsCompleted() {
		panicInvariant("PropagateAllPaths", "called while a vehicle's path is still incomplete")
	}
	c.tracker.UpdateAllPaths()
	for v := range c.completedPaths {
		c.postPathConstraints(v)
	}
}

// postPathConstraints invokes the hook for every visit node on vehicle's
// chain, in vehicle-traversal order. Per the package's ordering
// guarantees, the hook's observable effect must be order-independent.
func (c *DelayConstraint) postPathConstraints(vehicle int) {
	for _, n := range c.tracker.VisitNodesOnPath(vehicle) {
		c.hook.PostNodeConstraints(n)
	}
}

func (c *DelayConstraint) allPathsCompleted() bool {
	for _, v := range c.completedPaths {
		if v.Min() == 0 {
			return false
		}
	}
	return true
}

func (c *DelayConstraint) requirePosted(op string) {
	if c.state != statePosted {
		panicInvariant(op, "called before Post")
	}
}

// Fail delegates to the routing model's search-abort hook. It is normal CP
// backtracking, not an error: it must only be called from within a
// propagation cycle.
func (c *DelayConstraint) Fail() {
	c.model.Fail()
}
