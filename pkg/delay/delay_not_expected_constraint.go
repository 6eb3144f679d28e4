package delay

// DelayNotExpectedConstraint rejects any assignment in which some visit's
// mean scenario delay is positive: a carer is expected, on average across
// history, to be late.
type DelayNotExpectedConstraint struct {
	*DelayConstraint
	tracker  *DelayTracker
	failures *FailedIndexRepository
}

// NewDelayNotExpectedConstraint builds the constraint, wiring its hook back
// to itself. failures receives the blamed node (and sibling, if any)
// whenever the hook fails the branch.
func NewDelayNotExpectedConstraint(model RoutingModel, tracker *DelayTracker, failures *FailedIndexRepository) (*DelayNotExpectedConstraint, error) {
	c := &DelayNotExpectedConstraint{tracker: tracker, failures: failures}
	base, err := NewDelayConstraint(model, tracker, c)
	if err != nil {
		return nil, err
	}
	c.DelayConstraint = base
	return c, nil
}

// PostNodeConstraints fails the search if node's mean delay, averaged
// across scenarios, is positive.
func (c *DelayNotExpectedConstraint) PostNodeConstraints(node int) {
	if c.tracker.GetMeanDelay(node) <= 0 {
		return
	}
	c.failures.Emplace(int64(node))
	if sib := c.tracker.Sibling(node); sib != NoSibling {
		c.failures.Emplace(int64(sib))
	}
	c.Fail()
}
