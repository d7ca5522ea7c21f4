package guardrail

import (
	"fmt"

	"github.com/parleyhq/parley/pkg/domain"
)

// AbsoluteClosureRule never denies anything. It exists purely to guarantee,
// via the chain's override pass, that a transition into a closure state is
// always allowed once the minimum turn is reached, regardless of any
// stricter rule in the chain.
type AbsoluteClosureRule struct {
	closureStates     []string
	minTurnForClosure int
}

// NewAbsoluteClosureRule builds the closure override for the given states.
func NewAbsoluteClosureRule(closureStates []string, minTurnForClosure int) *AbsoluteClosureRule {
	return &AbsoluteClosureRule{
		closureStates:     closureStates,
		minTurnForClosure: minTurnForClosure,
	}
}

// Overrides force-allows closure transitions once the minimum turn is
// reached, short-circuiting the rest of the chain.
func (r *AbsoluteClosureRule) Overrides(current, dest string, turn int, ectx *domain.EvalContext) bool {
	return contains(r.closureStates, dest) && turn >= r.minTurnForClosure
}

// Check never blocks.
func (r *AbsoluteClosureRule) Check(current, dest string, turn int, ectx *domain.EvalContext) bool {
	return true
}

// Reason describes the override.
func (r *AbsoluteClosureRule) Reason() string {
	return fmt.Sprintf("absolute closure rule: closure always allowed after turn %d", r.minTurnForClosure)
}
