// Package guardrail implements the policy predicates that can veto a
// candidate transition: mandated sequences, turn deadlines, golden-path
// adherence, and the closure override. Rules are built per stage from
// configuration and rebuilt on every stage switch.
package guardrail

import (
	"github.com/parleyhq/parley/pkg/domain"
)

// Rule is a single guard-rail predicate. Check returns false to veto the
// candidate transition; Reason supplies the block reason reported to the
// caller.
type Rule interface {
	Check(current, dest string, turn int, ectx *domain.EvalContext) bool
	Reason() string
}

// Overrider is implemented by rules whose explicit allow short-circuits the
// rest of the chain. The absolute-closure rule uses this so that a stricter
// rule evaluated later can never take closure away.
type Overrider interface {
	Overrides(current, dest string, turn int, ectx *domain.EvalContext) bool
}

// Chain evaluates rules in a fixed priority order: override rules are
// consulted first, then the first denying rule short-circuits evaluation
// and supplies the block reason.
type Chain struct {
	rules []Rule
}

// NewChain builds a chain over the given rules, preserving order.
func NewChain(rules ...Rule) *Chain {
	return &Chain{rules: rules}
}

// Rules exposes the ordered rule list, primarily for introspection.
func (c *Chain) Rules() []Rule {
	return c.rules
}

// Evaluate runs the chain for one candidate transition.
func (c *Chain) Evaluate(current, dest string, turn int, ectx *domain.EvalContext) (bool, string) {
	for _, r := range c.rules {
		if o, ok := r.(Overrider); ok && o.Overrides(current, dest, turn, ectx) {
			return true, ""
		}
	}
	for _, r := range c.rules {
		if !r.Check(current, dest, turn, ectx) {
			return false, r.Reason()
		}
	}
	return true, ""
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func indexOf(seq []string, s string) int {
	for i, v := range seq {
		if v == s {
			return i
		}
	}
	return -1
}
