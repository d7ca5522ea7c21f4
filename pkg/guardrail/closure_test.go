package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parleyhq/parley/pkg/domain"
)

func TestAbsoluteClosureRuleNeverBlocks(t *testing.T) {
	rule := NewAbsoluteClosureRule([]string{"farewell"}, 10)
	ectx := domain.NewEvalContext()

	assert.True(t, rule.Check("anywhere", "anything", 0, ectx))
	assert.True(t, rule.Check("anywhere", "farewell", 0, ectx))
}

func TestAbsoluteClosureOverride(t *testing.T) {
	rule := NewAbsoluteClosureRule([]string{"farewell"}, 10)
	ectx := domain.NewEvalContext()

	assert.False(t, rule.Overrides("chat", "farewell", 9, ectx))
	assert.True(t, rule.Overrides("chat", "farewell", 10, ectx))
	assert.False(t, rule.Overrides("chat", "other", 10, ectx))
}

// A denying rule for chain tests.
type denyAll struct{}

func (denyAll) Check(current, dest string, turn int, ectx *domain.EvalContext) bool { return false }
func (denyAll) Reason() string                                                      { return "deny all" }

func TestChainOverridePassShortCircuits(t *testing.T) {
	chain := NewChain(
		NewAbsoluteClosureRule([]string{"farewell"}, 10),
		denyAll{},
	)
	ectx := domain.NewEvalContext()

	// The stricter rule denies everything, but closure past the minimum turn
	// is force-allowed by the override pass.
	allowed, reason := chain.Evaluate("chat", "farewell", 10, ectx)
	assert.True(t, allowed)
	assert.Empty(t, reason)

	// Before the minimum turn the override does not apply.
	allowed, reason = chain.Evaluate("chat", "farewell", 9, ectx)
	assert.False(t, allowed)
	assert.Equal(t, "deny all", reason)
}

func TestChainFirstDenyWins(t *testing.T) {
	seq := NewSequenceRule([]string{"a", "b", "c"}, false, false)
	chain := NewChain(seq, denyAll{})
	ectx := domain.NewEvalContext()

	_, reason := chain.Evaluate("a", "c", 1, ectx)
	assert.Contains(t, reason, "sequence rule violation")
}

func TestEmptyChainAllows(t *testing.T) {
	chain := NewChain()
	allowed, reason := chain.Evaluate("a", "b", 1, domain.NewEvalContext())
	assert.True(t, allowed)
	assert.Empty(t, reason)
}
