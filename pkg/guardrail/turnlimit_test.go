package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parleyhq/parley/pkg/domain"
)

func TestTurnLimitRuleMinTurns(t *testing.T) {
	rule := NewTurnLimitRule(TurnLimitParams{
		MinTurns:      5,
		ClosureStates: []string{"farewell"},
	})
	ectx := domain.NewEvalContext()

	assert.False(t, rule.Check("chat", "farewell", 3, ectx), "closure before min turns must be denied")
	assert.Contains(t, rule.Reason(), "not allowed before turn 5")
	assert.True(t, rule.Check("chat", "farewell", 5, ectx))
	assert.True(t, rule.Check("chat", "other", 3, ectx), "non-closure transitions are unaffected by min turns")
}

func TestTurnLimitRuleAbsoluteDeadline(t *testing.T) {
	rule := NewTurnLimitRule(TurnLimitParams{
		MaxTurns:         10,
		ClosureStates:    []string{"farewell"},
		AbsoluteDeadline: 12,
		ExemptDests:      []string{"selection_hub"},
	})
	ectx := domain.NewEvalContext()

	t.Run("before the deadline", func(t *testing.T) {
		assert.True(t, rule.Check("chat", "other", 11, ectx))
	})

	t.Run("at turn 12 only closure and exempt destinations remain", func(t *testing.T) {
		assert.False(t, rule.Check("chat", "other", 12, ectx))
		assert.Contains(t, rule.Reason(), "absolute turn limit 12")
		assert.True(t, rule.Check("chat", "farewell", 12, ectx))
		assert.True(t, rule.Check("chat", "selection_hub", 12, ectx), "whitelisted inter-stage destination survives the deadline")
	})

	t.Run("past the deadline", func(t *testing.T) {
		assert.False(t, rule.Check("chat", "other", 20, ectx))
		assert.True(t, rule.Check("chat", "farewell", 20, ectx))
	})
}

func TestTurnLimitRuleForceClosureWindow(t *testing.T) {
	rule := NewTurnLimitRule(TurnLimitParams{
		MaxTurns:         8,
		ClosureStates:    []string{"farewell"},
		ForceClosure:     true,
		AbsoluteDeadline: 12,
	})
	ectx := domain.NewEvalContext()

	assert.True(t, rule.Check("chat", "other", 7, ectx))
	assert.False(t, rule.Check("chat", "other", 8, ectx))
	assert.Contains(t, rule.Reason(), "force closure after 8 turns")
	assert.True(t, rule.Check("chat", "farewell", 8, ectx))
}

func TestTurnLimitRuleStageRelative(t *testing.T) {
	rule := NewTurnLimitRule(TurnLimitParams{
		ClosureStates:   []string{"pt_summary"},
		StageRelative:   true,
		MaxTurnsInStage: 8,
		ExemptDests:     []string{"selection_hub"},
	})

	ectx := domain.NewEvalContext()
	ectx.StageStartTurn = 20

	t.Run("budget counted from stage start", func(t *testing.T) {
		// Turn 27 is only 7 turns into the stage.
		assert.True(t, rule.Check("pt_discussion", "pt_tangent", 27, ectx))
	})

	t.Run("over budget only closure and exempt remain", func(t *testing.T) {
		assert.False(t, rule.Check("pt_discussion", "pt_tangent", 29, ectx))
		assert.Contains(t, rule.Reason(), "stage budget of 8 turns")
		assert.True(t, rule.Check("pt_discussion", "pt_summary", 29, ectx))
		assert.True(t, rule.Check("pt_discussion", "selection_hub", 29, ectx))
	})

	t.Run("high absolute turn alone does not trip a relative stage", func(t *testing.T) {
		ectx := domain.NewEvalContext()
		ectx.StageStartTurn = 95
		assert.True(t, rule.Check("pt_intro", "pt_discussion", 100, ectx))
	})
}
