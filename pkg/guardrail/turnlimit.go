package guardrail

import (
	"fmt"

	"github.com/parleyhq/parley/pkg/domain"
)

// TurnLimitRule enforces turn-based limits. It prevents closure before
// minTurns and, once the stage's deadline is reached, denies every
// transition that is neither a closure state nor an exempt inter-stage
// destination. A stage counts turns either absolutely (conversation-wide
// counter) or relative to the turn the stage became active.
type TurnLimitRule struct {
	minTurns        int
	maxTurns        int
	closureStates   []string
	forceClosure    bool
	stageRelative   bool
	maxTurnsInStage int

	// absoluteDeadline is the conversation-wide turn past which only
	// closure and exempt destinations remain allowed (absolute mode only).
	absoluteDeadline int

	// exemptDests are destinations of whitelisted inter-stage transitions,
	// permitted even past the deadline so the conversation can still reach
	// a new stage instead of being stuck.
	exemptDests []string

	blockReason string
}

// TurnLimitParams configures a TurnLimitRule.
type TurnLimitParams struct {
	MinTurns         int
	MaxTurns         int
	ClosureStates    []string
	ForceClosure     bool
	StageRelative    bool
	MaxTurnsInStage  int
	AbsoluteDeadline int
	ExemptDests      []string
}

// NewTurnLimitRule builds a turn-limit rule from its parameters.
func NewTurnLimitRule(p TurnLimitParams) *TurnLimitRule {
	return &TurnLimitRule{
		minTurns:         p.MinTurns,
		maxTurns:         p.MaxTurns,
		closureStates:    p.ClosureStates,
		forceClosure:     p.ForceClosure,
		stageRelative:    p.StageRelative,
		maxTurnsInStage:  p.MaxTurnsInStage,
		absoluteDeadline: p.AbsoluteDeadline,
		exemptDests:      p.ExemptDests,
	}
}

// Check applies the turn policy for one candidate transition.
func (r *TurnLimitRule) Check(current, dest string, turn int, ectx *domain.EvalContext) bool {
	isClosure := contains(r.closureStates, dest)

	// Early closure prevention.
	if r.minTurns > 0 && turn < r.minTurns && isClosure {
		r.blockReason = fmt.Sprintf("turn limit rule: closure not allowed before turn %d", r.minTurns)
		return false
	}

	if r.stageRelative {
		turnsInStage := turn - ectx.StageStartTurn
		if r.maxTurnsInStage > 0 && turnsInStage > r.maxTurnsInStage {
			if isClosure || contains(r.exemptDests, dest) {
				return true
			}
			r.blockReason = fmt.Sprintf("turn limit rule: stage budget of %d turns exhausted, only closure allowed", r.maxTurnsInStage)
			return false
		}
		return true
	}

	// Absolute deadline enforcement: only closure and exempt inter-stage
	// destinations survive past the deadline.
	if r.absoluteDeadline > 0 && turn >= r.absoluteDeadline {
		if isClosure || contains(r.exemptDests, dest) {
			return true
		}
		r.blockReason = fmt.Sprintf("turn limit rule: absolute turn limit %d reached, only closure allowed", r.absoluteDeadline)
		return false
	}

	// Soft force-closure window between maxTurns and the absolute deadline.
	if r.forceClosure && r.maxTurns > 0 && turn >= r.maxTurns {
		if !isClosure && !contains(r.exemptDests, dest) {
			r.blockReason = fmt.Sprintf("turn limit rule: force closure after %d turns", r.maxTurns)
			return false
		}
	}

	return true
}

// Reason reports the most recent block cause.
func (r *TurnLimitRule) Reason() string {
	if r.blockReason != "" {
		return r.blockReason
	}
	return fmt.Sprintf("turn limit rule: min %d, max %d turns", r.minTurns, r.maxTurns)
}
