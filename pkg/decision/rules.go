package decision

import (
	"fmt"
	"strings"

	"github.com/parleyhq/parley/pkg/config"
)

// ClosureRule forces a configured closure trigger once an absolute-turn,
// stage-relative-turn, or turns-as-fraction-of-max threshold is exceeded,
// but only if that closure trigger is currently available.
type ClosureRule struct {
	trigger    string
	conditions config.ClosureConditions
}

// NewClosureRule builds a closure rule from configuration.
func NewClosureRule(cfg config.ClosureRule) *ClosureRule {
	return &ClosureRule{trigger: cfg.Trigger, conditions: cfg.Conditions}
}

func (r *ClosureRule) Name() string  { return "closure_rule" }
func (r *ClosureRule) Priority() int { return PriorityClosure }

// Applies restricts the rule to its configured stages and states.
func (r *ClosureRule) Applies(ctx *Context) bool {
	if len(r.conditions.Stages) > 0 && !containsString(r.conditions.Stages, ctx.CurrentStage) {
		return false
	}
	if len(r.conditions.States) > 0 && !containsString(r.conditions.States, ctx.CurrentState) {
		return false
	}
	return true
}

// Evaluate checks each closure threshold in turn.
func (r *ClosureRule) Evaluate(ctx *Context) (string, bool) {
	if !ctx.HasTrigger(r.trigger) {
		return "", false
	}

	if limit := r.conditions.AbsoluteTurnLimit; limit > 0 && ctx.TurnCounter >= limit {
		return r.trigger, true
	}
	if limit := r.conditions.StageTurnLimit; limit > 0 && ctx.StageRelativeTurns >= limit {
		return r.trigger, true
	}
	if ratio := r.conditions.MaxTurnsRatio; ratio > 0 && ctx.MaxTurnsInStage > 0 {
		if float64(ctx.StageRelativeTurns) >= float64(ctx.MaxTurnsInStage)*ratio {
			return r.trigger, true
		}
	}
	return "", false
}

func (r *ClosureRule) Reason(ctx *Context) string {
	return fmt.Sprintf("closure rule triggered: %s", r.trigger)
}

// ProgressionRule forces movement out of a source state once a minimum
// dwell time elapses, seeking the first available transition whose
// destination matches a configured target substring.
type ProgressionRule struct {
	cfg config.ProgressionRule
}

// NewProgressionRule builds a progression rule from configuration.
func NewProgressionRule(cfg config.ProgressionRule) *ProgressionRule {
	return &ProgressionRule{cfg: cfg}
}

func (r *ProgressionRule) Name() string  { return "progression_rule" }
func (r *ProgressionRule) Priority() int { return PriorityProgression }

func (r *ProgressionRule) Applies(ctx *Context) bool {
	return containsString(r.cfg.SourceStates, ctx.CurrentState)
}

func (r *ProgressionRule) Evaluate(ctx *Context) (string, bool) {
	minTurns := r.cfg.MinTurnsInState
	if minTurns <= 0 {
		minTurns = 1
	}
	if ctx.StageRelativeTurns < minTurns {
		return "", false
	}
	for _, pattern := range r.cfg.TargetPatterns {
		for _, t := range ctx.AvailableTransitions {
			if strings.Contains(t.Dest, pattern) {
				return t.Trigger, true
			}
		}
	}
	return "", false
}

func (r *ProgressionRule) Reason(ctx *Context) string {
	return fmt.Sprintf("progression rule: moving from %s after %d turns", ctx.CurrentState, ctx.StageRelativeTurns)
}

// CyclingPreventionRule forces an escape transition once a cycling state has
// been occupied for more than a maximum number of turns.
type CyclingPreventionRule struct {
	cfg config.CyclingPreventionRule
}

// NewCyclingPreventionRule builds a cycling-prevention rule from
// configuration.
func NewCyclingPreventionRule(cfg config.CyclingPreventionRule) *CyclingPreventionRule {
	return &CyclingPreventionRule{cfg: cfg}
}

func (r *CyclingPreventionRule) Name() string  { return "cycling_prevention" }
func (r *CyclingPreventionRule) Priority() int { return PriorityCycling }

func (r *CyclingPreventionRule) Applies(ctx *Context) bool {
	return containsString(r.cfg.CyclingStates, ctx.CurrentState)
}

func (r *CyclingPreventionRule) Evaluate(ctx *Context) (string, bool) {
	maxTurns := r.cfg.MaxCyclingTurns
	if maxTurns <= 0 {
		maxTurns = 6
	}
	if ctx.StageRelativeTurns < maxTurns {
		return "", false
	}
	for _, pattern := range r.cfg.EscapePatterns {
		for _, t := range ctx.AvailableTransitions {
			if strings.Contains(t.Dest, pattern) {
				return t.Trigger, true
			}
		}
	}
	return "", false
}

func (r *CyclingPreventionRule) Reason(ctx *Context) string {
	return fmt.Sprintf("cycling prevention: escaping after %d turns", ctx.StageRelativeTurns)
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
