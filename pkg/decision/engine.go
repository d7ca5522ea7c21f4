// Package decision implements the priority-ordered decision-rule engine
// consulted before any external decision-maker. A rule that fires forces a
// trigger regardless of what the external collaborator would have chosen;
// when no rule fires the caller falls back to that collaborator.
package decision

import (
	"sort"

	"github.com/parleyhq/parley/pkg/domain"
)

// Rule priorities; lower numbers evaluate first.
const (
	PriorityClosure        = 10
	PriorityCycling        = 15
	PriorityProgression    = 20
	PriorityStageSelection = 25
)

// Context is the full conversational context a decision rule may inspect.
// AvailableTransitions carries only guard-rail-allowed transitions.
type Context struct {
	CurrentState       string
	CurrentStage       string
	TurnCounter        int
	StageStartTurn     int
	StageRelativeTurns int

	AvailableTransitions []domain.TransitionView

	MaxTurnsInStage int
	TargetTurns     int
	ClosureStates   []string
	GoldenPath      []string
	DerailingStates []string

	LastUserMessage string

	SelectionStage         bool
	CompletedStages        []string
	AvailableContentStages []string
	AllStagesCompleted     bool
	StageKeywords          map[string][]string
	FinishAllTrigger       string
	ContentTriggerPrefix   string

	// Eval lets rules set flags visible to the external decision-maker.
	Eval *domain.EvalContext
}

// HasTrigger reports whether the named trigger is currently available.
func (c *Context) HasTrigger(trigger string) bool {
	for _, t := range c.AvailableTransitions {
		if t.Trigger == trigger {
			return true
		}
	}
	return false
}

// StageCompleted reports whether the named stage is already exhausted.
func (c *Context) StageCompleted(stage string) bool {
	for _, s := range c.CompletedStages {
		if s == stage {
			return true
		}
	}
	return false
}

// Rule is a single decision rule. Only the first applicable rule that
// returns a trigger wins.
type Rule interface {
	Name() string
	Priority() int
	Applies(ctx *Context) bool
	Evaluate(ctx *Context) (string, bool)
	Reason(ctx *Context) string
}

// Engine evaluates decision rules in ascending priority order.
type Engine struct {
	rules []Rule
}

// NewEngine wires the given rules into priority order. The sort is stable,
// so rules sharing a priority keep their configuration order.
func NewEngine(rules ...Rule) *Engine {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return &Engine{rules: sorted}
}

// Rules exposes the ordered rule list, primarily for introspection.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// EvaluateDecision iterates rules in priority order; the first rule that
// both applies and yields a trigger decides. Later rules are never
// consulted. A result with Forced=false signals that the external
// decision-maker must choose.
func (e *Engine) EvaluateDecision(ctx *Context) domain.DecisionResult {
	for _, r := range e.rules {
		if !r.Applies(ctx) {
			continue
		}
		trigger, ok := r.Evaluate(ctx)
		if !ok {
			continue
		}
		return domain.DecisionResult{
			Trigger:  trigger,
			Reason:   r.Reason(ctx),
			RuleName: r.Name(),
			Forced:   true,
		}
	}
	return domain.DecisionResult{
		Reason: "no forced rules triggered",
		Forced: false,
	}
}
