package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parleyhq/parley/pkg/config"
	"github.com/parleyhq/parley/pkg/domain"
)

func availableViews(triggers map[string]string) []domain.TransitionView {
	var views []domain.TransitionView
	for trigger, dest := range triggers {
		views = append(views, domain.TransitionView{Trigger: trigger, Dest: dest, Allowed: true})
	}
	return views
}

func TestClosureRuleAbsoluteTurnLimit(t *testing.T) {
	rule := NewClosureRule(config.ClosureRule{
		Trigger:    "force_goodbye",
		Conditions: config.ClosureConditions{AbsoluteTurnLimit: 12},
	})

	ctx := &Context{
		TurnCounter:          11,
		AvailableTransitions: availableViews(map[string]string{"force_goodbye": "farewell"}),
	}

	_, fired := rule.Evaluate(ctx)
	assert.False(t, fired)

	ctx.TurnCounter = 12
	trigger, fired := rule.Evaluate(ctx)
	assert.True(t, fired)
	assert.Equal(t, "force_goodbye", trigger)
}

func TestClosureRuleStageTurnLimit(t *testing.T) {
	rule := NewClosureRule(config.ClosureRule{
		Trigger:    "summarize",
		Conditions: config.ClosureConditions{StageTurnLimit: 7},
	})

	ctx := &Context{
		TurnCounter:          40,
		StageRelativeTurns:   6,
		AvailableTransitions: availableViews(map[string]string{"summarize": "pt_summary"}),
	}

	_, fired := rule.Evaluate(ctx)
	assert.False(t, fired, "absolute turn must not trip a stage-relative limit")

	ctx.StageRelativeTurns = 7
	trigger, fired := rule.Evaluate(ctx)
	assert.True(t, fired)
	assert.Equal(t, "summarize", trigger)
}

func TestClosureRuleMaxTurnsRatio(t *testing.T) {
	rule := NewClosureRule(config.ClosureRule{
		Trigger:    "summarize",
		Conditions: config.ClosureConditions{MaxTurnsRatio: 0.8},
	})

	ctx := &Context{
		MaxTurnsInStage:      10,
		StageRelativeTurns:   7,
		AvailableTransitions: availableViews(map[string]string{"summarize": "pt_summary"}),
	}

	_, fired := rule.Evaluate(ctx)
	assert.False(t, fired)

	ctx.StageRelativeTurns = 8
	_, fired = rule.Evaluate(ctx)
	assert.True(t, fired)
}

func TestClosureRuleRequiresAvailableTrigger(t *testing.T) {
	rule := NewClosureRule(config.ClosureRule{
		Trigger:    "force_goodbye",
		Conditions: config.ClosureConditions{AbsoluteTurnLimit: 1},
	})

	ctx := &Context{TurnCounter: 50}
	_, fired := rule.Evaluate(ctx)
	assert.False(t, fired, "a blocked or absent trigger must never be forced")
}

func TestClosureRuleAppliesScopes(t *testing.T) {
	rule := NewClosureRule(config.ClosureRule{
		Trigger: "summarize",
		Conditions: config.ClosureConditions{
			Stages: []string{"content_politics_tech"},
			States: []string{"pt_discussion"},
		},
	})

	assert.True(t, rule.Applies(&Context{CurrentStage: "content_politics_tech", CurrentState: "pt_discussion"}))
	assert.False(t, rule.Applies(&Context{CurrentStage: "onboarding", CurrentState: "pt_discussion"}))
	assert.False(t, rule.Applies(&Context{CurrentStage: "content_politics_tech", CurrentState: "pt_intro"}))
}

func TestProgressionRuleDwellAndPatterns(t *testing.T) {
	rule := NewProgressionRule(config.ProgressionRule{
		SourceStates:    []string{"pt_intro"},
		MinTurnsInState: 2,
		TargetPatterns:  []string{"discussion"},
	})

	ctx := &Context{
		CurrentState:         "pt_intro",
		StageRelativeTurns:   1,
		AvailableTransitions: availableViews(map[string]string{"discuss_topic": "pt_discussion"}),
	}

	assert.True(t, rule.Applies(ctx))
	_, fired := rule.Evaluate(ctx)
	assert.False(t, fired)

	ctx.StageRelativeTurns = 2
	trigger, fired := rule.Evaluate(ctx)
	assert.True(t, fired)
	assert.Equal(t, "discuss_topic", trigger)
}

func TestProgressionRuleNoMatchingDestination(t *testing.T) {
	rule := NewProgressionRule(config.ProgressionRule{
		SourceStates:   []string{"pt_intro"},
		TargetPatterns: []string{"conclusion"},
	})

	ctx := &Context{
		CurrentState:         "pt_intro",
		StageRelativeTurns:   5,
		AvailableTransitions: availableViews(map[string]string{"discuss_topic": "pt_discussion"}),
	}

	_, fired := rule.Evaluate(ctx)
	assert.False(t, fired)
}

func TestCyclingPreventionRule(t *testing.T) {
	rule := NewCyclingPreventionRule(config.CyclingPreventionRule{
		CyclingStates:   []string{"pt_tangent"},
		MaxCyclingTurns: 4,
		EscapePatterns:  []string{"summary", "discussion"},
	})

	ctx := &Context{
		CurrentState:       "pt_tangent",
		StageRelativeTurns: 3,
		AvailableTransitions: []domain.TransitionView{
			{Trigger: "return_topic", Dest: "pt_discussion", Allowed: true},
			{Trigger: "summarize", Dest: "pt_summary", Allowed: true},
		},
	}

	assert.True(t, rule.Applies(ctx))
	_, fired := rule.Evaluate(ctx)
	assert.False(t, fired)

	// Escape patterns are tried in order: "summary" first.
	ctx.StageRelativeTurns = 4
	trigger, fired := rule.Evaluate(ctx)
	assert.True(t, fired)
	assert.Equal(t, "summarize", trigger)
}

func TestFromStageOrdersByPriority(t *testing.T) {
	stage := &config.Stage{
		DecisionRules: config.DecisionRules{
			ClosureRules: []config.ClosureRule{
				{Trigger: "summarize", Conditions: config.ClosureConditions{StageTurnLimit: 7}},
			},
			ProgressionRules: []config.ProgressionRule{
				{SourceStates: []string{"pt_intro"}, TargetPatterns: []string{"discussion"}},
			},
			CyclingPreventionRules: []config.CyclingPreventionRule{
				{CyclingStates: []string{"pt_tangent"}, EscapePatterns: []string{"summary"}},
			},
		},
	}

	engine := FromStage(stage)
	rules := engine.Rules()

	var names []string
	for _, r := range rules {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"closure_rule", "cycling_prevention", "progression_rule", "stage_selection_rule"}, names)
}
