package decision

import (
	"github.com/parleyhq/parley/pkg/config"
)

// FromStage wires the stage's configured decision rules, plus the always
// present stage-selection rule, into a priority-ordered engine. Rebuilt on
// every stage switch.
func FromStage(stage *config.Stage) *Engine {
	var rules []Rule

	for _, cfg := range stage.DecisionRules.ClosureRules {
		rules = append(rules, NewClosureRule(cfg))
	}
	for _, cfg := range stage.DecisionRules.ProgressionRules {
		rules = append(rules, NewProgressionRule(cfg))
	}
	for _, cfg := range stage.DecisionRules.CyclingPreventionRules {
		rules = append(rules, NewCyclingPreventionRule(cfg))
	}
	rules = append(rules, NewStageSelectionRule())

	return NewEngine(rules...)
}
