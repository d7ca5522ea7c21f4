package guardrail

import (
	"github.com/parleyhq/parley/pkg/config"
)

// BuildChain instantiates the guard-rail chain for one stage. The closure
// override is placed first so it is consulted before any stricter rule; the
// chain is discarded and rebuilt on every stage switch.
func BuildChain(stage *config.Stage, doc *config.Document) *Chain {
	var rules []Rule

	if len(stage.ClosureStates) > 0 {
		rules = append(rules, NewAbsoluteClosureRule(stage.ClosureStates, stage.GuardRails.MinTurnForClosure))
	}

	if len(stage.MandatorySequence) > 0 {
		rules = append(rules, NewSequenceRule(
			stage.MandatorySequence,
			stage.GuardRails.AllowSequenceSkip,
			stage.GuardRails.AllowBackward,
		))
	}

	if stage.MinTurns > 0 || stage.MaxTurns > 0 || stage.MaxTurnsInStage > 0 {
		rules = append(rules, NewTurnLimitRule(TurnLimitParams{
			MinTurns:         stage.MinTurns,
			MaxTurns:         stage.MaxTurns,
			ClosureStates:    stage.ClosureStates,
			ForceClosure:     stage.GuardRails.ForceClosureAfterMaxTurns,
			StageRelative:    stage.RelativeTurns,
			MaxTurnsInStage:  stage.EffectiveMaxTurnsInStage(),
			AbsoluteDeadline: stage.GuardRails.AbsoluteDeadline,
			ExemptDests:      exemptDestinations(stage, doc),
		}))
	}

	if len(stage.GoldenPath) > 0 && len(stage.DerailingStates) > 0 {
		rules = append(rules, NewGoldenPathRule(GoldenPathParams{
			GoldenPath:       stage.GoldenPath,
			DerailingStates:  stage.DerailingStates,
			ClosureStates:    stage.ClosureStates,
			MaxDerailingTime: stage.GuardRails.MaxDerailingTime,
			ForceReturn:      stage.GuardRails.ForceGoldenPathReturn,
			MinClosureTurn:   stage.GuardRails.MinTurnForClosure,
		}))
	}

	return NewChain(rules...)
}

// BuildProgression instantiates the non-vetoing progression rule for a
// stage, or nil when the stage has no mandatory sequence.
func BuildProgression(stage *config.Stage) *ProgressionRule {
	if len(stage.MandatorySequence) == 0 {
		return nil
	}
	return NewProgressionRule(stage.MandatorySequence, stage.ProgressionPacing.TurnsPerState)
}

// exemptDestinations resolves the stage's inter-stage allow-list to
// destination states. When the stage names no explicit allow-list, every
// configured inter-stage trigger is exempt so the conversation can still
// progress to a new stage past a deadline.
func exemptDestinations(stage *config.Stage, doc *config.Document) []string {
	allowed := make(map[string]bool)
	if len(stage.InterStageAllowList) > 0 {
		for _, trigger := range stage.InterStageAllowList {
			allowed[trigger] = true
		}
	} else {
		for trigger := range doc.InterStageTransitions {
			allowed[trigger] = true
		}
	}

	var dests []string
	seen := make(map[string]bool)
	for _, t := range doc.Transitions {
		if !allowed[t.Trigger] || seen[t.Dest] {
			continue
		}
		seen[t.Dest] = true
		dests = append(dests, t.Dest)
	}
	return dests
}
