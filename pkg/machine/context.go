package machine

import (
	"fmt"

	"github.com/parleyhq/parley/pkg/decision"
	"github.com/parleyhq/parley/pkg/domain"
)

// ContextForDecisionAgent assembles the read contract the external
// decision-maker depends on: current position, allowed and blocked
// transitions, any forced progression target, and stage progress.
func (m *Machine) ContextForDecisionAgent(turn int) domain.StateContext {
	views := m.AvailableTransitions(turn)

	var allowed, blocked []domain.TransitionView
	for _, v := range views {
		if v.Allowed {
			allowed = append(allowed, v)
		} else {
			blocked = append(blocked, v)
		}
	}

	forced := ""
	if m.progression != nil {
		if next, ok := m.progression.ShouldForceProgression(m.snap.State, turn); ok {
			forced = next
		}
	}

	return domain.StateContext{
		CurrentState:         m.snap.State,
		CurrentStage:         m.snap.Stage,
		StateDescription:     fmt.Sprintf("Current state: %s (Stage: %s)", m.snap.State, m.snap.Stage),
		TurnCounter:          turn,
		AvailableTransitions: allowed,
		BlockedTransitions:   blocked,
		ForcedTransition:     forced,
		StageProgress: domain.StageProgress{
			StageStartTurn:      m.snap.StageStartTurn,
			TurnsInStage:        turn - m.snap.StageStartTurn,
			MaxTurnsInStage:     m.stage.EffectiveMaxTurnsInStage(),
			CompletedStages:     m.CompletedStages(),
			AllContentCompleted: m.allContentCompleted(),
		},
		UnavailableStageRequested: m.ectx.UnavailableStageRequested,
	}
}

// EvaluateDecision runs the stage's decision rules against the full
// conversational context. A forced result must be executed by the caller
// before consulting any external decision-maker.
func (m *Machine) EvaluateDecision(turn int) domain.DecisionResult {
	views := m.AvailableTransitions(turn)
	var allowed []domain.TransitionView
	for _, v := range views {
		if v.Allowed {
			allowed = append(allowed, v)
		}
	}

	ctx := &decision.Context{
		CurrentState:       m.snap.State,
		CurrentStage:       m.snap.Stage,
		TurnCounter:        turn,
		StageStartTurn:     m.snap.StageStartTurn,
		StageRelativeTurns: turn - m.snap.StageStartTurn,

		AvailableTransitions: allowed,

		MaxTurnsInStage: m.stage.EffectiveMaxTurnsInStage(),
		TargetTurns:     m.stage.TargetTurns,
		ClosureStates:   m.stage.ClosureStates,
		GoldenPath:      m.stage.GoldenPath,
		DerailingStates: m.stage.DerailingStates,

		LastUserMessage: m.ectx.LastUserMessage,

		SelectionStage:         m.stage.SelectionStage,
		CompletedStages:        m.snap.CompletedStages,
		AvailableContentStages: m.remainingContentStages(),
		AllStagesCompleted:     m.allContentCompleted(),
		StageKeywords:          m.stage.StageKeywords,
		FinishAllTrigger:       m.doc.FinishAllTrigger,
		ContentTriggerPrefix:   m.doc.ContentTriggerPrefix,

		Eval: m.ectx,
	}

	return m.decisions.EvaluateDecision(ctx)
}

// AdvanceResult reports the outcome of one orchestration step.
type AdvanceResult struct {
	Executed    bool   `json:"executed"`
	Trigger     string `json:"trigger,omitempty"`
	Forced      bool   `json:"forced"`
	RuleName    string `json:"rule_name,omitempty"`
	Reason      string `json:"reason,omitempty"`
	BlockReason string `json:"block_reason,omitempty"`
	Stage       string `json:"stage"`
	State       string `json:"state"`
}

// Advance performs one orchestration step: decision rules are consulted
// first and a forced trigger executes immediately (it has already been
// vetted against business policy); otherwise the caller's requested trigger
// is checked against the guard rails. An empty requested trigger with no
// forced rule leaves the state unchanged.
func (m *Machine) Advance(turn int, requestedTrigger, reason string) AdvanceResult {
	result := AdvanceResult{}

	if forced := m.EvaluateDecision(turn); forced.Forced {
		err := m.executeTransition(forced.Trigger, forced.Reason, turn, true)
		result.Executed = err == nil
		result.Trigger = forced.Trigger
		result.Forced = true
		result.RuleName = forced.RuleName
		result.Reason = forced.Reason
		if err != nil {
			result.BlockReason = err.Error()
		}
	} else if requestedTrigger != "" {
		err := m.executeTransition(requestedTrigger, reason, turn, false)
		result.Executed = err == nil
		result.Trigger = requestedTrigger
		result.Reason = reason
		if err != nil {
			result.BlockReason = err.Error()
		}
	} else {
		result.Reason = "no trigger requested and no rule fired"
	}

	result.Stage = m.snap.Stage
	result.State = m.snap.State
	return result
}
