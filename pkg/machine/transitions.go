package machine

import (
	"fmt"

	"github.com/parleyhq/parley/pkg/domain"
)

// AvailableTransitions filters the active stage's transition table to
// entries whose source matches the current state, evaluates every guard
// rail per transition, and blocks transitions into already-completed
// stages. Results are cached per (stage, state, turn) and invalidated on
// any state or stage mutation.
func (m *Machine) AvailableTransitions(turn int) []domain.TransitionView {
	key := cacheKey{stage: m.snap.Stage, state: m.snap.State, turn: turn}
	if views, ok := m.cache[key]; ok {
		return views
	}

	m.seedEvalContext()

	var views []domain.TransitionView
	for _, t := range m.doc.Transitions {
		if !t.Source.Matches(m.snap.State) {
			continue
		}

		view := domain.TransitionView{
			Trigger:     t.Trigger,
			Source:      t.Source.String(),
			Dest:        t.Dest,
			Description: m.doc.TriggerDescription(t.Trigger),
			Allowed:     true,
		}

		// Completed content stages are permanently excluded.
		if target, ok := m.doc.InterStageTransitions[t.Trigger]; ok && m.snap.StageCompleted(target.Stage) {
			view.Allowed = false
			view.BlockReason = fmt.Sprintf("stage %s already completed", target.Stage)
			views = append(views, view)
			continue
		}

		allowed, reason := m.guards.Evaluate(m.snap.State, t.Dest, turn, m.ectx)
		if !allowed {
			view.Allowed = false
			view.BlockReason = reason
		}
		views = append(views, view)
	}

	m.cache[key] = views
	return views
}

// ExecuteTransition executes the named trigger at the given turn. It
// returns false when the trigger is absent from the currently available
// transitions or present but blocked by a guard rail; the conversation
// state is then unchanged.
func (m *Machine) ExecuteTransition(trigger, reason string, turn int) bool {
	return m.executeTransition(trigger, reason, turn, false) == nil
}

// executeTransition is the single dispatcher behind all transition
// execution: an explicit trigger-to-record lookup, no dynamic dispatch.
func (m *Machine) executeTransition(trigger, reason string, turn int, forced bool) error {
	views := m.AvailableTransitions(turn)

	var match *domain.TransitionView
	for i := range views {
		if views[i].Trigger == trigger {
			match = &views[i]
			break
		}
	}

	if match == nil {
		m.logger.Warn("transition not found",
			"trigger", trigger,
			"state", m.snap.State,
			"turn", turn,
		)
		m.emitBlocked(trigger, turn, "not available from current state")
		return fmt.Errorf("%w: %s from %s", domain.ErrUnknownTrigger, trigger, m.snap.State)
	}

	if !match.Allowed {
		m.logger.Info("transition blocked",
			"trigger", trigger,
			"state", m.snap.State,
			"turn", turn,
			"reason", match.BlockReason,
		)
		m.emitBlocked(trigger, turn, match.BlockReason)
		return fmt.Errorf("%w: %s", domain.ErrTriggerBlocked, match.BlockReason)
	}

	// Inter-stage triggers swap the active stage instead of moving within
	// the current one.
	if target, ok := m.doc.InterStageTransitions[trigger]; ok {
		return m.switchStage(trigger, target, turn, forced)
	}

	from := m.snap.State
	if !m.stage.HasState(match.Dest) {
		// Configuration inconsistency: the transition was declared but its
		// destination is absent from the stage's state list. Recover by
		// assigning the state directly rather than failing the turn.
		m.logger.Warn("transition destination missing from stage, assigning directly",
			"trigger", trigger,
			"dest", match.Dest,
			"stage", m.snap.Stage,
		)
	}
	m.assignState(match.Dest, turn)

	m.logger.Debug("transition executed",
		"trigger", trigger,
		"from", from,
		"to", m.snap.State,
		"turn", turn,
		"reason", reason,
	)
	m.emitTransition(trigger, from, m.snap.State, turn, forced, reason)
	return nil
}

// assignState moves the machine to the given state and updates derailment
// tracking and history. The transition cache is invalidated.
func (m *Machine) assignState(dest string, turn int) {
	from := m.snap.State
	m.snap.State = dest
	m.snap.Turn = turn
	m.snap.History = append(m.snap.History, dest)

	switch {
	case contains(m.stage.GoldenPath, from) && contains(m.stage.DerailingStates, dest):
		m.snap.DerailingStartTurn = turn
	case contains(m.stage.GoldenPath, dest) || m.stage.IsClosureState(dest):
		m.snap.DerailingStartTurn = -1
	}

	m.invalidate()
}

// switchStage replaces the active stage. The previous stage is marked
// completed when it is a content stage; StageStartTurn resets to the
// switching turn and the guard rails are rebuilt from the new stage's
// configuration. On an unknown target stage the state remains unchanged and
// the failure is reported to the caller.
func (m *Machine) switchStage(trigger string, target domain.StageTarget, turn int, forced bool) error {
	next, ok := m.doc.Stages[target.Stage]
	if !ok {
		m.logger.Error("stage switch failed: unknown stage",
			"trigger", trigger,
			"target", target.Stage,
		)
		m.emitBlocked(trigger, turn, fmt.Sprintf("unknown stage %s", target.Stage))
		return fmt.Errorf("%w: %s", domain.ErrUnknownStage, target.Stage)
	}

	fromStage := m.snap.Stage
	fromState := m.snap.State

	completed := false
	if prev, ok := m.doc.Stages[fromStage]; ok && prev.ContentStage {
		m.snap.MarkStageCompleted(fromStage)
		completed = true
	}

	state := target.State
	if state == "" {
		state = next.States[0]
	}

	m.snap.Stage = target.Stage
	m.snap.State = state
	m.snap.Turn = turn
	m.snap.StageStartTurn = turn
	m.snap.DerailingStartTurn = -1
	m.snap.History = append(m.snap.History, state)

	if err := m.activateStage(target.Stage); err != nil {
		return err
	}

	m.logger.Info("stage switched",
		"trigger", trigger,
		"from_stage", fromStage,
		"to_stage", target.Stage,
		"to_state", state,
		"turn", turn,
		"completed_previous", completed,
	)
	m.emitTransition(trigger, fromState, state, turn, forced, "inter-stage transition")
	m.emitStageSwitch(fromStage, target.Stage, state, turn, completed)
	return nil
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
