// Package machine implements the stage/state orchestration core: one
// Machine instance drives one conversation through configured stages,
// evaluating guard rails and decision rules against the caller-owned turn
// counter. Instances are single-owner and require no internal locking.
package machine

import (
	"context"
	"log/slog"
	"time"

	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/config"
	"github.com/parleyhq/parley/pkg/decision"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/guardrail"
)

// Machine holds the current stage/state, turn baselines, derailment
// tracking, and the completed-stage set for a single conversation.
type Machine struct {
	doc  *config.Document
	snap *domain.Snapshot

	// Active stage artifacts, rebuilt on every stage switch.
	stage       *config.Stage
	guards      *guardrail.Chain
	progression *guardrail.ProgressionRule
	decisions   *decision.Engine

	ectx  *domain.EvalContext
	cache map[cacheKey][]domain.TransitionView

	hooks  domain.LifecycleHooks
	logger *slog.Logger
}

type cacheKey struct {
	stage string
	state string
	turn  int
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger attaches a logger for recovered inconsistencies and rejected
// transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithHooks attaches lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithSnapshot resumes the machine from a previously taken snapshot instead
// of the configured initial stage/state.
func WithSnapshot(snap *domain.Snapshot) Option {
	return func(m *Machine) {
		m.snap = snap.Clone()
	}
}

// New creates a machine for one conversation, starting at the configured
// initial stage's first listed state.
func New(doc *config.Document, sessionID string, opts ...Option) (*Machine, error) {
	m := &Machine{
		doc:    doc,
		snap:   domain.NewSnapshot(sessionID, doc.InitialStage, doc.InitialState()),
		ectx:   domain.NewEvalContext(),
		cache:  make(map[cacheKey][]domain.TransitionView),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.activateStage(m.snap.Stage); err != nil {
		return nil, err
	}
	return m, nil
}

// Snapshot returns a deep copy of the conversation's persistable state.
func (m *Machine) Snapshot() *domain.Snapshot {
	return m.snap.Clone()
}

// CurrentState returns the current state name.
func (m *Machine) CurrentState() string {
	return m.snap.State
}

// CurrentStage returns the active stage name.
func (m *Machine) CurrentStage() string {
	return m.snap.Stage
}

// CompletedStages returns a copy of the completed-stage set.
func (m *Machine) CompletedStages() []string {
	return append([]string(nil), m.snap.CompletedStages...)
}

// SetLastUserMessage supplies the most recent user utterance for keyword
// detection during stage selection. The core never interprets it further.
func (m *Machine) SetLastUserMessage(msg string) {
	m.ectx.LastUserMessage = msg
}

// activateStage swaps in the named stage's immutable configuration and
// rebuilds the guard-rail chain and decision engine from it.
func (m *Machine) activateStage(name string) error {
	stage, ok := m.doc.Stages[name]
	if !ok {
		return domain.ErrUnknownStage
	}
	m.stage = stage
	m.guards = guardrail.BuildChain(stage, m.doc)
	m.progression = guardrail.BuildProgression(stage)
	m.decisions = decision.FromStage(stage)
	m.invalidate()
	return nil
}

// invalidate drops the transition cache. Called on any state or stage
// mutation.
func (m *Machine) invalidate() {
	m.cache = make(map[cacheKey][]domain.TransitionView)
}

// seedEvalContext primes the shared evaluation context from the snapshot
// before a guard-rail pass. UnavailableStageRequested is reset here: the
// flag describes one evaluation pass, not the conversation, and must not
// survive into the next turn.
func (m *Machine) seedEvalContext() {
	m.ectx.StageStartTurn = m.snap.StageStartTurn
	m.ectx.DerailingStartTurn = m.snap.DerailingStartTurn
	m.ectx.UnavailableStageRequested = ""
}

// allContentCompleted reports whether every declared content stage is in
// the completed set.
func (m *Machine) allContentCompleted() bool {
	content := m.doc.ContentStages()
	if len(content) == 0 {
		return false
	}
	for _, stage := range content {
		if !m.snap.StageCompleted(stage) {
			return false
		}
	}
	return true
}

// remainingContentStages lists content stages not yet completed.
func (m *Machine) remainingContentStages() []string {
	var out []string
	for _, stage := range m.doc.ContentStages() {
		if !m.snap.StageCompleted(stage) {
			out = append(out, stage)
		}
	}
	return out
}

func (m *Machine) emitTransition(trigger, from, to string, turn int, forced bool, reason string) {
	if m.hooks.OnTransition == nil {
		return
	}
	m.hooks.OnTransition(context.Background(), &domain.TransitionEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTransition, SessionID: m.snap.SessionID},
		Stage:     m.snap.Stage,
		Trigger:   trigger,
		From:      from,
		To:        to,
		Turn:      turn,
		Forced:    forced,
		Reason:    reason,
	})
}

func (m *Machine) emitBlocked(trigger string, turn int, reason string) {
	if m.hooks.OnBlocked == nil {
		return
	}
	m.hooks.OnBlocked(context.Background(), &domain.BlockedEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventBlocked, SessionID: m.snap.SessionID},
		Stage:     m.snap.Stage,
		Trigger:   trigger,
		Turn:      turn,
		Reason:    reason,
	})
}

func (m *Machine) emitStageSwitch(fromStage, toStage, toState string, turn int, completed bool) {
	if m.hooks.OnStageSwitch == nil {
		return
	}
	m.hooks.OnStageSwitch(context.Background(), &domain.StageSwitchEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStageSwitch, SessionID: m.snap.SessionID},
		FromStage: fromStage,
		ToStage:   toStage,
		ToState:   toState,
		Turn:      turn,
		Completed: completed,
	})
}
