// Package parley is a guard-railed conversation orchestrator: stages and
// states are declared in configuration, guard rails veto transitions the
// business flow forbids, and priority-ordered decision rules can force a
// transition before any external decision-maker is consulted.
package parley

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/pkg/adapters/memory"
	"github.com/parleyhq/parley/pkg/config"
	"github.com/parleyhq/parley/pkg/domain"
	"github.com/parleyhq/parley/pkg/machine"
	"github.com/parleyhq/parley/pkg/ports"
	"github.com/parleyhq/parley/pkg/session"
)

// Version is the library version reported by the CLI and the HTTP API.
const Version = "0.1.0"

// Orchestrator is the high-level entry point for the Parley library.
// It binds a flow configuration to a snapshot store and provides a
// session-oriented API for consumers.
type Orchestrator struct {
	doc      *config.Document
	store    ports.SnapshotStore
	sessions *session.Manager
	locker   ports.DistributedLocker
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	Name     string
}

// Option defines a functional option for configuring the Orchestrator.
type Option func(*Orchestrator)

// WithLifecycleHooks registers observability hooks, invoked on every
// executed, blocked, and stage-switching transition.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = hooks
	}
}

// WithStore injects a snapshot store, bypassing the default in-memory one.
func WithStore(store ports.SnapshotStore) Option {
	return func(o *Orchestrator) {
		o.store = store
	}
}

// WithLocker enables distributed session locking for multi-replica
// deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(o *Orchestrator) {
		o.locker = locker
	}
}

// WithDocument injects an already-parsed configuration, bypassing file
// loading. configPath may then be empty.
func WithDocument(doc *config.Document) Option {
	return func(o *Orchestrator) {
		o.doc = doc
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// New initializes a new Orchestrator from the flow configuration at
// configPath (JSON or YAML). If WithDocument is provided, configPath can be
// empty and file loading is skipped.
func New(configPath string, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{}

	for _, opt := range opts {
		opt(o)
	}

	if o.doc == nil {
		if configPath == "" {
			return nil, fmt.Errorf("configPath is required when no document is provided")
		}
		doc, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow configuration: %w", err)
		}
		o.doc = doc
	}
	if configPath != "" {
		o.Name = filepath.Base(configPath)
	}

	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.Name != "" {
		o.logger = o.logger.With("flow", o.Name)
	}

	if o.store == nil {
		o.store = memory.NewStore()
	}

	managerOpts := []session.Option{session.WithLogger(o.logger)}
	if o.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(o.locker))
	}
	o.sessions = session.NewManager(o.store, managerOpts...)

	return o, nil
}

// Document returns the loaded flow configuration.
func (o *Orchestrator) Document() *config.Document {
	return o.doc
}

// StartSession creates a session at the configured initial stage and state,
// or returns the existing snapshot when the ID is already known. An empty
// sessionID gets a generated UUID.
func (o *Orchestrator) StartSession(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return o.sessions.LoadOrStart(ctx, sessionID, o.doc.InitialStage, o.doc.InitialState())
}

// Session returns the persisted snapshot for the given session.
func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	return o.sessions.Load(ctx, sessionID)
}

// Context assembles the decision-agent contract for the session at the
// given turn: position, allowed and blocked transitions, forced progression,
// and stage progress.
func (o *Orchestrator) Context(ctx context.Context, sessionID string, turn int, userMessage string) (domain.StateContext, error) {
	var sc domain.StateContext
	err := o.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m, err := o.machineFor(ctx, sessionID)
		if err != nil {
			return err
		}
		m.SetLastUserMessage(userMessage)
		sc = m.ContextForDecisionAgent(turn)
		return nil
	})
	return sc, err
}

// Transitions evaluates all transitions from the session's current state at
// the given turn, including blocked ones with their reasons.
func (o *Orchestrator) Transitions(ctx context.Context, sessionID string, turn int) ([]domain.TransitionView, error) {
	var views []domain.TransitionView
	err := o.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m, err := o.machineFor(ctx, sessionID)
		if err != nil {
			return err
		}
		views = m.AvailableTransitions(turn)
		return nil
	})
	return views, err
}

// Advance performs one orchestration step for the session and persists the
// resulting snapshot. Decision rules run first; a forced trigger executes
// immediately, otherwise the requested trigger is checked against the guard
// rails.
func (o *Orchestrator) Advance(ctx context.Context, sessionID string, turn int, trigger, reason, userMessage string) (machine.AdvanceResult, error) {
	var result machine.AdvanceResult
	err := o.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m, err := o.machineFor(ctx, sessionID)
		if err != nil {
			return err
		}
		m.SetLastUserMessage(userMessage)
		result = m.Advance(turn, trigger, reason)
		return o.sessions.Store().Save(ctx, sessionID, m.Snapshot())
	})
	return result, err
}

// EndSession removes the session from the store.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	return o.sessions.Delete(ctx, sessionID)
}

// ListSessions returns the IDs of all persisted sessions.
func (o *Orchestrator) ListSessions(ctx context.Context) ([]string, error) {
	return o.sessions.List(ctx)
}

// Sessions returns the underlying session manager.
func (o *Orchestrator) Sessions() *session.Manager {
	return o.sessions
}

// machineFor rehydrates a machine from the session's snapshot. Must be
// called while holding the session lock.
func (o *Orchestrator) machineFor(ctx context.Context, sessionID string) (*machine.Machine, error) {
	snap, err := o.sessions.Store().Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return machine.New(o.doc, sessionID,
		machine.WithSnapshot(snap),
		machine.WithLogger(o.logger),
		machine.WithHooks(o.hooks),
	)
}
