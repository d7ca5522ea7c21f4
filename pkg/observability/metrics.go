package observability

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parleyhq/parley/pkg/domain"
)

// Metrics holds the Prometheus collectors for orchestrator lifecycle events.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	Blocked       *prometheus.CounterVec
	StageSwitches *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_transitions_total",
				Help: "Total number of executed transitions",
			},
			[]string{"stage", "trigger", "forced"},
		),
		Blocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_blocked_transitions_total",
				Help: "Total number of transitions rejected by guard rails",
			},
			[]string{"stage", "trigger"},
		),
		StageSwitches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_stage_switches_total",
				Help: "Total number of inter-stage transitions",
			},
			[]string{"from_stage", "to_stage"},
		),
	}
	reg.MustRegister(m.Transitions, m.Blocked, m.StageSwitches)
	return m
}

// Hooks builds lifecycle hooks that record metrics and log every event.
func (m *Metrics) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.Info("transition",
				"session_id", e.SessionID,
				"stage", e.Stage,
				"trigger", e.Trigger,
				"from", e.From,
				"to", e.To,
				"turn", e.Turn,
				"forced", e.Forced,
			)
			m.Transitions.WithLabelValues(e.Stage, e.Trigger, strconv.FormatBool(e.Forced)).Inc()
		},
		OnBlocked: func(ctx context.Context, e *domain.BlockedEvent) {
			logger.Info("transition_blocked",
				"session_id", e.SessionID,
				"stage", e.Stage,
				"trigger", e.Trigger,
				"turn", e.Turn,
				"reason", e.Reason,
			)
			m.Blocked.WithLabelValues(e.Stage, e.Trigger).Inc()
		},
		OnStageSwitch: func(ctx context.Context, e *domain.StageSwitchEvent) {
			logger.Info("stage_switch",
				"session_id", e.SessionID,
				"from_stage", e.FromStage,
				"to_stage", e.ToStage,
				"to_state", e.ToState,
				"turn", e.Turn,
				"completed_previous", e.Completed,
			)
			m.StageSwitches.WithLabelValues(e.FromStage, e.ToStage).Inc()
		},
	}
}
