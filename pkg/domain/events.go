package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition  EventType = "transition"
	EventBlocked     EventType = "blocked"
	EventStageSwitch EventType = "stage_switch"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
}

// TransitionEvent records an executed transition.
type TransitionEvent struct {
	EventBase
	Stage   string `json:"stage"`
	Trigger string `json:"trigger"`
	From    string `json:"from"`
	To      string `json:"to"`
	Turn    int    `json:"turn"`
	Forced  bool   `json:"forced"`
	Reason  string `json:"reason,omitempty"`
}

// BlockedEvent records a transition vetoed by a guard rail or rejected as
// unknown.
type BlockedEvent struct {
	EventBase
	Stage   string `json:"stage"`
	Trigger string `json:"trigger"`
	Turn    int    `json:"turn"`
	Reason  string `json:"reason"`
}

// StageSwitchEvent records an inter-stage transition.
type StageSwitchEvent struct {
	EventBase
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
	ToState   string `json:"to_state"`
	Turn      int    `json:"turn"`
	Completed bool   `json:"completed"` // previous stage marked completed
}

// LifecycleHooks defines callbacks for engine observability. All hooks are
// optional and invoked synchronously from the owning conversation's
// goroutine.
type LifecycleHooks struct {
	OnTransition  func(context.Context, *TransitionEvent)
	OnBlocked     func(context.Context, *BlockedEvent)
	OnStageSwitch func(context.Context, *StageSwitchEvent)
}
