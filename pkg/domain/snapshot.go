package domain

// Snapshot captures the persistable runtime state of one conversation.
// It is everything the machine needs to resume a session: the collaborator
// owning the turn counter passes it in on every query, so the snapshot only
// records turn values at the moments they become baselines.
type Snapshot struct {
	// SessionID identifies the owning conversation.
	SessionID string `json:"session_id"`

	// Stage is the name of the active stage.
	Stage string `json:"stage"`

	// State is the current state within the active stage.
	State string `json:"state"`

	// Turn is the last turn counter value seen by the machine.
	Turn int `json:"turn"`

	// StageStartTurn is the turn counter value when the active stage became
	// active. Reset exactly once per stage switch.
	StageStartTurn int `json:"stage_start_turn"`

	// CompletedStages lists content stages the conversation has fully
	// exited. Grows monotonically, never shrinks.
	CompletedStages []string `json:"completed_stages,omitempty"`

	// DerailingStartTurn is the turn at which the conversation last entered
	// a derailing state, or -1 when not derailed.
	DerailingStartTurn int `json:"derailing_start_turn"`

	// History tracks the path of visited states for debugging.
	History []string `json:"history,omitempty"`
}

// NewSnapshot creates a clean snapshot starting at the given stage and state.
func NewSnapshot(sessionID, stage, state string) *Snapshot {
	return &Snapshot{
		SessionID:          sessionID,
		Stage:              stage,
		State:              state,
		DerailingStartTurn: -1,
		History:            []string{state},
	}
}

// StageCompleted reports whether the named stage is in the completed set.
func (s *Snapshot) StageCompleted(stage string) bool {
	for _, st := range s.CompletedStages {
		if st == stage {
			return true
		}
	}
	return false
}

// MarkStageCompleted adds the named stage to the completed set. Adding an
// already-completed stage is a no-op; the set never shrinks.
func (s *Snapshot) MarkStageCompleted(stage string) {
	if s.StageCompleted(stage) {
		return
	}
	s.CompletedStages = append(s.CompletedStages, stage)
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.CompletedStages = append([]string(nil), s.CompletedStages...)
	out.History = append([]string(nil), s.History...)
	return &out
}
