package domain

// EvalContext is the typed, mutable context shared by all guard rails within
// one evaluation pass. It replaces an open-ended map: every field a rule may
// read or write across the pass is declared here.
type EvalContext struct {
	// StageStartTurn is the turn counter value when the active stage became
	// active; stage-relative rules subtract it from the current turn.
	StageStartTurn int

	// DerailingStartTurn is the turn at which the conversation entered a
	// derailing state, or -1 when on the golden path.
	DerailingStartTurn int

	// UnavailableStageRequested is set by the stage-selection decision rule
	// when the user's last message names an already-completed content stage.
	// The external decision-maker reads it to address the request instead of
	// silently re-entering exhausted content.
	UnavailableStageRequested string

	// LastUserMessage is the most recent user utterance, supplied by the
	// caller. The core never interprets it beyond keyword matching in the
	// stage-selection rule.
	LastUserMessage string
}

// NewEvalContext returns an EvalContext with no derailing in progress.
func NewEvalContext() *EvalContext {
	return &EvalContext{DerailingStartTurn: -1}
}

// StageProgress summarizes where the conversation stands inside the active
// stage.
type StageProgress struct {
	StageStartTurn      int      `json:"stage_start_turn"`
	TurnsInStage        int      `json:"turns_in_stage"`
	MaxTurnsInStage     int      `json:"max_turns_in_stage"`
	CompletedStages     []string `json:"completed_stages,omitempty"`
	AllContentCompleted bool     `json:"all_content_completed"`
}

// StateContext is the sole read contract the external decision-maker
// depends on.
type StateContext struct {
	CurrentState         string           `json:"current_state"`
	CurrentStage         string           `json:"current_stage"`
	StateDescription     string           `json:"state_description"`
	TurnCounter          int              `json:"turn_counter"`
	AvailableTransitions []TransitionView `json:"available_transitions"`
	BlockedTransitions   []TransitionView `json:"blocked_transitions,omitempty"`

	// ForcedTransition names the state the progression guard rail wants to
	// reach next, if any.
	ForcedTransition string `json:"forced_transition,omitempty"`

	StageProgress StageProgress `json:"stage_progress"`

	// UnavailableStageRequested surfaces the stage-selection flag from the
	// evaluation context.
	UnavailableStageRequested string `json:"unavailable_stage_requested,omitempty"`
}

// DecisionResult is the outcome of a decision-rule evaluation pass.
// Forced=false means no rule fired and an external decision-maker must
// choose the next trigger.
type DecisionResult struct {
	Trigger  string `json:"trigger,omitempty"`
	Reason   string `json:"reason"`
	RuleName string `json:"rule_name,omitempty"`
	Forced   bool   `json:"forced"`
}
