// Package config defines the structured configuration document that drives
// the Parley engine: stages, transition tables, guard-rail settings, and
// decision rules. Loading and validation live here; the engine itself never
// touches the filesystem.
package config

import (
	"fmt"

	"github.com/parleyhq/parley/pkg/domain"
)

// Defaults applied when a stage omits the corresponding setting.
const (
	// DefaultAbsoluteDeadline is the absolute turn at which only closure
	// (and whitelisted inter-stage) transitions remain allowed.
	DefaultAbsoluteDeadline = 12

	// DefaultMinTurnForClosure is the turn from which closure transitions
	// are unconditionally allowed.
	DefaultMinTurnForClosure = 10

	// DefaultMaxDerailingTime bounds how long a conversation may dwell in a
	// derailing state before being pulled back to the golden path.
	DefaultMaxDerailingTime = 3

	// DefaultTurnsPerState paces forced progression along a mandatory
	// sequence.
	DefaultTurnsPerState = 2

	// DefaultMaxTurnsInStage bounds stage-relative dwelling when a stage
	// declares relative turn counting without an explicit limit.
	DefaultMaxTurnsInStage = 15

	// DefaultFinishAllTrigger ends the conversation once every content
	// stage is exhausted.
	DefaultFinishAllTrigger = "finish_all_content"

	// DefaultContentTriggerPrefix marks triggers that enter a content stage
	// during stage selection.
	DefaultContentTriggerPrefix = "choose_"
)

// GuardRails holds the per-stage guard-rail switches.
type GuardRails struct {
	AllowSequenceSkip         bool `json:"allow_sequence_skip" yaml:"allow_sequence_skip" mapstructure:"allow_sequence_skip"`
	AllowBackward             bool `json:"allow_backward" yaml:"allow_backward" mapstructure:"allow_backward"`
	ForceClosureAfterMaxTurns bool `json:"force_closure_after_max_turns" yaml:"force_closure_after_max_turns" mapstructure:"force_closure_after_max_turns"`
	MaxDerailingTime          int  `json:"max_derailing_time" yaml:"max_derailing_time" mapstructure:"max_derailing_time"`
	ForceGoldenPathReturn     bool `json:"force_golden_path_return" yaml:"force_golden_path_return" mapstructure:"force_golden_path_return"`

	// AbsoluteDeadline and MinTurnForClosure override the engine defaults
	// when non-zero.
	AbsoluteDeadline  int `json:"absolute_deadline,omitempty" yaml:"absolute_deadline,omitempty" mapstructure:"absolute_deadline"`
	MinTurnForClosure int `json:"min_turn_for_closure,omitempty" yaml:"min_turn_for_closure,omitempty" mapstructure:"min_turn_for_closure"`
}

// ClosureConditions gates a forced-closure decision rule.
type ClosureConditions struct {
	Stages            []string `json:"stages,omitempty" yaml:"stages,omitempty" mapstructure:"stages"`
	States            []string `json:"states,omitempty" yaml:"states,omitempty" mapstructure:"states"`
	AbsoluteTurnLimit int      `json:"absolute_turn_limit,omitempty" yaml:"absolute_turn_limit,omitempty" mapstructure:"absolute_turn_limit"`
	StageTurnLimit    int      `json:"stage_turn_limit,omitempty" yaml:"stage_turn_limit,omitempty" mapstructure:"stage_turn_limit"`
	MaxTurnsRatio     float64  `json:"max_turns_ratio,omitempty" yaml:"max_turns_ratio,omitempty" mapstructure:"max_turns_ratio"`
}

// ClosureRule forces a closure trigger once a turn threshold is crossed.
type ClosureRule struct {
	Trigger    string            `json:"trigger" yaml:"trigger" mapstructure:"trigger"`
	Conditions ClosureConditions `json:"conditions" yaml:"conditions" mapstructure:"conditions"`
}

// ProgressionRule forces movement out of a source state after a dwell time.
type ProgressionRule struct {
	SourceStates    []string `json:"source_states" yaml:"source_states" mapstructure:"source_states"`
	MinTurnsInState int      `json:"min_turns_in_state" yaml:"min_turns_in_state" mapstructure:"min_turns_in_state"`
	MaxTurnsInState int      `json:"max_turns_in_state,omitempty" yaml:"max_turns_in_state,omitempty" mapstructure:"max_turns_in_state"`
	TargetPatterns  []string `json:"target_patterns" yaml:"target_patterns" mapstructure:"target_patterns"`
}

// CyclingPreventionRule escapes a state the conversation keeps circling in.
type CyclingPreventionRule struct {
	CyclingStates   []string `json:"cycling_states" yaml:"cycling_states" mapstructure:"cycling_states"`
	MaxCyclingTurns int      `json:"max_cycling_turns" yaml:"max_cycling_turns" mapstructure:"max_cycling_turns"`
	EscapePatterns  []string `json:"escape_patterns" yaml:"escape_patterns" mapstructure:"escape_patterns"`
}

// DecisionRules groups the configured decision rules of one stage.
type DecisionRules struct {
	ClosureRules           []ClosureRule           `json:"closure_rules,omitempty" yaml:"closure_rules,omitempty" mapstructure:"closure_rules"`
	ProgressionRules       []ProgressionRule       `json:"progression_rules,omitempty" yaml:"progression_rules,omitempty" mapstructure:"progression_rules"`
	CyclingPreventionRules []CyclingPreventionRule `json:"cycling_prevention_rules,omitempty" yaml:"cycling_prevention_rules,omitempty" mapstructure:"cycling_prevention_rules"`
}

// ProgressionPacing paces forced progression along the mandatory sequence.
type ProgressionPacing struct {
	TurnsPerState int `json:"turns_per_state" yaml:"turns_per_state" mapstructure:"turns_per_state"`
}

// Stage describes one macro-phase of the conversation. Stages are defined
// once at configuration load and are immutable thereafter.
type Stage struct {
	States            []string            `json:"states" yaml:"states" mapstructure:"states"`
	ContentStage      bool                `json:"content_stage,omitempty" yaml:"content_stage,omitempty" mapstructure:"content_stage"`
	SelectionStage    bool                `json:"selection_stage,omitempty" yaml:"selection_stage,omitempty" mapstructure:"selection_stage"`
	MandatorySequence []string            `json:"mandatory_sequence,omitempty" yaml:"mandatory_sequence,omitempty" mapstructure:"mandatory_sequence"`
	GoldenPath        []string            `json:"golden_path,omitempty" yaml:"golden_path,omitempty" mapstructure:"golden_path"`
	DerailingStates   []string            `json:"derailing_states,omitempty" yaml:"derailing_states,omitempty" mapstructure:"derailing_states"`
	ClosureStates     []string            `json:"closure_states,omitempty" yaml:"closure_states,omitempty" mapstructure:"closure_states"`
	MinTurns          int                 `json:"min_turns,omitempty" yaml:"min_turns,omitempty" mapstructure:"min_turns"`
	MaxTurns          int                 `json:"max_turns,omitempty" yaml:"max_turns,omitempty" mapstructure:"max_turns"`
	MaxTurnsInStage   int                 `json:"max_turns_in_stage,omitempty" yaml:"max_turns_in_stage,omitempty" mapstructure:"max_turns_in_stage"`
	TargetTurns       int                 `json:"target_turns,omitempty" yaml:"target_turns,omitempty" mapstructure:"target_turns"`
	RelativeTurns     bool                `json:"relative_turns,omitempty" yaml:"relative_turns,omitempty" mapstructure:"relative_turns"`
	GuardRails        GuardRails          `json:"guard_rails,omitempty" yaml:"guard_rails,omitempty" mapstructure:"guard_rails"`
	ProgressionPacing ProgressionPacing   `json:"progression_rules,omitempty" yaml:"progression_rules,omitempty" mapstructure:"progression_rules"`
	DecisionRules     DecisionRules       `json:"decision_rules,omitempty" yaml:"decision_rules,omitempty" mapstructure:"decision_rules"`
	StageKeywords     map[string][]string `json:"stage_keywords,omitempty" yaml:"stage_keywords,omitempty" mapstructure:"stage_keywords"`

	// InterStageAllowList names triggers that remain permitted past the
	// absolute deadline so the conversation can still reach a new stage.
	InterStageAllowList []string `json:"inter_stage_allow_list,omitempty" yaml:"inter_stage_allow_list,omitempty" mapstructure:"inter_stage_allow_list"`
}

// HasState reports whether the stage declares the given state.
func (s *Stage) HasState(state string) bool {
	for _, st := range s.States {
		if st == state {
			return true
		}
	}
	return false
}

// IsClosureState reports whether the state is a sanctioned exit of the stage.
func (s *Stage) IsClosureState(state string) bool {
	for _, st := range s.ClosureStates {
		if st == state {
			return true
		}
	}
	return false
}

// EffectiveMaxTurnsInStage resolves the stage-relative turn budget,
// falling back to max_turns and then the engine default.
func (s *Stage) EffectiveMaxTurnsInStage() int {
	if s.MaxTurnsInStage > 0 {
		return s.MaxTurnsInStage
	}
	if s.MaxTurns > 0 {
		return s.MaxTurns
	}
	return DefaultMaxTurnsInStage
}

// Document is the top-level configuration.
type Document struct {
	InitialStage          string                       `json:"initial_stage" yaml:"initial_stage" mapstructure:"initial_stage"`
	Stages                map[string]*Stage            `json:"stages" yaml:"stages" mapstructure:"stages"`
	Transitions           []domain.Transition          `json:"transitions" yaml:"transitions" mapstructure:"transitions"`
	TriggerDescriptions   map[string]string            `json:"trigger_descriptions,omitempty" yaml:"trigger_descriptions,omitempty" mapstructure:"trigger_descriptions"`
	InterStageTransitions map[string]domain.StageTarget `json:"inter_stage_transitions,omitempty" yaml:"inter_stage_transitions,omitempty" mapstructure:"inter_stage_transitions"`
	FinishAllTrigger      string                       `json:"finish_all_trigger,omitempty" yaml:"finish_all_trigger,omitempty" mapstructure:"finish_all_trigger"`
	ContentTriggerPrefix  string                       `json:"content_trigger_prefix,omitempty" yaml:"content_trigger_prefix,omitempty" mapstructure:"content_trigger_prefix"`
}

// TriggerDescription resolves the human-readable description of a trigger.
func (d *Document) TriggerDescription(trigger string) string {
	if desc, ok := d.TriggerDescriptions[trigger]; ok {
		return desc
	}
	return fmt.Sprintf("Trigger: %s", trigger)
}

// InitialState resolves the first listed state of the initial stage.
func (d *Document) InitialState() string {
	stage, ok := d.Stages[d.InitialStage]
	if !ok || len(stage.States) == 0 {
		return ""
	}
	return stage.States[0]
}

// ContentStages lists stages declared as content stages, in no particular
// order.
func (d *Document) ContentStages() []string {
	var out []string
	for name, stage := range d.Stages {
		if stage.ContentStage {
			out = append(out, name)
		}
	}
	return out
}

// applyDefaults fills document-level fallbacks.
func (d *Document) applyDefaults() {
	if d.FinishAllTrigger == "" {
		d.FinishAllTrigger = DefaultFinishAllTrigger
	}
	if d.ContentTriggerPrefix == "" {
		d.ContentTriggerPrefix = DefaultContentTriggerPrefix
	}
	for _, stage := range d.Stages {
		if stage.GuardRails.MaxDerailingTime == 0 {
			stage.GuardRails.MaxDerailingTime = DefaultMaxDerailingTime
		}
		if stage.GuardRails.AbsoluteDeadline == 0 {
			stage.GuardRails.AbsoluteDeadline = DefaultAbsoluteDeadline
		}
		if stage.GuardRails.MinTurnForClosure == 0 {
			stage.GuardRails.MinTurnForClosure = DefaultMinTurnForClosure
		}
		if stage.ProgressionPacing.TurnsPerState == 0 {
			stage.ProgressionPacing.TurnsPerState = DefaultTurnsPerState
		}
	}
}
