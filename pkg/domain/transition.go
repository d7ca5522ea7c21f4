package domain

import (
	"encoding/json"
	"fmt"
)

// Wildcard is the source specifier matching any state.
const Wildcard = "*"

// SourceSpec is the source side of a transition: a single state, a set of
// states, or the wildcard. Configuration files may express it as a string
// or a list, so it carries custom unmarshalling for both JSON and YAML.
type SourceSpec struct {
	Any    bool
	States []string
}

// Matches reports whether the spec covers the given state.
func (s SourceSpec) Matches(state string) bool {
	if s.Any {
		return true
	}
	for _, st := range s.States {
		if st == state {
			return true
		}
	}
	return false
}

// String renders the spec the way it appears in configuration.
func (s SourceSpec) String() string {
	if s.Any {
		return Wildcard
	}
	if len(s.States) == 1 {
		return s.States[0]
	}
	return fmt.Sprintf("%v", s.States)
}

func (s *SourceSpec) set(raw any) error {
	switch v := raw.(type) {
	case string:
		if v == Wildcard {
			s.Any = true
			return nil
		}
		s.States = []string{v}
		return nil
	case []any:
		states := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("transition source element must be a string, got %T", item)
			}
			states = append(states, str)
		}
		s.States = states
		return nil
	case []string:
		s.States = append([]string(nil), v...)
		return nil
	default:
		return fmt.Errorf("transition source must be a string or list, got %T", raw)
	}
}

// UnmarshalJSON accepts "*", "state" or ["a", "b"].
func (s *SourceSpec) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return s.set(raw)
}

// MarshalJSON mirrors the configuration shape.
func (s SourceSpec) MarshalJSON() ([]byte, error) {
	if s.Any {
		return json.Marshal(Wildcard)
	}
	if len(s.States) == 1 {
		return json.Marshal(s.States[0])
	}
	return json.Marshal(s.States)
}

// UnmarshalYAML accepts the same shapes as UnmarshalJSON.
func (s *SourceSpec) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return s.set(raw)
}

// Transition defines a named trigger moving the conversation from a source
// state (or set of states, or any state) to a destination state.
// Transitions are immutable once loaded.
type Transition struct {
	Trigger     string     `json:"trigger" yaml:"trigger"`
	Source      SourceSpec `json:"source" yaml:"source"`
	Dest        string     `json:"dest" yaml:"dest"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
}

// TransitionView is a row in the available-transitions query: the transition
// plus the guard-rail verdict for the current state and turn.
type TransitionView struct {
	Trigger     string `json:"trigger"`
	Source      string `json:"source"`
	Dest        string `json:"dest"`
	Description string `json:"description,omitempty"`
	Allowed     bool   `json:"allowed"`
	BlockReason string `json:"block_reason,omitempty"`
}

// StageTarget is the landing point of an inter-stage transition.
type StageTarget struct {
	Stage string `json:"stage" yaml:"stage"`
	State string `json:"state" yaml:"state"`
}
