package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/parleyhq/parley/pkg/domain"
)

// Load reads a configuration document from disk. The format is chosen by
// file extension: .json for the reference format, .yaml/.yml otherwise.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return nil, fmt.Errorf("unsupported config format: %s", path)
	}
}

// ParseJSON parses the reference JSON configuration format.
func ParseJSON(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return finish(&doc)
}

// ParseYAML parses the YAML configuration format. The document is decoded
// into a loose map first and handed to FromMap, so both loose carriers
// share one set of decoding rules.
func ParseYAML(data []byte) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return FromMap(raw)
}

// FromMap decodes a configuration supplied as a loose map, as produced by
// the YAML loader or by callers that already hold decoded configuration.
func FromMap(raw map[string]any) (*Document, error) {
	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		DecodeHook:       sourceSpecHook,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode config map: %w", err)
	}
	return finish(&doc)
}

// sourceSpecHook lets mapstructure accept "*", "state" or ["a", "b"] for
// transition sources.
func sourceSpecHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(domain.SourceSpec{}) {
		return data, nil
	}
	var spec domain.SourceSpec
	switch v := data.(type) {
	case string:
		if v == domain.Wildcard {
			spec.Any = true
		} else {
			spec.States = []string{v}
		}
	case []any:
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("transition source element must be a string, got %T", item)
			}
			spec.States = append(spec.States, str)
		}
	case []string:
		spec.States = append([]string(nil), v...)
	default:
		return nil, fmt.Errorf("transition source must be a string or list, got %T", data)
	}
	return spec, nil
}

func finish(doc *Document) (*Document, error) {
	doc.applyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks the document for internal consistency. Transition
// destinations missing from their stage's state set are tolerated (the
// engine recovers via direct assignment) but flagged by Lint.
func (d *Document) Validate() error {
	if len(d.Stages) == 0 {
		return fmt.Errorf("config declares no stages")
	}
	if d.InitialStage == "" {
		return fmt.Errorf("config is missing initial_stage")
	}
	stage, ok := d.Stages[d.InitialStage]
	if !ok {
		return fmt.Errorf("initial_stage %q is not a declared stage", d.InitialStage)
	}
	if len(stage.States) == 0 {
		return fmt.Errorf("initial stage %q declares no states", d.InitialStage)
	}

	for name, st := range d.Stages {
		if len(st.States) == 0 {
			return fmt.Errorf("stage %q declares no states", name)
		}
	}

	for trigger, target := range d.InterStageTransitions {
		targetStage, ok := d.Stages[target.Stage]
		if !ok {
			return fmt.Errorf("inter-stage transition %q targets unknown stage %q", trigger, target.Stage)
		}
		if target.State != "" && !targetStage.HasState(target.State) {
			return fmt.Errorf("inter-stage transition %q targets unknown state %q in stage %q", trigger, target.State, target.Stage)
		}
	}

	seen := make(map[string]bool)
	for _, t := range d.Transitions {
		if t.Trigger == "" {
			return fmt.Errorf("transition to %q is missing a trigger name", t.Dest)
		}
		if t.Dest == "" {
			return fmt.Errorf("transition %q is missing a destination", t.Trigger)
		}
		seen[t.Trigger] = true
	}

	return nil
}

// Lint reports non-fatal configuration smells: transitions whose destination
// is absent from every stage's state set, closure states not declared as
// states, and unreferenced trigger descriptions.
func (d *Document) Lint() []string {
	var warnings []string

	stateKnown := func(state string) bool {
		for _, st := range d.Stages {
			if st.HasState(state) {
				return true
			}
		}
		return false
	}

	for _, t := range d.Transitions {
		if !stateKnown(t.Dest) {
			warnings = append(warnings, fmt.Sprintf("transition %q destination %q is not declared by any stage", t.Trigger, t.Dest))
		}
	}

	for name, st := range d.Stages {
		for _, cs := range st.ClosureStates {
			if !st.HasState(cs) {
				warnings = append(warnings, fmt.Sprintf("stage %q closure state %q is not in its state set", name, cs))
			}
		}
	}

	triggers := make(map[string]bool)
	for _, t := range d.Transitions {
		triggers[t.Trigger] = true
	}
	for trigger := range d.TriggerDescriptions {
		if !triggers[trigger] {
			warnings = append(warnings, fmt.Sprintf("trigger description for %q matches no transition", trigger))
		}
	}

	return warnings
}
