package decision

import (
	"sort"
	"strings"
)

// StageSelectionRule guides the stage-selection phase. It does not pick
// content for the user: when the user's last message names an
// already-completed content area it flags the request for the external
// decision-maker instead of forcing a trigger, and it forces the
// finish-all-content trigger once no content stage remains selectable.
type StageSelectionRule struct{}

// NewStageSelectionRule builds the stage-selection rule.
func NewStageSelectionRule() *StageSelectionRule {
	return &StageSelectionRule{}
}

func (r *StageSelectionRule) Name() string  { return "stage_selection_rule" }
func (r *StageSelectionRule) Priority() int { return PriorityStageSelection }

func (r *StageSelectionRule) Applies(ctx *Context) bool {
	return ctx.SelectionStage
}

func (r *StageSelectionRule) Evaluate(ctx *Context) (string, bool) {
	// A request for exhausted content is handed to the external
	// decision-maker with a flag, never silently re-entered.
	if requested := r.detectUnavailableStageRequest(ctx); requested != "" {
		if ctx.Eval != nil {
			ctx.Eval.UnavailableStageRequested = requested
		}
		return "", false
	}

	finish := ctx.FinishAllTrigger

	// Every content stage completed: force offboarding.
	if ctx.AllStagesCompleted && ctx.HasTrigger(finish) {
		return finish, true
	}

	// No content-stage transition remains available: only offboarding is
	// left.
	if len(ctx.CompletedStages) > 0 && ctx.HasTrigger(finish) {
		for _, t := range ctx.AvailableTransitions {
			if strings.HasPrefix(t.Trigger, ctx.ContentTriggerPrefix) {
				return "", false
			}
		}
		return finish, true
	}

	return "", false
}

func (r *StageSelectionRule) Reason(ctx *Context) string {
	return "stage selection rule: guiding stage choice based on completion status"
}

// detectUnavailableStageRequest matches the user's last message against the
// configured per-stage keyword lists, returning the first completed stage
// the user appears to be asking for.
func (r *StageSelectionRule) detectUnavailableStageRequest(ctx *Context) string {
	msg := strings.ToLower(ctx.LastUserMessage)
	if msg == "" {
		return ""
	}
	stages := make([]string, 0, len(ctx.StageKeywords))
	for stage := range ctx.StageKeywords {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		if !ctx.StageCompleted(stage) {
			continue
		}
		for _, kw := range ctx.StageKeywords[stage] {
			if kw != "" && strings.Contains(msg, strings.ToLower(kw)) {
				return stage
			}
		}
	}
	return ""
}
