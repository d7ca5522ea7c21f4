package guardrail

import "fmt"

// ProgressionRule does not veto transitions. It computes, for the machine's
// context queries, the next mandatory-sequence state the conversation should
// be forced into once it has dwelled long enough.
type ProgressionRule struct {
	sequence      []string
	turnsPerState int
}

// NewProgressionRule paces the sequence at turnsPerState turns per state.
func NewProgressionRule(sequence []string, turnsPerState int) *ProgressionRule {
	if turnsPerState <= 0 {
		turnsPerState = 1
	}
	return &ProgressionRule{sequence: sequence, turnsPerState: turnsPerState}
}

// ShouldForceProgression returns the next sequence element once the
// conversation has spent its budget on the current one.
func (r *ProgressionRule) ShouldForceProgression(current string, turn int) (string, bool) {
	idx := indexOf(r.sequence, current)
	if idx < 0 || idx >= len(r.sequence)-1 {
		return "", false
	}
	expected := (idx + 1) * r.turnsPerState
	if turn >= expected {
		return r.sequence[idx+1], true
	}
	return "", false
}

// Reason describes the pacing.
func (r *ProgressionRule) Reason() string {
	return fmt.Sprintf("progression rule: advance every %d turns", r.turnsPerState)
}
