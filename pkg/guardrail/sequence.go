package guardrail

import (
	"fmt"
	"strings"

	"github.com/parleyhq/parley/pkg/domain"
)

// SequenceRule enforces mandatory sequence progression. States outside the
// sequence are unconstrained.
type SequenceRule struct {
	sequence      []string
	allowSkip     bool
	allowBackward bool
}

// NewSequenceRule builds a sequence rule over the ordered state list.
func NewSequenceRule(sequence []string, allowSkip, allowBackward bool) *SequenceRule {
	return &SequenceRule{
		sequence:      sequence,
		allowSkip:     allowSkip,
		allowBackward: allowBackward,
	}
}

// Check denies backward moves and skips within the sequence unless
// explicitly allowed.
func (r *SequenceRule) Check(current, dest string, turn int, ectx *domain.EvalContext) bool {
	currentIdx := indexOf(r.sequence, current)
	destIdx := indexOf(r.sequence, dest)
	if currentIdx < 0 || destIdx < 0 {
		return true
	}

	if destIdx < currentIdx && !r.allowBackward {
		return false
	}
	if destIdx > currentIdx+1 && !r.allowSkip {
		return false
	}
	return true
}

// Reason describes the mandated ordering.
func (r *SequenceRule) Reason() string {
	return fmt.Sprintf("sequence rule violation: must follow %s", strings.Join(r.sequence, " -> "))
}
