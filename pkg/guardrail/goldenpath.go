package guardrail

import (
	"fmt"

	"github.com/parleyhq/parley/pkg/domain"
)

// GoldenPathRule enforces the intended state sequence with controlled
// derailing. Entering a derailing state from a golden-path state starts a
// derailing timer in the shared evaluation context; once the timer exceeds
// the budget only transitions back into the golden path or into closure are
// permitted.
type GoldenPathRule struct {
	goldenPath       []string
	derailingStates  []string
	closureStates    []string
	maxDerailingTime int
	forceReturn      bool
	minClosureTurn   int
}

// GoldenPathParams configures a GoldenPathRule.
type GoldenPathParams struct {
	GoldenPath       []string
	DerailingStates  []string
	ClosureStates    []string
	MaxDerailingTime int
	ForceReturn      bool
	MinClosureTurn   int
}

// NewGoldenPathRule builds a golden-path rule from its parameters.
func NewGoldenPathRule(p GoldenPathParams) *GoldenPathRule {
	return &GoldenPathRule{
		goldenPath:       p.GoldenPath,
		derailingStates:  p.DerailingStates,
		closureStates:    p.ClosureStates,
		maxDerailingTime: p.MaxDerailingTime,
		forceReturn:      p.ForceReturn,
		minClosureTurn:   p.MinClosureTurn,
	}
}

// Check applies golden-path policy for one candidate transition.
func (r *GoldenPathRule) Check(current, dest string, turn int, ectx *domain.EvalContext) bool {
	// Closure overrides all golden-path constraints near the end.
	if contains(r.closureStates, dest) && turn >= r.minClosureTurn {
		return true
	}

	// Entering a sanctioned detour starts the derailing timer.
	if contains(r.goldenPath, current) && contains(r.derailingStates, dest) {
		ectx.DerailingStartTurn = turn
		return true
	}

	// Force return to the golden path once the detour budget is spent.
	if contains(r.derailingStates, current) && r.forceReturn {
		start := ectx.DerailingStartTurn
		if start < 0 {
			start = turn
		}
		if turn-start >= r.maxDerailingTime {
			if !contains(r.goldenPath, dest) && !contains(r.closureStates, dest) {
				return false
			}
		}
	}

	return true
}

// Reason describes the detour budget.
func (r *GoldenPathRule) Reason() string {
	return fmt.Sprintf("golden path rule: max %d turns derailing allowed", r.maxDerailingTime)
}
