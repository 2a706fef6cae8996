package governance

import "github.com/driftlock/kernel/pkg/state"

// Conflict records that two jurisdictions' policies disagree on the same
// (state, action) pair: one would allow it while the other denies it, or
// vice versa. It is informational only — nothing in apply()
// consults it — intended for an operator auditing a fleet of jurisdiction
// bundles before deploying them, the declarative analogue of the reference
// platform's JurisdictionResolver conflict tracking.
type Conflict struct {
	JurisdictionA string
	JurisdictionB string
	DecisionA     string
	DecisionB     string
}

// DetectConflicts evaluates s/a under every policy in policies and returns
// one Conflict per pair whose composed decisions disagree on allow-vs-deny
// (Escalate is treated as siding with neither and never reported as a
// conflict with either Allow or Deny, since an escalation defers rather
// than contradicts). The slice is ordered by policy pair, not by
// evaluation time, so the result is itself reproducible given the same
// policy set and (s, a).
func DetectConflicts[S state.State, A state.Action](policies []Policy[S, A], s S, a A) []Conflict {
	type outcome struct {
		jurisdictionID string
		decision       string
	}

	outcomes := make([]outcome, len(policies))
	for i, p := range policies {
		trace := p.Evaluate(s, a, nil)
		outcomes[i] = outcome{jurisdictionID: p.JurisdictionID, decision: string(trace.ComposedDecision)}
	}

	var conflicts []Conflict
	for i := 0; i < len(outcomes); i++ {
		for j := i + 1; j < len(outcomes); j++ {
			oa, ob := outcomes[i], outcomes[j]
			if disagrees(oa.decision, ob.decision) {
				conflicts = append(conflicts, Conflict{
					JurisdictionA: oa.jurisdictionID,
					JurisdictionB: ob.jurisdictionID,
					DecisionA:     oa.decision,
					DecisionB:     ob.decision,
				})
			}
		}
	}
	return conflicts
}

func disagrees(a, b string) bool {
	if a == "escalate" || b == "escalate" {
		return false
	}
	return a != b
}
