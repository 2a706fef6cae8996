// Package compose implements the composition engine (C5): a pure function
// that folds an ordered list of law.Verdict values into one composed
// Decision under a chosen CompositionRule, producing a Trace that records
// exactly what happened so an audit entry can carry the full reasoning.
//
// Grounded on the reference platform's policy-decision-point resolution
// shape (pkg/governance/pdp.go's Decision/DecisionTrace), generalized here
// from "one policy's verdict" to "many Laws' verdicts resolved by a
// quorum rule" — that multi-law resolution step doesn't exist in the
// reference PDP, so the algorithm body is new code written in its idiom.
package compose

import "github.com/driftlock/kernel/pkg/law"

// Rule is the tagged enum selecting how active (non-Abstain) verdicts
// resolve into one Decision.
type Rule string

const (
	// DenyWins: any Deny wins outright; otherwise any Escalate wins; else Allow.
	DenyWins Rule = "denyWins"
	// UnanimousAllow: every active verdict must be Allow; a single Deny among
	// them denies; anything else (a lone Escalate, or a mix with no Deny)
	// escalates.
	UnanimousAllow Rule = "unanimousAllow"
	// MajorityAllow: Allow wins if strictly more than half of active verdicts
	// are Allow; otherwise a Deny present denies; otherwise escalate. Ties
	// never resolve to Allow.
	MajorityAllow Rule = "majorityAllow"
)

// Trace is the full, ordered record of what each Law decided and what the
// composition rule produced. It is plain data: constructing one never
// performs I/O, and the same inputs always produce a bit-identical Trace.
type Trace struct {
	Verdicts         []law.Verdict `json:"verdicts"`
	Rule             Rule          `json:"rule"`
	ComposedDecision law.Decision  `json:"composedDecision"`
	JurisdictionID   string        `json:"jurisdictionId"`
	CorrelationID    *string       `json:"correlationId,omitempty"`
}

// Compose resolves verdicts (in their given order) under rule into one
// composedDecision, attaching jurisdictionID and the optional
// correlationID verbatim. It never validates correlationID against
// anything else — it is carried as an opaque value, per the kernel's
// decision to treat it as such rather than cross-check it against an
// action's own correlation id.
func Compose(verdicts []law.Verdict, rule Rule, jurisdictionID string, correlationID *string) Trace {
	trace := Trace{
		Verdicts:       append([]law.Verdict(nil), verdicts...),
		Rule:           rule,
		JurisdictionID: jurisdictionID,
		CorrelationID:  correlationID,
	}
	trace.ComposedDecision = resolve(trace.Verdicts, rule)
	return trace
}

func resolve(verdicts []law.Verdict, rule Rule) law.Decision {
	if len(verdicts) == 0 {
		return law.Allow
	}

	active := make([]law.Verdict, 0, len(verdicts))
	for _, v := range verdicts {
		if v.Decision != law.Abstain {
			active = append(active, v)
		}
	}
	if len(active) == 0 {
		return law.Allow
	}

	switch rule {
	case DenyWins:
		if containsDecision(active, law.Deny) {
			return law.Deny
		}
		if containsDecision(active, law.Escalate) {
			return law.Escalate
		}
		return law.Allow

	case UnanimousAllow:
		if allDecision(active, law.Allow) {
			return law.Allow
		}
		if containsDecision(active, law.Deny) {
			return law.Deny
		}
		return law.Escalate

	case MajorityAllow:
		allowCount := countDecision(active, law.Allow)
		if allowCount*2 > len(active) {
			return law.Allow
		}
		if containsDecision(active, law.Deny) {
			return law.Deny
		}
		return law.Escalate

	default:
		// An unrecognized rule is a configuration error, not a runtime
		// condition a pure function should guess its way through; fail
		// closed the same way a declarative Law does on a malformed result.
		return law.Deny
	}
}

func containsDecision(verdicts []law.Verdict, d law.Decision) bool {
	return countDecision(verdicts, d) > 0
}

func allDecision(verdicts []law.Verdict, d law.Decision) bool {
	for _, v := range verdicts {
		if v.Decision != d {
			return false
		}
	}
	return true
}

func countDecision(verdicts []law.Verdict, d law.Decision) int {
	n := 0
	for _, v := range verdicts {
		if v.Decision == d {
			n++
		}
	}
	return n
}
