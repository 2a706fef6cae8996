// Package law defines the pure predicate contract (C4) that the composition
// engine (pkg/compose) combines into a single decision. A Law inspects a
// proposed (state, action) pair and returns a verdict; it never mutates
// anything and never consults a clock, identifier generator, or random
// source directly — any such input must already be folded into the state
// or action it receives.
//
// The verdict shape and decision enum mirror the reference platform's
// policy-decision-point design (pkg/governance/pdp.go: Decision, DecisionTrace),
// narrowed from that PDP's request/response shape to a single predicate call.
package law

import "github.com/driftlock/kernel/pkg/state"

// Decision is the four-valued outcome a single Law can reach.
type Decision string

const (
	// Allow permits the action to proceed as far as this Law is concerned.
	Allow Decision = "allow"
	// Deny blocks the action. Under the DenyWins composition rule a single
	// Deny is final regardless of what other Laws say.
	Deny Decision = "deny"
	// Escalate defers the decision to a human or higher-authority process
	// rather than resolving it automatically.
	Escalate Decision = "escalate"
	// Abstain means the Law has no opinion on this (state, action) pair and
	// should not count toward either an Allow or a Deny tally.
	Abstain Decision = "abstain"
)

// Verdict is the outcome of one Law evaluating one (state, action) pair.
type Verdict struct {
	LawID    string   `json:"lawId"`
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}

// Law is a pure predicate over (state, action). ID must be stable: the same
// Law value must report the same ID across every call, since compositions
// and audit traces key verdicts by it.
type Law[S state.State, A state.Action] interface {
	ID() string
	Evaluate(s S, a A) Verdict
}

// Func adapts a plain function plus a fixed id into a Law, the same
// type-erased-closure idiom used by reducer.Func: any predicate, however
// it's built, can be stored and invoked through one interface value.
type Func[S state.State, A state.Action] struct {
	LawID string
	Eval  func(s S, a A) Verdict
}

// ID implements Law.
func (f Func[S, A]) ID() string { return f.LawID }

// Evaluate implements Law.
func (f Func[S, A]) Evaluate(s S, a A) Verdict { return f.Eval(s, a) }

// Allowed is a convenience constructor for an Allow verdict.
func Allowed(lawID, reason string) Verdict {
	return Verdict{LawID: lawID, Decision: Allow, Reason: reason}
}

// Denied is a convenience constructor for a Deny verdict.
func Denied(lawID, reason string) Verdict {
	return Verdict{LawID: lawID, Decision: Deny, Reason: reason}
}

// Escalated is a convenience constructor for an Escalate verdict.
func Escalated(lawID, reason string) Verdict {
	return Verdict{LawID: lawID, Decision: Escalate, Reason: reason}
}

// Abstained is a convenience constructor for an Abstain verdict.
func Abstained(lawID, reason string) Verdict {
	return Verdict{LawID: lawID, Decision: Abstain, Reason: reason}
}
