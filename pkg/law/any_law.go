package law

import "github.com/driftlock/kernel/pkg/state"

// AnyLaw type-erases a Law[S,A] behind a closure so a GovernancePolicy
// (pkg/governance) can hold an ordered list of Laws built by different
// means (native Go predicates, CELLaw, WasmLaw) in a single slice, the
// same way reducer.Func and law.Func erase their own generic parameters
// behind a plain function value.
type AnyLaw[S state.State, A state.Action] struct {
	lawID    string
	evaluate func(s S, a A) Verdict
}

// Wrap adapts any Law[S,A] into an AnyLaw[S,A].
func Wrap[S state.State, A state.Action](l Law[S, A]) AnyLaw[S, A] {
	return AnyLaw[S, A]{lawID: l.ID(), evaluate: l.Evaluate}
}

// ID implements Law.
func (a AnyLaw[S, A]) ID() string { return a.lawID }

// Evaluate implements Law.
func (a AnyLaw[S, A]) Evaluate(s S, act A) Verdict { return a.evaluate(s, act) }
