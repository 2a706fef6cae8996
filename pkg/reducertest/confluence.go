// Package reducertest provides reusable test helpers for any domain
// Reducer. AssertDeterministic mirrors the reference platform's
// TestReducerConfluence helper (pkg/kernel/reducer.go), which fed the same
// batch inputs through multiple orderings and checked permutation
// invariance; this kernel's reducer is a single (S,A) -> Result function
// rather than a multi-input batch reducer, so the analogous check is
// simpler: feeding the identical (S,A) pair through the reducer multiple
// times must yield bitwise-identical results. AssertRejectionPreservesState
// covers invariant 2 (a rejected action leaves state unchanged).
package reducertest

import (
	"fmt"

	"github.com/driftlock/kernel/pkg/reducer"
	"github.com/driftlock/kernel/pkg/state"
)

// AssertDeterministic calls r.Reduce(s, a) n times (n >= 2) and returns an
// error describing the first divergence, or nil if every call produced
// the same Applied flag, Rationale, and resulting state hash.
func AssertDeterministic[S state.State, A state.Action](r reducer.Reducer[S, A], s S, a A, n int) error {
	if n < 2 {
		n = 2
	}

	first := r.Reduce(s, a)
	firstHash := first.NewState.Hash()

	for i := 1; i < n; i++ {
		got := r.Reduce(s, a)
		if got.Applied != first.Applied {
			return fmt.Errorf("reducertest: run %d: Applied = %v, want %v", i, got.Applied, first.Applied)
		}
		if got.Rationale != first.Rationale {
			return fmt.Errorf("reducertest: run %d: Rationale = %q, want %q", i, got.Rationale, first.Rationale)
		}
		if got.NewState.Hash() != firstHash {
			return fmt.Errorf("reducertest: run %d: NewState.Hash() = %s, want %s", i, got.NewState.Hash(), firstHash)
		}
	}
	return nil
}

// AssertRejectionPreservesState checks invariant 2 directly: if the
// reducer rejects (s, a), the returned state must equal s by hash.
func AssertRejectionPreservesState[S state.State, A state.Action](r reducer.Reducer[S, A], s S, a A) error {
	got := r.Reduce(s, a)
	if got.Applied {
		return nil
	}
	if got.NewState.Hash() != s.Hash() {
		return fmt.Errorf("reducertest: rejected result changed state hash: got %s, want %s", got.NewState.Hash(), s.Hash())
	}
	return nil
}
