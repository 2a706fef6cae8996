package orchestrator

import (
	"sort"

	"github.com/driftlock/kernel/pkg/state"
)

// Proposal pairs an action with the agent proposing it, the shape
// StableProposalOrder sorts.
type Proposal[A state.Action] struct {
	AgentID string
	Action  A
}

// StableProposalOrder returns a copy of proposals sorted by (AgentID,
// Action.CorrelationID), breaking ties by original position. apply itself
// does no sorting of its own — the orchestrator's mutex already gives
// concurrent Submit calls a total order by arrival, which is sufficient
// for chain correctness. This helper exists for callers who fan in
// proposals from several parallel agents and want a reproducible
// replay order independent of goroutine scheduling; it is never called
// internally.
func StableProposalOrder[A state.Action](proposals []Proposal[A]) []Proposal[A] {
	out := make([]Proposal[A], len(proposals))
	copy(out, proposals)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AgentID != out[j].AgentID {
			return out[i].AgentID < out[j].AgentID
		}
		return out[i].Action.CorrelationID() < out[j].Action.CorrelationID()
	})
	return out
}
