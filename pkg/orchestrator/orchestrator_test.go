package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/driftlock/kernel/pkg/compose"
	"github.com/driftlock/kernel/pkg/determinism/detertest"
	"github.com/driftlock/kernel/pkg/governance"
	"github.com/driftlock/kernel/pkg/law"
	"github.com/driftlock/kernel/pkg/reducer"
)

type goldState struct{ Gold int }

func (s goldState) Hash() string {
	switch {
	case s.Gold < 0:
		return "neg"
	case s.Gold == 0:
		return "zero"
	default:
		return "pos"
	}
}

type findGold struct{ Amount int }

func (a findGold) CorrelationID() string { return "corr-1" }
func (a findGold) Description() string   { return "findGold" }

func goldReducer() reducer.Reducer[goldState, findGold] {
	return reducer.Func[goldState, findGold](func(s goldState, a findGold) reducer.Result[goldState] {
		if a.Amount < 0 {
			return reducer.Rejected(s, "amount must be non-negative")
		}
		return reducer.Accepted(goldState{Gold: s.Gold + a.Amount}, "gold found")
	})
}

func budgetLaw(limit int) law.AnyLaw[goldState, findGold] {
	return law.Wrap[goldState, findGold](law.Func[goldState, findGold]{
		LawID: "GoldBudgetLaw",
		Eval: func(s goldState, a findGold) law.Verdict {
			if s.Gold+a.Amount > limit {
				return law.Denied("GoldBudgetLaw", "exceeds budget")
			}
			return law.Allowed("GoldBudgetLaw", "within budget")
		},
	})
}

func newTestOrchestrator(t *testing.T, opts ...Option[goldState, findGold]) *Orchestrator[goldState, findGold] {
	t.Helper()
	clock := detertest.NewClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ids := detertest.NewMonotonicIDGenerator()
	o, err := New[goldState, findGold](goldState{Gold: 0}, goldReducer(), clock, ids, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestNewAppendsInitializationEvent(t *testing.T) {
	o := newTestOrchestrator(t)
	if o.AuditLog().Len() != 1 {
		t.Fatalf("log length = %d, want 1", o.AuditLog().Len())
	}
	head, ok := o.AuditLog().Head()
	if !ok || head.EventType.Kind != "initialization" {
		t.Fatalf("unexpected head event: %+v", head)
	}
}

func TestSubmitWithoutPolicyAccepts(t *testing.T) {
	o := newTestOrchestrator(t)
	result, err := o.Submit(context.Background(), findGold{Amount: 10}, "agent-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected reducer to accept")
	}
	if o.CurrentState().Gold != 10 {
		t.Fatalf("CurrentState().Gold = %d, want 10", o.CurrentState().Gold)
	}
	if o.AuditLog().Len() != 2 {
		t.Fatalf("log length = %d, want 2", o.AuditLog().Len())
	}
}

func TestSubmitGovernanceDeniedSkipsReducer(t *testing.T) {
	policy := governance.New[goldState, findGold]("overworld", compose.DenyWins, budgetLaw(5))
	o := newTestOrchestrator(t, WithPolicy[goldState, findGold](policy))

	result, err := o.Submit(context.Background(), findGold{Amount: 500}, "agent-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Applied {
		t.Fatal("expected governance denial, reducer must not have run")
	}
	if o.CurrentState().Gold != 0 {
		t.Fatalf("state must be unchanged, got Gold = %d", o.CurrentState().Gold)
	}

	denials := o.AuditLog().GovernanceDeniedActions()
	if len(denials) != 1 {
		t.Fatalf("len(GovernanceDeniedActions()) = %d, want 1", len(denials))
	}
}

func TestSubmitWithPolicyAllowsAndRunsReducer(t *testing.T) {
	policy := governance.New[goldState, findGold]("overworld", compose.DenyWins, budgetLaw(1000))
	o := newTestOrchestrator(t, WithPolicy[goldState, findGold](policy))

	result, err := o.Submit(context.Background(), findGold{Amount: 10}, "agent-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected reducer to accept")
	}
	if o.CurrentState().Gold != 10 {
		t.Fatalf("CurrentState().Gold = %d, want 10", o.CurrentState().Gold)
	}

	accepted := o.AuditLog().AcceptedActions()
	if len(accepted) != 1 {
		t.Fatalf("len(AcceptedActions()) = %d, want 1", len(accepted))
	}
}

// TestSubmitGovernanceAllowsButReducerRejects exercises the case where
// governance has no objection but the reducer itself refuses the
// transition on business-logic grounds: it is a distinct path from
// governance denial (a RejectedEvent carrying a trace, not a
// GovernanceDeniedEvent), and state must still be left unchanged.
func TestSubmitGovernanceAllowsButReducerRejects(t *testing.T) {
	policy := governance.New[goldState, findGold]("overworld", compose.DenyWins, budgetLaw(1000))
	o := newTestOrchestrator(t, WithPolicy[goldState, findGold](policy))

	result, err := o.Submit(context.Background(), findGold{Amount: -5}, "agent-1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if result.Applied {
		t.Fatal("expected the reducer to reject a negative amount")
	}
	if o.CurrentState().Gold != 0 {
		t.Fatalf("state must be unchanged, got Gold = %d", o.CurrentState().Gold)
	}

	if len(o.AuditLog().GovernanceDeniedActions()) != 0 {
		t.Fatal("governance allowed the action, it must not appear as a governance denial")
	}
	rejected := o.AuditLog().RejectedActions()
	if len(rejected) != 1 {
		t.Fatalf("len(RejectedActions()) = %d, want 1", len(rejected))
	}

	entries := o.AuditLog().Entries()
	last := entries[len(entries)-1]
	if last.GovernanceTrace == nil || last.GovernanceTrace.ComposedDecision != law.Allow {
		t.Fatalf("rejected event's governance trace = %+v, want a recorded Allow decision", last.GovernanceTrace)
	}
}

func TestReplayDefaultsAgentID(t *testing.T) {
	o := newTestOrchestrator(t)
	_, err := o.Replay(context.Background(), findGold{Amount: 1}, "")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	actions := o.AuditLog().Actions()
	if len(actions) != 1 || actions[0].AgentID != "REPLAY" {
		t.Fatalf("unexpected actions: %+v", actions)
	}
}

func TestStateStreamDeliversCurrentStateFirst(t *testing.T) {
	o := newTestOrchestrator(t)
	ch := o.StateStream()

	select {
	case s := <-ch:
		if s.Gold != 0 {
			t.Fatalf("first delivered state Gold = %d, want 0", s.Gold)
		}
	default:
		t.Fatal("expected initial state to be immediately available")
	}

	if _, err := o.Submit(context.Background(), findGold{Amount: 7}, "agent-1"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case s := <-ch:
		if s.Gold != 7 {
			t.Fatalf("post-transition state Gold = %d, want 7", s.Gold)
		}
	default:
		t.Fatal("expected post-transition state to be broadcast")
	}
}

func TestLogChainIsVerifiableAfterMultipleApplies(t *testing.T) {
	o := newTestOrchestrator(t)
	for i := 0; i < 5; i++ {
		if _, err := o.Submit(context.Background(), findGold{Amount: 1}, "agent-1"); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	vr := o.AuditLog().Verify()
	if !vr.IsValid {
		t.Fatalf("Verify() = %+v, want valid", vr)
	}
}
