package orchestrator

import "testing"

func TestStableProposalOrderSortsByAgentThenCorrelation(t *testing.T) {
	in := []Proposal[findGold]{
		{AgentID: "b", Action: findGold{Amount: 1}},
		{AgentID: "a", Action: findGold{Amount: 2}},
	}
	out := StableProposalOrder(in)
	if out[0].AgentID != "a" || out[1].AgentID != "b" {
		t.Fatalf("unexpected order: %+v", out)
	}
	if len(in) != 2 || in[0].AgentID != "b" {
		t.Fatal("StableProposalOrder must not mutate its input")
	}
}
