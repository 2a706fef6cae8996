package law

import "testing"

type testState struct{ Gold int }

func (s testState) Hash() string {
	if s.Gold < 0 {
		return "negative"
	}
	return "non-negative"
}

type testAction struct {
	ID   string
	Kind string
}

func (a testAction) CorrelationID() string { return a.ID }
func (a testAction) Description() string   { return a.Kind }

func TestFuncLawEvaluate(t *testing.T) {
	l := Func[testState, testAction]{
		LawID: "budget",
		Eval: func(s testState, a testAction) Verdict {
			if s.Gold < 0 {
				return Denied("budget", "gold went negative")
			}
			return Allowed("budget", "within range")
		},
	}

	if got := l.ID(); got != "budget" {
		t.Fatalf("ID() = %q, want %q", got, "budget")
	}

	v := l.Evaluate(testState{Gold: 10}, testAction{ID: "c1", Kind: "findGold"})
	if v.Decision != Allow {
		t.Fatalf("Decision = %v, want %v", v.Decision, Allow)
	}

	v = l.Evaluate(testState{Gold: -1}, testAction{ID: "c1", Kind: "findGold"})
	if v.Decision != Deny {
		t.Fatalf("Decision = %v, want %v", v.Decision, Deny)
	}
}

func TestWrapPreservesIDAndBehavior(t *testing.T) {
	l := Func[testState, testAction]{
		LawID: "safety",
		Eval:  func(s testState, a testAction) Verdict { return Abstained("safety", "no opinion") },
	}
	wrapped := Wrap[testState, testAction](l)

	if wrapped.ID() != "safety" {
		t.Fatalf("wrapped ID = %q, want %q", wrapped.ID(), "safety")
	}
	v := wrapped.Evaluate(testState{}, testAction{})
	if v.Decision != Abstain {
		t.Fatalf("Decision = %v, want %v", v.Decision, Abstain)
	}
}

func TestVerdictConstructors(t *testing.T) {
	cases := []struct {
		v    Verdict
		want Decision
	}{
		{Allowed("a", "r"), Allow},
		{Denied("a", "r"), Deny},
		{Escalated("a", "r"), Escalate},
		{Abstained("a", "r"), Abstain},
	}
	for _, c := range cases {
		if c.v.Decision != c.want {
			t.Fatalf("Decision = %v, want %v", c.v.Decision, c.want)
		}
		if c.v.LawID != "a" || c.v.Reason != "r" {
			t.Fatalf("unexpected verdict fields: %+v", c.v)
		}
	}
}
