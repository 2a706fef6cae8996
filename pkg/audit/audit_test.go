package audit

import (
	"testing"
	"time"

	"github.com/driftlock/kernel/pkg/compose"
	"github.com/driftlock/kernel/pkg/reducer"
	"github.com/driftlock/kernel/pkg/state"
)

type fixtureState struct{ Value int }

func (s fixtureState) Hash() string {
	if s.Value < 0 {
		return "neg"
	}
	if s.Value == 0 {
		return "zero"
	}
	return "pos"
}

type fixtureAction struct{ Delta int }

func (a fixtureAction) CorrelationID() string { return "c1" }
func (a fixtureAction) Description() string   { return "delta" }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestInitializationInvariants(t *testing.T) {
	e, err := NewInitializationEvent[fixtureAction]("id-1", epoch, "zero", "")
	if err != nil {
		t.Fatalf("NewInitializationEvent: %v", err)
	}
	if e.StateHashBefore != "" {
		t.Fatalf("StateHashBefore = %q, want empty", e.StateHashBefore)
	}
	if !e.Applied {
		t.Fatal("Initialization must have Applied = true")
	}
	if e.EntryHash == "" {
		t.Fatal("EntryHash must be computed")
	}
}

func TestGovernanceTraceAbsencePresenceChangesHash(t *testing.T) {
	withNil, err := NewAcceptedEvent[fixtureAction]("id-1", epoch, fixtureAction{Delta: 1}, "agent-1", "zero", "pos", "ok", "", nil)
	if err != nil {
		t.Fatalf("NewAcceptedEvent: %v", err)
	}
	trace := buildTrace()
	withTrace, err := NewAcceptedEvent[fixtureAction]("id-1", epoch, fixtureAction{Delta: 1}, "agent-1", "zero", "pos", "ok", "", &trace)
	if err != nil {
		t.Fatalf("NewAcceptedEvent: %v", err)
	}
	if withNil.EntryHash == withTrace.EntryHash {
		t.Fatal("presence/absence of governanceTrace must change entryHash")
	}
}

func buildTrace() compose.Trace {
	return compose.Compose(nil, compose.DenyWins, "j1", nil)
}

func TestLogAppendChaining(t *testing.T) {
	log := New[fixtureAction]()

	init, err := NewInitializationEvent[fixtureAction]("id-1", epoch, "zero", "")
	if err != nil {
		t.Fatalf("NewInitializationEvent: %v", err)
	}
	if err := log.Append(init); err != nil {
		t.Fatalf("Append: %v", err)
	}

	accepted, err := NewAcceptedEvent[fixtureAction]("id-2", epoch.Add(time.Second), fixtureAction{Delta: 1}, "agent-1", "zero", "pos", "applied", "", nil)
	if err != nil {
		t.Fatalf("NewAcceptedEvent: %v", err)
	}
	if err := log.Append(accepted); err != nil {
		t.Fatalf("Append: %v", err)
	}

	entries := log.Entries()
	if entries[1].PreviousEntryHash != entries[0].EntryHash {
		t.Fatal("second entry must chain onto the first entry's EntryHash")
	}

	vr := log.Verify()
	if !vr.IsValid {
		t.Fatalf("Verify() = %+v, want valid", vr)
	}
}

func TestAppendValidatingDetectsDiscontinuity(t *testing.T) {
	log := New[fixtureAction]()
	init, _ := NewInitializationEvent[fixtureAction]("id-1", epoch, "zero", "")
	if err := log.Append(init); err != nil {
		t.Fatalf("Append: %v", err)
	}

	bad, _ := NewAcceptedEvent[fixtureAction]("id-2", epoch, fixtureAction{Delta: 1}, "agent-1", "wrong-hash", "pos", "applied", "", nil)
	err := log.AppendValidating(bad)
	if err == nil {
		t.Fatal("expected ChainDiscontinuity error")
	}
	if _, ok := err.(*ChainDiscontinuity); !ok {
		t.Fatalf("expected *ChainDiscontinuity, got %T", err)
	}
	if log.Len() != 1 {
		t.Fatal("failed AppendValidating must not modify the log")
	}
}

func TestVerifyDetectsBrokenChain(t *testing.T) {
	log := New[fixtureAction]()
	init, _ := NewInitializationEvent[fixtureAction]("id-1", epoch, "zero", "")
	log.Append(init)

	tampered := log.Entries()[0]
	tampered.StateHashAfter = "tampered"
	log.entries[0] = tampered

	next, _ := NewAcceptedEvent[fixtureAction]("id-2", epoch, fixtureAction{Delta: 1}, "agent-1", "zero", "pos", "applied", "", nil)
	log.entries = append(log.entries, next)

	vr := log.Verify()
	if vr.IsValid {
		t.Fatal("expected Verify() to detect the tampered state hash")
	}
}

func TestVerifyReplay(t *testing.T) {
	r := reducer.Func[state.State, fixtureAction](func(s state.State, a fixtureAction) reducer.Result[state.State] {
		fs := s.(fixtureState)
		return reducer.Accepted[state.State](fixtureState{Value: fs.Value + a.Delta}, "delta applied")
	})

	log := New[fixtureAction]()
	init, _ := NewInitializationEvent[fixtureAction]("id-1", epoch, fixtureState{Value: 0}.Hash(), "")
	log.Append(init)

	accepted, _ := NewAcceptedEvent[fixtureAction](
		"id-2", epoch.Add(time.Second), fixtureAction{Delta: 1}, "agent-1",
		fixtureState{Value: 0}.Hash(), fixtureState{Value: 1}.Hash(), "delta applied", "", nil)
	log.Append(accepted)

	vr := log.VerifyReplay(fixtureState{Value: 0}, r)
	if !vr.IsValid {
		t.Fatalf("VerifyReplay() = %+v, want valid", vr)
	}
}

func TestQueryMethods(t *testing.T) {
	log := New[fixtureAction]()
	init, _ := NewInitializationEvent[fixtureAction]("id-1", epoch, "zero", "")
	log.Append(init)

	accepted, _ := NewAcceptedEvent[fixtureAction]("id-2", epoch, fixtureAction{Delta: 1}, "agent-1", "zero", "pos", "ok", "", nil)
	log.Append(accepted)

	rejected, _ := NewRejectedEvent[fixtureAction]("id-3", epoch, fixtureAction{Delta: -99}, "agent-2", "pos", "would go negative", "", nil)
	log.Append(rejected)

	trace := buildTrace()
	denied, _ := NewGovernanceDeniedEvent[fixtureAction]("id-4", epoch, fixtureAction{Delta: 5}, "agent-3", "pos", "", trace)
	log.Append(denied)

	if got := len(log.Actions()); got != 2 {
		t.Fatalf("len(Actions()) = %d, want 2", got)
	}
	if got := len(log.AcceptedActions()); got != 1 {
		t.Fatalf("len(AcceptedActions()) = %d, want 1", got)
	}
	if got := len(log.RejectedActions()); got != 1 {
		t.Fatalf("len(RejectedActions()) = %d, want 1", got)
	}
	if got := len(log.GovernanceDeniedActions()); got != 1 {
		t.Fatalf("len(GovernanceDeniedActions()) = %d, want 1", got)
	}
	if got := len(log.ByAgent("agent-1")); got != 1 {
		t.Fatalf("len(ByAgent(agent-1)) = %d, want 1", got)
	}

	head, ok := log.Head()
	if !ok || head.ID != "id-4" {
		t.Fatalf("Head() = %+v, %v, want id-4", head, ok)
	}
}
