package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/driftlock/kernel/pkg/reducer"
	"github.com/driftlock/kernel/pkg/state"
)

// ChainDiscontinuity is returned by AppendValidating when the event being
// appended does not chain onto the log's current head.
type ChainDiscontinuity struct {
	Expected string
	Found    string
	Index    int
}

func (e *ChainDiscontinuity) Error() string {
	return fmt.Sprintf("audit: chain discontinuity at index %d: expected stateHashBefore %q, found %q", e.Index, e.Expected, e.Found)
}

// Log is an ordered, append-only sequence of Events. The zero value is an
// empty, ready-to-use log.
type Log[A state.Action] struct {
	mu      sync.Mutex
	entries []Event[A]
}

// New returns an empty Log.
func New[A state.Action]() *Log[A] {
	return &Log[A]{}
}

// FromEntries returns a new Log containing a copy of entries, taken as
// already chained and hashed (e.g. from another Log's Entries()). It does
// not re-derive EntryHash/PreviousEntryHash, so it is the right
// constructor for a value snapshot; use Append/AppendValidating instead
// when building a log up one event at a time.
func FromEntries[A state.Action](entries []Event[A]) *Log[A] {
	out := make([]Event[A], len(entries))
	copy(out, entries)
	return &Log[A]{entries: out}
}

// LastEntryHash returns the EntryHash of the most recently appended event,
// or "" if the log is empty.
func (l *Log[A]) LastEntryHash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return ""
	}
	return l.entries[len(l.entries)-1].EntryHash
}

// Len returns the number of entries in the log.
func (l *Log[A]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Entries returns a value snapshot of the log's current entries. Mutating
// the returned slice does not affect the log.
func (l *Log[A]) Entries() []Event[A] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event[A], len(l.entries))
	copy(out, l.entries)
	return out
}

// Append unconditionally overwrites event.PreviousEntryHash with the log's
// current last entry hash, then appends it. This is the normal path used
// by the orchestrator, which already knows the event chains correctly
// because it built the event from the state it's holding.
func (l *Log[A]) Append(event Event[A]) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(event)
}

func (l *Log[A]) appendLocked(event Event[A]) error {
	prev := ""
	if len(l.entries) > 0 {
		prev = l.entries[len(l.entries)-1].EntryHash
	}
	event.PreviousEntryHash = prev
	hash, err := event.computeEntryHash()
	if err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	event.EntryHash = hash
	l.entries = append(l.entries, event)
	return nil
}

// AppendValidating requires, when the log is non-empty, that
// event.StateHashBefore equals the current head's StateHashAfter before
// appending; otherwise it returns a *ChainDiscontinuity and leaves the log
// unmodified.
func (l *Log[A]) AppendValidating(event Event[A]) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) > 0 {
		last := l.entries[len(l.entries)-1]
		if event.StateHashBefore != last.StateHashAfter {
			return &ChainDiscontinuity{Expected: last.StateHashAfter, Found: event.StateHashBefore, Index: len(l.entries)}
		}
	}
	return l.appendLocked(event)
}

// VerificationResult is the outcome of Verify or VerifyReplay: data, not
// an error, since a broken chain is a fact about the log's content that a
// caller may want to report without treating as an exceptional condition.
type VerificationResult struct {
	IsValid       bool
	BrokenAtIndex *int
	FailureReason string
}

func valid() VerificationResult { return VerificationResult{IsValid: true} }

func invalid(index int, reason string) VerificationResult {
	i := index
	return VerificationResult{IsValid: false, BrokenAtIndex: &i, FailureReason: reason}
}

// Verify checks the hash chain in O(n): the first entry's
// PreviousEntryHash must be empty, and every subsequent entry must chain
// both its StateHashBefore onto the previous entry's StateHashAfter and
// its PreviousEntryHash onto the previous entry's EntryHash.
func (l *Log[A]) Verify() VerificationResult {
	l.mu.Lock()
	entries := make([]Event[A], len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	if len(entries) == 0 {
		return valid()
	}
	if entries[0].PreviousEntryHash != "" {
		return invalid(0, "first entry must have empty previousEntryHash")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].StateHashBefore != entries[i-1].StateHashAfter {
			return invalid(i, "State hash mismatch")
		}
		if entries[i].PreviousEntryHash != entries[i-1].EntryHash {
			return invalid(i, "Hash chain broken")
		}
	}
	return valid()
}

// VerifyReplay runs Verify, and if the chain is valid, replays every
// event against initialState using r, confirming the log's recorded
// outcome at each step matches what the reducer actually produces.
func (l *Log[A]) VerifyReplay(initialState state.State, r reducer.Reducer[state.State, A]) VerificationResult {
	if vr := l.Verify(); !vr.IsValid {
		return vr
	}

	l.mu.Lock()
	entries := make([]Event[A], len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	current := initialState
	for i, e := range entries {
		switch e.EventType.Kind {
		case Initialization:
			if i == 0 {
				if e.StateHashAfter != current.Hash() {
					return invalid(i, "Initialization stateHashAfter does not match initial state")
				}
			} else if e.StateHashBefore != current.Hash() {
				return invalid(i, "Initialization stateHashBefore does not match replayed state")
			}

		case ActionProposed:
			if e.StateHashBefore != current.Hash() {
				return invalid(i, "ActionProposed stateHashBefore does not match replayed state")
			}
			if e.EventType.Action == nil {
				return invalid(i, "ActionProposed event missing action")
			}
			result := r.Reduce(current, *e.EventType.Action)
			if result.Applied != e.Applied {
				return invalid(i, "reducer applied flag does not match recorded event")
			}
			if result.Applied {
				current = result.NewState
			}
			if e.StateHashAfter != current.Hash() {
				return invalid(i, "ActionProposed stateHashAfter does not match replayed state")
			}

		case SystemEvent, GovernanceDenied:
			if e.StateHashBefore != e.StateHashAfter {
				return invalid(i, "unchanged-state event has mismatched before/after hashes")
			}
			if e.StateHashBefore != current.Hash() {
				return invalid(i, "unchanged-state event does not match replayed state")
			}

		case StateRestored:
			return invalid(i, "cannot verify replay across a StateRestored event without the external snapshot")
		}
	}
	return valid()
}

// ProposedAction pairs an Action with the agentID that proposed it, the
// shape returned by the action-oriented query methods.
type ProposedAction[A state.Action] struct {
	Action    A
	AgentID   string
	Applied   bool
	Rationale string
	Timestamp time.Time
}

// Actions returns every ActionProposed event, in order.
func (l *Log[A]) Actions() []ProposedAction[A] {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []ProposedAction[A]
	for _, e := range l.entries {
		if e.EventType.Kind == ActionProposed && e.EventType.Action != nil {
			out = append(out, ProposedAction[A]{
				Action:    *e.EventType.Action,
				AgentID:   e.EventType.AgentID,
				Applied:   e.Applied,
				Rationale: e.Rationale,
				Timestamp: e.Timestamp,
			})
		}
	}
	return out
}

// AcceptedActions filters Actions to reducer-accepted transitions.
func (l *Log[A]) AcceptedActions() []ProposedAction[A] {
	return filterActions(l.Actions(), true)
}

// RejectedActions filters Actions to reducer-rejected transitions.
func (l *Log[A]) RejectedActions() []ProposedAction[A] {
	return filterActions(l.Actions(), false)
}

func filterActions[A state.Action](in []ProposedAction[A], applied bool) []ProposedAction[A] {
	var out []ProposedAction[A]
	for _, a := range in {
		if a.Applied == applied {
			out = append(out, a)
		}
	}
	return out
}

// GovernanceDenial is the shape returned by GovernanceDeniedActions: the
// action that was blocked, who proposed it, and the full event (whose
// GovernanceTrace field carries the composed decision and per-law
// verdicts).
type GovernanceDenial[A state.Action] struct {
	Action  A
	AgentID string
	Event   Event[A]
}

// GovernanceDeniedActions returns every GovernanceDenied event's action,
// agentID, and the full Event (carrying its attached CompositionTrace).
func (l *Log[A]) GovernanceDeniedActions() []GovernanceDenial[A] {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []GovernanceDenial[A]
	for _, e := range l.entries {
		if e.EventType.Kind == GovernanceDenied && e.EventType.Action != nil {
			out = append(out, GovernanceDenial[A]{Action: *e.EventType.Action, AgentID: e.EventType.AgentID, Event: e})
		}
	}
	return out
}

// Range returns every entry with Timestamp within [from, to], inclusive,
// following the reference platform's Range-over-a-committed-log shape.
func (l *Log[A]) Range(from, to time.Time) []Event[A] {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event[A]
	for _, e := range l.entries {
		if !e.Timestamp.Before(from) && !e.Timestamp.After(to) {
			out = append(out, e)
		}
	}
	return out
}

// ByAgent returns every ActionProposed or GovernanceDenied event whose
// agentID matches agentID, in order.
func (l *Log[A]) ByAgent(agentID string) []Event[A] {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event[A]
	for _, e := range l.entries {
		if (e.EventType.Kind == ActionProposed || e.EventType.Kind == GovernanceDenied) && e.EventType.AgentID == agentID {
			out = append(out, e)
		}
	}
	return out
}

// Head returns the most recently appended Event, and false if the log is
// empty.
func (l *Log[A]) Head() (Event[A], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return Event[A]{}, false
	}
	return l.entries[len(l.entries)-1], true
}
