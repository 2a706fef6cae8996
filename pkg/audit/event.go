// Package audit implements the hash-chained, tamper-evident audit log
// (C7): AuditEvent, its entryHash, and EventLog's append/verify/query
// surface.
//
// Grounded on the reference platform's event_log.go (sequence assignment,
// cumulative hash chaining through a canonical encoder) and
// total_order_log.go (Range/Head-style query shape, which this package's
// query methods borrow for "all entries since X").
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/driftlock/kernel/pkg/canonicalize"
	"github.com/driftlock/kernel/pkg/compose"
	"github.com/driftlock/kernel/pkg/state"
)

// EventTypeKind discriminates the AuditEventType variants.
type EventTypeKind string

const (
	Initialization   EventTypeKind = "initialization"
	ActionProposed   EventTypeKind = "actionProposed"
	StateRestored    EventTypeKind = "stateRestored"
	GovernanceDenied EventTypeKind = "governanceDenied"
	SystemEvent      EventTypeKind = "systemEvent"
)

// EventType is the tagged variant identifying what happened in one
// AuditEvent. Exactly the fields relevant to Kind are populated; the rest
// are zero values, matching the wire rule that eventType serializes as one
// object with a "type" discriminator plus its associated fields.
type EventType[A state.Action] struct {
	Kind        EventTypeKind `json:"type"`
	Action      *A            `json:"action,omitempty"`
	AgentID     string        `json:"agentId,omitempty"`
	Source      string        `json:"source,omitempty"`
	Description string        `json:"description,omitempty"`
}

func initializationType[A state.Action]() EventType[A] {
	return EventType[A]{Kind: Initialization}
}

func actionProposedType[A state.Action](action A, agentID string) EventType[A] {
	return EventType[A]{Kind: ActionProposed, Action: &action, AgentID: agentID}
}

func governanceDeniedType[A state.Action](action A, agentID string) EventType[A] {
	return EventType[A]{Kind: GovernanceDenied, Action: &action, AgentID: agentID}
}

func stateRestoredType[A state.Action](source string) EventType[A] {
	return EventType[A]{Kind: StateRestored, Source: source}
}

func systemEventType[A state.Action](description string) EventType[A] {
	return EventType[A]{Kind: SystemEvent, Description: description}
}

// Event is one immutable, append-only entry in an EventLog. EntryHash is
// computed at construction, and again by Log.Append after it sets
// PreviousEntryHash, over every other field including previousEntryHash —
// see Event.computeEntryHash.
type Event[A state.Action] struct {
	ID                string         `json:"id"`
	Timestamp         time.Time      `json:"timestamp"`
	EventType         EventType[A]   `json:"eventType"`
	StateHashBefore   string         `json:"stateHashBefore"`
	StateHashAfter    string         `json:"stateHashAfter"`
	Applied           bool           `json:"applied"`
	Rationale         string         `json:"rationale"`
	PreviousEntryHash string         `json:"previousEntryHash"`
	GovernanceTrace   *compose.Trace `json:"governanceTrace"`
	EntryHash         string         `json:"entryHash"`
}

// hashableView is the exact field set entryHash is computed over: every
// persisted field except EntryHash itself, with Timestamp stringified to
// microsecond-precision seconds-since-epoch ("%.6f") per the wire format's
// single interoperability rule. governanceTrace marshals to null when
// absent and to an object when present, so entryHash is sensitive to its
// presence, not just its content.
type hashableView struct {
	ID                string         `json:"id"`
	Timestamp         string         `json:"timestamp"`
	EventType         any            `json:"eventType"`
	StateHashBefore   string         `json:"stateHashBefore"`
	StateHashAfter    string         `json:"stateHashAfter"`
	Applied           bool           `json:"applied"`
	Rationale         string         `json:"rationale"`
	PreviousEntryHash string         `json:"previousEntryHash"`
	GovernanceTrace   *compose.Trace `json:"governanceTrace"`
}

func (e Event[A]) computeEntryHash() (string, error) {
	// Integer formatting, not float64(UnixNano())/1e9: nanosecond epoch
	// values exceed float64's exact-integer range for any real-world
	// timestamp, and this string is the one interoperability point a
	// cross-language verifier must reproduce byte-for-byte.
	timestamp := fmt.Sprintf("%d.%06d", e.Timestamp.Unix(), e.Timestamp.Nanosecond()/1000)
	view := hashableView{
		ID:                e.ID,
		Timestamp:         timestamp,
		EventType:         e.EventType,
		StateHashBefore:   e.StateHashBefore,
		StateHashAfter:    e.StateHashAfter,
		Applied:           e.Applied,
		Rationale:         e.Rationale,
		PreviousEntryHash: e.PreviousEntryHash,
		GovernanceTrace:   e.GovernanceTrace,
	}
	return canonicalize.Hash(view)
}

// newEvent builds an Event and computes its EntryHash over the
// previousEntryHash supplied by the caller. Log.Append owns chaining: it
// overwrites PreviousEntryHash with the log's head and recomputes
// EntryHash.
func newEvent[A state.Action](id string, timestamp time.Time, eventType EventType[A], stateHashBefore, stateHashAfter string, applied bool, rationale, previousEntryHash string, trace *compose.Trace) (Event[A], error) {
	e := Event[A]{
		ID:                id,
		Timestamp:         timestamp,
		EventType:         eventType,
		StateHashBefore:   stateHashBefore,
		StateHashAfter:    stateHashAfter,
		Applied:           applied,
		Rationale:         rationale,
		PreviousEntryHash: previousEntryHash,
		GovernanceTrace:   trace,
	}
	hash, err := e.computeEntryHash()
	if err != nil {
		return Event[A]{}, fmt.Errorf("audit: compute entryHash: %w", err)
	}
	e.EntryHash = hash
	return e, nil
}

// NewInitializationEvent builds the event that opens every EventLog: applied is
// always true, and stateHashBefore is always empty (there is no prior
// state to reference).
func NewInitializationEvent[A state.Action](id string, timestamp time.Time, initialStateHash, previousEntryHash string) (Event[A], error) {
	return newEvent[A](id, timestamp, initializationType[A](), "", initialStateHash, true, "initialized", previousEntryHash, nil)
}

// NewAcceptedEvent builds an ActionProposed event for a reducer-accepted
// transition.
func NewAcceptedEvent[A state.Action](id string, timestamp time.Time, action A, agentID, stateHashBefore, stateHashAfter, rationale, previousEntryHash string, trace *compose.Trace) (Event[A], error) {
	return newEvent[A](id, timestamp, actionProposedType(action, agentID), stateHashBefore, stateHashAfter, true, rationale, previousEntryHash, trace)
}

// NewRejectedEvent builds an ActionProposed event for a reducer-rejected
// transition: stateHashBefore and stateHashAfter are identical.
func NewRejectedEvent[A state.Action](id string, timestamp time.Time, action A, agentID, stateHash, rationale, previousEntryHash string, trace *compose.Trace) (Event[A], error) {
	return newEvent[A](id, timestamp, actionProposedType(action, agentID), stateHash, stateHash, false, rationale, previousEntryHash, trace)
}

// NewGovernanceDeniedEvent builds a GovernanceDenied event: the reducer was
// never invoked, so state is unchanged on both sides.
func NewGovernanceDeniedEvent[A state.Action](id string, timestamp time.Time, action A, agentID, stateHash, previousEntryHash string, trace compose.Trace) (Event[A], error) {
	return newEvent[A](id, timestamp, governanceDeniedType(action, agentID), stateHash, stateHash, false, "Governance denied", previousEntryHash, &trace)
}

// NewStateRestoredEvent records that state was replaced from an external
// snapshot rather than through the reducer.
func NewStateRestoredEvent[A state.Action](id string, timestamp time.Time, source, stateHash, previousEntryHash string) (Event[A], error) {
	return newEvent[A](id, timestamp, stateRestoredType[A](source), stateHash, stateHash, true, "State restored from "+source, previousEntryHash, nil)
}

// DecodeEvent parses the canonical JSON encoding of an Event produced by
// canonicalize.Marshal (or any equivalent plain JSON encoding of the same
// fields) back into an Event[A]. It does not recompute or validate
// EntryHash; callers that need to confirm a reloaded log is still
// internally consistent should call Log.Verify after reconstructing it.
func DecodeEvent[A state.Action](data []byte) (Event[A], error) {
	var e Event[A]
	if err := json.Unmarshal(data, &e); err != nil {
		return Event[A]{}, fmt.Errorf("audit: decode event: %w", err)
	}
	return e, nil
}

// NewSystemEvent records an informational event with no state change.
func NewSystemEvent[A state.Action](id string, timestamp time.Time, description, stateHash, previousEntryHash string) (Event[A], error) {
	return newEvent[A](id, timestamp, systemEventType[A](description), stateHash, stateHash, true, description, previousEntryHash, nil)
}
