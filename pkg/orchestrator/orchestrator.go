// Package orchestrator wires C1-C7 into the single serialized runtime
// (C8) described by the kernel: one object holding current state, the
// reducer, determinism sources, an optional governance policy, the
// append-only audit log, and a broadcast fan-out of state snapshots.
//
// Grounded on the reference platform's mutex-guarded event log (pkg/kernel/
// event_log.go) and policy-decision-point evaluate step (pkg/governance/
// pdp.go), composed here into the one runtime neither teacher file models
// on its own: the orchestrator itself is new code following their idiom
// (mutex around the critical section, a single object responsible for
// state plus its log).
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/driftlock/kernel/pkg/audit"
	"github.com/driftlock/kernel/pkg/determinism"
	"github.com/driftlock/kernel/pkg/governance"
	"github.com/driftlock/kernel/pkg/law"
	"github.com/driftlock/kernel/pkg/reducer"
	"github.com/driftlock/kernel/pkg/state"
)

// Orchestrator is the concurrency-isolated runtime described in the
// kernel's §4.8: every mutation goes through apply, serialized by mu, so
// concurrent callers are totally ordered by the time they acquire it.
type Orchestrator[S state.State, A state.Action] struct {
	mu sync.Mutex

	current S
	reducer reducer.Reducer[S, A]
	clock   determinism.Clock
	ids     determinism.IdentifierGenerator
	policy  *governance.Policy[S, A]
	log     *audit.Log[A]
	tracer  trace.Tracer

	subscribers []chan S
}

// Option configures an Orchestrator at construction.
type Option[S state.State, A state.Action] func(*Orchestrator[S, A])

// WithPolicy attaches a GovernancePolicy. Without one, apply runs the
// reducer unconditionally (no Laws consulted).
func WithPolicy[S state.State, A state.Action](p governance.Policy[S, A]) Option[S, A] {
	return func(o *Orchestrator[S, A]) { o.policy = &p }
}

// WithTracer overrides the OpenTelemetry tracer used for apply spans.
// Without one, the global tracer provider's tracer is used.
func WithTracer[S state.State, A state.Action](t trace.Tracer) Option[S, A] {
	return func(o *Orchestrator[S, A]) { o.tracer = t }
}

// New constructs an Orchestrator, captures initialState, and appends its
// Initialization event. It opens no channel; StateStream sends the current
// state to each subscriber when it joins.
func New[S state.State, A state.Action](initialState S, r reducer.Reducer[S, A], clock determinism.Clock, ids determinism.IdentifierGenerator, opts ...Option[S, A]) (*Orchestrator[S, A], error) {
	o := &Orchestrator[S, A]{
		current: initialState,
		reducer: r,
		clock:   clock,
		ids:     ids,
		log:     audit.New[A](),
		tracer:  otel.Tracer("driftlock/kernel/orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}

	event, err := audit.NewInitializationEvent[A](o.ids.Next(), o.clock.Now(), initialState.Hash(), "")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: initialization event: %w", err)
	}
	if err := o.log.Append(event); err != nil {
		return nil, fmt.Errorf("orchestrator: append initialization: %w", err)
	}
	return o, nil
}

// CurrentState returns a read-only snapshot of the orchestrator's current
// state.
func (o *Orchestrator[S, A]) CurrentState() S {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// AuditLog returns a value snapshot of the audit log: a new *audit.Log
// holding a copy of the current entries, not the orchestrator's own log.
// Appending to the returned Log never reaches the kernel's authoritative
// chain — only apply, serialized under o.mu, may extend it.
func (o *Orchestrator[S, A]) AuditLog() *audit.Log[A] {
	return audit.FromEntries(o.log.Entries())
}

// StateStream registers a new subscriber and returns a channel that first
// receives the current state, then every subsequent post-transition
// state. The channel is buffered so a slow consumer does not block apply;
// if its buffer fills, the oldest unread state is dropped in favor of the
// newest, since observers care about current truth, not history (history
// lives in the audit log).
func (o *Orchestrator[S, A]) StateStream() <-chan S {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan S, 1)
	ch <- o.current
	o.subscribers = append(o.subscribers, ch)
	return ch
}

func (o *Orchestrator[S, A]) broadcastLocked(s S) {
	for _, ch := range o.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Submit applies action on behalf of agentID. It is the ordinary entry
// point for a live agent proposing a transition.
func (o *Orchestrator[S, A]) Submit(ctx context.Context, action A, agentID string) (reducer.Result[S], error) {
	return o.apply(ctx, action, agentID)
}

// Replay applies action using the conventional "REPLAY" agentID when none
// is supplied. Replay is not a distinct code path: it is the same apply
// logic driven by an external driver re-feeding recorded actions.
func (o *Orchestrator[S, A]) Replay(ctx context.Context, action A, agentID string) (reducer.Result[S], error) {
	if agentID == "" {
		agentID = "REPLAY"
	}
	return o.apply(ctx, action, agentID)
}

// apply is the single mutation entry point; every external operation
// routes through it, serialized by o.mu so concurrent submissions are
// totally ordered by arrival. ctx threads through the tracing span export
// only — it is never consulted inside the pure steps below and never
// gates whether apply proceeds.
func (o *Orchestrator[S, A]) apply(ctx context.Context, action A, agentID string) (reducer.Result[S], error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	hashBefore := o.current.Hash()

	if o.policy != nil {
		cid := action.CorrelationID()
		trace := o.policy.Evaluate(o.current, action, &cid)

		if trace.ComposedDecision == law.Deny || trace.ComposedDecision == law.Escalate {
			event, err := audit.NewGovernanceDeniedEvent[A](o.ids.Next(), o.clock.Now(), action, agentID, hashBefore, o.log.LastEntryHash(), trace)
			if err != nil {
				return reducer.Result[S]{}, fmt.Errorf("orchestrator: governance denied event: %w", err)
			}
			if err := o.log.Append(event); err != nil {
				return reducer.Result[S]{}, fmt.Errorf("orchestrator: append governance denied: %w", err)
			}
			o.endSpanForEvent(ctx, event)
			o.broadcastLocked(o.current)
			return reducer.Rejected(o.current, "Governance denied"), nil
		}

		result := o.reducer.Reduce(o.current, action)
		hashAfter := hashBefore
		if result.Applied {
			o.current = result.NewState
			hashAfter = o.current.Hash()
		}

		var event audit.Event[A]
		var err error
		if result.Applied {
			event, err = audit.NewAcceptedEvent[A](o.ids.Next(), o.clock.Now(), action, agentID, hashBefore, hashAfter, result.Rationale, o.log.LastEntryHash(), &trace)
		} else {
			event, err = audit.NewRejectedEvent[A](o.ids.Next(), o.clock.Now(), action, agentID, hashBefore, result.Rationale, o.log.LastEntryHash(), &trace)
		}
		if err != nil {
			return reducer.Result[S]{}, fmt.Errorf("orchestrator: action event: %w", err)
		}
		if err := o.log.Append(event); err != nil {
			return reducer.Result[S]{}, fmt.Errorf("orchestrator: append action event: %w", err)
		}
		o.endSpanForEvent(ctx, event)
		o.broadcastLocked(o.current)
		return result, nil
	}

	result := o.reducer.Reduce(o.current, action)
	hashAfter := hashBefore
	if result.Applied {
		o.current = result.NewState
		hashAfter = o.current.Hash()
	}

	var event audit.Event[A]
	var err error
	if result.Applied {
		event, err = audit.NewAcceptedEvent[A](o.ids.Next(), o.clock.Now(), action, agentID, hashBefore, hashAfter, result.Rationale, o.log.LastEntryHash(), nil)
	} else {
		event, err = audit.NewRejectedEvent[A](o.ids.Next(), o.clock.Now(), action, agentID, hashBefore, result.Rationale, o.log.LastEntryHash(), nil)
	}
	if err != nil {
		return reducer.Result[S]{}, fmt.Errorf("orchestrator: action event: %w", err)
	}
	if err := o.log.Append(event); err != nil {
		return reducer.Result[S]{}, fmt.Errorf("orchestrator: append action event: %w", err)
	}
	o.endSpanForEvent(ctx, event)
	o.broadcastLocked(o.current)
	return result, nil
}

func (o *Orchestrator[S, A]) endSpanForEvent(ctx context.Context, event audit.Event[A]) {
	_, span := o.tracer.Start(ctx, string(event.EventType.Kind))
	span.SetAttributes(
		attribute.String("agentId", event.EventType.AgentID),
		attribute.Bool("applied", event.Applied),
		attribute.String("composedDecision", composedDecisionOf(event)),
	)
	span.End()
}

func composedDecisionOf[A state.Action](event audit.Event[A]) string {
	if event.GovernanceTrace == nil {
		return ""
	}
	return string(event.GovernanceTrace.ComposedDecision)
}
