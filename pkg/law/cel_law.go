package law

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/driftlock/kernel/pkg/canonicalize"
	"github.com/driftlock/kernel/pkg/state"
)

// CELLaw evaluates a declarative CEL expression against the canonical JSON
// view of (state, action). The expression must produce a string result of
// "allow", "deny", "escalate", or "abstain"; any other result, or any
// evaluation error, fails closed to Deny so a malformed policy can never
// silently grant passage. A compile error is returned by NewCELLaw instead.
//
// The environment exposes two dynamic variables, "state" and "action", each
// bound to the canonical-JSON-then-unmarshal view of the respective value
// (so CEL sees plain maps/slices/scalars, never the Go type). Each CELLaw
// compiles its program once, in NewCELLaw, with a cost limit and an
// interrupt-check frequency to bound a misbehaving rule; programs are not
// shared between CELLaw values.
type CELLaw[S state.State, A state.Action] struct {
	lawID string
	expr  string

	env *cel.Env

	mu  sync.Mutex
	prg cel.Program
}

// NewCELLaw compiles expr once and returns a Law backed by it. An error
// here means the expression does not type-check; callers should treat a
// compile failure as a policy-bundle load-time error (see pkg/governance's
// bundle loader), not a per-evaluation one.
func NewCELLaw[S state.State, A state.Action](lawID, expr string) (*CELLaw[S, A], error) {
	env, err := cel.NewEnv(
		cel.Variable("state", cel.DynType),
		cel.Variable("action", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("law: cel: new env: %w", err)
	}

	l := &CELLaw[S, A]{lawID: lawID, expr: expr, env: env}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("law: cel: compile %q: %w", lawID, issues.Err())
	}
	prg, err := env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("law: cel: program %q: %w", lawID, err)
	}
	l.prg = prg
	return l, nil
}

// ID implements Law.
func (l *CELLaw[S, A]) ID() string { return l.lawID }

// Evaluate implements Law. It never returns a Go error: a failure to
// canonicalize, evaluate, or parse the expression's result
// degrades to a Deny verdict carrying the failure as its reason, per the
// kernel's fail-closed rule for declarative Laws.
func (l *CELLaw[S, A]) Evaluate(s S, a A) Verdict {
	stateView, err := jsonView(s)
	if err != nil {
		return Denied(l.lawID, "cel: state canonicalization failed: "+err.Error())
	}
	actionView, err := jsonView(a)
	if err != nil {
		return Denied(l.lawID, "cel: action canonicalization failed: "+err.Error())
	}

	l.mu.Lock()
	out, _, err := l.prg.Eval(map[string]any{"state": stateView, "action": actionView})
	l.mu.Unlock()
	if err != nil {
		return Denied(l.lawID, "cel: eval failed: "+err.Error())
	}

	str, ok := out.Value().(string)
	if !ok {
		return Denied(l.lawID, fmt.Sprintf("cel: expression %q did not produce a string", l.expr))
	}

	switch Decision(str) {
	case Allow:
		return Allowed(l.lawID, "cel: "+l.expr)
	case Deny:
		return Denied(l.lawID, "cel: "+l.expr)
	case Escalate:
		return Escalated(l.lawID, "cel: "+l.expr)
	case Abstain:
		return Abstained(l.lawID, "cel: "+l.expr)
	default:
		return Denied(l.lawID, fmt.Sprintf("cel: expression produced unrecognized decision %q", str))
	}
}

// jsonView round-trips v through the canonical encoder and back into a
// plain any (map[string]any / []any / scalars) so CEL can index into it
// with ordinary field-selection syntax.
func jsonView(v any) (any, error) {
	data, err := canonicalize.Marshal(v)
	if err != nil {
		return nil, err
	}
	return canonicalize.Unmarshal(data)
}
