// Package reducer defines the pure state-transition function (C3) and its
// result discriminant. A Reducer must be side-effect-free: no I/O, no
// globals, no time/identity/random access. If randomness or time affects
// the decision, it must arrive already baked into S or A.
package reducer

import "github.com/driftlock/kernel/pkg/state"

// Result is the outcome of one reduce call. If Applied is false, NewState
// must equal the input state by both equality and by Hash().
type Result[S state.State] struct {
	NewState  S
	Applied   bool
	Rationale string
}

// Accepted constructs a Result representing a successful transition.
func Accepted[S state.State](newState S, rationale string) Result[S] {
	return Result[S]{NewState: newState, Applied: true, Rationale: rationale}
}

// Rejected constructs a Result representing a rejected transition: the
// state is unchanged.
func Rejected[S state.State](originalState S, rationale string) Result[S] {
	return Result[S]{NewState: originalState, Applied: false, Rationale: rationale}
}

// Reducer is the pure (state, action) -> Result transition function.
type Reducer[S state.State, A state.Action] interface {
	Reduce(s S, a A) Result[S]
}

// Func adapts a plain function to Reducer, the same "type-erased closure"
// idiom used for Law/AnyLaw: any reducer logic, however it's constructed,
// can be stored and called through one interface value.
type Func[S state.State, A state.Action] func(S, A) Result[S]

// Reduce implements Reducer.
func (f Func[S, A]) Reduce(s S, a A) Result[S] { return f(s, a) }
