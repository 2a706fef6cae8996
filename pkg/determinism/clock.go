// Package determinism provides the three sanctioned sources of time,
// identity, and randomness inside the kernel (C2): Clock, IdentifierGenerator,
// and RandomSource. Reducers, Laws, and audit-event construction must not
// otherwise reach for platform time/identity/random — everything flows
// through one of these three capabilities so a run can be replayed exactly
// by swapping in the scripted variants under pkg/determinism/detertest.
package determinism

import "time"

// Clock returns the current time. The production implementation wraps
// time.Now; tests use an advancing or fixed mock (see detertest.Clock).
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock, backed by wall-clock time.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// NewSystemClock returns the production wall-clock Clock.
func NewSystemClock() Clock { return SystemClock{} }
