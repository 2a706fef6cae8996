// Package state defines the State and Action contracts (C1): the shape
// every domain value flowing through the kernel must satisfy, and the
// default content-hashing scheme used to turn a value into the 64-char
// hex digest the rest of the kernel hashes and chains on.
package state

import "github.com/driftlock/kernel/pkg/canonicalize"

// State is an immutable, serializable, equality-comparable domain value.
// Implementations own their own equality (== or a domain Equal method);
// the kernel only ever compares state by its Hash.
type State interface {
	// Hash returns the 64-char lowercase hex content hash of the value.
	// Implementations should normally delegate to Hash(s) below rather
	// than hand-roll their own encoding, so every domain type agrees on
	// the same canonicalization rules.
	Hash() string
}

// Action is an immutable, serializable, equality-comparable proposed
// transition. CorrelationID must be stable across repeated reads of the
// same value — it is never generated lazily on access — and Description
// is a human-readable summary suitable for audit rationale strings.
type Action interface {
	CorrelationID() string
	Description() string
}

// Hash computes the default content hash for a domain value: canonical
// encoding (see pkg/canonicalize) followed by SHA-256. Domain State and
// Action implementations that don't need custom hashing should implement
// Hash() by calling this with themselves (or their exported field view).
func Hash(v any) string {
	return canonicalize.MustHash(v)
}
