package determinism

import "github.com/google/uuid"

// IdentifierGenerator produces opaque unique identifiers. Production
// returns fresh random IDs; the scripted test variant (detertest.IDGenerator)
// consumes a fixed sequence or yields a monotonic deterministic pattern.
type IdentifierGenerator interface {
	Next() string
}

// UUIDGenerator is the production IdentifierGenerator, backed by random
// (v4) UUIDs.
type UUIDGenerator struct{}

// Next implements IdentifierGenerator.
func (UUIDGenerator) Next() string { return uuid.New().String() }

// NewUUIDGenerator returns the production random-UUID IdentifierGenerator.
func NewUUIDGenerator() IdentifierGenerator { return UUIDGenerator{} }
