// Package attestation generalizes the reference platform's
// DecisionRecord.Signature/Receipt pattern (pkg/governance/types.go) from
// signing one decision to signing a log's head hash: a JWT asserting "as
// of this token's issuance time, this jurisdiction's audit log had this
// many entries and this head entryHash".
//
// This is export-only tooling layered on top of pkg/audit.Log; nothing in
// the orchestrator or audit packages depends on it.
package attestation

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/driftlock/kernel/pkg/audit"
	"github.com/driftlock/kernel/pkg/state"
)

// ErrEmptyLog is returned by Attest when the log has no entries to attest
// to.
var ErrEmptyLog = errors.New("attestation: log has no entries")

// Claims is the JWT payload: the standard registered claims plus the
// chain fact being attested to.
type Claims struct {
	jwt.RegisteredClaims
	JurisdictionID string `json:"jurisdictionId,omitempty"`
	EntryCount     int    `json:"entryCount"`
	HeadEntryHash  string `json:"headEntryHash"`
}

// Attest signs a Claims asserting log's current entry count and head
// hash, issued at now, using signingKey with HS256. Returns ErrEmptyLog
// if log has no entries — there is no head hash to attest to.
func Attest[A state.Action](log *audit.Log[A], jurisdictionID string, now time.Time, signingKey []byte) (string, error) {
	head, ok := log.Head()
	if !ok {
		return "", ErrEmptyLog
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		JurisdictionID: jurisdictionID,
		EntryCount:     log.Len(),
		HeadEntryHash:  head.EntryHash,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("attestation: sign: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token produced by Attest, returning its
// Claims on success.
func Verify(token string, signingKey []byte) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("attestation: unexpected signing method %v", t.Header["alg"])
		}
		return signingKey, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("attestation: parse: %w", err)
	}
	if !parsed.Valid {
		return Claims{}, fmt.Errorf("attestation: token is not valid")
	}
	return claims, nil
}

// MatchesLog reports whether c's attested entryCount and headEntryHash
// are still consistent with log's current state — true for an unchanged
// or append-only-extended log queried at c.EntryCount, false if the log
// has fewer entries than attested or its entry at that position doesn't
// match.
func MatchesLog[A state.Action](c Claims, log *audit.Log[A]) bool {
	if log.Len() < c.EntryCount {
		return false
	}
	entries := log.Entries()
	return entries[c.EntryCount-1].EntryHash == c.HeadEntryHash
}
