// Package cave is the kernel's worked example domain: a small text-adventure
// ("the dark cave") whose State, Action, Reducer, and four Laws are the ones
// named throughout the kernel's own test suite (GameOverLaw, GoldBudgetLaw,
// SafeLocationLaw, InventoryLaw) and its scenario fixtures S1/S3. It
// exists to give cmd/kernel something concrete to run and to give every
// generic package a matching non-trivial (S,A) instantiation.
package cave

import kernelstate "github.com/driftlock/kernel/pkg/state"

// MaxHealth is the cap Rest cannot heal past.
const MaxHealth = 100

// SafeLocations is the set of locations where resting is permitted.
// SafeLocationLaw denies Rest anywhere else.
var SafeLocations = map[string]bool{
	"sunlit meadow": true,
	"village square": true,
}

// GoldBudgetLimit is the single-action gold ceiling GoldBudgetLaw enforces.
const GoldBudgetLimit = 100

// State is the adventurer's situation: health, current location, gold
// collected so far, and the set of items carried.
type State struct {
	Health    int      `json:"health"`
	Location  string   `json:"location"`
	Gold      int      `json:"gold"`
	Inventory []string `json:"inventory"`
}

// Hash implements kernelstate.State.
func (s State) Hash() string { return kernelstate.Hash(s) }

// HasItem reports whether item is already carried.
func (s State) HasItem(item string) bool {
	for _, have := range s.Inventory {
		if have == item {
			return true
		}
	}
	return false
}

// IsSafe reports whether location permits resting.
func IsSafe(location string) bool { return SafeLocations[location] }
