package cave

import (
	"fmt"

	"github.com/driftlock/kernel/pkg/compose"
	"github.com/driftlock/kernel/pkg/governance"
	"github.com/driftlock/kernel/pkg/law"
)

// Policy builds the four Story Laws (GameOverLaw, GoldBudgetLaw,
// SafeLocationLaw, InventoryLaw, in that order) into a DenyWins governance
// policy for jurisdictionID.
func Policy(jurisdictionID string) (governance.Policy[State, Action], error) {
	goldBudget, err := NewGoldBudgetLaw()
	if err != nil {
		return governance.Policy[State, Action]{}, fmt.Errorf("cave: build GoldBudgetLaw: %w", err)
	}

	return governance.New[State, Action](
		jurisdictionID,
		compose.DenyWins,
		law.Wrap[State, Action](GameOverLaw),
		law.Wrap[State, Action](goldBudget),
		law.Wrap[State, Action](SafeLocationLaw),
		law.Wrap[State, Action](InventoryLaw),
	), nil
}

// InitialState is the adventurer's starting situation used by cmd/kernel
// and the scenario tests: full health, at "sunlit meadow" (one of the
// SafeLocations), no gold, empty-handed.
func InitialState() State {
	return State{Health: MaxHealth, Location: "sunlit meadow", Gold: 0, Inventory: nil}
}
