package cave

import (
	"fmt"

	"github.com/driftlock/kernel/pkg/reducer"
)

// Reduce is the cave domain's pure transition function. It applies its own
// narrower checks even though the four Laws already screen most of the same
// conditions at the governance layer — reducer rejection (applied=false,
// state unchanged) and governance denial are deliberately two independent
// lines of defense, matching scenario S6's premise that governance can
// allow an action the reducer still refuses.
func Reduce(s State, a Action) reducer.Result[State] {
	switch a.Kind {
	case KindFindGold:
		if a.Amount <= 0 {
			return reducer.Rejected(s, "findGold amount must be positive")
		}
		next := s
		next.Gold += a.Amount
		return reducer.Accepted(next, fmt.Sprintf("found %d gold", a.Amount))

	case KindMoveTo:
		if a.Destination == "" {
			return reducer.Rejected(s, "moveTo destination must not be empty")
		}
		next := s
		next.Location = a.Destination
		return reducer.Accepted(next, "moved to "+a.Destination)

	case KindFindItem:
		if s.HasItem(a.Item) {
			return reducer.Rejected(s, a.Item+" is already carried")
		}
		next := s
		next.Inventory = append(append([]string{}, s.Inventory...), a.Item)
		return reducer.Accepted(next, "picked up "+a.Item)

	case KindTakeDamage:
		if a.Amount <= 0 {
			return reducer.Rejected(s, "takeDamage amount must be positive")
		}
		next := s
		next.Health -= a.Amount
		if next.Health < 0 {
			next.Health = 0
		}
		return reducer.Accepted(next, fmt.Sprintf("took %d damage", a.Amount))

	case KindRest:
		if !IsSafe(s.Location) {
			return reducer.Rejected(s, s.Location+" is not safe enough to rest")
		}
		next := s
		next.Health += a.Amount
		if next.Health > MaxHealth {
			next.Health = MaxHealth
		}
		return reducer.Accepted(next, fmt.Sprintf("rested for %d health", a.Amount))

	default:
		return reducer.Rejected(s, "unrecognized action kind")
	}
}

// Reducer adapts Reduce to reducer.Reducer[State, Action].
var Reducer = reducer.Func[State, Action](Reduce)
