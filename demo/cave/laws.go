package cave

import (
	"fmt"

	"github.com/driftlock/kernel/pkg/law"
)

// GameOverLaw denies every action once health has reached zero: a defeated
// adventurer cannot act, regardless of what they propose next.
var GameOverLaw = law.Func[State, Action]{
	LawID: "GameOverLaw",
	Eval: func(s State, a Action) law.Verdict {
		if s.Health <= 0 {
			return law.Denied("GameOverLaw", "adventurer has 0 health; no further actions permitted")
		}
		return law.Allowed("GameOverLaw", "adventurer is alive")
	},
}

// goldBudgetExpr denies a findGold proposal that exceeds GoldBudgetLimit in
// one action; every other action is allowed. Declarative rather than a Go
// closure, the way the kernel's CELLaw is meant to be authored.
const goldBudgetExpr = `action.kind == "findGold" && action.amount > ` + goldBudgetLimitLiteral + ` ? "deny" : "allow"`

const goldBudgetLimitLiteral = "100"

// NewGoldBudgetLaw compiles GoldBudgetLaw. It returns an error only if the
// CEL expression fails to compile, which a fixed literal expression never
// does at runtime — callers in this package can safely discard the error,
// but it is still surfaced rather than swallowed, matching the kernel's
// CELLaw constructor contract.
func NewGoldBudgetLaw() (*law.CELLaw[State, Action], error) {
	return law.NewCELLaw[State, Action]("GoldBudgetLaw", goldBudgetExpr)
}

// SafeLocationLaw denies resting anywhere not in SafeLocations; every other
// action is allowed regardless of location.
var SafeLocationLaw = law.Func[State, Action]{
	LawID: "SafeLocationLaw",
	Eval: func(s State, a Action) law.Verdict {
		if a.Kind == KindRest && !IsSafe(s.Location) {
			return law.Denied("SafeLocationLaw", fmt.Sprintf("%q is not a safe place to rest", s.Location))
		}
		return law.Allowed("SafeLocationLaw", "not an unsafe rest")
	},
}

// InventoryLaw denies picking up an item already carried; every other
// action is allowed.
var InventoryLaw = law.Func[State, Action]{
	LawID: "InventoryLaw",
	Eval: func(s State, a Action) law.Verdict {
		if a.Kind == KindFindItem && s.HasItem(a.Item) {
			return law.Denied("InventoryLaw", a.Item+" is already carried")
		}
		return law.Allowed("InventoryLaw", "not a duplicate item")
	},
}
