package cave

// Kind discriminates the five proposable Actions. Actions are a single
// tagged struct rather than five separate Go types because the kernel's
// Reducer and Law interfaces are parameterized over one concrete A; a sum
// type keeps the domain expressible with a single type argument, the same
// pattern pkg/audit.EventType uses for its own Kind-tagged variants.
type Kind string

const (
	KindFindGold   Kind = "findGold"
	KindMoveTo     Kind = "moveTo"
	KindFindItem   Kind = "findItem"
	KindTakeDamage Kind = "takeDamage"
	KindRest       Kind = "rest"
)

// Action is one proposed adventurer move.
type Action struct {
	Kind        Kind   `json:"kind"`
	Amount      int    `json:"amount,omitempty"`
	Destination string `json:"destination,omitempty"`
	Item        string `json:"item,omitempty"`
	Correlation string `json:"correlationId,omitempty"`
}

// CorrelationID implements state.Action.
func (a Action) CorrelationID() string { return a.Correlation }

// Description implements state.Action.
func (a Action) Description() string {
	switch a.Kind {
	case KindFindGold:
		return "findGold"
	case KindMoveTo:
		return "moveTo " + a.Destination
	case KindFindItem:
		return "findItem " + a.Item
	case KindTakeDamage:
		return "takeDamage"
	case KindRest:
		return "rest"
	default:
		return "unknown action"
	}
}

// FindGold proposes collecting amount gold from the current location.
func FindGold(amount int) Action { return Action{Kind: KindFindGold, Amount: amount} }

// MoveTo proposes relocating to destination.
func MoveTo(destination string) Action { return Action{Kind: KindMoveTo, Destination: destination} }

// FindItem proposes picking up item.
func FindItem(item string) Action { return Action{Kind: KindFindItem, Item: item} }

// TakeDamage proposes losing amount health.
func TakeDamage(amount int) Action { return Action{Kind: KindTakeDamage, Amount: amount} }

// Rest proposes healing amount health, only permitted at a safe location.
func Rest(amount int) Action { return Action{Kind: KindRest, Amount: amount} }
