// Package governance holds the GovernancePolicy (C4+C5 glue): an ordered
// list of Laws under one CompositionRule, bound to a jurisdiction, plus the
// declarative bundle format that lets an operator describe a policy in
// YAML instead of Go.
//
// Grounded on the reference platform's policy-decision-point idiom
// (pkg/governance/pdp.go: a pure Evaluate step over policy state) and its
// jurisdiction resolver (pkg/governance/jurisdiction.go), narrowed to this
// kernel's single-jurisdiction-per-policy model.
package governance

import (
	"github.com/driftlock/kernel/pkg/compose"
	"github.com/driftlock/kernel/pkg/law"
	"github.com/driftlock/kernel/pkg/state"
)

// Policy holds an ordered sequence of Laws, the CompositionRule used to
// resolve their verdicts, and the jurisdiction this policy speaks for.
type Policy[S state.State, A state.Action] struct {
	Laws           []law.AnyLaw[S, A]
	Rule           compose.Rule
	JurisdictionID string
}

// New constructs a Policy from already-built Laws.
func New[S state.State, A state.Action](jurisdictionID string, rule compose.Rule, laws ...law.AnyLaw[S, A]) Policy[S, A] {
	return Policy[S, A]{Laws: laws, Rule: rule, JurisdictionID: jurisdictionID}
}

// Evaluate runs every Law in declaration order against (s, a), collects
// their verdicts in that same order, and resolves them through the
// composition engine. Evaluate is a pure function of
// (state, action, p.Laws, p.Rule, p.JurisdictionID, correlationID): the
// same inputs always produce a bit-identical Trace, since every Law it
// calls is itself required to be pure.
func (p Policy[S, A]) Evaluate(s S, a A, correlationID *string) compose.Trace {
	verdicts := make([]law.Verdict, len(p.Laws))
	for i, l := range p.Laws {
		verdicts[i] = l.Evaluate(s, a)
	}
	return compose.Compose(verdicts, p.Rule, p.JurisdictionID, correlationID)
}
