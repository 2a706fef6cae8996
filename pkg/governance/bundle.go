package governance

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/driftlock/kernel/pkg/canonicalize"
	"github.com/driftlock/kernel/pkg/compose"
	"github.com/driftlock/kernel/pkg/law"
	"github.com/driftlock/kernel/pkg/state"
)

// BundleLaw declares one Law within a policy bundle. At least one of ID or
// CEL must be set: ID alone names a Law already registered in Go (looked up
// in the registry passed to LoadBundle), CEL supplies an inline expression
// compiled on load into a CELLaw; when both are set, ID names that CELLaw.
type BundleLaw struct {
	ID  string `yaml:"id"`
	CEL string `yaml:"cel,omitempty"`
}

// Bundle is the declarative, YAML-serializable description of a Policy.
// PolicyVersion must parse as a valid semantic version; it is not
// interpreted beyond that (no version-range matching), it exists so
// bundles can be compared and rolled back by an operator with ordinary
// semver tooling.
type Bundle struct {
	JurisdictionID string       `yaml:"jurisdictionId"`
	PolicyVersion  string       `yaml:"policyVersion"`
	Rule           compose.Rule `yaml:"rule"`
	Laws           []BundleLaw  `yaml:"laws"`
}

// ParseBundle decodes YAML bundle data and validates PolicyVersion as
// semver. It does not resolve law IDs or compile CEL expressions; that
// happens in LoadBundle once a registry of native Laws is available.
func ParseBundle(data []byte) (Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Bundle{}, fmt.Errorf("governance: parse bundle: %w", err)
	}
	if _, err := semver.NewVersion(b.PolicyVersion); err != nil {
		return Bundle{}, fmt.Errorf("governance: bundle %q: policyVersion %q is not valid semver: %w", b.JurisdictionID, b.PolicyVersion, err)
	}
	switch b.Rule {
	case compose.DenyWins, compose.UnanimousAllow, compose.MajorityAllow:
	default:
		return Bundle{}, fmt.Errorf("governance: bundle %q: unrecognized rule %q", b.JurisdictionID, b.Rule)
	}
	return b, nil
}

// ContentHash returns the canonical-encoding SHA-256 hash of the bundle's
// content, usable as a version fingerprint independent of whatever
// PolicyVersion string an operator assigned — two bundles with different
// version tags but identical Laws/Rule/JurisdictionID hash identically.
func (b Bundle) ContentHash() (string, error) {
	b.PolicyVersion = ""
	return canonicalize.Hash(b)
}

// LoadBundle resolves a parsed Bundle into an executable Policy[S,A].
// Go-native law IDs are looked up in registry; entries with an inline CEL
// expression are compiled into a CELLaw regardless of whether ID is also
// set (ID becomes that law's identity, CEL supplies its predicate).
func LoadBundle[S state.State, A state.Action](b Bundle, registry map[string]law.AnyLaw[S, A]) (Policy[S, A], error) {
	laws := make([]law.AnyLaw[S, A], 0, len(b.Laws))
	for _, decl := range b.Laws {
		switch {
		case decl.CEL != "":
			id := decl.ID
			if id == "" {
				id = decl.CEL
			}
			cl, err := law.NewCELLaw[S, A](id, decl.CEL)
			if err != nil {
				return Policy[S, A]{}, fmt.Errorf("governance: bundle %q: law %q: %w", b.JurisdictionID, id, err)
			}
			laws = append(laws, law.Wrap[S, A](cl))

		case decl.ID != "":
			l, ok := registry[decl.ID]
			if !ok {
				return Policy[S, A]{}, fmt.Errorf("governance: bundle %q: no registered law named %q", b.JurisdictionID, decl.ID)
			}
			laws = append(laws, l)

		default:
			return Policy[S, A]{}, fmt.Errorf("governance: bundle %q: law declaration must set id or cel", b.JurisdictionID)
		}
	}
	return New[S, A](b.JurisdictionID, b.Rule, laws...), nil
}
