// Package config loads kernel runtime configuration from a YAML file,
// applies environment-variable overrides, and validates the merged
// result against a JSON Schema before handing it to a caller — the same
// three-step shape as the reference platform's config loader (pkg/config/
// config.go: env-driven defaults) and profile loader (profile_loader.go:
// gopkg.in/yaml.v3 file parsing), merged into one path and given a schema
// boundary check the original lacked.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/driftlock/kernel/pkg/compose"
)

// Config is the full set of knobs a cmd/kernel process needs to stand up
// an Orchestrator.
type Config struct {
	JurisdictionID        string       `yaml:"jurisdiction_id" json:"jurisdiction_id"`
	CompositionRule       compose.Rule `yaml:"composition_rule" json:"composition_rule"`
	LogLevel              string       `yaml:"log_level" json:"log_level"`
	PersistenceDSN        string       `yaml:"persistence_dsn" json:"persistence_dsn,omitempty"`
	OTelExporterEndpoint  string       `yaml:"otel_exporter_endpoint" json:"otel_exporter_endpoint,omitempty"`
	AttestationSigningKey string       `yaml:"attestation_signing_key" json:"attestation_signing_key,omitempty"`
}

// schemaDoc is the JSON Schema boundary check applied after YAML parsing and
// env overrides, before a Config is handed back to the caller. It only
// constrains the fields whose values come from outside the binary
// (jurisdiction_id, composition_rule, log_level); DSNs and endpoints are
// free-form connection strings no schema can usefully constrain.
const schemaDoc = `{
	"type": "object",
	"properties": {
		"jurisdiction_id": {"type": "string", "minLength": 1},
		"composition_rule": {"enum": ["denyWins", "unanimousAllow", "majorityAllow"]},
		"log_level": {"enum": ["debug", "info", "warn", "error"]}
	},
	"required": ["jurisdiction_id", "composition_rule"]
}`

var compiledSchema = sync.OnceValue(func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader([]byte(schemaDoc))); err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	s, err := compiler.Compile("config.schema.json")
	if err != nil {
		panic(fmt.Sprintf("config: compile embedded schema: %v", err))
	}
	return s
})

// Default returns the configuration used when no file is supplied: the
// single-jurisdiction, deny-wins defaults a local demo run needs.
func Default() Config {
	return Config{
		JurisdictionID:  "default",
		CompositionRule: compose.DenyWins,
		LogLevel:        "info",
	}
}

// Load reads path as YAML into Default()'s base, applies the KERNEL_*
// environment overrides, validates the result against schema, and
// returns it. path == "" skips file loading and starts from Default().
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KERNEL_JURISDICTION_ID"); v != "" {
		cfg.JurisdictionID = v
	}
	if v := os.Getenv("KERNEL_COMPOSITION_RULE"); v != "" {
		cfg.CompositionRule = compose.Rule(v)
	}
	if v := os.Getenv("KERNEL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("KERNEL_PERSISTENCE_DSN"); v != "" {
		cfg.PersistenceDSN = v
	}
	if v := os.Getenv("KERNEL_OTEL_EXPORTER_ENDPOINT"); v != "" {
		cfg.OTelExporterEndpoint = v
	}
	if v := os.Getenv("KERNEL_ATTESTATION_SIGNING_KEY"); v != "" {
		cfg.AttestationSigningKey = v
	}
}

// validate marshals cfg to plain JSON and checks it against schema,
// converting schema validation failures into a single wrapped error.
func validate(cfg Config) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal for validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("config: unmarshal for validation: %w", err)
	}
	if err := compiledSchema().Validate(doc); err != nil {
		return fmt.Errorf("config: schema validation: %w", err)
	}
	return nil
}
