// Command kernel is the thin harness that wires the ambient stack
// (config, logging, persistence) to a running orchestrator instance over
// the "dark cave" demo scenario and prints its audit log. It is not a
// product surface — the kernel itself has no CLI, environment variables,
// or protocol endpoints; those all live here, in the surrounding demo.
//
// Grounded on the reference platform's cmd/helm/main.go dispatcher idiom:
// a package-level Run(args, stdout, stderr) int, testable independently
// of os.Exit, with a switch over args[1] picking the subcommand.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/driftlock/kernel/demo/cave"
	"github.com/driftlock/kernel/pkg/attestation"
	"github.com/driftlock/kernel/pkg/audit"
	"github.com/driftlock/kernel/pkg/config"
	"github.com/driftlock/kernel/pkg/determinism"
	"github.com/driftlock/kernel/pkg/orchestrator"
	"github.com/driftlock/kernel/pkg/persistence/sqlstore"
	"github.com/driftlock/kernel/pkg/telemetry"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing: it never calls os.Exit itself.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runDemo(nil, stdout, stderr)
	}

	switch args[1] {
	case "run":
		return runDemo(args[2:], stdout, stderr)
	case "verify":
		return runVerify(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "kernel run [config.yaml]    run the dark-cave scenario and print its audit log")
	fmt.Fprintln(w, "kernel verify [config.yaml] reload a persisted log and verify its chain")
}

func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// sqlDriver picks the database/sql driver name from the DSN's scheme: a
// postgres://... or postgresql://... DSN uses lib/pq for a server
// deployment; anything else is treated as a modernc.org/sqlite file path
// for an embedded, zero-dependency deployment.
func sqlDriver(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// runDemo wires config, an orchestrator over the dark-cave scenario, and
// optional sqlstore persistence together, submits the scenario's S3 action
// sequence, and prints the resulting audit log plus a chain attestation.
func runDemo(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logger := newLogger(cfg, stderr)

	policy, err := cave.Policy(cfg.JurisdictionID)
	if err != nil {
		logger.Error("build policy", "error", err)
		return 1
	}
	policy.Rule = cfg.CompositionRule

	ctx := context.Background()
	orchOpts := []orchestrator.Option[cave.State, cave.Action]{
		orchestrator.WithPolicy[cave.State, cave.Action](policy),
	}
	if cfg.OTelExporterEndpoint != "" {
		tp, err := telemetry.New(ctx, telemetry.Config{ServiceName: "kernel", Endpoint: cfg.OTelExporterEndpoint})
		if err != nil {
			logger.Error("build tracer provider", "error", err)
			return 1
		}
		defer tp.Shutdown(ctx)
		orchOpts = append(orchOpts, orchestrator.WithTracer[cave.State, cave.Action](tp.Tracer()))
	}

	orch, err := orchestrator.New[cave.State, cave.Action](
		cave.InitialState(),
		cave.Reducer,
		determinism.SystemClock{},
		determinism.UUIDGenerator{},
		orchOpts...,
	)
	if err != nil {
		logger.Error("build orchestrator", "error", err)
		return 1
	}

	script := []cave.Action{
		cave.FindGold(20),
		cave.MoveTo("dark cave"),
		cave.FindItem("rusty sword"),
		cave.TakeDamage(15),
		cave.FindGold(500),
		cave.Rest(25),
		cave.MoveTo("sunlit meadow"),
		cave.Rest(25),
	}
	for _, action := range script {
		result, err := orch.Submit(ctx, action, "adventurer")
		if err != nil {
			logger.Error("submit", "action", action.Description(), "error", err)
			return 1
		}
		logger.Info("submitted", "action", action.Description(), "applied", result.Applied, "rationale", result.Rationale)
	}

	log := orch.AuditLog()
	if cfg.PersistenceDSN != "" {
		if err := archive(ctx, cfg.PersistenceDSN, log); err != nil {
			logger.Error("archive", "error", err)
			return 1
		}
	}

	fmt.Fprintf(stdout, "final state: %+v\n", orch.CurrentState())
	fmt.Fprintf(stdout, "audit log (%d entries):\n", log.Len())
	for _, event := range log.Entries() {
		fmt.Fprintf(stdout, "  %s %s applied=%v entryHash=%s\n", event.ID, event.EventType.Kind, event.Applied, event.EntryHash)
	}

	if cfg.AttestationSigningKey != "" {
		token, err := attestation.Attest(log, cfg.JurisdictionID, determinism.SystemClock{}.Now(), []byte(cfg.AttestationSigningKey))
		if err != nil {
			logger.Error("attest", "error", err)
			return 1
		}
		fmt.Fprintf(stdout, "attestation: %s\n", token)
	}

	return 0
}

// runVerify reloads a persisted log from cfg.PersistenceDSN and reports
// whether its hash chain still verifies.
func runVerify(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	if cfg.PersistenceDSN == "" {
		fmt.Fprintln(stderr, "verify requires persistence_dsn in config")
		return 2
	}

	driver := sqlDriver(cfg.PersistenceDSN)
	db, err := sql.Open(driver, cfg.PersistenceDSN)
	if err != nil {
		fmt.Fprintf(stderr, "open %s: %v\n", cfg.PersistenceDSN, err)
		return 1
	}
	defer db.Close()

	store := sqlstore.New(db, driver)
	ctx := context.Background()
	log, err := sqlstore.Reload[cave.Action](ctx, store)
	if err != nil {
		fmt.Fprintf(stderr, "reload: %v\n", err)
		return 1
	}

	result := log.Verify()
	fmt.Fprintf(stdout, "entries: %d\n", log.Len())
	fmt.Fprintf(stdout, "valid: %v\n", result.IsValid)
	if !result.IsValid {
		fmt.Fprintf(stdout, "brokenAtIndex: %d\n", *result.BrokenAtIndex)
		fmt.Fprintf(stdout, "reason: %s\n", result.FailureReason)
		return 1
	}
	return 0
}

func archive(ctx context.Context, dsn string, log *audit.Log[cave.Action]) error {
	driver := sqlDriver(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s: %w", dsn, err)
	}
	defer db.Close()

	store := sqlstore.New(db, driver)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return sqlstore.ArchiveLog[cave.Action](ctx, store, log)
}
