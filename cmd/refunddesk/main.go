package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/clearway-labs/refunddesk/pkg/audit"
	"github.com/clearway-labs/refunddesk/pkg/catalog"
	"github.com/clearway-labs/refunddesk/pkg/config"
	"github.com/clearway-labs/refunddesk/pkg/identity"
	"github.com/clearway-labs/refunddesk/pkg/observability"
	"github.com/clearway-labs/refunddesk/pkg/policy"
	"github.com/clearway-labs/refunddesk/pkg/refund"
	"github.com/clearway-labs/refunddesk/pkg/rpc"
	"github.com/clearway-labs/refunddesk/pkg/service"
)

const version = "1.0.0"

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	cmd := "serve"
	if len(args) >= 2 {
		cmd = args[1]
	}

	switch cmd {
	case "serve", "server":
		return runServe(stderr)
	case "tools":
		return runTools(stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "refunddesk %s\n", version)
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Usage: refunddesk [serve|tools|version]")
	_, _ = fmt.Fprintln(w, "  serve    run the tool server on stdio (default)")
	_, _ = fmt.Fprintln(w, "  tools    print the tool catalog as JSON")
	_, _ = fmt.Fprintln(w, "  version  print the version")
}

func runServe(stderr io.Writer) int {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewJSONHandler(stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	registry, cleanup, err := buildRegistry(cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.New().String()
	srv := rpc.NewServer(registry, sessionID, "refunddesk", version)
	slog.Info("serving tools on stdio", "session_id", sessionID, "version", version)

	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		slog.Error("server stopped", "error", err)
		return 1
	}
	return 0
}

func runTools(stdout, stderr io.Writer) int {
	registry, cleanup, err := buildRegistry(config.Load())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "startup failed: %v\n", err)
		return 1
	}
	defer cleanup()

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(registry.Tools()); err != nil {
		_, _ = fmt.Fprintf(stderr, "encode tool catalog: %v\n", err)
		return 1
	}
	return 0
}

// buildRegistry wires the full component graph from configuration.
func buildRegistry(cfg *config.Config) (*rpc.Registry, func(), error) {
	cleanup := func() {}

	policyCfg := policy.Default()
	if cfg.PolicyPath != "" {
		var err error
		policyCfg, err = policy.LoadFile(cfg.PolicyPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("load policy profile: %w", err)
		}
	}

	cat := catalog.Seed()
	verifier := identity.NewVerifier(cat, identity.LogDelivery{})
	engine := policy.NewEngine(cat, policyCfg)
	executor := refund.NewExecutor(cat, refund.NewMemoryStore())

	artifacts, err := audit.NewArtifactStore(cfg.ArtifactDir)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init artifact store: %w", err)
	}
	trailOpts := []audit.TrailOption{}
	if cfg.AuditDBPath != "" {
		store, err := audit.OpenSQLiteStore(cfg.AuditDBPath)
		if err != nil {
			return nil, cleanup, fmt.Errorf("open audit db: %w", err)
		}
		cleanup = func() { _ = store.Close() }
		trailOpts = append(trailOpts, audit.WithPersister(store))
	}
	trail := audit.NewTrail(artifacts, trailOpts...)

	obs, err := observability.New(version)
	if err != nil {
		return nil, cleanup, fmt.Errorf("init observability: %w", err)
	}

	svc := service.New(cat, verifier, engine, executor,
		service.WithSink(trail),
		service.WithObservability(obs),
	)
	registry, err := rpc.NewRegistry(svc)
	if err != nil {
		return nil, cleanup, fmt.Errorf("build tool registry: %w", err)
	}
	return registry, cleanup, nil
}
