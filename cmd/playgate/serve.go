// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Playgate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/playgate/playgate/internal/auth"
	"github.com/playgate/playgate/internal/auth/postgres"
	"github.com/playgate/playgate/internal/bus"
	"github.com/playgate/playgate/internal/config"
	"github.com/playgate/playgate/internal/crypto"
	"github.com/playgate/playgate/internal/gate"
	"github.com/playgate/playgate/internal/link"
	"github.com/playgate/playgate/internal/logging"
	"github.com/playgate/playgate/internal/observability"
	"github.com/playgate/playgate/internal/platform"
	"github.com/playgate/playgate/internal/steps"
	"github.com/playgate/playgate/internal/store"
)

// serveConfig holds flags for the serve command.
type serveConfig struct {
	autoMigrate bool
}

// AuthCore bundles the wired authentication components the serve command
// hands to the hosting platform's adapter.
type AuthCore struct {
	Gate    *gate.Gate
	Tasks   *gate.Tasks
	Bucket  *auth.Bucket
	Engine  *auth.Progression
	Entries *link.EntryBucket
	Bus     *bus.Bus
}

// ServeDeps carries injectable hooks for the serve command. The zero value
// runs headless (schema check, background tasks, telemetry only).
type ServeDeps struct {
	// AttachAdapter receives the wired core after startup so the
	// platform can route its connect/disconnect/chat events into the
	// gate. The returned cleanup runs during shutdown.
	AttachAdapter func(ctx context.Context, core *AuthCore) (func(), error)

	// Connect pushes a fully authenticated player into gameplay.
	Connect func(ctx context.Context, account *auth.Account)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication service",
		Long: `Start the authentication service: connect to PostgreSQL, verify the
schema, wire the step pipeline and login gate, and serve metrics and
health endpoints. Platform adapters attach through the gate's handlers;
SIGHUP reloads the configuration file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	cmd.Flags().BoolVar(&cfg.autoMigrate, "auto-migrate", false, "apply pending migrations on startup")

	return cmd
}

func runServeWithDeps(ctx context.Context, serveCfg *serveConfig, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	providers := crypto.DefaultRegistry()

	cfgProvider, err := config.NewProvider(configFile, nil, providers)
	if err != nil {
		return oops.With("operation", "load configuration").Wrap(err)
	}
	cfg := cfgProvider.Snapshot()

	logging.SetDefault("playgate", version, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))
	logger := slog.Default()

	databaseURL := cfg.Database.URL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url or DATABASE_URL is required")
	}

	if err := ensureSchema(databaseURL, serveCfg.autoMigrate); err != nil {
		return err
	}

	pool, err := store.Connect(ctx, databaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	sched := platform.NewTimerScheduler()
	defer sched.Stop()

	core, err := buildAuthCore(cfgProvider.Snapshot, postgres.NewRepository(pool), providers, sched, deps.Connect, logger)
	if err != nil {
		return err
	}

	core.Tasks.Start()
	defer core.Tasks.Stop()

	// Graceful shutdown plumbing.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observability server.
	var obsServer *observability.Server
	if cfg.Telemetry.Addr != "" {
		obsServer = observability.NewServer(cfg.Telemetry.Addr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		})
		gate.RegisterMetrics(obsServer.Registry(), core.Bucket)

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	// Hand the wired core to the platform adapter.
	var detachAdapter func()
	if deps.AttachAdapter != nil {
		detachAdapter, err = deps.AttachAdapter(ctx, core)
		if err != nil {
			return oops.With("operation", "attach platform adapter").Wrap(err)
		}
	}

	// Handle signals: INT/TERM shut down, HUP reloads configuration.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	cmd.Println("playgate started")
	logger.Info("authentication service ready",
		"steps", cfg.Auth.Steps,
		"telemetry_addr", cfg.Telemetry.Addr,
	)

	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				if reloadErr := cfgProvider.Reload(); reloadErr != nil {
					logger.Error("config reload failed, keeping previous configuration",
						"error", reloadErr)
				} else {
					logger.Info("configuration reloaded")
				}
				continue
			}
			logger.Info("received shutdown signal", "signal", sig)
		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
		}
		break
	}

	// Graceful shutdown.
	logger.Info("shutting down...")

	if detachAdapter != nil {
		detachAdapter()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// buildAuthCore wires the repository, bus, bucket, engine, step factories,
// gate, and background tasks into one attachable unit.
func buildAuthCore(
	snapshot func() *config.Config,
	repo auth.AccountRepository,
	providers *crypto.Registry,
	sched platform.Scheduler,
	connect func(ctx context.Context, account *auth.Account),
	logger *slog.Logger,
) (*AuthCore, error) {
	eventBus := bus.New(logger)
	bucket := auth.NewBucket(eventBus)
	entries := link.NewEntryBucket()
	factories := auth.NewFactoryRegistry()
	engine := auth.NewProgression(eventBus, factories,
		func() []string { return snapshot().Auth.Steps }, logger)

	steps.RegisterAll(factories, steps.Deps{
		Repo:      repo,
		Providers: providers,
		Snapshot:  snapshot,
		Engine:    engine,
		Bucket:    bucket,
		Entries:   entries,
		// Messenger transports are supplied by the embedding platform;
		// without them the link steps skip themselves.
		Transports: nil,
		Connect:    connect,
		Logger:     logger,
	})

	loginGate, err := gate.New(gate.Options{
		Repo:      repo,
		Bucket:    bucket,
		Engine:    engine,
		Entries:   entries,
		Bus:       eventBus,
		Scheduler: sched,
		Snapshot:  snapshot,
		Connect:   connect,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	return &AuthCore{
		Gate:    loginGate,
		Tasks:   gate.NewTasks(bucket, entries, sched, snapshot, logger),
		Bucket:  bucket,
		Engine:  engine,
		Entries: entries,
		Bus:     eventBus,
	}, nil
}

// ensureSchema verifies the database schema is current, applying pending
// migrations when apply is set.
func ensureSchema(databaseURL string, apply bool) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = migrator.Close() }()

	if apply {
		return migrator.Up()
	}

	current, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	if dirty {
		return oops.Code("SCHEMA_DIRTY").
			With("version", current).
			Errorf("database schema is dirty, repair with `playgate migrate force`")
	}

	versions, err := store.Versions()
	if err != nil {
		return err
	}
	latest := versions[len(versions)-1]
	if current < latest {
		return oops.Code("SCHEMA_OUTDATED").
			With("current", current).
			With("latest", latest).
			Errorf("database schema is behind, run `playgate migrate up` or pass --auto-migrate")
	}
	return nil
}

// monitorServerErrors cancels the context when a server reports an error,
// so a failed listener takes the whole process down cleanly. It exits when
// an error arrives, the channel closes, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
