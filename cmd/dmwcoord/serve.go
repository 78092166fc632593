package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/dmwcoord/pkg/config"
	"github.com/cuemby/dmwcoord/pkg/coreerr"
	"github.com/cuemby/dmwcoord/pkg/debounce"
	"github.com/cuemby/dmwcoord/pkg/events"
	"github.com/cuemby/dmwcoord/pkg/log"
	"github.com/cuemby/dmwcoord/pkg/metrics"
	"github.com/cuemby/dmwcoord/pkg/orchestrator"
	"github.com/cuemby/dmwcoord/pkg/persistence"
	"github.com/cuemby/dmwcoord/pkg/platform"
	"github.com/cuemby/dmwcoord/pkg/schema"
	"github.com/cuemby/dmwcoord/pkg/seed"
	"github.com/cuemby/dmwcoord/pkg/store"
	"github.com/cuemby/dmwcoord/pkg/workers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the coordination engine until interrupted",
	Long: `serve runs the full boot sequence: align the database schema, load the
domain store, and start the reactive orchestrator and its time-driven
workers. It blocks until it receives SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("dungeon-seed-file", "", "YAML file seeding the dungeon lookup table on a brand-new deployment")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	seedFile, _ := cmd.Flags().GetString("dungeon-seed-file")
	metrics.SetVersion(Version)

	ctx := context.Background()

	persist, err := persistence.Open(ctx, persistence.Config{
		DSN:                   cfg.DatabaseDSN,
		MaxOpenConns:          cfg.MaxOpenConns,
		MaxIdleConns:          cfg.MaxIdleConns,
		ConnMaxLifetime:       cfg.ConnMaxLifetime,
		AdvisoryLockNamespace: cfg.AdvisoryLockNamespace,
		ConnectRetries:        cfg.ConnectRetries,
	})
	if err != nil {
		return fmt.Errorf("serve: open persistence: %w", err)
	}
	defer persist.Close()

	acquired, err := persist.AcquireAdvisoryLock(ctx)
	if err != nil {
		return fmt.Errorf("serve: advisory lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("serve: another instance already holds the %q advisory lock: %w", cfg.AdvisoryLockNamespace, coreerr.ErrSingletonLost)
	}
	metrics.RegisterComponent("persistence", true, "")

	guard := schema.New(persist.DB())
	changes, err := guard.EnsureRequiredSchema(ctx)
	if err != nil {
		metrics.RegisterComponent("schema", false, err.Error())
		return fmt.Errorf("serve: align schema: %w", err)
	}
	metrics.RegisterComponent("schema", true, "")
	log.Logger.Info().Int("changes", len(changes)).Msg("schema aligned")

	s := store.New()
	if err := persist.Load(ctx, s); err != nil {
		return fmt.Errorf("serve: load snapshot: %w", err)
	}

	seeded, err := seed.LoadDungeons(seedFile, s)
	if err != nil {
		return fmt.Errorf("serve: seed dungeons: %w", err)
	}
	if seeded > 0 {
		log.Logger.Info().Int("dungeons", seeded).Msg("seeded dungeon lookup table")
	}

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	tasks := debounce.NewSingletonTaskRegistry()

	// A real gateway-backed chat-platform client is out of scope; see
	// pkg/platform. MemoryClient is the wiring point a future client
	// implementation replaces.
	plat := platform.NewMemoryClient()

	orch := orchestrator.New(s, persist, plat, tasks, broker, cfg)
	metrics.RegisterComponent("orchestrator", true, "")

	mgr := workers.NewManager(orch, persist, plat, tasks, broker, cfg, nil)
	mgr.StartAll()

	go func() {
		http.Handle("/metrics", metrics.Handler())
		http.HandleFunc("/healthz", metrics.HealthHandler())
		if err := http.ListenAndServe(cfg.MetricsAddr, nil); err != nil && err != http.ErrServerClosed {
			log.Logger.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics endpoint listening")
	log.Logger.Info().Msg("coordination engine running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgr.Stop()
	orch.Shutdown()
	if err := persist.FlushWithRetry(shutdownCtx, s, persistence.RetryConfig{}); err != nil {
		log.Logger.Error().Err(err).Msg("final flush failed")
	}

	log.Logger.Info().Msg("shutdown complete")
	return nil
}
