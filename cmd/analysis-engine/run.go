package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/talentsight/analysis-engine/internal/config"
	"github.com/talentsight/analysis-engine/internal/events"
	"github.com/talentsight/analysis-engine/internal/orchestrator"
	"github.com/talentsight/analysis-engine/internal/service"
	"github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/sweeper"
	"github.com/talentsight/analysis-engine/pkg/log"
	"go.uber.org/zap"
)

const shutdownGrace = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Named("engine").Info("starting analysis engine")
		defer zap.S().Named("engine").Info("analysis engine stopped")

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Named("engine").Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Named("engine").Fatalf("running initial migration: %v", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		hub := events.NewHub(
			events.WithBufferSize(cfg.Analysis.EventBufferSize),
			events.WithSnapshotter(service.NewStoreSnapshotter(s)),
		)
		defer hub.Close()

		orch := orchestrator.New(s, hub, orchestrator.Options{
			TextMix:              cfg.Analysis.TextMix,
			RecomputePercentiles: cfg.Analysis.RecomputePercentiles,
			JobTimeout:           cfg.Analysis.JobTimeout,
		})

		sw := sweeper.New(s, cfg.Service.SweepInterval, cfg.Service.RetentionAge)
		go sw.Run(ctx)

		metricsServer := &http.Server{
			Addr:    cfg.Service.MetricsAddress,
			Handler: promhttp.Handler(),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zap.S().Named("engine").Errorf("metrics listener failed: %v", err)
				cancel()
			}
		}()

		<-ctx.Done()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()

		if err := orch.Shutdown(shutdownCtx); err != nil {
			zap.S().Named("engine").Warnf("jobs did not drain before shutdown deadline: %v", err)
		}
		_ = metricsServer.Shutdown(shutdownCtx)
		return nil
	},
}
