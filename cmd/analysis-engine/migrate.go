package main

import (
	"github.com/spf13/cobra"
	"github.com/talentsight/analysis-engine/internal/config"
	"github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/pkg/log"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the db",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return err
		}

		logger := log.InitLog(log.Level(cfg.Service.LogLevel))
		defer func() { _ = logger.Sync() }()
		undo := zap.ReplaceGlobals(logger)
		defer undo()

		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Named("engine").Fatalf("initializing data store: %v", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := s.InitialMigration(); err != nil {
			zap.S().Named("engine").Fatalf("running initial migration: %v", err)
		}

		zap.S().Named("engine").Info("db migrated")
		return nil
	},
}
