package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cliplabel/cliplabel-engine/pkg/config"
	"github.com/cliplabel/cliplabel-engine/pkg/database"
	"github.com/cliplabel/cliplabel-engine/pkg/logging"
	"github.com/cliplabel/cliplabel-engine/pkg/sync"
)

// Version is set at build time via ldflags
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "labelsync",
	Short:         "labelsync reconciles annotation workspace files with the database",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(
		newBatchCommand("videos", "Sync a batch of video records", (*sync.Engine).SyncVideos),
		newBatchCommand("users", "Sync a batch of user records", (*sync.Engine).SyncUsers),
		newBatchCommand("question-groups", "Sync a batch of question group records", (*sync.Engine).SyncQuestionGroups),
		newBatchCommand("schemas", "Sync a batch of schema records", (*sync.Engine).SyncSchemas),
		newBatchCommand("projects", "Sync a batch of project records", (*sync.Engine).SyncProjects),
		newBatchCommand("project-groups", "Sync a batch of project group records", (*sync.Engine).SyncProjectGroups),
		newBatchCommand("assignments", "Sync a batch of assignment records", (*sync.Engine).SyncAssignments),
		newBatchCommand("annotations", "Sync a batch of annotator answer records", (*sync.Engine).SyncAnnotations),
		newBatchCommand("ground-truths", "Sync a batch of ground-truth records", (*sync.Engine).SyncGroundTruths),
		newAllCommand(),
	)
}

// withEngine loads configuration, connects, migrates and hands a ready
// engine to fn, closing everything afterwards.
func withEngine(ctx context.Context, fn func(*sync.Engine, *zap.Logger) error) error {
	cfg, err := config.Load(Version)
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	migrationDB, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(migrationDB, cfg.Database.MigrationsPath, logger); err != nil {
		_ = migrationDB.Close()
		return err
	}
	_ = migrationDB.Close()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(sync.NewEngine(db, sync.DefaultVerifiers(), cfg.Sync, logger), logger)
}
