package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Formentera-Operations/workflow-tracker/internal/config"
	"github.com/Formentera-Operations/workflow-tracker/internal/logging"
	"github.com/Formentera-Operations/workflow-tracker/internal/repository"
	"github.com/Formentera-Operations/workflow-tracker/internal/services"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func main() {
	var envFile, seedFile string

	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Load sample workflows into the database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), envFile, seedFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")
	cmd.Flags().StringVar(&seedFile, "file", "", "YAML seed file (defaults to the built-in samples)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile, seedFile string) error {
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data := []byte(defaultSeed)
	if seedFile != "" {
		if data, err = os.ReadFile(seedFile); err != nil {
			return fmt.Errorf("failed to read seed file: %w", err)
		}
	}
	seed, err := parseSeed(data)
	if err != nil {
		return err
	}

	// Connect to DB
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to DB: %w", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	svc := services.NewWorkflowService(store, nil, logger, cfg.Settings.DefaultHourlyRate)

	// 1. Hourly rate
	if seed.HourlyRate != nil {
		if err := svc.SetHourlyRate(ctx, *seed.HourlyRate); err != nil {
			return fmt.Errorf("failed to set hourly rate: %w", err)
		}
		logger.Info("Hourly rate set", "rate", *seed.HourlyRate)
	}

	// 2. Check for existing workflows to prevent duplicates
	existingWorkflows, err := store.ListWorkflows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing workflows: %w", err)
	}

	existingMap := make(map[string]bool)
	for _, w := range existingWorkflows {
		existingMap[w.ProcessName] = true
	}

	// 3. Create seed workflows
	var created int
	for _, sw := range seed.Workflows {
		if existingMap[sw.ProcessName] {
			logger.Info("Skipping existing workflow", "name", sw.ProcessName)
			continue
		}

		res, err := svc.Create(ctx, sw.model())
		if err != nil {
			logger.Error("Failed to create workflow", "name", sw.ProcessName, "error", err)
			continue
		}
		existingMap[sw.ProcessName] = true
		created++
		logger.Info("Seeded workflow", "name", sw.ProcessName, "id", res.Workflow.ID)
	}
	logger.Info("Seeding complete!", "created", created)
	return nil
}
