package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sitrep-core/internal/adapters/driving/http"
	"github.com/custodia-labs/sitrep-core/internal/config"
	"github.com/custodia-labs/sitrep-core/internal/core/domain"
	"github.com/custodia-labs/sitrep-core/internal/core/ports/driving"
	"github.com/custodia-labs/sitrep-core/internal/core/services"
	"github.com/custodia-labs/sitrep-core/internal/worker"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:          "sitrep-core",
		Short:        "Persistence and review lifecycle for extracted situation reports",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMode(cmd, "")
		},
	}
	apiCmd = &cobra.Command{
		Use:   "api",
		Short: "Serve the HTTP API without processing tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMode(cmd, "api")
		},
	}
	workerCmd = &cobra.Command{
		Use:   "worker",
		Short: "Process queued ingest and recompute tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMode(cmd, "worker")
		},
	}
	allCmd = &cobra.Command{
		Use:   "all",
		Short: "Serve the API and process tasks in one process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMode(cmd, "all")
		},
	}
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		Args:  cobra.NoArgs,
		RunE:  runMigrate,
	}
	ingestCmd = &cobra.Command{
		Use:   "ingest [record-set.json]",
		Short: "Ingest an extraction record set and print the CREATED snapshot",
		Long: `Reads a JSON document of the form
{"document_id": "...", "extraction_run_id": "...", "record_set": {...}}
and stores its tree and CREATED snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}
	advanceCmd = &cobra.Command{
		Use:   "advance [post-id] [stage]",
		Short: "Advance a post to the next lifecycle stage",
		Args:  cobra.ExactArgs(2),
		RunE:  runAdvance,
	}
	eligibilityCmd = &cobra.Command{
		Use:   "eligibility [snapshot-id]",
		Short: "Recompute and print a snapshot's commit eligibility",
		Args:  cobra.ExactArgs(1),
		RunE:  runEligibility,
	}
	analystCmd = &cobra.Command{
		Use:   "analyst",
		Short: "Manage analyst accounts",
	}
	analystCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create an analyst account",
		Args:  cobra.NoArgs,
		RunE:  runAnalystCreate,
	}
	analystEmail    string
	analystName     string
	analystRole     string
	analystPassword string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file (default $"+config.PathEnv+")")

	analystCreateCmd.Flags().StringVar(&analystEmail, "email", "", "login email")
	analystCreateCmd.Flags().StringVar(&analystName, "name", "", "display name")
	analystCreateCmd.Flags().StringVar(&analystRole, "role", string(domain.RoleAnalyst), "admin, auditor, analyst or viewer")
	analystCreateCmd.Flags().StringVar(&analystPassword, "password", "", "initial password (min 8 characters)")
	_ = analystCreateCmd.MarkFlagRequired("email")
	_ = analystCreateCmd.MarkFlagRequired("name")
	_ = analystCreateCmd.MarkFlagRequired("password")
	analystCmd.AddCommand(analystCreateCmd)

	rootCmd.AddCommand(apiCmd, workerCmd, allCmd, migrateCmd, ingestCmd, advanceCmd, eligibilityCmd, analystCmd)
}

// withApp loads the configuration, builds the app and runs fn against it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

// runMode starts the API, the worker or both. An empty mode uses the
// configured run mode.
func runMode(cmd *cobra.Command, mode string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		if mode == "" {
			mode = a.cfg.RunMode
		}
		a.logger.Info("sitrep-core starting", "version", version, "mode", mode)

		g, ctx := errgroup.WithContext(ctx)
		if mode == "api" || mode == "all" {
			g.Go(func() error { return runAPI(ctx, a) })
		}
		if mode == "worker" || mode == "all" {
			g.Go(func() error { return runWorker(ctx, a) })
		}
		return g.Wait()
	})
}

func runAPI(ctx context.Context, a *app) error {
	server := http.NewServer(http.Config{
		Host:        a.cfg.Server.Host,
		Port:        a.cfg.Server.Port,
		Version:     version,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		Logger:      a.logger,
		Gatherer:    a.registry,
	}, a.services, a.taskQueue, a.readinessChecks())

	return server.Start(ctx)
}

// runWorker processes tasks until ctx is cancelled.
func runWorker(ctx context.Context, a *app) error {
	var scheduler *services.Scheduler
	if a.cfg.Scheduler.Enabled {
		scheduler = services.NewScheduler(services.SchedulerConfig{
			TaskQueue:     a.taskQueue,
			Lock:          a.lock,
			Logger:        a.logger,
			PurgeInterval: a.cfg.Scheduler.PurgeInterval,
			Retention:     a.cfg.Scheduler.Retention,
		})
	} else {
		a.logger.Info("scheduler disabled")
	}

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.taskQueue,
		Ingest:         a.services.Ingest,
		Eligibility:    a.services.Eligibility,
		Scheduler:      scheduler,
		Metrics:        a.metrics,
		Logger:         a.logger,
		Concurrency:    a.cfg.Worker.Concurrency,
		DequeueTimeout: a.cfg.Worker.DequeueTimeout,
	})
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	<-ctx.Done()
	a.logger.Info("stopping worker")
	w.Stop()
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app) error {
		a.logger.Info("schema is up to date")
		return nil
	})
}

func runIngest(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var req driving.IngestRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		result, err := a.services.Ingest.Ingest(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd, result)
	})
}

func runAdvance(cmd *cobra.Command, args []string) error {
	stage, err := domain.ParseLifecycleStage(args[1])
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		snapshot, err := a.services.Lifecycle.Advance(ctx, args[0], stage)
		if err != nil {
			return err
		}
		return printJSON(cmd, snapshot)
	})
}

func runEligibility(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		rows, err := a.services.Eligibility.Recompute(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, rows)
	})
}

func runAnalystCreate(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		user, err := a.services.Users.Create(ctx, driving.CreateUserRequest{
			Email:    analystEmail,
			Password: analystPassword,
			Name:     analystName,
			Role:     domain.Role(analystRole),
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, user)
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
