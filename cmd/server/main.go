package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/importer"
	"github.com/t77yq/cpm-planner/internal/schedule"
	"github.com/t77yq/cpm-planner/internal/storage"
)

// cronLogger adapts zap.Logger to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg)
}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, zap.Error(err))
}

func main() {
	importFile := flag.String("import", "", "CSV plan file to import before scheduling")
	importProject := flag.Int64("project", 0, "project id the imported plan belongs to")
	once := flag.Bool("once", false, "recompute all active projects once and exit")
	flag.Parse()

	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.SetDefault("database.path", "planner.db")
	viper.SetDefault("scheduler.recalc_expression", "0 0 6 * * *")
	viper.SetDefault("history.retention_days", 90)
	if err := viper.ReadInConfig(); err != nil {
		logger.Warn("No config file found, using defaults", zap.Error(err))
	}

	// Open storage
	store, err := storage.New(logger, viper.GetString("database.path"))
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	scheduler := schedule.NewScheduler(store, store, logger)

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	// Import a plan file when asked
	if *importFile != "" {
		if *importProject == 0 {
			logger.Fatal("Plan import requires -project")
		}
		if err := importPlan(ctx, logger, store, *importFile, *importProject); err != nil {
			logger.Fatal("Plan import failed", zap.Error(err))
		}
	}

	recompute := func() {
		projects, err := store.ActiveProjects(ctx)
		if err != nil {
			logger.Error("Failed to list active projects", zap.Error(err))
			return
		}

		for _, project := range projects {
			tasks, err := store.TasksByProject(ctx, project.ID)
			if err != nil {
				logger.Error("Failed to load project tasks",
					zap.Int64("project_id", project.ID),
					zap.Error(err))
				continue
			}

			result, err := scheduler.ComputeSchedule(ctx, project, tasks)
			if err != nil {
				logger.Error("Schedule computation failed",
					zap.Int64("project_id", project.ID),
					zap.String("project", project.Name),
					zap.Error(err))
				continue
			}

			runID, err := store.RecordRun(ctx, project.ID, result)
			if err != nil {
				logger.Error("Failed to record schedule run",
					zap.Int64("project_id", project.ID),
					zap.Error(err))
				continue
			}

			logger.Info("Project rescheduled",
				zap.Int64("project_id", project.ID),
				zap.String("project", project.Name),
				zap.String("run_id", runID),
				zap.Int("duration_days", result.Duration))
		}
	}

	// Always compute once on startup so fresh imports get dates
	recompute()
	if *once {
		logger.Info("Single run requested, exiting")
		return
	}

	// Schedule periodic recalculation
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(&cronLogger{logger: logger.Named("cron")})),
	)
	expr := viper.GetString("scheduler.recalc_expression")
	if _, err := c.AddFunc(expr, recompute); err != nil {
		logger.Fatal("Invalid recalculation expression",
			zap.String("expression", expr),
			zap.Error(err))
	}
	c.Start()
	logger.Info("Recalculation scheduled", zap.String("expression", expr))

	// Cleanup old run history daily
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -viper.GetInt("history.retention_days"))
				if err := store.DeleteRunsBefore(ctx, cutoff); err != nil {
					logger.Error("Failed to cleanup schedule runs", zap.Error(err))
				}
			}
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()

	logger.Info("Server shutting down gracefully")
}

func importPlan(ctx context.Context, logger *zap.Logger, store *storage.Store, path string, projectID int64) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	plan, err := importer.ParsePlan(f)
	if err != nil {
		return err
	}

	return importer.New(store, logger).Import(ctx, projectID, plan)
}
