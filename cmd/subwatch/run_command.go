package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subwatch/internal/daemon"
	"subwatch/internal/logging"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the subtitle poll loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonProcess(cmd.Context(), ctx)
		},
	}
}

func runDaemonProcess(cmdCtx context.Context, ctx *commandContext) error {
	if ctx == nil {
		return fmt.Errorf("command context is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	started := time.Now()
	runID := started.UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("subwatch-%s.log", runID))
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	for _, warning := range cfg.Warnings() {
		logging.WarnWithContext(logger, "configuration incomplete", "config_warning",
			logging.String("detail", warning),
			logging.String(logging.FieldErrorHint, "run `subwatch check` after editing the config"),
			logging.String(logging.FieldImpact, "passes may fail until fixed"),
		)
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "subwatch-*.log", cfg.Logging.RetentionDays, started, logPath)

	guard := daemon.New(cfg.LockPath(), cfg.PIDPath(), logger)
	if err := guard.Acquire(); err != nil {
		return err
	}
	defer guard.Release()

	store, err := openHistory(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	if store != nil {
		defer store.Close()
		if days := cfg.Workflow.HistoryRetentionDays; days > 0 {
			removed, err := store.Prune(signalCtx, started.AddDate(0, 0, -days))
			if err != nil {
				logging.WarnWithContext(logger, "history prune failed", "history_prune_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "old attempts stay in the history database"),
				)
			} else if removed > 0 {
				logger.Info("history pruned", logging.Int64("removed", removed), logging.Int("retention_days", days))
			}
		}
	}

	w, err := buildWatcher(cfg, logger, store)
	if err != nil {
		return err
	}

	logger.Info("subwatch started",
		logging.String("search_directory", cfg.Search.Directory),
		logging.String("schedule", cfg.Workflow.Schedule),
		logging.String("language", cfg.TargetLanguage().File),
		logging.Int("pid", os.Getpid()),
		logging.String("log_file", logPath),
	)
	if err := w.Run(signalCtx); err != nil {
		return err
	}
	logger.Info("subwatch stopped", logging.Duration("uptime", time.Since(started)))
	return nil
}
