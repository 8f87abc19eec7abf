package main

import (
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subwatch/internal/daemon"
	"subwatch/internal/watcher"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var quiet bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a single pass over the search directory",
		Long: "Run exactly one pass: log in, fetch subtitles for videos that lack one, and log out.\n" +
			"With --dry-run, list the videos that would be fetched without contacting OpenSubtitles.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := commandLogger(cfg, quiet)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if dryRun {
				w, err := buildDryRunWatcher(cfg, logger)
				if err != nil {
					return err
				}
				report, err := w.RunPass(runCtx)
				if err != nil {
					return err
				}
				return printDryRun(cmd.OutOrStdout(), report)
			}

			guard := daemon.New(cfg.LockPath(), cfg.PIDPath(), logger)
			if err := guard.Acquire(); err != nil {
				return err
			}
			defer guard.Release()

			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			w, err := buildWatcher(cfg, logger, store)
			if err != nil {
				return err
			}
			report, err := w.RunPass(runCtx)
			if err != nil {
				return err
			}
			return printPassReport(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List videos lacking subtitles without downloading")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress log output")
	return cmd
}

func printDryRun(out io.Writer, report watcher.PassReport) error {
	for _, path := range report.Missing {
		fmt.Fprintln(out, path)
	}
	fmt.Fprintf(out, "%d of %d videos lack subtitles\n", len(report.Missing), report.Videos)
	return nil
}

func printPassReport(out io.Writer, report watcher.PassReport) error {
	rows := [][]string{
		{"Videos", strconv.Itoa(report.Videos)},
		{"Already covered", strconv.Itoa(report.Covered)},
		{"Fetched", strconv.Itoa(report.Fetched)},
		{"No match", strconv.Itoa(report.NoMatch)},
		{"Failed", strconv.Itoa(report.Failed)},
		{"Pruned folders", strconv.Itoa(report.Walk.Pruned)},
		{"Unreadable folders", strconv.Itoa(report.Walk.DirErrors)},
		{"Duration", report.Duration().Round(time.Millisecond).String()},
	}
	return writeRows(out, []string{"Pass " + shortID(report.ID), "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
