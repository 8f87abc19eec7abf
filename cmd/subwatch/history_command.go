package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"subwatch/internal/history"
)

type historyRow struct {
	PassID       string    `json:"pass_id"`
	MediaPath    string    `json:"media_path"`
	Outcome      string    `json:"outcome"`
	SubtitlePath string    `json:"subtitle_path,omitempty"`
	FileID       int64     `json:"file_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	At           time.Time `json:"attempted_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent subtitle fetch attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := openHistory(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("fetch history is disabled (paths.history_db is empty)")
			}
			defer store.Close()

			attempts, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				rows := make([]historyRow, 0, len(attempts))
				for _, a := range attempts {
					rows = append(rows, historyRow{
						PassID:       a.PassID,
						MediaPath:    a.MediaPath,
						Outcome:      a.Outcome,
						SubtitlePath: a.SubtitlePath,
						FileID:       a.FileID,
						Error:        a.Error,
						At:           a.At,
					})
				}
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No fetch attempts recorded")
				return nil
			}
			if err := writeRows(out, []string{"When", "Pass", "Outcome", "Video", "Detail"}, historyTableRows(attempts), nil); err != nil {
				return err
			}

			summary, err := store.Summary(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, formatSummary(summary))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of attempts to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func historyTableRows(attempts []history.Attempt) [][]string {
	rows := make([][]string, 0, len(attempts))
	for _, a := range attempts {
		detail := a.SubtitlePath
		if a.Error != "" {
			detail = a.Error
		}
		rows = append(rows, []string{
			a.At.Local().Format("2006-01-02 15:04:05"),
			shortID(a.PassID),
			a.Outcome,
			a.MediaPath,
			detail,
		})
	}
	return rows
}

func formatSummary(summary history.Summary) string {
	outcomes := make([]string, 0, len(summary.ByOutcome))
	for outcome := range summary.ByOutcome {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	line := "Total " + strconv.Itoa(summary.Total)
	for _, outcome := range outcomes {
		line += ", " + outcome + " " + strconv.Itoa(summary.ByOutcome[outcome])
	}
	return line
}
