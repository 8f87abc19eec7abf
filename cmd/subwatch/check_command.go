package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"subwatch/internal/config"
	"subwatch/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify directories, credentials, and OpenSubtitles login",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var login preflight.LoginCheck
			if !offline {
				login = liveLogin(cfg)
			}
			results := preflight.RunAll(cmd.Context(), cfg, login)

			rows := make([][]string, 0, len(results))
			failed := 0
			for _, r := range results {
				status := "OK"
				if !r.Passed {
					status = "FAIL"
					failed++
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			if err := writeRows(cmd.OutOrStdout(), []string{"Check", "Status", "Detail"}, rows, nil); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d checks failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the live OpenSubtitles login")
	return cmd
}

func liveLogin(cfg *config.Config) preflight.LoginCheck {
	return func(ctx context.Context) (string, error) {
		client, err := newClient(cfg)
		if err != nil {
			return "", err
		}
		session, err := client.Login(ctx, cfg.OpenSubtitles.Login, cfg.OpenSubtitles.Password)
		if err != nil {
			return "", err
		}
		if err := client.Logout(ctx, session); err != nil {
			return session.User, fmt.Errorf("logout: %w", err)
		}
		return session.User, nil
	}
}
