package preflight

import (
	"context"
	"strings"

	"subwatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// LoginCheck performs a live login and logout, returning the account name.
type LoginCheck func(ctx context.Context) (string, error)

// RunAll executes all applicable preflight checks for the given config. The
// live login runs only when login is non-nil and credentials are present.
func RunAll(ctx context.Context, cfg *config.Config, login LoginCheck) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Search directory", cfg.Search.Directory),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCredentials(cfg.OpenSubtitles),
		CheckAPIKey(cfg.OpenSubtitles),
	}

	if login != nil && results[2].Passed && results[3].Passed {
		results = append(results, CheckLogin(ctx, login))
	}
	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

// CheckCredentials verifies that login and password are configured.
func CheckCredentials(cfg config.OpenSubtitles) Result {
	const name = "OpenSubtitles credentials"
	var missing []string
	if strings.TrimSpace(cfg.Login) == "" {
		missing = append(missing, "opensubtitles.login")
	}
	if strings.TrimSpace(cfg.Password) == "" {
		missing = append(missing, "opensubtitles.password")
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "configured for " + cfg.Login}
}

// CheckAPIKey verifies that the REST API key is configured.
func CheckAPIKey(cfg config.OpenSubtitles) Result {
	const name = "OpenSubtitles API key"
	if strings.TrimSpace(cfg.APIKey) == "" {
		return Result{Name: name, Detail: "missing opensubtitles.api_key"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
