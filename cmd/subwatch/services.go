package main

import (
	"fmt"
	"log/slog"
	"strings"

	"subwatch/internal/config"
	"subwatch/internal/history"
	"subwatch/internal/logging"
	"subwatch/internal/ratelimit"
	"subwatch/internal/subtitles"
	"subwatch/internal/subtitles/opensubtitles"
	"subwatch/internal/watcher"
)

func newClient(cfg *config.Config) (*opensubtitles.Client, error) {
	client, err := opensubtitles.New(opensubtitles.Config{
		APIKey:    cfg.OpenSubtitles.APIKey,
		UserAgent: cfg.OpenSubtitles.UserAgent,
		BaseURL:   cfg.OpenSubtitles.BaseURL,
		Timeout:   cfg.RequestTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("opensubtitles client: %w", err)
	}
	return client, nil
}

// openHistory returns a nil store when paths.history_db is empty.
func openHistory(cfg *config.Config) (*history.Store, error) {
	path := strings.TrimSpace(cfg.Paths.HistoryDB)
	if path == "" {
		return nil, nil
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func buildWatcher(cfg *config.Config, logger *slog.Logger, store *history.Store) (*watcher.Watcher, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	clock := ratelimit.SystemClock{}
	fetcher := subtitles.NewFetcherFromConfig(cfg, client, clock, logger)

	var recorder watcher.Recorder
	if store != nil {
		recorder = store
	}
	return watcher.NewFromConfig(cfg, client, fetcher, recorder, clock, logger)
}

func buildDryRunWatcher(cfg *config.Config, logger *slog.Logger) (*watcher.Watcher, error) {
	return watcher.New(watcher.Options{
		Root:     cfg.Search.Directory,
		Ignored:  cfg.IgnoredFolders(),
		Language: cfg.TargetLanguage().File,
		DryRun:   true,
		Logger:   logger,
	})
}

func commandLogger(cfg *config.Config, quiet bool) (*slog.Logger, error) {
	if quiet {
		return logging.NewNop(), nil
	}
	return logging.NewFromConfig(cfg)
}
