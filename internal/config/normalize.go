package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeSearch(); err != nil {
		return err
	}
	if err := c.normalizeOpenSubtitles(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeSearch() error {
	if strings.TrimSpace(c.Search.Directory) == "" {
		if value, ok := os.LookupEnv("SUBWATCH_SEARCH_DIR"); ok {
			c.Search.Directory = value
		}
	}
	var err error
	if c.Search.Directory, err = expandPath(strings.TrimSpace(c.Search.Directory)); err != nil {
		return fmt.Errorf("search.directory: %w", err)
	}
	c.Ignored.Folders = strings.TrimSpace(c.Ignored.Folders)
	return nil
}

func (c *Config) normalizeOpenSubtitles() error {
	osub := &c.OpenSubtitles
	osub.Login = envFallback(osub.Login, "OPENSUBTITLES_LOGIN")
	osub.Password = envFallback(osub.Password, "OPENSUBTITLES_PASSWORD")
	osub.APIKey = envFallback(osub.APIKey, "OPENSUBTITLES_API_KEY")

	osub.UserAgent = strings.TrimSpace(osub.UserAgent)
	if osub.UserAgent == "" {
		osub.UserAgent = defaultOpenSubtitlesUserAgent
	}
	osub.BaseURL = strings.TrimRight(strings.TrimSpace(osub.BaseURL), "/")
	if osub.BaseURL == "" {
		osub.BaseURL = defaultOpenSubtitlesBaseURL
	}
	osub.DefaultFormat = strings.ToLower(strings.TrimSpace(osub.DefaultFormat))
	if osub.DefaultFormat == "" {
		osub.DefaultFormat = defaultOpenSubtitlesSubFormat
	}
	if osub.ThrottleSeconds <= 0 {
		osub.ThrottleSeconds = defaultThrottleSeconds
	}
	if osub.RequestTimeoutSeconds <= 0 {
		osub.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}

	osub.Language = strings.TrimSpace(osub.Language)
	if osub.Language == "" {
		osub.Language = defaultOpenSubtitlesLanguage
	}
	lang, err := ParseLanguage(osub.Language)
	if err != nil {
		return fmt.Errorf("opensubtitles.language: %w", err)
	}
	c.language = lang
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	// An empty history_db disables the history store.
	if c.Paths.HistoryDB, err = expandPath(strings.TrimSpace(c.Paths.HistoryDB)); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	c.Workflow.Schedule = strings.TrimSpace(c.Workflow.Schedule)
	if c.Workflow.Schedule == "" {
		c.Workflow.Schedule = defaultSchedule
	}
	if c.Workflow.HistoryRetentionDays < 0 {
		c.Workflow.HistoryRetentionDays = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func envFallback(current, key string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		return current
	}
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
