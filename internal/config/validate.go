package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"subwatch/internal/media"
)

// Validate ensures the configuration is structurally usable. Missing
// credentials or an unset search directory are not validation failures;
// they surface through Warnings and fail the affected pass at runtime.
func (c *Config) Validate() error {
	if err := c.validateOpenSubtitles(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateOpenSubtitles() error {
	if c.OpenSubtitles.ThrottleSeconds < minimumThrottleSeconds {
		return fmt.Errorf("opensubtitles.throttle_seconds must be at least %d", minimumThrottleSeconds)
	}
	timeout := c.OpenSubtitles.RequestTimeoutSeconds
	if timeout < minimumRequestTimeoutSeconds || timeout > maximumRequestTimeoutSeconds {
		return fmt.Errorf("opensubtitles.request_timeout_seconds must be between %d and %d",
			minimumRequestTimeoutSeconds, maximumRequestTimeoutSeconds)
	}
	if strings.TrimSpace(c.OpenSubtitles.UserAgent) == "" {
		return errors.New("opensubtitles.user_agent must be set")
	}
	if strings.ContainsAny(c.OpenSubtitles.DefaultFormat, `/\`) {
		return errors.New("opensubtitles.default_format must not contain path separators")
	}
	if !media.IsSubtitleFormat(c.OpenSubtitles.DefaultFormat) {
		return fmt.Errorf("opensubtitles.default_format %q is not a recognised subtitle extension", c.OpenSubtitles.DefaultFormat)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if _, err := ParseSchedule(c.Workflow.Schedule); err != nil {
		return fmt.Errorf("workflow.schedule: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// ParseSchedule parses a poll schedule. Standard five-field cron
// expressions and descriptors such as "@every 1h" or "@hourly" are accepted.
func ParseSchedule(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// Warnings lists settings that leave the daemon unable to fetch anything.
// They are reported, not enforced.
func (c *Config) Warnings() []string {
	var warnings []string
	if strings.TrimSpace(c.Search.Directory) == "" {
		warnings = append(warnings, "search.directory is not set (or SUBWATCH_SEARCH_DIR); passes will fail")
	}
	if c.OpenSubtitles.Login == "" || c.OpenSubtitles.Password == "" {
		warnings = append(warnings, "opensubtitles.login/opensubtitles.password are not set; login will fail")
	}
	if c.OpenSubtitles.APIKey == "" {
		warnings = append(warnings, "opensubtitles.api_key is not set (or OPENSUBTITLES_API_KEY); requests will be rejected")
	}
	return warnings
}
