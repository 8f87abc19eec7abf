package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"subwatch/internal/ignore"
)

//go:embed sample_config.toml
var sampleConfig string

// Search describes the media tree that is scanned on every pass.
type Search struct {
	Directory string `toml:"directory"`
}

// OpenSubtitles contains credentials and request settings for the subtitle service.
type OpenSubtitles struct {
	Login                 string `toml:"login"`
	Password              string `toml:"password"`
	APIKey                string `toml:"api_key"`
	UserAgent             string `toml:"user_agent"`
	BaseURL               string `toml:"base_url"`
	Language              string `toml:"language"`
	DefaultFormat         string `toml:"default_format"`
	ThrottleSeconds       int    `toml:"throttle_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Ignored lists folder names pruned from every walk.
type Ignored struct {
	// Folders is a semicolon separated list of directory base names.
	Folders string `toml:"folders"`
}

// Paths contains state and log locations.
type Paths struct {
	LogDir    string `toml:"log_dir"`
	HistoryDB string `toml:"history_db"`
}

// Workflow contains configuration for poll loop timing.
type Workflow struct {
	Schedule             string `toml:"schedule"`
	HistoryRetentionDays int    `toml:"history_retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for subwatch.
//
// Configuration sections by subsystem:
//   - Search: root directory to scan
//   - OpenSubtitles: credentials, API key, target language and throttle
//   - Ignored: folder names pruned from the walk
//   - Paths: log directory and fetch history database
//   - Workflow: poll schedule and history retention
//   - Logging: log format, level, and retention
type Config struct {
	Search        Search        `toml:"search"`
	OpenSubtitles OpenSubtitles `toml:"opensubtitles"`
	Ignored       Ignored       `toml:"ignored"`
	Paths         Paths         `toml:"paths"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`

	language Language
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathLiteral)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file is not an error: defaults and
// environment fallbacks are used and exists is reported as false.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPathLiteral)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigFileName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads .env files from the working directory and from the
// directory holding the config file. Variables already present in the
// environment win.
func loadDotEnv(configPath string) {
	candidates := []string{defaultDotEnvFileName}
	if dir := filepath.Dir(configPath); dir != "" && dir != "." {
		candidates = append(candidates, filepath.Join(dir, defaultDotEnvFileName))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		if info, err := os.Stat(abs); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(abs)
	}
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.LogDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.LogDir, err)
	}
	if db := strings.TrimSpace(c.Paths.HistoryDB); db != "" {
		dir := filepath.Dir(db)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// IgnoredFolders returns the parsed ignore set.
func (c *Config) IgnoredFolders() ignore.Set {
	return ignore.Parse(c.Ignored.Folders)
}

// TargetLanguage returns the normalized subtitle language.
func (c *Config) TargetLanguage() Language {
	if c.language.File == "" {
		lang, err := ParseLanguage(c.OpenSubtitles.Language)
		if err != nil {
			return Language{File: defaultOpenSubtitlesLanguage, API: "en"}
		}
		return lang
	}
	return c.language
}

// Throttle returns the fixed delay applied before every subtitle fetch.
func (c *Config) Throttle() time.Duration {
	return time.Duration(c.OpenSubtitles.ThrottleSeconds) * time.Second
}

// RequestTimeout returns the HTTP timeout for OpenSubtitles calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.OpenSubtitles.RequestTimeoutSeconds) * time.Second
}

// LockPath returns the single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "subwatch.lock")
}

// PIDPath returns the pid file written by the daemon.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.LogDir, "subwatch.pid")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
