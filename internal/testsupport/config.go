package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"subwatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a fresh temp directory: an existing
// media tree, log dir, and history database, plus placeholder credentials.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Search.Directory = filepath.Join(base, "media")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.HistoryDB = filepath.Join(base, "state", "history.db")
	cfgVal.OpenSubtitles.Login = "tester"
	cfgVal.OpenSubtitles.Password = "secret"
	cfgVal.OpenSubtitles.APIKey = "test"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}

	if err := os.MkdirAll(builder.cfg.Search.Directory, 0o755); err != nil {
		t.Fatalf("mkdir media dir: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithoutCredentials clears login, password, and API key.
func WithoutCredentials() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.OpenSubtitles.Login = ""
		b.cfg.OpenSubtitles.Password = ""
		b.cfg.OpenSubtitles.APIKey = ""
	}
}

// WithIgnored sets the ignored folder list.
func WithIgnored(folders string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ignored.Folders = folders
	}
}

// WithoutHistory disables the history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.HistoryDB = ""
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Search.Directory)
}
