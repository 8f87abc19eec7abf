package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"subwatch/internal/config"
)

func clearOpenSubtitlesEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENSUBTITLES_LOGIN", "OPENSUBTITLES_PASSWORD", "OPENSUBTITLES_API_KEY", "SUBWATCH_SEARCH_DIR"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearOpenSubtitlesEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantLogDir := filepath.Join(tempHome, ".local", "share", "subwatch", "logs")
	if cfg.Paths.LogDir != wantLogDir {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogDir)
	}
	if cfg.Paths.HistoryDB != filepath.Join(tempHome, ".local", "share", "subwatch", "history.db") {
		t.Fatalf("unexpected history db: %q", cfg.Paths.HistoryDB)
	}
	if got := cfg.Throttle(); got != 10*time.Second {
		t.Fatalf("expected 10s throttle, got %s", got)
	}
	if cfg.Workflow.Schedule != "@every 1h" {
		t.Fatalf("unexpected schedule: %q", cfg.Workflow.Schedule)
	}
	lang := cfg.TargetLanguage()
	if lang.File != "eng" || lang.API != "en" {
		t.Fatalf("unexpected target language: %+v", lang)
	}
	if len(cfg.Warnings()) != 3 {
		t.Fatalf("expected three warnings for empty config, got %v", cfg.Warnings())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.LogDir); err != nil || !info.IsDir() {
		t.Fatalf("expected log dir to exist: %v", err)
	}
}

func TestLoadReadsDottedPropertyKeys(t *testing.T) {
	clearOpenSubtitlesEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subwatch.toml")
	mediaDir := filepath.Join(tempDir, "media")
	contents := strings.Join([]string{
		`search.directory = "` + filepath.ToSlash(mediaDir) + `"`,
		`opensubtitles.login = "alice"`,
		`opensubtitles.password = "hunter2"`,
		`opensubtitles.api_key = "key"`,
		`ignored.folders = " Extras ;Samples;; Extras "`,
		"",
		"[workflow]",
		`schedule = "@every 30m"`,
	}, "\n")
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Search.Directory != mediaDir {
		t.Fatalf("unexpected search dir: %q", cfg.Search.Directory)
	}
	if cfg.OpenSubtitles.Login != "alice" || cfg.OpenSubtitles.Password != "hunter2" {
		t.Fatalf("unexpected credentials: %+v", cfg.OpenSubtitles)
	}
	names := cfg.IgnoredFolders().Names()
	if len(names) != 2 || names[0] != "Extras" || names[1] != "Samples" {
		t.Fatalf("unexpected ignored folders: %v", names)
	}
	if cfg.Workflow.Schedule != "@every 30m" {
		t.Fatalf("unexpected schedule: %q", cfg.Workflow.Schedule)
	}
	if len(cfg.Warnings()) != 0 {
		t.Fatalf("expected no warnings, got %v", cfg.Warnings())
	}
}

func TestLoadFallsBackToEnvironment(t *testing.T) {
	clearOpenSubtitlesEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subwatch.toml")
	if err := os.WriteFile(configPath, []byte(`opensubtitles.login = "file-user"`+"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENSUBTITLES_LOGIN", "env-user")
	t.Setenv("OPENSUBTITLES_PASSWORD", "env-pass")
	t.Setenv("OPENSUBTITLES_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenSubtitles.Login != "file-user" {
		t.Errorf("expected file login to win, got %q", cfg.OpenSubtitles.Login)
	}
	if cfg.OpenSubtitles.Password != "env-pass" {
		t.Errorf("expected password from env, got %q", cfg.OpenSubtitles.Password)
	}
	if cfg.OpenSubtitles.APIKey != "env-key" {
		t.Errorf("expected api key from env, got %q", cfg.OpenSubtitles.APIKey)
	}
}

func TestLoadReadsDotEnvBesideConfig(t *testing.T) {
	clearOpenSubtitlesEnv(t)
	t.Chdir(t.TempDir())
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "subwatch.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("OPENSUBTITLES_API_KEY=dotenv-key\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("OPENSUBTITLES_API_KEY") })

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.OpenSubtitles.APIKey != "dotenv-key" {
		t.Fatalf("expected api key from .env, got %q", cfg.OpenSubtitles.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestCreateSampleDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_opensubtitles_api_key") {
		t.Fatalf("sample config missing placeholder API key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Search.Directory != "/srv/media" {
		t.Fatalf("expected sample search directory, got %q", cfg.Search.Directory)
	}
	if cfg.Ignored.Folders == "" {
		t.Fatal("expected sample ignored folders")
	}
	if cfg.Workflow.Schedule != "@every 1h" {
		t.Fatalf("unexpected sample schedule %q", cfg.Workflow.Schedule)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.Schedule = "every so often"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unparsable schedule")
	}

	cfg = config.Default()
	cfg.OpenSubtitles.ThrottleSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero throttle")
	}

	cfg = config.Default()
	cfg.OpenSubtitles.RequestTimeoutSeconds = 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for tiny request timeout")
	}

	cfg = config.Default()
	cfg.OpenSubtitles.DefaultFormat = "../srt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for path-like default format")
	}

	cfg = config.Default()
	cfg.OpenSubtitles.DefaultFormat = "webvtt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for default format outside the subtitle extension list")
	}

	cfg = config.Default()
	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown log level")
	}

	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestParseLanguage(t *testing.T) {
	cases := []struct {
		in       string
		wantFile string
		wantAPI  string
	}{
		{"eng", "eng", "en"},
		{"en", "eng", "en"},
		{" FR ", "fra", "fr"},
		{"deu", "deu", "de"},
	}
	for _, tc := range cases {
		got, err := config.ParseLanguage(tc.in)
		if err != nil {
			t.Fatalf("ParseLanguage(%q) error: %v", tc.in, err)
		}
		if got.File != tc.wantFile || got.API != tc.wantAPI {
			t.Fatalf("ParseLanguage(%q) = %+v", tc.in, got)
		}
	}
	if _, err := config.ParseLanguage(""); err == nil {
		t.Fatal("expected error for empty language")
	}
	if _, err := config.ParseLanguage("zzzz"); err == nil {
		t.Fatal("expected error for unknown language")
	}
}
