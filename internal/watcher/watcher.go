package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"subwatch/internal/config"
	"subwatch/internal/history"
	"subwatch/internal/ignore"
	"subwatch/internal/logging"
	"subwatch/internal/media"
	"subwatch/internal/ratelimit"
	"subwatch/internal/scan"
	"subwatch/internal/subtitles"
	"subwatch/internal/subtitles/opensubtitles"
)

const logoutTimeout = 30 * time.Second

// Authenticator opens and closes OpenSubtitles sessions.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (opensubtitles.Session, error)
	Logout(ctx context.Context, session opensubtitles.Session) error
}

// Fetcher retrieves one subtitle for one video.
type Fetcher interface {
	Fetch(ctx context.Context, session opensubtitles.Session, mediaPath string) (subtitles.Result, error)
	Language() config.Language
}

// Recorder persists fetch attempts.
type Recorder interface {
	Record(ctx context.Context, attempt history.Attempt) error
}

// Credentials identify the OpenSubtitles account.
type Credentials struct {
	Login    string
	Password string
}

// Options configures a Watcher.
type Options struct {
	Root        string
	Ignored     ignore.Set
	Credentials Credentials
	Auth        Authenticator
	Fetcher     Fetcher
	// Recorder is optional; nil disables history.
	Recorder   Recorder
	Classifier media.Classifier
	Clock      ratelimit.Clock
	// Schedule defaults to every hour.
	Schedule cron.Schedule
	// Language is the ISO 639-2 code in subtitle file names. Defaults to the
	// fetcher's language, or eng.
	Language string
	// DryRun lists videos lacking subtitles without logging in or fetching.
	DryRun    bool
	Logger    *slog.Logger
	NewPassID func() string
}

// Watcher runs poll passes over one media tree.
type Watcher struct {
	root       string
	ignored    ignore.Set
	creds      Credentials
	auth       Authenticator
	fetcher    Fetcher
	recorder   Recorder
	classifier media.Classifier
	clock      ratelimit.Clock
	schedule   cron.Schedule
	logger     *slog.Logger
	language   string
	dryRun     bool
	newPassID  func() string
}

// PassReport summarises one pass.
type PassReport struct {
	ID       string
	Started  time.Time
	Finished time.Time
	Walk     scan.Stats
	// Videos counts media files seen; Covered those that already had a subtitle.
	Videos  int
	Covered int
	Fetched int
	NoMatch int
	Failed  int
	// Missing lists videos without a subtitle; filled only on dry runs.
	Missing []string
	Err     error
}

// Duration reports how long the pass took.
func (r PassReport) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// New constructs a Watcher.
func New(opts Options) (*Watcher, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("watcher: search directory is required")
	}
	if !opts.DryRun {
		if opts.Auth == nil {
			return nil, errors.New("watcher: authenticator is required")
		}
		if opts.Fetcher == nil {
			return nil, errors.New("watcher: fetcher is required")
		}
	}
	clock := opts.Clock
	if clock == nil {
		clock = ratelimit.SystemClock{}
	}
	schedule := opts.Schedule
	if schedule == nil {
		schedule = cron.Every(time.Hour)
	}
	lang := strings.TrimSpace(opts.Language)
	if lang == "" && opts.Fetcher != nil {
		lang = opts.Fetcher.Language().File
	}
	if lang == "" {
		lang = "eng"
	}
	newID := opts.NewPassID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Watcher{
		root:       opts.Root,
		ignored:    opts.Ignored,
		creds:      opts.Credentials,
		auth:       opts.Auth,
		fetcher:    opts.Fetcher,
		recorder:   opts.Recorder,
		classifier: opts.Classifier,
		clock:      clock,
		schedule:   schedule,
		logger:     logging.NewComponentLogger(opts.Logger, "watcher"),
		language:   lang,
		dryRun:     opts.DryRun,
		newPassID:  newID,
	}, nil
}

// NewFromConfig wires a Watcher from cfg.
func NewFromConfig(cfg *config.Config, auth Authenticator, fetcher Fetcher, recorder Recorder, clock ratelimit.Clock, logger *slog.Logger) (*Watcher, error) {
	schedule, err := config.ParseSchedule(cfg.Workflow.Schedule)
	if err != nil {
		return nil, err
	}
	return New(Options{
		Root:        cfg.Search.Directory,
		Ignored:     cfg.IgnoredFolders(),
		Credentials: Credentials{Login: cfg.OpenSubtitles.Login, Password: cfg.OpenSubtitles.Password},
		Auth:        auth,
		Fetcher:     fetcher,
		Recorder:    recorder,
		Clock:       clock,
		Schedule:    schedule,
		Language:    cfg.TargetLanguage().File,
		Logger:      logger,
	})
}

// Run executes passes until ctx is cancelled, waiting for the next scheduled
// activation after each one. Pass failures are logged and never end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		if _, err := w.RunPass(ctx); err != nil && ctx.Err() == nil {
			logging.WarnWithContext(w.logger, "pass ended with error", "pass_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "retried at the next scheduled pass"),
			)
		}
		if ctx.Err() != nil {
			w.logger.Info("poll loop stopped")
			return nil
		}

		now := w.clock.Now()
		next := w.schedule.Next(now)
		w.logger.Info("next pass scheduled",
			logging.Time("next_run", next),
			logging.Duration("wait", next.Sub(now)),
		)
		if err := ratelimit.Sleep(ctx, w.clock, next.Sub(now)); err != nil {
			w.logger.Info("poll loop stopped")
			return nil
		}
	}
}

// RunPass performs exactly one login, walk, logout cycle.
func (w *Watcher) RunPass(ctx context.Context) (PassReport, error) {
	report := PassReport{ID: w.newPassID(), Started: w.clock.Now()}
	ctx = logging.WithPassID(ctx, report.ID)
	logger := logging.WithContext(ctx, w.logger)

	logger.Info("pass started",
		logging.String("root", w.root),
		logging.Bool("dry_run", w.dryRun),
		logging.String("ignored", w.ignored.String()),
	)

	var session opensubtitles.Session
	if !w.dryRun {
		var err error
		session, err = w.auth.Login(ctx, w.creds.Login, w.creds.Password)
		if err == nil && !session.Valid() {
			err = opensubtitles.ErrNoToken
		}
		if err != nil {
			report.Err = fmt.Errorf("login: %w", err)
			report.Finished = w.clock.Now()
			logging.ErrorWithContext(logger, "login failed; pass skipped", "login_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check opensubtitles.login, password and api_key"),
				logging.String(logging.FieldImpact, "no subtitles fetched until the next pass"),
			)
			return report, report.Err
		}
		logger.Info("logged in", logging.String("user", session.User))
		defer w.logout(ctx, logger, session)
	}

	stats, err := scan.Walk(ctx, w.root, w.ignored, func(ctx context.Context, entry scan.Entry) scan.Decision {
		if !entry.Dir {
			w.visitFile(ctx, logger, session, entry.Path, &report)
		}
		return scan.Continue
	}, scan.WithLogger(logger))
	report.Walk = stats
	report.Finished = w.clock.Now()
	if err != nil {
		report.Err = err
		if ctx.Err() == nil {
			logging.ErrorWithContext(logger, "walk failed", "scan_root_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check search.directory exists and is readable"),
			)
		}
		return report, err
	}

	logger.Info("pass finished",
		logging.Int("videos", report.Videos),
		logging.Int("covered", report.Covered),
		logging.Int("fetched", report.Fetched),
		logging.Int("no_match", report.NoMatch),
		logging.Int("failed", report.Failed),
		logging.Int("pruned", stats.Pruned),
		logging.Int("dir_errors", stats.DirErrors),
		logging.Duration("duration", report.Duration()),
		logging.String(logging.FieldEventType, "pass_finished"),
	)
	return report, nil
}

func (w *Watcher) visitFile(ctx context.Context, logger *slog.Logger, session opensubtitles.Session, path string, report *PassReport) {
	if !media.IsMedia(path) {
		return
	}
	report.Videos++
	if w.classifier.HasSubtitle(path, w.language) {
		report.Covered++
		logger.Debug("subtitle present", logging.String(logging.FieldMediaPath, path))
		return
	}
	if w.dryRun {
		report.Missing = append(report.Missing, path)
		logger.Info("subtitle missing", logging.String(logging.FieldMediaPath, path))
		return
	}

	result, err := w.fetcher.Fetch(ctx, session, path)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		report.Failed++
		logging.WarnWithContext(logger, "subtitle fetch failed", "subtitle_fetch_failed",
			logging.String(logging.FieldMediaPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "video stays without subtitle until the next pass"),
		)
	} else {
		switch result.Outcome {
		case subtitles.OutcomeFetched:
			report.Fetched++
		case subtitles.OutcomeNoMatch:
			report.NoMatch++
		}
	}
	w.record(ctx, logger, path, result, err)
}

func (w *Watcher) record(ctx context.Context, logger *slog.Logger, path string, result subtitles.Result, fetchErr error) {
	if w.recorder == nil {
		return
	}
	id, _ := logging.PassIDFromContext(ctx)
	attempt := history.Attempt{
		PassID:       id,
		MediaPath:    path,
		Outcome:      string(result.Outcome),
		SubtitlePath: result.SubtitlePath,
		FileID:       result.Candidate.FileID,
		At:           w.clock.Now(),
	}
	if fetchErr != nil {
		attempt.Outcome = string(subtitles.OutcomeFailed)
		attempt.Error = fetchErr.Error()
	}
	if err := w.recorder.Record(ctx, attempt); err != nil {
		logging.WarnWithContext(logger, "history record failed", "history_record_failed",
			logging.String(logging.FieldMediaPath, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "attempt missing from fetch history"),
		)
	}
}

func (w *Watcher) logout(ctx context.Context, logger *slog.Logger, session opensubtitles.Session) {
	logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
	defer cancel()
	if err := w.auth.Logout(logoutCtx, session); err != nil {
		logging.WarnWithContext(logger, "logout failed", "logout_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session token left to expire on the server"),
		)
		return
	}
	logger.Info("logged out")
}
