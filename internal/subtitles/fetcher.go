package subtitles

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"subwatch/internal/config"
	"subwatch/internal/fileutil"
	"subwatch/internal/logging"
	"subwatch/internal/media"
	"subwatch/internal/ratelimit"
	"subwatch/internal/subtitles/opensubtitles"
)

// Service is the subset of the OpenSubtitles client used by Fetcher.
type Service interface {
	Search(ctx context.Context, session opensubtitles.Session, req opensubtitles.SearchRequest) (opensubtitles.SearchResponse, error)
	Download(ctx context.Context, session opensubtitles.Session, fileID int64, opts opensubtitles.DownloadOptions) ([]opensubtitles.Blob, error)
}

// Outcome summarises what a fetch did.
type Outcome string

const (
	OutcomeFetched Outcome = "fetched"
	OutcomeNoMatch Outcome = "no_match"
	OutcomeFailed  Outcome = "failed"
)

// Result describes a single fetch.
type Result struct {
	Outcome      Outcome
	MediaPath    string
	SubtitlePath string
	Candidate    opensubtitles.Subtitle
	Candidates   int
	Bytes        int
}

// Options configures a Fetcher.
type Options struct {
	Language      config.Language
	DefaultFormat string
	Throttle      time.Duration
	Clock         ratelimit.Clock
	Logger        *slog.Logger
	// BuildRequest turns a video path into a search; defaults to
	// opensubtitles.RequestForFile.
	BuildRequest func(mediaPath string, languages ...string) opensubtitles.SearchRequest
}

// Fetcher runs the search, download, and write steps for one video at a time.
type Fetcher struct {
	service       Service
	language      config.Language
	defaultFormat string
	throttle      *ratelimit.Gate
	apiGate       *ratelimit.Gate
	clock         ratelimit.Clock
	logger        *slog.Logger
	buildRequest  func(string, ...string) opensubtitles.SearchRequest
}

// NewFetcher constructs a Fetcher around service.
func NewFetcher(service Service, opts Options) *Fetcher {
	clock := opts.Clock
	if clock == nil {
		clock = ratelimit.SystemClock{}
	}
	lang := opts.Language
	if lang.File == "" {
		lang = config.Language{File: "eng", API: "en"}
	}
	format := strings.ToLower(strings.TrimSpace(opts.DefaultFormat))
	if !media.IsSubtitleFormat(format) {
		format = "srt"
	}
	build := opts.BuildRequest
	if build == nil {
		build = opensubtitles.RequestForFile
	}
	return &Fetcher{
		service:       service,
		language:      lang,
		defaultFormat: format,
		throttle:      ratelimit.NewFixedDelay(opts.Throttle, clock),
		apiGate:       ratelimit.NewMinInterval(opensubtitles.MinInterval, clock),
		clock:         clock,
		logger:        logging.NewComponentLogger(opts.Logger, "subtitles"),
		buildRequest:  build,
	}
}

// NewFetcherFromConfig wires a Fetcher with the throttle, language, and format
// from cfg.
func NewFetcherFromConfig(cfg *config.Config, service Service, clock ratelimit.Clock, logger *slog.Logger) *Fetcher {
	return NewFetcher(service, Options{
		Language:      cfg.TargetLanguage(),
		DefaultFormat: cfg.OpenSubtitles.DefaultFormat,
		Throttle:      cfg.Throttle(),
		Clock:         clock,
		Logger:        logger,
	})
}

// Language returns the target subtitle language.
func (f *Fetcher) Language() config.Language {
	return f.language
}

// Fetch downloads and stores a subtitle for mediaPath using session. The
// throttle delay is applied before every attempt.
func (f *Fetcher) Fetch(ctx context.Context, session opensubtitles.Session, mediaPath string) (Result, error) {
	result := Result{Outcome: OutcomeFailed, MediaPath: mediaPath}
	logger := logging.WithContext(ctx, f.logger).With(logging.String(logging.FieldMediaPath, mediaPath))

	if err := f.throttle.Wait(ctx); err != nil {
		return result, err
	}

	req := f.buildRequest(mediaPath, f.language.API)
	logger.Info("searching subtitles",
		logging.String("language", f.language.API),
		logging.Bool("movie_hash", req.MovieHash != ""),
		logging.String("query", req.Query),
	)

	var resp opensubtitles.SearchResponse
	err := f.invoke(ctx, logger, func() error {
		var callErr error
		resp, callErr = f.service.Search(ctx, session, req)
		return callErr
	})
	if err != nil {
		return result, wrap(ErrSearch, "search", mediaPath, err)
	}

	result.Candidates = len(resp.Subtitles)
	if len(resp.Subtitles) == 0 {
		logger.Info("no subtitles found", logging.String(logging.FieldEventType, "subtitle_no_match"))
		result.Outcome = OutcomeNoMatch
		return result, nil
	}

	candidate := resp.Subtitles[0]
	result.Candidate = candidate
	logger.Info("downloading subtitle",
		logging.Int64("file_id", candidate.FileID),
		logging.String("file_name", candidate.FileName),
		logging.Int("candidates", len(resp.Subtitles)),
	)

	var blobs []opensubtitles.Blob
	err = f.invoke(ctx, logger, func() error {
		var callErr error
		blobs, callErr = f.service.Download(ctx, session, candidate.FileID, opensubtitles.DownloadOptions{Format: f.defaultFormat})
		return callErr
	})
	if err != nil {
		return result, wrap(ErrDownload, "download", candidate.FileName, err)
	}
	if len(blobs) == 0 {
		return result, wrap(ErrDownload, "download", candidate.FileName, errors.New("no payload returned"))
	}
	blob := blobs[0]

	// The service converts to the requested sub_format, so the file is named
	// after it rather than the candidate's release name.
	target := media.SubtitlePath(mediaPath, f.language.File, f.defaultFormat)
	if err := fileutil.WriteFileAtomic(target, blob.Data, 0o644); err != nil {
		return result, wrap(ErrWrite, "write", target, err)
	}

	result.Outcome = OutcomeFetched
	result.SubtitlePath = target
	result.Bytes = len(blob.Data)
	logger.Info("subtitle saved",
		logging.String("subtitle_path", target),
		logging.Int("bytes", len(blob.Data)),
		logging.String(logging.FieldEventType, "subtitle_saved"),
	)

	f.checkLanguage(logger, target, blob.Data)
	return result, nil
}
