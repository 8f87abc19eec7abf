package subtitles

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"subwatch/internal/config"
	"subwatch/internal/logging"
	"subwatch/internal/ratelimit"
	"subwatch/internal/subtitles/opensubtitles"
)

type fakeService struct {
	searchResults []opensubtitles.SearchResponse
	searchErrs    []error
	blobs         []opensubtitles.Blob
	downloadErr   error

	searches  []opensubtitles.SearchRequest
	sessions  []opensubtitles.Session
	downloads []int64
	formats   []string
}

func (f *fakeService) Search(_ context.Context, session opensubtitles.Session, req opensubtitles.SearchRequest) (opensubtitles.SearchResponse, error) {
	call := len(f.searches)
	f.searches = append(f.searches, req)
	f.sessions = append(f.sessions, session)
	if call < len(f.searchErrs) && f.searchErrs[call] != nil {
		return opensubtitles.SearchResponse{}, f.searchErrs[call]
	}
	if call < len(f.searchResults) {
		return f.searchResults[call], nil
	}
	if len(f.searchResults) > 0 {
		return f.searchResults[len(f.searchResults)-1], nil
	}
	return opensubtitles.SearchResponse{}, nil
}

func (f *fakeService) Download(_ context.Context, session opensubtitles.Session, fileID int64, opts opensubtitles.DownloadOptions) ([]opensubtitles.Blob, error) {
	f.downloads = append(f.downloads, fileID)
	f.formats = append(f.formats, opts.Format)
	f.sessions = append(f.sessions, session)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.blobs, nil
}

func newTestFetcher(t *testing.T, service Service, logger *bytes.Buffer) (*Fetcher, *ratelimit.FakeClock) {
	t.Helper()
	clock := ratelimit.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	opts := Options{
		Language: config.Language{File: "eng", API: "en"},
		Throttle: 10 * time.Second,
		Clock:    clock,
	}
	if logger != nil {
		l, err := logging.New(logging.Options{Format: "json", Level: "debug", Writer: logger})
		if err != nil {
			t.Fatalf("logger: %v", err)
		}
		opts.Logger = l
	}
	return NewFetcher(service, opts), clock
}

func writeVideo(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}
	return path
}

func oneCandidate(fileID int64, name, format string) opensubtitles.SearchResponse {
	return opensubtitles.SearchResponse{Subtitles: []opensubtitles.Subtitle{{ID: "1", FileID: fileID, FileName: name, Format: format}}}
}

var session = opensubtitles.Session{Token: "tok"}

func TestFetchWritesFirstBlobBesideVideo(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	service := &fakeService{
		searchResults: []opensubtitles.SearchResponse{oneCandidate(123, "movie.srt", "srt")},
		blobs:         []opensubtitles.Blob{{Name: "movie.srt", Data: []byte("subtitle bytes")}},
	}
	fetcher, clock := newTestFetcher(t, service, nil)

	result, err := fetcher.Fetch(context.Background(), session, video)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	want := filepath.Join(dir, "movie.mkv.eng.srt")
	if result.Outcome != OutcomeFetched || result.SubtitlePath != want {
		t.Fatalf("unexpected result: %+v", result)
	}
	got, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read subtitle: %v", err)
	}
	if string(got) != "subtitle bytes" {
		t.Fatalf("unexpected subtitle contents %q", got)
	}
	if len(service.downloads) != 1 || service.downloads[0] != 123 {
		t.Fatalf("unexpected downloads: %v", service.downloads)
	}
	for _, s := range service.sessions {
		if s != session {
			t.Fatalf("expected session passed through, got %+v", s)
		}
	}
	if req := service.searches[0]; req.Query != "movie" || strings.Join(req.Languages, ",") != "en" {
		t.Fatalf("unexpected search request: %+v", req)
	}
	if sleeps := clock.Sleeps(); len(sleeps) == 0 || sleeps[0] != 10*time.Second {
		t.Fatalf("expected 10s throttle before fetch, got %v", sleeps)
	}
}

func TestFetchUsesOnlyFirstCandidateAndBlob(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.avi")
	service := &fakeService{
		searchResults: []opensubtitles.SearchResponse{{Subtitles: []opensubtitles.Subtitle{
			{FileID: 1, FileName: "a.sub", Format: "sub"},
			{FileID: 2, FileName: "b.srt", Format: "srt"},
			{FileID: 3, FileName: "c.srt", Format: "srt"},
		}}},
		blobs: []opensubtitles.Blob{
			{Name: "first", Data: []byte("first")},
			{Name: "second", Data: []byte("second")},
		},
	}
	fetcher, _ := newTestFetcher(t, service, nil)

	result, err := fetcher.Fetch(context.Background(), session, video)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(service.downloads) != 1 || service.downloads[0] != 1 {
		t.Fatalf("expected only candidate[0] downloaded, got %v", service.downloads)
	}
	if result.Candidates != 3 {
		t.Fatalf("expected 3 candidates reported, got %d", result.Candidates)
	}
	got, err := os.ReadFile(filepath.Join(dir, "movie.avi.eng.srt"))
	if err != nil {
		t.Fatalf("read subtitle: %v", err)
	}
	if string(got) != "first" {
		t.Fatalf("expected first blob written, got %q", got)
	}
}

func TestFetchNoCandidatesSkipsDownload(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	service := &fakeService{}
	fetcher, _ := newTestFetcher(t, service, nil)

	result, err := fetcher.Fetch(context.Background(), session, video)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.Outcome != OutcomeNoMatch {
		t.Fatalf("expected no match, got %+v", result)
	}
	if len(service.downloads) != 0 {
		t.Fatalf("expected no download, got %v", service.downloads)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Fatalf("expected no file written, got %d entries", len(entries))
	}
}

func TestFetchNamesFileAfterRequestedFormat(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	service := &fakeService{
		searchResults: []opensubtitles.SearchResponse{oneCandidate(9, "Movie.2012.DVDRip.XviD-SPARKS", "")},
		blobs:         []opensubtitles.Blob{{Name: "Movie.2012.DVDRip.XviD-SPARKS", Data: []byte("x")}},
	}
	fetcher, _ := newTestFetcher(t, service, nil)

	result, err := fetcher.Fetch(context.Background(), session, video)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if filepath.Base(result.SubtitlePath) != "movie.mkv.eng.srt" {
		t.Fatalf("unexpected subtitle path %q", result.SubtitlePath)
	}
	if len(service.formats) != 1 || service.formats[0] != "srt" {
		t.Fatalf("expected srt requested from the service, got %v", service.formats)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("expected video plus one subtitle, got %d entries", len(entries))
	}
}

func TestFetchConfiguredFormat(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	service := &fakeService{
		searchResults: []opensubtitles.SearchResponse{oneCandidate(9, "movie.srt", "srt")},
		blobs:         []opensubtitles.Blob{{Data: []byte("x")}},
	}
	fetcher := NewFetcher(service, Options{
		DefaultFormat: " ASS ",
		Clock:         ratelimit.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	})

	result, err := fetcher.Fetch(context.Background(), session, video)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if filepath.Base(result.SubtitlePath) != "movie.mkv.eng.ass" || service.formats[0] != "ass" {
		t.Fatalf("expected ass format, path=%q requested=%v", result.SubtitlePath, service.formats)
	}

	unknown := NewFetcher(&fakeService{}, Options{DefaultFormat: "XviD-SPARKS"})
	if unknown.defaultFormat != "srt" {
		t.Fatalf("expected unrecognised format to fall back to srt, got %q", unknown.defaultFormat)
	}
}

func TestFetchOverwritesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	target := filepath.Join(dir, "movie.mkv.eng.srt")
	if err := os.WriteFile(target, []byte("stale content"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	service := &fakeService{
		searchResults: []opensubtitles.SearchResponse{oneCandidate(9, "movie.srt", "srt")},
		blobs:         []opensubtitles.Blob{{Data: []byte("fresh")}},
	}
	fetcher, _ := newTestFetcher(t, service, nil)

	if _, err := fetcher.Fetch(context.Background(), session, video); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	got, _ := os.ReadFile(target)
	if string(got) != "fresh" {
		t.Fatalf("expected overwrite, got %q", got)
	}
}

func TestFetchSearchFailureIsWrapped(t *testing.T) {
	video := writeVideo(t, t.TempDir(), "movie.mkv")
	service := &fakeService{searchErrs: []error{&opensubtitles.APIError{Op: "search", Status: 401, Message: "bad token"}}}
	fetcher, _ := newTestFetcher(t, service, nil)

	result, err := fetcher.Fetch(context.Background(), session, video)
	if !errors.Is(err, ErrSearch) {
		t.Fatalf("expected ErrSearch, got %v", err)
	}
	var apiErr *opensubtitles.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Fatalf("expected APIError preserved, got %v", err)
	}
	if result.Outcome != OutcomeFailed || len(service.searches) != 1 || len(service.downloads) != 0 {
		t.Fatalf("unexpected calls: result=%+v searches=%d downloads=%d", result, len(service.searches), len(service.downloads))
	}
}

func TestFetchRetriesTransientErrors(t *testing.T) {
	dir := t.TempDir()
	video := writeVideo(t, dir, "movie.mkv")
	var logs bytes.Buffer
	service := &fakeService{
		searchErrs:    []error{&opensubtitles.APIError{Op: "search", Status: 503}},
		searchResults: []opensubtitles.SearchResponse{{}, oneCandidate(5, "movie.srt", "srt")},
		blobs:         []opensubtitles.Blob{{Data: []byte("x")}},
	}
	fetcher, clock := newTestFetcher(t, service, &logs)

	result, err := fetcher.Fetch(context.Background(), session, video)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if result.Outcome != OutcomeFetched || len(service.searches) != 2 {
		t.Fatalf("expected retry then success, result=%+v searches=%d", result, len(service.searches))
	}
	found := false
	for _, d := range clock.Sleeps() {
		if d == opensubtitles.InitialBackoff {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected initial backoff sleep, got %v", clock.Sleeps())
	}
	if !strings.Contains(logs.String(), "opensubtitles_rate_limited") {
		t.Fatalf("expected rate limit warning, got %s", logs.String())
	}
}

func TestFetchGivesUpAfterMaxRetries(t *testing.T) {
	video := writeVideo(t, t.TempDir(), "movie.mkv")
	errs := make([]error, opensubtitles.MaxRateRetries+5)
	for i := range errs {
		errs[i] = &opensubtitles.APIError{Op: "search", Status: 429}
	}
	service := &fakeService{searchErrs: errs}
	fetcher, _ := newTestFetcher(t, service, nil)

	_, err := fetcher.Fetch(context.Background(), session, video)
	if !errors.Is(err, ErrSearch) {
		t.Fatalf("expected ErrSearch, got %v", err)
	}
	if len(service.searches) != opensubtitles.MaxRateRetries+1 {
		t.Fatalf("expected %d attempts, got %d", opensubtitles.MaxRateRetries+1, len(service.searches))
	}
}

func TestFetchEmptyDownloadIsError(t *testing.T) {
	video := writeVideo(t, t.TempDir(), "movie.mkv")
	service := &fakeService{searchResults: []opensubtitles.SearchResponse{oneCandidate(5, "movie.srt", "srt")}}
	fetcher, _ := newTestFetcher(t, service, nil)

	if _, err := fetcher.Fetch(context.Background(), session, video); !errors.Is(err, ErrDownload) {
		t.Fatalf("expected ErrDownload, got %v", err)
	}
}

func TestFetchWriteFailureIsWrapped(t *testing.T) {
	video := filepath.Join(t.TempDir(), "gone", "movie.mkv")
	service := &fakeService{
		searchResults: []opensubtitles.SearchResponse{oneCandidate(5, "movie.srt", "srt")},
		blobs:         []opensubtitles.Blob{{Data: []byte("x")}},
	}
	fetcher, _ := newTestFetcher(t, service, nil)

	if _, err := fetcher.Fetch(context.Background(), session, video); !errors.Is(err, ErrWrite) {
		t.Fatalf("expected ErrWrite, got %v", err)
	}
}

func TestFetchHonoursCancelledContext(t *testing.T) {
	video := writeVideo(t, t.TempDir(), "movie.mkv")
	service := &fakeService{}
	fetcher, _ := newTestFetcher(t, service, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := fetcher.Fetch(ctx, session, video); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(service.searches) != 0 {
		t.Fatal("expected no search after cancellation")
	}
}
