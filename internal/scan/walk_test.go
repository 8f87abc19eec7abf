package scan

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"subwatch/internal/ignore"
	"subwatch/internal/logging"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func collectFiles(t *testing.T, root string, ignored ignore.Set, opts ...Option) ([]string, Stats) {
	t.Helper()
	var files []string
	stats, err := Walk(context.Background(), root, ignored, func(_ context.Context, e Entry) Decision {
		if !e.Dir {
			rel, err := filepath.Rel(root, e.Path)
			if err != nil {
				t.Fatalf("rel: %v", err)
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return Continue
	}, opts...)
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	return files, stats
}

func TestWalkVisitsFilesInLexicalOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "b/movie.mkv", "a/show.avi", "a/nested/clip.mp4", "top.mkv")

	files, stats := collectFiles(t, root, ignore.Set{})

	want := []string{"a/nested/clip.mp4", "a/show.avi", "b/movie.mkv", "top.mkv"}
	if !slices.Equal(files, want) {
		t.Fatalf("visit order = %v, want %v", files, want)
	}
	if stats.Files != 4 || stats.Dirs != 4 || stats.Pruned != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestWalkPrunesIgnoredFoldersAtAnyDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"skip/movie.mkv",
		"keep/skip/deeper/movie.mkv",
		"keep/movie.mkv",
		"keep/skipped/movie.mkv",
	)

	files, stats := collectFiles(t, root, ignore.New("skip"))

	if want := []string{"keep/movie.mkv", "keep/skipped/movie.mkv"}; !slices.Equal(files, want) {
		t.Fatalf("visited %v, want %v", files, want)
	}
	if stats.Pruned != 2 {
		t.Fatalf("expected 2 pruned folders, got %d", stats.Pruned)
	}
}

func TestWalkIgnoresRootNamedInSet(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "Extras")
	writeTree(t, root, "movie.mkv")

	files, stats := collectFiles(t, root, ignore.New("Extras"))

	if len(files) != 0 || stats.Pruned != 1 {
		t.Fatalf("expected ignored root to be pruned, files=%v stats=%+v", files, stats)
	}
}

func TestWalkSkipSubtreeFromVisit(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a/one.mkv", "b/two.mkv")

	var files []string
	_, err := Walk(context.Background(), root, ignore.Set{}, func(_ context.Context, e Entry) Decision {
		if e.Dir && filepath.Base(e.Path) == "a" {
			return SkipSubtree
		}
		if !e.Dir {
			files = append(files, filepath.Base(e.Path))
		}
		return Continue
	})
	if err != nil {
		t.Fatalf("Walk returned error: %v", err)
	}
	if !slices.Equal(files, []string{"two.mkv"}) {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestWalkMissingRootFails(t *testing.T) {
	_, err := Walk(context.Background(), filepath.Join(t.TempDir(), "missing"), ignore.Set{}, nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestWalkUnreadableSubtreeIsLoggedAndSkipped(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	root := t.TempDir()
	writeTree(t, root, "locked/movie.mkv", "open/movie.mkv")
	locked := filepath.Join(root, "locked")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	files, stats := collectFiles(t, root, ignore.Set{}, WithLogger(logger))

	if !slices.Equal(files, []string{"open/movie.mkv"}) {
		t.Fatalf("unexpected files %v", files)
	}
	if stats.DirErrors != 1 {
		t.Fatalf("expected one directory error, got %d", stats.DirErrors)
	}
	if !strings.Contains(buf.String(), `"event_type":"scan_dir_error"`) {
		t.Fatalf("expected scan_dir_error log, got %s", buf.String())
	}
}

func TestWalkStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "movie.mkv")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	visited := 0
	_, err := Walk(ctx, root, ignore.Set{}, func(context.Context, Entry) Decision {
		visited++
		return Continue
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if visited != 0 {
		t.Fatalf("expected no visits, got %d", visited)
	}
}
