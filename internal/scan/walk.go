package scan

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"subwatch/internal/ignore"
	"subwatch/internal/logging"
)

// Decision tells the walker how to proceed after visiting an entry.
type Decision int

const (
	// Continue keeps walking normally.
	Continue Decision = iota
	// SkipSubtree prunes a directory, or the rest of a file's directory.
	SkipSubtree
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case SkipSubtree:
		return "skip_subtree"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Entry is one directory or file reached by the walk.
type Entry struct {
	Path string
	Dir  bool
}

// VisitFunc is called for every entry that survives the ignore filter.
type VisitFunc func(ctx context.Context, entry Entry) Decision

// Stats summarises one walk.
type Stats struct {
	Dirs      int
	Files     int
	Pruned    int
	DirErrors int
}

// Option customises Walk.
type Option func(*walker)

// WithLogger routes walk diagnostics to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *walker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

type walker struct {
	root    string
	ignored ignore.Set
	visit   VisitFunc
	logger  *slog.Logger
	stats   Stats
}

// Walk traverses root depth-first in lexical order. Directories whose base
// name is in ignored are pruned without being visited, the root included. I/O
// errors below the root are logged and counted and that subtree is skipped;
// an unreadable root or a cancelled ctx ends the walk with an error.
func Walk(ctx context.Context, root string, ignored ignore.Set, visit VisitFunc, opts ...Option) (Stats, error) {
	w := &walker{
		root:    filepath.Clean(root),
		ignored: ignored,
		visit:   visit,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}

	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			return w.handleError(path, d, walkErr)
		}
		if d.IsDir() {
			return w.enterDir(ctx, path)
		}
		w.stats.Files++
		if w.visit != nil && w.visit(ctx, Entry{Path: path}) == SkipSubtree {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return w.stats, err
	}
	return w.stats, nil
}

func (w *walker) enterDir(ctx context.Context, path string) error {
	if w.ignored.ShouldSkip(path) {
		w.stats.Pruned++
		w.logger.Debug("ignored folder pruned",
			logging.String("path", path),
			logging.String(logging.FieldEventType, "scan_dir_pruned"),
		)
		return filepath.SkipDir
	}
	w.stats.Dirs++
	if w.visit != nil && w.visit(ctx, Entry{Path: path, Dir: true}) == SkipSubtree {
		return filepath.SkipDir
	}
	return nil
}

func (w *walker) handleError(path string, d fs.DirEntry, walkErr error) error {
	if path == w.root {
		return fmt.Errorf("walk %s: %w", w.root, walkErr)
	}
	w.stats.DirErrors++
	logging.WarnWithContext(w.logger, "subtree unreadable; skipping", "scan_dir_error",
		logging.String("path", path),
		logging.Error(walkErr),
		logging.String(logging.FieldErrorHint, "check permissions on the media tree"),
		logging.String(logging.FieldImpact, "files below this path are not checked this pass"),
	)
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}
