package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"subwatch/internal/logging"
)

// ErrAlreadyRunning is returned by Acquire when another process holds the lock.
var ErrAlreadyRunning = errors.New("another subwatch daemon instance is already running")

// Daemon owns the single-instance lock and pid file.
type Daemon struct {
	lockPath string
	pidPath  string
	lock     *flock.Flock
	logger   *slog.Logger

	mu   sync.Mutex
	held bool
}

// New prepares a guard for lockPath. pidPath may be empty to skip the pid file.
func New(lockPath, pidPath string, logger *slog.Logger) *Daemon {
	return &Daemon{
		lockPath: lockPath,
		pidPath:  pidPath,
		lock:     flock.New(lockPath),
		logger:   logging.NewComponentLogger(logger, "daemon"),
	}
}

// Acquire takes the lock without blocking and writes the pid file.
func (d *Daemon) Acquire() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.held {
		return errors.New("daemon lock already held by this process")
	}

	if err := os.MkdirAll(filepath.Dir(d.lockPath), 0o755); err != nil {
		return fmt.Errorf("ensure lock directory: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		if pid, err := ReadPID(d.pidPath); err == nil {
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		return ErrAlreadyRunning
	}

	if d.pidPath != "" {
		if err := os.WriteFile(d.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
			_ = d.lock.Unlock()
			return fmt.Errorf("write pid file: %w", err)
		}
	}

	d.held = true
	d.logger.Info("daemon lock acquired",
		logging.String("lock", d.lockPath),
		logging.Int("pid", os.Getpid()),
	)
	return nil
}

// Release removes the pid file and unlocks. It is safe to call more than once.
func (d *Daemon) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.held {
		return
	}
	if d.pidPath != "" {
		if err := os.Remove(d.pidPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logging.WarnWithContext(d.logger, "failed to remove pid file", "daemon_pid_cleanup_failed",
				logging.String("path", d.pidPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "stale pid file left behind"),
			)
		}
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "daemon_unlock_failed",
			logging.String("lock", d.lockPath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "lock is freed when the process exits"),
		)
	}
	d.held = false
	d.logger.Info("daemon lock released")
}

// Held reports whether this process holds the lock.
func (d *Daemon) Held() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.held
}

// ReadPID parses the pid file written by Acquire.
func ReadPID(path string) (int, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("pid path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pid, nil
}
