// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a pipeline when its definition changes.
//
// It monitors the pipeline file's directory and invokes a callback after a
// debounce period. Events within the debounce window are coalesced so an
// editor's write-then-rename dance triggers a single re-run.
package watch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is the delay before firing the callback after the last
// filesystem event.
const defaultDebounce = 500 * time.Millisecond

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// PipelineFile is the pipeline definition to watch. Its directory is
		// monitored; only events matching the file (or Patterns) fire.
		PipelineFile string

		// Patterns are additional doublestar globs (relative to the pipeline
		// file's directory) that also trigger re-runs.
		Patterns []string

		// Debounce is the quiet period after the last event before the
		// callback fires. Zero or negative values fall back to the default.
		Debounce time.Duration

		// OnChange is called after the debounce window closes. A nil
		// callback is a no-op.
		OnChange func(ctx context.Context) error

		// Stderr receives watcher diagnostics. Nil defaults to os.Stderr.
		Stderr io.Writer
	}

	// Watcher monitors the pipeline file and fires a debounced callback on
	// change. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		baseDir  string
		fileName string
		debounce time.Duration
		stderr   io.Writer
		started  atomic.Bool
	}
)

// New creates a Watcher for the given Config. The pipeline file's directory
// is registered with fsnotify; pattern validation happens eagerly so invalid
// globs fail here rather than silently never matching.
func New(cfg Config) (*Watcher, error) {
	if cfg.PipelineFile == "" {
		return nil, fmt.Errorf("watch: no pipeline file configured")
	}

	abs, err := filepath.Abs(cfg.PipelineFile)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve pipeline file: %w", err)
	}

	for _, pat := range cfg.Patterns {
		if _, err := doublestar.Match(pat, ""); err != nil {
			return nil, fmt.Errorf("watch: invalid pattern %q: %w", pat, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	baseDir := filepath.Dir(abs)
	if err := fsw.Add(baseDir); err != nil {
		fsw.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("watch: add directory %q: %w", baseDir, err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		baseDir:  baseDir,
		fileName: filepath.Base(abs),
		debounce: debounce,
		stderr:   stderr,
	}, nil
}

// Run blocks until ctx is cancelled, processing filesystem events and
// dispatching debounced callbacks. It returns nil on clean context
// cancellation and propagates fatal watcher errors. Run must be called
// exactly once; a second call returns an error immediately.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		dirty   bool
		timer   *time.Timer
		running atomic.Bool
	)

	// fire invokes the OnChange callback once per quiet period. When a run
	// is still in progress the timer is re-armed so the pending change is
	// not lost.
	fire := func() {
		if ctx.Err() != nil {
			return
		}
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if !dirty {
			mu.Unlock()
			return
		}
		dirty = false
		mu.Unlock()

		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx); err != nil {
				fmt.Fprintf(w.stderr, "watch: callback error: %v\n", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		localTimer := timer
		mu.Unlock()
		if localTimer != nil && !localTimer.Stop() {
			select {
			case <-localTimer.C:
			default:
			}
		}
		if closeErr := w.fsw.Close(); closeErr != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", closeErr)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed unexpectedly")
			}

			rel, err := filepath.Rel(w.baseDir, evt.Name)
			if err != nil {
				rel = evt.Name
			}
			if !w.matches(rel) {
				continue
			}

			mu.Lock()
			dirty = true
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed unexpectedly")
			}
			// Resource exhaustion means the watcher cannot recover;
			// classification is platform-specific (see watcher_fatal_*.go).
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)
		}
	}
}

// matches reports whether a path relative to the watched directory should
// trigger a re-run: the pipeline file itself, or any configured pattern.
func (w *Watcher) matches(rel string) bool {
	normalized := filepath.ToSlash(rel)
	if normalized == w.fileName {
		return true
	}
	for _, pat := range w.cfg.Patterns {
		if matched, err := doublestar.Match(pat, normalized); err == nil && matched {
			return true
		}
	}
	return false
}
