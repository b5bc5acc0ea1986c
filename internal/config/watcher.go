package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDebounceDelay collapses the burst of events editors emit per save.
const DefaultDebounceDelay = 100 * time.Millisecond

// Stage prepares one part of a configuration reload without making it
// visible. The returned commit installs the prepared state; nil means there
// is nothing to install. An error abandons the whole reload.
type Stage func(*Config) (commit func(), err error)

// Reload steps reported by ReloadError besides the registered stage names.
const (
	StepLoad     = "load"
	StepValidate = "validate"
)

// ErrWatcherClosed is returned when an operation is attempted on a closed watcher.
var ErrWatcherClosed = errors.New("config: watcher already closed")

// ReloadError reports which step rejected a changed config file.
type ReloadError struct {
	Err  error
	Path string
	Step string
}

// Error implements the error interface.
func (e *ReloadError) Error() string {
	return fmt.Sprintf("config: reload of %s rejected at %s: %v", e.Path, e.Step, e.Err)
}

// Unwrap returns the rejecting error.
func (e *ReloadError) Unwrap() error {
	return e.Err
}

type namedStage struct {
	prepare Stage
	name    string
}

// Watcher reloads a config file when it changes on disk.
//
// A reload is all or nothing: every stage prepares the new configuration
// first, and commits run only when all of them accepted it. A file that
// fails to load, validate or prepare leaves every subscriber on the
// previous configuration.
type Watcher struct {
	fs     *fsnotify.Watcher
	logger *zerolog.Logger
	done   chan struct{}
	path   string
	stages []namedStage
	delay  time.Duration
	mu     sync.Mutex
	reload sync.Mutex
	closed bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounceDelay sets how long the file must stay quiet before a reload.
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.delay = d }
}

// WithWatcherLogger sets the logger reload outcomes are reported to.
func WithWatcherLogger(l *zerolog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher watches the directory of path so atomic saves (write to a
// temp file, rename over the original) are seen as well.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return nil, errors.Join(err, fsw.Close())
	}

	w := &Watcher{
		fs:     fsw,
		logger: &log.Logger,
		done:   make(chan struct{}),
		path:   abs,
		delay:  DefaultDebounceDelay,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// AddStage appends a reload stage. Stages prepare and commit in the order
// they were added.
func (w *Watcher) AddStage(name string, stage Stage) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stages = append(w.stages, namedStage{name: name, prepare: stage})
}

// Watch blocks until ctx is canceled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) error {
	target := filepath.Base(w.path)

	quiet := time.NewTimer(w.delay)
	quiet.Stop()
	defer quiet.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.done:
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			// Chmod comes from indexers and virus scanners.
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				quiet.Reset(w.delay)
			}

		case <-quiet.C:
			if err := w.Reload(); err != nil {
				w.logger.Error().Err(err).Str("path", w.path).Msg("config change not applied, keeping previous")
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

// Reload reads the file and runs it through every stage. It returns a
// *ReloadError when any step rejects the file; nothing is committed then.
func (w *Watcher) Reload() error {
	w.reload.Lock()
	defer w.reload.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		return &ReloadError{Path: w.path, Step: StepLoad, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return &ReloadError{Path: w.path, Step: StepValidate, Err: err}
	}

	w.mu.Lock()
	stages := append([]namedStage(nil), w.stages...)
	w.mu.Unlock()

	commits := make([]func(), 0, len(stages))
	for _, s := range stages {
		commit, err := s.prepare(cfg)
		if err != nil {
			return &ReloadError{Path: w.path, Step: s.name, Err: err}
		}
		if commit != nil {
			commits = append(commits, commit)
		}
	}
	for _, commit := range commits {
		commit()
	}

	w.logger.Info().Str("path", w.path).Int("stages", len(stages)).Msg("config file reloaded")
	return nil
}

// Close stops Watch and releases the file watch.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}
	w.closed = true
	close(w.done)
	return w.fs.Close()
}
