// Package watch follows a growing file and emits each complete line appended to it.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stackvity/filehandle/internal/config"
	"github.com/stackvity/filehandle/internal/filesystem"
	"github.com/stackvity/filehandle/internal/handle"
)

// Follower reads lines appended to a single file. It survives truncation
// (the cursor rewinds to the start) and replacement (the new file is read
// from the start once it appears).
//
// Events are observed on the parent directory so that a removed and
// re-created file keeps being followed.
type Follower struct {
	fsys      filesystem.FileSystem
	path      string
	debounce  time.Duration
	fromStart bool
	logger    *slog.Logger

	h      *handle.Handle
	reopen bool // set after the followed file went away
}

// NewFollower prepares a Follower for path. Nothing is opened until Run.
// A non-positive debounce falls back to config.DefaultDebounce.
func NewFollower(fsys filesystem.FileSystem, path string, debounce time.Duration, fromStart bool, logger *slog.Logger) *Follower {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = config.DefaultDebounce
	}
	return &Follower{
		fsys:      fsys,
		path:      filepath.Clean(path),
		debounce:  debounce,
		fromStart: fromStart,
		logger:    logger,
		h:         handle.New(fsys, logger),
	}
}

// Run opens the file and calls emit for every complete line until ctx is
// done, returning ctx.Err(). Unless the follower was built with fromStart,
// lines already present when Run starts are skipped. An error from emit
// stops the follower.
func (f *Follower) Run(ctx context.Context, emit func(line string) error) error {
	mode := handle.ModeRead
	if !f.fromStart {
		mode |= handle.ModeAtEnd
	}
	if err := f.h.Open(f.path, mode); err != nil {
		return err
	}
	defer func() {
		if _, err := f.h.Close(); err != nil {
			f.logger.Warn("Failed to close followed file", "path", f.path, "error", err)
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory '%s': %w", dir, err)
	}

	if err := f.drain(emit); err != nil {
		return err
	}

	f.logger.Info("Following file", "path", f.path, "debounce", f.debounce)

	var debounceTimer *time.Timer
	trigger := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			f.logger.Debug("Stopping follower", "path", f.path)
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			f.logger.Debug("Watcher event received", "event", event.String())

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.release()
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(f.debounce, func() {
					select {
					case trigger <- struct{}{}:
					default:
					}
				})
			}

		case <-trigger:
			if err := f.sync(emit); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			f.logger.Error("File watcher error encountered, attempting to continue", "error", err)
		}
	}
}

// release closes the followed file after it was removed or renamed away.
func (f *Follower) release() {
	if f.reopen {
		return
	}
	f.reopen = true
	if _, err := f.h.Close(); err != nil {
		f.logger.Warn("Failed to close followed file", "path", f.path, "error", err)
	}
	f.logger.Info("Followed file went away, waiting for it to return", "path", f.path)
}

// sync brings the cursor in line with the file on disk and emits new lines.
func (f *Follower) sync(emit func(string) error) error {
	if f.reopen {
		if !handle.Exists(f.fsys, f.path) {
			return nil
		}
		if err := f.h.Open(f.path, handle.ModeRead); err != nil {
			return err
		}
		f.reopen = false
		f.logger.Info("Followed file reappeared, reading from start", "path", f.path)
	}

	size, err := f.h.Size()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			f.release()
			return nil
		}
		return err
	}
	if pos := f.h.Tell(); size < pos {
		f.logger.Warn("Followed file truncated, rewinding", "path", f.path, "size", size, "offset", pos)
		if err := f.h.Seek(0); err != nil {
			return err
		}
	}
	return f.drain(emit)
}

// drain emits every complete line between the cursor and the end of the file.
// A trailing partial line is left unread.
func (f *Follower) drain(emit func(string) error) error {
	for {
		line, err := f.h.ReadTerminatedLine()
		switch {
		case err == nil:
			if err := emit(line); err != nil {
				return fmt.Errorf("failed to emit line from '%s': %w", f.path, err)
			}
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil
		default:
			return err
		}
	}
}
