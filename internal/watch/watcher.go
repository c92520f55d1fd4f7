package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileOptions configures WatchFile.
type FileOptions struct {
	// Path is the file to observe. It does not need to exist yet.
	Path string

	// Debounce is the quiet period before onChange fires. Zero fires on
	// every meaningful change.
	Debounce time.Duration

	// Logger is used for structured logging.
	Logger *slog.Logger
}

// snapshot is the part of a file's state that counts as a change.
type snapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

func stat(path string) snapshot {
	info, err := os.Stat(path)
	if err != nil {
		return snapshot{}
	}

	return snapshot{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// changed reports whether next is a change worth restarting for: the file
// exists and its mtime or size differs from prev.
func (prev snapshot) changed(next snapshot) bool {
	if !next.exists {
		return false
	}

	return !prev.exists || !next.modTime.Equal(prev.modTime) || next.size != prev.size
}

// WatchFile blocks until ctx is cancelled, calling onChange after every
// debounced change to opts.Path. The state at start is the baseline, so an
// existing file does not fire on its own. Events that leave both mtime and
// size untouched are ignored.
//
// The parent directory is watched rather than the file itself so that
// writers replacing the file by rename are still observed.
func WatchFile(ctx context.Context, opts FileOptions, onChange func(path string)) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	target, err := filepath.Abs(opts.Path)
	if err != nil {
		return fmt.Errorf("resolving %q: %w", opts.Path, err)
	}

	dir := filepath.Dir(target)

	if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
		if statErr == nil || errors.Is(statErr, fs.ErrNotExist) {
			statErr = fmt.Errorf("%s is not a directory", dir)
		}

		return fmt.Errorf("watching %s: %w", target, statErr)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	fire := onChange
	if opts.Debounce > 0 {
		debouncer := NewDebouncer(opts.Debounce, onChange)
		defer debouncer.Stop()

		fire = debouncer.Trigger
	}

	last := stat(target)

	opts.Logger.Debug("watching change marker",
		slog.String("path", target),
		slog.Duration("debounce", opts.Debounce),
	)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !isRelevant(event, target) {
				continue
			}

			next := stat(target)
			if !last.changed(next) {
				if !next.exists {
					last = next
				}

				continue
			}

			last = next

			opts.Logger.Debug("change marker updated",
				slog.String("op", event.Op.String()),
				slog.Time("mtime", next.modTime),
			)

			fire(target)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			opts.Logger.Error("watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// isRelevant keeps events on target that may have moved its mtime. Chmod is
// included because touching a file (utimes) is reported as an attribute
// change.
func isRelevant(event fsnotify.Event, target string) bool {
	if event.Op == 0 {
		return false
	}

	if filepath.Clean(event.Name) != target {
		return false
	}

	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Chmod) || event.Has(fsnotify.Rename) ||
		event.Has(fsnotify.Remove)
}
