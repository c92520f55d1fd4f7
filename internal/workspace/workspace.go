// Package workspace bootstraps the build output directory and maintains the
// change marker that announces a finished build.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Error reports a failed filesystem operation while preparing the
// workspace. It is fatal: no process is started after it.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workspace: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Prepare makes sure buildDir exists before any process starts. When the
// directory is created, entryFile is created empty as a placeholder so the
// server watcher has something to run until the first real build lands.
// An existing buildDir is left untouched, which makes Prepare idempotent.
func Prepare(buildDir, entryFile string) error {
	info, err := os.Stat(buildDir)

	switch {
	case err == nil:
		if !info.IsDir() {
			return &Error{Op: "prepare", Path: buildDir, Err: fmt.Errorf("not a directory")}
		}

		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return &Error{Op: "stat", Path: buildDir, Err: err}
	}

	// Only one level is created; a missing parent is an error.
	if err := os.Mkdir(buildDir, 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
		return &Error{Op: "mkdir", Path: buildDir, Err: err}
	}

	f, err := os.OpenFile(entryFile, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}

		return &Error{Op: "create", Path: entryFile, Err: err}
	}

	if err := f.Close(); err != nil {
		return &Error{Op: "close", Path: entryFile, Err: err}
	}

	return nil
}

// minMarkerStep is the smallest mtime advance applied by TouchMarker.
const minMarkerStep = time.Millisecond

// TouchMarker creates the change marker if needed and advances its
// modification time. The new mtime is strictly later than the previous one
// even when two touches happen within the clock's resolution.
func TouchMarker(path string) (time.Time, error) {
	next := time.Now()

	info, err := os.Stat(path)

	switch {
	case err == nil:
		if prev := info.ModTime(); !next.After(prev) {
			next = prev.Add(minMarkerStep)
		}
	case errors.Is(err, fs.ErrNotExist):
		f, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
		if createErr != nil {
			return time.Time{}, &Error{Op: "create", Path: path, Err: createErr}
		}

		if closeErr := f.Close(); closeErr != nil {
			return time.Time{}, &Error{Op: "close", Path: path, Err: closeErr}
		}
	default:
		return time.Time{}, &Error{Op: "stat", Path: path, Err: err}
	}

	if err := os.Chtimes(path, next, next); err != nil {
		return time.Time{}, &Error{Op: "touch", Path: path, Err: err}
	}

	return next, nil
}
