// Package watch re-runs a callback when files in a repository change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/gitstat/internal/debounce"
)

const DefaultDelay = 350 * time.Millisecond

// Watcher reports repository changes through a debounced callback.
type Watcher struct {
	root  string
	delay time.Duration
	fn    func(context.Context)

	// mu serializes fn runs.
	mu        sync.Mutex
	debouncer *debounce.Debouncer
}

// New returns a Watcher over the repository at root. A zero delay uses
// DefaultDelay.
func New(root string, delay time.Duration, fn func(context.Context)) *Watcher {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Watcher{root: root, delay: delay, fn: fn}
}

// Run watches until ctx is done. fn runs once up front and again after each
// burst of changes.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
	}()

	paths, err := watchPaths(w.root)
	if err != nil {
		return err
	}
	for _, path := range paths {
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}

	defer func() {
		if w.debouncer != nil {
			w.debouncer.Stop()
		}
	}()

	w.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if shouldIgnoreWatchPath(w.root, ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			if ev.Has(fsnotify.Create) {
				w.addIfDir(watcher, ev.Name)
			}
			debounce.Ensure(&w.debouncer, w.delay, func() { w.run(ctx) }).Trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) run(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fn(ctx)
}

// addIfDir starts watching directories created after Run began.
func (w *Watcher) addIfDir(watcher *fsnotify.Watcher, path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := watcher.Add(path); err != nil {
		slog.Debug("watch new directory", slog.String("path", path), slog.Any("error", err))
	}
}

// watchPaths lists the directories to watch: every working tree directory
// outside .git, plus the .git directory itself so index and HEAD updates are
// seen.
func watchPaths(root string) ([]string, error) {
	if root == "" {
		return nil, errors.New("repository root not set")
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Debug("skip unreadable path", slog.String("path", path), slog.Any("error", err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == ".git" {
			paths = append(paths, path)
			return filepath.SkipDir
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

// shouldIgnoreWatchPath drops git's transient lock files and object writes.
func shouldIgnoreWatchPath(root, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".lock" || ext == ".ipc" {
		return true
	}
	rel, err := filepath.Rel(root, name)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return strings.HasPrefix(rel, ".git/objects/") || strings.HasPrefix(rel, ".git/logs/")
}
