package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

var errNoWatchTargets = errors.New("nothing to watch")

// watch runs once, then re-runs whenever an .http file changes until ctx
// is canceled. Bursts of events within WatchDebounceDelay trigger a single
// run. It returns the exit code of the last run.
func (s *runSession) watch(ctx context.Context, args []string) (int, error) {
	code, err := s.runOnce(ctx, args)
	if err != nil {
		fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: %v\n", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return code, fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(args)
	if err != nil {
		return code, err
	}
	if len(dirs) == 0 {
		return code, errNoWatchTargets
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn("failed to watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	out := s.cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

	var pending <-chan time.Time
	var timer *time.Timer
	var changed string

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return code, nil

		case event, ok := <-watcher.Events:
			if !ok {
				return code, nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
					continue
				}
			}
			if !isHTTPFile(event.Name) || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			changed = event.Name
			if timer == nil {
				timer = time.NewTimer(WatchDebounceDelay)
			} else {
				timer.Reset(WatchDebounceDelay)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			fmt.Fprintf(out, "\nFile changed: %s\nRe-running...\n", changed)
			code, err = s.runOnce(ctx, args)
			if err != nil {
				fmt.Fprintf(s.cmd.ErrOrStderr(), "Error: %v\n", err)
			}
			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return code, nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// watchDirs returns every directory below the static root of each
// pattern, skipping hidden directories.
func watchDirs(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{DefaultPattern}
	}

	seen := make(map[string]bool)
	var dirs []string
	for _, arg := range args {
		root := arg
		if hasGlobMeta(arg) {
			root = filepath.FromSlash(globRoot(filepath.ToSlash(filepath.Clean(arg))))
		} else if info, err := os.Stat(arg); err == nil && !info.IsDir() {
			root = filepath.Dir(arg)
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			if path != root && len(d.Name()) > 1 && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			if !seen[path] {
				seen[path] = true
				dirs = append(dirs, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("cannot watch %s: %w", arg, err)
		}
	}
	return dirs, nil
}
