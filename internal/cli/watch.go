package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zebiner/evt-profiler/internal/logging"
)

// debounceDelay collapses the burst of events an editor produces on save
const debounceDelay = 100 * time.Millisecond

// WatchProfile runs the task once, then again each time the task file
// changes, until ctx ends. A failed run is logged and watching continues.
func WatchProfile(ctx context.Context, opts RunOptions, writer io.Writer) error {
	path, err := filepath.Abs(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", opts.ConfigPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file on save, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	log := logging.New(logging.Config{Output: writer}).Module("watch")

	rerun := make(chan struct{}, 1)
	rerun <- struct{}{}
	trigger := func() {
		select {
		case rerun <- struct{}{}:
		default:
		}
	}

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-rerun:
			if err := RunProfile(ctx, opts, writer); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Errorf("run failed: %v", err)
			}
			log.Infof("watching %s for changes", opts.ConfigPath)

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.AfterFunc(debounceDelay, trigger)
			} else {
				debounce.Reset(debounceDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("file watcher error: %v", err)
		}
	}
}
