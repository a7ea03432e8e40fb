package syntax

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 250 * time.Millisecond

// Watch reloads the catalog whenever its file changes, until ctx is done.
//
// The parent directory is watched rather than the file so that editors which
// replace the file through a rename are picked up. onReload, when set, is
// called after every reload attempt.
func (c *Catalog) Watch(ctx context.Context, onReload func(error)) error {
	if c.path == "" {
		return fmt.Errorf("catalog has no backing file")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create properties watcher: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	go c.watchLoop(ctx, watcher, onReload)
	return nil
}

func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onReload func(error)) {
	defer watcher.Close()

	target := filepath.Clean(c.path)
	var pending <-chan time.Time
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounceWindow)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			err := c.Reload()
			if err != nil {
				logger.Warnf("Failed to reload %s, keeping previous statements: %v", c.path, err)
			} else {
				logger.Infof("Reloaded SQL properties (%d statements)", c.Len())
			}
			if onReload != nil {
				onReload(err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Properties watcher error: %v", err)
		}
	}
}
