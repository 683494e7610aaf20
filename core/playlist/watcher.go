package playlist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"Lyra/logger"

	"github.com/fsnotify/fsnotify"
)

// settleDelay groups the burst of events produced by one rewrite.
const settleDelay = 200 * time.Millisecond

// Watch calls onChange whenever the store's file is rewritten by someone
// else. It blocks until ctx is done. The directory is watched rather than the
// file because saves replace the file by rename.
func Watch(ctx context.Context, store *FileStore, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create playlist watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Clean(store.Path())

	timer := time.NewTimer(settleDelay)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(settleDelay)
			pending = true
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("playlist watcher error", logger.ErrorField(err))
		case <-timer.C:
			pending = false
			fi, err := os.Stat(name)
			if err != nil || store.ownWrite(fi) {
				continue
			}
			logger.Info("playlist changed on disk", logger.String("path", name))
			onChange()
		}
	}
}
