package watcher

import (
	"errors"
	"io/fs"
	"os"
	"time"
)

func (watcher *Watcher) cleanupLoop() {
	ticker := time.NewTicker(watcher.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			watcher.cleanup()
		case <-watcher.done:
			return
		}
	}
}

// cleanup releases subdirectory watches of recursive targets whose
// directories were deleted. Target roots are kept so a recreated root is
// picked up again.
func (watcher *Watcher) cleanup() {
	if watcher == nil {
		return
	}
	released := []string{}
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return
	}
	for key, owner := range watcher.targets {
		if !key.recursive {
			continue
		}
		kept := owner.watches[:0]
		for _, path := range owner.watches {
			if path != key.path && isMissing(path) {
				released = append(released, path)
				continue
			}
			kept = append(kept, path)
		}
		owner.watches = kept
	}
	watcher.mutex.Unlock()

	for _, path := range released {
		watcher.release(path)
	}
	if len(released) > 0 {
		watcher.logDebug("watches cleaned", released[0], watcher.Metrics().ActiveWatches)
	}
}

func isMissing(path string) bool {
	_, err := os.Lstat(path)
	return errors.Is(err, fs.ErrNotExist)
}
