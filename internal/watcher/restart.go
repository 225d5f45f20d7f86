package watcher

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

func (watcher *Watcher) handleError(err error) {
	if err == nil {
		return
	}
	atomic.AddUint64(&watcher.errorCount, 1)
	watcher.logWarn("watcher error", map[string]string{
		"error": err.Error(),
	})
	watcher.scheduleRestart(err)
}

// restartDelay doubles per attempt.
func restartDelay(attempt int) time.Duration {
	return restartBaseDelay << attempt
}

func (watcher *Watcher) isClosed() bool {
	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	return watcher.closed
}

// scheduleRestart arms one restart timer at a time. Once the attempts are
// used up the error goes to the error handler.
func (watcher *Watcher) scheduleRestart(err error) {
	if watcher == nil || watcher.isClosed() {
		return
	}

	watcher.restartMutex.Lock()
	switch {
	case watcher.restartTimer != nil:
		watcher.restartMutex.Unlock()
	case watcher.restartAttempts >= maxRestartAttempts:
		watcher.restartMutex.Unlock()
		watcher.notifyError(err)
	default:
		delay := restartDelay(watcher.restartAttempts)
		watcher.restartAttempts++
		watcher.restartTimer = time.AfterFunc(delay, watcher.performRestart)
		watcher.restartMutex.Unlock()
	}
}

func (watcher *Watcher) performRestart() {
	if watcher == nil {
		return
	}
	err := watcher.restart()

	watcher.restartMutex.Lock()
	watcher.restartTimer = nil
	if err == nil {
		watcher.restartAttempts = 0
	}
	watcher.restartMutex.Unlock()
	if err == nil {
		return
	}

	watcher.logWarn("watcher restart failed", map[string]string{
		"error": err.Error(),
	})
	watcher.scheduleRestart(err)
}

func (watcher *Watcher) notifyError(err error) {
	if watcher == nil || err == nil {
		return
	}
	watcher.restartMutex.Lock()
	handler := watcher.errorHandler
	watcher.restartMutex.Unlock()
	if handler == nil {
		watcher.logWarn("watcher restarts exhausted", map[string]string{"error": err.Error()})
		return
	}
	handler(err)
}

// restart swaps in a fresh fsnotify watcher holding the same paths, then
// resyncs the targets.
func (watcher *Watcher) restart() error {
	paths := watcher.Paths()
	if watcher.isClosed() {
		return nil
	}

	replacement, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	restored := 0
	for _, path := range paths {
		if err := replacement.Add(path); err != nil {
			watcher.logWarn("watch restore failed", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		restored++
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		_ = replacement.Close()
		return nil
	}
	previous := watcher.watcher
	watcher.watcher = replacement
	watcher.mutex.Unlock()

	watcher.startForwarder(replacement)
	if previous != nil {
		_ = previous.Close()
	}
	watcher.logger.Info("watcher restarted", map[string]string{
		"watches":  strconv.Itoa(len(paths)),
		"restored": strconv.Itoa(restored),
	})
	watcher.resync()
	return nil
}

// resync covers what happened while no watch was active. Recursive
// targets take the directories created in the meantime, and every target
// root is queued as changed so the next batch reruns the command.
func (watcher *Watcher) resync() {
	watcher.mutex.Lock()
	keys := make([]targetKey, 0, len(watcher.targets))
	for key := range watcher.targets {
		keys = append(keys, key)
	}
	watcher.mutex.Unlock()

	for _, key := range keys {
		if key.recursive {
			watcher.extendTarget(key)
		}
		watcher.mutex.Lock()
		if !watcher.closed && watcher.debouncer != nil {
			watcher.debouncer.schedule(Event{
				Path:      key.path,
				Op:        fsnotify.Write,
				Timestamp: time.Now().UTC(),
			}, watcher.flush)
		}
		watcher.mutex.Unlock()
	}
}

// extendTarget watches the directories below a recursive target that the
// target does not hold yet.
func (watcher *Watcher) extendTarget(key targetKey) {
	watcher.mutex.Lock()
	owner, ok := watcher.targets[key]
	held := map[string]bool{}
	if ok {
		for _, path := range owner.watches {
			held[path] = true
		}
	}
	watcher.mutex.Unlock()
	if !ok {
		return
	}

	missing := []string{}
	for _, dir := range collectDirs(key.path) {
		if !held[dir] {
			missing = append(missing, dir)
		}
	}
	if len(missing) == 0 {
		return
	}
	added, err := watcher.acquireAll(missing)
	if err != nil {
		watcher.logWarn("resync failed", map[string]string{
			"path":  key.path,
			"error": err.Error(),
		})
		return
	}
	watcher.mutex.Lock()
	owner, ok = watcher.targets[key]
	if ok {
		owner.watches = append(owner.watches, added...)
	}
	watcher.mutex.Unlock()
	if !ok {
		watcher.releaseAll(added)
	}
}
