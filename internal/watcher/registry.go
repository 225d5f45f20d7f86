package watcher

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// AddTarget registers path with the watcher. A direct target watches the
// path itself, which for a directory covers its immediate entries. A
// recursive target watches the directory and every subdirectory, and
// follows directories created below it later. Registering the same target
// twice takes another reference.
func (watcher *Watcher) AddTarget(path string, recursive bool) error {
	if watcher == nil {
		return errors.New("watcher is nil")
	}
	if path == "" {
		return errors.New("path is required")
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	key := targetKey{path: path, recursive: recursive && info.IsDir()}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return ErrClosed
	}
	if existing, ok := watcher.targets[key]; ok {
		existing.refs++
		watcher.mutex.Unlock()
		return nil
	}
	watcher.mutex.Unlock()

	paths := []string{path}
	if key.recursive {
		paths = append(paths, collectDirs(path)...)
	}
	added, err := watcher.acquireAll(paths)
	if err != nil {
		return err
	}

	watcher.mutex.Lock()
	if existing, ok := watcher.targets[key]; ok {
		existing.refs++
		watcher.mutex.Unlock()
		watcher.releaseAll(added)
		return nil
	}
	watcher.targets[key] = &registration{refs: 1, watches: added}
	watcher.mutex.Unlock()
	return nil
}

// Remove drops one reference to a target added with AddTarget. The
// underlying watches go away with the last reference.
func (watcher *Watcher) Remove(path string, recursive bool) {
	if watcher == nil {
		return
	}
	path = filepath.Clean(path)

	watcher.mutex.Lock()
	key := targetKey{path: path, recursive: recursive}
	existing, ok := watcher.targets[key]
	if !ok && recursive {
		// A recursive request on a file was registered as direct.
		key.recursive = false
		existing, ok = watcher.targets[key]
	}
	if !ok {
		watcher.mutex.Unlock()
		return
	}
	existing.refs--
	if existing.refs > 0 {
		watcher.mutex.Unlock()
		return
	}
	delete(watcher.targets, key)
	watches := existing.watches
	watcher.mutex.Unlock()

	watcher.releaseAll(watches)
}

func (watcher *Watcher) acquireAll(paths []string) ([]string, error) {
	added := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := watcher.acquire(path); err != nil {
			watcher.releaseAll(added)
			return nil, err
		}
		added = append(added, path)
	}
	return added, nil
}

func (watcher *Watcher) acquire(path string) error {
	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return ErrClosed
	}
	if watcher.watches[path] > 0 {
		watcher.watches[path]++
		watcher.mutex.Unlock()
		return nil
	}
	if watcher.activeWatches >= watcher.maxWatches {
		watcher.mutex.Unlock()
		return ErrMaxWatchesExceeded
	}
	watcher.watches[path] = 1
	watcher.activeWatches++
	activeCount := watcher.activeWatches
	source := watcher.watcher
	watcher.mutex.Unlock()

	if source == nil {
		watcher.drop(path)
		return nil
	}
	if err := source.Add(path); err != nil {
		watcher.drop(path)
		watcher.logWarn("watch add failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return err
	}
	watcher.logDebug("watch added", path, activeCount)
	return nil
}

func (watcher *Watcher) releaseAll(paths []string) {
	for _, path := range paths {
		watcher.release(path)
	}
}

func (watcher *Watcher) release(path string) {
	watcher.mutex.Lock()
	count := watcher.watches[path]
	if count > 1 {
		watcher.watches[path] = count - 1
		watcher.mutex.Unlock()
		return
	}
	if count == 0 {
		watcher.mutex.Unlock()
		return
	}
	delete(watcher.watches, path)
	if watcher.activeWatches > 0 {
		watcher.activeWatches--
	}
	activeCount := watcher.activeWatches
	source := watcher.watcher
	closed := watcher.closed
	watcher.mutex.Unlock()

	if source == nil || closed {
		return
	}
	if err := source.Remove(path); err != nil {
		// fsnotify drops watches on deleted paths by itself.
		if errors.Is(err, fsnotify.ErrNonExistentWatch) {
			watcher.logDebug("watch already gone", path, activeCount)
			return
		}
		watcher.logWarn("watch remove failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
		return
	}
	watcher.logDebug("watch removed", path, activeCount)
}

// drop undoes the bookkeeping of a failed acquire.
func (watcher *Watcher) drop(path string) {
	watcher.mutex.Lock()
	count := watcher.watches[path]
	if count > 1 {
		watcher.watches[path] = count - 1
	} else if count == 1 {
		delete(watcher.watches, path)
		if watcher.activeWatches > 0 {
			watcher.activeWatches--
		}
	}
	watcher.mutex.Unlock()
}

// rewatch re-adds watched paths that reported a change, so files replaced
// by an editor's rename keep being watched.
func (watcher *Watcher) rewatch(paths []string) {
	for _, path := range paths {
		watcher.mutex.Lock()
		watched := watcher.watches[path] > 0
		source := watcher.watcher
		closed := watcher.closed
		watcher.mutex.Unlock()
		if !watched || closed || source == nil {
			continue
		}
		if _, err := os.Lstat(path); err != nil {
			continue
		}
		if err := source.Add(path); err != nil {
			watcher.logWarn("watch re-add failed", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
		}
	}
}
