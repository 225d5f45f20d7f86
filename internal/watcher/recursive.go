package watcher

import (
	"io/fs"
	"os"
	"path/filepath"

	"reburn/internal/fsutil"
)

// collectDirs lists every directory below root. Symlinked directories are
// not descended.
func collectDirs(root string) []string {
	dirs := []string{}
	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() || path == root {
			return nil
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs
}

// followCreated extends every recursive target containing path to a newly
// created directory and its subdirectories.
func (watcher *Watcher) followCreated(path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() {
		return
	}

	watcher.mutex.Lock()
	owners := []targetKey{}
	for key := range watcher.targets {
		if key.recursive && fsutil.IsWithin(key.path, path) {
			owners = append(owners, key)
		}
	}
	watcher.mutex.Unlock()
	if len(owners) == 0 {
		return
	}

	paths := append([]string{path}, collectDirs(path)...)
	for _, key := range owners {
		added, err := watcher.acquireAll(paths)
		if err != nil {
			watcher.logWarn("follow created directory failed", map[string]string{
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		watcher.mutex.Lock()
		owner, ok := watcher.targets[key]
		if ok {
			owner.watches = append(owner.watches, added...)
		}
		watcher.mutex.Unlock()
		if !ok {
			watcher.releaseAll(added)
		}
	}
}
