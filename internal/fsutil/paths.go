package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Parent returns the path one level up from pathValue, joined the same way
// the caller built pathValue. It reports false at the filesystem root.
func Parent(pathValue string) (string, bool) {
	abs, err := filepath.Abs(pathValue)
	if err != nil {
		return "", false
	}
	if filepath.Dir(abs) == abs {
		return "", false
	}
	return filepath.Join(pathValue, ".."), true
}

// SlashPath cleans a filesystem path and converts it to forward slashes.
func SlashPath(pathValue string) string {
	if pathValue == "" {
		return "."
	}
	return filepath.ToSlash(filepath.Clean(pathValue))
}

// IsWithin reports whether target lies inside root or is root itself.
func IsWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// ReadDir lists a directory, keeping whatever entries were read before an
// error. A missing directory is not an error.
func ReadDir(dir string) ([]fs.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return entries, err
	}
	return entries, nil
}

// IsDir reports whether entry is a directory, following symlinks.
func IsDir(dir string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.IsDir()
}
