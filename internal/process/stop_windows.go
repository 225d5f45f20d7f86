//go:build windows

package process

import (
	"context"
	"errors"
	"os"
)

func GroupID(pid int) int {
	return 0
}

// stopProcess kills the descendant tree deepest first, then the process.
// There is no graceful phase on windows. wait blocks until the process has
// been reaped or its ctx is done.
func stopProcess(ctx context.Context, pid, _ int, wait func(context.Context) error) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, ErrProcessNotFound
	}
	descendants, _ := Descendants(pid)
	var killErr error
	for index := len(descendants) - 1; index >= 0; index-- {
		child, err := os.FindProcess(descendants[index])
		if err != nil {
			continue
		}
		if err := child.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			killErr = errors.Join(killErr, err)
		}
	}
	if err := process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		killErr = errors.Join(killErr, err)
	}
	return false, errors.Join(killErr, wait(ctx))
}
