//go:build !windows

package process

import (
	"context"
	"errors"

	"golang.org/x/sys/unix"
)

func GroupID(pid int) int {
	if pid <= 0 {
		return 0
	}
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		return 0
	}
	return pgid
}

// stopProcess sends SIGTERM to the process group and to descendants that
// moved to another group, then escalates to SIGKILL once ctx is done. It
// reports whether SIGKILL was needed. wait blocks until the process has been
// reaped or its ctx is done.
func stopProcess(ctx context.Context, pid, pgid int, wait func(context.Context) error) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	if !isProcessAlive(pid) {
		return false, ErrProcessNotFound
	}
	strays := strayDescendants(pid, pgid)
	termErr := signalTree(pid, pgid, strays, unix.SIGTERM)
	if err := wait(ctx); err == nil {
		return false, termErr
	}

	strays = append(strays, strayDescendants(pid, pgid)...)
	killErr := signalTree(pid, pgid, strays, unix.SIGKILL)
	killCtx, cancel := context.WithTimeout(context.Background(), killWaitTimeout)
	defer cancel()
	waitErr := wait(killCtx)
	return true, errors.Join(termErr, killErr, waitErr)
}

func strayDescendants(pid, pgid int) []int {
	descendants, err := Descendants(pid)
	if err != nil {
		return nil
	}
	strays := []int{}
	for _, child := range descendants {
		if pgid <= 0 || GroupID(child) != pgid {
			strays = append(strays, child)
		}
	}
	return strays
}

func signalTree(pid, pgid int, strays []int, sig unix.Signal) error {
	target := pid
	if pgid > 0 {
		target = -pgid
	}
	err := ignoreMissing(unix.Kill(target, sig))
	for _, stray := range strays {
		err = errors.Join(err, ignoreMissing(unix.Kill(stray, sig)))
	}
	return err
}

func ignoreMissing(err error) error {
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}

func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, unix.EPERM)
}
