//go:build !windows

package process

import (
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// startTerminal runs cmd as the leader of a new session attached to a
// pseudo terminal.
func startTerminal(cmd *exec.Cmd, stdin io.Reader, _ io.Writer) (*os.File, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return nil, err
	}
	_ = pty.InheritSize(os.Stdin, ptmx)
	if stdin != nil {
		go func() {
			_, _ = io.Copy(ptmx, stdin)
		}()
	}
	return ptmx, nil
}
