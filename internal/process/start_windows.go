//go:build windows

package process

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
)

var ErrPTYUnsupported = errors.New("pty is not supported on windows")

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func startTerminal(*exec.Cmd, io.Reader, io.Writer) (*os.File, error) {
	return nil, ErrPTYUnsupported
}
