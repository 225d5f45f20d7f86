package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"reburn/internal/logging"

	"github.com/google/uuid"
)

const (
	defaultStopTimeout = 5 * time.Second
	killWaitTimeout    = 2 * time.Second
)

var (
	ErrProcessNotFound = errors.New("process not running")
	ErrEmptyCommand    = errors.New("command is required")
)

// Spec describes a command to supervise.
type Spec struct {
	Args []string
	Dir  string
	// Env is appended to the current environment.
	Env []string
	// PTY attaches the command to a pseudo terminal whose output is copied
	// to Stdout.
	PTY   bool
	Stdin io.Reader
	// Input replaces Stdin when a reader is shared by successive runs. The
	// run is attached to it while alive.
	Input  *Input
	Stdout io.Writer
	Stderr io.Writer
	Logger *logging.Logger
}

// Process is one run of a supervised command.
type Process struct {
	ID        string
	Args      []string
	PID       int
	PGID      int
	StartedAt time.Time

	cmd      *exec.Cmd
	terminal io.Closer
	detach   func()
	copied   chan struct{}
	done     chan struct{}
	waitErr  error
	logger   *logging.Logger
	stopOnce sync.Once
	stopErr  error
}

// Start spawns the command described by spec in its own process group.
func Start(ctx context.Context, spec Spec) (*Process, error) {
	if len(spec.Args) == 0 || spec.Args[0] == "" {
		return nil, ErrEmptyCommand
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	logger := spec.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	stdout := spec.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := spec.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd := exec.Command(spec.Args[0], spec.Args[1:]...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	process := &Process{
		ID:     uuid.NewString(),
		Args:   append([]string(nil), spec.Args...),
		cmd:    cmd,
		copied: make(chan struct{}),
		done:   make(chan struct{}),
	}

	if spec.PTY {
		stdin := spec.Stdin
		if spec.Input != nil {
			stdin = nil
		}
		terminal, err := startTerminal(cmd, stdin, stdout)
		if err != nil {
			return nil, fmt.Errorf("start %s: %w", spec.Args[0], err)
		}
		process.terminal = terminal
		if spec.Input != nil {
			process.detach = spec.Input.Attach(terminal)
		}
		go func() {
			defer close(process.copied)
			_, _ = io.Copy(stdout, terminal)
		}()
	} else {
		var stdinPipe io.WriteCloser
		if spec.Input != nil {
			pipe, err := cmd.StdinPipe()
			if err != nil {
				return nil, fmt.Errorf("start %s: %w", spec.Args[0], err)
			}
			stdinPipe = pipe
		} else {
			cmd.Stdin = spec.Stdin
		}
		cmd.Stdout = stdout
		cmd.Stderr = stderr
		setProcessGroup(cmd)
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("start %s: %w", spec.Args[0], err)
		}
		if stdinPipe != nil {
			process.detach = spec.Input.Attach(stdinPipe)
		}
		close(process.copied)
	}

	process.PID = cmd.Process.Pid
	process.PGID = GroupID(process.PID)
	process.StartedAt = time.Now().UTC()
	process.logger = logger.Category("process").With(map[string]string{
		"run_id": process.ID,
		"pid":    strconv.Itoa(process.PID),
	})
	process.logger.Info("process started", map[string]string{"command": spec.Args[0]})

	go process.wait()
	return process, nil
}

func (process *Process) wait() {
	err := process.cmd.Wait()
	if process.detach != nil {
		process.detach()
	}
	if process.terminal != nil {
		// The copy loop ends once the terminal reports EOF or EIO.
		select {
		case <-process.copied:
		case <-time.After(killWaitTimeout):
		}
		_ = process.terminal.Close()
	}
	process.waitErr = err
	close(process.done)

	fields := map[string]string{"exit_code": strconv.Itoa(process.ExitCode())}
	if err != nil {
		fields["error"] = err.Error()
	}
	process.logger.Info("process exited", fields)
}

// Done is closed once the process has exited and been reaped.
func (process *Process) Done() <-chan struct{} {
	return process.done
}

// Wait blocks until the process exits or ctx is done. It returns the exit
// error of the command.
func (process *Process) Wait(ctx context.Context) error {
	select {
	case <-process.done:
		return process.waitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Exited reports whether the process has terminated.
func (process *Process) Exited() bool {
	select {
	case <-process.done:
		return true
	default:
		return false
	}
}

// ExitCode returns the exit status, or -1 while running or when killed by
// a signal.
func (process *Process) ExitCode() int {
	if !process.Exited() || process.cmd.ProcessState == nil {
		return -1
	}
	return process.cmd.ProcessState.ExitCode()
}

// Stop terminates the process and its descendants. ctx bounds the graceful
// phase; anything still alive afterwards is killed. Stop is idempotent.
func (process *Process) Stop(ctx context.Context) error {
	if process == nil {
		return nil
	}
	process.stopOnce.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultStopTimeout)
			defer cancel()
		}
		if process.Exited() {
			return
		}
		exited := func(ctx context.Context) error {
			select {
			case <-process.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		killed, err := stopProcess(ctx, process.PID, process.PGID, exited)
		if killed {
			process.logger.Warn("process killed after stop timeout", nil)
		}
		if err != nil && !errors.Is(err, ErrProcessNotFound) {
			process.stopErr = fmt.Errorf("stop %s: %w", process.Args[0], err)
			return
		}
		process.logger.Debug("process stopped", nil)
	})
	return process.stopErr
}
