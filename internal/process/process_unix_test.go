//go:build !windows

package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func startProcess(t *testing.T, spec Spec) *Process {
	t.Helper()
	process, err := Start(context.Background(), spec)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = process.Stop(ctx)
	})
	return process
}

func waitDone(t *testing.T, process *Process) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := process.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timed out waiting for process %d", process.PID)
	}
	return err
}

func TestStartCapturesOutput(t *testing.T) {
	stdout := &bytes.Buffer{}
	process := startProcess(t, Spec{Args: []string{"sh", "-c", "echo hello"}, Stdout: stdout})

	if err := waitDone(t, process); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if got := stdout.String(); got != "hello\n" {
		t.Fatalf("expected hello, got %q", got)
	}
	if process.ExitCode() != 0 {
		t.Fatalf("expected exit code 0, got %d", process.ExitCode())
	}
	if process.ID == "" {
		t.Fatalf("expected run id")
	}
}

func TestStartReportsExitCode(t *testing.T) {
	process := startProcess(t, Spec{Args: []string{"sh", "-c", "exit 3"}})

	err := waitDone(t, process)
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected exit error, got %v", err)
	}
	if process.ExitCode() != 3 {
		t.Fatalf("expected exit code 3, got %d", process.ExitCode())
	}
}

func TestStartPassesEnvAndDir(t *testing.T) {
	dir := t.TempDir()
	stdout := &bytes.Buffer{}
	process := startProcess(t, Spec{
		Args:   []string{"sh", "-c", "echo $REBURN_TEST_VALUE; pwd"},
		Dir:    dir,
		Env:    []string{"REBURN_TEST_VALUE=42"},
		Stdout: stdout,
	})
	if err := waitDone(t, process); err != nil {
		t.Fatalf("wait: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 || lines[0] != "42" {
		t.Fatalf("unexpected output %q", stdout.String())
	}
	if !strings.HasSuffix(lines[1], strings.TrimPrefix(dir, "/private")) {
		t.Fatalf("expected working directory %q, got %q", dir, lines[1])
	}
}

func TestStartRejectsEmptyCommand(t *testing.T) {
	if _, err := Start(context.Background(), Spec{}); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected empty command error, got %v", err)
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	process := startProcess(t, Spec{Args: []string{"sleep", "10"}})
	if process.PGID != process.PID {
		t.Fatalf("expected own process group, got pgid %d for pid %d", process.PGID, process.PID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := process.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !process.Exited() {
		t.Fatalf("expected process to exit")
	}
	if isProcessAlive(process.PID) {
		t.Fatalf("expected pid %d to be gone", process.PID)
	}
	if err := process.Stop(ctx); err != nil {
		t.Fatalf("second stop: %v", err)
	}
}

func TestStopKillsProcessIgnoringTerm(t *testing.T) {
	process := startProcess(t, Spec{Args: []string{"sh", "-c", "trap '' TERM; sleep 10"}})
	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := process.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !process.Exited() {
		t.Fatalf("expected process to be killed")
	}
}

func TestStopReachesChildren(t *testing.T) {
	process := startProcess(t, Spec{Args: []string{"sh", "-c", "sleep 10 & wait"}})

	var children []int
	deadline := time.Now().Add(2 * time.Second)
	for len(children) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected sh to spawn a child")
		}
		time.Sleep(20 * time.Millisecond)
		found, err := Descendants(process.PID)
		if err != nil {
			t.Fatalf("descendants: %v", err)
		}
		children = found
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := process.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for _, child := range children {
		for isProcessAlive(child) {
			if time.Now().After(deadline) {
				t.Fatalf("expected child %d to exit", child)
			}
			time.Sleep(20 * time.Millisecond)
		}
	}
}

func TestStartWithTerminal(t *testing.T) {
	stdout := &bytes.Buffer{}
	process, err := Start(context.Background(), Spec{
		Args:   []string{"sh", "-c", "test -t 1 && echo tty"},
		PTY:    true,
		Stdout: stdout,
	})
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	if err := waitDone(t, process); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if !strings.Contains(stdout.String(), "tty") {
		t.Fatalf("expected output from a terminal, got %q", stdout.String())
	}
}

func stopAndWait(t *testing.T, process *Process) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := process.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !process.Exited() {
		t.Fatalf("expected process %d to exit", process.PID)
	}
}

func TestTerminalRestartKeepsInput(t *testing.T) {
	input, writer := newPipeInput(t)

	firstOutput := &lockedBuffer{}
	first, err := Start(context.Background(), Spec{
		Args:   []string{"cat"},
		PTY:    true,
		Input:  input,
		Stdout: firstOutput,
	})
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	stopAndWait(t, first)

	secondOutput := &lockedBuffer{}
	second := startProcess(t, Spec{
		Args:   []string{"cat"},
		PTY:    true,
		Input:  input,
		Stdout: secondOutput,
	})

	writeAsync(writer, "first-line\n")
	waitForOutput(t, secondOutput, "first-line")
	writeAsync(writer, "second-line\n")
	waitForOutput(t, secondOutput, "second-line")

	if strings.Contains(firstOutput.String(), "line") {
		t.Fatalf("stopped run received input: %q", firstOutput.String())
	}
	stopAndWait(t, second)
}

func TestPipeRestartKeepsInput(t *testing.T) {
	input, writer := newPipeInput(t)

	firstOutput := &lockedBuffer{}
	first := startProcess(t, Spec{Args: []string{"cat"}, Input: input, Stdout: firstOutput})
	writeAsync(writer, "one\n")
	waitForOutput(t, firstOutput, "one\n")
	stopAndWait(t, first)

	secondOutput := &lockedBuffer{}
	second := startProcess(t, Spec{Args: []string{"cat"}, Input: input, Stdout: secondOutput})
	writeAsync(writer, "two\n")
	waitForOutput(t, secondOutput, "two\n")
	if got := secondOutput.String(); got != "two\n" {
		t.Fatalf("expected only the second line, got %q", got)
	}
	stopAndWait(t, second)
}

func TestRegistryStopsAll(t *testing.T) {
	registry := NewRegistry()
	first := startProcess(t, Spec{Args: []string{"sleep", "10"}})
	second := startProcess(t, Spec{Args: []string{"sleep", "10"}})
	registry.Add(first)
	registry.Add(second)

	if got := len(registry.Running()); got != 2 {
		t.Fatalf("expected 2 running processes, got %d", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := registry.StopAll(ctx); err != nil {
		t.Fatalf("stop all: %v", err)
	}
	if !first.Exited() || !second.Exited() {
		t.Fatalf("expected both processes to exit")
	}
	if got := len(registry.Running()); got != 0 {
		t.Fatalf("expected empty registry, got %d", got)
	}
}

func TestRegistryForgetsExitedProcess(t *testing.T) {
	registry := NewRegistry()
	process := startProcess(t, Spec{Args: []string{"sh", "-c", "exit 0"}})
	registry.Add(process)
	_ = waitDone(t, process)

	deadline := time.Now().Add(time.Second)
	for len(registry.Running()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected exited process to be removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
