//go:build windows

package process

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestStopKillsAndReapsProcess(t *testing.T) {
	process, err := Start(context.Background(), Spec{
		Args:   []string{"ping", "-n", "30", "127.0.0.1"},
		Stdout: io.Discard,
		Stderr: io.Discard,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := process.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !process.Exited() {
		t.Fatalf("expected process %d to be reaped after stop", process.PID)
	}
}

func TestStopProcessSkipsUnknownPID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pending := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	if _, err := stopProcess(ctx, 0, 0, pending); err != nil {
		t.Fatalf("expected no error for an unknown pid, got %v", err)
	}
}
