package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRestartDelayBackoff(t *testing.T) {
	cases := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 0, expected: restartBaseDelay},
		{attempt: 1, expected: restartBaseDelay * 2},
		{attempt: 2, expected: restartBaseDelay * 4},
	}

	for _, testCase := range cases {
		if got := restartDelay(testCase.attempt); got != testCase.expected {
			t.Fatalf("attempt %d: expected %s, got %s", testCase.attempt, testCase.expected, got)
		}
	}
}

func TestScheduleRestartSetsTimer(t *testing.T) {
	watcher, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	watcher.scheduleRestart(errors.New("boom"))

	watcher.restartMutex.Lock()
	timer := watcher.restartTimer
	attempts := watcher.restartAttempts
	watcher.restartMutex.Unlock()

	if attempts != 1 {
		t.Fatalf("expected 1 restart attempt, got %d", attempts)
	}
	if timer == nil {
		t.Fatalf("expected restart timer to be set")
	}
	if timer != nil {
		timer.Stop()
		watcher.restartMutex.Lock()
		watcher.restartTimer = nil
		watcher.restartMutex.Unlock()
	}
}

func TestScheduleRestartSkipsWhenTimerActive(t *testing.T) {
	watcher, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	watcher.restartMutex.Lock()
	watcher.restartTimer = timer
	watcher.restartAttempts = 1
	watcher.restartMutex.Unlock()

	watcher.scheduleRestart(errors.New("boom"))

	watcher.restartMutex.Lock()
	attempts := watcher.restartAttempts
	watcher.restartMutex.Unlock()

	if attempts != 1 {
		t.Fatalf("expected restart attempts to remain 1, got %d", attempts)
	}
}

func TestPerformRestartResetsAttempts(t *testing.T) {
	watcher, err := New()
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer watcher.Close()

	watcher.mutex.Lock()
	watcher.closed = true
	watcher.mutex.Unlock()

	watcher.restartMutex.Lock()
	watcher.restartAttempts = 2
	watcher.restartMutex.Unlock()

	watcher.performRestart()

	watcher.restartMutex.Lock()
	attempts := watcher.restartAttempts
	watcher.restartMutex.Unlock()

	if attempts != 0 {
		t.Fatalf("expected restart attempts to reset, got %d", attempts)
	}
}

func waitForBatchWith(t *testing.T, watcher *Watcher, path string) Batch {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case batch, ok := <-watcher.Batches():
			if !ok {
				t.Fatal("batch channel closed")
			}
			if batchHas(batch, path) {
				return batch
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a batch with %q", path)
		}
	}
}

func TestRestartKeepsWatchedPaths(t *testing.T) {
	watcher := newTestWatcher(t, Options{})

	dir := t.TempDir()
	if err := watcher.AddTarget(dir, false); err != nil {
		t.Fatalf("add target: %v", err)
	}
	if err := watcher.restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}

	path := filepath.Join(dir, "after-restart.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	waitForBatchWith(t, watcher, path)
}

func TestRestartQueuesTargetRoots(t *testing.T) {
	watcher := newTestWatcher(t, Options{})

	dir := t.TempDir()
	if err := watcher.AddTarget(dir, true); err != nil {
		t.Fatalf("add target: %v", err)
	}
	if err := watcher.restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}

	batch := waitForBatch(t, watcher)
	if !batchHas(batch, filepath.Clean(dir)) {
		t.Fatalf("expected target root in batch %v", batch.Paths)
	}
}

func TestRestartExtendsRecursiveTargets(t *testing.T) {
	watcher := newTestWatcher(t, Options{})

	dir := t.TempDir()
	if err := watcher.AddTarget(dir, true); err != nil {
		t.Fatalf("add target: %v", err)
	}

	// Created without an event reaching the watcher, as during an outage.
	missed := filepath.Join(dir, "missed")
	watcher.mutex.Lock()
	previous := watcher.watcher
	watcher.watcher = nil
	watcher.mutex.Unlock()
	if err := previous.Close(); err != nil {
		t.Fatalf("close fsnotify: %v", err)
	}
	if err := os.Mkdir(missed, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := watcher.restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	found := false
	for _, path := range watcher.Paths() {
		if path == missed {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q to be watched, got %v", missed, watcher.Paths())
	}

	path := filepath.Join(missed, "late.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	waitForBatchWith(t, watcher, path)
}

func TestScheduleRestartReportsExhaustedRetries(t *testing.T) {
	reported := make(chan error, 1)
	watcher := newTestWatcher(t, Options{ErrorHandler: func(err error) {
		reported <- err
	}})

	watcher.restartMutex.Lock()
	watcher.restartAttempts = maxRestartAttempts
	watcher.restartMutex.Unlock()

	watcher.scheduleRestart(errors.New("boom"))

	select {
	case err := <-reported:
		if err.Error() != "boom" {
			t.Fatalf("expected boom, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected error handler to be called")
	}
}
