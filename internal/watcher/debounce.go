package watcher

import (
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"reburn/internal/fsutil"

	"github.com/fsnotify/fsnotify"
)

// debouncer collects events into one pending batch and fires a single
// trailing timer once no event arrived for the window.
type debouncer struct {
	duration time.Duration
	timer    *time.Timer
	pending  map[string]Event
	events   int
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		pending:  make(map[string]Event),
	}
}

// schedule adds event to the pending batch and restarts the window. It
// reports whether the path was already pending.
func (debouncer *debouncer) schedule(event Event, flush func()) bool {
	if debouncer == nil {
		return false
	}
	_, coalesced := debouncer.pending[event.Path]
	debouncer.pending[event.Path] = event
	debouncer.events++
	if debouncer.timer == nil {
		debouncer.timer = time.AfterFunc(debouncer.duration, flush)
	} else {
		debouncer.timer.Reset(debouncer.duration)
	}
	return coalesced
}

// pop takes the pending batch, leaving the debouncer empty.
func (debouncer *debouncer) pop() (Batch, bool) {
	if debouncer == nil || len(debouncer.pending) == 0 {
		return Batch{}, false
	}
	paths := make([]string, 0, len(debouncer.pending))
	for path := range debouncer.pending {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	batch := Batch{
		Paths:     paths,
		Events:    debouncer.events,
		Timestamp: time.Now().UTC(),
	}
	debouncer.pending = make(map[string]Event)
	debouncer.events = 0
	debouncer.timer = nil
	return batch, true
}

func (debouncer *debouncer) stop() {
	if debouncer == nil {
		return
	}
	if debouncer.timer != nil {
		debouncer.timer.Stop()
		debouncer.timer = nil
	}
	debouncer.pending = nil
}

func (watcher *Watcher) ignored(path string) bool {
	if len(watcher.ignore) == 0 {
		return false
	}
	slashPath := fsutil.SlashPath(path)
	base := filepath.Base(path)
	for _, matcher := range watcher.ignore {
		if matcher.Match(slashPath) || matcher.Match(base) {
			return true
		}
	}
	return false
}

func (watcher *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}
	if watcher.ignored(event.Name) {
		atomic.AddUint64(&watcher.eventsIgnored, 1)
		return
	}
	if event.Has(fsnotify.Create) {
		watcher.followCreated(event.Name)
	}

	watcher.mutex.Lock()
	defer watcher.mutex.Unlock()
	if watcher.closed || watcher.debouncer == nil {
		return
	}
	entry := Event{
		Path:      event.Name,
		Op:        event.Op,
		Timestamp: time.Now().UTC(),
	}
	if watcher.debouncer.schedule(entry, watcher.flush) {
		atomic.AddUint64(&watcher.eventsCoalesced, 1)
	}
}

func (watcher *Watcher) flush() {
	watcher.mutex.Lock()
	if watcher.closed || watcher.debouncer == nil {
		watcher.mutex.Unlock()
		return
	}
	batch, ok := watcher.debouncer.pop()
	watcher.mutex.Unlock()
	if !ok {
		return
	}

	watcher.rewatch(batch.Paths)

	watcher.batchMutex.Lock()
	defer watcher.batchMutex.Unlock()
	select {
	case <-watcher.done:
		return
	default:
	}
	select {
	case watcher.batches <- batch:
		atomic.AddUint64(&watcher.batchesDelivered, 1)
		atomic.AddUint64(&watcher.eventsDelivered, uint64(batch.Events))
	case <-watcher.done:
	}
}
