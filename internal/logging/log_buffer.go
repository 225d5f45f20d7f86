package logging

import (
	"container/ring"
	"sync"
)

// LogBuffer keeps the most recent entries in memory. Tests and the CLI read
// it back to inspect what a run logged.
type LogBuffer struct {
	mu    sync.Mutex
	next  *ring.Ring
	count int
	size  int
}

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 1
	}
	return &LogBuffer{
		next: ring.New(size),
		size: size,
	}
}

// Add stores entry, overwriting the oldest one once the buffer is full.
func (b *LogBuffer) Add(entry LogEntry) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next.Value = entry
	b.next = b.next.Next()
	if b.count < b.size {
		b.count++
	}
}

// List returns the buffered entries, oldest first.
func (b *LogBuffer) List() []LogEntry {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]LogEntry, 0, b.count)
	// next points at the oldest slot once the buffer has wrapped.
	oldest := b.next.Move(-b.count)
	for i := 0; i < b.count; i++ {
		entries = append(entries, oldest.Value.(LogEntry))
		oldest = oldest.Next()
	}
	return entries
}

// WithMessage returns the buffered entries logged with message.
func (b *LogBuffer) WithMessage(message string) []LogEntry {
	matched := []LogEntry{}
	for _, entry := range b.List() {
		if entry.Message == message {
			matched = append(matched, entry)
		}
	}
	return matched
}
