package process

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Registry tracks the processes started by the supervisor so they can all
// be stopped at shutdown.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Process
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Process),
	}
}

// Add tracks process until it exits.
func (r *Registry) Add(process *Process) {
	if r == nil || process == nil {
		return
	}
	r.mu.Lock()
	r.entries[process.ID] = process
	r.mu.Unlock()

	go func() {
		<-process.Done()
		r.Remove(process.ID)
	}()
}

func (r *Registry) Remove(id string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

// Running lists tracked processes in start order.
func (r *Registry) Running() []*Process {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	running := make([]*Process, 0, len(r.entries))
	for _, process := range r.entries {
		running = append(running, process)
	}
	r.mu.Unlock()
	sort.Slice(running, func(i, j int) bool {
		return running[i].StartedAt.Before(running[j].StartedAt)
	})
	return running
}

func (r *Registry) StopAll(ctx context.Context) error {
	if r == nil {
		return nil
	}
	running := r.Running()

	var stopErr error
	for _, process := range running {
		if err := process.Stop(ctx); err != nil && !errors.Is(err, ErrProcessNotFound) {
			stopErr = errors.Join(stopErr, err)
		}
		r.Remove(process.ID)
	}
	return stopErr
}
