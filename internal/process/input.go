package process

import (
	"io"
	"sync"
)

const inputChunkSize = 4096

// Input shares one reader between successive runs of a command. A single
// goroutine reads the source and hands each chunk to the run currently
// attached. A chunk read while no run is attached, or refused by a run that
// just exited, is held for the next one. End of the source is not forwarded
// to attached runs.
type Input struct {
	source io.Reader

	mu         sync.Mutex
	cond       *sync.Cond
	target     io.Writer
	generation int
	closed     bool
	pumpOnce   sync.Once
}

// NewInput starts pumping source on the first Attach.
func NewInput(source io.Reader) *Input {
	input := &Input{source: source}
	input.cond = sync.NewCond(&input.mu)
	return input
}

// Attach routes input to w until the returned detach func is called or a
// write to w fails.
func (input *Input) Attach(w io.Writer) func() {
	input.pumpOnce.Do(func() {
		go input.pump()
	})

	input.mu.Lock()
	input.generation++
	generation := input.generation
	input.target = w
	input.cond.Broadcast()
	input.mu.Unlock()

	return func() {
		input.mu.Lock()
		if input.generation == generation {
			input.target = nil
		}
		input.mu.Unlock()
	}
}

// Close drops held input and stops delivery. A read already blocked on the
// source is not interrupted.
func (input *Input) Close() {
	input.mu.Lock()
	input.closed = true
	input.target = nil
	input.cond.Broadcast()
	input.mu.Unlock()
}

func (input *Input) pump() {
	buffer := make([]byte, inputChunkSize)
	for {
		n, err := input.source.Read(buffer)
		if n > 0 {
			chunk := append([]byte(nil), buffer[:n]...)
			if !input.deliver(chunk) {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// deliver blocks until chunk was written to an attached run. It reports
// false once the input is closed.
func (input *Input) deliver(chunk []byte) bool {
	for {
		input.mu.Lock()
		for input.target == nil && !input.closed {
			input.cond.Wait()
		}
		if input.closed {
			input.mu.Unlock()
			return false
		}
		target := input.target
		generation := input.generation
		input.mu.Unlock()

		if _, err := target.Write(chunk); err == nil {
			return true
		}
		input.mu.Lock()
		if input.generation == generation {
			input.target = nil
		}
		input.mu.Unlock()
	}
}
