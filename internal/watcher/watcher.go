package watcher

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"reburn/internal/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

const (
	defaultDebounce        = 100 * time.Millisecond
	defaultMaxWatches      = 8192
	defaultCleanupInterval = time.Minute
	maxRestartAttempts     = 3
	restartBaseDelay       = 200 * time.Millisecond
)

var (
	ErrMaxWatchesExceeded = errors.New("max watches exceeded")
	ErrClosed             = errors.New("watcher is closed")
)

// New creates a Watcher with default options.
func New() (*Watcher, error) {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Watcher with custom options.
func NewWithOptions(options Options) (*Watcher, error) {
	ignore, err := compileIgnore(options.Ignore)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	debounce := options.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	maxWatches := options.MaxWatches
	if maxWatches <= 0 {
		maxWatches = defaultMaxWatches
	}

	cleanupInterval := options.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}

	instance := &Watcher{
		watcher:         watcher,
		targets:         make(map[targetKey]*registration),
		watches:         make(map[string]int),
		debouncer:       newDebouncer(debounce),
		batches:         make(chan Batch, 1),
		events:          make(chan fsnotify.Event, 16),
		errors:          make(chan error, 4),
		done:            make(chan struct{}),
		logger:          logger.Category("watcher"),
		ignore:          ignore,
		maxWatches:      maxWatches,
		cleanupInterval: cleanupInterval,
		errorHandler:    options.ErrorHandler,
	}

	instance.startForwarder(watcher)
	go instance.run()
	go instance.cleanupLoop()
	return instance, nil
}

func compileIgnore(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		matcher, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("ignore pattern %q: %w", pattern, err)
		}
		compiled = append(compiled, matcher)
	}
	return compiled, nil
}

// Batches delivers debounced change sets. The channel is closed by Close.
func (watcher *Watcher) Batches() <-chan Batch {
	return watcher.batches
}

// Close shuts down the watcher and stops event processing.
func (watcher *Watcher) Close() error {
	if watcher == nil {
		return nil
	}

	watcher.mutex.Lock()
	if watcher.closed {
		watcher.mutex.Unlock()
		return nil
	}
	watcher.closed = true
	if watcher.debouncer != nil {
		watcher.debouncer.stop()
		watcher.debouncer = nil
	}
	source := watcher.watcher
	watcher.mutex.Unlock()

	watcher.restartMutex.Lock()
	if watcher.restartTimer != nil {
		watcher.restartTimer.Stop()
		watcher.restartTimer = nil
	}
	watcher.restartMutex.Unlock()

	close(watcher.done)

	watcher.batchMutex.Lock()
	close(watcher.batches)
	watcher.batchMutex.Unlock()

	if source == nil {
		return nil
	}
	return source.Close()
}

func (watcher *Watcher) run() {
	for {
		select {
		case event := <-watcher.events:
			watcher.handleEvent(event)
		case err := <-watcher.errors:
			watcher.handleError(err)
		case <-watcher.done:
			return
		}
	}
}

func (watcher *Watcher) startForwarder(source *fsnotify.Watcher) {
	if source == nil {
		return
	}

	go func() {
		for {
			select {
			case event, ok := <-source.Events:
				if !ok {
					return
				}
				select {
				case watcher.events <- event:
				case <-watcher.done:
					return
				}
			case err, ok := <-source.Errors:
				if !ok {
					return
				}
				select {
				case watcher.errors <- err:
				case <-watcher.done:
					return
				}
			case <-watcher.done:
				return
			}
		}
	}()
}

// SetErrorHandler configures a callback for unrecoverable watcher failures.
func (watcher *Watcher) SetErrorHandler(handler func(error)) {
	if watcher == nil {
		return
	}
	watcher.restartMutex.Lock()
	watcher.errorHandler = handler
	watcher.restartMutex.Unlock()
}

// Paths lists every path currently registered with fsnotify.
func (watcher *Watcher) Paths() []string {
	if watcher == nil {
		return nil
	}
	watcher.mutex.Lock()
	paths := make([]string, 0, len(watcher.watches))
	for path := range watcher.watches {
		paths = append(paths, path)
	}
	watcher.mutex.Unlock()
	sort.Strings(paths)
	return paths
}

// Metrics reports current watcher stats.
func (watcher *Watcher) Metrics() Metrics {
	if watcher == nil {
		return Metrics{}
	}
	watcher.mutex.Lock()
	active := watcher.activeWatches
	targets := len(watcher.targets)
	watcher.mutex.Unlock()
	watcher.restartMutex.Lock()
	restartAttempts := watcher.restartAttempts
	watcher.restartMutex.Unlock()
	return Metrics{
		ActiveWatches:   active,
		Targets:         targets,
		EventsDelivered: atomic.LoadUint64(&watcher.eventsDelivered),
		EventsCoalesced: atomic.LoadUint64(&watcher.eventsCoalesced),
		EventsIgnored:   atomic.LoadUint64(&watcher.eventsIgnored),
		Batches:         atomic.LoadUint64(&watcher.batchesDelivered),
		Errors:          atomic.LoadUint64(&watcher.errorCount),
		RestartAttempts: restartAttempts,
	}
}

func (watcher *Watcher) logWarn(message string, fields map[string]string) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Warn(message, fields)
}

func (watcher *Watcher) logDebug(message, path string, activeCount int) {
	if watcher == nil || watcher.logger == nil {
		return
	}
	watcher.logger.Debug(message, map[string]string{
		"path":           path,
		"active_watches": strconv.Itoa(activeCount),
	})
}
