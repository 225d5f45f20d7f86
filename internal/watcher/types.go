package watcher

import (
	"sync"
	"time"

	"reburn/internal/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Event represents a single filesystem change.
type Event struct {
	Path      string
	Op        fsnotify.Op
	Timestamp time.Time
}

// Batch is the set of paths that changed during one debounce window.
type Batch struct {
	Paths     []string
	Events    int
	Timestamp time.Time
}

// Options controls watcher behavior.
type Options struct {
	Logger          *logging.Logger
	Debounce        time.Duration
	MaxWatches      int
	CleanupInterval time.Duration
	// Ignore holds glob patterns matched against the slash form of an event
	// path and against its base name.
	Ignore       []string
	ErrorHandler func(error)
}

// Metrics reports watcher counters.
type Metrics struct {
	ActiveWatches   int
	Targets         int
	EventsDelivered uint64
	EventsCoalesced uint64
	EventsIgnored   uint64
	Batches         uint64
	Errors          uint64
	RestartAttempts int
}

type targetKey struct {
	path      string
	recursive bool
}

type registration struct {
	refs int
	// watches lists every fsnotify path this registration holds a
	// reference on.
	watches []string
}

// Watcher is the concrete fsnotify-backed implementation.
type Watcher struct {
	watcher         *fsnotify.Watcher
	mutex           sync.Mutex
	targets         map[targetKey]*registration
	watches         map[string]int
	debouncer       *debouncer
	batches         chan Batch
	batchMutex      sync.Mutex
	events          chan fsnotify.Event
	errors          chan error
	done            chan struct{}
	closed          bool
	logger          *logging.Logger
	ignore          []glob.Glob
	maxWatches      int
	activeWatches   int
	cleanupInterval time.Duration
	errorHandler    func(error)

	restartMutex    sync.Mutex
	restartTimer    *time.Timer
	restartAttempts int

	eventsDelivered  uint64
	eventsCoalesced  uint64
	eventsIgnored    uint64
	batchesDelivered uint64
	errorCount       uint64
}
