package walk

import (
	"path/filepath"
	"runtime"

	"reburn/internal/fsutil"
	"reburn/internal/logging"
	"reburn/internal/route"

	"golang.org/x/sync/errgroup"
)

// Target is a path to register with the watcher. Recursive targets cover
// the whole subtree below Path.
type Target struct {
	Path      string
	Recursive bool
}

func (target Target) Mode() string {
	if target.Recursive {
		return "recursive"
	}
	return "direct"
}

type Options struct {
	// Root is where every route starts. Defaults to ".".
	Root    string
	Workers int
	Logger  *logging.Logger
}

// Walker resolves compiled routes against the filesystem.
type Walker struct {
	root    string
	workers int
	logger  *logging.Logger
}

func New(options Options) *Walker {
	root := options.Root
	if root == "" {
		root = "."
	}
	workers := options.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := options.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Walker{
		root:    root,
		workers: workers,
		logger:  logger.Category("walker"),
	}
}

// Walk streams the targets of every route. The channel is closed once all
// directory listings are done. Order is unspecified and a path reachable
// through several branches is sent once per branch.
func (walker *Walker) Walk(routes []route.Route) <-chan Target {
	out := make(chan Target, walker.workers)
	go func() {
		defer close(out)
		run := &walkRun{
			logger: walker.logger,
			out:    out,
		}
		run.group.SetLimit(walker.workers)
		for _, current := range routes {
			run.dispatch(current, walker.root)
		}
		_ = run.group.Wait()
	}()
	return out
}

// Targets walks routes and collects the result.
func (walker *Walker) Targets(routes []route.Route) []Target {
	return Collect(walker.Walk(routes))
}

// Collect drains a target channel.
func Collect(targets <-chan Target) []Target {
	collected := []Target{}
	for target := range targets {
		collected = append(collected, target)
	}
	return collected
}

type walkRun struct {
	logger *logging.Logger
	out    chan<- Target
	group  errgroup.Group
}

// dispatch hands the match to an idle worker, or runs it on the calling
// goroutine when every worker is busy so nested dispatches never block.
func (run *walkRun) dispatch(items route.Route, path string) {
	if run.group.TryGo(func() error {
		run.match(items, path)
		return nil
	}) {
		return
	}
	run.match(items, path)
}

func (run *walkRun) match(items route.Route, path string) {
	if len(items) == 0 {
		run.out <- Target{Path: path}
		return
	}
	head, tail := items[0], items[1:]
	if len(items) == 1 && head.Kind == route.ItemAnySubRoute {
		run.out <- Target{Path: path, Recursive: true}
		return
	}
	if head.IsLiteral(".") {
		run.match(tail, path)
		return
	}
	if head.IsLiteral("..") {
		parent, ok := fsutil.Parent(path)
		if !ok {
			run.logger.Debug("no parent directory", map[string]string{"path": path})
			return
		}
		run.match(tail, parent)
		return
	}

	entries, err := fsutil.ReadDir(path)
	if err != nil {
		run.logger.Debug("directory listing failed", map[string]string{
			"path":  path,
			"error": err.Error(),
		})
	}
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		if head.Matches(entry.Name()) {
			run.dispatch(tail, child)
		}
		if !head.Omittable() {
			continue
		}
		// Symlinked directories are not re-entered by a depth wildcard.
		if entry.IsDir() {
			run.dispatch(items, child)
		} else if fsutil.IsDir(path, entry) {
			run.logger.Debug("symlinked directory not descended", map[string]string{"path": child})
		}
	}
	if head.Omittable() {
		run.match(tail, path)
	}
}
