package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"reburn/internal/logging"
	"reburn/internal/process"
	"reburn/internal/route"
	"reburn/internal/script"
	"reburn/internal/walk"
	"reburn/internal/watcher"
)

type supervisor struct {
	cfg      Config
	killCtx  context.Context
	command  []string
	routes   []route.Route
	logger   *logging.Logger
	streams  commandIO
	input    *process.Input
	walker   *walk.Walker
	watcher  *watcher.Watcher
	registry *process.Registry
	targets  []walk.Target
	current  *process.Process
	restarts int
}

// runWatch starts the command and restarts it on every batch of changes
// until ctx is cancelled. Cancelling killCtx cuts the grace period of any
// stop in progress short.
func runWatch(ctx, killCtx context.Context, cfg Config, logger *logging.Logger, streams commandIO) error {
	routes, err := compilePattern(cfg.Pattern)
	if err != nil {
		return err
	}
	command, err := resolveCommand(cfg)
	if err != nil {
		return err
	}

	fileWatcher, err := watcher.NewWithOptions(watcher.Options{
		Logger:     logger,
		Debounce:   cfg.Debounce,
		MaxWatches: cfg.MaxWatches,
		Ignore:     cfg.Ignore,
	})
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fileWatcher.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	var watchErr atomic.Value
	fileWatcher.SetErrorHandler(func(err error) {
		watchErr.Store(err)
		cancel()
	})

	if killCtx == nil {
		killCtx = context.Background()
	}
	s := &supervisor{
		cfg:     cfg,
		killCtx: killCtx,
		command: command,
		routes:  routes,
		logger:  logger,
		streams: streams,
		walker: walk.New(walk.Options{
			Workers: cfg.Workers,
			Logger:  logger,
		}),
		watcher:  fileWatcher,
		registry: process.NewRegistry(),
	}
	// A terminal run copies stdin itself, so one pump feeds every restart.
	if cfg.PTY && streams.stdin != nil {
		s.input = process.NewInput(streams.stdin)
		defer s.input.Close()
	}

	s.register(s.resolve())
	s.start(ctx)

	for {
		select {
		case <-ctx.Done():
			stopErr := s.stopAll()
			if err, ok := watchErr.Load().(error); ok {
				return errors.Join(fmt.Errorf("watcher failed: %w", err), stopErr)
			}
			return stopErr
		case batch, ok := <-fileWatcher.Batches():
			if !ok {
				return s.stopAll()
			}
			s.logger.Info("change detected", batchFields(batch))
			s.stop()
			if cfg.Rescan {
				s.register(s.resolve())
			}
			if ctx.Err() != nil {
				continue
			}
			s.restarts++
			s.start(ctx)
		}
	}
}

// resolveCommand picks the command to run: the arguments after "--", else
// the script run through its shebang interpreter.
func resolveCommand(cfg Config) ([]string, error) {
	if len(cfg.Command) > 0 {
		return cfg.Command, nil
	}
	if cfg.Script != "" {
		command, err := script.Command(cfg.Script)
		if err != nil {
			return nil, err
		}
		return command, nil
	}
	return nil, errors.New("missing command: pass a script, a command after --, or set command in the config")
}

func (s *supervisor) resolve() []walk.Target {
	targets := uniqueTargets(s.walker.Targets(s.routes))
	if len(targets) == 0 {
		s.logger.Warn("pattern matched nothing", map[string]string{"pattern": s.cfg.Pattern})
	}
	return targets
}

// register swaps the watched targets for next. New targets are added
// before old ones are released so shared paths keep their watch.
func (s *supervisor) register(next []walk.Target) {
	added := 0
	for _, target := range next {
		if err := s.watcher.AddTarget(target.Path, target.Recursive); err != nil {
			s.logger.Warn("watch target failed", map[string]string{
				"path":  target.Path,
				"mode":  target.Mode(),
				"error": err.Error(),
			})
			continue
		}
		added++
	}
	for _, target := range s.targets {
		s.watcher.Remove(target.Path, target.Recursive)
	}
	s.targets = next

	metrics := s.watcher.Metrics()
	s.logger.Info("targets registered", map[string]string{
		"targets": strconv.Itoa(added),
		"watches": strconv.Itoa(metrics.ActiveWatches),
	})
}

func (s *supervisor) start(ctx context.Context) {
	var stdin io.Reader
	if s.input == nil {
		stdin = s.streams.stdin
	}
	started, err := process.Start(ctx, process.Spec{
		Args:   s.command,
		PTY:    s.cfg.PTY,
		Stdin:  stdin,
		Input:  s.input,
		Stdout: s.streams.stdout,
		Stderr: s.streams.stderr,
		Logger: s.logger,
		Env:    []string{"REBURN_RESTARTS=" + strconv.Itoa(s.restarts)},
	})
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("command start failed", map[string]string{
				"command": strings.Join(s.command, " "),
				"error":   err.Error(),
			})
		}
		s.current = nil
		return
	}
	s.current = started
	s.registry.Add(started)
}

func (s *supervisor) stop() {
	if s.current == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.killCtx, s.cfg.StopTimeout)
	defer cancel()
	if err := s.current.Stop(ctx); err != nil {
		s.logger.Warn("command stop failed", map[string]string{
			"run_id": s.current.ID,
			"error":  err.Error(),
		})
	}
	s.registry.Remove(s.current.ID)
	s.current = nil
}

func (s *supervisor) stopAll() error {
	ctx, cancel := context.WithTimeout(s.killCtx, s.cfg.StopTimeout)
	defer cancel()
	s.current = nil
	if err := s.registry.StopAll(ctx); err != nil {
		return fmt.Errorf("stop command: %w", err)
	}
	return nil
}

func batchFields(batch watcher.Batch) map[string]string {
	fields := map[string]string{
		"paths":  strconv.Itoa(len(batch.Paths)),
		"events": strconv.Itoa(batch.Events),
	}
	if len(batch.Paths) > 0 {
		fields["path"] = batch.Paths[0]
	}
	return fields
}
