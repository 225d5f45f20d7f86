package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"reburn/internal/logging"
	"reburn/internal/route"
	"reburn/internal/version"
	"reburn/internal/walk"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type commandIO struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newRootCommand(streams commandIO) *cobra.Command {
	defaults := defaultConfigValues()
	flags := flagValues{}

	root := &cobra.Command{
		Use:   "reburn [flags] <pattern> [script] [-- command args...]",
		Short: "Rerun a command whenever files matching a pattern change",
		Long: `reburn watches the files selected by a pattern and restarts a command
each time one of them changes.

Patterns are paths made of words, * (any part of a name), ** (any number of
directories), {a,b} alternatives and !word exclusions, e.g. "src/**/*!{_test}.go".

The command is taken from the arguments after "--", else from the shebang
of the script, else from the config file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, err := splitRunArgs(args, cmd.ArgsLenAtDash())
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(cmd, flags, positional)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, streams.stderr)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			killCtx, kill := context.WithCancel(context.Background())
			defer kill()
			signalCh := make(chan os.Signal, 2)
			signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(signalCh)
			stopWatching := watchShutdownSignals(logger, cancel, kill, signalCh)
			defer stopWatching()

			return runWatch(ctx, killCtx, cfg, logger, streams)
		},
	}
	root.SetIn(streams.stdin)
	root.SetOut(streams.stdout)
	root.SetErr(streams.stderr)

	persistent := root.PersistentFlags()
	persistent.StringVar(&flags.ConfigPath, "config", "", "Config file (default: discovered reburn.toml / reburn.yaml)")
	persistent.StringVar(&flags.LogLevel, "log-level", string(defaults.LogLevel), "Log level: debug, info, warning, error")
	persistent.StringVar(&flags.LogFormat, "log-format", string(defaults.LogFormat), "Log format: text or json")
	persistent.IntVar(&flags.Workers, "workers", defaults.Workers, "Directory walker workers")

	local := root.Flags()
	local.StringVar(&flags.Debounce, "debounce", defaults.Debounce.String(), "Quiet period before a restart")
	local.BoolVar(&flags.PTY, "pty", defaults.PTY, "Run the command attached to a pseudo terminal")
	local.StringArrayVar(&flags.Ignore, "ignore", nil, "Glob of changed paths to ignore (repeatable)")
	local.BoolVar(&flags.Rescan, "rescan", defaults.Rescan, "Resolve the pattern again after every change")
	local.IntVar(&flags.MaxWatches, "max-watches", defaults.MaxWatches, "Maximum number of watched paths")
	local.StringVar(&flags.StopTimeout, "stop-timeout", defaults.StopTimeout.String(), "Grace period before the command is killed")

	root.AddCommand(
		newTargetsCommand(&flags, streams),
		newRoutesCommand(&flags, streams),
		newVersionCommand(streams),
	)
	return root
}

func newTargetsCommand(flags *flagValues, streams commandIO) *cobra.Command {
	return &cobra.Command{
		Use:   "targets [pattern]",
		Short: "Print the paths a pattern would watch",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional := positionalArgs{}
			if len(args) == 1 {
				positional.Pattern = args[0]
			}
			cfg, err := resolveConfig(cmd, *flags, positional)
			if err != nil {
				return err
			}
			routes, err := compilePattern(cfg.Pattern)
			if err != nil {
				return err
			}
			walker := walk.New(walk.Options{
				Workers: cfg.Workers,
				Logger:  newLogger(cfg, streams.stderr),
			})
			for _, target := range uniqueTargets(walker.Targets(routes)) {
				fmt.Fprintf(streams.stdout, "%s\t%s\n", target.Path, target.Mode())
			}
			return nil
		},
	}
}

func newRoutesCommand(flags *flagValues, streams commandIO) *cobra.Command {
	return &cobra.Command{
		Use:   "routes [pattern]",
		Short: "Print the routes a pattern expands to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional := positionalArgs{}
			if len(args) == 1 {
				positional.Pattern = args[0]
			}
			cfg, err := resolveConfig(cmd, *flags, positional)
			if err != nil {
				return err
			}
			routes, err := compilePattern(cfg.Pattern)
			if err != nil {
				return err
			}
			for _, current := range routes {
				fmt.Fprintln(streams.stdout, current.String())
			}
			return nil
		},
	}
}

func newVersionCommand(streams commandIO) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the reburn version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(streams.stdout, version.GetVersionInfo().String())
		},
	}
}

// splitRunArgs separates "<pattern> [script]" from the command after "--".
func splitRunArgs(args []string, dash int) (positionalArgs, error) {
	before := args
	var after []string
	if dash >= 0 {
		before = args[:dash]
		after = args[dash:]
	}
	positional := positionalArgs{Command: after}
	switch len(before) {
	case 0:
	case 1:
		positional.Pattern = before[0]
	case 2:
		positional.Pattern = before[0]
		positional.Script = before[1]
	default:
		return positionalArgs{}, fmt.Errorf("unexpected arguments %q: put the command after --", strings.Join(before[2:], " "))
	}
	if positional.Script != "" && len(positional.Command) > 0 {
		return positionalArgs{}, fmt.Errorf("give either a script or a command after --, not both")
	}
	if dash >= 0 && len(after) == 0 {
		return positionalArgs{}, fmt.Errorf("missing command after --")
	}
	return positional, nil
}

func resolveConfig(cmd *cobra.Command, flags flagValues, positional positionalArgs) (Config, error) {
	flags.Set = make(map[string]bool)
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		flags.Set[flag.Name] = true
	})
	workDir, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}
	return loadConfig(flags, positional, workDir)
}

func compilePattern(pattern string) ([]route.Route, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("missing pattern: pass one as the first argument or set pattern in the config")
	}
	routes, err := route.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return routes, nil
}

func newLogger(cfg Config, output io.Writer) *logging.Logger {
	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: output,
	})
	return logger.Category("reburn")
}

// uniqueTargets drops repeated targets and sorts them by path.
func uniqueTargets(targets []walk.Target) []walk.Target {
	seen := make(map[walk.Target]bool, len(targets))
	unique := make([]walk.Target, 0, len(targets))
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true
		unique = append(unique, target)
	}
	slices.SortFunc(unique, func(a, b walk.Target) int {
		if a.Path != b.Path {
			return strings.Compare(a.Path, b.Path)
		}
		return strings.Compare(a.Mode(), b.Mode())
	})
	return unique
}
