package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"reburn/internal/config"
	"reburn/internal/logging"
)

type Config struct {
	Pattern     string
	Script      string
	Command     []string
	Debounce    time.Duration
	LogLevel    logging.Level
	LogFormat   logging.Format
	PTY         bool
	Workers     int
	Ignore      []string
	Rescan      bool
	MaxWatches  int
	StopTimeout time.Duration
	ConfigFile  string
	Sources     map[string]configSource
}

type configSource string

const (
	sourceDefault configSource = "default"
	sourceFile    configSource = "file"
	sourceEnv     configSource = "env"
	sourceFlag    configSource = "flag"
	sourceArg     configSource = "arg"
)

type configDefaults struct {
	Debounce    time.Duration
	LogLevel    logging.Level
	LogFormat   logging.Format
	PTY         bool
	Workers     int
	Rescan      bool
	MaxWatches  int
	StopTimeout time.Duration
}

type flagValues struct {
	ConfigPath  string
	Debounce    string
	LogLevel    string
	LogFormat   string
	PTY         bool
	Workers     int
	Ignore      []string
	Rescan      bool
	MaxWatches  int
	StopTimeout string
	Set         map[string]bool
}

// positionalArgs are the run arguments: the pattern, an optional script
// and the command given after "--".
type positionalArgs struct {
	Pattern string
	Script  string
	Command []string
}

func defaultConfigValues() configDefaults {
	return configDefaults{
		Debounce:    100 * time.Millisecond,
		LogLevel:    logging.LevelInfo,
		LogFormat:   logging.FormatText,
		PTY:         false,
		Workers:     runtime.NumCPU(),
		Rescan:      false,
		MaxWatches:  8192,
		StopTimeout: 5 * time.Second,
	}
}

// loadConfig resolves every setting from defaults, the config file, the
// environment and flags, in increasing precedence.
func loadConfig(flags flagValues, positional positionalArgs, workDir string) (Config, error) {
	defaults := defaultConfigValues()
	cfg := Config{
		Sources: make(map[string]configSource),
	}
	if flags.Set == nil {
		flags.Set = map[string]bool{}
	}

	file, err := loadConfigFile(flags, workDir)
	if err != nil {
		return Config{}, err
	}
	cfg.ConfigFile = file.Path

	pattern := ""
	patternSource := sourceDefault
	if trimmed := strings.TrimSpace(file.Pattern); trimmed != "" {
		pattern = trimmed
		patternSource = sourceFile
	}
	if positional.Pattern != "" {
		pattern = positional.Pattern
		patternSource = sourceArg
	}
	cfg.Pattern = pattern
	cfg.Sources["pattern"] = patternSource

	command, err := file.CommandArgs()
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", file.Path, err)
	}
	scriptPath := strings.TrimSpace(file.Script)
	commandSource := sourceDefault
	if len(command) > 0 || scriptPath != "" {
		commandSource = sourceFile
	}
	if positional.Script != "" || len(positional.Command) > 0 {
		scriptPath = positional.Script
		command = positional.Command
		commandSource = sourceArg
	}
	cfg.Script = scriptPath
	cfg.Command = command
	cfg.Sources["command"] = commandSource

	debounce := defaults.Debounce
	debounceSource := sourceDefault
	if file.Debounce != "" {
		parsed, err := config.ParseDuration(file.Debounce)
		if err != nil {
			return Config{}, fmt.Errorf("config %s: invalid debounce: %w", file.Path, err)
		}
		debounce = parsed
		debounceSource = sourceFile
	}
	if rawDebounce := strings.TrimSpace(os.Getenv("REBURN_DEBOUNCE")); rawDebounce != "" {
		if parsed, err := config.ParseDuration(rawDebounce); err == nil {
			debounce = parsed
			debounceSource = sourceEnv
		}
	}
	if flags.Set["debounce"] {
		parsed, err := config.ParseDuration(flags.Debounce)
		if err != nil {
			return Config{}, fmt.Errorf("invalid --debounce: %w", err)
		}
		debounce = parsed
		debounceSource = sourceFlag
	}
	cfg.Debounce = debounce
	cfg.Sources["debounce"] = debounceSource

	logLevel := defaults.LogLevel
	logLevelSource := sourceDefault
	if file.LogLevel != "" {
		parsed, ok := logging.ParseLevel(file.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("config %s: invalid log_level %q", file.Path, file.LogLevel)
		}
		logLevel = parsed
		logLevelSource = sourceFile
	}
	if rawLevel := strings.TrimSpace(os.Getenv("REBURN_LOG_LEVEL")); rawLevel != "" {
		if parsed, ok := logging.ParseLevel(rawLevel); ok {
			logLevel = parsed
			logLevelSource = sourceEnv
		}
	}
	if flags.Set["log-level"] {
		parsed, ok := logging.ParseLevel(flags.LogLevel)
		if !ok {
			return Config{}, fmt.Errorf("invalid --log-level %q", flags.LogLevel)
		}
		logLevel = parsed
		logLevelSource = sourceFlag
	}
	cfg.LogLevel = logLevel
	cfg.Sources["log-level"] = logLevelSource

	logFormat := defaults.LogFormat
	logFormatSource := sourceDefault
	if file.LogFormat != "" {
		parsed, ok := logging.ParseFormat(file.LogFormat)
		if !ok {
			return Config{}, fmt.Errorf("config %s: invalid log_format %q", file.Path, file.LogFormat)
		}
		logFormat = parsed
		logFormatSource = sourceFile
	}
	if rawFormat := strings.TrimSpace(os.Getenv("REBURN_LOG_FORMAT")); rawFormat != "" {
		if parsed, ok := logging.ParseFormat(rawFormat); ok {
			logFormat = parsed
			logFormatSource = sourceEnv
		}
	}
	if flags.Set["log-format"] {
		parsed, ok := logging.ParseFormat(flags.LogFormat)
		if !ok {
			return Config{}, fmt.Errorf("invalid --log-format %q", flags.LogFormat)
		}
		logFormat = parsed
		logFormatSource = sourceFlag
	}
	cfg.LogFormat = logFormat
	cfg.Sources["log-format"] = logFormatSource

	pty := defaults.PTY
	ptySource := sourceDefault
	if file.PTY != nil {
		pty = *file.PTY
		ptySource = sourceFile
	}
	if rawPTY := strings.TrimSpace(os.Getenv("REBURN_PTY")); rawPTY != "" {
		if parsed, err := strconv.ParseBool(rawPTY); err == nil {
			pty = parsed
			ptySource = sourceEnv
		}
	}
	if flags.Set["pty"] {
		pty = flags.PTY
		ptySource = sourceFlag
	}
	cfg.PTY = pty
	cfg.Sources["pty"] = ptySource

	workers := defaults.Workers
	workersSource := sourceDefault
	if file.Workers != nil {
		if *file.Workers <= 0 {
			return Config{}, fmt.Errorf("config %s: invalid workers: must be > 0", file.Path)
		}
		workers = *file.Workers
		workersSource = sourceFile
	}
	if rawWorkers := strings.TrimSpace(os.Getenv("REBURN_WORKERS")); rawWorkers != "" {
		if parsed, err := strconv.Atoi(rawWorkers); err == nil && parsed > 0 {
			workers = parsed
			workersSource = sourceEnv
		}
	}
	if flags.Set["workers"] {
		if flags.Workers <= 0 {
			return Config{}, fmt.Errorf("invalid --workers: must be > 0")
		}
		workers = flags.Workers
		workersSource = sourceFlag
	}
	cfg.Workers = workers
	cfg.Sources["workers"] = workersSource

	ignore := []string{}
	ignoreSource := sourceDefault
	if len(file.Ignore) > 0 {
		ignore = append(ignore, file.Ignore...)
		ignoreSource = sourceFile
	}
	if flags.Set["ignore"] {
		ignore = append(ignore, flags.Ignore...)
		ignoreSource = sourceFlag
	}
	cfg.Ignore = ignore
	cfg.Sources["ignore"] = ignoreSource

	rescan := defaults.Rescan
	rescanSource := sourceDefault
	if file.Rescan != nil {
		rescan = *file.Rescan
		rescanSource = sourceFile
	}
	if flags.Set["rescan"] {
		rescan = flags.Rescan
		rescanSource = sourceFlag
	}
	cfg.Rescan = rescan
	cfg.Sources["rescan"] = rescanSource

	maxWatches := defaults.MaxWatches
	maxWatchesSource := sourceDefault
	if file.MaxWatches != nil {
		if *file.MaxWatches <= 0 {
			return Config{}, fmt.Errorf("config %s: invalid max_watches: must be > 0", file.Path)
		}
		maxWatches = *file.MaxWatches
		maxWatchesSource = sourceFile
	}
	if rawMax := strings.TrimSpace(os.Getenv("REBURN_MAX_WATCHES")); rawMax != "" {
		if parsed, err := strconv.Atoi(rawMax); err == nil && parsed > 0 {
			maxWatches = parsed
			maxWatchesSource = sourceEnv
		}
	}
	if flags.Set["max-watches"] {
		if flags.MaxWatches <= 0 {
			return Config{}, fmt.Errorf("invalid --max-watches: must be > 0")
		}
		maxWatches = flags.MaxWatches
		maxWatchesSource = sourceFlag
	}
	cfg.MaxWatches = maxWatches
	cfg.Sources["max-watches"] = maxWatchesSource

	stopTimeout := defaults.StopTimeout
	stopTimeoutSource := sourceDefault
	if file.StopTimeout != "" {
		parsed, err := config.ParseDuration(file.StopTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("config %s: invalid stop_timeout: %w", file.Path, err)
		}
		stopTimeout = parsed
		stopTimeoutSource = sourceFile
	}
	if rawTimeout := strings.TrimSpace(os.Getenv("REBURN_STOP_TIMEOUT")); rawTimeout != "" {
		if parsed, err := config.ParseDuration(rawTimeout); err == nil {
			stopTimeout = parsed
			stopTimeoutSource = sourceEnv
		}
	}
	if flags.Set["stop-timeout"] {
		parsed, err := config.ParseDuration(flags.StopTimeout)
		if err != nil {
			return Config{}, fmt.Errorf("invalid --stop-timeout: %w", err)
		}
		stopTimeout = parsed
		stopTimeoutSource = sourceFlag
	}
	cfg.StopTimeout = stopTimeout
	cfg.Sources["stop-timeout"] = stopTimeoutSource

	return cfg, nil
}

func loadConfigFile(flags flagValues, workDir string) (config.File, error) {
	path := strings.TrimSpace(flags.ConfigPath)
	if path == "" {
		discovered, err := config.Discover(workDir)
		if err != nil {
			return config.File{}, err
		}
		if discovered == "" {
			return config.File{}, nil
		}
		path = discovered
	}
	return config.Load(path)
}
