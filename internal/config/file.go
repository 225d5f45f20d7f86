package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/mattn/go-shellwords"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// FileNames lists the config files looked up in the working directory, in
// order.
var FileNames = []string{
	"reburn.toml",
	".reburn.toml",
	"reburn.yaml",
	"reburn.yml",
	".reburn.yaml",
}

// UserFile is the per-user config path relative to the home directory.
var UserFile = filepath.Join(".config", "reburn", "config.toml")

// File is the content of a config file. Pointer fields distinguish an
// absent key from its zero value.
type File struct {
	Pattern     string   `toml:"pattern" yaml:"pattern"`
	Command     string   `toml:"command" yaml:"command"`
	Script      string   `toml:"script" yaml:"script"`
	Debounce    string   `toml:"debounce" yaml:"debounce"`
	LogLevel    string   `toml:"log_level" yaml:"log_level"`
	LogFormat   string   `toml:"log_format" yaml:"log_format"`
	PTY         *bool    `toml:"pty" yaml:"pty"`
	Workers     *int     `toml:"workers" yaml:"workers"`
	Ignore      []string `toml:"ignore" yaml:"ignore"`
	Rescan      *bool    `toml:"rescan" yaml:"rescan"`
	MaxWatches  *int     `toml:"max_watches" yaml:"max_watches"`
	StopTimeout string   `toml:"stop_timeout" yaml:"stop_timeout"`

	// Path is where the file was read from.
	Path string `toml:"-" yaml:"-"`
}

// Discover returns the first config file found in dir, then the user
// config. It returns "" when there is none.
func Discover(dir string) (string, error) {
	for _, name := range FileNames {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate, nil
		}
	}

	home, err := homedir.Dir()
	if err != nil {
		return "", nil
	}
	candidate := filepath.Join(home, UserFile)
	if isFile(candidate) {
		return candidate, nil
	}
	return "", nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads a config file, picking the decoder from its extension. A
// leading "~" is expanded to the home directory.
func Load(path string) (File, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return File{}, fmt.Errorf("config %s: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return File{}, fmt.Errorf("config %s: %w", path, err)
		}
		return File{}, err
	}
	file, err := Parse(expanded, data)
	if err != nil {
		return File{}, err
	}
	file.Path = expanded
	return file, nil
}

// Parse decodes data as TOML or YAML depending on the extension of name.
// Unknown keys are rejected.
func Parse(name string, data []byte) (File, error) {
	var file File
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".toml":
		metadata, err := toml.Decode(string(data), &file)
		if err != nil {
			var parseErr toml.ParseError
			if errors.As(err, &parseErr) {
				return File{}, fmt.Errorf("parse config %s: %s", name, parseErr.ErrorWithPosition())
			}
			return File{}, fmt.Errorf("parse config %s: %w", name, err)
		}
		if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
			return File{}, fmt.Errorf("parse config %s: unknown key %q", name, undecoded[0].String())
		}
	case ".yaml", ".yml":
		if len(bytes.TrimSpace(data)) == 0 {
			return file, nil
		}
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&file); err != nil {
			return File{}, fmt.Errorf("parse config %s: %w", name, err)
		}
	default:
		return File{}, fmt.Errorf("unsupported config extension %q", ext)
	}
	return file, nil
}

// CommandArgs splits the command key with shell quoting rules.
func (file File) CommandArgs() ([]string, error) {
	return SplitCommand(file.Command)
}

// SplitCommand splits a command line with shell quoting rules. Environment
// variables are not expanded.
func SplitCommand(command string) ([]string, error) {
	if strings.TrimSpace(command) == "" {
		return nil, nil
	}
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("invalid command %q: %w", command, err)
	}
	return args, nil
}

// ParseDuration accepts Go durations ("250ms") and bare integers, read as
// milliseconds.
func ParseDuration(raw string) (time.Duration, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, errors.New("duration is empty")
	}
	if isDigits(trimmed) {
		duration, err := time.ParseDuration(trimmed + "ms")
		if err != nil {
			return 0, err
		}
		return duration, nil
	}
	duration, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, err
	}
	if duration < 0 {
		return 0, fmt.Errorf("duration %q is negative", raw)
	}
	return duration, nil
}

func isDigits(value string) bool {
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return value != ""
}
