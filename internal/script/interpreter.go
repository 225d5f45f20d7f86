package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SelfName is the interpreter name that marks a reburn shebang line.
const SelfName = "reburn"

var (
	ErrNoShebang       = errors.New("no shebang found")
	ErrOnlySelfShebang = errors.New("only the reburn shebang found")
)

type lineKind int

const (
	lineOther lineKind = iota
	lineSelf
	lineShebang
)

// parseShebang splits "#!name [arg]". Everything after the name is kept as
// a single trimmed argument, like the kernel does.
func parseShebang(line string) (lineKind, []string) {
	if !strings.HasPrefix(line, "#!") {
		return lineOther, nil
	}
	rest := strings.TrimLeft(line[2:], " \t")
	name, arg, _ := strings.Cut(rest, " ")
	name = strings.TrimSpace(name)
	arg = strings.TrimSpace(arg)
	if name == "" {
		return lineOther, nil
	}
	if isSelf(name, arg) {
		return lineSelf, nil
	}
	if arg == "" {
		return lineShebang, []string{name}
	}
	return lineShebang, []string{name, arg}
}

func isSelf(name, arg string) bool {
	if filepath.Base(name) == SelfName {
		return true
	}
	if filepath.Base(name) != "env" {
		return false
	}
	first, _, _ := strings.Cut(arg, " ")
	return first == SelfName
}

// Interpreter returns the interpreter command of the script at path. Leading
// reburn shebang lines are skipped; the first other line must be a shebang.
func Interpreter(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	interpreter, err := ReadInterpreter(file)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return interpreter, nil
}

// ReadInterpreter is Interpreter over an already opened script.
func ReadInterpreter(source io.Reader) ([]string, error) {
	reader := bufio.NewReader(source)
	sawSelf := false
	for {
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			if errors.Is(err, io.EOF) {
				if sawSelf {
					return nil, ErrOnlySelfShebang
				}
				return nil, ErrNoShebang
			}
			return nil, err
		}

		kind, interpreter := parseShebang(strings.TrimRight(line, "\r\n"))
		switch kind {
		case lineSelf:
			sawSelf = true
		case lineShebang:
			return interpreter, nil
		default:
			return nil, ErrNoShebang
		}
		if err != nil {
			if sawSelf {
				return nil, ErrOnlySelfShebang
			}
			return nil, ErrNoShebang
		}
	}
}

// Command returns the argv that runs the script: its interpreter followed by
// the script path.
func Command(path string) ([]string, error) {
	interpreter, err := Interpreter(path)
	if err != nil {
		return nil, err
	}
	return append(interpreter, path), nil
}
