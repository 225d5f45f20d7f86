package pattern

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPattern       = errors.New("empty pattern")
	ErrEmptyGroup         = errors.New("empty group")
	ErrNoOpenedGroup      = errors.New("no opened group")
	ErrUnclosedGroup      = errors.New("unclosed group")
	ErrNothingBeforeComma = errors.New("nothing before the comma")
	ErrNothingBeforeSlash = errors.New("nothing before the slash")
	ErrUnusedNegation     = errors.New("unused negation mark")
)

// SyntaxError reports where a pattern stopped making sense.
type SyntaxError struct {
	Pattern string
	Offset  int
	Err     error
}

func (err *SyntaxError) Error() string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("pattern %q: %v at offset %d", err.Pattern, err.Err, err.Offset)
}

func (err *SyntaxError) Unwrap() error {
	if err == nil {
		return nil
	}
	return err.Err
}
