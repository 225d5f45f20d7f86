package logging

import "time"

type Level string

const (
	LevelDebug   Level = "debug"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

var levelRanks = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Format selects how entries are rendered on the output writer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

type LogEntry struct {
	Timestamp time.Time         `json:"time"`
	Level     Level             `json:"level"`
	Message   string            `json:"msg"`
	Context   map[string]string `json:"context,omitempty"`
}
