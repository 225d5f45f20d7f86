package logging

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultBufferSize = 200

const CategoryField = "reburn.category"

type Options struct {
	Level  Level
	Format Format
	// Output receives one rendered line per entry. Nil discards output.
	Output io.Writer
	// Buffer keeps recent entries in memory. Nil allocates one of
	// DefaultBufferSize.
	Buffer *LogBuffer
}

// Logger writes leveled entries with string fields. Loggers derived with
// With or Category share the buffer and output of their parent.
type Logger struct {
	sink        *sink
	minLevel    Level
	baseContext map[string]string
}

type sink struct {
	mu     sync.Mutex
	buffer *LogBuffer
	output io.Writer
	format Format
}

func New(options Options) *Logger {
	buffer := options.Buffer
	if buffer == nil {
		buffer = NewLogBuffer(DefaultBufferSize)
	}
	output := options.Output
	if output == nil {
		output = io.Discard
	}
	format := options.Format
	if format != FormatJSON {
		format = FormatText
	}
	return &Logger{
		sink: &sink{
			buffer: buffer,
			output: output,
			format: format,
		},
		minLevel: normalizeLevel(options.Level),
	}
}

func NewLoggerWithOutput(buffer *LogBuffer, minLevel Level, output io.Writer) *Logger {
	return New(Options{Level: minLevel, Output: output, Buffer: buffer})
}

// Discard returns a logger that keeps entries in memory only.
func Discard() *Logger {
	return New(Options{Level: LevelInfo})
}

func (l *Logger) Buffer() *LogBuffer {
	if l == nil {
		return nil
	}
	return l.sink.buffer
}

func (l *Logger) With(fields map[string]string) *Logger {
	if l == nil {
		return l
	}
	return &Logger{
		sink:        l.sink,
		minLevel:    l.minLevel,
		baseContext: cloneFields(l.baseContext, fields),
	}
}

// Category tags every entry with the component that produced it.
func (l *Logger) Category(name string) *Logger {
	return l.With(map[string]string{CategoryField: name})
}

func (l *Logger) Debug(message string, fields map[string]string) {
	l.log(LevelDebug, message, fields)
}

func (l *Logger) Info(message string, fields map[string]string) {
	l.log(LevelInfo, message, fields)
}

func (l *Logger) Warn(message string, fields map[string]string) {
	l.log(LevelWarning, message, fields)
}

func (l *Logger) Error(message string, fields map[string]string) {
	l.log(LevelError, message, fields)
}

func (l *Logger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return rank(level) >= rank(l.minLevel)
}

func (l *Logger) log(level Level, message string, fields map[string]string) {
	if l == nil || !l.Enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		Context:   cloneFields(l.baseContext, fields),
	}
	l.sink.write(entry)
}

func (s *sink) write(entry LogEntry) {
	s.buffer.Add(entry)

	var line string
	if s.format == FormatJSON {
		line = formatJSON(entry)
	} else {
		line = entry.Timestamp.Local().Format("15:04:05.000") + " " + formatEntry(entry)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.output, line+"\n")
}

func normalizeLevel(level Level) Level {
	if _, ok := levelRanks[level]; ok {
		return level
	}
	return LevelInfo
}

func rank(level Level) int {
	if value, ok := levelRanks[level]; ok {
		return value
	}
	return levelRanks[LevelInfo]
}

func ParseLevel(value string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warning", "warn":
		return LevelWarning, true
	case "error":
		return LevelError, true
	default:
		return "", false
	}
}

func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "text", "logfmt":
		return FormatText, true
	case "json":
		return FormatJSON, true
	default:
		return "", false
	}
}

func cloneFields(base, extra map[string]string) map[string]string {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	combined := make(map[string]string, len(base)+len(extra))
	for key, value := range base {
		combined[key] = value
	}
	for key, value := range extra {
		combined[key] = value
	}
	return combined
}

// formatEntry renders entry as logfmt with the fields sorted by key.
func formatEntry(entry LogEntry) string {
	builder := strings.Builder{}
	builder.WriteString("level=")
	builder.WriteString(string(entry.Level))
	builder.WriteString(" msg=")
	builder.WriteString(strconv.Quote(entry.Message))

	keys := make([]string, 0, len(entry.Context))
	for key := range entry.Context {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		builder.WriteString(" ")
		builder.WriteString(key)
		builder.WriteString("=")
		builder.WriteString(strconv.Quote(entry.Context[key]))
	}
	return builder.String()
}

// formatJSON renders entry as one JSON object. Fields sit next to time,
// level and msg; a field with one of those names does not override them.
func formatJSON(entry LogEntry) string {
	object := make(map[string]string, len(entry.Context)+3)
	for key, value := range entry.Context {
		object[key] = value
	}
	object["time"] = entry.Timestamp.Format(time.RFC3339Nano)
	object["level"] = string(entry.Level)
	object["msg"] = entry.Message
	data, err := json.Marshal(object)
	if err != nil {
		return formatEntry(entry)
	}
	return string(data)
}
