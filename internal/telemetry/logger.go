package telemetry

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	clog "github.com/charmbracelet/log"
)

// Event names written to the telemetry log.
const (
	EventAppStart     = "app.start"
	EventRoundStart   = "round.start"
	EventRoundCommand = "round.command"
	EventRoundOver    = "round.over"
	EventRoundRestart = "round.restart"
	EventWSConnect    = "ws.connect"
	EventWSDisconnect = "ws.disconnect"
)

// Sink is what the controllers log through.
type Sink interface {
	Info(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// JSONLogger writes one JSON object per event through clog's JSON formatter.
type JSONLogger struct {
	mu     sync.Mutex
	closer io.Closer
	log    *clog.Logger
}

// NewJSONLogger appends to path. An empty path discards everything.
func NewJSONLogger(path string) (*JSONLogger, error) {
	if path == "" {
		return NewWriterLogger(io.Discard), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	l := NewWriterLogger(f)
	l.closer = f
	return l, nil
}

func NewWriterLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{log: clog.NewWithOptions(w, clog.Options{
		Formatter:       clog.JSONFormatter,
		Level:           clog.InfoLevel,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
		TimeFunction:    func(t time.Time) time.Time { return t.UTC() },
	})}
}

func (l *JSONLogger) Info(msg string, fields map[string]any) {
	if l == nil || l.log == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Info(msg, keyvals(fields)...)
}

func (l *JSONLogger) Error(msg string, fields map[string]any) {
	if l == nil || l.log == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.Error(msg, keyvals(fields)...)
}

func (l *JSONLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// keyvals flattens fields in key order so lines are stable.
func keyvals(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		out = append(out, k, fields[k])
	}
	return out
}

// Nop discards events.
type Nop struct{}

func (Nop) Info(string, map[string]any)  {}
func (Nop) Error(string, map[string]any) {}
