// Package logging provides leveled logging and an evaluation trace for artcheck.
//   - NewLogger returns a slog.Logger for stderr (operational output)
//   - TraceLogger appends structured JSONL events to <out>/evaluations.jsonl
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level every
// yearly summary is logged, not only the verdicts.
const LevelTrace = slog.LevelDebug - 4

// TraceFile is the name of the evaluation trace inside the output directory.
const TraceFile = "evaluations.jsonl"

// ParseLevel maps a level name to a slog.Level.
// Supported values: "warn", "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "warn", "warning":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// TraceLogger appends evaluation events to a JSONL file. A nil TraceLogger
// is valid and discards everything.
type TraceLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewTraceLogger opens dir/evaluations.jsonl for append at debug or trace
// level. At info and above it returns nil and creates nothing. It also
// returns nil when the file cannot be opened.
func NewTraceLogger(dir string, level string) *TraceLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, TraceFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return &TraceLogger{file: f}
}

// Log writes one event line tagged with kind and a UTC timestamp. The
// caller's map is not modified.
func (tl *TraceLogger) Log(kind string, fields map[string]any) {
	if tl == nil || tl.file == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = kind
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.file != nil {
		_, _ = tl.file.Write(data)
	}
}

// Close closes the trace file. Safe on a nil receiver.
func (tl *TraceLogger) Close() {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file != nil {
		tl.file.Close()
		tl.file = nil
	}
}
