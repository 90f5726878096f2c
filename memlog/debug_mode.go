// Package memlog wires the rotating file logger every CLI invocation
// installs at startup, plus an on-demand trace capture mode adapted
// from the teacher's DebugMode/TraceEntry diagnostics layer.
package memlog

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/natefinch/lumberjack.v2"
)

// InstallRotatingLogger points the standard log package at a rotating
// file under root, using the teacher's exact rotation constants.
func InstallRotatingLogger(root string) error {
	dir := filepath.Join(root, "memory", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	logger := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "memos.log"),
		MaxSize:    10,   // megabytes before rotation
		MaxBackups: 3,    // number of backups to keep
		MaxAge:     28,   // days to keep old logs
		Compress:   true, // compress rotated files
	}
	log.SetOutput(logger)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	return nil
}

// DebugLevel specifies trace verbosity.
type DebugLevel int

const (
	DebugLevelInfo DebugLevel = iota
	DebugLevelDebug
	DebugLevelTrace
)

func (l DebugLevel) String() string {
	switch l {
	case DebugLevelDebug:
		return "debug"
	case DebugLevelTrace:
		return "trace"
	default:
		return "info"
	}
}

// TraceEntry is one captured trace event: which gate or component ran,
// what it did, and how long it took.
type TraceEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     DebugLevel             `json:"level"`
	Component string                 `json:"component"`
	Operation string                 `json:"operation"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type tracer struct {
	mu      sync.Mutex
	enabled bool
	level   DebugLevel
	entries []TraceEntry
}

var global = &tracer{}

// Enable turns on trace capture at the given level.
func Enable(level DebugLevel) {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.enabled = true
	global.level = level
	global.entries = nil
}

// Disable turns off trace capture.
func Disable() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.enabled = false
}

// Enabled reports whether trace capture is currently on.
func Enabled() bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.enabled
}

// Trace records one entry if capture is enabled at or above level.
func Trace(level DebugLevel, component, operation string, data map[string]interface{}) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if !global.enabled || level < global.level {
		return
	}
	global.entries = append(global.entries, TraceEntry{
		Timestamp: time.Now(),
		Level:     level,
		Component: component,
		Operation: operation,
		Data:      data,
	})
}

// Entries returns a copy of everything captured so far.
func Entries() []TraceEntry {
	global.mu.Lock()
	defer global.mu.Unlock()
	out := make([]TraceEntry, len(global.entries))
	copy(out, global.entries)
	return out
}

// Dump writes captured entries as JSON lines to w.
func Dump(w *os.File) error {
	for _, e := range Entries() {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, string(data)); err != nil {
			return err
		}
	}
	return nil
}

// SdumpEntry renders a whole trace entry with spew instead of
// JSON, for trace-level output where arbitrary nested Go values (not
// just JSON-marshalable ones) need to be inspected.
func SdumpEntry(e TraceEntry) string {
	return spew.Sdump(e)
}

// ParseDebugLevel maps a CLI flag value to a DebugLevel, defaulting to
// info on an unrecognized value.
func ParseDebugLevel(s string) DebugLevel {
	switch s {
	case "debug":
		return DebugLevelDebug
	case "trace":
		return DebugLevelTrace
	default:
		return DebugLevelInfo
	}
}
