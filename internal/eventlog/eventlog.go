// Package eventlog is the monitoring log sink: an append-only in-memory
// sequence of diagnostic entries, with subscriber fan-out for live feeds
// and a one-shot JSON export for offline inspection.
//
// Deduplication happens upstream at emission time (analysis.Deduper);
// storage never rewrites or drops entries, and insertion order is the
// record of what happened.
package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// Level classifies an entry's severity.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one diagnostic log line.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Source    frame.Source   `json:"source"`
	Level     Level          `json:"level"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Export is the one-shot JSON document produced on demand. It carries the
// settings snapshot active at export time so an entry's thresholds can be
// reconstructed afterwards. No versioning: this is a human-inspectable
// diagnostic artifact.
type Export struct {
	ExportedAt time.Time `json:"exported_at"`
	Settings   any       `json:"settings"`
	Entries    []Entry   `json:"entries"`
}

// Log is the append-only monitoring log.
//
// Thread-safe. Subscribers receive entries on buffered channels with a
// drop policy: a slow live consumer loses entries rather than stalling
// the analysis loops.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	subs    map[chan Entry]struct{}
}

// New returns an empty Log.
func New() *Log {
	return &Log{subs: make(map[chan Entry]struct{})}
}

// Append stores an entry, assigning an ID and timestamp when unset, and
// fans it out to live subscribers.
func (l *Log) Append(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	l.mu.Lock()
	l.entries = append(l.entries, e)
	for ch := range l.subs {
		select {
		case ch <- e:
		default:
			// Subscriber lagging, skip.
		}
	}
	l.mu.Unlock()

	slog.Log(context.Background(), slogLevel(e.Level), "eventlog: "+e.Message,
		"source", e.Source,
		"entry_id", e.ID,
	)
	return e
}

// Info appends an info-level entry.
func (l *Log) Info(src frame.Source, msg string, metadata map[string]any) Entry {
	return l.Append(Entry{Source: src, Level: LevelInfo, Message: msg, Metadata: metadata})
}

// Warn appends a warn-level entry.
func (l *Log) Warn(src frame.Source, msg string, metadata map[string]any) Entry {
	return l.Append(Entry{Source: src, Level: LevelWarn, Message: msg, Metadata: metadata})
}

// Error appends an error-level entry.
func (l *Log) Error(src frame.Source, msg string, metadata map[string]any) Entry {
	return l.Append(Entry{Source: src, Level: LevelError, Message: msg, Metadata: metadata})
}

// Entries returns a copy of all entries in insertion order.
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Subscribe registers a live feed with the given channel buffer. The
// returned cancel function unregisters and closes the channel.
func (l *Log) Subscribe(buffer int) (<-chan Entry, func()) {
	ch := make(chan Entry, buffer)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, ch)
			l.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// ExportJSON marshals the full log together with the given settings
// snapshot into the export document.
func (l *Log) ExportJSON(settings any) ([]byte, error) {
	doc := Export{
		ExportedAt: time.Now().UTC(),
		Settings:   settings,
		Entries:    l.Entries(),
	}
	return json.MarshalIndent(doc, "", "  ")
}

func slogLevel(lv Level) slog.Level {
	switch lv {
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
