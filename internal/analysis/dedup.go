package analysis

import (
	"strings"
	"sync"
	"time"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// Cooldown is the minimum time between repeated emissions of the same
// (source, condition) pair. It keeps a persistently black or frozen feed
// from flooding the log with one entry per tick.
const Cooldown = 4 * time.Second

// Condition keys routed through the deduper. Resolution changes and fps
// drops are not listed: they carry changing numeric payloads and use
// their own suppression rules in the loop.
const (
	ConditionBlack  = "black"
	ConditionFrozen = "frozen"
	ConditionIdle   = "idle"
)

// Deduper is the cooldown gate in front of the log sink.
//
// Distinct condition keys have independent cooldowns, and the two sources
// never share a key. Thread-safe: both sources' loops consult one shared
// Deduper from their own goroutines.
type Deduper struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{last: make(map[string]time.Time)}
}

// Allow reports whether the condition may be emitted at instant now, and
// records the emission when it is.
func (d *Deduper) Allow(src frame.Source, condition string, now time.Time) bool {
	key := string(src) + "/" + condition
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.last[key]; ok && now.Sub(prev) <= Cooldown {
		return false
	}
	d.last[key] = now
	return true
}

// Forget clears all recorded emissions for a source, so a restarted
// stream reports its first anomaly immediately.
func (d *Deduper) Forget(src frame.Source) {
	prefix := string(src) + "/"
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.last {
		if strings.HasPrefix(key, prefix) {
			delete(d.last, key)
		}
	}
}
