// Package producer implements the concrete traffic producers: browse,
// search, dns, and adclick. These are the "black-box executors" spec'd as
// external collaborators — the core only ever sees them through
// engine.Producer — but a complete repository needs real implementations to
// exercise the dispatcher end to end.
package producer

import (
	"sync"
	"time"

	"github.com/coverdrift/coverdrift/internal/engine"
	"github.com/coverdrift/coverdrift/internal/ring"
)

const activityRingCapacity = 200

// counters is the mutex-protected counter block shared by every concrete
// producer in this package, grounded on the teacher's mutex+copy pattern in
// internal/session/store.go.
type counters struct {
	mu       sync.Mutex
	requests int64
	bytes    int64
	errors   int64
	lastRun  time.Time
}

func (c *counters) recordOK(bytesRead int, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.bytes += int64(bytesRead)
	c.lastRun = at
}

func (c *counters) recordErr(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests++
	c.errors++
	c.lastRun = at
}

func (c *counters) snapshot(enabled bool) engine.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return engine.Stats{
		Requests:   c.requests,
		Bytes:      c.bytes,
		Errors:     c.errors,
		LastRunUTC: c.lastRun,
		Enabled:    enabled,
	}
}

func newActivityRing() *ring.Buffer[engine.ActivityEntry] {
	return ring.New[engine.ActivityEntry](activityRingCapacity)
}
