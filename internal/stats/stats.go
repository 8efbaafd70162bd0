// Package stats builds the aggregate snapshot and merged activity views
// the control surface exposes, per §4.7.
package stats

import (
	"sort"
	"time"

	"go.uber.org/atomic"

	"github.com/coverdrift/coverdrift/internal/engine"
)

// maxActivityResponse caps activity retrieval at the API boundary, per §4.7
// ("capped at 500 from the API").
const maxActivityResponse = 500

// EngineSnapshot is one engine's contribution to a Snapshot.
type EngineSnapshot struct {
	Name     string    `json:"name"`
	Requests int64     `json:"requests"`
	Bytes    int64     `json:"bytes"`
	Errors   int64     `json:"errors"`
	LastRun  time.Time `json:"last_run"`
	Enabled  bool      `json:"enabled"`
}

// Snapshot is the full statistics view exposed by GetSnapshot.
type Snapshot struct {
	SessionsToday   int              `json:"sessions_today"`
	RequestsToday   int64            `json:"requests_today"`
	BytesTodayMiB   float64          `json:"bytes_today_mib"`
	UptimeSeconds   int64            `json:"uptime_seconds"`
	ActiveSessions  int              `json:"active_sessions"`
	LastEventTime   time.Time        `json:"last_event_time"`
	PerEngine       []EngineSnapshot `json:"per_engine"`
}

// ActivityEntry mirrors engine.ActivityEntry for the public API boundary.
type ActivityEntry struct {
	EpochSeconds int64  `json:"epoch_seconds"`
	Engine       string `json:"engine"`
	Action       string `json:"action"`
	Detail       string `json:"detail"`
}

// Counters tracks the scheduler-owned running totals that aren't already
// kept per-engine (sessions started, active session count, process start
// time). Engine-level requests/bytes/errors live in the registry itself and
// are merged in at snapshot time.
type Counters struct {
	startedAt time.Time

	sessionsToday  atomic.Int64
	activeSessions atomic.Int64
	lastEventEpoch atomic.Int64
}

// NewCounters starts the uptime clock.
func NewCounters(now time.Time) *Counters {
	return &Counters{startedAt: now}
}

func (c *Counters) SessionStarted() {
	c.sessionsToday.Inc()
	c.activeSessions.Inc()
}

func (c *Counters) SessionEnded() {
	c.activeSessions.Dec()
}

func (c *Counters) RecordEvent(at time.Time) {
	c.lastEventEpoch.Store(at.Unix())
}

// Snapshot merges this Counters' running totals with the registry's
// per-engine counters into a single Snapshot.
func (c *Counters) Snapshot(reg *engine.Registry, now time.Time) Snapshot {
	names := reg.Names()
	perEngine := make([]EngineSnapshot, 0, len(names))

	var requestsToday int64
	var bytesToday int64
	for _, name := range names {
		rec := reg.Record(name)
		if rec == nil {
			continue
		}
		s := rec.Snapshot()
		requestsToday += s.Requests
		bytesToday += s.Bytes
		perEngine = append(perEngine, EngineSnapshot{
			Name:     name,
			Requests: s.Requests,
			Bytes:    s.Bytes,
			Errors:   s.Errors,
			LastRun:  s.LastRunUTC,
			Enabled:  s.Enabled,
		})
	}
	sort.Slice(perEngine, func(i, j int) bool { return perEngine[i].Name < perEngine[j].Name })

	var lastEvent time.Time
	if epoch := c.lastEventEpoch.Load(); epoch != 0 {
		lastEvent = time.Unix(epoch, 0)
	}

	return Snapshot{
		SessionsToday:  int(c.sessionsToday.Load()),
		RequestsToday:  requestsToday,
		BytesTodayMiB:  float64(bytesToday) / (1024 * 1024),
		UptimeSeconds:  int64(now.Sub(c.startedAt).Seconds()),
		ActiveSessions: int(c.activeSessions.Load()),
		LastEventTime:  lastEvent,
		PerEngine:      perEngine,
	}
}

// MergedActivity merges every engine's activity ring, sorted by timestamp
// descending, capped at the lesser of count and maxActivityResponse.
func MergedActivity(reg *engine.Registry, count int) []ActivityEntry {
	if count <= 0 || count > maxActivityResponse {
		count = maxActivityResponse
	}

	var merged []ActivityEntry
	for _, name := range reg.Names() {
		rec := reg.Record(name)
		if rec == nil {
			continue
		}
		for _, e := range rec.RecentActivity(count) {
			merged = append(merged, ActivityEntry{
				EpochSeconds: e.EpochSeconds,
				Engine:       e.EngineName,
				Action:       e.ActionTag,
				Detail:       e.Detail,
			})
		}
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].EpochSeconds > merged[j].EpochSeconds })

	if len(merged) > count {
		merged = merged[:count]
	}
	return merged
}

// ActivityChart buckets each engine's activity by hour-of-day (local time,
// 0-23) over the union of its ring contents, the natural construction for
// the "hourly histograms over the last 24 hours, per engine" endpoint named
// in §6 but not otherwise specified.
func ActivityChart(reg *engine.Registry) map[string][24]int {
	out := make(map[string][24]int)
	for _, name := range reg.Names() {
		rec := reg.Record(name)
		if rec == nil {
			continue
		}
		var buckets [24]int
		for _, e := range rec.RecentActivity(0) {
			hour := time.Unix(e.EpochSeconds, 0).Local().Hour()
			buckets[hour]++
		}
		out[name] = buckets
	}
	return out
}
