package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"

	"github.com/coverdrift/coverdrift/internal/planner"
	"github.com/coverdrift/coverdrift/internal/ring"
)

// activityRingCapacity bounds each engine's recent-activity ring per §3.
const activityRingCapacity = 200

// preferenceTable maps a chain state to an ordered list of engine names to
// try, per §4.5. landing falls back all the way to dns; idle tries dns only.
// A state with no registered-and-enabled candidate (and leaving, which has
// no entry) dispatches nothing.
var preferenceTable = map[planner.ChainState][]string{
	planner.StateReading:   {"browse", "search"},
	planner.StateClicking:  {"browse", "search"},
	planner.StateSearching: {"search", "browse"},
	planner.StateIdle:      {"dns"},
	planner.StateLanding:   {"browse", "search", "dns"},
}

// Record is one registered engine's producer handle plus the
// registry-level counters and activity ring maintained regardless of
// whether the producer tracks its own.
type Record struct {
	Name     string
	Producer Producer

	enabled atomic.Bool

	mu       sync.Mutex
	requests int64
	bytes    int64
	errors   int64
	lastRun  time.Time

	activity *ring.Buffer[ActivityEntry]
}

// Enabled reports whether this engine currently accepts dispatches.
func (r *Record) Enabled() bool { return r.enabled.Load() }

func (r *Record) recordSuccess(actionTag string, at time.Time) {
	// The producer is the only party that knows how many bytes its own
	// execution put on the wire; pull its running total rather than
	// tracking a second, dispatch-level byte counter that would never be
	// fed.
	producerStats := r.Producer.Stats()

	r.mu.Lock()
	r.requests++
	r.bytes = producerStats.Bytes
	r.lastRun = at
	r.mu.Unlock()
	r.activity.Push(ActivityEntry{
		EpochSeconds: at.Unix(),
		EngineName:   r.Name,
		ActionTag:    actionTag,
		Detail:       "ok",
	})
}

func (r *Record) recordFailure(actionTag string, at time.Time, err error) {
	producerStats := r.Producer.Stats()

	r.mu.Lock()
	r.requests++
	r.errors++
	r.bytes = producerStats.Bytes
	r.lastRun = at
	r.mu.Unlock()
	r.activity.Push(ActivityEntry{
		EpochSeconds: at.Unix(),
		EngineName:   r.Name,
		ActionTag:    actionTag,
		Detail:       fmt.Sprintf("error: %v", err),
	})
}

// Snapshot returns a defensive copy of this engine's stats, merging the
// producer's own counters with the registry's dispatch-level ones. Bytes
// is kept in sync with the producer's own Stats() on every dispatch (see
// recordSuccess/recordFailure), since the producer is the only place that
// observes bytes actually read off the wire.
func (r *Record) Snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Requests:   r.requests,
		Bytes:      r.bytes,
		Errors:     r.errors,
		LastRunUTC: r.lastRun,
		Enabled:    r.Enabled(),
	}
}

// RecentActivity returns the registry-level ring, most recent first.
func (r *Record) RecentActivity(count int) []ActivityEntry {
	return r.activity.Recent(count)
}

// Registry holds every registered engine by name and resolves chain states
// to the engine that should handle them, per §4.5.
type Registry struct {
	sem *semaphore.Weighted
	log *logrus.Logger

	mu       sync.RWMutex
	order    []string
	byName   map[string]*Record
}

// NewRegistry builds an empty registry. maxConcurrent bounds the number of
// producers that may be mid-Execute at once, guarding against
// producer-internal parallelism per §5.
func NewRegistry(maxConcurrent int64, log *logrus.Logger) *Registry {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Registry{
		sem:    semaphore.NewWeighted(maxConcurrent),
		log:    log,
		byName: make(map[string]*Record),
	}
}

// Register adds a named producer to the registry with an initial enabled
// state. Registering the same name twice replaces the prior entry.
func (reg *Registry) Register(name string, producer Producer, enabledInitial bool) *Record {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rec := &Record{
		Name:     name,
		Producer: producer,
		activity: ring.New[ActivityEntry](activityRingCapacity),
	}
	rec.enabled.Store(enabledInitial)

	if _, exists := reg.byName[name]; !exists {
		reg.order = append(reg.order, name)
	}
	reg.byName[name] = rec
	return rec
}

// Toggle flips the enabled flag for name and returns the new value. Ok is
// false if no engine by that name is registered.
func (reg *Registry) Toggle(name string) (enabled, ok bool) {
	reg.mu.RLock()
	rec, exists := reg.byName[name]
	reg.mu.RUnlock()
	if !exists {
		return false, false
	}
	old := rec.enabled.Toggle()
	return !old, true
}

// SetEnabled sets the enabled flag for name directly. Ok is false if no
// engine by that name is registered.
func (reg *Registry) SetEnabled(name string, enabled bool) (ok bool) {
	reg.mu.RLock()
	rec, exists := reg.byName[name]
	reg.mu.RUnlock()
	if !exists {
		return false
	}
	rec.enabled.Store(enabled)
	return true
}

// Record returns the named engine's record, or nil if unregistered.
func (reg *Registry) Record(name string) *Record {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.byName[name]
}

// Names returns every registered engine name, registration order.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}

// Topics returns the union of topic strings contributed by every
// registered engine, deduplicated and sorted for stable output.
func (reg *Registry) Topics() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, name := range reg.order {
		for _, topic := range reg.byName[name].Producer.Topics() {
			seen[topic] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Dispatch resolves state to its preference list, tries the first
// registered-and-enabled candidate, and invokes it. A failed or missing
// candidate is absorbed: the error is recorded against the engine (if one
// was tried) and never propagated to the caller, per §4.5 and error kind
// (a) in §7. Returns the name of the engine whose Execute succeeded, or ""
// if the step was a no-op or the chosen producer returned an error.
func (reg *Registry) Dispatch(ctx context.Context, state planner.ChainState, topic string) string {
	candidates := preferenceTable[state]
	if len(candidates) == 0 {
		return ""
	}

	reg.mu.RLock()
	var rec *Record
	for _, name := range candidates {
		if r, ok := reg.byName[name]; ok && r.Enabled() {
			rec = r
			break
		}
	}
	reg.mu.RUnlock()

	if rec == nil {
		return ""
	}

	if err := reg.sem.Acquire(ctx, 1); err != nil {
		// Cancellation while waiting for a producer slot; not an engine
		// error, just an aborted dispatch.
		return ""
	}
	defer reg.sem.Release(1)

	now := time.Now()
	actionTag := string(state)
	if err := rec.Producer.Execute(ctx, actionTag, topic); err != nil {
		reg.log.WithFields(logrus.Fields{"engine": rec.Name, "action": actionTag}).
			WithError(err).Warn("producer execute failed")
		rec.recordFailure(actionTag, now, err)
		return ""
	}
	rec.recordSuccess(actionTag, now)
	return rec.Name
}
