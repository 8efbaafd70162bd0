// Package engine implements the registry of named traffic producers (C5):
// it holds producers behind enable/disable flags, exposes uniform
// invocation with state-based dispatch preference, and keeps per-engine
// counters and a bounded activity ring.
package engine

import (
	"context"
	"time"
)

// ActivityEntry is one recorded producer invocation, never mutated after
// insertion.
type ActivityEntry struct {
	EpochSeconds int64
	EngineName   string
	ActionTag    string
	Detail       string
}

// Stats is the counter snapshot §6 requires from every producer.
type Stats struct {
	Requests   int64
	Bytes      int64
	Errors     int64
	LastRunUTC time.Time
	Enabled    bool
}

// Producer is the capability set every traffic-generating collaborator must
// expose — a small interface over concrete variants, per the
// composition-over-inheritance design note. Grounded on the teacher's
// monitor.Source interface: one capability surface, several unrelated
// concrete implementations behind it.
type Producer interface {
	// Execute performs at most one observable outbound action. It must be
	// safe to call again after a context cancellation aborted a previous
	// call (idempotent with respect to double-cancellation).
	Execute(ctx context.Context, actionTag, topic string) error

	// Stats returns the producer's own view of its counters; the registry
	// additionally keeps its own copy (see Record) so dispatch-level
	// failures are counted even for producers that don't track their own
	// errors.
	Stats() Stats

	// RecentActivity returns up to count of the producer's own recent
	// activity entries, most recent first. Producers that don't track
	// their own history may return nil.
	RecentActivity(count int) []ActivityEntry

	// Topics returns candidate topic strings this producer can contribute
	// to the obsession tracker's candidate pool. Returns nil if the
	// producer has no topic opinion.
	Topics() []string
}
