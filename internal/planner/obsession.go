package planner

import (
	"math/rand"
	"sync"
	"time"
)

// Obsession tracks an optional long-lived topic fixation: real users return
// to the same search topic across many sessions rather than drawing a fresh
// one every time. Self-healing: querying after the deadline passes clears
// both fields atomically, per §3's invariant.
type Obsession struct {
	mu          sync.Mutex
	rng         *rand.Rand
	probability float64
	durationLo  time.Duration
	durationHi  time.Duration

	activeTopic string
	endEpoch    time.Time
}

// NewObsessionTracker builds a tracker from cfg's probability and duration
// range (given in hours) and a dedicated entropy source.
func NewObsessionTracker(cfg SessionConfig, seed int64) *Obsession {
	return &Obsession{
		rng:         rand.New(rand.NewSource(seed)),
		probability: cfg.ObsessionProbability,
		durationLo:  time.Duration(cfg.ObsessionDurationRangeHours[0] * float64(time.Hour)),
		durationHi:  time.Duration(cfg.ObsessionDurationRangeHours[1] * float64(time.Hour)),
	}
}

// IsActive reports whether a fixation is currently live, clearing expired
// state as a side effect (the self-healing behavior §4.4 requires).
func (o *Obsession) IsActive(now time.Time) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.isActiveLocked(now)
}

func (o *Obsession) isActiveLocked(now time.Time) bool {
	if o.activeTopic == "" {
		return false
	}
	if now.Before(o.endEpoch) {
		return true
	}
	o.activeTopic = ""
	o.endEpoch = time.Time{}
	return false
}

// Topic returns the active topic, or "" if none is active.
func (o *Obsession) Topic(now time.Time) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.isActiveLocked(now) {
		return ""
	}
	return o.activeTopic
}

// MaybeStart implements §4.4's maybe_start: if a fixation is already active,
// return it unchanged. Otherwise, with probability p, pick a topic
// uniformly from available and start a new fixation; else return "".
func (o *Obsession) MaybeStart(now time.Time, available []string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.isActiveLocked(now) {
		return o.activeTopic
	}
	if len(available) == 0 {
		return ""
	}
	if o.rng.Float64() >= o.probability {
		return ""
	}

	topic := available[o.rng.Intn(len(available))]
	span := o.durationHi - o.durationLo
	duration := o.durationLo
	if span > 0 {
		duration += time.Duration(o.rng.Float64() * float64(span))
	}

	o.activeTopic = topic
	o.endEpoch = now.Add(duration)
	return topic
}
