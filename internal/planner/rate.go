package planner

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// lambdaFloor is the rate floor in events/minute; current_lambda never
// returns below it so the Poisson process stays well-defined.
const lambdaFloor = 0.005

// RateModel computes the instantaneous event rate lambda(t). Intensity is
// mutated by the control surface and read by the scheduler on every tick,
// so it is held as a single-word atomic per the "shared mutable scalars"
// design. lambda0 is not stored: it is derived from the intensity on each
// call, so the two can never disagree and no wider lock is needed.
type RateModel struct {
	intensity atomic.String
	weights   HourlyWeights

	driftSeedMu sync.RWMutex
	driftSeed   float64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRateModel builds a rate model at the given initial intensity, with the
// default hourly weight profile and a drift seed. Pass 0 for driftSeed to
// let NewRateModel draw a fresh one from entropy (the normal startup path
// when no persisted TimingState is available).
func NewRateModel(initial Intensity, driftSeed float64, entropy *rand.Rand) *RateModel {
	rm := &RateModel{
		weights: DefaultHourlyWeights,
		rng:     entropy,
	}
	rm.intensity.Store(string(initial))
	if driftSeed == 0 {
		driftSeed = entropy.Float64() * 2 * math.Pi
	}
	rm.driftSeed = driftSeed
	return rm
}

// Intensity returns the currently configured intensity level.
func (rm *RateModel) Intensity() Intensity {
	return Intensity(rm.intensity.Load())
}

// SetIntensity atomically swaps the active intensity. Setting the same
// value twice is a no-op on the second call, as required by the
// idempotence property.
func (rm *RateModel) SetIntensity(level Intensity) {
	rm.intensity.Store(string(level))
}

// DriftSeed returns the persisted weekly-drift phase offset.
func (rm *RateModel) DriftSeed() float64 {
	rm.driftSeedMu.RLock()
	defer rm.driftSeedMu.RUnlock()
	return rm.driftSeed
}

// CurrentLambda implements §4.1: decompose ts in local time, interpolate
// hourly weights across the minute, apply the weekend factor, weekly drift,
// and fresh jitter, then floor the result.
func (rm *RateModel) CurrentLambda(ts time.Time) float64 {
	local := ts.Local()
	h := local.Hour()
	m := local.Minute()
	w := weekdayIndex(local.Weekday())

	hNext := (h + 1) % 24
	frac := float64(m) / 60.0
	weight := rm.weights[h]*(1-frac) + rm.weights[hNext]*frac

	weekendFactor := 1.0
	if w == 5 || w == 6 {
		weekendFactor = 0.9 + 0.2*math.Sin(math.Pi*float64(h)/12)
	}

	epochSeconds := float64(ts.Unix())
	drift := 0.15 * math.Sin(2*math.Pi*(epochSeconds/(7*86400))+rm.DriftSeed())

	jitter := 1 + rm.uniform(-0.20, 0.20)

	lambda0 := rm.Intensity().BaseLambda()
	lambda := lambda0 * weight * weekendFactor * (1 + drift) * jitter
	return math.Max(lambdaFloor, lambda)
}

// weekdayIndex maps time.Weekday (Sunday=0) to the spec's Monday=0 ordering.
func weekdayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func (rm *RateModel) uniform(lo, hi float64) float64 {
	rm.rngMu.Lock()
	defer rm.rngMu.Unlock()
	return lo + rm.rng.Float64()*(hi-lo)
}
