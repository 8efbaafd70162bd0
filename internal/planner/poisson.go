package planner

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// clamp bounds, in seconds, from §3's invariants.
const (
	eventDelayMin = 2.0
	eventDelayMax = 3600.0

	sessionDurationMinAbsolute = 30.0
	sessionDurationMaxAbsolute = 10800.0

	interSessionGapMin = 10.0
	interSessionGapMax = 7200.0
)

// Timer samples the three delay distributions C6 needs: per-event delay,
// session duration, and inter-session gap. Each owns an independent
// *rand.Rand so their outputs never correlate, per §4.2's "no two samplers
// share state" requirement — grounded on the inference-sim workload
// package's pattern of one *rand.Rand per sampler kind.
type Timer struct {
	rate *RateModel
	cfg  SessionConfig

	eventMu  sync.Mutex
	eventRng *rand.Rand

	durationMu  sync.Mutex
	durationRng *rand.Rand

	gapMu  sync.Mutex
	gapRng *rand.Rand
}

// NewTimer builds a Timer bound to rm for rate lookups and cfg for
// session-duration bounds. seeds supplies three independent entropy draws;
// callers typically derive them from one top-level *rand.Rand at startup.
func NewTimer(rm *RateModel, cfg SessionConfig, seeds [3]int64) *Timer {
	return &Timer{
		rate:        rm,
		cfg:         cfg,
		eventRng:    rand.New(rand.NewSource(seeds[0])),
		durationRng: rand.New(rand.NewSource(seeds[1])),
		gapRng:      rand.New(rand.NewSource(seeds[2])),
	}
}

// NextEventDelay draws X ~ Exp(lambda(ts)), converts to seconds, and clamps.
func (t *Timer) NextEventDelay(ts time.Time) time.Duration {
	lambdaPerMin := t.rate.CurrentLambda(ts)

	t.eventMu.Lock()
	x := t.eventRng.ExpFloat64()
	t.eventMu.Unlock()

	seconds := (x / lambdaPerMin) * 60
	seconds = clamp(seconds, eventDelayMin, eventDelayMax)
	return secondsToDuration(seconds)
}

// NextSessionDuration draws Y ~ LogNormal(ln(mean), 0.8), clamped to the
// configured [min, max] duration band.
func (t *Timer) NextSessionDuration() time.Duration {
	mu := math.Log(t.cfg.MeanDurationMin)
	const sigma = 0.8

	t.durationMu.Lock()
	z := t.durationRng.NormFloat64()
	t.durationMu.Unlock()

	minutes := math.Exp(mu + sigma*z)
	minutes = clamp(minutes, t.cfg.MinDurationMin, t.cfg.MaxDurationMin)
	seconds := minutes * 60
	seconds = clamp(seconds, sessionDurationMinAbsolute, sessionDurationMaxAbsolute)
	return secondsToDuration(seconds)
}

// NextInterSessionGap draws Z ~ Exp(meanGap) with a night-hour multiplier
// applied to the mean before sampling.
func (t *Timer) NextInterSessionGap(ts time.Time) time.Duration {
	meanMinutes := t.rate.Intensity().meanGapMinutes() * nightFactor(ts.Local().Hour())

	t.gapMu.Lock()
	z := t.gapRng.ExpFloat64()
	t.gapMu.Unlock()

	seconds := z * meanMinutes * 60
	seconds = clamp(seconds, interSessionGapMin, interSessionGapMax)
	return secondsToDuration(seconds)
}

// nightFactor multiplies the mean inter-session gap during quiet hours so
// cover sessions thin out overnight the way a sleeping human's would.
func nightFactor(hour int) float64 {
	switch {
	case hour >= 0 && hour < 6:
		return 3.0
	case hour == 23:
		return 2.0
	default:
		return 1.0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// sampleBeta draws from Beta(alpha, beta) via two independent Gamma(shape,1)
// draws: Beta = X/(X+Y). gammaRand is adapted from the Marsaglia-Tsang
// method used for Gamma sampling in the inference workload generator
// reference, specialized here to scale=1 since only shape varies across
// the dwell bands in §4.3.
func sampleBeta(rng *rand.Rand, alpha, beta float64) float64 {
	x := gammaRand(rng, alpha)
	y := gammaRand(rng, beta)
	return x / (x + y)
}

// gammaRand samples from Gamma(shape, scale=1) using the Marsaglia-Tsang
// method. Valid for shape >= 1; dwell-band alpha/beta (2 and 5) both
// satisfy that.
func gammaRand(rng *rand.Rand, shape float64) float64 {
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
