// Package planner implements the stochastic activity planner: the rate
// model, Poisson timer, Markov session chain, and obsession tracker that
// together decide when the next event happens, what kind it is, and what
// topic it should carry.
package planner

// Intensity is a closed enumeration of cover-traffic levels, each mapped to
// a base event rate lambda0 in events/minute.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityMedium   Intensity = "medium"
	IntensityHigh     Intensity = "high"
	IntensityParanoid Intensity = "paranoid"
)

// BaseLambda returns lambda0 for the intensity, in events per minute.
func (i Intensity) BaseLambda() float64 {
	switch i {
	case IntensityLow:
		return 0.3
	case IntensityMedium:
		return 1.0
	case IntensityHigh:
		return 2.5
	case IntensityParanoid:
		return 5.0
	default:
		return 0
	}
}

// Valid reports whether i is one of the four enumerated levels.
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityMedium, IntensityHigh, IntensityParanoid:
		return true
	default:
		return false
	}
}

// meanGapMinutes returns the base mean inter-session gap, in minutes, before
// the night factor is applied.
func (i Intensity) meanGapMinutes() float64 {
	switch i {
	case IntensityLow:
		return 45
	case IntensityMedium:
		return 20
	case IntensityHigh:
		return 8
	case IntensityParanoid:
		return 3
	default:
		return 20
	}
}

// HourlyWeights is a 24-element nonnegative profile, one weight per hour of
// the local day starting at hour 0.
type HourlyWeights [24]float64

// DefaultHourlyWeights is the built-in daily activity profile.
var DefaultHourlyWeights = HourlyWeights{
	0.05, 0.03, 0.02, 0.02, 0.03, 0.05, 0.10, 0.25, 0.50, 0.80, 0.90, 0.85,
	0.60, 0.70, 0.80, 0.85, 0.75, 0.65, 0.70, 0.80, 0.90, 0.75, 0.40, 0.15,
}

// SessionConfig bounds the stochastic parameters of a single session.
type SessionConfig struct {
	MeanDurationMin             float64
	MinDurationMin              float64
	MaxDurationMin              float64
	ObsessionProbability        float64
	ObsessionDurationRangeHours [2]float64
}

// DefaultSessionConfig matches the reference defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MeanDurationMin:             15,
		MinDurationMin:              0.5,
		MaxDurationMin:              180,
		ObsessionProbability:        0.05,
		ObsessionDurationRangeHours: [2]float64{2, 48},
	}
}

// TimingState is the subset of planner state worth persisting across
// restarts: the weekly drift phase seed and bookkeeping about the last
// session. The rest of the planner's randomness is re-seeded fresh at every
// startup.
type TimingState struct {
	WeeklyPhaseOffset float64 `json:"weekly_phase_offset"`
	DriftSeed         float64 `json:"drift_seed"`
	SessionCountToday int     `json:"session_count_today"`
	LastSessionEnd    int64   `json:"last_session_end_epoch"`
}

// ChainState names a step in the Markov session chain.
type ChainState string

const (
	StateLanding   ChainState = "landing"
	StateReading   ChainState = "reading"
	StateClicking  ChainState = "clicking"
	StateSearching ChainState = "searching"
	StateIdle      ChainState = "idle"
	StateLeaving   ChainState = "leaving"
)

var chainStates = [6]ChainState{
	StateLanding, StateReading, StateClicking, StateSearching, StateIdle, StateLeaving,
}

func stateIndex(s ChainState) int {
	for i, v := range chainStates {
		if v == s {
			return i
		}
	}
	return -1
}

// dwellBand is the [low, high] second range a state's dwell time is scaled
// into after a Beta(2,5) draw.
type dwellBand struct {
	low, high float64
}

var dwellBands = map[ChainState]dwellBand{
	StateLanding:   {2, 5},
	StateReading:   {8, 120},
	StateClicking:  {0.5, 3},
	StateSearching: {3, 15},
	StateIdle:      {5, 60},
	StateLeaving:   {0, 0},
}

// baseTransitions are the from-state rows of the chain, in chainStates
// order, before fatigue bias is applied.
var baseTransitions = map[ChainState][6]float64{
	StateLanding:   {0.00, 0.60, 0.20, 0.10, 0.05, 0.05},
	StateReading:   {0.00, 0.15, 0.40, 0.15, 0.15, 0.15},
	StateClicking:  {0.00, 0.55, 0.15, 0.10, 0.10, 0.10},
	StateSearching: {0.00, 0.50, 0.25, 0.05, 0.10, 0.10},
	StateIdle:      {0.00, 0.30, 0.15, 0.10, 0.10, 0.35},
	StateLeaving:   {0.00, 0.00, 0.00, 0.00, 0.00, 1.00},
}
