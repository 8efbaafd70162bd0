package planner

import (
	"math/rand"
	"sync"
)

// Chain generates the intra-session sequence of states described in §4.3: a
// Markov chain whose transition probabilities are biased toward the
// absorbing "leaving" state as steps accumulate ("fatigue"), guaranteeing
// termination in finite expected steps.
type Chain struct {
	mu         sync.Mutex
	rng        *rand.Rand
	state      ChainState
	stepsTaken int
}

// NewChain builds a Chain seeded from seed, already reset to its initial
// state.
func NewChain(seed int64) *Chain {
	c := &Chain{rng: rand.New(rand.NewSource(seed))}
	c.Reset()
	return c
}

// Reset returns the chain to its initial state (landing) with zero steps
// taken, as required at the start of every session.
func (c *Chain) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateLanding
	c.stepsTaken = 0
}

// State returns the chain's current state.
func (c *Chain) State() ChainState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsDone reports whether the chain has reached the absorbing leaving state.
func (c *Chain) IsDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateLeaving
}

// Step advances the chain one transition, applying the fatigue bias to the
// current row before sampling, and returns the new state. Calling Step once
// the chain has already reached leaving simply returns leaving again
// (leaving's row is [0,...,0,1]).
func (c *Chain) Step() ChainState {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := baseTransitions[c.state]
	fatigued := applyFatigue(row, c.stepsTaken)

	c.state = sampleRow(c.rng, fatigued)
	c.stepsTaken++
	return c.state
}

// StepsTaken returns the number of transitions performed since the last
// reset.
func (c *Chain) StepsTaken() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stepsTaken
}

// StateDuration samples a dwell time for the given state, in seconds, from
// a Beta(2,5) draw scaled into the state's [low,high] band. The leaving
// state always dwells 0 seconds (it is absorbing; the scheduler breaks out
// of its step loop immediately on leaving).
func (c *Chain) StateDuration(state ChainState) float64 {
	band := dwellBands[state]
	if band.low == 0 && band.high == 0 {
		return 0
	}
	c.mu.Lock()
	frac := sampleBeta(c.rng, 2, 5)
	c.mu.Unlock()
	return band.low + frac*(band.high-band.low)
}

// applyFatigue adds min(0.4, steps*0.03) to the leaving entry of row, then
// renormalizes so the row sums to 1.
func applyFatigue(row [6]float64, steps int) [6]float64 {
	bias := 0.03 * float64(steps)
	if bias > 0.4 {
		bias = 0.4
	}
	leavingIdx := stateIndex(StateLeaving)

	biased := row
	biased[leavingIdx] += bias

	var sum float64
	for _, v := range biased {
		sum += v
	}
	if sum == 0 {
		return biased
	}
	for i := range biased {
		biased[i] /= sum
	}
	return biased
}

// sampleRow draws a chain state from a probability row via inverse-CDF
// sampling.
func sampleRow(rng *rand.Rand, row [6]float64) ChainState {
	u := rng.Float64()
	var cumulative float64
	for i, p := range row {
		cumulative += p
		if u < cumulative {
			return chainStates[i]
		}
	}
	return chainStates[len(chainStates)-1]
}
