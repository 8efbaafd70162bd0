package planner

import "testing"

func TestChainInitialState(t *testing.T) {
	c := NewChain(1)
	if got := c.State(); got != StateLanding {
		t.Fatalf("State() after reset = %v, want %v", got, StateLanding)
	}
}

func TestChainResetAfterSteps(t *testing.T) {
	c := NewChain(2)
	for i := 0; i < 10 && !c.IsDone(); i++ {
		c.Step()
	}
	c.Reset()
	if got := c.State(); got != StateLanding {
		t.Fatalf("State() after Reset() = %v, want %v", got, StateLanding)
	}
	if got := c.StepsTaken(); got != 0 {
		t.Fatalf("StepsTaken() after Reset() = %d, want 0", got)
	}
}

func TestAbsorbingStateDwellIsZero(t *testing.T) {
	c := NewChain(3)
	if got := c.StateDuration(StateLeaving); got != 0 {
		t.Fatalf("StateDuration(leaving) = %v, want 0", got)
	}
}

func TestChainTerminationWithin200Steps(t *testing.T) {
	const trials = 10000
	const maxSteps = 200
	for trial := 0; trial < trials; trial++ {
		c := NewChain(int64(trial) + 1)
		reached := false
		for step := 0; step < maxSteps; step++ {
			if c.Step() == StateLeaving {
				reached = true
				break
			}
		}
		if !reached {
			t.Fatalf("trial %d did not reach leaving within %d steps", trial, maxSteps)
		}
	}
}

func TestFatigueMonotoneInStepCount(t *testing.T) {
	reachedByStep := func(k int) float64 {
		const trials = 2000
		reached := 0
		for trial := 0; trial < trials; trial++ {
			c := NewChain(int64(trial)*7 + 1)
			for step := 0; step < k; step++ {
				if c.IsDone() {
					break
				}
				c.Step()
			}
			if c.IsDone() {
				reached++
			}
		}
		return float64(reached) / trials
	}

	f3 := reachedByStep(3)
	f20 := reachedByStep(20)
	if f20 < f3 {
		t.Fatalf("f20 (%v) < f3 (%v), fatigue is not monotone", f20, f3)
	}
	if f20-f3 < 0.05 {
		t.Fatalf("f20 (%v) not meaningfully greater than f3 (%v)", f20, f3)
	}
}

func TestLandingUnreachableAfterStart(t *testing.T) {
	for trial := 0; trial < 200; trial++ {
		c := NewChain(int64(trial) + 100)
		for step := 0; step < 50 && !c.IsDone(); step++ {
			if s := c.Step(); s == StateLanding {
				t.Fatalf("trial %d: chain returned to landing at step %d", trial, step)
			}
		}
	}
}
