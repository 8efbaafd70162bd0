package planner

import (
	"math/rand"
	"testing"
	"time"
)

func TestCurrentLambdaNeverBelowFloor(t *testing.T) {
	rm := NewRateModel(IntensityLow, 1.23, rand.New(rand.NewSource(1)))
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.Local)
	for i := 0; i < 500; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		if got := rm.CurrentLambda(ts); got < lambdaFloor {
			t.Fatalf("CurrentLambda(%v) = %v, below floor %v", ts, got, lambdaFloor)
		}
	}
}

func TestCurrentLambdaHourlyWeighting(t *testing.T) {
	rm := NewRateModel(IntensityMedium, 0, rand.New(rand.NewSource(2)))
	day := time.Date(2026, 1, 6, 0, 0, 0, 0, time.Local) // Tuesday

	var sum10, sum3 float64
	const trials = 500
	for i := 0; i < trials; i++ {
		sum10 += rm.CurrentLambda(day.Add(10 * time.Hour))
		sum3 += rm.CurrentLambda(day.Add(3 * time.Hour))
	}
	mean10, mean3 := sum10/trials, sum3/trials
	if mean10 <= mean3 {
		t.Fatalf("mean lambda at hour 10 (%v) not greater than hour 3 (%v)", mean10, mean3)
	}
}

func TestRateOrderingByIntensity(t *testing.T) {
	levels := []Intensity{IntensityLow, IntensityMedium, IntensityHigh, IntensityParanoid}
	ts := time.Date(2026, 1, 5, 10, 0, 0, 0, time.Local)

	var prevMean float64
	for i, level := range levels {
		rm := NewRateModel(level, 0.5, rand.New(rand.NewSource(int64(i)+10)))
		cfg := DefaultSessionConfig()
		timer := NewTimer(rm, cfg, [3]int64{int64(i) * 3, int64(i)*3 + 1, int64(i)*3 + 2})

		var sum float64
		const trials = 500
		for j := 0; j < trials; j++ {
			sum += timer.NextEventDelay(ts).Seconds()
		}
		mean := sum / trials
		if i > 0 && mean >= prevMean {
			t.Fatalf("intensity %s mean delay %v not less than previous %v", level, mean, prevMean)
		}
		prevMean = mean
	}
}
