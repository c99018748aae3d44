package tickengine

import (
	"time"

	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

// Interval controller factors.
const (
	hotFactor     = 1.5
	coolFactor    = 0.8
	busyFactor    = 1.3
	busyCPU       = 80.0
	stabilityHot  = 0.95
	stabilityGain = 0.01
)

// NextInterval returns the sleep before the next tick.
//
// The target is stretched while hot, shortened while cool, stretched again
// under CPU pressure, and clamped to [min, max].
func NextInterval(target, lo, hi time.Duration, heat, cpuPercent float64) time.Duration {
	thermal := 1.0
	switch {
	case heat > state.HotThreshold:
		thermal = hotFactor
	case heat < state.CoolThreshold:
		thermal = coolFactor
	}

	perf := 1.0
	if cpuPercent > busyCPU {
		perf = busyFactor
	}

	interval := time.Duration(float64(target) * thermal * perf)
	if interval < lo {
		return lo
	}
	if interval > hi {
		return hi
	}
	return interval
}

// UpdateLoad advances the load signal by deltaSecs of elapsed time at the
// given CPU percent.
//
// Momentum decays and accumulates CPU pressure. Heat integrates momentum and
// saturates at [0, 1]. Stability erodes while hot and recovers otherwise.
func UpdateLoad(load state.LoadState, deltaSecs, cpuPercent, decay float64) state.LoadState {
	cpuHeat := clamp(cpuPercent/100, 0, 1)

	load.Momentum = load.Momentum*decay + cpuHeat*deltaSecs
	load.Heat = clamp(load.Heat+load.Momentum, 0, 1)

	if load.IsHot() {
		load.Stability *= stabilityHot
	} else {
		load.Stability = min(1.0, load.Stability+stabilityGain)
	}
	return load
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
