// Package state holds the plain data types shared between the engine, its
// monitor and the journal.
//
// Nothing in this package synchronizes access. The engine owns every value
// and hands out copies.
package state

import (
	"encoding/json"
	"math"
	"time"
)

// Heat thresholds used by both the load model and the interval controller.
const (
	HotThreshold  = 0.8
	CoolThreshold = 0.2
)

// LoadState is the simulated "thermal" back-pressure signal.
type LoadState struct {
	// Heat is the saturated pressure level in [0, 1].
	Heat float64 `json:"heat"`

	// Momentum accumulates pressure and decays every tick. Unbounded.
	Momentum float64 `json:"momentum"`

	// Stability erodes while hot and recovers slowly otherwise. In [0, 1].
	Stability float64 `json:"stability"`
}

// BaselineLoad returns the idle load state restored on recovery.
func BaselineLoad() LoadState {
	return LoadState{Heat: 0, Momentum: 0, Stability: 1}
}

// IsHot reports whether heat is above the hot threshold.
func (l LoadState) IsHot() bool {
	return l.Heat > HotThreshold
}

// PerformanceSample holds the resource and latency readings that feed the
// interval controller.
//
// CPUPercent and MemoryMB are written only by the monitor.
// DispatchLatency is written only by the scheduler loop.
type PerformanceSample struct {
	CPUPercent      float64       `json:"cpu_usage"`
	MemoryMB        float64       `json:"memory_usage"`
	DispatchLatency time.Duration `json:"event_latency"` // seconds on the wire
}

type performanceJSON struct {
	CPUPercent      float64 `json:"cpu_usage"`
	MemoryMB        float64 `json:"memory_usage"`
	DispatchLatency float64 `json:"event_latency"`
}

// MarshalJSON writes DispatchLatency as seconds.
func (p PerformanceSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(performanceJSON{
		CPUPercent:      p.CPUPercent,
		MemoryMB:        p.MemoryMB,
		DispatchLatency: p.DispatchLatency.Seconds(),
	})
}

// UnmarshalJSON reads DispatchLatency as seconds.
func (p *PerformanceSample) UnmarshalJSON(data []byte) error {
	var v performanceJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PerformanceSample{
		CPUPercent:      v.CPUPercent,
		MemoryMB:        v.MemoryMB,
		DispatchLatency: time.Duration(math.Round(v.DispatchLatency * float64(time.Second))),
	}
	return nil
}

// Resources is one monitor reading.
type Resources struct {
	CPUPercent float64
	MemoryMB   float64
}

// TimingState tracks the scheduler's pacing.
type TimingState struct {
	CurrentInterval time.Duration
	TargetInterval  time.Duration
}

// Snapshot is a read-only copy of the engine state.
// Intervals are expressed in seconds.
type Snapshot struct {
	RunID           string            `json:"run_id,omitempty"`
	TickCount       uint64            `json:"tick_count"`
	CurrentInterval float64           `json:"current_interval"`
	TargetInterval  float64           `json:"target_interval"`
	IsRunning       bool              `json:"is_running"`
	LastTickTime    time.Time         `json:"last_tick_time"`
	EventTypes      []string          `json:"event_types"`
	Load            LoadState         `json:"thermal_state"`
	Performance     PerformanceSample `json:"performance_metrics"`
	ErrorCount      int               `json:"error_count"`
	RecoveryCount   int               `json:"recovery_count"`
	Phase           string            `json:"phase"`
	QueueLength     int               `json:"queue_length"`
	QueueEvictions  uint64            `json:"queue_evictions"`
}
