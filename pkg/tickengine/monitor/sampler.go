package monitor

import (
	"fmt"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

// Sampler reads process resource usage.
type Sampler interface {
	Sample() (state.Resources, error)
}

// SamplerFunc adapts a function to the Sampler interface.
type SamplerFunc func() (state.Resources, error)

// Sample implements Sampler.
func (f SamplerFunc) Sample() (state.Resources, error) {
	return f()
}

// ProcessSampler reads CPU percent and resident memory of a process.
// CPU percent covers the time since the previous sample, so the first
// sample reports 0%.
//
// CPU percent is relative to one core and can exceed 100 on multi-core
// machines; the engine clamps it when deriving load. Platforms without
// process accounting return an error from every Sample.
type ProcessSampler struct {
	mu   sync.Mutex
	proc *process.Process
	err  error
}

// NewProcessSampler creates a sampler for the current process.
func NewProcessSampler() *ProcessSampler {
	return newProcessSampler(int32(os.Getpid()))
}

func newProcessSampler(pid int32) *ProcessSampler {
	proc, err := process.NewProcess(pid)
	return &ProcessSampler{proc: proc, err: err}
}

// Sample implements Sampler.
func (s *ProcessSampler) Sample() (state.Resources, error) {
	if s.err != nil {
		return state.Resources{}, fmt.Errorf("open process: %w", s.err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cpu, err := s.proc.Percent(0)
	if err != nil {
		return state.Resources{}, fmt.Errorf("cpu percent: %w", err)
	}
	mem, err := s.proc.MemoryInfo()
	if err != nil {
		return state.Resources{}, fmt.Errorf("memory info: %w", err)
	}

	return state.Resources{
		CPUPercent: max(cpu, 0),
		MemoryMB:   float64(mem.RSS) / (1024 * 1024),
	}, nil
}
