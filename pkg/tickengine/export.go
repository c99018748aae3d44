package tickengine

import (
	"time"

	"github.com/randalmurphal/tickengine/pkg/tickengine/state"
)

// Export is a full, serializable picture of the engine: its state, handler
// counts and configuration.
type Export struct {
	Timestamp  time.Time      `json:"timestamp"`
	State      state.Snapshot `json:"state"`
	Handlers   map[string]int `json:"handlers"`
	Subsystems []Subsystem    `json:"subsystems"`
	Config     map[string]any `json:"config"`
}

// Export returns the current state together with per-event-type handler
// counts, the subsystems and the effective settings.
func (e *Engine) Export() Export {
	return Export{
		Timestamp:  e.cfg.now(),
		State:      e.State(),
		Handlers:   e.registry.Counts(),
		Subsystems: e.Subsystems(),
		Config:     e.settings.Map(),
	}
}
