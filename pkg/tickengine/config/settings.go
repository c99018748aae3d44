package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/afero"

	"github.com/randalmurphal/tickengine/pkg/tickengine/event"
)

// ErrInvalidSettings is wrapped by every error returned from Validate.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the typed engine configuration.
type Settings struct {
	// TickInterval is the target pause between ticks.
	TickInterval time.Duration

	// TickIntervalMin and TickIntervalMax clamp the adaptive interval.
	TickIntervalMin time.Duration
	TickIntervalMax time.Duration

	// MomentumDecay is the per-tick multiplier applied to load momentum.
	MomentumDecay float64

	// MaxErrors is the fault count that triggers recovery.
	MaxErrors int

	// MaxRecoveries is the lifetime recovery budget.
	MaxRecoveries int

	// RecoveryCooldown is the minimum time between recoveries.
	RecoveryCooldown time.Duration

	// MonitorInterval is the resource sampling cadence.
	MonitorInterval time.Duration

	// MonitorShutdownTimeout bounds how long Stop waits for the monitor.
	MonitorShutdownTimeout time.Duration

	// QueueCapacity bounds the pending event queue.
	QueueCapacity int

	// DuplicateHandlers is "allow", "warn" or "reject".
	DuplicateHandlers string
}

// Defaults returns the default settings.
func Defaults() Settings {
	return Settings{
		TickInterval:           time.Second,
		TickIntervalMin:        100 * time.Millisecond,
		TickIntervalMax:        5 * time.Second,
		MomentumDecay:          0.95,
		MaxErrors:              3,
		MaxRecoveries:          3,
		RecoveryCooldown:       300 * time.Second,
		MonitorInterval:        time.Second,
		MonitorShutdownTimeout: 2 * time.Second,
		QueueCapacity:          event.DefaultQueueCapacity,
		DuplicateHandlers:      event.DuplicateAllow.String(),
	}
}

// FromConfig overlays the keys present in c onto Defaults.
//
// Settings may live at the document root or under a "tickengine" section.
// Durations given as bare numbers are seconds. thermal_momentum_decay is
// accepted as an alias of momentum_decay.
func FromConfig(c Config) Settings {
	if section, ok := c.Section("tickengine"); ok {
		c = section
	}

	s := Defaults()
	s.TickInterval = c.Seconds("tick_interval", s.TickInterval)
	s.TickIntervalMin = c.Seconds("tick_interval_min", s.TickIntervalMin)
	s.TickIntervalMax = c.Seconds("tick_interval_max", s.TickIntervalMax)
	s.MomentumDecay = c.Float(firstKey(c, "momentum_decay", "thermal_momentum_decay"), s.MomentumDecay)
	s.MaxErrors = c.Int("max_errors", s.MaxErrors)
	s.MaxRecoveries = c.Int("max_recoveries", s.MaxRecoveries)
	s.RecoveryCooldown = c.Seconds("recovery_cooldown", s.RecoveryCooldown)
	s.MonitorInterval = c.Seconds("monitor_interval", s.MonitorInterval)
	s.MonitorShutdownTimeout = c.Seconds("monitor_shutdown_timeout", s.MonitorShutdownTimeout)
	s.QueueCapacity = c.Int("queue_capacity", s.QueueCapacity)
	s.DuplicateHandlers = c.String("duplicate_handlers", s.DuplicateHandlers)
	return s
}

func firstKey(c Config, keys ...string) string {
	for _, k := range keys {
		if c.Has(k) {
			return k
		}
	}
	return keys[0]
}

// envOverrides mirrors Settings for TICKENGINE_* variables.
// Nil fields were not set in the environment.
type envOverrides struct {
	TickInterval           *time.Duration `env:"TICKENGINE_TICK_INTERVAL"`
	TickIntervalMin        *time.Duration `env:"TICKENGINE_TICK_INTERVAL_MIN"`
	TickIntervalMax        *time.Duration `env:"TICKENGINE_TICK_INTERVAL_MAX"`
	MomentumDecay          *float64       `env:"TICKENGINE_MOMENTUM_DECAY"`
	MaxErrors              *int           `env:"TICKENGINE_MAX_ERRORS"`
	MaxRecoveries          *int           `env:"TICKENGINE_MAX_RECOVERIES"`
	RecoveryCooldown       *time.Duration `env:"TICKENGINE_RECOVERY_COOLDOWN"`
	MonitorInterval        *time.Duration `env:"TICKENGINE_MONITOR_INTERVAL"`
	MonitorShutdownTimeout *time.Duration `env:"TICKENGINE_MONITOR_SHUTDOWN_TIMEOUT"`
	QueueCapacity          *int           `env:"TICKENGINE_QUEUE_CAPACITY"`
	DuplicateHandlers      *string        `env:"TICKENGINE_DUPLICATE_HANDLERS"`
}

// ApplyEnv overlays TICKENGINE_* environment variables onto s.
// Durations use time.ParseDuration syntax ("250ms", "5m").
func ApplyEnv(s Settings) (Settings, error) {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return s, fmt.Errorf("parse env: %w", err)
	}

	setDuration(&s.TickInterval, o.TickInterval)
	setDuration(&s.TickIntervalMin, o.TickIntervalMin)
	setDuration(&s.TickIntervalMax, o.TickIntervalMax)
	setDuration(&s.RecoveryCooldown, o.RecoveryCooldown)
	setDuration(&s.MonitorInterval, o.MonitorInterval)
	setDuration(&s.MonitorShutdownTimeout, o.MonitorShutdownTimeout)
	if o.MomentumDecay != nil {
		s.MomentumDecay = *o.MomentumDecay
	}
	if o.MaxErrors != nil {
		s.MaxErrors = *o.MaxErrors
	}
	if o.MaxRecoveries != nil {
		s.MaxRecoveries = *o.MaxRecoveries
	}
	if o.QueueCapacity != nil {
		s.QueueCapacity = *o.QueueCapacity
	}
	if o.DuplicateHandlers != nil {
		s.DuplicateHandlers = *o.DuplicateHandlers
	}
	return s, nil
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}

// Load reads settings from path (if non-empty) on fs, then applies the
// environment, then validates.
func Load(fs afero.Fs, path string) (Settings, error) {
	s := Defaults()
	if path != "" {
		c, err := FromFS(fs, path)
		if err != nil {
			return Settings{}, err
		}
		s = FromConfig(c)
	}

	s, err := ApplyEnv(s)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks bounds and returns every violation joined.
func (s Settings) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidSettings}, args...)...))
	}

	if s.TickIntervalMin <= 0 {
		fail("tick_interval_min must be positive, got %s", s.TickIntervalMin)
	}
	if s.TickIntervalMax < s.TickIntervalMin {
		fail("tick_interval_max %s is below tick_interval_min %s", s.TickIntervalMax, s.TickIntervalMin)
	}
	// tick_interval may sit outside [min, max]; computed intervals are
	// clamped, the target is not.
	if s.TickInterval <= 0 {
		fail("tick_interval must be positive, got %s", s.TickInterval)
	}
	if s.MomentumDecay <= 0 || s.MomentumDecay > 1 {
		fail("momentum_decay must be in (0, 1], got %g", s.MomentumDecay)
	}
	if s.MaxErrors < 1 {
		fail("max_errors must be at least 1, got %d", s.MaxErrors)
	}
	if s.MaxRecoveries < 0 {
		fail("max_recoveries must not be negative, got %d", s.MaxRecoveries)
	}
	if s.RecoveryCooldown < 0 {
		fail("recovery_cooldown must not be negative, got %s", s.RecoveryCooldown)
	}
	if s.MonitorInterval <= 0 {
		fail("monitor_interval must be positive, got %s", s.MonitorInterval)
	}
	if s.MonitorShutdownTimeout <= 0 {
		fail("monitor_shutdown_timeout must be positive, got %s", s.MonitorShutdownTimeout)
	}
	if s.QueueCapacity < 1 {
		fail("queue_capacity must be at least 1, got %d", s.QueueCapacity)
	}
	if _, err := event.ParseDuplicatePolicy(s.DuplicateHandlers); err != nil {
		fail("duplicate_handlers: %v", err)
	}

	return errors.Join(errs...)
}

// DuplicatePolicy returns the parsed duplicate handler policy.
// Invalid values fall back to event.DuplicateAllow; call Validate first.
func (s Settings) DuplicatePolicy() event.DuplicatePolicy {
	p, _ := event.ParseDuplicatePolicy(s.DuplicateHandlers)
	return p
}

// Map returns the settings keyed by their configuration names, with
// durations in seconds. FromConfig(New(s.Map())) yields s again.
func (s Settings) Map() map[string]any {
	return map[string]any{
		"tick_interval":            s.TickInterval.Seconds(),
		"tick_interval_min":        s.TickIntervalMin.Seconds(),
		"tick_interval_max":        s.TickIntervalMax.Seconds(),
		"momentum_decay":           s.MomentumDecay,
		"max_errors":               s.MaxErrors,
		"max_recoveries":           s.MaxRecoveries,
		"recovery_cooldown":        s.RecoveryCooldown.Seconds(),
		"monitor_interval":         s.MonitorInterval.Seconds(),
		"monitor_shutdown_timeout": s.MonitorShutdownTimeout.Seconds(),
		"queue_capacity":           s.QueueCapacity,
		"duplicate_handlers":       s.DuplicateHandlers,
	}
}
