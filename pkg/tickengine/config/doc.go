/*
Package config loads tick engine settings.

# Documents

Config wraps a decoded YAML or JSON document and extracts typed values with
defaults, so a missing or mistyped key never aborts loading:

	cfg, err := config.FromFile("tickengine.yaml")
	interval := cfg.Seconds("tick_interval", time.Second)

Durations accept time.ParseDuration strings ("250ms") or bare numbers of
seconds (0.25).

# Settings

Settings is the typed engine configuration. Load builds it in three layers:

 1. Defaults()
 2. keys present in the file, at the root or under a "tickengine" section
 3. TICKENGINE_* environment variables

and then runs Validate:

	settings, err := config.Load(afero.NewOsFs(), "tickengine.yaml")

Recognized environment variables:

	TICKENGINE_TICK_INTERVAL             TICKENGINE_MAX_RECOVERIES
	TICKENGINE_TICK_INTERVAL_MIN         TICKENGINE_RECOVERY_COOLDOWN
	TICKENGINE_TICK_INTERVAL_MAX         TICKENGINE_MONITOR_INTERVAL
	TICKENGINE_MOMENTUM_DECAY            TICKENGINE_MONITOR_SHUTDOWN_TIMEOUT
	TICKENGINE_MAX_ERRORS                TICKENGINE_QUEUE_CAPACITY
	TICKENGINE_DUPLICATE_HANDLERS

Config values are read-only after creation and safe for concurrent reads.
*/
package config
