package config

import (
	"strconv"
	"time"
)

// Config wraps a decoded YAML/JSON document for typed, forgiving lookups.
// Accessors fall back to the supplied default when a key is missing or its
// value has an unusable type.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map. A nil map yields an empty Config.
func New(data map[string]any) Config {
	if data == nil {
		data = map[string]any{}
	}
	return Config{data: data}
}

// Section returns the nested map stored at key as a Config.
// The second result is false when key is missing or not a map.
func (c Config) Section(key string) (Config, bool) {
	switch v := c.data[key].(type) {
	case map[string]any:
		return New(v), true
	case map[any]any:
		m := make(map[string]any, len(v))
		for k, val := range v {
			if s, ok := k.(string); ok {
				m[s] = val
			}
		}
		return New(m), true
	}
	return Config{}, false
}

// Lookup returns the value of the first key present, trying keys in order.
func (c Config) Lookup(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := c.data[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// Has reports whether any of the keys is present.
func (c Config) Has(keys ...string) bool {
	_, ok := c.Lookup(keys...)
	return ok
}

// String returns the string at key, or def.
func (c Config) String(key, def string) string {
	if s, ok := c.data[key].(string); ok {
		return s
	}
	return def
}

// Bool returns the boolean at key, or def.
// Strings accepted by strconv.ParseBool are converted.
func (c Config) Bool(key string, def bool) bool {
	switch v := c.data[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Int returns the integer at key, or def.
// Floats convert only when they have no fractional part.
func (c Config) Int(key string, def int) int {
	if n, ok := toInt(c.data[key]); ok {
		return n
	}
	return def
}

// Float returns the number at key as float64, or def.
func (c Config) Float(key string, def float64) float64 {
	if f, ok := toFloat(c.data[key]); ok {
		return f
	}
	return def
}

// Seconds returns the duration at key, or def.
//
// Bare numbers are seconds (1.5 means 1.5s). Strings are parsed with
// time.ParseDuration first and as a number of seconds second.
func (c Config) Seconds(key string, def time.Duration) time.Duration {
	if d, ok := toDuration(c.data[key]); ok {
		return d
	}
	return def
}

// Raw returns the underlying map. It must not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func toDuration(v any) (time.Duration, bool) {
	switch d := v.(type) {
	case time.Duration:
		return d, true
	case string:
		if parsed, err := time.ParseDuration(d); err == nil {
			return parsed, true
		}
	}
	if secs, ok := toFloat(v); ok {
		return time.Duration(secs * float64(time.Second)), true
	}
	return 0, false
}
