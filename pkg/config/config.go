// Package config implements the flat key/value configuration bag of
// spec.md §6: loaded from JSON via encoding/json plus
// github.com/mitchellh/mapstructure.Decode, exactly as the teacher's
// InputFromJson decodes a problem file, with typed accessors that panic
// with a ConfigError on a malformed value (the teacher's log.Panicf idiom
// for unrecoverable setup errors).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// ConfigError reports a malformed or missing configuration value.
type ConfigError struct {
	Key     string
	message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.message)
}

func newConfigError(key, format string, args ...any) *ConfigError {
	return &ConfigError{Key: key, message: fmt.Sprintf(format, args...)}
}

// Config is a flat string-keyed bag of configuration values, recognized
// keys per spec.md §6 (Termination.*, General.*, Parallel.NrSolvers,
// Neighbour.Class, Exam.ColoringConstruction, Exam.GreatDeluge,
// HillClimber.Neighbours, SimulatedAnnealing.Neighbours,
// GreatDeluge.Neighbours).
type Config map[string]string

// Load reads a JSON object of key/value pairs from file and decodes it into
// a Config via mapstructure, mirroring the teacher's raw-map-then-decode
// pipeline.
func Load(file string) (Config, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %s: %w", file, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil, fmt.Errorf("config: cannot parse %s: %w", file, err)
	}
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("config: cannot build decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("config: cannot decode %s: %w", file, err)
	}
	return cfg, nil
}

// StringValue returns key's value, or def if key is absent.
func (c Config) StringValue(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// IntValue parses key's value as an int, or returns def if absent. Panics
// with a *ConfigError if key is present but unparseable.
func (c Config) IntValue(key string, def int) int {
	v, ok := c[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(newConfigError(key, "not an integer: %q", v))
	}
	return n
}

// FloatValue parses key's value as a float64, or returns def if absent.
func (c Config) FloatValue(key string, def float64) float64 {
	v, ok := c[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		panic(newConfigError(key, "not a number: %q", v))
	}
	return f
}

// BoolValue parses key's value as a bool ("true"/"false"), or returns def
// if absent.
func (c Config) BoolValue(key string, def bool) bool {
	v, ok := c[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(newConfigError(key, "not a boolean: %q", v))
	}
	return b
}

// DurationValue parses key's value with time.ParseDuration, or returns def
// if absent.
func (c Config) DurationValue(key string, def time.Duration) time.Duration {
	v, ok := c[key]
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(newConfigError(key, "not a duration: %q", v))
	}
	return d
}
