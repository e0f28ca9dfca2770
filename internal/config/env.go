package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Env lookup helpers. Every flag in the CLI falls back to one of these, so
// a malformed value degrades to the default instead of aborting startup.

// GetEnvString returns the value of key, or defaultValue when unset.
// An empty string set explicitly counts as set.
func GetEnvString(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// GetEnvInt returns key parsed as an integer, or defaultValue when unset
// or unparseable.
func GetEnvInt(key string, defaultValue int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// GetEnvBool returns key parsed as a boolean (per strconv.ParseBool), or
// defaultValue when unset or unparseable.
func GetEnvBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

// GetEnvDuration returns key parsed as a time.Duration ("90s", "30m"), or
// defaultValue when unset or unparseable. A bare number is rejected on
// purpose; a unitless timeout is ambiguous.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvLogLevel returns key parsed as a zerolog level name, or defaultValue
// when unset or unrecognized.
func GetEnvLogLevel(key string, defaultValue zerolog.Level) zerolog.Level {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	level, err := zerolog.ParseLevel(v)
	if err != nil {
		return defaultValue
	}
	return level
}
