// Package ecsconfig reads the handful of environment-driven settings a
// host process chooses before building a world.Builder: worker pool size,
// the debug refcount toggle, and tracer verbosity, each with a
// lookup-with-fallback default.
package ecsconfig

import (
	"os"
	"strconv"
)

// Config holds the settings read from the environment at process start.
type Config struct {
	// Concurrency is the number of worker goroutines (including the main
	// thread) the scheduler should use, from ECSRUNTIME_CONCURRENCY.
	Concurrency int

	// DebugRefcount enables live strong-reference tracking, from
	// ECSRUNTIME_DEBUG_REFCOUNT. Expensive: every entity reference held by
	// application code must call refcount.MaybeStoreMap.Incr/Decr for the
	// tracker to stay accurate, so this should default to off in
	// production and on in test builds.
	DebugRefcount bool

	// TraceVerbose is the tracer verbosity setting, from
	// ECSRUNTIME_TRACE_VERBOSE. No package in this module reads it:
	// tracer.LogTracer logs every event, per-system ones included,
	// regardless of this value.
	TraceVerbose bool
}

// Load reads Config from the environment, substituting defaults for any
// variable that is unset or fails to parse.
func Load() Config {
	return Config{
		Concurrency:   getEnvInt("ECSRUNTIME_CONCURRENCY", 1),
		DebugRefcount: getEnvBool("ECSRUNTIME_DEBUG_REFCOUNT", false),
		TraceVerbose:  getEnvBool("ECSRUNTIME_TRACE_VERBOSE", false),
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
