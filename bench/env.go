package bench

// This file defines the built-in evaluation environment available to all
// snippets and setup sources. The environment is lazily initialized once
// per process via envCache and cloned on every access so each binding's
// timed phase sees a clean scope: no snippet can observe state left over
// from a previous binding.
//
// Built-in names can be shadowed by parameter names and setup results.

import (
	"maps"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
)

// Private singleton cache.
//
//nolint:gochecknoglobals
var (
	envCacheOnce sync.Once
	envCache     map[string]any
)

// makeEnv returns a clone of the lazily-initialized, process-scoped
// environment containing built-in functions. The returned map can be
// safely mutated by the caller without affecting the shared cache.
func makeEnv() map[string]any {
	envCacheOnce.Do(func() {
		envCache = map[string]any{
			// Workload generators.
			"alloc":  envAlloc,
			"ints":   envInts,
			"floats": envFloats,

			// String workloads.
			"repeat": strings.Repeat,

			// Timing aids.
			"sleep": envSleep,
		}
	})

	return maps.Clone(envCache)
}

// envAlloc allocates and returns an n-byte slice. Useful for exercising
// the memory column.
func envAlloc(n int) []byte {
	return make([]byte, n)
}

// envInts returns the integers [0, n).
func envInts(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}

// envFloats returns n pseudo-random floats in [0, 1).
func envFloats(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rand.Float64()
	}

	return out
}

// envSleep suspends execution for the given number of seconds.
func envSleep(seconds float64) bool {
	time.Sleep(time.Duration(seconds * float64(time.Second)))

	return true
}
