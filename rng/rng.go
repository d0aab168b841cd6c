// Package rng provides the single process-wide random source accessor used
// by every package that needs randomness: tree construction, mutation,
// weight perturbation, breeding, and dataset shuffling. The mode (OS-seeded
// vs. deterministic) is chosen once, at first use, from the
// USE_PREDICTABLE_RNG environment variable.
package rng

import (
	crand "crypto/rand"
	"io"
	"math/rand"
	"os"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// PredictableEnvVar, when set to any non-empty value before the first call
// to Get, switches the process to deterministic mode.
const PredictableEnvVar = "USE_PREDICTABLE_RNG"

// predictableSeed is the fixed seed used in deterministic mode. Any fixed
// value works; this one matches the constant used by the reference
// implementation this package's behavior is modeled on.
const predictableSeed = 42

var (
	once        sync.Once
	predictable bool
)

func resolveMode() {
	if os.Getenv(PredictableEnvVar) != "" {
		predictable = true
		klog.Warningf("%s is set: using a deterministic, reproducible RNG seed", PredictableEnvVar)
	}
}

// Get returns a new, private *rand.Rand. Under deterministic mode every call
// returns a generator seeded identically, so repeated fresh calls in a
// single-threaded context replay the same sequence; this is relied on by
// regression tests. Under the default mode every call is seeded from the OS
// entropy source (crypto/rand, falling back to the clock), so concurrent
// callers never share mutable RNG state.
func Get() *rand.Rand {
	once.Do(resolveMode)
	if predictable {
		return rand.New(rand.NewSource(predictableSeed))
	}
	return rand.New(rand.NewSource(osSeed()))
}

func osSeed() int64 {
	var b [8]byte
	if _, err := io.ReadFull(crand.Reader, b[:]); err != nil {
		// Fall back to a time-derived seed; this only affects the quality
		// of the non-deterministic path, never correctness.
		return time.Now().UnixNano()
	}
	var s int64
	for _, v := range b {
		s = s<<8 | int64(v)
	}
	return s
}
