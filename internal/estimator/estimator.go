// Package estimator turns coarse capability readings into user-facing CPU,
// memory and health samples.
//
// None of these numbers are measurements. The CPU figure is the wall-clock
// cost of a fixed workload scaled against a calibration baseline, and the
// memory figure is the runtime heap amplified by a heuristic factor. Both
// depend on the host and must be read as approximations.
package estimator

import (
	"errors"
	"math"
	"math/rand"
)

var (
	ErrWorkloadPanic   = errors.New("cpu workload panicked")
	ErrInvalidDuration = errors.New("invalid workload duration")
	ErrInvalidTotal    = errors.New("invalid total memory")
	ErrInvalidHeap     = errors.New("invalid heap reading")
	ErrInvalidBattery  = errors.New("invalid battery fraction")
)

// RandSource supplies uniform values in [0, 1).
type RandSource interface {
	Float64() float64
}

// defaultRand is the process-wide generator from math/rand/v2.
type defaultRand struct{}

func (defaultRand) Float64() float64 { return rand.Float64() }

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
