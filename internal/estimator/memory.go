package estimator

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dicklesworthstone/devdiag/internal/model"
)

const (
	DefaultTotalMB           = 4096
	DefaultHeapAmplification = 25.0
	DefaultFallbackMin       = 0.40
	DefaultFallbackMax       = 0.70
	DefaultMaxUsedFraction   = 0.90

	bytesPerMB = 1024 * 1024
)

// MemoryFallback is reported when the estimate cannot be produced.
var MemoryFallback = model.Memory{
	TotalMB:     4096,
	UsedMB:      2048,
	AvailableMB: 2048,
	Pressure:    model.PressureModerate,
}

// ModelMemory maps a device family, matched as a case-insensitive substring
// of the model hint, to its installed RAM.
type ModelMemory struct {
	Match   string  `yaml:"match"`
	TotalMB float64 `yaml:"totalMB"`
}

// DefaultModelTable lists known device families. Order matters: the first
// match wins.
var DefaultModelTable = []ModelMemory{
	{Match: "iphone 15", TotalMB: 6144},
	{Match: "iphone 14", TotalMB: 6144},
	{Match: "iphone 13", TotalMB: 6144},
	{Match: "iphone 12", TotalMB: 6144},
	{Match: "iphone 11", TotalMB: 4096},
	{Match: "ipad", TotalMB: 8192},
}

// MemoryCalibration holds the heuristics used to size used memory.
// HeapAmplification assumes the runtime heap is a small, roughly constant
// fraction of device memory pressure.
type MemoryCalibration struct {
	HeapAmplification float64 `yaml:"heapAmplification"`
	FallbackMin       float64 `yaml:"fallbackMin"`
	FallbackMax       float64 `yaml:"fallbackMax"`
	MaxUsedFraction   float64 `yaml:"maxUsedFraction"`
}

// DefaultMemoryCalibration returns the built-in calibration.
func DefaultMemoryCalibration() MemoryCalibration {
	return MemoryCalibration{
		HeapAmplification: DefaultHeapAmplification,
		FallbackMin:       DefaultFallbackMin,
		FallbackMax:       DefaultFallbackMax,
		MaxUsedFraction:   DefaultMaxUsedFraction,
	}
}

// Memory estimates device RAM usage from the model hint and heap statistics.
type Memory struct {
	Calibration MemoryCalibration
	Rand        RandSource

	// Table is consulted before DefaultModelTable.
	Table []ModelMemory
}

// NewMemory returns a memory estimator with the process random source.
func NewMemory(cal MemoryCalibration, table []ModelMemory) *Memory {
	return &Memory{Calibration: cal, Table: table, Rand: defaultRand{}}
}

// Estimate derives a memory sample from caps.
func (m *Memory) Estimate(ctx context.Context, caps model.Capabilities) (model.Memory, error) {
	if err := ctx.Err(); err != nil {
		return MemoryFallback, err
	}

	total := m.TotalMB(caps.DeviceModelHint)
	if !finite(total) || total <= 0 {
		return MemoryFallback, fmt.Errorf("%w: %v", ErrInvalidTotal, total)
	}

	maxFrac := m.Calibration.MaxUsedFraction
	if maxFrac <= 0 || maxFrac > DefaultMaxUsedFraction {
		maxFrac = DefaultMaxUsedFraction
	}
	ceiling := total * maxFrac

	var used float64
	if caps.HeapUsedBytes != nil {
		amp := m.Calibration.HeapAmplification
		if amp <= 0 {
			amp = DefaultHeapAmplification
		}
		used = float64(*caps.HeapUsedBytes) / bytesPerMB * amp
		if !finite(used) {
			return MemoryFallback, fmt.Errorf("%w: %d bytes", ErrInvalidHeap, *caps.HeapUsedBytes)
		}
	} else {
		used = total * m.fallbackFraction()
	}
	used = clamp(used, 0, ceiling)

	return model.Memory{
		TotalMB:     total,
		UsedMB:      used,
		AvailableMB: total - used,
		Pressure:    ClassifyPressure(used / total),
	}, nil
}

// TotalMB returns the installed RAM for hint, or DefaultTotalMB.
func (m *Memory) TotalMB(hint string) float64 {
	hint = strings.ToLower(hint)
	if hint != "" {
		for _, table := range [][]ModelMemory{m.Table, DefaultModelTable} {
			for _, e := range table {
				if e.Match != "" && strings.Contains(hint, strings.ToLower(e.Match)) {
					return e.TotalMB
				}
			}
		}
	}
	return DefaultTotalMB
}

func (m *Memory) fallbackFraction() float64 {
	lo, hi := m.Calibration.FallbackMin, m.Calibration.FallbackMax
	if lo <= 0 || hi <= lo {
		lo, hi = DefaultFallbackMin, DefaultFallbackMax
	}
	r := m.Rand
	if r == nil {
		r = defaultRand{}
	}
	return lo + r.Float64()*(hi-lo)
}

// ClassifyPressure returns the pressure band for a used/total ratio.
func ClassifyPressure(ratio float64) model.Pressure {
	switch {
	case ratio > 0.8:
		return model.PressureHigh
	case ratio > 0.6:
		return model.PressureModerate
	default:
		return model.PressureLow
	}
}
