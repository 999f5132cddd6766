package estimator

import (
	"context"
	"fmt"
	"math"

	"github.com/Dicklesworthstone/devdiag/internal/model"
)

// UnknownBatteryLevel is reported when no battery reading exists. It is
// classified like any other level.
const UnknownBatteryLevel = 50

// HealthFallback is reported when battery state cannot be interpreted.
var HealthFallback = model.Health{
	BatteryLevelPercent: 50,
	BatteryHealth:       model.BatteryFair,
	ThermalState:        model.ThermalNormal,
	DiskSpace:           StubDiskSpace,
}

// Health aggregates battery, thermal and storage state.
type Health struct {
	Disk DiskReader
}

// NewHealth returns a health aggregator reading storage from disk. A nil
// disk reports StubDiskSpace.
func NewHealth(disk DiskReader) *Health {
	if disk == nil {
		disk = StubDisk{}
	}
	return &Health{Disk: disk}
}

// Estimate builds a health snapshot from caps. Thermal state is always
// normal: no thermal sensor is readable.
func (h *Health) Estimate(ctx context.Context, caps model.Capabilities) (model.Health, error) {
	if err := ctx.Err(); err != nil {
		return HealthFallback, err
	}

	level := UnknownBatteryLevel
	if f := caps.BatteryFraction; f != nil {
		if math.IsNaN(*f) || *f < 0 || *f > 1 {
			return HealthFallback, fmt.Errorf("%w: %v", ErrInvalidBattery, *f)
		}
		level = int(math.Round(*f * 100))
	}
	return model.Health{
		BatteryLevelPercent: level,
		BatteryHealth:       ClassifyBattery(level),
		ThermalState:        model.ThermalNormal,
		DiskSpace:           h.diskSpace(ctx),
	}, nil
}

func (h *Health) diskSpace(ctx context.Context) model.DiskSpace {
	if h.Disk == nil {
		return StubDiskSpace
	}
	ds, err := h.Disk.DiskSpace(ctx)
	if err != nil {
		return StubDiskSpace
	}
	return ds
}

// ClassifyBattery returns the battery band for a level percentage.
func ClassifyBattery(level int) model.BatteryHealth {
	switch {
	case level > 80:
		return model.BatteryGood
	case level > 50:
		return model.BatteryFair
	default:
		return model.BatteryPoor
	}
}
