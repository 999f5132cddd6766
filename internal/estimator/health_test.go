package estimator_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/devdiag/internal/estimator"
	"github.com/Dicklesworthstone/devdiag/internal/model"
)

type failingDisk struct{}

func (failingDisk) DiskSpace(context.Context) (model.DiskSpace, error) {
	return model.DiskSpace{}, errors.New("no statfs")
}

type fixedDisk model.DiskSpace

func (d fixedDisk) DiskSpace(context.Context) (model.DiskSpace, error) { return model.DiskSpace(d), nil }

func TestHealth_BatteryBands(t *testing.T) {
	h := estimator.NewHealth(nil)
	tests := []struct {
		fraction float64
		level    int
		health   model.BatteryHealth
	}{
		{0.87, 87, model.BatteryGood},
		{0.81, 81, model.BatteryGood},
		{0.80, 80, model.BatteryFair},
		{0.51, 51, model.BatteryFair},
		{0.50, 50, model.BatteryPoor},
		{0, 0, model.BatteryPoor},
		{1, 100, model.BatteryGood},
	}
	for _, tt := range tests {
		got, err := h.Estimate(context.Background(), model.Capabilities{BatteryFraction: model.Float64(tt.fraction)})
		require.NoError(t, err)
		assert.Equal(t, tt.level, got.BatteryLevelPercent, "fraction %v", tt.fraction)
		assert.Equal(t, tt.health, got.BatteryHealth, "fraction %v", tt.fraction)
		assert.Equal(t, model.ThermalNormal, got.ThermalState)
		assert.Equal(t, estimator.StubDiskSpace, got.DiskSpace)
	}
}

func TestHealth_UnknownBattery(t *testing.T) {
	got, err := estimator.NewHealth(nil).Estimate(context.Background(), model.Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, estimator.UnknownBatteryLevel, got.BatteryLevelPercent)
	assert.Equal(t, estimator.ClassifyBattery(50), got.BatteryHealth)
	assert.Equal(t, model.BatteryPoor, got.BatteryHealth)
	assert.Equal(t, model.ThermalNormal, got.ThermalState)
}

func TestHealth_InvalidBatteryFallsBack(t *testing.T) {
	for _, f := range []float64{-0.1, 1.5, math.NaN()} {
		got, err := estimator.NewHealth(nil).Estimate(context.Background(), model.Capabilities{BatteryFraction: model.Float64(f)})
		require.ErrorIs(t, err, estimator.ErrInvalidBattery)
		assert.Equal(t, estimator.HealthFallback, got)
	}
}

func TestHealth_DiskReader(t *testing.T) {
	ds := model.DiskSpace{TotalMB: 1000, UsedMB: 250, AvailableMB: 750}
	got, err := estimator.NewHealth(fixedDisk(ds)).Estimate(context.Background(), model.Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, ds, got.DiskSpace)

	got, err = estimator.NewHealth(failingDisk{}).Estimate(context.Background(), model.Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, estimator.StubDiskSpace, got.DiskSpace)
}

func TestHostDisk_ReadsRoot(t *testing.T) {
	ds, err := estimator.HostDisk{Path: t.TempDir()}.DiskSpace(context.Background())
	if err != nil {
		t.Skipf("disk usage unavailable: %v", err)
	}
	assert.Greater(t, ds.TotalMB, 0.0)
	assert.LessOrEqual(t, ds.UsedMB, ds.TotalMB)
}
