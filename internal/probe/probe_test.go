package probe_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/devdiag/internal/model"
	"github.com/Dicklesworthstone/devdiag/internal/probe"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestHost(t *testing.T, root string) *probe.Host {
	h := probe.NewHost("")
	h.SysfsRoot = root
	h.Heap = func() (probe.HeapStats, bool) { return probe.HeapStats{}, false }
	h.Now = func() time.Time { return time.Unix(1700000000, 0) }
	return h
}

func TestHost_BatteryAndModel(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "class/power_supply/BAT0/capacity", "87\n")
	writeFile(t, root, "class/power_supply/BAT0/status", "Charging\n")
	writeFile(t, root, "class/dmi/id/product_name", "iPad Pro\n")

	caps := newTestHost(t, root).Probe(context.Background())

	require.NotNil(t, caps.BatteryFraction)
	assert.InDelta(t, 0.87, *caps.BatteryFraction, 1e-9)
	require.NotNil(t, caps.IsCharging)
	assert.True(t, *caps.IsCharging)
	assert.Equal(t, "iPad Pro", caps.DeviceModelHint)
	assert.Equal(t, time.Unix(1700000000, 0), caps.CapturedAt)
	assert.GreaterOrEqual(t, caps.LogicalCores, 1)
	assert.NotEmpty(t, caps.PlatformName)
}

func TestHost_DischargingBattery(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "class/power_supply/BAT1/capacity", "42")
	writeFile(t, root, "class/power_supply/BAT1/status", "Discharging")

	caps := newTestHost(t, root).Probe(context.Background())
	require.NotNil(t, caps.IsCharging)
	assert.False(t, *caps.IsCharging)
	assert.InDelta(t, 0.42, *caps.BatteryFraction, 1e-9)
}

func TestHost_MissingReadingsAreUnknown(t *testing.T) {
	caps := newTestHost(t, t.TempDir()).Probe(context.Background())

	assert.Nil(t, caps.BatteryFraction)
	assert.Nil(t, caps.IsCharging)
	assert.Nil(t, caps.HeapUsedBytes)
	assert.Nil(t, caps.HeapTotalBytes)
	assert.Nil(t, caps.HeapLimitBytes)
	assert.Empty(t, caps.DeviceModelHint)
}

func TestHost_BatteryWithoutStatus(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "class/power_supply/BAT0/capacity", "100")

	caps := newTestHost(t, root).Probe(context.Background())
	require.NotNil(t, caps.BatteryFraction)
	assert.Equal(t, 1.0, *caps.BatteryFraction)
	assert.Nil(t, caps.IsCharging)
}

func TestHost_MalformedCapacityIgnored(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "class/power_supply/BAT0/capacity", "full")

	caps := newTestHost(t, root).Probe(context.Background())
	assert.Nil(t, caps.BatteryFraction)
}

func TestHost_ModelOverride(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "class/dmi/id/product_name", "Generic PC")

	h := newTestHost(t, root)
	h.ModelOverride = "iPhone 13 Pro"
	assert.Equal(t, "iPhone 13 Pro", h.Probe(context.Background()).DeviceModelHint)
}

func TestHost_HeapStats(t *testing.T) {
	h := newTestHost(t, t.TempDir())
	h.Heap = func() (probe.HeapStats, bool) {
		return probe.HeapStats{Used: 10, Total: 20}, true
	}

	caps := h.Probe(context.Background())
	require.True(t, caps.HasHeapStats())
	assert.Equal(t, uint64(10), *caps.HeapUsedBytes)
	assert.Equal(t, uint64(20), *caps.HeapTotalBytes)
	assert.Nil(t, caps.HeapLimitBytes)
}

func TestRuntimeHeap(t *testing.T) {
	hs, ok := probe.RuntimeHeap()
	require.True(t, ok)
	assert.Greater(t, hs.Used, uint64(0))
	assert.GreaterOrEqual(t, hs.Total, hs.Used)
}

func TestConnectionType(t *testing.T) {
	assert.Equal(t, "wifi", probe.ConnectionType("wlan0"))
	assert.Equal(t, "wifi", probe.ConnectionType("wlp3s0"))
	assert.Equal(t, "ethernet", probe.ConnectionType("eth0"))
	assert.Equal(t, "ethernet", probe.ConnectionType("enp0s31f6"))
	assert.Equal(t, "cellular", probe.ConnectionType("rmnet_data0"))
	assert.Equal(t, "", probe.ConnectionType("docker0"))
}

func TestStatic(t *testing.T) {
	s := probe.Static{Caps: model.Capabilities{LogicalCores: 3, DeviceModelHint: "iPhone 14"}}
	caps := s.Probe(context.Background())
	assert.Equal(t, 3, caps.LogicalCores)
	assert.Equal(t, "iPhone 14", caps.DeviceModelHint)
	assert.False(t, caps.CapturedAt.IsZero())
}
