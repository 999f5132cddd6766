// Package probe reads the raw capability signals the estimators work from.
package probe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/Dicklesworthstone/devdiag/internal/model"
)

// Prober captures a capabilities snapshot. Implementations never fail: a
// reading that is unavailable is left at its unknown value.
type Prober interface {
	Probe(ctx context.Context) model.Capabilities
}

// HeapStats is a runtime heap reading in bytes. Limit is zero when the
// runtime has no memory limit.
type HeapStats struct {
	Used  uint64
	Total uint64
	Limit uint64
}

// HeapReader returns heap statistics, or false if none are exposed.
type HeapReader func() (HeapStats, bool)

// RuntimeHeap reads the Go runtime heap.
func RuntimeHeap() (HeapStats, bool) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	hs := HeapStats{Used: ms.HeapAlloc, Total: ms.HeapSys}
	if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
		hs.Limit = uint64(limit)
	}
	return hs, true
}

// Host probes the machine the process runs on.
type Host struct {
	// SysfsRoot is normally /sys.
	SysfsRoot string

	// ModelOverride replaces the DMI product name when set.
	ModelOverride string

	Heap HeapReader
	Now  func() time.Time
}

// NewHost returns a Host prober reading /sys and the runtime heap.
func NewHost(modelOverride string) *Host {
	return &Host{
		SysfsRoot:     "/sys",
		ModelOverride: modelOverride,
		Heap:          RuntimeHeap,
		Now:           time.Now,
	}
}

func (h *Host) Probe(ctx context.Context) model.Capabilities {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	caps := model.Capabilities{
		PlatformName: runtime.GOOS,
		CapturedAt:   now(),
	}

	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		caps.LogicalCores = n
	} else if n := runtime.NumCPU(); n > 0 {
		caps.LogicalCores = n
	}

	if info, err := host.InfoWithContext(ctx); err == nil && info != nil {
		if info.Platform != "" {
			caps.PlatformName = info.Platform
		}
		caps.OSVersion = info.PlatformVersion
	}

	if h.Heap != nil {
		if hs, ok := h.Heap(); ok {
			caps.HeapUsedBytes = model.Uint64(hs.Used)
			caps.HeapTotalBytes = model.Uint64(hs.Total)
			if hs.Limit > 0 {
				caps.HeapLimitBytes = model.Uint64(hs.Limit)
			}
		}
	}

	caps.BatteryFraction, caps.IsCharging = h.battery()
	caps.DeviceModelHint = h.modelHint()
	caps.IsOnline, caps.ConnectionType = connectivity(ctx)
	return caps
}

// battery reads the first BAT* power supply.
func (h *Host) battery() (*float64, *bool) {
	battPaths, _ := filepath.Glob(filepath.Join(h.sysfs(), "class/power_supply/BAT*/capacity"))
	for _, capPath := range battPaths {
		capBytes, err := os.ReadFile(capPath)
		if err != nil {
			continue
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(string(capBytes)), 64)
		if err != nil {
			continue
		}
		fraction := math.Min(math.Max(pct/100, 0), 1)

		var charging *bool
		if stateBytes, err := os.ReadFile(filepath.Join(filepath.Dir(capPath), "status")); err == nil {
			state := strings.TrimSpace(string(stateBytes))
			charging = model.Bool(strings.EqualFold(state, "Charging"))
		}
		return &fraction, charging
	}
	return nil, nil
}

func (h *Host) modelHint() string {
	if h.ModelOverride != "" {
		return h.ModelOverride
	}
	b, err := os.ReadFile(filepath.Join(h.sysfs(), "class/dmi/id/product_name"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func (h *Host) sysfs() string {
	if h.SysfsRoot == "" {
		return "/sys"
	}
	return h.SysfsRoot
}

// connectivity reports whether any non-loopback interface is up and guesses
// the link type from its name.
func connectivity(ctx context.Context) (bool, string) {
	ifaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return false, ""
	}
	online, kind := false, ""
	for _, iface := range ifaces {
		if !hasFlag(iface.Flags, "up") || hasFlag(iface.Flags, "loopback") {
			continue
		}
		online = true
		if k := ConnectionType(iface.Name); k != "" {
			if kind == "" || k == "wifi" {
				kind = k
			}
		}
	}
	return online, kind
}

// ConnectionType guesses the link type from an interface name.
func ConnectionType(name string) string {
	switch {
	case strings.HasPrefix(name, "wl"):
		return "wifi"
	case strings.HasPrefix(name, "eth"), strings.HasPrefix(name, "en"):
		return "ethernet"
	case strings.HasPrefix(name, "wwan"), strings.HasPrefix(name, "rmnet"):
		return "cellular"
	default:
		return ""
	}
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}

// Static always returns the same capabilities, stamped with the probe time.
type Static struct {
	Caps model.Capabilities
}

func (s Static) Probe(context.Context) model.Capabilities {
	c := s.Caps.Clone()
	if c.CapturedAt.IsZero() {
		c.CapturedAt = time.Now()
	}
	return c
}
