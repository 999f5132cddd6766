package model

import "time"

// Capabilities is a raw reading of what the host exposes. A nil pointer
// field means the reading was unavailable.
type Capabilities struct {
	LogicalCores    int       `json:"logicalCores"` // 0 when unknown
	HeapUsedBytes   *uint64   `json:"heapUsedBytes,omitempty"`
	HeapTotalBytes  *uint64   `json:"heapTotalBytes,omitempty"`
	HeapLimitBytes  *uint64   `json:"heapLimitBytes,omitempty"`
	BatteryFraction *float64  `json:"batteryFraction,omitempty"` // 0-1
	IsCharging      *bool     `json:"isCharging,omitempty"`
	PlatformName    string    `json:"platformName"`
	OSVersion       string    `json:"osVersion,omitempty"`
	DeviceModelHint string    `json:"deviceModelHint"`
	ConnectionType  string    `json:"connectionType,omitempty"`
	IsOnline        bool      `json:"isOnline"`
	CapturedAt      time.Time `json:"capturedAt"`
}

// HasHeapStats reports whether heap usage was readable.
func (c Capabilities) HasHeapStats() bool { return c.HeapUsedBytes != nil }

// Clone returns a copy of c that shares no pointers with it.
func (c Capabilities) Clone() Capabilities {
	c.HeapUsedBytes = clonePtr(c.HeapUsedBytes)
	c.HeapTotalBytes = clonePtr(c.HeapTotalBytes)
	c.HeapLimitBytes = clonePtr(c.HeapLimitBytes)
	c.BatteryFraction = clonePtr(c.BatteryFraction)
	c.IsCharging = clonePtr(c.IsCharging)
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Uint64 returns a pointer to v.
func Uint64(v uint64) *uint64 { return &v }

// Float64 returns a pointer to v.
func Float64(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
