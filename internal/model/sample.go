package model

import (
	"slices"
	"time"
)

// CPUStatus is the load band derived from CPU usage.
type CPUStatus string

const (
	CPUOptimal  CPUStatus = "optimal"
	CPUModerate CPUStatus = "moderate"
	CPUHigh     CPUStatus = "high"
)

// Pressure is the memory saturation band.
type Pressure string

const (
	PressureLow      Pressure = "low"
	PressureModerate Pressure = "moderate"
	PressureHigh     Pressure = "high"
)

// BatteryHealth is the band derived from battery level.
type BatteryHealth string

const (
	BatteryGood BatteryHealth = "good"
	BatteryFair BatteryHealth = "fair"
	BatteryPoor BatteryHealth = "poor"
)

// ThermalState mirrors the platform thermal levels. Only ThermalNormal is
// ever reported because no sensor is readable.
type ThermalState string

const (
	ThermalNormal   ThermalState = "normal"
	ThermalFair     ThermalState = "fair"
	ThermalSerious  ThermalState = "serious"
	ThermalCritical ThermalState = "critical"
)

// CPU is an estimated CPU load sample.
type CPU struct {
	UsagePercent       int       `json:"usagePercent"` // 5-95
	PseudoTemperatureC float64   `json:"pseudoTemperatureC"`
	Cores              int       `json:"cores"`
	Status             CPUStatus `json:"status"`
}

// Memory is an estimated RAM sample in megabytes.
type Memory struct {
	TotalMB     float64  `json:"totalMB"`
	UsedMB      float64  `json:"usedMB"`
	AvailableMB float64  `json:"availableMB"`
	Pressure    Pressure `json:"pressure"`
}

// UsedPercent returns used memory as a rounded percentage of total.
func (m Memory) UsedPercent() int {
	if m.TotalMB <= 0 {
		return 0
	}
	return int(m.UsedMB/m.TotalMB*100 + 0.5)
}

// DiskSpace is storage in megabytes.
type DiskSpace struct {
	TotalMB     float64 `json:"totalMB"`
	UsedMB      float64 `json:"usedMB"`
	AvailableMB float64 `json:"availableMB"`
}

// Health combines battery, thermal and storage state.
type Health struct {
	BatteryLevelPercent int           `json:"batteryLevelPercent"`
	BatteryHealth       BatteryHealth `json:"batteryHealth"`
	ThermalState        ThermalState  `json:"thermalState"`
	DiskSpace           DiskSpace     `json:"diskSpace"`
}

// HistoryEntry is one point of the trend display.
type HistoryEntry struct {
	TimestampMs int64  `json:"timestampMs"`
	CPUPercent  int    `json:"cpuPercent"`
	RAMPercent  int    `json:"ramPercent"`
	DisplayTime string `json:"displayTime"`
}

// NewHistoryEntry builds an entry stamped with t in local time.
func NewHistoryEntry(t time.Time, cpuPercent, ramPercent int) HistoryEntry {
	return HistoryEntry{
		TimestampMs: t.UnixMilli(),
		CPUPercent:  cpuPercent,
		RAMPercent:  ramPercent,
		DisplayTime: t.Local().Format("15:04:05"),
	}
}

// Snapshot is the full published result of one scan, exchanged between the
// scanner, UI, HTTP API and JSON exporter.
type Snapshot struct {
	ScanID       string         `json:"scanId,omitempty"`
	CompletedAt  time.Time      `json:"completedAt"`
	Duration     time.Duration  `json:"durationNs"`
	Capabilities Capabilities   `json:"capabilities"`
	CPU          CPU            `json:"cpu"`
	Memory       Memory         `json:"memory"`
	Health       Health         `json:"health"`
	History      []HistoryEntry `json:"history"`
	Scanning     bool           `json:"isScanning"`
	Fallbacks    []string       `json:"fallbacks,omitempty"`
}

// Clone returns a deep copy of s. Readers get clones so nothing they do can
// reach the scanner's own state.
func (s Snapshot) Clone() Snapshot {
	s.Capabilities = s.Capabilities.Clone()
	s.History = slices.Clone(s.History)
	s.Fallbacks = slices.Clone(s.Fallbacks)
	return s
}

// Zero returns an empty snapshot for initialization.
func Zero() Snapshot { return Snapshot{History: []HistoryEntry{}} }
