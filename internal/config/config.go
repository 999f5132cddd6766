package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Dicklesworthstone/devdiag/internal/estimator"
	"github.com/Dicklesworthstone/devdiag/internal/scanner"
)

// Config carries runtime options for devdiag.
type Config struct {
	Interval      time.Duration `yaml:"interval"`
	HistorySize   int           `yaml:"historySize"`
	ModelOverride string        `yaml:"model"`
	DiskPath      string        `yaml:"diskPath"`
	ListenAddr    string        `yaml:"listen"`
	LogFormat     string        `yaml:"logFormat"`
	LogFile       string        `yaml:"logFile"`
	Verbosity     int           `yaml:"verbosity"`
	SysfsRoot     string        `yaml:"sysfsRoot"`

	CPU          estimator.CPUCalibration    `yaml:"cpu"`
	Memory       estimator.MemoryCalibration `yaml:"memory"`
	DeviceModels []estimator.ModelMemory     `yaml:"deviceModels"`
}

func Default() Config {
	return Config{
		Interval:    scanner.DefaultInterval,
		HistorySize: 20,
		ListenAddr:  ":9273",
		LogFormat:   "console",
		SysfsRoot:   "/sys",
		CPU:         estimator.DefaultCPUCalibration(),
		Memory:      estimator.DefaultMemoryCalibration(),
	}
}

// Load reads a YAML file over the defaults. Fields absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve layers defaults, the YAML file at path, DEVDIAG_* environment
// variables and finally the flags explicitly set on fs, then validates the
// result.
func Resolve(path string, fs *pflag.FlagSet) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)

	if fs != nil {
		overlay := pflag.NewFlagSet("overlay", pflag.ContinueOnError)
		BindFlags(overlay, &cfg)
		var errs []error
		fs.Visit(func(f *pflag.Flag) {
			if overlay.Lookup(f.Name) == nil {
				return
			}
			if err := overlay.Set(f.Name, f.Value.String()); err != nil {
				errs = append(errs, fmt.Errorf("flag --%s: %w", f.Name, err))
			}
		})
		if err := errors.Join(errs...); err != nil {
			return cfg, err
		}
	}
	return cfg, cfg.Validate()
}

// BindFlags registers flags that override cfg. Call before the flag set is
// parsed.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "scan interval")
	fs.StringVar(&cfg.ModelOverride, "model", cfg.ModelOverride, "device model hint, overrides the detected product name")
	fs.StringVar(&cfg.DiskPath, "disk-path", cfg.DiskPath, "report real usage of this mount instead of stub disk figures")
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "HTTP listen address for serve")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: console|json")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "write logs to this file")
	fs.IntVarP(&cfg.Verbosity, "verbosity", "V", cfg.Verbosity, "log verbosity")
	fs.IntVar(&cfg.CPU.Iterations, "cpu-iterations", cfg.CPU.Iterations, "iterations of the CPU timing workload")
	fs.DurationVar(&cfg.CPU.Baseline, "cpu-baseline", cfg.CPU.Baseline, "workload duration that maps to cpu-scale percent")
	fs.Float64Var(&cfg.CPU.Scale, "cpu-scale", cfg.CPU.Scale, "usage percent reported when the workload takes cpu-baseline")
	fs.Float64Var(&cfg.Memory.HeapAmplification, "heap-amplification", cfg.Memory.HeapAmplification, "heap to device memory scale factor")
	fs.Float64Var(&cfg.Memory.FallbackMin, "memory-fallback-min", cfg.Memory.FallbackMin, "lower bound of the random used fraction without heap stats")
	fs.Float64Var(&cfg.Memory.FallbackMax, "memory-fallback-max", cfg.Memory.FallbackMax, "upper bound of the random used fraction without heap stats")
	fs.Float64Var(&cfg.Memory.MaxUsedFraction, "memory-max-used", cfg.Memory.MaxUsedFraction, "cap on used memory as a fraction of total")
}

// ApplyEnv applies DEVDIAG_* environment overrides.
func ApplyEnv(cfg *Config) {
	applyEnv(cfg, os.Getenv)
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := getenv("DEVDIAG_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Interval = parsed
		} else if parsed, err2 := time.ParseDuration(v + "s"); err2 == nil {
			cfg.Interval = parsed
		}
	}
	if v := getenv("DEVDIAG_MODEL"); v != "" {
		cfg.ModelOverride = v
	}
	if v := getenv("DEVDIAG_DISK_PATH"); v != "" {
		cfg.DiskPath = v
	}
	if v := getenv("DEVDIAG_LISTEN"); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv("DEVDIAG_LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}

	// Calibration. Unparseable values are ignored.
	if v := getenv("DEVDIAG_CPU_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CPU.Iterations = n
		}
	}
	if v := getenv("DEVDIAG_CPU_BASELINE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CPU.Baseline = d
		}
	}
	envFloat(getenv, "DEVDIAG_CPU_SCALE", &cfg.CPU.Scale)
	envFloat(getenv, "DEVDIAG_HEAP_AMPLIFICATION", &cfg.Memory.HeapAmplification)
	envFloat(getenv, "DEVDIAG_MEMORY_FALLBACK_MIN", &cfg.Memory.FallbackMin)
	envFloat(getenv, "DEVDIAG_MEMORY_FALLBACK_MAX", &cfg.Memory.FallbackMax)
	envFloat(getenv, "DEVDIAG_MEMORY_MAX_USED", &cfg.Memory.MaxUsedFraction)
}

func envFloat(getenv func(string) string, key string, dst *float64) {
	v := getenv(key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
	}
}

// Validate reports settings the scanner cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("historySize must be positive, got %d", c.HistorySize))
	}
	if c.CPU.Iterations <= 0 {
		errs = append(errs, fmt.Errorf("cpu.iterations must be positive, got %d", c.CPU.Iterations))
	}
	if c.CPU.Baseline <= 0 {
		errs = append(errs, fmt.Errorf("cpu.baseline must be positive, got %s", c.CPU.Baseline))
	}
	if c.CPU.Scale <= 0 {
		errs = append(errs, fmt.Errorf("cpu.scale must be positive, got %v", c.CPU.Scale))
	}
	if c.Memory.HeapAmplification <= 0 {
		errs = append(errs, fmt.Errorf("memory.heapAmplification must be positive, got %v", c.Memory.HeapAmplification))
	}
	m := c.Memory
	if m.FallbackMin <= 0 || m.FallbackMax > 1 || m.FallbackMin >= m.FallbackMax {
		errs = append(errs, fmt.Errorf("memory fallback band must satisfy 0 < min < max <= 1, got [%v, %v]", m.FallbackMin, m.FallbackMax))
	}
	if m.MaxUsedFraction <= 0 || m.MaxUsedFraction > 0.9 {
		errs = append(errs, fmt.Errorf("memory.maxUsedFraction must be in (0, 0.9], got %v", m.MaxUsedFraction))
	}
	for i, dm := range c.DeviceModels {
		if dm.Match == "" || dm.TotalMB <= 0 {
			errs = append(errs, fmt.Errorf("deviceModels[%d]: match must be set and totalMB positive", i))
		}
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logFormat must be console or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
