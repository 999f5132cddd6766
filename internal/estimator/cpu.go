package estimator

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Dicklesworthstone/devdiag/internal/model"
)

const (
	DefaultCPUIterations = 500_000
	DefaultCPUBaseline   = 30 * time.Millisecond
	DefaultCPUScale      = 100.0
	DefaultCores         = 6

	minUsage = 5
	maxUsage = 95
)

// CPUFallback is reported when the timed workload fails.
var CPUFallback = model.CPU{
	UsagePercent:       25,
	PseudoTemperatureC: 40,
	Cores:              DefaultCores,
	Status:             model.CPUOptimal,
}

// CPUCalibration holds the tuning constants for the timing heuristic. The
// defaults put an idle desktop-class host around 20-30%.
type CPUCalibration struct {
	Iterations int           `yaml:"iterations"`
	Baseline   time.Duration `yaml:"baseline"`
	Scale      float64       `yaml:"scale"`
}

// DefaultCPUCalibration returns the built-in calibration.
func DefaultCPUCalibration() CPUCalibration {
	return CPUCalibration{
		Iterations: DefaultCPUIterations,
		Baseline:   DefaultCPUBaseline,
		Scale:      DefaultCPUScale,
	}
}

// Workload runs n iterations of synthetic arithmetic. The result is returned
// so the loop cannot be optimized away.
type Workload func(n int) float64

// TranscendentalWorkload is the default benchmark loop.
func TranscendentalWorkload(n int) float64 {
	var acc float64
	for i := 0; i < n; i++ {
		acc += math.Sqrt(float64(i)) * math.Sin(float64(i)/1000)
	}
	return acc
}

// CPU estimates load from how long a fixed workload takes.
type CPU struct {
	Calibration CPUCalibration
	Workload    Workload
	Now         func() time.Time

	sink float64
}

// NewCPU returns a CPU estimator using the wall clock.
func NewCPU(cal CPUCalibration) *CPU {
	return &CPU{
		Calibration: cal,
		Workload:    TranscendentalWorkload,
		Now:         time.Now,
	}
}

// Estimate runs the timed workload once. Cancellation is only observed before
// the loop starts; once running it completes.
func (c *CPU) Estimate(ctx context.Context, caps model.Capabilities) (model.CPU, error) {
	if err := ctx.Err(); err != nil {
		return CPUFallback, err
	}

	elapsed, err := c.time()
	if err != nil {
		return CPUFallback, err
	}

	usage := UsageFromDuration(elapsed, c.Calibration)
	cores := caps.LogicalCores
	if cores < 1 {
		cores = DefaultCores
	}
	return model.CPU{
		UsagePercent:       usage,
		PseudoTemperatureC: PseudoTemperature(usage),
		Cores:              cores,
		Status:             ClassifyCPU(usage),
	}, nil
}

func (c *CPU) time() (elapsed time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrWorkloadPanic, r)
		}
	}()

	work := c.Workload
	if work == nil {
		work = TranscendentalWorkload
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}

	start := now()
	c.sink = work(c.Calibration.Iterations)
	elapsed = now().Sub(start)
	if elapsed < 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, elapsed)
	}
	return elapsed, nil
}

// UsageFromDuration maps a workload duration onto a 5-95 percentage.
func UsageFromDuration(elapsed time.Duration, cal CPUCalibration) int {
	baseline := cal.Baseline
	if baseline <= 0 {
		baseline = DefaultCPUBaseline
	}
	scale := cal.Scale
	if scale <= 0 {
		scale = DefaultCPUScale
	}
	ms := float64(elapsed) / float64(time.Millisecond)
	baseMs := float64(baseline) / float64(time.Millisecond)
	usage := clamp(ms/baseMs*scale, minUsage, maxUsage)
	return int(math.Round(usage))
}

// PseudoTemperature maps usage onto 35-60 C. It is not a sensor reading.
func PseudoTemperature(usage int) float64 {
	return 35 + float64(usage)/100*25
}

// ClassifyCPU returns the load band for a usage percentage.
func ClassifyCPU(usage int) model.CPUStatus {
	switch {
	case usage < 40:
		return model.CPUOptimal
	case usage < 70:
		return model.CPUModerate
	default:
		return model.CPUHigh
	}
}
