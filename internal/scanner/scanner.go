// Package scanner coordinates probing and estimation into published
// snapshots, on a timer and on demand, with at most one scan in flight.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/devdiag/internal/estimator"
	"github.com/Dicklesworthstone/devdiag/internal/history"
	"github.com/Dicklesworthstone/devdiag/internal/metrics"
	"github.com/Dicklesworthstone/devdiag/internal/model"
	"github.com/Dicklesworthstone/devdiag/internal/probe"
)

// DefaultInterval is the automatic scan period.
const DefaultInterval = 3 * time.Second

var ErrAlreadyStarted = errors.New("scanner already started")

type CPUEstimator interface {
	Estimate(ctx context.Context, caps model.Capabilities) (model.CPU, error)
}

type MemoryEstimator interface {
	Estimate(ctx context.Context, caps model.Capabilities) (model.Memory, error)
}

type HealthEstimator interface {
	Estimate(ctx context.Context, caps model.Capabilities) (model.Health, error)
}

// CPUFunc adapts a function to CPUEstimator.
type CPUFunc func(ctx context.Context, caps model.Capabilities) (model.CPU, error)

func (f CPUFunc) Estimate(ctx context.Context, caps model.Capabilities) (model.CPU, error) {
	return f(ctx, caps)
}

// MemoryFunc adapts a function to MemoryEstimator.
type MemoryFunc func(ctx context.Context, caps model.Capabilities) (model.Memory, error)

func (f MemoryFunc) Estimate(ctx context.Context, caps model.Capabilities) (model.Memory, error) {
	return f(ctx, caps)
}

// HealthFunc adapts a function to HealthEstimator.
type HealthFunc func(ctx context.Context, caps model.Capabilities) (model.Health, error)

func (f HealthFunc) Estimate(ctx context.Context, caps model.Capabilities) (model.Health, error) {
	return f(ctx, caps)
}

// Estimators groups the three estimators run by each scan. Nil members are
// replaced with the package defaults.
type Estimators struct {
	CPU    CPUEstimator
	Memory MemoryEstimator
	Health HealthEstimator
}

// DefaultEstimators returns estimators with built-in calibration.
func DefaultEstimators() Estimators {
	return Estimators{
		CPU:    estimator.NewCPU(estimator.DefaultCPUCalibration()),
		Memory: estimator.NewMemory(estimator.DefaultMemoryCalibration(), nil),
		Health: estimator.NewHealth(nil),
	}
}

type Option func(*Scanner)

func WithInterval(d time.Duration) Option {
	return func(s *Scanner) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(l logr.Logger) Option { return func(s *Scanner) { s.log = l } }

func WithMetrics(r *metrics.Recorder) Option { return func(s *Scanner) { s.metrics = r } }

func WithClock(now func() time.Time) Option { return func(s *Scanner) { s.now = now } }

func WithHistoryCapacity(n int) Option { return func(s *Scanner) { s.history = history.New(n) } }

// WithIDGenerator overrides how scan IDs are minted.
func WithIDGenerator(f func() string) Option { return func(s *Scanner) { s.newID = f } }

// Scanner owns the scan timer, the current samples and the history buffer.
// It is either idle or scanning; the scanning flag is the only gate, so
// timer and manual triggers share the same at-most-one guarantee.
type Scanner struct {
	interval time.Duration
	probe    probe.Prober
	est      Estimators
	history  *history.Buffer
	log      logr.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
	newID    func() string

	scanning atomic.Bool
	state    atomic.Pointer[model.Snapshot]
	updates  chan model.Snapshot

	mu     sync.Mutex // guards cancel and done
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an idle scanner. Call Start for periodic scans or TriggerScan
// for a single one. A nil prober reads the local host.
func New(p probe.Prober, est Estimators, opts ...Option) *Scanner {
	if p == nil {
		p = probe.NewHost("")
	}
	def := DefaultEstimators()
	if est.CPU == nil {
		est.CPU = def.CPU
	}
	if est.Memory == nil {
		est.Memory = def.Memory
	}
	if est.Health == nil {
		est.Health = def.Health
	}
	s := &Scanner{
		interval: DefaultInterval,
		probe:    p,
		est:      est,
		history:  history.New(history.DefaultCapacity),
		log:      logr.Discard(),
		now:      time.Now,
		newID:    uuid.NewString,
		updates:  make(chan model.Snapshot, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the automatic scan period.
func (s *Scanner) Interval() time.Duration { return s.interval }

// Start runs a scan immediately and then one per interval until Stop is
// called or ctx is done. A Scanner can only be started once.
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	return nil
}

func (s *Scanner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("scanner started", "interval", s.interval)
	s.TriggerScan(ctx)
	for {
		select {
		case <-ticker.C:
			s.TriggerScan(ctx)
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return
		}
	}
}

// Stop cancels the scan loop and waits for it to exit. It is safe to call
// more than once, and before Start.
func (s *Scanner) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// IsScanning reports whether a scan is in flight.
func (s *Scanner) IsScanning() bool { return s.scanning.Load() }

// Updates delivers each completed snapshot. Only the latest unread snapshot
// is kept, so a slow reader never holds up a scan.
func (s *Scanner) Updates() <-chan model.Snapshot { return s.updates }

// Snapshot returns the last published state. It never blocks on a running
// scan.
func (s *Scanner) Snapshot() model.Snapshot {
	var out model.Snapshot
	if p := s.state.Load(); p != nil {
		out = p.Clone()
	} else {
		out = model.Zero()
	}
	out.Scanning = s.scanning.Load()
	return out
}

// TriggerScan runs one scan in the calling goroutine. If a scan is already
// in flight it returns false without doing anything.
func (s *Scanner) TriggerScan(ctx context.Context) bool {
	if !s.scanning.CompareAndSwap(false, true) {
		s.log.V(1).Info("scan already in flight, ignoring trigger")
		s.metrics.SkippedScan()
		return false
	}
	defer s.scanning.Store(false)
	s.scan(ctx)
	return true
}

func (s *Scanner) scan(ctx context.Context) {
	start := s.now()
	caps := s.probe.Probe(ctx)

	var (
		cpu    model.CPU
		mem    model.Memory
		health model.Health
		failed [3]bool
		g      errgroup.Group
	)
	g.Go(func() error {
		cpu, failed[0] = run(ctx, s, "cpu", caps, s.est.CPU.Estimate, estimator.CPUFallback)
		return nil
	})
	g.Go(func() error {
		mem, failed[1] = run(ctx, s, "memory", caps, s.est.Memory.Estimate, estimator.MemoryFallback)
		return nil
	})
	g.Go(func() error {
		health, failed[2] = run(ctx, s, "health", caps, s.est.Health.Estimate, estimator.HealthFallback)
		return nil
	})
	_ = g.Wait()

	// Teardown mid-scan: don't publish samples degraded by cancellation.
	if ctx.Err() != nil {
		s.log.V(1).Info("scan abandoned", "reason", ctx.Err())
		return
	}

	var fallbacks []string
	for i, name := range []string{"cpu", "memory", "health"} {
		if failed[i] {
			fallbacks = append(fallbacks, name)
		}
	}

	end := s.now()
	s.history.Append(model.NewHistoryEntry(end, cpu.UsagePercent, mem.UsedPercent()))
	snap := &model.Snapshot{
		ScanID:       s.newID(),
		CompletedAt:  end,
		Duration:     end.Sub(start),
		Capabilities: caps.Clone(),
		CPU:          cpu,
		Memory:       mem,
		Health:       health,
		History:      s.history.Snapshot(),
		Fallbacks:    fallbacks,
	}
	s.state.Store(snap)
	s.publish(snap.Clone())
	s.metrics.ObserveScan(*snap, snap.Duration)

	s.log.V(1).Info("scan complete",
		"scanID", snap.ScanID,
		"cpu", cpu.UsagePercent,
		"ram", mem.UsedPercent(),
		"battery", health.BatteryLevelPercent,
		"fallbacks", fallbacks)
}

// run calls one estimator, substituting fallback on error or panic. The
// second result is true when the fallback was used.
func run[T any](
	ctx context.Context,
	s *Scanner,
	name string,
	caps model.Capabilities,
	estimate func(context.Context, model.Capabilities) (T, error),
	fallback T,
) (out T, degraded bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error(fmt.Errorf("panic: %v", r), "estimator failed, using fallback", "estimator", name)
			s.metrics.Fallback(name)
			out, degraded = fallback, true
		}
	}()

	v, err := estimate(ctx, caps)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error(err, "estimator failed, using fallback", "estimator", name)
			s.metrics.Fallback(name)
		}
		return fallback, true
	}
	return v, false
}

func (s *Scanner) publish(snap model.Snapshot) {
	for {
		select {
		case s.updates <- snap:
			return
		default:
		}
		// Drop the stale unread snapshot.
		select {
		case <-s.updates:
		default:
		}
	}
}
