package commands

import (
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Dicklesworthstone/devdiag/internal/config"
	"github.com/Dicklesworthstone/devdiag/internal/estimator"
	"github.com/Dicklesworthstone/devdiag/internal/logging"
	"github.com/Dicklesworthstone/devdiag/internal/metrics"
	"github.com/Dicklesworthstone/devdiag/internal/probe"
	"github.com/Dicklesworthstone/devdiag/internal/scanner"
)

// app wires the scanner stack from a resolved config.
type app struct {
	log      logr.Logger
	flush    func()
	registry *prometheus.Registry
	scanner  *scanner.Scanner
}

func newApp(cfg config.Config, withLogs bool) (*app, error) {
	log, flush := logr.Discard(), func() {}
	if withLogs {
		l, f, err := logging.New(logging.Options{
			Format:     cfg.LogFormat,
			Verbosity:  cfg.Verbosity,
			OutputPath: cfg.LogFile,
		})
		if err != nil {
			return nil, err
		}
		log, flush = l, f
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var disk estimator.DiskReader = estimator.StubDisk{}
	if cfg.DiskPath != "" {
		disk = estimator.HostDisk{Path: cfg.DiskPath}
	}

	host := probe.NewHost(cfg.ModelOverride)
	host.SysfsRoot = cfg.SysfsRoot

	sc := scanner.New(host,
		scanner.Estimators{
			CPU:    estimator.NewCPU(cfg.CPU),
			Memory: estimator.NewMemory(cfg.Memory, cfg.DeviceModels),
			Health: estimator.NewHealth(disk),
		},
		scanner.WithInterval(cfg.Interval),
		scanner.WithHistoryCapacity(cfg.HistorySize),
		scanner.WithLogger(log.WithName("scanner")),
		scanner.WithMetrics(metrics.New(reg)),
	)

	return &app{log: log, flush: flush, registry: reg, scanner: sc}, nil
}

func (a *app) close() { a.flush() }
