// Package runtime wires the status cell, the monitor, the prober and the
// recorders into one startable unit.
package runtime

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/hostwatchhq/agent/internal/events"
	"github.com/hostwatchhq/agent/internal/health"
	"github.com/hostwatchhq/agent/internal/metrics"
	"github.com/hostwatchhq/agent/internal/monitor"
	"github.com/hostwatchhq/agent/internal/netprobe"
	"github.com/hostwatchhq/agent/internal/status"
	"github.com/hostwatchhq/agent/pkg/types"
)

type Option func(*config)

type config struct {
	eventBuffer  int
	metricsStore *metrics.Store
	healthCheck  *health.Checker
	logger       *log.Logger
	monitorOpts  []monitor.Option
	proberOpts   []netprobe.ProberOption
}

func WithEventBuffer(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.eventBuffer = size
		}
	}
}

func WithMetricsStore(store *metrics.Store) Option {
	return func(c *config) {
		c.metricsStore = store
	}
}

func WithHealthChecker(checker *health.Checker) Option {
	return func(c *config) {
		c.healthCheck = checker
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(c *config) {
		c.monitorOpts = append(c.monitorOpts, opts...)
	}
}

func WithProberOptions(opts ...netprobe.ProberOption) Option {
	return func(c *config) {
		c.proberOpts = append(c.proberOpts, opts...)
	}
}

func WithInterval(d time.Duration) Option {
	return WithMonitorOptions(monitor.WithInterval(d))
}

func WithFailureThreshold(n int) Option {
	return WithMonitorOptions(monitor.WithFailureThreshold(n))
}

// Runtime owns the core components for one monitored target.
type Runtime struct {
	cell    *status.Cell
	monitor *monitor.Monitor
	prober  *netprobe.Prober
	events  *events.Ring
}

func New(target types.Target, opts ...Option) (*Runtime, error) {
	cfg := config{eventBuffer: 128}
	for _, opt := range opts {
		opt(&cfg)
	}

	cell := status.NewCell()
	ring := events.NewRing(cfg.eventBuffer)

	recorders := []events.Recorder{ring}
	if cfg.logger != nil {
		recorders = append(recorders, events.NewLogRecorder(cfg.logger))
	}

	monitorOpts := []monitor.Option{
		monitor.WithEvents(events.NewMulti(recorders...)),
	}
	if cfg.logger != nil {
		monitorOpts = append(monitorOpts, monitor.WithLogger(cfg.logger))
	}
	if cfg.metricsStore != nil {
		monitorOpts = append(monitorOpts, monitor.WithMetrics(cfg.metricsStore.MonitorRecorder()))
	}
	if cfg.healthCheck != nil {
		monitorOpts = append(monitorOpts, monitor.WithPollReport(cfg.healthCheck.ObservePoll))
	}
	monitorOpts = append(monitorOpts, cfg.monitorOpts...)

	mon, err := monitor.New(target, cell, monitorOpts...)
	if err != nil {
		return nil, err
	}

	proberOpts := []netprobe.ProberOption{}
	if cfg.metricsStore != nil {
		proberOpts = append(proberOpts, netprobe.WithProbeMetrics(cfg.metricsStore.ProbeRecorder()))
	}
	proberOpts = append(proberOpts, cfg.proberOpts...)

	return &Runtime{
		cell:    cell,
		monitor: mon,
		prober:  netprobe.NewProber(target.Host, proberOpts...),
		events:  ring,
	}, nil
}

// Start launches the monitor loop and returns a wait func that blocks until
// the loop has fully stopped after ctx cancellation.
func (r *Runtime) Start(ctx context.Context) func() {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := r.monitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return
		}
	}()
	return wg.Wait
}

// ReadStatus returns the current debounced verdict.
func (r *Runtime) ReadStatus() bool {
	return r.cell.Up()
}

func (r *Runtime) Cell() *status.Cell {
	return r.cell
}

func (r *Runtime) Monitor() *monitor.Monitor {
	return r.monitor
}

func (r *Runtime) Prober() *netprobe.Prober {
	return r.prober
}

func (r *Runtime) Events() *events.Ring {
	return r.events
}
