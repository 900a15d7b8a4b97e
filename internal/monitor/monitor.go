// Package monitor runs the background reachability loop: one fixed target,
// fixed-interval TCP probes, and a debounced up/down verdict published to a
// shared status cell.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/hostwatchhq/agent/internal/events"
	"github.com/hostwatchhq/agent/internal/metrics"
	"github.com/hostwatchhq/agent/internal/netprobe"
	"github.com/hostwatchhq/agent/internal/status"
	"github.com/hostwatchhq/agent/pkg/types"
)

const (
	DefaultInterval         = 5 * time.Second
	DefaultProbeTimeout     = time.Second
	DefaultFailureThreshold = 3
)

// ConnectFunc attempts one bounded connection to the target.
type ConnectFunc func(ctx context.Context, target types.Target, timeout time.Duration) netprobe.Result

// Monitor owns the polling loop and the only write path into the status
// cell. The target is immutable once constructed.
type Monitor struct {
	target       types.Target
	interval     time.Duration
	probeTimeout time.Duration
	threshold    int

	cell    *status.Cell
	connect ConnectFunc
	now     func() time.Time
	logger  *log.Logger
	metrics metrics.MonitorRecorder
	events  events.Recorder
	report  func(ts time.Time, exhausted bool)

	mu                  sync.Mutex
	consecutiveFailures int
	lastProbe           time.Time
	lastSuccess         time.Time
	exhaustionReported  bool
}

type Option func(*Monitor)

func WithInterval(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithProbeTimeout(d time.Duration) Option {
	return func(m *Monitor) {
		if d > 0 {
			m.probeTimeout = d
		}
	}
}

func WithFailureThreshold(n int) Option {
	return func(m *Monitor) {
		if n > 0 {
			m.threshold = n
		}
	}
}

func WithConnectFunc(fn ConnectFunc) Option {
	return func(m *Monitor) {
		if fn != nil {
			m.connect = fn
		}
	}
}

func WithNow(now func() time.Time) Option {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithMetrics(rec metrics.MonitorRecorder) Option {
	return func(m *Monitor) {
		if rec != nil {
			m.metrics = rec
		}
	}
}

func WithEvents(rec events.Recorder) Option {
	return func(m *Monitor) {
		if rec != nil {
			m.events = rec
		}
	}
}

// WithPollReport registers a callback invoked after every poll, typically the
// health checker's observe hook.
func WithPollReport(report func(ts time.Time, exhausted bool)) Option {
	return func(m *Monitor) {
		m.report = report
	}
}

// New constructs a monitor that publishes into cell. The probe timeout is
// capped at the poll interval so one probe can never overlap the next cycle.
func New(target types.Target, cell *status.Cell, opts ...Option) (*Monitor, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("monitor target: %w", err)
	}
	if cell == nil {
		return nil, fmt.Errorf("monitor requires a status cell")
	}

	m := &Monitor{
		target:       target,
		interval:     DefaultInterval,
		probeTimeout: DefaultProbeTimeout,
		threshold:    DefaultFailureThreshold,
		cell:         cell,
		connect:      netprobe.NewConnector().Connect,
		now:          time.Now,
		logger:       log.New(io.Discard, "", 0),
		metrics:      metrics.NoopMonitorRecorder{},
		events:       events.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.probeTimeout > m.interval {
		m.probeTimeout = m.interval
	}
	return m, nil
}

// Start runs the polling loop until ctx is cancelled. The first probe fires
// immediately so the published status reflects reality before the first
// interval elapses. Probe failures never terminate the loop.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Printf("monitor starting (target=%s interval=%s threshold=%d)", m.target, m.interval, m.threshold)

	m.poll(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Printf("monitor stopped")
			return ctx.Err()
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *Monitor) poll(ctx context.Context) {
	res := m.connect(ctx, m.target, m.probeTimeout)
	now := m.now().UTC()

	m.mu.Lock()
	if res.Open {
		m.consecutiveFailures = 0
		m.lastSuccess = now
		m.exhaustionReported = false
	} else {
		m.consecutiveFailures++
	}
	m.lastProbe = now
	failures := m.consecutiveFailures
	reportExhaustion := res.Exhausted && !m.exhaustionReported
	if reportExhaustion {
		m.exhaustionReported = true
	}
	m.mu.Unlock()

	up := failures < m.threshold
	flipped := m.cell.Set(up, now)

	m.metrics.ObservePoll(res.Open, failures)
	m.metrics.ObserveStatus(up)
	if m.report != nil {
		m.report(now, res.Exhausted)
	}

	if reportExhaustion {
		// Out of descriptors: degraded but alive. Reported once per episode.
		m.logger.Printf("monitor cannot create sockets (descriptor exhaustion); probes will keep failing until the process recovers")
		m.events.Record(types.Event{
			Type:      types.EventSocketExhaustion,
			Timestamp: now,
			Target:    m.target.String(),
		})
	}

	if flipped {
		eventType := types.EventHostUp
		if !up {
			eventType = types.EventHostDown
		}
		m.logger.Printf("target %s is now %s (consecutive failures: %d)", m.target, verdict(up), failures)
		m.events.Record(types.Event{
			Type:      eventType,
			Timestamp: now,
			Target:    m.target.String(),
			Details:   map[string]any{"consecutive_failures": failures},
		})
	}
}

// Snapshot reports the current monitor state for the API and the shell.
func (m *Monitor) Snapshot() types.StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.StatusSnapshot{
		Target:              m.target,
		Up:                  m.consecutiveFailures < m.threshold,
		ConsecutiveFailures: m.consecutiveFailures,
		FailureThreshold:    m.threshold,
		LastProbe:           m.lastProbe,
		LastSuccess:         m.lastSuccess,
		LastTransition:      m.cell.LastTransition(),
	}
}

// Target returns the fixed monitor target.
func (m *Monitor) Target() types.Target {
	return m.target
}

func verdict(up bool) string {
	if up {
		return "online"
	}
	return "offline"
}
