package netprobe

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/hostwatchhq/agent/internal/metrics"
	"github.com/hostwatchhq/agent/pkg/types"
)

const DefaultProbeTimeout = 200 * time.Millisecond

// Prober answers on-demand "is this port open" questions. It is stateless per
// call, safe for concurrent use and independent of the background monitor;
// each invocation owns its own socket.
type Prober struct {
	connector   *Connector
	defaultHost string
	timeout     time.Duration
	limiter     *rate.Limiter
	metrics     metrics.ProbeRecorder
}

type ProberOption func(*Prober)

func WithConnector(c *Connector) ProberOption {
	return func(p *Prober) {
		if c != nil {
			p.connector = c
		}
	}
}

func WithTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithRateLimit caps how fast on-demand probes may be issued so an eager API
// caller cannot turn the prober into a port-scan amplifier.
func WithRateLimit(perSecond float64, burst int) ProberOption {
	return func(p *Prober) {
		if perSecond > 0 {
			if burst <= 0 {
				burst = int(perSecond)
			}
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

func WithProbeMetrics(rec metrics.ProbeRecorder) ProberOption {
	return func(p *Prober) {
		if rec != nil {
			p.metrics = rec
		}
	}
}

// NewProber constructs a prober whose probes default to defaultHost.
func NewProber(defaultHost string, opts ...ProberOption) *Prober {
	p := &Prober{
		connector:   NewConnector(),
		defaultHost: defaultHost,
		timeout:     DefaultProbeTimeout,
		metrics:     metrics.NoopProbeRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe tests a single port, optionally on a host other than the default.
// Invalid input is rejected before any network call and surfaced as an error;
// a reachable-but-closed port is a successful probe with Open=false.
func (p *Prober) Probe(ctx context.Context, host string, port uint16) (types.ProbeResult, error) {
	if host == "" {
		host = p.defaultHost
	} else {
		parsed, err := ParseHost(host)
		if err != nil {
			p.metrics.IncInvalidInput()
			return types.ProbeResult{}, err
		}
		host = parsed
	}
	if port == 0 {
		p.metrics.IncInvalidInput()
		return types.ProbeResult{}, fmt.Errorf("%w: got 0", ErrInvalidPort)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return types.ProbeResult{}, fmt.Errorf("wait for probe slot: %w", err)
		}
	}

	target := types.Target{Host: host, Port: port}
	res := p.connector.Connect(ctx, target, p.timeout)
	p.metrics.ObserveOnDemandProbe(res.Open)

	return types.ProbeResult{
		Target:          target,
		Timestamp:       time.Now().UTC(),
		Open:            res.Open,
		RTTMilliseconds: float64(res.RTT.Nanoseconds()) / 1e6,
	}, nil
}

// ProbeInput parses raw user input and then probes. rawHost may be empty to
// target the default host.
func (p *Prober) ProbeInput(ctx context.Context, rawPort, rawHost string) (types.ProbeResult, error) {
	port, err := ParsePort(rawPort)
	if err != nil {
		p.metrics.IncInvalidInput()
		return types.ProbeResult{}, err
	}
	return p.Probe(ctx, rawHost, port)
}
