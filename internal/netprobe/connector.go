// Package netprobe implements the TCP connect primitive the monitor and the
// on-demand prober are built on.
package netprobe

import (
	"context"
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/hostwatchhq/agent/pkg/types"
)

// DialFunc matches net.Dialer.DialContext and is injectable for tests.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Result is the outcome of a single bounded connection attempt. Every error
// category (address parse, socket creation, refusal, timeout) collapses into
// Open=false; this is a liveness probe, not a diagnostic tool. Exhausted is
// the one side channel: it flags that the process is out of descriptors so
// the health surface can report degraded operation.
type Result struct {
	Open      bool
	RTT       time.Duration
	Exhausted bool
}

// Connector performs one TCP connection attempt per call. The zero-cost
// non-blocking connect plus bounded readiness wait is provided by the
// runtime's netpoller underneath DialContext.
type Connector struct {
	dial DialFunc
}

type ConnectorOption func(*Connector)

// WithDialFunc replaces the underlying dialer.
func WithDialFunc(dial DialFunc) ConnectorOption {
	return func(c *Connector) {
		if dial != nil {
			c.dial = dial
		}
	}
}

func NewConnector(opts ...ConnectorOption) *Connector {
	d := &net.Dialer{}
	c := &Connector{dial: d.DialContext}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect attempts one TCP connection to target, bounded by timeout. The
// attempt never outlives the timeout and the socket is released on every
// path. A target that is not an IP literal is unreachable by definition;
// no DNS lookup is ever performed.
func (c *Connector) Connect(ctx context.Context, target types.Target, timeout time.Duration) Result {
	if err := target.Validate(); err != nil {
		return Result{}
	}
	if timeout <= 0 {
		timeout = time.Second
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := c.dial(dialCtx, "tcp", target.Addr())
	if err != nil {
		return Result{Exhausted: isExhaustion(err)}
	}
	rtt := time.Since(start)
	_ = conn.Close()
	return Result{Open: true, RTT: rtt}
}

// isExhaustion reports whether err means the process cannot create sockets
// at all, as opposed to the target being unreachable.
func isExhaustion(err error) bool {
	return errors.Is(err, syscall.EMFILE) || errors.Is(err, syscall.ENFILE)
}
