package health

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hostwatchhq/agent/internal/metrics"
)

const defaultMonitorStale = time.Minute

const (
	categoryMonitorPending   = "MONITOR_PENDING"
	categoryMonitorStale     = "MONITOR_STALE"
	categorySocketExhaustion = "SOCKET_EXHAUSTION"
)

const (
	severityInfo     = "info"
	severityWarning  = "warning"
	severityCritical = "critical"
)

// Checker evaluates readiness conditions for the agent. An unreachable
// monitored host is NOT a readiness failure: the agent is doing its job by
// reporting the outage. Readiness degrades only when the agent itself cannot
// observe (no polls yet, polls stale, or the process is out of sockets).
type Checker struct {
	metrics    *metrics.Store
	staleAfter time.Duration

	mu             sync.RWMutex
	lastPoll       time.Time
	lastExhaustion time.Time
}

// NewChecker constructs a readiness checker bound to the provided metrics store.
func NewChecker(store *metrics.Store, staleAfter time.Duration) *Checker {
	if staleAfter <= 0 {
		staleAfter = defaultMonitorStale
	}
	return &Checker{
		metrics:    store,
		staleAfter: staleAfter,
	}
}

// ObservePoll records the outcome of one monitor poll cycle.
func (c *Checker) ObservePoll(ts time.Time, exhausted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastPoll = ts
	if exhausted {
		c.lastExhaustion = ts
	} else {
		c.lastExhaustion = time.Time{}
	}
}

// Ready evaluates all readiness conditions and returns the overall status and
// reasons for failure.
func (c *Checker) Ready(now time.Time) (bool, []string) {
	reasons := make([]string, 0, 2)
	categories := make([]metrics.ReadinessCategory, 0, 2)
	appendCategory := func(name, severity string) {
		categories = append(categories, metrics.ReadinessCategory{
			Name:     name,
			Severity: severity,
		})
	}

	c.mu.RLock()
	lastPoll := c.lastPoll
	lastExhaustion := c.lastExhaustion
	staleAfter := c.staleAfter
	c.mu.RUnlock()

	if lastPoll.IsZero() {
		reasons = append(reasons, "monitor has not polled yet")
		appendCategory(categoryMonitorPending, severityInfo)
	} else if now.Sub(lastPoll) > staleAfter {
		reasons = append(reasons, fmt.Sprintf("monitor polls stale (%s)", now.Sub(lastPoll).Round(time.Second)))
		appendCategory(categoryMonitorStale, severityWarning)
	}

	if !lastExhaustion.IsZero() && now.Sub(lastExhaustion) <= staleAfter {
		reasons = append(reasons, "cannot create sockets (descriptor exhaustion)")
		appendCategory(categorySocketExhaustion, severityCritical)
	}

	ready := len(reasons) == 0
	if c.metrics != nil {
		if ready {
			c.metrics.ObserveReadiness(true, "", nil)
		} else {
			c.metrics.ObserveReadiness(false, strings.Join(reasons, "; "), categories)
		}
	}
	if !ready {
		return false, reasons
	}
	return true, nil
}
