package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
)

// Store maintains in-memory gauges and counters for agent telemetry.
type Store struct {
	probesTotal         atomic.Uint64
	probeFailuresTotal  atomic.Uint64
	consecutiveFailures atomic.Int64
	hostUp              atomic.Int64
	upTransitions       atomic.Uint64
	downTransitions     atomic.Uint64

	onDemandTotal     atomic.Uint64
	onDemandOpenTotal atomic.Uint64
	invalidInputTotal atomic.Uint64

	readinessState      atomic.Int64
	readinessReason     atomic.Value
	readinessCategories atomic.Value
	readyTransitions    atomic.Uint64
	notReadyTransitions atomic.Uint64
}

// ReadinessCategory captures a categorized readiness reason with severity.
type ReadinessCategory struct {
	Name     string
	Severity string
}

// NewStore constructs a Store. The host-up gauge starts optimistic: the
// monitor only declares an outage after its failure threshold is crossed.
func NewStore() *Store {
	store := &Store{}
	store.hostUp.Store(1)
	store.readinessReason.Store("")
	store.readinessCategories.Store([]ReadinessCategory(nil))
	return store
}

// Snapshot captures the current metric values in a plain struct.
type Snapshot struct {
	ProbesTotal         uint64
	ProbeFailuresTotal  uint64
	ConsecutiveFailures int64
	HostUp              bool
	UpTransitions       uint64
	DownTransitions     uint64
	OnDemandTotal       uint64
	OnDemandOpenTotal   uint64
	InvalidInputTotal   uint64
	Ready               bool
	ReadyReason         string
	ReadyCategories     []ReadinessCategory
	ReadyTransitions    uint64
	NotReadyTransitions uint64
}

// Snapshot returns a point-in-time copy of the metrics.
func (s *Store) Snapshot() Snapshot {
	readyReason, _ := s.readinessReason.Load().(string)
	rawCategories, _ := s.readinessCategories.Load().([]ReadinessCategory)
	categories := make([]ReadinessCategory, len(rawCategories))
	copy(categories, rawCategories)
	return Snapshot{
		ProbesTotal:         s.probesTotal.Load(),
		ProbeFailuresTotal:  s.probeFailuresTotal.Load(),
		ConsecutiveFailures: s.consecutiveFailures.Load(),
		HostUp:              s.hostUp.Load() == 1,
		UpTransitions:       s.upTransitions.Load(),
		DownTransitions:     s.downTransitions.Load(),
		OnDemandTotal:       s.onDemandTotal.Load(),
		OnDemandOpenTotal:   s.onDemandOpenTotal.Load(),
		InvalidInputTotal:   s.invalidInputTotal.Load(),
		Ready:               s.readinessState.Load() == 1,
		ReadyReason:         readyReason,
		ReadyCategories:     categories,
		ReadyTransitions:    s.readyTransitions.Load(),
		NotReadyTransitions: s.notReadyTransitions.Load(),
	}
}

// MonitorRecorder returns an implementation backed by the store.
func (s *Store) MonitorRecorder() MonitorRecorder {
	return monitorRecorder{store: s}
}

// ProbeRecorder returns an implementation backed by the store.
func (s *Store) ProbeRecorder() ProbeRecorder {
	return probeRecorder{store: s}
}

type monitorRecorder struct {
	store *Store
}

func (r monitorRecorder) ObservePoll(open bool, consecutiveFailures int) {
	r.store.probesTotal.Add(1)
	if !open {
		r.store.probeFailuresTotal.Add(1)
	}
	r.store.consecutiveFailures.Store(int64(consecutiveFailures))
}

func (r monitorRecorder) ObserveStatus(up bool) {
	value := int64(0)
	if up {
		value = 1
	}
	prev := r.store.hostUp.Swap(value)
	if prev == value {
		return
	}
	if up {
		r.store.upTransitions.Add(1)
	} else {
		r.store.downTransitions.Add(1)
	}
}

type probeRecorder struct {
	store *Store
}

func (r probeRecorder) ObserveOnDemandProbe(open bool) {
	r.store.onDemandTotal.Add(1)
	if open {
		r.store.onDemandOpenTotal.Add(1)
	}
}

func (r probeRecorder) IncInvalidInput() {
	r.store.invalidInputTotal.Add(1)
}

// ObserveReadiness records the latest readiness verdict and its reasons.
func (s *Store) ObserveReadiness(ready bool, reason string, categories []ReadinessCategory) {
	prev := s.readinessState.Load()
	if ready {
		if prev == 0 {
			s.readyTransitions.Add(1)
		}
		s.readinessState.Store(1)
		s.readinessReason.Store("")
		s.readinessCategories.Store([]ReadinessCategory(nil))
		return
	}
	if prev == 1 {
		s.notReadyTransitions.Add(1)
	}
	s.readinessState.Store(0)
	s.readinessReason.Store(reason)
	s.readinessCategories.Store(dedupeCategories(categories))
}

func dedupeCategories(categories []ReadinessCategory) []ReadinessCategory {
	if len(categories) == 0 {
		return nil
	}
	seen := make(map[ReadinessCategory]struct{}, len(categories))
	result := make([]ReadinessCategory, 0, len(categories))
	for _, c := range categories {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		c.Severity = strings.TrimSpace(strings.ToLower(c.Severity))
		if c.Severity == "" {
			c.Severity = "unknown"
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}
	return result
}

// WritePrometheus renders the current metrics using the Prometheus text format.
func (s *Store) WritePrometheus(w io.Writer) error {
	snap := s.Snapshot()
	boolValue := func(b bool) int {
		if b {
			return 1
		}
		return 0
	}
	reason := snap.ReadyReason
	if !snap.Ready && reason == "" {
		reason = "unknown"
	}
	if snap.Ready && reason == "" {
		reason = "ready"
	}
	lines := []string{
		"# HELP hostwatch_agent_probes_total Total monitor probe attempts.",
		"# TYPE hostwatch_agent_probes_total counter",
		fmt.Sprintf("hostwatch_agent_probes_total %d", snap.ProbesTotal),
		"# HELP hostwatch_agent_probe_failures_total Total failed monitor probes.",
		"# TYPE hostwatch_agent_probe_failures_total counter",
		fmt.Sprintf("hostwatch_agent_probe_failures_total %d", snap.ProbeFailuresTotal),
		"# HELP hostwatch_agent_consecutive_failures Current run of consecutive failed probes.",
		"# TYPE hostwatch_agent_consecutive_failures gauge",
		fmt.Sprintf("hostwatch_agent_consecutive_failures %d", snap.ConsecutiveFailures),
		"# HELP hostwatch_agent_host_up Debounced reachability verdict for the monitored host (1=up).",
		"# TYPE hostwatch_agent_host_up gauge",
		fmt.Sprintf("hostwatch_agent_host_up %d", boolValue(snap.HostUp)),
		"# HELP hostwatch_agent_status_transitions_total Count of debounced status flips by resulting state.",
		"# TYPE hostwatch_agent_status_transitions_total counter",
		fmt.Sprintf("hostwatch_agent_status_transitions_total{state=%q} %d", "up", snap.UpTransitions),
		fmt.Sprintf("hostwatch_agent_status_transitions_total{state=%q} %d", "down", snap.DownTransitions),
		"# HELP hostwatch_agent_ondemand_probes_total Total on-demand port probes.",
		"# TYPE hostwatch_agent_ondemand_probes_total counter",
		fmt.Sprintf("hostwatch_agent_ondemand_probes_total %d", snap.OnDemandTotal),
		"# HELP hostwatch_agent_ondemand_open_total On-demand probes that found the port open.",
		"# TYPE hostwatch_agent_ondemand_open_total counter",
		fmt.Sprintf("hostwatch_agent_ondemand_open_total %d", snap.OnDemandOpenTotal),
		"# HELP hostwatch_agent_invalid_input_total On-demand probe requests rejected before any network call.",
		"# TYPE hostwatch_agent_invalid_input_total counter",
		fmt.Sprintf("hostwatch_agent_invalid_input_total %d", snap.InvalidInputTotal),
		"# HELP hostwatch_agent_ready Whether the agent considers itself ready (1=ready).",
		"# TYPE hostwatch_agent_ready gauge",
		fmt.Sprintf("hostwatch_agent_ready %d", boolValue(snap.Ready)),
		"# HELP hostwatch_agent_ready_info Reason associated with the most recent readiness evaluation.",
		"# TYPE hostwatch_agent_ready_info gauge",
		fmt.Sprintf("hostwatch_agent_ready_info{reason=%q} 1", reason),
		"# HELP hostwatch_agent_ready_transitions_total Count of readiness state transitions by resulting state.",
		"# TYPE hostwatch_agent_ready_transitions_total counter",
		fmt.Sprintf("hostwatch_agent_ready_transitions_total{state=%q} %d", "ready", snap.ReadyTransitions),
		fmt.Sprintf("hostwatch_agent_ready_transitions_total{state=%q} %d", "not_ready", snap.NotReadyTransitions),
		"# HELP hostwatch_agent_ready_categories_info Categories associated with the most recent readiness evaluation.",
		"# TYPE hostwatch_agent_ready_categories_info gauge",
	}
	if len(snap.ReadyCategories) == 0 {
		lines = append(lines, fmt.Sprintf("hostwatch_agent_ready_categories_info{category=%q,severity=%q} 1", "none", "none"))
	} else {
		cats := append([]ReadinessCategory(nil), snap.ReadyCategories...)
		sort.Slice(cats, func(i, j int) bool {
			if cats[i].Name == cats[j].Name {
				return cats[i].Severity < cats[j].Severity
			}
			return cats[i].Name < cats[j].Name
		})
		for _, cat := range cats {
			lines = append(lines, fmt.Sprintf("hostwatch_agent_ready_categories_info{category=%q,severity=%q} 1", cat.Name, cat.Severity))
		}
	}
	lines = append(lines, "")
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// NewHTTPHandler returns an http.Handler that serves Prometheus formatted metrics.
func NewHTTPHandler(store *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		if r.Method == http.MethodHead {
			return
		}
		if err := store.WritePrometheus(w); err != nil {
			http.Error(w, "metrics unavailable", http.StatusInternalServerError)
		}
	})
}
