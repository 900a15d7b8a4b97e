package types

import "time"

// ProbeResult captures the outcome of a single connection attempt. Results
// are ephemeral; nothing stores them beyond the current report.
type ProbeResult struct {
	Target          Target    `json:"target" yaml:"target"`
	Timestamp       time.Time `json:"ts" yaml:"ts"`
	Open            bool      `json:"open" yaml:"open"`
	RTTMilliseconds float64   `json:"rtt_ms" yaml:"rtt_ms"`
}

// StatusSnapshot is the externally visible projection of the monitor state.
type StatusSnapshot struct {
	Target              Target    `json:"target"`
	Up                  bool      `json:"up"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	FailureThreshold    int       `json:"failure_threshold"`
	LastProbe           time.Time `json:"last_probe,omitempty"`
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastTransition      time.Time `json:"last_transition,omitempty"`
}
