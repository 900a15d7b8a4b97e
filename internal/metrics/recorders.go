package metrics

// MonitorRecorder receives per-poll observations from the reachability monitor.
type MonitorRecorder interface {
	ObservePoll(open bool, consecutiveFailures int)
	ObserveStatus(up bool)
}

type NoopMonitorRecorder struct{}

func (NoopMonitorRecorder) ObservePoll(open bool, consecutiveFailures int) {}
func (NoopMonitorRecorder) ObserveStatus(up bool)                          {}

// ProbeRecorder receives observations from the on-demand prober.
type ProbeRecorder interface {
	ObserveOnDemandProbe(open bool)
	IncInvalidInput()
}

type NoopProbeRecorder struct{}

func (NoopProbeRecorder) ObserveOnDemandProbe(open bool) {}
func (NoopProbeRecorder) IncInvalidInput()               {}
