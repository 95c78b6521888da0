package metrics

// ProbeMetrics instruments a capability probe run.
type ProbeMetrics struct {
	Trials        *Counter
	FullCoverage  *Counter
	Partial       *Counter
	Rejected      *Counter
	Transient     *Counter
	ConfirmedSegs *Gauge
}

// NewProbeMetrics registers the probe metric set.
func NewProbeMetrics(r *Registry) *ProbeMetrics {
	return &ProbeMetrics{
		Trials:        r.Counter("lumiprobe_trials_total", "Probe trials issued", nil),
		FullCoverage:  r.Counter("lumiprobe_trial_outcomes_total", "Trial outcomes by class", Labels{"outcome": "full_coverage"}),
		Partial:       r.Counter("lumiprobe_trial_outcomes_total", "Trial outcomes by class", Labels{"outcome": "partial_coverage"}),
		Rejected:      r.Counter("lumiprobe_trial_outcomes_total", "Trial outcomes by class", Labels{"outcome": "rejected"}),
		Transient:     r.Counter("lumiprobe_trial_outcomes_total", "Trial outcomes by class", Labels{"outcome": "transient_error"}),
		ConfirmedSegs: r.Gauge("lumiprobe_confirmed_segments", "Confirmed segment count for the device", nil),
	}
}

// StreamMetrics instruments the sync runner.
type StreamMetrics struct {
	FramesSent    *Counter
	FramesDropped *Counter
}

// NewStreamMetrics registers the streaming metric set.
func NewStreamMetrics(r *Registry) *StreamMetrics {
	return &StreamMetrics{
		FramesSent:    r.Counter("lumiprobe_frames_sent_total", "Frames delivered to the device", nil),
		FramesDropped: r.Counter("lumiprobe_frames_dropped_total", "Frames lost to source or send errors", nil),
	}
}
