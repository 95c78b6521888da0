package store

// Calibration is the durable outcome of a probe run: the confirmed
// segment count for a device and the sampling strategy derived from it.
// Only empirically confirmed counts ever land here.
type Calibration struct {
	ID          int64
	Device      string
	Segments    int
	Strategy    string
	SessionID   string
	ConfirmedAt int64 // unix nanoseconds
}

// SessionRecord is the stored header of a probe run.
type SessionRecord struct {
	ID         string
	Device     string
	StartedAt  int64
	FinishedAt int64
	Confirmed  int
	Aborted    bool
}

// TrialRecord is one stored trial.
type TrialRecord struct {
	SessionID string
	Requested int
	Ordinal   int
	Outcome   string
	Coverage  float64
}
