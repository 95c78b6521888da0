package probe

import (
	"time"

	"github.com/google/uuid"
)

// Session accumulates the evidence of one probe run. It is mutated
// trial by trial and stays inspectable even when the run is aborted;
// only the final recommendation is meant to outlive it (the caller
// persists that through the store).
type Session struct {
	// ID uniquely identifies this probe run.
	ID uuid.UUID

	// Device is the endpoint that was probed, as host:port.
	Device string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// Candidates is the normalized trial order (descending).
	Candidates []int

	// Skipped lists requested counts that exceed the framing limit and
	// were never triable.
	Skipped []int

	// Tried maps each candidate to its trials in issue order. The
	// per-candidate ordering preserves intermittency evidence: a
	// full/partial/full sequence is recorded as exactly that.
	Tried map[int][]TrialResult

	// Confirmed is the maximum all-repeats-full count, or 0 when no
	// candidate confirmed.
	Confirmed int

	// Aborted is set when the run was cancelled before all candidates
	// were tried.
	Aborted bool
}

func newSession(device string, candidates, skipped []int) *Session {
	return &Session{
		ID:         uuid.New(),
		Device:     device,
		StartedAt:  time.Now(),
		Candidates: candidates,
		Skipped:    skipped,
		Tried:      make(map[int][]TrialResult, len(candidates)),
	}
}

func (s *Session) record(r TrialResult) {
	s.Tried[r.Requested] = append(s.Tried[r.Requested], r)
}

// ConfirmedWorking reports whether the given count produced full
// coverage on every one of its `repeats` trials. Fewer recorded trials
// than repeats (an aborted run) never confirms, and a single non-full
// trial poisons the count no matter how many others succeeded.
func (s *Session) ConfirmedWorking(count, repeats int) bool {
	trials := s.Tried[count]
	if len(trials) < repeats {
		return false
	}
	for _, tr := range trials {
		if tr.Outcome != FullCoverage {
			return false
		}
	}
	return true
}

// finalize computes the recommendation: the maximum confirmed-working
// count. Confirmed counts need not be contiguous; an unreliable count
// between two confirmed ones is recorded as such and simply loses.
func (s *Session) finalize(repeats int) {
	s.FinishedAt = time.Now()
	best := 0
	for count := range s.Tried {
		if count > best && s.ConfirmedWorking(count, repeats) {
			best = count
		}
	}
	s.Confirmed = best
}
