// Package probe discovers the true segment capability of an LED device
// that accepts commands it cannot render.
//
// The device under test exhibits three distinct failure modes that a
// plain success boolean cannot separate:
//
//   - protocol-level rejection (explicit decline),
//   - silent partial execution (accepted, but only part of the strip
//     lights),
//   - transient flakiness (timeouts, dropped sends).
//
// Outcomes are therefore a classified enum, and "accepted" is never
// conflated with "worked". The prober runs repeated trials per
// candidate segment count and only trusts counts that render full
// coverage on every repeat.
package probe

import "fmt"

// DefaultFullCoverageThreshold is the observed-coverage fraction at or
// above which a trial counts as fully rendered.
const DefaultFullCoverageThreshold = 0.95

// Outcome classifies one trial.
type Outcome int

const (
	// FullCoverage: the whole strip rendered the commanded colors.
	FullCoverage Outcome = iota
	// PartialCoverage: the device accepted the command but rendered
	// only part of the strip. This is the silent failure mode that
	// makes upward scans lie.
	PartialCoverage
	// Rejected: the device explicitly declined the command.
	Rejected
	// TransientError: the send failed or timed out; says nothing about
	// device capability.
	TransientError
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case FullCoverage:
		return "full_coverage"
	case PartialCoverage:
		return "partial_coverage"
	case Rejected:
		return "rejected"
	case TransientError:
		return "transient_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// TrialResult records one trial. Immutable once produced.
type TrialResult struct {
	// Requested is the segment count the trial asked for.
	Requested int
	// Outcome is the classified result.
	Outcome Outcome
	// Coverage is the observed coverage fraction in [0,1].
	Coverage float64
}

// Classifier turns raw trial observations into TrialResults.
type Classifier struct {
	// FullCoverageThreshold is the minimum coverage fraction that
	// counts as full. Zero means DefaultFullCoverageThreshold.
	FullCoverageThreshold float64
}

func (c Classifier) threshold() float64 {
	if c.FullCoverageThreshold <= 0 {
		return DefaultFullCoverageThreshold
	}
	return c.FullCoverageThreshold
}

// Classify applies the outcome rules strictly in order:
//
//  1. send failed or timed out → TransientError
//  2. device explicitly rejected → Rejected
//  3. coverage at or above the threshold → FullCoverage
//  4. otherwise → PartialCoverage
//
// A hung device (rule 1) and a device that said no (rule 2) must stay
// distinguishable, and a rejection wins over whatever coverage happened
// to be observed.
func (c Classifier) Classify(requested int, sendErr error, accepted bool, coverage float64) TrialResult {
	switch {
	case sendErr != nil:
		return TrialResult{Requested: requested, Outcome: TransientError, Coverage: coverage}
	case !accepted:
		return TrialResult{Requested: requested, Outcome: Rejected, Coverage: coverage}
	case coverage >= c.threshold():
		return TrialResult{Requested: requested, Outcome: FullCoverage, Coverage: coverage}
	default:
		return TrialResult{Requested: requested, Outcome: PartialCoverage, Coverage: coverage}
	}
}
