package probe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lumiprobe/internal/logging"
	"lumiprobe/internal/metrics"
	"lumiprobe/internal/protocol"
)

// ErrNoWorkingConfiguration means a full probe run confirmed zero
// candidates. There is no safe default to fall back to; the operator
// has to intervene.
var ErrNoWorkingConfiguration = errors.New("probe: no segment count confirmed reliable")

// Transport carries one wire packet to the device. Implemented by
// *transport.Session; tests substitute fakes.
type Transport interface {
	Send(ctx context.Context, payload []byte) (accepted bool, err error)
}

// Observer reports the coverage fraction rendered on the physical
// strip after a trial, in [0,1]. It is an opaque oracle: photometric,
// manual, whatever the deployment has.
type Observer interface {
	Observe(ctx context.Context, requested int) (coverage float64, err error)
}

// Prober runs the capability search. Trials against the one physical
// device are strictly serialized; there is no parallelism here on
// purpose.
type Prober struct {
	Transport  Transport
	Observer   Observer
	Classifier Classifier

	// Settle is how long the device gets to stabilize visually between
	// a send and its observation.
	Settle time.Duration

	// Colors supplies the trial pattern for a given segment count.
	// Nil means solid white, the easiest pattern to judge coverage by.
	Colors func(n int) []protocol.RGB

	Logger *logging.Logger

	// Metrics is optional instrumentation.
	Metrics *metrics.ProbeMetrics

	// sleep is a test seam; nil means context-aware real sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// Probe tries every candidate count `repeats` times and returns the
// maximum count that rendered full coverage on all of its repeats.
//
// Candidates are normalized to descending order before trial. Coverage
// tends to shrink as counts grow past the true limit, so scanning
// downward front-loads the interesting region, but no result is
// trusted on ordering grounds alone: every candidate is tried in full
// and the maximum confirmed count wins. There is no early exit on
// first success; an upward scan with early exit is exactly how silent
// partial execution once produced false capability reports.
//
// The returned Session always carries whatever evidence was gathered,
// including on error or cancellation.
func (p *Prober) Probe(ctx context.Context, candidates []int, repeats int) (int, *Session, error) {
	if repeats < 1 {
		return 0, nil, fmt.Errorf("probe: repeats must be >= 1, got %d", repeats)
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.Default()
	}

	normalized, skipped := normalize(candidates)
	for _, n := range skipped {
		logger.Warn("candidate exceeds framing limit, skipping",
			"requested", n, "max_encodable", protocol.MaxEncodableSegments())
	}

	sess := newSession(deviceAddr(p.Transport), normalized, skipped)
	if len(normalized) == 0 {
		sess.finalize(repeats)
		return 0, sess, fmt.Errorf("probe: no triable candidates: %w", ErrNoWorkingConfiguration)
	}

	logger.Info("probe run starting",
		"session", sess.ID, "candidates", normalized, "repeats", repeats)

	for _, count := range normalized {
		if err := ctx.Err(); err != nil {
			sess.Aborted = true
			sess.finalize(repeats)
			return 0, sess, err
		}

		for rep := 0; rep < repeats; rep++ {
			result, err := p.trial(ctx, count)
			if err != nil {
				// Only context cancellation aborts; everything else
				// was already folded into the trial outcome.
				sess.Aborted = true
				sess.finalize(repeats)
				return 0, sess, err
			}
			sess.record(result)
			p.countTrial(result)
			logger.Debug("trial recorded",
				"requested", count, "repeat", rep+1,
				"outcome", result.Outcome.String(), "coverage", result.Coverage)
		}

		if sess.ConfirmedWorking(count, repeats) {
			logger.Info("candidate confirmed", "requested", count)
		} else {
			logger.Info("candidate unreliable", "requested", count)
		}
	}

	sess.finalize(repeats)
	if p.Metrics != nil {
		p.Metrics.ConfirmedSegs.Set(int64(sess.Confirmed))
	}
	if sess.Confirmed == 0 {
		return 0, sess, ErrNoWorkingConfiguration
	}

	logger.Info("probe run complete",
		"session", sess.ID, "confirmed", sess.Confirmed)
	return sess.Confirmed, sess, nil
}

// trial runs one encode → send → settle → observe → classify cycle.
// Transport and observation failures become classified outcomes, not
// errors; only context cancellation escapes as an error.
func (p *Prober) trial(ctx context.Context, count int) (TrialResult, error) {
	pkt, err := protocol.Encode(protocol.ControlCommand{
		SegmentCount: count,
		Colors:       p.colors(count),
		Kind:         protocol.CmdSetColors,
	})
	if err != nil {
		// Candidates are pre-filtered against the framing limit, so an
		// encoding failure here is a caller bug. Abort the trial only.
		return TrialResult{}, fmt.Errorf("probe: encode candidate %d: %w", count, err)
	}

	wire, err := protocol.WrapRazer(pkt.Bytes())
	if err != nil {
		return TrialResult{}, err
	}

	accepted, sendErr := p.Transport.Send(ctx, wire)
	if sendErr != nil {
		if ctx.Err() != nil {
			return TrialResult{}, ctx.Err()
		}
		return p.Classifier.Classify(count, sendErr, false, 0), nil
	}

	if err := p.doSleep(ctx, p.Settle); err != nil {
		return TrialResult{}, err
	}

	coverage, obsErr := p.observe(ctx, count)
	if obsErr != nil {
		if ctx.Err() != nil {
			return TrialResult{}, ctx.Err()
		}
		// No observation means no evidence either way; treat like a
		// transient fault rather than guessing at coverage.
		return p.Classifier.Classify(count, obsErr, accepted, 0), nil
	}

	return p.Classifier.Classify(count, nil, accepted, coverage), nil
}

func (p *Prober) colors(n int) []protocol.RGB {
	if p.Colors != nil {
		return p.Colors(n)
	}
	colors := make([]protocol.RGB, n)
	for i := range colors {
		colors[i] = protocol.RGB{R: 255, G: 255, B: 255}
	}
	return colors
}

func (p *Prober) observe(ctx context.Context, count int) (float64, error) {
	if p.Observer == nil {
		return 0, errors.New("probe: no observer configured")
	}
	return p.Observer.Observe(ctx, count)
}

func (p *Prober) countTrial(r TrialResult) {
	if p.Metrics == nil {
		return
	}
	p.Metrics.Trials.Inc()
	switch r.Outcome {
	case FullCoverage:
		p.Metrics.FullCoverage.Inc()
	case PartialCoverage:
		p.Metrics.Partial.Inc()
	case Rejected:
		p.Metrics.Rejected.Inc()
	case TransientError:
		p.Metrics.Transient.Inc()
	}
}

func (p *Prober) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// normalize dedupes, drops non-positive counts, splits off counts past
// the framing limit, and orders the rest descending.
func normalize(candidates []int) (triable, skipped []int) {
	seen := make(map[int]bool, len(candidates))
	max := protocol.MaxEncodableSegments()
	for _, n := range candidates {
		if n < 1 || seen[n] {
			continue
		}
		seen[n] = true
		if n > max {
			skipped = append(skipped, n)
			continue
		}
		triable = append(triable, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(triable)))
	sort.Ints(skipped)
	return triable, skipped
}

// addresser is implemented by transports that know their endpoint.
type addresser interface {
	Addr() string
}

func deviceAddr(t Transport) string {
	if a, ok := t.(addresser); ok {
		return a.Addr()
	}
	return ""
}
