// Package stream streams live colors to a calibrated device.
//
// The runner enables razer mode, drives one frame per interval through
// encode → send against the confirmed segment count, and disables razer
// mode on the way out. Frame errors are logged and the loop keeps
// going; a misrendered frame costs nothing, the next one overwrites it.
package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lumiprobe/internal/colorsource"
	"lumiprobe/internal/config"
	"lumiprobe/internal/logging"
	"lumiprobe/internal/metrics"
	"lumiprobe/internal/protocol"
	"lumiprobe/internal/sampling"
)

// Transport carries wire packets to the device.
type Transport interface {
	Send(ctx context.Context, payload []byte) (accepted bool, err error)
	SetRazerMode(ctx context.Context, on bool) error
}

// Runner streams colors from a source to one device.
type Runner struct {
	Transport Transport
	Source    colorsource.Source

	// Segments is the confirmed segment count to drive. Streaming an
	// unconfirmed count reintroduces the silent-truncation bug this
	// module exists to avoid.
	Segments int

	Logger *logging.Logger

	// Metrics is optional instrumentation.
	Metrics *metrics.StreamMetrics

	mu         sync.RWMutex
	brightness float64
	interval   time.Duration
}

// NewRunner builds a runner from a validated sync configuration.
func NewRunner(tr Transport, src colorsource.Source, segments int, cfg config.SyncConfig, logger *logging.Logger) (*Runner, error) {
	if segments < 1 {
		return nil, fmt.Errorf("sync: segment count %d not usable; probe first", segments)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Runner{
		Transport:  tr,
		Source:     src,
		Segments:   segments,
		Logger:     logger.WithComponent("sync"),
		brightness: cfg.Brightness,
		interval:   cfg.FrameInterval(),
	}, nil
}

// ApplyConfig adopts new brightness and frame interval settings. Safe
// to call while Run is streaming; the loader's OnChange hook calls it.
func (r *Runner) ApplyConfig(cfg *config.Config) {
	r.mu.Lock()
	r.brightness = cfg.Sync.Brightness
	r.interval = cfg.Sync.FrameInterval()
	r.mu.Unlock()
	r.Logger.Info("sync settings applied",
		"brightness", cfg.Sync.Brightness, "frame_interval", cfg.Sync.FrameInterval())
}

// Run streams frames until the context is cancelled. Razer mode is
// enabled before the first frame and disabled on exit; the disable uses
// a fresh timeout because the run context is already dead by then.
func (r *Runner) Run(ctx context.Context) error {
	geometry := sampling.SelectGeometry(r.Segments)
	r.Logger.Info("sync starting",
		"segments", r.Segments, "strategy", geometry.Strategy.String())

	if err := r.Transport.SetRazerMode(ctx, true); err != nil {
		return fmt.Errorf("sync: enable razer mode: %w", err)
	}
	defer func() {
		offCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Transport.SetRazerMode(offCtx, false); err != nil {
			r.Logger.Warn("disable razer mode failed", "err", err)
		}
	}()

	frames := 0
	for {
		r.mu.RLock()
		interval := r.interval
		r.mu.RUnlock()

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.Logger.Info("sync stopped", "frames", frames)
			return ctx.Err()
		case <-timer.C:
		}

		if err := r.frame(ctx, geometry); err != nil {
			if ctx.Err() != nil {
				r.Logger.Info("sync stopped", "frames", frames)
				return ctx.Err()
			}
			if r.Metrics != nil {
				r.Metrics.FramesDropped.Inc()
			}
			r.Logger.Warn("frame dropped", "err", err)
			continue
		}
		frames++
		if r.Metrics != nil {
			r.Metrics.FramesSent.Inc()
		}

		if frames%600 == 0 {
			r.Logger.Debug("streaming", "frames", frames)
		}
	}
}

func (r *Runner) frame(ctx context.Context, geometry sampling.Geometry) error {
	colors, err := r.Source.Colors(geometry)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if len(colors) != r.Segments {
		return fmt.Errorf("source produced %d colors for %d segments", len(colors), r.Segments)
	}

	r.mu.RLock()
	brightness := r.brightness
	r.mu.RUnlock()

	pkt, err := protocol.Encode(protocol.ControlCommand{
		SegmentCount: r.Segments,
		Colors:       colorsource.Scale(colors, brightness),
		Kind:         protocol.CmdSetColors,
	})
	if err != nil {
		return err
	}
	wire, err := protocol.WrapRazer(pkt.Bytes())
	if err != nil {
		return err
	}

	if _, err := r.Transport.Send(ctx, wire); err != nil {
		return err
	}
	return nil
}
