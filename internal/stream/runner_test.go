package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumiprobe/internal/colorsource"
	"lumiprobe/internal/config"
	"lumiprobe/internal/logging"
	"lumiprobe/internal/protocol"
	"lumiprobe/internal/sampling"
)

type recordingTransport struct {
	mu        sync.Mutex
	sent      [][]byte
	modeCalls []bool
	failSends bool
}

func (t *recordingTransport) Send(_ context.Context, payload []byte) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSends {
		return false, errors.New("network down")
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	t.sent = append(t.sent, cp)
	return true, nil
}

func (t *recordingTransport) SetRazerMode(_ context.Context, on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.modeCalls = append(t.modeCalls, on)
	return nil
}

func (t *recordingTransport) snapshot() (sent [][]byte, modes []bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([][]byte(nil), t.sent...), append([]bool(nil), t.modeCalls...)
}

type failingSource struct{}

func (failingSource) Colors(sampling.Geometry) ([]protocol.RGB, error) {
	return nil, errors.New("capture failed")
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.New(&logging.Config{Level: logging.LevelError, Output: "stderr"})
	require.NoError(t, err)
	return logger
}

func testSyncConfig() config.SyncConfig {
	return config.SyncConfig{Brightness: 1.0, FrameIntervalMs: 5, Pattern: "rgb"}
}

func decodeFrame(t *testing.T, wire []byte) []byte {
	t.Helper()
	var msg struct {
		Msg struct {
			Data struct {
				Pt string `json:"pt"`
			} `json:"data"`
		} `json:"msg"`
	}
	require.NoError(t, json.Unmarshal(wire, &msg))
	frame, err := base64.StdEncoding.DecodeString(msg.Msg.Data.Pt)
	require.NoError(t, err)
	return frame
}

func TestRunnerStreamsFrames(t *testing.T) {
	tr := &recordingTransport{}
	src, err := colorsource.NewPattern("rgb")
	require.NoError(t, err)

	r, err := NewRunner(tr, src, 8, testSyncConfig(), testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	sent, modes := tr.snapshot()
	require.NotEmpty(t, sent, "expected at least one frame in 100ms at 5ms interval")
	assert.Equal(t, []bool{true, false}, modes, "razer mode on at start, off at stop")

	frame := decodeFrame(t, sent[0])
	assert.Equal(t, byte(8), frame[5], "segment count in header")
	assert.Len(t, frame, 6+3*8+1)
}

func TestRunnerRejectsUnprobedSegmentCount(t *testing.T) {
	src, err := colorsource.NewPattern("white")
	require.NoError(t, err)
	_, err = NewRunner(&recordingTransport{}, src, 0, testSyncConfig(), testLogger(t))
	require.Error(t, err)
}

func TestRunnerSurvivesFrameErrors(t *testing.T) {
	tr := &recordingTransport{}
	r, err := NewRunner(tr, failingSource{}, 4, testSyncConfig(), testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err = r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	sent, modes := tr.snapshot()
	assert.Empty(t, sent, "no frames should reach the wire when the source fails")
	assert.Equal(t, []bool{true, false}, modes, "mode toggles still happen around a failing loop")
}

func TestRunnerAppliesBrightnessLive(t *testing.T) {
	tr := &recordingTransport{}
	src, err := colorsource.NewPattern("white")
	require.NoError(t, err)

	r, err := NewRunner(tr, src, 4, testSyncConfig(), testLogger(t))
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Sync.Brightness = 0.5
	cfg.Sync.FrameIntervalMs = 5
	r.ApplyConfig(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	sent, _ := tr.snapshot()
	require.NotEmpty(t, sent)
	frame := decodeFrame(t, sent[len(sent)-1])
	// White at brightness 0.5 is 127 on every channel.
	assert.Equal(t, byte(127), frame[6])
	assert.Equal(t, byte(127), frame[7])
	assert.Equal(t, byte(127), frame[8])
}

func TestRunnerKeepsStreamingThroughSendFailures(t *testing.T) {
	tr := &recordingTransport{failSends: true}
	src, err := colorsource.NewPattern("rgb")
	require.NoError(t, err)

	r, err := NewRunner(tr, src, 4, testSyncConfig(), testLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err = r.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
