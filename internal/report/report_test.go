package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"lumiprobe/internal/store"
)

func sampleRecords() (*store.SessionRecord, []store.TrialRecord, *store.Calibration) {
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	sess := &store.SessionRecord{
		ID:         "9f1c2a4e-0000-0000-0000-000000000001",
		Device:     "192.168.1.50:4003",
		StartedAt:  started.UnixNano(),
		FinishedAt: started.Add(90 * time.Second).UnixNano(),
		Confirmed:  8,
	}
	trials := []store.TrialRecord{
		{SessionID: sess.ID, Requested: 12, Ordinal: 0, Outcome: "partial_coverage", Coverage: 0.6},
		{SessionID: sess.ID, Requested: 12, Ordinal: 1, Outcome: "partial_coverage", Coverage: 0.6},
		{SessionID: sess.ID, Requested: 8, Ordinal: 0, Outcome: "full_coverage", Coverage: 1.0},
		{SessionID: sess.ID, Requested: 8, Ordinal: 1, Outcome: "full_coverage", Coverage: 1.0},
	}
	cal := &store.Calibration{
		Device:      sess.Device,
		Segments:    8,
		Strategy:    "grid",
		SessionID:   sess.ID,
		ConfirmedAt: sess.FinishedAt,
	}
	return sess, trials, cal
}

func TestBuildCarriesEvidence(t *testing.T) {
	sess, trials, cal := sampleRecords()
	r := Build(sess, trials, cal)

	assert.Equal(t, sess.Device, r.Device)
	assert.Equal(t, 8, r.Confirmed)
	require.NotNil(t, r.Calibration)
	assert.Equal(t, "grid", r.Calibration.Strategy)
	require.Len(t, r.Trials, 4)
	assert.Equal(t, 12, r.Trials[0].Requested)
	assert.Equal(t, "full_coverage", r.Trials[2].Outcome)
}

func TestBuildWithoutCalibration(t *testing.T) {
	sess, trials, _ := sampleRecords()
	sess.Confirmed = 0
	r := Build(sess, trials, nil)
	assert.Nil(t, r.Calibration)
}

func TestRenderJSON(t *testing.T) {
	sess, trials, cal := sampleRecords()
	out, err := Build(sess, trials, cal).Render("json")
	require.NoError(t, err)

	var parsed Report
	require.NoError(t, json.Unmarshal(out, &parsed))
	assert.Equal(t, 8, parsed.Confirmed)
	assert.Len(t, parsed.Trials, 4)
}

func TestRenderYAML(t *testing.T) {
	sess, trials, cal := sampleRecords()
	out, err := Build(sess, trials, cal).Render("yaml")
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(out, &parsed))
	assert.Equal(t, "192.168.1.50:4003", parsed["device"])
	assert.Equal(t, 8, parsed["confirmed"])
}

func TestRenderUnknownFormat(t *testing.T) {
	sess, trials, cal := sampleRecords()
	_, err := Build(sess, trials, cal).Render("toml")
	require.Error(t, err)
}
