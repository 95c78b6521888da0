// Package report renders stored probe evidence in machine-readable
// form. The report is the artifact you hand to someone asking "why does
// this device run at 8 segments": the confirmed calibration plus every
// trial that led to it.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"lumiprobe/internal/store"
)

// Trial is one attempt at one candidate count.
type Trial struct {
	Requested int     `json:"requested" yaml:"requested"`
	Ordinal   int     `json:"ordinal" yaml:"ordinal"`
	Outcome   string  `json:"outcome" yaml:"outcome"`
	Coverage  float64 `json:"coverage" yaml:"coverage"`
}

// Calibration is the confirmed result, if any.
type Calibration struct {
	Segments    int       `json:"segments" yaml:"segments"`
	Strategy    string    `json:"strategy" yaml:"strategy"`
	ConfirmedAt time.Time `json:"confirmed_at" yaml:"confirmed_at"`
}

// Report is the full evidence for one probe run against one device.
type Report struct {
	Device      string       `json:"device" yaml:"device"`
	SessionID   string       `json:"session_id" yaml:"session_id"`
	StartedAt   time.Time    `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time    `json:"finished_at" yaml:"finished_at"`
	Aborted     bool         `json:"aborted" yaml:"aborted"`
	Confirmed   int          `json:"confirmed" yaml:"confirmed"`
	Calibration *Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
	Trials      []Trial      `json:"trials" yaml:"trials"`
}

// Build assembles a report from stored records. cal may be nil when no
// count ever confirmed.
func Build(sess *store.SessionRecord, trials []store.TrialRecord, cal *store.Calibration) *Report {
	r := &Report{
		Device:     sess.Device,
		SessionID:  sess.ID,
		StartedAt:  time.Unix(0, sess.StartedAt).UTC(),
		FinishedAt: time.Unix(0, sess.FinishedAt).UTC(),
		Aborted:    sess.Aborted,
		Confirmed:  sess.Confirmed,
		Trials:     make([]Trial, 0, len(trials)),
	}
	if cal != nil {
		r.Calibration = &Calibration{
			Segments:    cal.Segments,
			Strategy:    cal.Strategy,
			ConfirmedAt: time.Unix(0, cal.ConfirmedAt).UTC(),
		}
	}
	for _, tr := range trials {
		r.Trials = append(r.Trials, Trial{
			Requested: tr.Requested,
			Ordinal:   tr.Ordinal,
			Outcome:   tr.Outcome,
			Coverage:  tr.Coverage,
		})
	}
	return r
}

// Render serializes the report. Format is "json" or "yaml".
func (r *Report) Render(format string) ([]byte, error) {
	switch format {
	case "json":
		return json.MarshalIndent(r, "", "  ")
	case "yaml":
		return yaml.Marshal(r)
	default:
		return nil, fmt.Errorf("report: unknown format %q", format)
	}
}
