package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate performs validation of the configuration.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateDevice(&c.Device)...)
	errs = append(errs, validateProbe(&c.Probe)...)
	errs = append(errs, validateSync(&c.Sync)...)
	errs = append(errs, validateLogging(&c.Logging)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDevice(d *DeviceConfig) ValidationErrors {
	var errs ValidationErrors

	if d.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "device.host",
			Message: "device host is required",
		})
	} else if net.ParseIP(d.Host) == nil {
		errs = append(errs, ValidationError{
			Field:   "device.host",
			Message: fmt.Sprintf("%q is not a valid IP address", d.Host),
		})
	}

	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "device.port",
			Message: fmt.Sprintf("port %d out of range", d.Port),
		})
	}

	if d.WriteTimeoutMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "device.write_timeout_ms",
			Message: "write timeout must be positive",
		})
	}

	if d.SettleMs < 0 {
		errs = append(errs, ValidationError{
			Field:   "device.settle_ms",
			Message: "settle delay cannot be negative",
		})
	}

	return errs
}

func validateProbe(p *ProbeConfig) ValidationErrors {
	var errs ValidationErrors

	if len(p.Candidates) == 0 {
		errs = append(errs, ValidationError{
			Field:   "probe.candidates",
			Message: "at least one candidate segment count is required",
		})
	}
	for _, n := range p.Candidates {
		if n < 1 {
			errs = append(errs, ValidationError{
				Field:   "probe.candidates",
				Message: fmt.Sprintf("candidate %d is not a positive segment count", n),
			})
			break
		}
	}

	if p.Repeats < 1 {
		errs = append(errs, ValidationError{
			Field:   "probe.repeats",
			Message: "repeats must be at least 1",
		})
	}

	if p.FullCoverageThreshold <= 0 || p.FullCoverageThreshold > 1 {
		errs = append(errs, ValidationError{
			Field:   "probe.full_coverage_threshold",
			Message: fmt.Sprintf("threshold %v must be in (0,1]", p.FullCoverageThreshold),
		})
	}

	return errs
}

func validateSync(s *SyncConfig) ValidationErrors {
	var errs ValidationErrors

	if s.Brightness < 0.1 || s.Brightness > 1.0 {
		errs = append(errs, ValidationError{
			Field:   "sync.brightness",
			Message: fmt.Sprintf("brightness %v must be in [0.1,1.0]", s.Brightness),
		})
	}

	if s.FrameIntervalMs < 1 {
		errs = append(errs, ValidationError{
			Field:   "sync.frame_interval_ms",
			Message: "frame interval must be positive",
		})
	}

	switch s.Pattern {
	case "white", "rgb":
	default:
		errs = append(errs, ValidationError{
			Field:   "sync.pattern",
			Message: fmt.Sprintf("unknown pattern %q", s.Pattern),
		})
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("unknown level %q", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("unknown format %q", l.Format),
		})
	}

	if l.Output == "file" && l.FilePath == "" {
		errs = append(errs, ValidationError{
			Field:   "logging.file_path",
			Message: "file output requires a file path",
		})
	}

	return errs
}
