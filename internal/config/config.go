// Package config handles configuration loading and validation for
// lumiprobe.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete lumiprobe configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Device is the endpoint of the LED device under control.
	Device DeviceConfig `toml:"device" json:"device" yaml:"device"`

	// Probe controls the capability search.
	Probe ProbeConfig `toml:"probe" json:"probe" yaml:"probe"`

	// Sync controls the live color streaming loop.
	Sync SyncConfig `toml:"sync" json:"sync" yaml:"sync"`

	// Storage configuration for the calibration database.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// DeviceConfig holds the device endpoint settings.
type DeviceConfig struct {
	// Host is the device IPv4 address.
	Host string `toml:"host" json:"host" yaml:"host"`

	// Port is the device razer control port.
	Port int `toml:"port" json:"port" yaml:"port"`

	// WriteTimeoutMs bounds each UDP send.
	WriteTimeoutMs int `toml:"write_timeout_ms" json:"write_timeout_ms" yaml:"write_timeout_ms"`

	// SettleMs is how long the strip gets to stabilize visually
	// between a send and its observation.
	SettleMs int `toml:"settle_ms" json:"settle_ms" yaml:"settle_ms"`
}

// Addr returns the endpoint as host:port.
func (d DeviceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// WriteTimeout returns the send deadline as a duration.
func (d DeviceConfig) WriteTimeout() time.Duration {
	return time.Duration(d.WriteTimeoutMs) * time.Millisecond
}

// Settle returns the settle delay as a duration.
func (d DeviceConfig) Settle() time.Duration {
	return time.Duration(d.SettleMs) * time.Millisecond
}

// ProbeConfig holds capability search settings.
type ProbeConfig struct {
	// Candidates are the segment counts to try. Order is irrelevant;
	// the prober normalizes to descending.
	Candidates []int `toml:"candidates" json:"candidates" yaml:"candidates"`

	// Repeats is how many trials each candidate must pass.
	Repeats int `toml:"repeats" json:"repeats" yaml:"repeats"`

	// FullCoverageThreshold is the coverage fraction at or above
	// which a trial counts as fully rendered.
	FullCoverageThreshold float64 `toml:"full_coverage_threshold" json:"full_coverage_threshold" yaml:"full_coverage_threshold"`
}

// SyncConfig holds the live streaming settings.
type SyncConfig struct {
	// Brightness scales all streamed colors, 0.1-1.0.
	Brightness float64 `toml:"brightness" json:"brightness" yaml:"brightness"`

	// FrameIntervalMs is the streaming frame period.
	FrameIntervalMs int `toml:"frame_interval_ms" json:"frame_interval_ms" yaml:"frame_interval_ms"`

	// Pattern selects the built-in color source: "white" or "rgb".
	Pattern string `toml:"pattern" json:"pattern" yaml:"pattern"`
}

// FrameInterval returns the frame period as a duration.
func (s SyncConfig) FrameInterval() time.Duration {
	return time.Duration(s.FrameIntervalMs) * time.Millisecond
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Path is the SQLite database location.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is text or json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is stdout, stderr or file.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output is file.
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// DefaultConfig returns the default configuration. The device host has
// no default; it must come from the config file, a flag, or the
// environment.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Device: DeviceConfig{
			Port:           4003,
			WriteTimeoutMs: 1000,
			SettleMs:       300,
		},
		Probe: ProbeConfig{
			Candidates:            []int{40, 30, 24, 20, 16, 12, 10, 8, 6, 5, 4, 3, 2, 1},
			Repeats:               2,
			FullCoverageThreshold: 0.95,
		},
		Sync: SyncConfig{
			Brightness:      0.75,
			FrameIntervalMs: 50,
			Pattern:         "rgb",
		},
		Storage: StorageConfig{
			Path: filepath.Join(PlatformDataDir(), "lumiprobe.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// ApplyEnvOverrides applies LUMIPROBE_* environment variables on top of
// the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LUMIPROBE_DEVICE_HOST"); v != "" {
		c.Device.Host = v
	}
	if v := os.Getenv("LUMIPROBE_DEVICE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Device.Port = port
		}
	}
	if v := os.Getenv("LUMIPROBE_DB_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("LUMIPROBE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// SaveConfig writes the configuration to the given path as TOML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
