package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/lumiprobe/
//   - Linux:   ~/.local/share/lumiprobe/
//   - Windows: %APPDATA%\lumiprobe\
//
// Falls back to ~/.lumiprobe if platform detection fails.
func PlatformDataDir() string {
	switch runtime.GOOS {
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Application Support", "lumiprobe")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return fallbackDataDir()
		}
		return filepath.Join(appData, "lumiprobe")
	case "linux":
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			homeDir, _ := os.UserHomeDir()
			dataHome = filepath.Join(homeDir, ".local", "share")
		}
		return filepath.Join(dataHome, "lumiprobe")
	default:
		return fallbackDataDir()
	}
}

// PlatformConfigDir returns the platform-specific config directory.
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		return PlatformDataDir()
	case "windows":
		return PlatformDataDir()
	case "linux":
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			homeDir, _ := os.UserHomeDir()
			configHome = filepath.Join(homeDir, ".config")
		}
		return filepath.Join(configHome, "lumiprobe")
	default:
		return fallbackDataDir()
	}
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

func fallbackDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".lumiprobe"
	}
	return filepath.Join(homeDir, ".lumiprobe")
}
