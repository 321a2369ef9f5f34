package core

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the application name used in data directory paths.
const AppName = "wallgen"

// DefaultDataDirectory returns the platform-specific data directory for the
// daemon. Wallpaper artifacts, the database, and logs all live under it.
//
// Paths by platform:
//   - Windows: %APPDATA%\wallgen
//   - Linux/macOS: ~/.wallgen
//
// Does NOT create the directory - callers should use EnsureDataDirectory for that.
func DefaultDataDirectory() string {
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return AppName
		}
		return filepath.Join(home, "AppData", "Roaming", AppName)
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "." + AppName
		}
		return filepath.Join(home, "."+AppName)
	}
}

// EnsureDataDirectory creates the directory if it doesn't exist and verifies
// it is writable by creating and removing a probe file.
func EnsureDataDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return ErrDataDirUnwritable(dir, err)
	}

	probe := filepath.Join(dir, ".write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return ErrDataDirUnwritable(dir, err)
	}
	if err := f.Close(); err != nil {
		return ErrDataDirUnwritable(dir, fmt.Errorf("closing probe file: %w", err))
	}
	if err := os.Remove(probe); err != nil {
		return ErrDataDirUnwritable(dir, err)
	}

	return nil
}
