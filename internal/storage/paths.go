// Package storage provides the platform data directories and a persistent
// cache of tablebase files known to be corrupt.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "kage"

// GetDataDir returns the platform-specific data directory for the application.
// - macOS: ~/Library/Application Support/kage/
// - Linux: $XDG_DATA_HOME/kage/, or ~/.local/share/kage/ when unset
// - Windows: %APPDATA%/kage/
func GetDataDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "darwin":
		// macOS: ~/Library/Application Support/
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		// Windows: %APPDATA%
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		// Linux and other Unix-like: ~/.local/share/
		// Check XDG_DATA_HOME first
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", err
	}

	return dataDir, nil
}

// GetSyzygyDir returns the default directory for downloaded Syzygy
// tablebase files.
func GetSyzygyDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}

	syzygyDir := filepath.Join(dataDir, "syzygy")
	if err := os.MkdirAll(syzygyDir, 0755); err != nil {
		return "", err
	}

	return syzygyDir, nil
}

// GetDatabaseDir returns the directory for storing the BadgerDB database
// backing the tablebase header cache.
func GetDatabaseDir() (string, error) {
	dataDir, err := GetDataDir()
	if err != nil {
		return "", err
	}

	dbDir := filepath.Join(dataDir, "db")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return "", err
	}

	return dbDir, nil
}
