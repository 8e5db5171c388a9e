package env

import (
	"os"
	"path/filepath"
)

// Daemon is set when running as HTTP server.
var Daemon bool = false

// ConfigPath is the config file given on the command line, empty uses the search path.
var ConfigPath string = ""

// (default: $HOME/.sapctl-keeper)
var KeeperDir string = GetKeeperDir()

/**
 * Get keeper directory path
 * @returns {string} Returns keeper directory path
 */
func GetKeeperDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".sapctl-keeper")
	}
	return filepath.Join(homeDir, ".sapctl-keeper")
}

// DefaultHistoryPath is used when history.path is not configured.
func DefaultHistoryPath() string {
	return filepath.Join(KeeperDir, "history.db")
}
