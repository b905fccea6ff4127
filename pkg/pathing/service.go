package pathing

import (
	"os"
	"path/filepath"
)

// EnsureDirectories creates the directories the binaries write to.
func EnsureDirectories() error {
	// Directories that must exist:
	dirs := []string{
		GetDataDir(),
		GetConfigDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func GetReadingDbPath() string {
	return filepath.Join(GetDataDir(), "dmm-readings.db")
}

// GetDataDir is /var/lib/tp4000zc_logger unless DMM_DATA_DIR is set.
func GetDataDir() string {
	if dir := os.Getenv("DMM_DATA_DIR"); dir != "" {
		return dir
	}
	return "/var/lib/tp4000zc_logger"
}

// GetConfigDir is /etc/tp4000zc_logger unless DMM_CONFIG_DIR is set.
func GetConfigDir() string {
	if dir := os.Getenv("DMM_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/tp4000zc_logger"
}
