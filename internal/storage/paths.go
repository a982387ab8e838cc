package storage

import (
	"os"
	"path/filepath"
)

// DataDir returns the engine's persistent data directory, creating it if
// needed. KESTREL_DATA_DIR overrides the default under the user config
// directory.
func DataDir() (string, error) {
	if dir := os.Getenv("KESTREL_DATA_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
		return dir, nil
	}

	base, err := os.UserConfigDir()
	if err != nil {
		base, err = os.UserHomeDir()
		if err != nil {
			return "", err
		}
	}

	dir := filepath.Join(base, "kestrel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// DatabaseDir returns the badger database directory.
func DatabaseDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	dbDir := filepath.Join(dir, "db")
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return "", err
	}
	return dbDir, nil
}
