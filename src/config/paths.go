package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// StoragePaths contains the on-disk locations the application writes to.
type StoragePaths struct {
	// DatabasePath is the sqlite conversation store.
	DatabasePath string

	// SecretsDir holds the encrypted credential store.
	SecretsDir string

	// ImagesPrimary is the preferred directory for generated images.
	// ImagesFallback is tried when the primary is not writable.
	ImagesPrimary  string
	ImagesFallback string

	// LogDir holds log files.
	LogDir string
}

// GetDefaultStoragePaths returns storage locations following the XDG base
// directory spec: state data under XDG_STATE_HOME, cached images under
// XDG_CACHE_HOME with the system temp dir as fallback.
func GetDefaultStoragePaths() StoragePaths {
	return StoragePaths{
		DatabasePath:   filepath.Join(xdg.StateHome, "chatter", "conversations.db"),
		SecretsDir:     filepath.Join(xdg.DataHome, "chatter", "secrets"),
		ImagesPrimary:  filepath.Join(xdg.CacheHome, "chatter"),
		ImagesFallback: filepath.Join(os.TempDir(), "chatter"),
		LogDir:         filepath.Join(xdg.StateHome, "chatter", "logs"),
	}
}
