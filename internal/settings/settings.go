// Package settings persists the small amount of state the CLI keeps
// between runs, such as the directory which was last scanned.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbomb79/mediascan/pkg/logger"
)

var log = logger.Get("Settings")

const FileName = "mediascan_latest_path.txt"

var ErrInvalidDirectory = errors.New("not an existing directory")

// Settings is the state persisted between runs. The zero value
// represents no stored state.
type Settings struct {
	// LastDirectory is the directory most recently scanned, or an
	// empty string if none is known.
	LastDirectory string
}

// DefaultPath returns the location used to persist settings when
// none is configured.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), FileName)
}

// Load reads the settings stored at the path provided. A missing file yields
// empty settings. If the stored directory no longer exists (or is no longer a
// directory) the file is deleted and empty settings are returned.
func Load(path string) (Settings, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Settings{}, nil
		}

		return Settings{}, fmt.Errorf("failed to read settings from %s: %w", path, err)
	}

	dir := strings.TrimSpace(string(content))
	if err := validateDirectory(dir); err != nil {
		log.Emit(logger.DEBUG, "Discarding stale settings file %s: %v\n", path, err)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("failed to remove stale settings file %s: %w", path, err)
		}

		return Settings{}, nil
	}

	return Settings{LastDirectory: dir}, nil
}

// Save writes the settings to the path provided. Only a last directory which
// exists and is a directory will be saved; ErrInvalidDirectory is returned
// otherwise.
func Save(path string, s Settings) error {
	if s.LastDirectory == "" {
		return fmt.Errorf("%w: no directory set", ErrInvalidDirectory)
	}

	dir, err := filepath.Abs(s.LastDirectory)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", s.LastDirectory, err)
	}
	if err := validateDirectory(dir); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(dir), 0o644); err != nil {
		return fmt.Errorf("failed to write settings to %s: %w", path, err)
	}

	return nil
}

func validateDirectory(dir string) error {
	if dir == "" {
		return fmt.Errorf("%w: no directory set", ErrInvalidDirectory)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: '%s'", ErrInvalidDirectory, dir)
	}

	return nil
}
