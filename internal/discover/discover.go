// Package discover is responsible for finding candidate media files
// on the host file system.
package discover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbomb79/mediascan/internal/media"
	"github.com/hbomb79/mediascan/pkg/logger"
)

var log = logger.Get("Discover")

var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNotDirectory      = errors.New("path is not a directory")
	ErrEmptyResultSet    = errors.New("no media files found")
)

var (
	// DefaultExtensions is the allow-list of media file extensions
	// used when none are configured.
	DefaultExtensions = []string{".mp3", ".mp4", ".avi", ".mkv", ".mov", ".wav", ".flac", ".m4a", ".aac"}

	// ImageExtensions are appended to the allow-list when image
	// extraction is enabled.
	ImageExtensions = []string{".jpg", ".jpeg", ".tif", ".tiff", ".heic", ".png"}
)

// Discoverer walks a directory tree looking for files whose
// extension is in its allow-list. Hidden files (those whose name
// begins with a '.') are never reported.
type Discoverer struct {
	allowed map[string]struct{}
}

// New constructs a Discoverer which allows the extensions provided. Extensions
// are case-insensitive and the leading '.' is optional. If no extensions
// are given, DefaultExtensions is used.
func New(extensions ...string) *Discoverer {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		if ext = NormalizeExtension(ext); ext != "" {
			allowed[ext] = struct{}{}
		}
	}

	return &Discoverer{allowed: allowed}
}

// NormalizeExtension lower-cases the extension provided and ensures it
// has a leading '.'.
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return ext
}

// Allows returns true if the file name provided would be reported
// by this discoverer.
func (d *Discoverer) Allows(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}

	_, ok := d.allowed[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Walk recursively walks the root directory, calling fn for every media
// file found, in lexical order. If fn returns an error, the walk is
// stopped and that error is returned. The context is checked before
// each entry is visited.
//
// ErrDirectoryNotFound or ErrNotDirectory are returned (wrapped) if the
// root is not an existing directory. Walk does NOT return ErrEmptyResultSet.
func (d *Discoverer) Walk(ctx context.Context, root string, fn func(media.File) error) error {
	if err := ValidateRoot(root); err != nil {
		return err
	}

	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if path == root {
				return walkErr
			}

			log.Emit(logger.WARNING, "Skipping unreadable path %s: %v", path, walkErr)
			if entry != nil && entry.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() || !d.Allows(entry.Name()) {
			return nil
		}

		// Symlinked files are reported with the stat of their target.
		// Symlinked directories are not descended.
		var info fs.FileInfo
		var err error
		if entry.Type()&fs.ModeSymlink != 0 {
			info, err = os.Stat(path)
		} else {
			info, err = entry.Info()
		}
		if err != nil {
			log.Emit(logger.WARNING, "Skipping %s, failed to stat: %v", path, err)
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		return fn(media.NewFile(path, info))
	})
}

// Discover walks the root directory and returns all media files
// found. ErrEmptyResultSet is returned if there are none.
func (d *Discoverer) Discover(ctx context.Context, root string) ([]media.File, error) {
	files := make([]media.File, 0, 64)
	err := d.Walk(ctx, root, func(f media.File) error {
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in '%s'", ErrEmptyResultSet, root)
	}

	log.Emit(logger.DEBUG, "Discovered %d media files in %s", len(files), root)
	return files, nil
}

// ValidateRoot ensures the path provided is an existing directory.
func ValidateRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: '%s'", ErrDirectoryNotFound, root)
		}

		return fmt.Errorf("directory '%s' could not be accessed: %w", root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: '%s'", ErrNotDirectory, root)
	}

	return nil
}
