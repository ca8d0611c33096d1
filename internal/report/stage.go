package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hbomb79/mediascan/internal/media"
	"github.com/hbomb79/mediascan/pkg/logger"
)

type (
	// Destinations names the documents written by Write. JSONPath is
	// optional.
	Destinations struct {
		XLSXPath string
		JSONPath string
		Options  Options
	}

	// stagedFile is a fully written temporary file waiting to be renamed
	// over its destination.
	stagedFile struct {
		tmp     string
		path    string
		summary string
	}
)

// Write writes the workbook and, if a JSON path is given, the JSON document.
// Both documents are written to temporary files first, and neither is moved
// in to place unless every document was written successfully.
func Write(dest Destinations, schema []string, records []*media.Record) error {
	workbook, err := stageXLSX(dest.XLSXPath, schema, records, dest.Options)
	if err != nil {
		return err
	}

	staged := []*stagedFile{workbook}
	if dest.JSONPath != "" {
		document, err := stageJSON(dest.JSONPath, records)
		if err != nil {
			workbook.discard()
			return err
		}

		staged = append(staged, document)
	}

	return commitAll(staged...)
}

// stage writes to a temporary file alongside the path provided. The
// temporary file is removed on failure.
func stage(path string, write func(io.Writer) error) (staged *stagedFile, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to flush %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return nil, fmt.Errorf("failed to set permissions of %s: %w", path, err)
	}

	return &stagedFile{tmp: tmp.Name(), path: path}, nil
}

func (s *stagedFile) discard() {
	if err := os.Remove(s.tmp); err != nil && !os.IsNotExist(err) {
		log.Emit(logger.WARNING, "Failed to remove temporary file %s: %v\n", s.tmp, err)
	}
}

// commitAll renames each staged file in to place. If a rename fails, the
// remaining temporary files are discarded and any documents already moved
// in to place by this call are removed.
func commitAll(staged ...*stagedFile) error {
	for i, s := range staged {
		if err := os.Rename(s.tmp, s.path); err != nil {
			for _, pending := range staged[i:] {
				pending.discard()
			}
			for _, placed := range staged[:i] {
				os.Remove(placed.path)
			}

			return fmt.Errorf("failed to move report in to place at %s: %w", s.path, err)
		}
	}

	for _, s := range staged {
		log.Emit(logger.SUCCESS, "Wrote %s to %s\n", s.summary, s.path)
	}

	return nil
}
