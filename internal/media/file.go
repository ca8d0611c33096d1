package media

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

const ModTimeLayout = "2006-01-02 15:04:05"

type (
	// File is a single candidate media file found during discovery. Once
	// constructed it should be treated as immutable.
	File struct {
		Path string
		Name string
		Ext  string
		Stat FileStat
	}

	// FileStat holds the file system facts about a File, which are
	// always available regardless of which extractors are enabled.
	FileStat struct {
		Size    int64
		ModTime time.Time
	}
)

// NewFile constructs a File for the path provided, using the FileInfo
// to populate the FileStat. The path is made absolute if possible.
func NewFile(path string, info fs.FileInfo) File {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	name := filepath.Base(path)
	return File{
		Path: path,
		Name: name,
		Ext:  strings.ToLower(filepath.Ext(name)),
		Stat: FileStat{Size: info.Size(), ModTime: info.ModTime()},
	}
}

// Dir returns the directory containing this file.
func (f File) Dir() string { return filepath.Dir(f.Path) }

func (f File) String() string { return fmt.Sprintf("File{%s}", f.Path) }

// SizeMiB returns the size of the file in mebibytes.
func (s FileStat) SizeMiB() float64 {
	return float64(s.Size) / (1024 * 1024)
}

// ModTimeUnix returns the modification time as fractional epoch seconds.
func (s FileStat) ModTimeUnix() float64 {
	return float64(s.ModTime.Unix()) + float64(s.ModTime.Nanosecond())/float64(time.Second)
}

// Fields returns the FileStat-derived record fields for the file.
func (f File) Fields() map[string]any {
	return map[string]any{
		FieldFilename:     f.Name,
		FieldPath:         f.Path,
		FieldSizeBytes:    f.Stat.Size,
		FieldSizeMB:       Round2(f.Stat.SizeMiB()),
		FieldModifiedUnix: f.Stat.ModTimeUnix(),
		FieldModifiedDate: f.Stat.ModTime.Local().Format(ModTimeLayout),
	}
}
