// Package extract contains the metadata extractor adapters. Each adapter
// wraps a single data source (ffprobe, audio tags, exiftool, EXIF) and
// reports either a partial set of fields or a source-scoped failure.
package extract

import (
	"context"
	"fmt"

	"github.com/hbomb79/mediascan/internal/media"
)

type (
	// Adapter is a single metadata extraction strategy bound
	// to one data source.
	Adapter interface {
		// Name is the identity of the data source, used for error
		// attribution and configuration.
		Name() string

		// Fields returns the keys this adapter may populate.
		Fields() []string

		// Accepts returns true if this adapter is applicable to the file.
		Accepts(media.File) bool

		// Extract reads metadata from the file. Failures are reported
		// via the returned Result rather than a panic or error.
		Extract(context.Context, media.File) Result
	}

	// Prober is implemented by adapters which depend on an external
	// capability (such as a binary on the PATH). A non-nil error
	// means the adapter cannot be used.
	Prober interface {
		Available() error
	}

	// Result is the outcome of a single adapter over a single file. Exactly
	// one of Fields or Err is meaningful: a successful result holds the fields
	// the adapter determined, a failed result holds a *SourceError.
	Result struct {
		Source string
		Fields map[string]any
		Err    error
	}

	// SourceError is the error held by a failed Result.
	SourceError struct {
		Source string
		Err    error
	}
)

// Success constructs a successful Result.
func Success(source string, fields map[string]any) Result {
	if fields == nil {
		fields = make(map[string]any)
	}

	return Result{Source: source, Fields: fields}
}

// Failure constructs a failed Result, wrapping the error provided in
// a SourceError.
func Failure(source string, err error) Result {
	return Result{Source: source, Err: &SourceError{Source: source, Err: err}}
}

// Failed returns true if this result represents an adapter failure.
func (r Result) Failed() bool { return r.Err != nil }

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Message returns the error message without the source prefix.
func (e *SourceError) Message() string {
	if e.Err == nil {
		return "unknown error"
	}

	return e.Err.Error()
}

func extensionSet(exts ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[e] = struct{}{}
	}

	return set
}
