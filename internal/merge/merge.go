// Package merge combines the file system facts about a file with the
// partial results of each extractor in to a single normalized record.
package merge

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/media"
)

// Merger builds records which contain every field in its schema.
type Merger struct {
	schema []string
}

func New(schema []string) *Merger {
	return &Merger{schema: schema}
}

func (m *Merger) Schema() []string {
	out := make([]string, len(m.schema))
	copy(out, m.schema)
	return out
}

// Merge produces the record for the file provided. Results are applied in
// order, with later results overwriting the concrete values of earlier ones;
// a NotAvailable value never overwrites a concrete one. Failed results
// contribute only their source-scoped error. If every result failed, the
// combined failure is also recorded as the top-level error.
func (m *Merger) Merge(file media.File, results []extract.Result) *media.Record {
	record := media.NewRecord(m.schema)
	for k, v := range file.Fields() {
		record.Set(k, v)
	}

	var failures *multierror.Error
	for _, result := range results {
		if result.Failed() {
			failures = multierror.Append(failures, result.Err)
			record.Set(media.SourceErrorField(result.Source), errorMessage(result.Err))
			continue
		}

		for k, v := range result.Fields {
			// Fields outside of the schema are dropped so every record
			// in a batch shares the same shape.
			if _, declared := record.Get(k); !declared || !media.IsAvailable(v) {
				continue
			}

			record.Set(k, v)
		}
	}

	if failures != nil && len(failures.Errors) == len(results) {
		failures.ErrorFormat = formatErrors
		record.Set(media.FieldError, failures.Error())
	}

	return record
}

// Degraded produces a record containing only the file system facts for the
// file, with the error provided recorded as the top-level error. This is
// used when processing of the file failed outright.
func (m *Merger) Degraded(file media.File, err error) *media.Record {
	record := media.NewRecord(m.schema)
	for k, v := range file.Fields() {
		record.Set(k, v)
	}

	record.Set(media.FieldError, err.Error())
	return record
}

func errorMessage(err error) string {
	var sourceErr *extract.SourceError
	if errors.As(err, &sourceErr) {
		return sourceErr.Message()
	}

	return err.Error()
}

func formatErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}

	msg := fmt.Sprintf("%d extractors failed:", len(errs))
	for _, err := range errs {
		msg += " [" + err.Error() + "]"
	}

	return msg
}
