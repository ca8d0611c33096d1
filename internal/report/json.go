package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hbomb79/mediascan/internal/media"
)

var ErrNoRecords = errors.New("document contains no records")

// WriteJSON writes the records as an indented JSON array, with each record's
// keys in schema order.
func WriteJSON(path string, records []*media.Record) error {
	staged, err := stageJSON(path, records)
	if err != nil {
		return err
	}

	return commitAll(staged)
}

func stageJSON(path string, records []*media.Record) (*stagedFile, error) {
	if records == nil {
		records = make([]*media.Record, 0)
	}

	staged, err := stage(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	})
	if err != nil {
		return nil, err
	}

	staged.summary = fmt.Sprintf("%d records", len(records))
	return staged, nil
}

// ReadJSON loads the records from a JSON document previously written
// by WriteJSON.
func ReadJSON(path string) ([]*media.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var decoded []*media.Record
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode records from %s: %w", path, err)
	}

	records := make([]*media.Record, 0, len(decoded))
	for _, r := range decoded {
		if r != nil {
			records = append(records, r)
		}
	}

	return records, nil
}

// SchemaOf returns the union of the keys of the records provided, in
// the order each key is first seen.
func SchemaOf(records []*media.Record) []string {
	seen := make(map[string]struct{})
	schema := make([]string, 0)
	for _, r := range records {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				schema = append(schema, k)
			}
		}
	}

	return schema
}

// Convert loads the records from the JSON document at jsonPath and writes
// them to a workbook at xlsxPath, with one worksheet per folder.
func Convert(jsonPath, xlsxPath string) error {
	records, err := ReadJSON(jsonPath)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("cannot convert %s: %w", jsonPath, ErrNoRecords)
	}

	return WriteXLSX(xlsxPath, SchemaOf(records), records, Options{GroupByFolder: true})
}
