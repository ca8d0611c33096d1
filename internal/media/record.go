package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is the normalized, merged metadata for a single media
// file. Fields are kept in insertion order so that reports (both
// spreadsheet and JSON) present them consistently.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord creates a record where every key provided is
// present and set to NotAvailable.
func NewRecord(keys []string) *Record {
	r := &Record{keys: make([]string, 0, len(keys)), values: make(map[string]any, len(keys))}
	for _, k := range keys {
		r.Set(k, NotAvailable)
	}

	return r
}

// Set stores the value for the key provided. New keys are appended
// to the end of the records key order.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}

	r.values[key] = value
}

func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// String returns the value for the key provided rendered as a string. Missing
// keys are rendered as NotAvailable.
func (r *Record) String(key string) string {
	v, ok := r.values[key]
	if !ok || v == nil {
		return NotAvailable
	}

	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}

	return fmt.Sprint(v)
}

// Keys returns a copy of the record's keys, in order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Record) Len() int { return len(r.keys) }

// MarshalJSON encodes the record as a JSON object, preserving key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %s: %w", k, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object in to the record, preserving the
// key order found in the document. Integral numbers decode as int64, all
// other numbers as float64.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object for record, found %v", tok)
	}

	r.keys = nil
	r.values = make(map[string]any)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, found %v", tok)
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("failed to decode field %s: %w", key, err)
		}

		r.Set(key, fromJSONValue(value))
	}

	_, err = dec.Token()
	return err
}

func fromJSONValue(v any) any {
	num, ok := v.(json.Number)
	if !ok {
		return v
	}

	if i, err := num.Int64(); err == nil {
		return i
	}
	if f, err := num.Float64(); err == nil {
		return f
	}

	return num.String()
}
