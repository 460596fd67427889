// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotObject is returned by DecodeRecord for JSON that is not an object.
var ErrNotObject = errors.New("document is not a JSON object")

// Reserved record fields shared by source datasets and stores.
const (
	FieldID   = "_id"
	FieldName = "name"
	FieldType = "type"
)

// Record is an untyped structured document as decoded from a dataset or
// read back from a pack. Nested objects are map[string]any, arrays are
// []any and numbers are json.Number, as DecodeRecord produces them.
type Record map[string]any

// ID returns the record identifier, or "" when absent or not a string.
func (r Record) ID() string { return r.str(FieldID) }

// Name returns the display label.
func (r Record) Name() string { return r.str(FieldName) }

// Type returns the type discriminator (e.g. an item subtype).
func (r Record) Type() string { return r.str(FieldType) }

func (r Record) str(key string) string {
	if r == nil {
		return ""
	}
	s, _ := r[key].(string)
	return s
}

// Label returns the name when present and the identifier otherwise. It is
// used when reporting on a record.
func (r Record) Label() string {
	if n := r.Name(); n != "" {
		return n
	}
	return r.ID()
}

// DecodeRecord decodes one JSON object. Numbers decode as json.Number so
// integers beyond float64 precision survive a round trip.
func DecodeRecord(data []byte) (Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: %s", ErrNotObject, describeJSON(data))
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	if rec == nil {
		rec = Record{}
	}
	return rec, nil
}

func describeJSON(data []byte) string {
	switch {
	case len(data) == 0:
		return "empty"
	case data[0] == '[':
		return "array"
	case data[0] == '"':
		return "string"
	case bytes.Equal(data, []byte("null")):
		return "null"
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		return "boolean"
	default:
		return "number"
	}
}

// Clone returns a deep copy of the record. Maps and slices are copied
// recursively; scalar values are shared.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return CloneValue(map[string]any(r)).(map[string]any)
}

// CloneValue deep-copies a decoded JSON value.
func CloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return Record(CloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}

// IndexEntry is one row of a pack listing: just enough to match records
// without loading their bodies.
type IndexEntry struct {
	ID   string `json:"_id" yaml:"_id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}
