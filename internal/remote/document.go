// ABOUTME: Document field map with total, defaulting accessors.
// ABOUTME: Missing or malformed fields yield zero values instead of errors.
package remote

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Document is a remote record: string keys, primitive values, nested maps
// and lists of maps.
type Document map[string]any

// String returns the string field or "".
func (d Document) String(key string) string {
	switch v := d[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Int64 returns the integer field or 0. Numeric strings are accepted.
func (d Document) Int64(key string) int64 {
	n, _ := toInt64(d[key])
	return n
}

// Float returns the numeric field or 0.
func (d Document) Float(key string) float64 {
	f, _ := toFloat(d[key])
	return f
}

// Bool returns the boolean field or false.
func (d Document) Bool(key string) bool {
	switch v := d[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		if n, ok := toInt64(v); ok {
			return n != 0
		}
		return false
	}
}

// Has reports whether the key is present with a non-nil value.
func (d Document) Has(key string) bool {
	v, ok := d[key]
	return ok && v != nil
}

// Map returns the nested document field or an empty document.
func (d Document) Map(key string) Document {
	if m, ok := asDocument(d[key]); ok {
		return m
	}
	return Document{}
}

// List returns the list-of-maps field. Non-map elements are dropped.
func (d Document) List(key string) []Document {
	items, ok := asSlice(d[key])
	if !ok {
		return []Document{}
	}
	out := make([]Document, 0, len(items))
	for _, item := range items {
		if m, ok := asDocument(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func asDocument(v any) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]any:
		return Document(m), true
	default:
		return nil, false
	}
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []Document:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	default:
		return nil, false
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	case string:
		if i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Clone deep-copies the document through its JSON form, the way it
// travels over the wire.
func (d Document) Clone() (Document, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	var out Document
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
