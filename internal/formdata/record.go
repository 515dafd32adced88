// Package formdata turns external data into the flat, ordered records the
// filler consumes, and maps or validates those records against a form.
package formdata

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Entry is one key/value pair of a Record.
type Entry struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Record is an ordered key/value collection. Values are scalars (string,
// bool, numbers, nil), slices of leaves, or nested Records before flattening.
type Record []Entry

// FromMap builds a Record from a map with keys in sorted order.
func FromMap(m map[string]any) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rec := make(Record, 0, len(keys))
	for _, k := range keys {
		rec = append(rec, Entry{Key: k, Value: m[k]})
	}
	return rec
}

// Keys returns the keys in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, e := range r {
		keys[i] = e.Key
	}
	return keys
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, e := range r {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set overwrites the value of an existing key in place, or appends a new entry.
func (r *Record) Set(key string, value any) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Entry{Key: key, Value: value})
}

// Map converts the record into a plain map, losing order.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, e := range r {
		if nested, ok := e.Value.(Record); ok {
			m[e.Key] = nested.Map()
			continue
		}
		m[e.Key] = e.Value
	}
	return m
}

// MarshalJSON renders the record as a JSON object keeping entry order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatValue renders a record value as form text. Booleans become
// true/false, numbers their shortest decimal form, slices are joined with
// ", " and nil becomes the empty string.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case json.Number:
		return val.String()
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = FormatValue(item)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(val, ", ")
	case Record:
		data, err := val.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(data), `"`)
	}
}

// IsEmpty reports whether v carries no value worth writing.
func IsEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}
