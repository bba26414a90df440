package domain

import (
	"bytes"
	"encoding/json"
)

// Record is a row keyed by source (or target) header name. Keys keep the
// order in which they were first set so that rows round-trip to JSON and to
// spreadsheets in their original column order.
type Record struct {
	keys   []string
	values map[string]string
}

func NewRecord() Record {
	return Record{values: make(map[string]string)}
}

func (r *Record) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value for key, or "" when absent.
func (r Record) Value(key string) string {
	return r.values[key]
}

func (r Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Record) Len() int {
	return len(r.keys)
}

// IsBlank reports whether every value is empty.
func (r Record) IsBlank() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

func (r Record) Equal(other Record) bool {
	if len(r.keys) != len(other.keys) {
		return false
	}
	for i, k := range r.keys {
		if other.keys[i] != k || other.values[k] != r.values[k] {
			return false
		}
	}
	return true
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
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
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = NewRecord()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		switch v := raw.(type) {
		case string:
			r.Set(key, v)
		case nil:
			r.Set(key, "")
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return err
			}
			r.Set(key, string(b))
		}
	}
	_, err := dec.Token()
	return err
}

// Table is the parsed content of an uploaded file.
type Table struct {
	Headers []string `json:"headers"`
	Rows    []Record `json:"rows"`
}
