package core

import (
	"bytes"
	"encoding/json"
)

// Response is a decoded native result. Raw is a host-owned copy of the
// native string; Value is the same document decoded into generic Go values
// (map[string]any, []any, string, float64 or json.Number, bool, nil).
type Response struct {
	Op    string
	Raw   []byte
	Value any
}

// Map returns Value as a JSON object when it is one.
func (r *Response) Map() (map[string]any, bool) {
	if r == nil {
		return nil, false
	}
	m, ok := r.Value.(map[string]any)
	return m, ok
}

// Field returns a top-level member of an object response.
func (r *Response) Field(name string) (any, bool) {
	m, ok := r.Map()
	if !ok {
		return nil, false
	}
	v, ok := m[name]
	return v, ok
}

// Decode unmarshals Raw into v. Numbers keep their textual precision when v
// holds interface values.
func (r *Response) Decode(v any) error {
	dec := json.NewDecoder(bytes.NewReader(r.Raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &DecodingError{Op: r.Op, Err: err}
	}
	return nil
}
