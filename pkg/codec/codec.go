// Package codec converts host values to and from the JSON strings that cross
// the native boundary.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/aretw0/eventdbx/pkg/core"
)

// Null is the literal sent in place of an absent options, fields or patch
// argument so the native side always receives a well-formed value.
const Null = "null"

// Codec encodes requests and decodes responses.
type Codec struct {
	// Strict decodes numbers as json.Number instead of float64 so large
	// integers (event versions, snapshot ids) keep their precision.
	Strict bool
}

// New returns a codec.
func New(strict bool) *Codec {
	return &Codec{Strict: strict}
}

// Encode serializes v. Values JSON cannot represent (NaN, infinities,
// channels, functions) fail with *core.EncodingError. A nil v encodes as Null.
func (c *Codec) Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, &core.EncodingError{Err: err}
	}
	return data, nil
}

// EncodeText validates a scalar that is passed as a raw C string. Such
// strings end at the first NUL byte, so one embedded in the value would be
// silently truncated by the native side.
func (c *Codec) EncodeText(s string) ([]byte, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, &core.EncodingError{Err: errors.New("text argument contains a NUL byte")}
	}
	return []byte(s), nil
}

// Decode parses a complete JSON document. Syntax errors and trailing data
// fail with *core.DecodingError.
func (c *Codec) Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if c.Strict {
		dec.UseNumber()
	}

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &core.DecodingError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, &core.DecodingError{Err: err}
	}
	return v, nil
}
