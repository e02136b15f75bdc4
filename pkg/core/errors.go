package core

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by every operation invoked after Close released the
// native handle.
var ErrClosed = errors.New("eventdbx: client is closed")

// LibraryNotFoundError reports that the native artifact does not exist at the
// resolved path. It is raised before any symbol is bound.
type LibraryNotFoundError struct {
	Path string
}

func (e *LibraryNotFoundError) Error() string {
	return fmt.Sprintf("native library not found at %s", e.Path)
}

// EncodingError reports a request value the wire format cannot express.
// No native call is made when it is returned.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("encode request: %v", e.Err)
	}
	return fmt.Sprintf("encode %s request: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// NativeError carries the message the native library wrote into the error
// slot. Error returns that message unmodified.
type NativeError struct {
	Op      string
	Message string
}

func (e *NativeError) Error() string { return e.Message }

// NoDataError reports a call that succeeded natively but returned nothing
// where a result was required.
type NoDataError struct {
	Op string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("%s returned no data", e.Op)
}

// DecodingError reports a non-empty native result that is not valid JSON,
// or that does not fit the shape a typed view expected.
type DecodingError struct {
	Op  string
	Err error
}

func (e *DecodingError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("decode response: %v", e.Err)
	}
	return fmt.Sprintf("decode %s response: %v", e.Op, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

// ErrEmptyArgument is returned by Service when a required identifier is
// empty. It is wrapped with the argument name.
var ErrEmptyArgument = errors.New("required argument is empty")
