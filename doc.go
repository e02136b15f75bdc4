// Package eventdbx is a Go bridge to the eventdbx native client library.
//
// The native library (libeventdbx_native) speaks the eventdbx control
// protocol. This package loads it at runtime, owns the connection handle,
// encodes every request as JSON and turns the C convention of a result
// pointer plus an error out-pointer into (*Response, error).
//
// Layers:
//
//   - pkg/codec: JSON encoding with typed encoding/decoding errors.
//   - pkg/adapters/native: library loading, string ownership, the operation
//     table and the Client.
//   - pkg/core: configuration, option bags, the error taxonomy and Service.
//   - pkg/typed: generic decoding of response envelopes.
//   - pkg/adapters/lifecycle: an event log poller for lifecycle supervisors.
//
// Usage:
//
//	c, err := eventdbx.Open(eventdbx.Config{Token: token},
//		eventdbx.WithLibraryPath("/opt/eventdbx/libeventdbx_native.so"),
//		eventdbx.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	resp, err := c.AppendEvent("order", "o-1", "OrderShipped", &eventdbx.PayloadOptions{
//		Payload: map[string]any{"carrier": "ups"},
//	})
//
// Errors are typed: *LibraryNotFoundError, *EncodingError, *NativeError,
// *NoDataError and *DecodingError, matched with errors.As. A Client is not
// safe for concurrent use.
package eventdbx
