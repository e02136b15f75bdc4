// Package native binds the eventdbx shared library. It owns the connection
// handle, lends request strings to the native side for the duration of each
// call, and reclaims every string the native side hands back.
package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/eventdbx/pkg/codec"
	"github.com/aretw0/eventdbx/pkg/core"
)

// Options configures Open.
type Options struct {
	// Path is the resolved location of the shared library.
	Path string
	// Config is encoded and handed to the native constructor unread. It is
	// usually a core.Config, but any JSON object is accepted.
	Config any
	// Logger receives per-call debug records. Nil disables logging.
	Logger *slog.Logger
	// Strict decodes response numbers as json.Number.
	Strict bool
	// Loader opens the artifact. Nil means Dlopen.
	Loader Loader
}

// Client owns one native connection handle from Open until Close.
//
// A Client is not safe for concurrent use: the native handle offers no
// synchronization and the client adds none. Serialize calls through a single
// owner, or open one client per goroutine.
type Client struct {
	path     string
	handle   uintptr
	lib      *bindings
	disp     dispatcher
	logger   *slog.Logger
	strict   bool
	calls    int
	failures int
	lastOp   string
	closed   bool
}

// Open loads the library at o.Path and connects with o.Config.
// It fails with *core.LibraryNotFoundError before touching any symbol when
// the file does not exist. A constructor failure leaves nothing to release.
func Open(o Options) (*Client, error) {
	if _, err := os.Stat(o.Path); err != nil {
		return nil, &core.LibraryNotFoundError{Path: o.Path}
	}

	loader := o.Loader
	if loader == nil {
		loader = Dlopen
	}
	lib, err := loader(o.Path)
	if err != nil {
		return nil, &LoadError{Path: o.Path, Err: err}
	}
	b, err := bind(o.Path, lib)
	if err != nil {
		return nil, err
	}

	c := &Client{
		path:   o.Path,
		lib:    b,
		disp:   dispatcher{lib: b, codec: codec.New(o.Strict)},
		logger: o.Logger,
		strict: o.Strict,
	}

	handle, err := c.connect(o.Config)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("native connect failed", "path", o.Path, "error", err)
		}
		return nil, err
	}
	c.handle = handle

	if c.logger != nil {
		c.logger.Debug("native client opened", "path", o.Path)
	}
	return c, nil
}

// connect runs the constructor through the same ownership rules as any
// operation: the config string is lent, the error string is taken.
func (c *Client) connect(cfg any) (uintptr, error) {
	data, err := c.disp.codec.Encode(cfg)
	if err != nil {
		return 0, withOp(err, OpClientNew)
	}

	var a arena
	defer a.release()

	handle := c.lib.clientNew(a.text(data), a.errorSlot())
	if msg := c.lib.take(a.errorPtr()); len(msg) > 0 {
		if handle != 0 {
			c.lib.clientFree(handle)
		}
		return 0, &core.NativeError{Op: OpClientNew, Message: string(msg)}
	}
	if handle == 0 {
		return 0, &core.NoDataError{Op: OpClientNew}
	}
	return handle, nil
}

// Close releases the native handle. Later calls, and calls on a nil client,
// are no-ops.
func (c *Client) Close() error {
	if c == nil || c.closed {
		return nil
	}
	c.closed = true
	if c.handle == 0 {
		return nil
	}
	handle := c.handle
	c.handle = 0
	c.lib.clientFree(handle)
	if c.logger != nil {
		c.logger.Debug("native client closed", "path", c.path, "calls", c.calls)
	}
	return nil
}

// Path returns the library the client was opened from.
func (c *Client) Path() string { return c.path }

func (c *Client) call(name string, args ...any) (*core.Response, error) {
	if c == nil || c.closed || c.handle == 0 {
		return nil, core.ErrClosed
	}
	op, ok := operations[name]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", name)
	}

	start := time.Now()
	resp, err := c.disp.invoke(c.handle, op, args...)
	c.calls++
	c.lastOp = name
	if err != nil {
		c.failures++
		if c.logger != nil {
			level := slog.LevelDebug
			var ne *core.NativeError
			if errors.As(err, &ne) {
				level = slog.LevelWarn
			}
			c.logger.Log(context.Background(), level, "native call failed", "op", name, "symbol", op.Symbol, "duration", time.Since(start), "error", err)
		}
		return nil, err
	}
	if c.logger != nil {
		c.logger.Debug("native call", "op", name, "symbol", op.Symbol, "duration", time.Since(start), "bytes", len(resp.Raw))
	}
	return resp, nil
}

// ListAggregates lists aggregates, optionally restricted to aggregateType.
// An empty aggregateType lists every type.
func (c *Client) ListAggregates(aggregateType string, opts *core.ListAggregatesOptions) (*core.Response, error) {
	return c.call(OpListAggregates, aggregateType, opts)
}

// GetAggregate fetches the current state of one aggregate.
func (c *Client) GetAggregate(aggregateType, aggregateID string) (*core.Response, error) {
	return c.call(OpGetAggregate, aggregateType, aggregateID)
}

// SelectAggregate projects fields of one aggregate. Nil fields is sent as null.
func (c *Client) SelectAggregate(aggregateType, aggregateID string, fields []string) (*core.Response, error) {
	return c.call(OpSelectAggregate, aggregateType, aggregateID, fields)
}

// ListEvents pages through the event log of one aggregate.
func (c *Client) ListEvents(aggregateType, aggregateID string, opts *core.ListEventsOptions) (*core.Response, error) {
	return c.call(OpListEvents, aggregateType, aggregateID, opts)
}

// AppendEvent appends eventType to an existing aggregate.
func (c *Client) AppendEvent(aggregateType, aggregateID, eventType string, opts *core.PayloadOptions) (*core.Response, error) {
	return c.call(OpAppendEvent, aggregateType, aggregateID, eventType, opts)
}

// CreateAggregate creates an aggregate with eventType as its first event.
func (c *Client) CreateAggregate(aggregateType, aggregateID, eventType string, opts *core.PayloadOptions) (*core.Response, error) {
	return c.call(OpCreateAggregate, aggregateType, aggregateID, eventType, opts)
}

// PatchEvent applies patch to the latest eventType event of an aggregate.
func (c *Client) PatchEvent(aggregateType, aggregateID, eventType string, patch any, opts *core.PayloadOptions) (*core.Response, error) {
	return c.call(OpPatchEvent, aggregateType, aggregateID, eventType, patch, opts)
}

// SetArchive sets the archived flag of an aggregate.
func (c *Client) SetArchive(aggregateType, aggregateID string, archived bool, opts *core.ArchiveOptions) (*core.Response, error) {
	return c.call(OpSetArchive, aggregateType, aggregateID, archived, opts)
}

// Archive is SetArchive(..., true, ...).
func (c *Client) Archive(aggregateType, aggregateID string, opts *core.ArchiveOptions) (*core.Response, error) {
	return c.SetArchive(aggregateType, aggregateID, true, opts)
}

// Restore is SetArchive(..., false, ...).
func (c *Client) Restore(aggregateType, aggregateID string, opts *core.ArchiveOptions) (*core.Response, error) {
	return c.SetArchive(aggregateType, aggregateID, false, opts)
}

// VerifyAggregate asks the engine to recompute the aggregate's Merkle root.
func (c *Client) VerifyAggregate(aggregateType, aggregateID string) (*core.Response, error) {
	return c.call(OpVerifyAggregate, aggregateType, aggregateID)
}

// CreateSnapshot snapshots the current state of an aggregate.
func (c *Client) CreateSnapshot(aggregateType, aggregateID string, opts core.SnapshotOptions) (*core.Response, error) {
	return c.call(OpCreateSnapshot, aggregateType, aggregateID, opts)
}

// ListSnapshots lists stored snapshots.
func (c *Client) ListSnapshots(opts core.SnapshotOptions) (*core.Response, error) {
	return c.call(OpListSnapshots, opts)
}

// GetSnapshot fetches one snapshot by id.
func (c *Client) GetSnapshot(snapshotID uint64, opts core.SnapshotOptions) (*core.Response, error) {
	return c.call(OpGetSnapshot, snapshotID, opts)
}

var _ core.Engine = (*Client)(nil)
