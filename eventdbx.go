package eventdbx

import (
	"log/slog"

	"github.com/aretw0/eventdbx/internal/platform"
	"github.com/aretw0/eventdbx/pkg/adapters/native"
	"github.com/aretw0/eventdbx/pkg/core"
)

// --- Types ---

// Client is a connection to the native engine.
type Client = native.Client

// Engine is the contract shared by Client and Service.
type Engine = core.Engine

// Service wraps an Engine with argument validation.
type Service = core.Service

// Response is a decoded native result.
type Response = core.Response

// Config is sent to the native constructor as JSON.
type Config = core.Config

type (
	ListAggregatesOptions = core.ListAggregatesOptions
	ListEventsOptions     = core.ListEventsOptions
	PayloadOptions        = core.PayloadOptions
	ArchiveOptions        = core.ArchiveOptions
	SnapshotOptions       = core.SnapshotOptions
	PublishTarget         = core.PublishTarget
	SortKey               = core.SortKey
	SortField             = core.SortField
)

const (
	SortAggregateType = core.SortAggregateType
	SortAggregateID   = core.SortAggregateID
	SortArchived      = core.SortArchived
	SortCreatedAt     = core.SortCreatedAt
	SortUpdatedAt     = core.SortUpdatedAt
)

// SortSpec renders sort keys for ListAggregatesOptions.Sort.
func SortSpec(keys ...SortKey) string {
	return core.SortSpec(keys...)
}

// --- Errors ---

type (
	LibraryNotFoundError = core.LibraryNotFoundError
	EncodingError        = core.EncodingError
	NativeError          = core.NativeError
	NoDataError          = core.NoDataError
	DecodingError        = core.DecodingError
	LoadError            = native.LoadError
)

var (
	// ErrClosed is returned by calls made after Close.
	ErrClosed = core.ErrClosed
	// ErrEmptyArgument is returned by Service for empty identifiers.
	ErrEmptyArgument = core.ErrEmptyArgument
)

// --- Configuration ---

// Option defines a functional option for opening a client.
type Option = platform.Option

// EnvLibraryPath names the environment variable consulted when no explicit
// library path is given.
const EnvLibraryPath = platform.EnvLibraryPath

// WithLibraryPath sets the native artifact (a path or doublestar glob).
func WithLibraryPath(path string) Option {
	return platform.WithLibraryPath(path)
}

// WithSearchDir sets where the upward search for native/ starts.
func WithSearchDir(dir string) Option {
	return platform.WithSearchDir(dir)
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStrict keeps response numbers as json.Number.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// --- Factory ---

// Open loads the native library and connects with cfg.
func Open(cfg any, opts ...Option) (*Client, error) {
	return platform.Open(cfg, opts...)
}

// New is Open wrapped in a Service.
func New(cfg any, opts ...Option) (*Service, error) {
	return platform.New(cfg, opts...)
}

// NewService wraps an existing engine.
func NewService(engine Engine) *Service {
	return core.NewService(engine)
}

// LibraryPath reports which artifact Open would load.
func LibraryPath(opts ...Option) (string, error) {
	return platform.LibraryPath(opts...)
}
