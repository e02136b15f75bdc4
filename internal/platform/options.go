package platform

import (
	"log/slog"
	"os"

	"github.com/aretw0/eventdbx/pkg/adapters/native"
)

// options holds the internal configuration for opening a client.
type options struct {
	libraryPath string
	searchFrom  string
	logger      *slog.Logger
	strict      bool
	loader      native.Loader
	getenv      func(string) string
}

// Option defines a functional option for configuring the bridge.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		getenv: os.Getenv,
	}
}

// WithLibraryPath sets the native artifact explicitly. The path may be a
// doublestar glob (e.g. "/opt/eventdbx/**/libeventdbx_native.so"); the first
// match in lexical order is used.
func WithLibraryPath(path string) Option {
	return func(o *options) {
		o.libraryPath = path
	}
}

// WithSearchDir sets the directory the default resolution starts walking
// upward from. Defaults to the working directory.
func WithSearchDir(dir string) Option {
	return func(o *options) {
		o.searchFrom = dir
	}
}

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStrict decodes response numbers as json.Number to preserve the
// precision of large integers.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithLoader replaces dlopen (useful for testing).
func WithLoader(loader native.Loader) Option {
	return func(o *options) {
		o.loader = loader
	}
}

// WithEnv replaces os.Getenv for library resolution (useful for testing).
func WithEnv(getenv func(string) string) Option {
	return func(o *options) {
		o.getenv = getenv
	}
}
