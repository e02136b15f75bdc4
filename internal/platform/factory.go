package platform

import (
	"github.com/aretw0/eventdbx/pkg/adapters/native"
	"github.com/aretw0/eventdbx/pkg/core"
)

// Open resolves the native library, loads it and connects with cfg.
//
//	c, err := eventdbx.Open(eventdbx.Config{Token: token}, eventdbx.WithLibraryPath(path))
//	defer c.Close()
func Open(cfg any, opts ...Option) (*native.Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	path, err := ResolveLibraryPath(o.libraryPath, o.searchFrom, o.getenv)
	if err != nil {
		return nil, err
	}

	if o.logger != nil {
		o.logger.Debug("resolved native library", "path", path)
	}

	return native.Open(native.Options{
		Path:   path,
		Config: cfg,
		Logger: o.logger,
		Strict: o.strict,
		Loader: o.loader,
	})
}

// New opens a client and wraps it in a core.Service, which validates
// identifiers before they reach the native library.
func New(cfg any, opts ...Option) (*core.Service, error) {
	c, err := Open(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return core.NewService(c), nil
}

// LibraryPath reports the artifact Open would load with opts, without
// loading it.
func LibraryPath(opts ...Option) (string, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return ResolveLibraryPath(o.libraryPath, o.searchFrom, o.getenv)
}
