package native

import (
	"fmt"
)

// Proc invokes a native entry point. Every argument and the return value are
// machine words: pointers, booleans (0/1) and 64-bit integers alike.
type Proc func(args ...uintptr) uintptr

// Library is a loaded native artifact.
type Library interface {
	Lookup(symbol string) (Proc, error)
}

// Loader opens the artifact at path. Dlopen is the production loader.
type Loader func(path string) (Library, error)

// LoadError reports an artifact that exists but could not be loaded, or
// that lacks a required symbol.
type LoadError struct {
	Path   string
	Symbol string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("load %s: symbol %s: %v", e.Path, e.Symbol, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// bindings is the resolved symbol table of one artifact. It is filled once
// by bind and only read afterwards.
type bindings struct {
	path       string
	clientNew  Proc
	clientFree Proc
	stringFree Proc
	ops        map[string]Proc
	missing    map[string]error
}

// bind resolves the lifecycle symbols, which are mandatory, and every
// operation symbol. Older artifacts may predate some operations (snapshots),
// so a missing operation symbol only fails calls to that operation.
func bind(path string, lib Library) (*bindings, error) {
	b := &bindings{
		path:    path,
		ops:     make(map[string]Proc, len(operations)),
		missing: make(map[string]error),
	}

	required := []struct {
		symbol string
		dst    *Proc
	}{
		{symClientNew, &b.clientNew},
		{symClientFree, &b.clientFree},
		{symStringFree, &b.stringFree},
	}
	for _, r := range required {
		proc, err := lib.Lookup(r.symbol)
		if err != nil {
			return nil, &LoadError{Path: path, Symbol: r.symbol, Err: err}
		}
		*r.dst = proc
	}

	for _, op := range operations {
		proc, err := lib.Lookup(op.Symbol)
		if err != nil {
			b.missing[op.Symbol] = err
			continue
		}
		b.ops[op.Symbol] = proc
	}
	return b, nil
}

func (b *bindings) proc(op Operation) (Proc, error) {
	if proc, ok := b.ops[op.Symbol]; ok {
		return proc, nil
	}
	return nil, &LoadError{Path: b.path, Symbol: op.Symbol, Err: b.missing[op.Symbol]}
}
