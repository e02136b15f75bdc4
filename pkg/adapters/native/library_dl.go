//go:build (darwin || freebsd || linux) && (amd64 || arm64 || riscv64 || ppc64le || s390x || loong64 || mips64 || mips64le)

package native

import (
	"sync"

	"github.com/ebitengine/purego"
)

var (
	loadMu sync.Mutex
	loaded = map[string]*dlLibrary{}
)

type dlLibrary struct {
	handle uintptr
}

// Dlopen loads the artifact with dlopen. Each path is opened at most once
// per process and never closed: clients share the mapping, and unloading
// code a live handle may still point into is never safe.
func Dlopen(path string) (Library, error) {
	loadMu.Lock()
	defer loadMu.Unlock()

	if lib, ok := loaded[path]; ok {
		return lib, nil
	}
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}
	lib := &dlLibrary{handle: handle}
	loaded[path] = lib
	return lib, nil
}

func (l *dlLibrary) Lookup(symbol string) (Proc, error) {
	sym, err := purego.Dlsym(l.handle, symbol)
	if err != nil {
		return nil, err
	}
	return func(args ...uintptr) uintptr {
		r1, _, _ := purego.SyscallN(sym, args...)
		return r1
	}, nil
}
