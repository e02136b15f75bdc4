//go:build !((darwin || freebsd || linux) && (amd64 || arm64 || riscv64 || ppc64le || s390x || loong64 || mips64 || mips64le))

package native

import (
	"fmt"
	"runtime"
)

// Dlopen is unavailable on this platform. 32-bit targets are excluded
// because uint64 arguments do not fit in one call word there.
func Dlopen(path string) (Library, error) {
	return nil, fmt.Errorf("dynamic loading is not supported on %s/%s", runtime.GOOS, runtime.GOARCH)
}
