package native

import (
	"runtime"
	"unsafe"
)

// arena holds the host-owned memory lent to a single native call. Buffers
// are pinned so their addresses stay valid while the native side reads them
// and are released together once the call returns. The native side must not
// keep any of these pointers.
type arena struct {
	pinner runtime.Pinner
	slot   *uintptr
}

// text lends s to the native side as a NUL-terminated string.
func (a *arena) text(s []byte) uintptr {
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	a.pinner.Pin(&buf[0])
	return uintptr(unsafe.Pointer(&buf[0]))
}

// errorSlot returns the address of a zeroed word the native side writes its
// error string into.
func (a *arena) errorSlot() uintptr {
	a.slot = new(uintptr)
	a.pinner.Pin(a.slot)
	return uintptr(unsafe.Pointer(a.slot))
}

// errorPtr reads the slot after the call.
func (a *arena) errorPtr() uintptr {
	if a.slot == nil {
		return 0
	}
	return *a.slot
}

func (a *arena) release() {
	a.pinner.Unpin()
}

// take copies a native-allocated string into host memory and frees the
// native copy. It is the only place native strings are released, and each
// pointer reaches it exactly once. A NULL pointer yields nil.
func (b *bindings) take(p uintptr) []byte {
	if p == 0 {
		return nil
	}
	defer b.stringFree(p)
	return copyCString(p)
}

// copyCString copies the bytes up to the terminating NUL.
func copyCString(p uintptr) []byte {
	if p == 0 {
		return nil
	}
	// Reinterpret through a pointer to the word so the conversion is not
	// flagged as uintptr arithmetic.
	base := *(**byte)(unsafe.Pointer(&p))
	n := 0
	for *(*byte)(unsafe.Add(unsafe.Pointer(base), n)) != 0 {
		n++
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice(base, n))
	return out
}
