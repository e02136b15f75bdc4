package native

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unsafe"
)

// fakeNative implements the native contract in Go. It hands out strings the
// way the C library does and records every allocation so tests can prove
// each one is released exactly once.
type fakeNative struct {
	t          *testing.T
	live       map[uintptr][]byte
	handles    map[uintptr]bool
	nextHandle uintptr
	calls      []string
	omit       map[string]bool
	// freeHandleOnError makes the constructor return a handle together with
	// an error, which a well-behaved library never does.
	freeHandleOnError bool
}

func newFakeNative(t *testing.T) *fakeNative {
	f := &fakeNative{
		t:          t,
		live:       make(map[uintptr][]byte),
		handles:    make(map[uintptr]bool),
		nextHandle: 0x1000,
		omit:       make(map[string]bool),
	}
	t.Cleanup(f.assertReleased)
	return f
}

// loader returns a Loader serving f and a path that exists on disk.
func (f *fakeNative) loader() (Loader, string) {
	path := filepath.Join(f.t.TempDir(), "libeventdbx_native.so")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		f.t.Fatal(err)
	}
	return func(string) (Library, error) { return f, nil }, path
}

func (f *fakeNative) assertReleased() {
	f.t.Helper()
	for p, b := range f.live {
		f.t.Errorf("native string %#x leaked: %q", p, b[:len(b)-1])
	}
	for h, open := range f.handles {
		if open {
			f.t.Errorf("handle %#x never released", h)
		}
	}
}

func (f *fakeNative) alloc(s string) uintptr {
	buf := append([]byte(s), 0)
	p := uintptr(unsafe.Pointer(&buf[0]))
	f.live[p] = buf
	return p
}

func (f *fakeNative) writeSlot(slot uintptr, msg string) {
	dst := *(**uintptr)(unsafe.Pointer(&slot))
	*dst = f.alloc(msg)
}

func (f *fakeNative) clearSlot(slot uintptr) {
	dst := *(**uintptr)(unsafe.Pointer(&slot))
	*dst = 0
}

func (f *fakeNative) Lookup(symbol string) (Proc, error) {
	if f.omit[symbol] {
		return nil, fmt.Errorf("undefined symbol: %s", symbol)
	}
	switch symbol {
	case symStringFree:
		return f.stringFree, nil
	case symClientNew:
		return f.clientNew, nil
	case symClientFree:
		return f.clientFree, nil
	}
	for _, op := range operations {
		if op.Symbol == symbol {
			return f.operation(op), nil
		}
	}
	return nil, fmt.Errorf("undefined symbol: %s", symbol)
}

func (f *fakeNative) stringFree(args ...uintptr) uintptr {
	p := args[0]
	if p == 0 {
		return 0
	}
	if _, ok := f.live[p]; !ok {
		f.t.Errorf("dbx_string_free(%#x): double free or foreign pointer", p)
		return 0
	}
	delete(f.live, p)
	return 0
}

func (f *fakeNative) clientNew(args ...uintptr) uintptr {
	f.calls = append(f.calls, symClientNew)
	cfg := string(copyCString(args[0]))
	slot := args[1]
	if strings.Contains(cfg, "config-error") {
		f.writeSlot(slot, "config failure from stub library")
		if f.freeHandleOnError {
			return f.newHandle()
		}
		return 0
	}
	f.clearSlot(slot)
	return f.newHandle()
}

func (f *fakeNative) newHandle() uintptr {
	h := f.nextHandle
	f.nextHandle += 0x10
	f.handles[h] = true
	return h
}

func (f *fakeNative) clientFree(args ...uintptr) uintptr {
	h := args[0]
	if h == 0 {
		f.t.Errorf("dbx_client_free called with NULL")
		return 0
	}
	if !f.handles[h] {
		f.t.Errorf("dbx_client_free(%#x): double free or unknown handle", h)
		return 0
	}
	f.handles[h] = false
	return 0
}

// operation mimics the C test stub: markers in the leading text arguments
// (or in the options of the snapshot list/get calls) select an error, a NULL
// result or malformed JSON; otherwise the call is echoed back as JSON.
func (f *fakeNative) operation(op Operation) Proc {
	return func(args ...uintptr) uintptr {
		f.calls = append(f.calls, op.Symbol)
		if len(args) != len(op.Args)+2 {
			f.t.Errorf("%s: got %d words, want %d", op.Symbol, len(args), len(op.Args)+2)
			return 0
		}
		handle, slot := args[0], args[len(args)-1]
		if !f.handles[handle] {
			f.t.Errorf("%s: called with dead handle %#x", op.Symbol, handle)
		}

		echo := map[string]any{"function": op.Symbol}
		var markers []string
		for i, kind := range op.Args {
			w := args[i+1]
			key := argNames[op.Name][i]
			switch kind {
			case ArgText:
				s := string(copyCString(w))
				echo[key] = s
				markers = append(markers, s)
			case ArgJSON:
				raw := copyCString(w)
				echo[key] = json.RawMessage(raw)
				if op.Args[0] != ArgText {
					markers = append(markers, string(raw))
				}
			case ArgBool:
				echo[key] = w != 0
			case ArgUint64:
				echo[key] = uint64(w)
			}
		}

		switch {
		case hasMarker(markers, "native-error"):
			f.writeSlot(slot, "native error from stub library")
			return 0
		case hasMarker(markers, "no-data"):
			f.clearSlot(slot)
			return 0
		case hasMarker(markers, "bad-json"):
			f.clearSlot(slot)
			return f.alloc(fmt.Sprintf(`{"function":"%s","broken": [}`, op.Symbol))
		}

		f.clearSlot(slot)
		out, err := json.Marshal(echo)
		if err != nil {
			f.t.Errorf("%s: echo: %v", op.Symbol, err)
			return 0
		}
		return f.alloc(string(out))
	}
}

func hasMarker(values []string, marker string) bool {
	for _, v := range values {
		if strings.Contains(v, marker) {
			return true
		}
	}
	return false
}

var argNames = map[string][]string{
	OpListAggregates:  {"aggregate_type", "options"},
	OpGetAggregate:    {"aggregate_type", "aggregate_id"},
	OpSelectAggregate: {"aggregate_type", "aggregate_id", "fields"},
	OpListEvents:      {"aggregate_type", "aggregate_id", "options"},
	OpAppendEvent:     {"aggregate_type", "aggregate_id", "event_type", "options"},
	OpCreateAggregate: {"aggregate_type", "aggregate_id", "event_type", "options"},
	OpPatchEvent:      {"aggregate_type", "aggregate_id", "event_type", "patch", "options"},
	OpSetArchive:      {"aggregate_type", "aggregate_id", "archived", "options"},
	OpVerifyAggregate: {"aggregate_type", "aggregate_id"},
	OpCreateSnapshot:  {"aggregate_type", "aggregate_id", "options"},
	OpListSnapshots:   {"options"},
	OpGetSnapshot:     {"snapshot_id", "options"},
}
