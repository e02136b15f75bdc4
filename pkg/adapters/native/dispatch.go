package native

import (
	"errors"
	"fmt"

	"github.com/aretw0/eventdbx/pkg/codec"
	"github.com/aretw0/eventdbx/pkg/core"
)

// dispatcher invokes any operation in the descriptor table. It knows nothing
// about individual operations beyond their descriptors.
type dispatcher struct {
	lib   *bindings
	codec *codec.Codec
}

// lower encodes args according to op.Args and lends them to the arena.
// It runs before the native call; a failure here means nothing was invoked.
func (d *dispatcher) lower(a *arena, op Operation, args []any) ([]uintptr, error) {
	if len(args) != len(op.Args) {
		return nil, &core.EncodingError{Op: op.Name, Err: fmt.Errorf("expected %d arguments, got %d", len(op.Args), len(args))}
	}

	words := make([]uintptr, 0, len(args))
	for i, kind := range op.Args {
		switch kind {
		case ArgText:
			s, ok := args[i].(string)
			if !ok {
				return nil, argError(op, i, kind, args[i])
			}
			data, err := d.codec.EncodeText(s)
			if err != nil {
				return nil, withOp(err, op.Name)
			}
			words = append(words, a.text(data))
		case ArgJSON:
			data, err := d.codec.Encode(args[i])
			if err != nil {
				return nil, withOp(err, op.Name)
			}
			words = append(words, a.text(data))
		case ArgBool:
			v, ok := args[i].(bool)
			if !ok {
				return nil, argError(op, i, kind, args[i])
			}
			var w uintptr
			if v {
				w = 1
			}
			words = append(words, w)
		case ArgUint64:
			v, ok := args[i].(uint64)
			if !ok {
				return nil, argError(op, i, kind, args[i])
			}
			w := uintptr(v)
			if uint64(w) != v {
				return nil, &core.EncodingError{Op: op.Name, Err: fmt.Errorf("argument %d: %d does not fit a machine word", i, v)}
			}
			words = append(words, w)
		default:
			return nil, argError(op, i, kind, args[i])
		}
	}
	return words, nil
}

// invoke calls op on handle: (handle, args..., &errorSlot).
func (d *dispatcher) invoke(handle uintptr, op Operation, args ...any) (*core.Response, error) {
	proc, err := d.lib.proc(op)
	if err != nil {
		return nil, err
	}

	var a arena
	defer a.release()

	words, err := d.lower(&a, op, args)
	if err != nil {
		return nil, err
	}

	call := make([]uintptr, 0, len(words)+2)
	call = append(call, handle)
	call = append(call, words...)
	call = append(call, a.errorSlot())

	ret := proc(call...)
	return d.settle(op.Name, ret, a.errorPtr())
}

// settle applies the ownership protocol to the two return channels. Both
// native strings are released before it returns, whatever the outcome.
func (d *dispatcher) settle(name string, ret, errPtr uintptr) (*core.Response, error) {
	msg := d.lib.take(errPtr)
	raw := d.lib.take(ret)

	if len(msg) > 0 {
		return nil, &core.NativeError{Op: name, Message: string(msg)}
	}
	if len(raw) == 0 {
		return nil, &core.NoDataError{Op: name}
	}

	v, err := d.codec.Decode(raw)
	if err != nil {
		return nil, withOp(err, name)
	}
	return &core.Response{Op: name, Raw: raw, Value: v}, nil
}

func argError(op Operation, i int, kind ArgKind, got any) error {
	return &core.EncodingError{Op: op.Name, Err: fmt.Errorf("argument %d: want %s, got %T", i, kind, got)}
}

// withOp stamps the operation name onto codec errors.
func withOp(err error, name string) error {
	var encErr *core.EncodingError
	if errors.As(err, &encErr) && encErr.Op == "" {
		encErr.Op = name
	}
	var decErr *core.DecodingError
	if errors.As(err, &decErr) && decErr.Op == "" {
		decErr.Op = name
	}
	return err
}
