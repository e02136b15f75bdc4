package eventdbx

import (
	"github.com/aretw0/eventdbx/pkg/typed"
)

// TypedRepository decodes the aggregates of one type into T and their
// events into E.
type TypedRepository[T, E any] = typed.Repository[T, E]

// Page is one page of a list operation.
type Page[T any] = typed.Page[T]

// NewTypedRepository creates a type-safe view of aggregateType over engine.
func NewTypedRepository[T, E any](engine Engine, aggregateType string) *TypedRepository[T, E] {
	return typed.NewRepository[T, E](engine, aggregateType)
}

// OpenTypedRepository opens a client and returns a typed view over it.
// Closing is done through the returned Engine.
func OpenTypedRepository[T, E any](cfg any, aggregateType string, opts ...Option) (*TypedRepository[T, E], Engine, error) {
	svc, err := New(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return typed.NewRepository[T, E](svc, aggregateType), svc, nil
}
