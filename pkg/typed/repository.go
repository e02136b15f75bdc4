// Package typed decodes native responses into caller-defined structs.
//
// The bridge itself returns generic values; this package knows the envelope
// each operation answers with (items/nextCursor pages, found flags, event
// and aggregate wrappers) and unmarshals the interesting part into T.
package typed

import (
	"errors"

	"github.com/aretw0/eventdbx/pkg/core"
)

// Page is the envelope of list operations.
type Page[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"nextCursor"`
}

// HasMore reports whether another page can be requested with NextCursor.
func (p Page[T]) HasMore() bool {
	return p.NextCursor != nil && *p.NextCursor != ""
}

// Lookup is the envelope of GetAggregate.
type Lookup[T any] struct {
	Found     bool `json:"found"`
	Aggregate *T   `json:"aggregate"`
}

// Selection is the envelope of SelectAggregate.
type Selection struct {
	Found     bool           `json:"found"`
	Selection map[string]any `json:"selection"`
}

// EventEnvelope is the envelope of AppendEvent and PatchEvent.
type EventEnvelope[E any] struct {
	Event E `json:"event"`
}

// AggregateEnvelope is the envelope of CreateAggregate and SetArchive.
type AggregateEnvelope[T any] struct {
	Aggregate T `json:"aggregate"`
}

// Verification is the envelope of VerifyAggregate.
type Verification struct {
	MerkleRoot string `json:"merkleRoot"`
}

// Decode unmarshals a response into V. Shape mismatches fail with
// *core.DecodingError.
func Decode[V any](resp *core.Response) (V, error) {
	var v V
	if resp == nil {
		return v, &core.DecodingError{Err: errors.New("nil response")}
	}
	if err := resp.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// DecodeResult decodes the result of an Engine call, passing engine errors
// through untouched.
func DecodeResult[V any](resp *core.Response, err error) (V, error) {
	if err != nil {
		var zero V
		return zero, err
	}
	return Decode[V](resp)
}

// Repository gives type-safe access to the aggregates of one type. T is the
// aggregate state and E the event record the engine returns.
type Repository[T, E any] struct {
	engine        core.Engine
	aggregateType string
}

// NewRepository creates a typed view of aggregateType over engine.
func NewRepository[T, E any](engine core.Engine, aggregateType string) *Repository[T, E] {
	return &Repository[T, E]{engine: engine, aggregateType: aggregateType}
}

// AggregateType returns the aggregate type the repository is bound to.
func (r *Repository[T, E]) AggregateType() string { return r.aggregateType }

// List returns one page of aggregates.
func (r *Repository[T, E]) List(opts *core.ListAggregatesOptions) (Page[T], error) {
	return DecodeResult[Page[T]](r.engine.ListAggregates(r.aggregateType, opts))
}

// Get returns the aggregate and whether it exists.
func (r *Repository[T, E]) Get(id string) (T, bool, error) {
	var zero T
	lookup, err := DecodeResult[Lookup[T]](r.engine.GetAggregate(r.aggregateType, id))
	if err != nil {
		return zero, false, err
	}
	if !lookup.Found || lookup.Aggregate == nil {
		return zero, false, nil
	}
	return *lookup.Aggregate, true, nil
}

// Select returns the requested fields of an aggregate.
func (r *Repository[T, E]) Select(id string, fields ...string) (map[string]any, bool, error) {
	sel, err := DecodeResult[Selection](r.engine.SelectAggregate(r.aggregateType, id, fields))
	if err != nil {
		return nil, false, err
	}
	return sel.Selection, sel.Found, nil
}

// Create creates an aggregate whose first event is eventType.
func (r *Repository[T, E]) Create(id, eventType string, opts *core.PayloadOptions) (T, error) {
	env, err := DecodeResult[AggregateEnvelope[T]](r.engine.CreateAggregate(r.aggregateType, id, eventType, opts))
	return env.Aggregate, err
}

// Append appends an event and returns the stored record.
func (r *Repository[T, E]) Append(id, eventType string, opts *core.PayloadOptions) (E, error) {
	env, err := DecodeResult[EventEnvelope[E]](r.engine.AppendEvent(r.aggregateType, id, eventType, opts))
	return env.Event, err
}

// Patch patches the latest eventType event and returns the stored record.
func (r *Repository[T, E]) Patch(id, eventType string, patch any, opts *core.PayloadOptions) (E, error) {
	env, err := DecodeResult[EventEnvelope[E]](r.engine.PatchEvent(r.aggregateType, id, eventType, patch, opts))
	return env.Event, err
}

// Events returns one page of the aggregate's event log.
func (r *Repository[T, E]) Events(id string, opts *core.ListEventsOptions) (Page[E], error) {
	return DecodeResult[Page[E]](r.engine.ListEvents(r.aggregateType, id, opts))
}

// Archive archives the aggregate and returns its new state.
func (r *Repository[T, E]) Archive(id string, opts *core.ArchiveOptions) (T, error) {
	env, err := DecodeResult[AggregateEnvelope[T]](r.engine.SetArchive(r.aggregateType, id, true, opts))
	return env.Aggregate, err
}

// Restore un-archives the aggregate and returns its new state.
func (r *Repository[T, E]) Restore(id string, opts *core.ArchiveOptions) (T, error) {
	env, err := DecodeResult[AggregateEnvelope[T]](r.engine.SetArchive(r.aggregateType, id, false, opts))
	return env.Aggregate, err
}

// Verify returns the Merkle root the engine computed for the aggregate.
func (r *Repository[T, E]) Verify(id string) (string, error) {
	v, err := DecodeResult[Verification](r.engine.VerifyAggregate(r.aggregateType, id))
	return v.MerkleRoot, err
}
