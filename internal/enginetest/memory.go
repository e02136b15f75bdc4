// Package enginetest provides an in-memory core.Engine that answers with
// the same JSON shapes as the native library.
package enginetest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/aretw0/eventdbx/pkg/codec"
	"github.com/aretw0/eventdbx/pkg/core"
)

type aggregate struct {
	AggregateType string         `json:"aggregateType"`
	AggregateID   string         `json:"aggregateId"`
	Version       uint64         `json:"version"`
	State         map[string]any `json:"state"`
	Archived      bool           `json:"archived"`
}

type event struct {
	AggregateType string `json:"aggregateType"`
	AggregateID   string `json:"aggregateId"`
	EventType     string `json:"eventType"`
	Version       uint64 `json:"version"`
	Payload       any    `json:"payload"`
	Metadata      any    `json:"metadata,omitempty"`
	Note          string `json:"note,omitempty"`
}

type snapshot struct {
	SnapshotID    uint64         `json:"snapshotId"`
	AggregateType string         `json:"aggregateType"`
	AggregateID   string         `json:"aggregateId"`
	Version       uint64         `json:"version"`
	State         map[string]any `json:"state"`
}

// Memory implements core.Engine in memory. Payload objects are merged into
// the aggregate state; PatchEvent applies its patch as a JSON merge patch.
// Response values keep numbers as json.Number, like a strict client.
type Memory struct {
	mu         sync.Mutex
	aggregates map[string]*aggregate
	events     map[string][]event
	snapshots  []snapshot
	closed     bool

	// Fail makes the named operation return the error instead of running.
	Fail map[string]error
	// Calls records the operation names in call order.
	Calls []string
}

var _ core.Engine = (*Memory)(nil)

// NewMemory returns an empty engine.
func NewMemory() *Memory {
	return &Memory{
		aggregates: make(map[string]*aggregate),
		events:     make(map[string][]event),
		Fail:       make(map[string]error),
	}
}

func key(aggregateType, aggregateID string) string {
	return aggregateType + "/" + aggregateID
}

func (m *Memory) begin(op string) error {
	m.Calls = append(m.Calls, op)
	if m.closed {
		return core.ErrClosed
	}
	if err := m.Fail[op]; err != nil {
		return err
	}
	return nil
}

func respond(op string, v any) (*core.Response, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, &core.EncodingError{Op: op, Err: err}
	}
	value, err := codec.New(true).Decode(raw)
	if err != nil {
		return nil, err
	}
	return &core.Response{Op: op, Raw: raw, Value: value}, nil
}

func notFound(op, aggregateType, aggregateID string) error {
	return &core.NativeError{Op: op, Message: fmt.Sprintf("aggregate %s::%s not found", aggregateType, aggregateID)}
}

// paginate slices items starting at the numeric cursor.
func paginate[T any](items []T, cursor string, take uint64) ([]T, *string, error) {
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return nil, nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		start = min(n, len(items))
	}
	end := len(items)
	if take > 0 && start+int(take) < end {
		end = start + int(take)
	}
	var next *string
	if end < len(items) {
		s := strconv.Itoa(end)
		next = &s
	}
	return items[start:end], next, nil
}

func merge(state map[string]any, payload any) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return
	}
	for k, v := range obj {
		if v == nil {
			delete(state, k)
			continue
		}
		state[k] = v
	}
}

func (m *Memory) ListAggregates(aggregateType string, opts *core.ListAggregatesOptions) (*core.Response, error) {
	const op = "list_aggregates"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &core.ListAggregatesOptions{}
	}
	var items []aggregate
	for _, a := range m.aggregates {
		if aggregateType != "" && a.AggregateType != aggregateType {
			continue
		}
		if opts.ArchivedOnly && !a.Archived {
			continue
		}
		if a.Archived && !opts.IncludeArchived && !opts.ArchivedOnly {
			continue
		}
		items = append(items, *a)
	}
	sort.Slice(items, func(i, j int) bool {
		return key(items[i].AggregateType, items[i].AggregateID) < key(items[j].AggregateType, items[j].AggregateID)
	})
	page, next, err := paginate(items, opts.Cursor, opts.Take)
	if err != nil {
		return nil, &core.NativeError{Op: op, Message: err.Error()}
	}
	if page == nil {
		page = []aggregate{}
	}
	return respond(op, map[string]any{"items": page, "nextCursor": next})
}

func (m *Memory) GetAggregate(aggregateType, aggregateID string) (*core.Response, error) {
	const op = "get_aggregate"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	a, ok := m.aggregates[key(aggregateType, aggregateID)]
	if !ok {
		return respond(op, map[string]any{"found": false, "aggregate": nil})
	}
	return respond(op, map[string]any{"found": true, "aggregate": a})
}

func (m *Memory) SelectAggregate(aggregateType, aggregateID string, fields []string) (*core.Response, error) {
	const op = "select_aggregate"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	a, ok := m.aggregates[key(aggregateType, aggregateID)]
	if !ok {
		return respond(op, map[string]any{"found": false, "selection": nil})
	}
	sel := make(map[string]any)
	if fields == nil {
		for k, v := range a.State {
			sel[k] = v
		}
	}
	for _, f := range fields {
		if v, ok := a.State[f]; ok {
			sel[f] = v
		}
	}
	return respond(op, map[string]any{"found": true, "selection": sel})
}

func (m *Memory) ListEvents(aggregateType, aggregateID string, opts *core.ListEventsOptions) (*core.Response, error) {
	const op = "list_events"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &core.ListEventsOptions{}
	}
	page, next, err := paginate(m.events[key(aggregateType, aggregateID)], opts.Cursor, opts.Take)
	if err != nil {
		return nil, &core.NativeError{Op: op, Message: err.Error()}
	}
	if page == nil {
		page = []event{}
	}
	return respond(op, map[string]any{"items": page, "nextCursor": next})
}

// apply records an event against an existing aggregate. m.mu must be held.
func (m *Memory) apply(a *aggregate, eventType string, opts *core.PayloadOptions) event {
	if opts == nil {
		opts = &core.PayloadOptions{}
	}
	a.Version++
	merge(a.State, opts.Payload)
	e := event{
		AggregateType: a.AggregateType,
		AggregateID:   a.AggregateID,
		EventType:     eventType,
		Version:       a.Version,
		Payload:       opts.Payload,
		Metadata:      opts.Metadata,
		Note:          opts.Note,
	}
	k := key(a.AggregateType, a.AggregateID)
	m.events[k] = append(m.events[k], e)
	return e
}

func (m *Memory) AppendEvent(aggregateType, aggregateID, eventType string, opts *core.PayloadOptions) (*core.Response, error) {
	const op = "append_event"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	a, ok := m.aggregates[key(aggregateType, aggregateID)]
	if !ok {
		return nil, notFound(op, aggregateType, aggregateID)
	}
	if a.Archived {
		return nil, &core.NativeError{Op: op, Message: fmt.Sprintf("aggregate %s::%s is archived", aggregateType, aggregateID)}
	}
	return respond(op, map[string]any{"event": m.apply(a, eventType, opts)})
}

func (m *Memory) CreateAggregate(aggregateType, aggregateID, eventType string, opts *core.PayloadOptions) (*core.Response, error) {
	const op = "create_aggregate"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	k := key(aggregateType, aggregateID)
	if _, ok := m.aggregates[k]; ok {
		return nil, &core.NativeError{Op: op, Message: fmt.Sprintf("aggregate %s::%s already exists", aggregateType, aggregateID)}
	}
	a := &aggregate{AggregateType: aggregateType, AggregateID: aggregateID, State: map[string]any{}}
	m.aggregates[k] = a
	m.apply(a, eventType, opts)
	return respond(op, map[string]any{"aggregate": a})
}

func (m *Memory) PatchEvent(aggregateType, aggregateID, eventType string, patch any, opts *core.PayloadOptions) (*core.Response, error) {
	const op = "patch_event"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	a, ok := m.aggregates[key(aggregateType, aggregateID)]
	if !ok {
		return nil, notFound(op, aggregateType, aggregateID)
	}
	events := m.events[key(aggregateType, aggregateID)]
	found := false
	for i := len(events) - 1; i >= 0 && !found; i-- {
		found = events[i].EventType == eventType
	}
	if !found {
		return nil, &core.NativeError{Op: op, Message: fmt.Sprintf("no %s event to patch", eventType)}
	}
	applied := &core.PayloadOptions{Payload: patch}
	if opts != nil {
		applied.Metadata, applied.Note = opts.Metadata, opts.Note
	}
	return respond(op, map[string]any{"event": m.apply(a, eventType, applied)})
}

func (m *Memory) SetArchive(aggregateType, aggregateID string, archived bool, opts *core.ArchiveOptions) (*core.Response, error) {
	const op = "set_archive"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	a, ok := m.aggregates[key(aggregateType, aggregateID)]
	if !ok {
		return nil, notFound(op, aggregateType, aggregateID)
	}
	a.Archived = archived
	return respond(op, map[string]any{"aggregate": a})
}

func (m *Memory) VerifyAggregate(aggregateType, aggregateID string) (*core.Response, error) {
	const op = "verify_aggregate"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	if _, ok := m.aggregates[key(aggregateType, aggregateID)]; !ok {
		return nil, notFound(op, aggregateType, aggregateID)
	}
	h := sha256.New()
	for _, e := range m.events[key(aggregateType, aggregateID)] {
		raw, _ := json.Marshal(e)
		sum := sha256.Sum256(raw)
		h.Write(sum[:])
	}
	return respond(op, map[string]any{"merkleRoot": hex.EncodeToString(h.Sum(nil))})
}

func (m *Memory) CreateSnapshot(aggregateType, aggregateID string, _ core.SnapshotOptions) (*core.Response, error) {
	const op = "create_snapshot"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	a, ok := m.aggregates[key(aggregateType, aggregateID)]
	if !ok {
		return nil, notFound(op, aggregateType, aggregateID)
	}
	state := make(map[string]any, len(a.State))
	for k, v := range a.State {
		state[k] = v
	}
	s := snapshot{
		SnapshotID:    uint64(len(m.snapshots) + 1),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       a.Version,
		State:         state,
	}
	m.snapshots = append(m.snapshots, s)
	return respond(op, map[string]any{"snapshot": s})
}

func (m *Memory) ListSnapshots(opts core.SnapshotOptions) (*core.Response, error) {
	const op = "list_snapshots"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	items := []snapshot{}
	for _, s := range m.snapshots {
		if t, ok := opts["aggregateType"].(string); ok && t != s.AggregateType {
			continue
		}
		items = append(items, s)
	}
	return respond(op, map[string]any{"items": items, "nextCursor": nil})
}

func (m *Memory) GetSnapshot(snapshotID uint64, _ core.SnapshotOptions) (*core.Response, error) {
	const op = "get_snapshot"
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(op); err != nil {
		return nil, err
	}
	for _, s := range m.snapshots {
		if s.SnapshotID == snapshotID {
			return respond(op, map[string]any{"found": true, "snapshot": s})
		}
	}
	return respond(op, map[string]any{"found": false, "snapshot": nil})
}

// Close marks the engine closed; later calls fail with core.ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
