package core

import (
	"fmt"
	"sync"
)

// Service guards an Engine with argument validation and call accounting.
// It implements Engine itself, so it can stand wherever an Engine is used.
type Service struct {
	engine Engine

	mu       sync.RWMutex
	calls    int
	failures int
}

var _ Engine = (*Service)(nil)

// NewService creates a new Service.
func NewService(engine Engine) *Service {
	return &Service{engine: engine}
}

// Engine returns the wrapped engine.
func (s *Service) Engine() Engine { return s.engine }

func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%s: %w", pairs[i], ErrEmptyArgument)
		}
	}
	return nil
}

func (s *Service) track(resp *Response, err error) (*Response, error) {
	s.mu.Lock()
	s.calls++
	if err != nil {
		s.failures++
	}
	s.mu.Unlock()
	return resp, err
}

func (s *Service) ListAggregates(aggregateType string, opts *ListAggregatesOptions) (*Response, error) {
	return s.track(s.engine.ListAggregates(aggregateType, opts))
}

func (s *Service) GetAggregate(aggregateType, aggregateID string) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID); err != nil {
		return nil, err
	}
	return s.track(s.engine.GetAggregate(aggregateType, aggregateID))
}

func (s *Service) SelectAggregate(aggregateType, aggregateID string, fields []string) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID); err != nil {
		return nil, err
	}
	return s.track(s.engine.SelectAggregate(aggregateType, aggregateID, fields))
}

func (s *Service) ListEvents(aggregateType, aggregateID string, opts *ListEventsOptions) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID); err != nil {
		return nil, err
	}
	return s.track(s.engine.ListEvents(aggregateType, aggregateID, opts))
}

func (s *Service) AppendEvent(aggregateType, aggregateID, eventType string, opts *PayloadOptions) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID, "event type", eventType); err != nil {
		return nil, err
	}
	return s.track(s.engine.AppendEvent(aggregateType, aggregateID, eventType, opts))
}

func (s *Service) CreateAggregate(aggregateType, aggregateID, eventType string, opts *PayloadOptions) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID, "event type", eventType); err != nil {
		return nil, err
	}
	return s.track(s.engine.CreateAggregate(aggregateType, aggregateID, eventType, opts))
}

func (s *Service) PatchEvent(aggregateType, aggregateID, eventType string, patch any, opts *PayloadOptions) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID, "event type", eventType); err != nil {
		return nil, err
	}
	return s.track(s.engine.PatchEvent(aggregateType, aggregateID, eventType, patch, opts))
}

func (s *Service) SetArchive(aggregateType, aggregateID string, archived bool, opts *ArchiveOptions) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID); err != nil {
		return nil, err
	}
	return s.track(s.engine.SetArchive(aggregateType, aggregateID, archived, opts))
}

func (s *Service) VerifyAggregate(aggregateType, aggregateID string) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID); err != nil {
		return nil, err
	}
	return s.track(s.engine.VerifyAggregate(aggregateType, aggregateID))
}

func (s *Service) CreateSnapshot(aggregateType, aggregateID string, opts SnapshotOptions) (*Response, error) {
	if err := required("aggregate type", aggregateType, "aggregate id", aggregateID); err != nil {
		return nil, err
	}
	return s.track(s.engine.CreateSnapshot(aggregateType, aggregateID, opts))
}

func (s *Service) ListSnapshots(opts SnapshotOptions) (*Response, error) {
	return s.track(s.engine.ListSnapshots(opts))
}

func (s *Service) GetSnapshot(snapshotID uint64, opts SnapshotOptions) (*Response, error) {
	return s.track(s.engine.GetSnapshot(snapshotID, opts))
}

// Close closes the wrapped engine.
func (s *Service) Close() error {
	return s.engine.Close()
}
