// Package lifecycle exposes an aggregate's event log as a lifecycle.Source.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/eventdbx/pkg/core"
	"github.com/aretw0/eventdbx/pkg/typed"
)

// DefaultInterval is the pause between polls once the log is caught up.
const DefaultInterval = time.Second

// Event is one record of an aggregate's event log.
type Event struct {
	AggregateType string
	AggregateID   string
	Record        map[string]any
}

func (e Event) String() string {
	if t, ok := e.Record["eventType"].(string); ok {
		return fmt.Sprintf("%s/%s %s", e.AggregateType, e.AggregateID, t)
	}
	return fmt.Sprintf("%s/%s", e.AggregateType, e.AggregateID)
}

// Config configures an event source.
type Config struct {
	Engine        core.Engine
	AggregateType string
	AggregateID   string
	// Options seeds the first request. Cursor is advanced as pages are read.
	Options  core.ListEventsOptions
	Interval time.Duration
	Logger   *slog.Logger
	// ErrorHandler receives failed polls. Polling continues after the
	// interval unless the engine was closed.
	ErrorHandler func(error)
}

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("event source: already started")

type eventSource struct {
	cfg     Config
	out     chan lifecycle.Event
	started atomic.Bool
}

// NewSource creates a lifecycle.Source that follows the nextCursor chain of
// ListEvents and emits every record once. The engine must not be used by
// other goroutines while the source runs.
func NewSource(cfg Config) lifecycle.Source {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &eventSource{
		cfg: cfg,
		out: make(chan lifecycle.Event),
	}
}

func (s *eventSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *eventSource) Start(ctx context.Context) error {
	if s.cfg.Engine == nil {
		return errors.New("event source: engine is required")
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		return s.run(ctx)
	}, lifecycle.WithErrorHandler(func(err error) {
		s.report(fmt.Errorf("event source panic: %w", err))
	}))
	return nil
}

func (s *eventSource) run(ctx context.Context) error {
	opts := s.cfg.Options
	// seen counts records already emitted from the page at opts.Cursor.
	seen := 0
	for {
		if ctx.Err() != nil {
			return nil
		}
		page, err := typed.DecodeResult[typed.Page[map[string]any]](s.cfg.Engine.ListEvents(s.cfg.AggregateType, s.cfg.AggregateID, &opts))
		if err != nil {
			if errors.Is(err, core.ErrClosed) {
				return nil
			}
			s.report(err)
			if !s.sleep(ctx) {
				return nil
			}
			continue
		}

		for i := seen; i < len(page.Items); i++ {
			e := Event{AggregateType: s.cfg.AggregateType, AggregateID: s.cfg.AggregateID, Record: page.Items[i]}
			select {
			case s.out <- e:
			case <-ctx.Done():
				return nil
			}
		}

		if page.HasMore() {
			opts.Cursor = *page.NextCursor
			seen = 0
			continue
		}
		if len(page.Items) > seen {
			seen = len(page.Items)
		}
		if !s.sleep(ctx) {
			return nil
		}
	}
}

func (s *eventSource) sleep(ctx context.Context) bool {
	t := time.NewTimer(s.cfg.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (s *eventSource) report(err error) {
	if s.cfg.ErrorHandler != nil {
		s.cfg.ErrorHandler(err)
		return
	}
	if s.cfg.Logger != nil {
		s.cfg.Logger.Warn("poll events failed", "type", s.cfg.AggregateType, "id", s.cfg.AggregateID, "error", err)
	}
}
