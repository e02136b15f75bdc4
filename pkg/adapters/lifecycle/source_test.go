package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/eventdbx/internal/enginetest"
	eventsource "github.com/aretw0/eventdbx/pkg/adapters/lifecycle"
	"github.com/aretw0/eventdbx/pkg/core"
)

func seed(t *testing.T, n int) *enginetest.Memory {
	t.Helper()
	engine := enginetest.NewMemory()
	_, err := engine.CreateAggregate("order", "o-1", "OrderPlaced", nil)
	require.NoError(t, err)
	for i := 1; i < n; i++ {
		_, err := engine.AppendEvent("order", "o-1", fmt.Sprintf("Step%d", i), nil)
		require.NoError(t, err)
	}
	return engine
}

func collect(t *testing.T, events <-chan any, n int) []string {
	t.Helper()
	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case e, ok := <-events:
			require.True(t, ok, "source closed early")
			got = append(got, fmt.Sprint(e))
		case <-timeout:
			t.Fatalf("timed out after %d of %d events", len(got), n)
		}
	}
	return got
}

func forward[T any](in <-chan T) <-chan any {
	out := make(chan any)
	go func() {
		defer close(out)
		for e := range in {
			out <- e
		}
	}()
	return out
}

func TestSource_FollowsCursorAndTails(t *testing.T) {
	engine := seed(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := eventsource.NewSource(eventsource.Config{
		Engine:        engine,
		AggregateType: "order",
		AggregateID:   "o-1",
		Options:       core.ListEventsOptions{Take: 2},
		Interval:      10 * time.Millisecond,
	})
	require.NoError(t, src.Start(ctx))
	events := forward(src.Events())

	got := collect(t, events, 5)
	assert.Equal(t, []string{
		"order/o-1 OrderPlaced",
		"order/o-1 Step1",
		"order/o-1 Step2",
		"order/o-1 Step3",
		"order/o-1 Step4",
	}, got)

	_, err := engine.AppendEvent("order", "o-1", "OrderShipped", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"order/o-1 OrderShipped"}, collect(t, events, 1))

	cancel()
	for range events {
	}
}

func TestSource_ReportsErrorsAndKeepsPolling(t *testing.T) {
	engine := seed(t, 1)
	engine.Fail["list_events"] = &core.NativeError{Op: "list_events", Message: "unavailable"}

	var mu sync.Mutex
	var reported []error
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := eventsource.NewSource(eventsource.Config{
		Engine:        engine,
		AggregateType: "order",
		AggregateID:   "o-1",
		Interval:      5 * time.Millisecond,
		ErrorHandler: func(err error) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, err)
			if len(reported) == 2 {
				delete(engine.Fail, "list_events")
			}
		},
	})
	require.NoError(t, src.Start(ctx))

	got := collect(t, forward(src.Events()), 1)
	assert.Equal(t, []string{"order/o-1 OrderPlaced"}, got)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 2)
	var ne *core.NativeError
	assert.True(t, errors.As(reported[0], &ne))
}

func TestSource_StopsWhenEngineClosed(t *testing.T) {
	engine := seed(t, 1)
	require.NoError(t, engine.Close())

	src := eventsource.NewSource(eventsource.Config{Engine: engine, AggregateType: "order", AggregateID: "o-1"})
	require.NoError(t, src.Start(context.Background()))

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("source did not stop")
	}
}

func TestSource_RequiresEngine(t *testing.T) {
	src := eventsource.NewSource(eventsource.Config{})
	assert.Error(t, src.Start(context.Background()))
}

func TestSource_StartTwice(t *testing.T) {
	engine := seed(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := eventsource.NewSource(eventsource.Config{
		Engine:        engine,
		AggregateType: "order",
		AggregateID:   "o-1",
		Interval:      5 * time.Millisecond,
	})
	require.NoError(t, src.Start(ctx))
	assert.ErrorIs(t, src.Start(ctx), eventsource.ErrAlreadyStarted)

	assert.Equal(t, []string{"order/o-1 OrderPlaced"}, collect(t, forward(src.Events()), 1))
}
