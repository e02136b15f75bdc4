package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/eventdbx/internal/enginetest"
	"github.com/aretw0/eventdbx/pkg/codec"
	"github.com/aretw0/eventdbx/pkg/core"
)

// keepOpen lets several commands share one in-memory engine.
type keepOpen struct {
	*enginetest.Memory
	closes int
}

func (k *keepOpen) Close() error {
	k.closes++
	return nil
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{envHost, envPort, envToken, envTenantID, "EVENTDBX_NATIVE_LIB"} {
		t.Setenv(k, "")
	}
}

func newEngine(t *testing.T) *keepOpen {
	t.Helper()
	clearEnv(t)
	engine := &keepOpen{Memory: enginetest.NewMemory()}
	_, err := engine.CreateAggregate("order", "o-1", "OrderPlaced", &core.PayloadOptions{
		Payload: map[string]any{"status": "placed"},
	})
	require.NoError(t, err)
	return engine
}

func run(t *testing.T, engine core.Engine, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	opts := &RootOptions{Open: func(*RootOptions) (core.Engine, error) { return engine, nil }}
	cmd := NewRootCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), out)
	return m
}

func golden(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestGolden(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"aggregates_get", []string{"aggregates", "get", "order", "o-1"}},
		{"aggregates_select_yaml", []string{"-o", "yaml", "aggregates", "select", "order", "o-1", "status"}},
		{"events_list", []string{"events", "list", "order", "o-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newEngine(t)
			out, err := run(t, engine, tt.args...)
			require.NoError(t, err)
			golden(t).Assert(t, tt.name, []byte(out))
			assert.Equal(t, 1, engine.closes)
		})
	}
}

func TestInfo_Unreachable(t *testing.T) {
	clearEnv(t)
	out := &bytes.Buffer{}
	opts := &RootOptions{Open: func(*RootOptions) (core.Engine, error) {
		return nil, &core.LibraryNotFoundError{Path: "lib/libeventdbx_native.so"}
	}}
	cmd := NewRootCommand(opts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"info", "--lib", "lib/libeventdbx_native.so"})

	require.NoError(t, cmd.Execute())
	golden(t).Assert(t, "info_unreachable", out.Bytes())
}

func TestInfo_Connected(t *testing.T) {
	engine := newEngine(t)
	out, err := run(t, core.NewService(engine), "info")
	require.NoError(t, err)

	report := decodeOutput(t, out)
	assert.Equal(t, true, report["connected"])
	state := report["state"].(map[string]any)
	assert.Equal(t, "engine", state["engine_type"])
}

func TestAggregatesCreate_GeneratesID(t *testing.T) {
	engine := newEngine(t)

	out, err := run(t, engine, "aggregates", "create", "user", "--event", "UserRegistered", "--payload", `{"name":"ana"}`)
	require.NoError(t, err)

	agg := decodeOutput(t, out)["aggregate"].(map[string]any)
	_, err = uuid.Parse(agg["aggregateId"].(string))
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "ana"}, agg["state"])

	out, err = run(t, engine, "aggregates", "create", "user", "--id", "u-7")
	require.NoError(t, err)
	assert.Equal(t, "u-7", decodeOutput(t, out)["aggregate"].(map[string]any)["aggregateId"])
}

func TestAggregatesList_Match(t *testing.T) {
	engine := newEngine(t)
	for _, id := range []string{"o-2024-01", "o-2024-02", "o-2025-01"} {
		_, err := engine.CreateAggregate("order", id, "OrderPlaced", nil)
		require.NoError(t, err)
	}

	out, err := run(t, engine, "aggregates", "list", "order", "--match", "o-2024-*")
	require.NoError(t, err)
	items := decodeOutput(t, out)["items"].([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "o-2024-01", items[0].(map[string]any)["aggregateId"])

	_, err = run(t, engine, "aggregates", "list", "--match", "[")
	assert.ErrorContains(t, err, "invalid pattern")
}

func TestAggregatesArchiveRestoreVerify(t *testing.T) {
	engine := newEngine(t)

	out, err := run(t, engine, "aggregates", "archive", "order", "o-1", "--note", "done")
	require.NoError(t, err)
	assert.Equal(t, true, decodeOutput(t, out)["aggregate"].(map[string]any)["archived"])

	out, err = run(t, engine, "aggregates", "list")
	require.NoError(t, err)
	assert.Empty(t, decodeOutput(t, out)["items"])

	out, err = run(t, engine, "aggregates", "list", "--archived-only")
	require.NoError(t, err)
	assert.Len(t, decodeOutput(t, out)["items"], 1)

	out, err = run(t, engine, "aggregates", "restore", "order", "o-1")
	require.NoError(t, err)
	assert.Equal(t, false, decodeOutput(t, out)["aggregate"].(map[string]any)["archived"])

	out, err = run(t, engine, "aggregates", "verify", "order", "o-1")
	require.NoError(t, err)
	assert.Len(t, decodeOutput(t, out)["merkleRoot"], 64)
}

func TestEventsAppendAndPatch(t *testing.T) {
	engine := newEngine(t)

	out, err := run(t, engine, "events", "append", "order", "o-1", "OrderShipped",
		"--payload", `{"status":"shipped"}`, "--note", "via cli", "--publish", "search:all:high")
	require.NoError(t, err)
	ev := decodeOutput(t, out)["event"].(map[string]any)
	assert.Equal(t, "OrderShipped", ev["eventType"])
	assert.Equal(t, "via cli", ev["note"])

	out, err = run(t, engine, "events", "patch", "order", "o-1", "OrderShipped", "--patch", `{"carrier":"ups"}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"carrier": "ups"}, decodeOutput(t, out)["event"].(map[string]any)["payload"])

	_, err = run(t, engine, "events", "patch", "order", "o-1", "OrderShipped")
	assert.ErrorContains(t, err, "patch")
}

func TestEventsTail_Limit(t *testing.T) {
	engine := newEngine(t)
	_, err := engine.AppendEvent("order", "o-1", "OrderPaid", nil)
	require.NoError(t, err)

	out, err := run(t, engine, "events", "tail", "order", "o-1", "--limit", "2", "--take", "1", "--interval", "5ms")
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"eventType":"OrderPlaced"`)
	assert.Contains(t, string(lines[1]), `"eventType":"OrderPaid"`)
}

func TestSnapshots(t *testing.T) {
	engine := newEngine(t)

	out, err := run(t, engine, "snapshots", "create", "order", "o-1")
	require.NoError(t, err)
	snap := decodeOutput(t, out)["snapshot"].(map[string]any)
	assert.Equal(t, float64(1), snap["snapshotId"])

	out, err = run(t, engine, "snapshots", "list", "--type", "order")
	require.NoError(t, err)
	assert.Len(t, decodeOutput(t, out)["items"], 1)

	out, err = run(t, engine, "snapshots", "get", "1")
	require.NoError(t, err)
	assert.Equal(t, true, decodeOutput(t, out)["found"])

	_, err = run(t, engine, "snapshots", "get", "not-a-number")
	assert.Error(t, err)
}

func TestErrors(t *testing.T) {
	engine := newEngine(t)

	_, err := run(t, engine, "events", "append", "order", "o-1", "X", "--payload", `{bad`)
	var de *core.DecodingError
	assert.ErrorAs(t, err, &de)

	_, err = run(t, engine, "events", "append", "order", "o-1", "X", "--publish", ":mode")
	assert.ErrorContains(t, err, "plugin")

	engine.Fail["get_aggregate"] = &core.NativeError{Op: "get_aggregate", Message: "permission denied"}
	_, err = run(t, engine, "aggregates", "get", "order", "o-1")
	var ne *core.NativeError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "permission denied", err.Error())

	_, err = run(t, engine, "-o", "xml", "aggregates", "get", "order", "o-1")
	assert.ErrorContains(t, err, "invalid output")

	opts := &RootOptions{Open: func(*RootOptions) (core.Engine, error) { return nil, errors.New("no library") }}
	cmd := NewRootCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"aggregates", "get", "order", "o-1"})
	assert.ErrorContains(t, cmd.Execute(), "connect: no library")
}

func TestVersion(t *testing.T) {
	clearEnv(t)
	out, err := run(t, nil, "version")
	require.NoError(t, err)
	assert.Regexp(t, `^eventdbx version \d+\.\d+\.\d+\n$`, out)
}

// recordingEngine keeps the payloads handed to AppendEvent.
type recordingEngine struct {
	*keepOpen
	appended []*core.PayloadOptions
}

func (r *recordingEngine) AppendEvent(aggregateType, aggregateID, eventType string, opts *core.PayloadOptions) (*core.Response, error) {
	r.appended = append(r.appended, opts)
	return r.keepOpen.AppendEvent(aggregateType, aggregateID, eventType, opts)
}

func TestEventsAppend_KeepsLargeIntegers(t *testing.T) {
	engine := &recordingEngine{keepOpen: newEngine(t)}

	out, err := run(t, engine, "events", "append", "order", "o-1", "Deposited",
		"--payload", `{"amount":9007199254740993}`, "--metadata", `{"seq":18446744073709551615}`)
	require.NoError(t, err)

	require.Len(t, engine.appended, 1)
	sent, err := codec.New(false).Encode(engine.appended[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, `{"amount":9007199254740993}`, string(sent))
	sent, err = codec.New(false).Encode(engine.appended[0].Metadata)
	require.NoError(t, err)
	assert.Equal(t, `{"seq":18446744073709551615}`, string(sent))

	assert.Contains(t, out, `"amount": 9007199254740993`)
	assert.Contains(t, out, `"seq": 18446744073709551615`)
}

func TestOutput_YAMLNumbers(t *testing.T) {
	engine := newEngine(t)
	_, err := engine.AppendEvent("order", "o-1", "Deposited", &core.PayloadOptions{
		Payload: map[string]any{"amount": json.Number("9007199254740993")},
	})
	require.NoError(t, err)

	out, err := run(t, engine, "-o", "yaml", "aggregates", "get", "order", "o-1")
	require.NoError(t, err)
	assert.Contains(t, out, "version: 2\n")
	assert.Contains(t, out, "amount: 9007199254740993\n")
	assert.NotContains(t, out, `"2"`)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("stdout closed") }

func TestEventsTail_WriteErrorStopsSourceFirst(t *testing.T) {
	engine := newEngine(t)
	for i := 0; i < 3; i++ {
		_, err := engine.AppendEvent("order", "o-1", "OrderUpdated", nil)
		require.NoError(t, err)
	}

	opts := &RootOptions{Open: func(*RootOptions) (core.Engine, error) { return engine, nil }}
	cmd := NewRootCommand(opts)
	cmd.SetOut(failingWriter{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"events", "tail", "order", "o-1", "--take", "1", "--interval", "1ms"})

	err := cmd.Execute()
	require.ErrorContains(t, err, "stdout closed")
	assert.Equal(t, 1, engine.closes)

	calls := len(engine.Calls)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, len(engine.Calls), "engine used after tail returned")
}

func TestEventsTail_YAML(t *testing.T) {
	engine := newEngine(t)

	out, err := run(t, engine, "-o", "yaml", "events", "tail", "order", "o-1", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "eventType: OrderPlaced\n")
	assert.Contains(t, out, "version: 1\n")
}
