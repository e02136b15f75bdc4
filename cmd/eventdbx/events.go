package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	eventsource "github.com/aretw0/eventdbx/pkg/adapters/lifecycle"
	"github.com/aretw0/eventdbx/pkg/core"
)

// NewEventsCommand creates the events command group.
func NewEventsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"ev"},
		Short:   "Append, patch and read aggregate events",
	}
	cmd.AddCommand(
		newEventsListCommand(opts),
		newEventsAppendCommand(opts),
		newEventsPatchCommand(opts),
		newEventsTailCommand(opts),
	)
	return cmd
}

type eventPageFlags struct {
	Cursor string
	Take   uint64
	Filter string
}

func (f *eventPageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.Cursor, "cursor", "", "Resume from a nextCursor")
	cmd.Flags().Uint64Var(&f.Take, "take", 0, "Page size")
	cmd.Flags().StringVar(&f.Filter, "filter", "", "Server side filter expression")
}

func (f *eventPageFlags) options(token string) core.ListEventsOptions {
	return core.ListEventsOptions{Cursor: f.Cursor, Take: f.Take, Filter: f.Filter, Token: token}
}

func newEventsListCommand(opts *RootOptions) *cobra.Command {
	f := &eventPageFlags{}
	cmd := &cobra.Command{
		Use:   "list <aggregate-type> <aggregate-id>",
		Short: "List the events of an aggregate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, func(engine core.Engine) error {
				lo := f.options(opts.Token)
				resp, err := engine.ListEvents(args[0], args[1], &lo)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	f.register(cmd)
	return cmd
}

func newEventsAppendCommand(opts *RootOptions) *cobra.Command {
	p := &payloadFlags{}
	cmd := &cobra.Command{
		Use:   "append <aggregate-type> <aggregate-id> <event-type>",
		Short: "Append an event",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := p.options(opts.Token)
			if err != nil {
				return err
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.AppendEvent(args[0], args[1], args[2], payload)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	p.register(cmd, true)
	return cmd
}

func newEventsPatchCommand(opts *RootOptions) *cobra.Command {
	p := &payloadFlags{}
	var patch string
	cmd := &cobra.Command{
		Use:   "patch <aggregate-type> <aggregate-id> <event-type>",
		Short: "Patch the latest event of a type",
		Long: `Patch the payload of the latest event of the given type.

--patch takes the patch document as JSON, typically an RFC 6902 operation list.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := parseJSON("patch", patch)
			if err != nil {
				return err
			}
			payload, err := p.options(opts.Token)
			if err != nil {
				return err
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.PatchEvent(args[0], args[1], args[2], doc, payload)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	cmd.Flags().StringVar(&patch, "patch", "", "Patch document as JSON")
	_ = cmd.MarkFlagRequired("patch")
	p.register(cmd, false)
	return cmd
}

func newEventsTailCommand(opts *RootOptions) *cobra.Command {
	f := &eventPageFlags{}
	var interval time.Duration
	var limit int
	cmd := &cobra.Command{
		Use:   "tail <aggregate-type> <aggregate-id>",
		Short: "Follow the events of an aggregate",
		Long: `Print every event of an aggregate, then keep polling for new ones until
interrupted or until --limit events were printed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return withEngine(opts, func(engine core.Engine) error {
				return tail(ctx, cmd, opts, eventsource.Config{
					Engine:        engine,
					AggregateType: args[0],
					AggregateID:   args[1],
					Options:       f.options(opts.Token),
					Interval:      interval,
					Logger:        slog.Default(),
				}, limit)
			})
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&interval, "interval", eventsource.DefaultInterval, "Poll interval once caught up")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many events (0 = never)")
	return cmd
}

type recordEncoder interface {
	Encode(v any) error
}

func tail(ctx context.Context, cmd *cobra.Command, opts *RootOptions, cfg eventsource.Config, limit int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var enc recordEncoder
	convert := func(v any) any { return v }
	if opts.Output == "yaml" {
		convert = yamlValue
		y := yaml.NewEncoder(cmd.OutOrStdout())
		y.SetIndent(2)
		defer y.Close()
		enc = y
	} else {
		j := json.NewEncoder(cmd.OutOrStdout())
		j.SetEscapeHTML(false)
		enc = j
	}

	src := eventsource.NewSource(cfg)
	if err := src.Start(ctx); err != nil {
		return err
	}
	printed := 0
	var encErr error
	// Range until the source closes its channel so the engine is idle when
	// the caller closes it.
	for e := range src.Events() {
		ev, ok := e.(eventsource.Event)
		if !ok || encErr != nil || (limit > 0 && printed >= limit) {
			continue
		}
		if err := enc.Encode(convert(ev.Record)); err != nil {
			encErr = err
			cancel()
			continue
		}
		printed++
		if limit > 0 && printed >= limit {
			cancel()
		}
	}
	return encErr
}
