package main

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/eventdbx/pkg/core"
)

// NewAggregatesCommand creates the aggregates command group.
func NewAggregatesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "aggregates",
		Aliases: []string{"agg"},
		Short:   "Create, inspect and archive aggregates",
	}
	cmd.AddCommand(
		newAggregatesListCommand(opts),
		newAggregatesGetCommand(opts),
		newAggregatesSelectCommand(opts),
		newAggregatesCreateCommand(opts),
		newAggregatesArchiveCommand(opts, true),
		newAggregatesArchiveCommand(opts, false),
		newAggregatesVerifyCommand(opts),
	)
	return cmd
}

type listFlags struct {
	Cursor          string
	Take            uint64
	Filter          string
	IncludeArchived bool
	ArchivedOnly    bool
	Sort            string
	Match           string
}

func newAggregatesListCommand(opts *RootOptions) *cobra.Command {
	f := &listFlags{}
	cmd := &cobra.Command{
		Use:   "list [aggregate-type]",
		Short: "List aggregates",
		Long: `List aggregates, optionally of one type.

--match filters the returned page client side with a glob on the aggregate
id (e.g. "order-2024-*").`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.Match != "" && !doublestar.ValidatePattern(f.Match) {
				return fmt.Errorf("--match %q: invalid pattern", f.Match)
			}
			aggregateType := ""
			if len(args) == 1 {
				aggregateType = args[0]
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.ListAggregates(aggregateType, &core.ListAggregatesOptions{
					Cursor:          f.Cursor,
					Take:            f.Take,
					Filter:          f.Filter,
					IncludeArchived: f.IncludeArchived,
					ArchivedOnly:    f.ArchivedOnly,
					Token:           opts.Token,
					Sort:            f.Sort,
				})
				if err != nil {
					return err
				}
				if f.Match != "" {
					resp = matchItems(resp, f.Match)
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	cmd.Flags().StringVar(&f.Cursor, "cursor", "", "Resume from a nextCursor")
	cmd.Flags().Uint64Var(&f.Take, "take", 0, "Page size")
	cmd.Flags().StringVar(&f.Filter, "filter", "", "Server side filter expression")
	cmd.Flags().BoolVar(&f.IncludeArchived, "include-archived", false, "Include archived aggregates")
	cmd.Flags().BoolVar(&f.ArchivedOnly, "archived-only", false, "Only archived aggregates")
	cmd.Flags().StringVar(&f.Sort, "sort", "", "Sort spec, e.g. created_at:desc,aggregate_id:asc")
	cmd.Flags().StringVar(&f.Match, "match", "", "Glob on aggregate ids")
	return cmd
}

// matchItems keeps the page items whose aggregateId matches pattern.
func matchItems(resp *core.Response, pattern string) *core.Response {
	m, ok := resp.Map()
	if !ok {
		return resp
	}
	items, ok := m["items"].([]any)
	if !ok {
		return resp
	}
	kept := make([]any, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := obj["aggregateId"].(string)
		if matched, _ := doublestar.Match(pattern, id); matched {
			kept = append(kept, item)
		}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	out["items"] = kept
	return &core.Response{Op: resp.Op, Raw: resp.Raw, Value: out}
}

func newAggregatesGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <aggregate-type> <aggregate-id>",
		Short: "Show an aggregate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.GetAggregate(args[0], args[1])
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
}

func newAggregatesSelectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <aggregate-type> <aggregate-id> [field...]",
		Short: "Show selected fields of an aggregate",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields []string
			if len(args) > 2 {
				fields = args[2:]
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.SelectAggregate(args[0], args[1], fields)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
}

func newAggregatesCreateCommand(opts *RootOptions) *cobra.Command {
	p := &payloadFlags{}
	var id, eventType string
	cmd := &cobra.Command{
		Use:   "create <aggregate-type>",
		Short: "Create an aggregate",
		Long:  `Create an aggregate with its first event. A random UUID is used when --id is not given.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := p.options(opts.Token)
			if err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.CreateAggregate(args[0], id, eventType, payload)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Aggregate id (default: random UUID)")
	cmd.Flags().StringVar(&eventType, "event", "created", "Type of the first event")
	p.register(cmd, true)
	return cmd
}

func newAggregatesArchiveCommand(opts *RootOptions, archived bool) *cobra.Command {
	var note string
	use, short := "archive", "Archive an aggregate"
	if !archived {
		use, short = "restore", "Restore an archived aggregate"
	}
	cmd := &cobra.Command{
		Use:   use + " <aggregate-type> <aggregate-id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.SetArchive(args[0], args[1], archived, &core.ArchiveOptions{Note: note, Token: opts.Token})
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Reason recorded with the change")
	return cmd
}

func newAggregatesVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <aggregate-type> <aggregate-id>",
		Short: "Print the Merkle root of an aggregate's events",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.VerifyAggregate(args[0], args[1])
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
}
