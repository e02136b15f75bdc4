package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/eventdbx/pkg/core"
)

// NewSnapshotsCommand creates the snapshots command group.
func NewSnapshotsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "Create and read aggregate snapshots",
	}
	cmd.AddCommand(
		newSnapshotsCreateCommand(opts),
		newSnapshotsListCommand(opts),
		newSnapshotsGetCommand(opts),
	)
	return cmd
}

// snapshotOptions parses --options and adds the token when one is set.
func snapshotOptions(raw, token string) (core.SnapshotOptions, error) {
	v, err := parseJSON("options", raw)
	if err != nil {
		return nil, err
	}
	opts := core.SnapshotOptions{}
	if m, ok := v.(map[string]any); ok {
		opts = m
	}
	if token != "" {
		opts["token"] = token
	}
	if len(opts) == 0 {
		return nil, nil
	}
	return opts, nil
}

func newSnapshotsCreateCommand(opts *RootOptions) *cobra.Command {
	var raw string
	cmd := &cobra.Command{
		Use:   "create <aggregate-type> <aggregate-id>",
		Short: "Snapshot the current state of an aggregate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			so, err := snapshotOptions(raw, opts.Token)
			if err != nil {
				return err
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.CreateSnapshot(args[0], args[1], so)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	cmd.Flags().StringVar(&raw, "options", "", "Extra options as a JSON object")
	return cmd
}

func newSnapshotsListCommand(opts *RootOptions) *cobra.Command {
	var raw, aggregateType, aggregateID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			so, err := snapshotOptions(raw, opts.Token)
			if err != nil {
				return err
			}
			if aggregateType != "" || aggregateID != "" {
				if so == nil {
					so = core.SnapshotOptions{}
				}
				if aggregateType != "" {
					so["aggregateType"] = aggregateType
				}
				if aggregateID != "" {
					so["aggregateId"] = aggregateID
				}
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.ListSnapshots(so)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	cmd.Flags().StringVar(&aggregateType, "type", "", "Only snapshots of this aggregate type")
	cmd.Flags().StringVar(&aggregateID, "id", "", "Only snapshots of this aggregate id")
	cmd.Flags().StringVar(&raw, "options", "", "Extra options as a JSON object")
	return cmd
}

func newSnapshotsGetCommand(opts *RootOptions) *cobra.Command {
	var raw string
	cmd := &cobra.Command{
		Use:   "get <snapshot-id>",
		Short: "Show a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return err
			}
			so, err := snapshotOptions(raw, opts.Token)
			if err != nil {
				return err
			}
			return withEngine(opts, func(engine core.Engine) error {
				resp, err := engine.GetSnapshot(id, so)
				if err != nil {
					return err
				}
				return printResponse(cmd, opts, resp)
			})
		},
	}
	cmd.Flags().StringVar(&raw, "options", "", "Extra options as a JSON object")
	return cmd
}
