package main

import (
	"strings"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/aretw0/eventdbx"
)

// InfoReport is printed by the info command.
type InfoReport struct {
	Version   string `json:"version" yaml:"version"`
	Library   string `json:"library,omitempty" yaml:"library,omitempty"`
	Connected bool   `json:"connected" yaml:"connected"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	State     any    `json:"state,omitempty" yaml:"state,omitempty"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the resolved native library and connection state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report := InfoReport{Version: strings.TrimSpace(eventdbx.Version)}
			if path, err := eventdbx.LibraryPath(opts.LibraryOptions()...); err == nil {
				report.Library = path
			}

			engine, err := opts.Open(opts)
			if err != nil {
				report.Error = err.Error()
				return render(cmd.OutOrStdout(), opts.Output, report)
			}
			defer engine.Close()

			report.Connected = true
			if in, ok := engine.(introspection.Introspectable); ok {
				report.State = in.State()
			}
			return render(cmd.OutOrStdout(), opts.Output, report)
		},
	}
}
