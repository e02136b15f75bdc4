package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/eventdbx"
	"github.com/aretw0/eventdbx/pkg/core"
)

// Environment defaults for the connection flags.
const (
	envHost     = "EVENTDBX_HOST"
	envPort     = "EVENTDBX_PORT"
	envToken    = "EVENTDBX_TOKEN"
	envTenantID = "EVENTDBX_TENANT_ID"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Output   string // "json" | "yaml"
	Library  string
	Host     string
	Port     uint16
	Token    string
	TenantID string
	NoNoise  bool

	// Open connects to the engine. Tests replace it.
	Open func(o *RootOptions) (core.Engine, error)
}

// Config builds the native client configuration from the flags.
func (o *RootOptions) Config() core.Config {
	return core.Config{
		Host:     o.Host,
		Port:     o.Port,
		Token:    o.Token,
		TenantID: o.TenantID,
		NoNoise:  o.NoNoise,
	}
}

// LibraryOptions returns the options that locate the native library.
func (o *RootOptions) LibraryOptions() []eventdbx.Option {
	opts := []eventdbx.Option{
		eventdbx.WithLogger(slog.Default()),
		eventdbx.WithStrict(true),
	}
	if o.Library != "" {
		opts = append(opts, eventdbx.WithLibraryPath(o.Library))
	}
	return opts
}

func openNative(o *RootOptions) (core.Engine, error) {
	return eventdbx.New(o.Config(), o.LibraryOptions()...)
}

func envPortDefault() uint16 {
	p, err := strconv.ParseUint(os.Getenv(envPort), 10, 16)
	if err != nil {
		return 0
	}
	return uint16(p)
}

// NewRootCommand creates the root command for the eventdbx CLI.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts.Open == nil {
		opts.Open = openNative
	}

	cmd := &cobra.Command{
		Use:   "eventdbx",
		Short: "Command line client for an eventdbx server",
		Long: `eventdbx drives an eventdbx server through the native client library.
Responses are printed as JSON (default) or YAML.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if opts.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			if opts.Output != "json" && opts.Output != "yaml" {
				return fmt.Errorf("invalid output %q: must be json or yaml", opts.Output)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&opts.Output, "output", "o", "json", "Output format (json|yaml)")
	flags.StringVar(&opts.Library, "lib", os.Getenv(eventdbx.EnvLibraryPath), "Path or glob of the native library")
	flags.StringVar(&opts.Host, "host", os.Getenv(envHost), "Server host")
	flags.Uint16Var(&opts.Port, "port", envPortDefault(), "Server port")
	flags.StringVar(&opts.Token, "token", os.Getenv(envToken), "Authentication token")
	flags.StringVar(&opts.TenantID, "tenant", os.Getenv(envTenantID), "Tenant id")
	flags.BoolVar(&opts.NoNoise, "no-noise", false, "Disable the Noise transport")

	cmd.AddCommand(NewAggregatesCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewSnapshotsCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// withEngine opens the engine, runs fn and closes it.
func withEngine(o *RootOptions, fn func(core.Engine) error) error {
	engine, err := o.Open(o)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			slog.Warn("close failed", "error", cerr)
		}
	}()
	return fn(engine)
}
