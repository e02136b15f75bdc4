package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/eventdbx/pkg/core"
)

// payloadFlags are shared by create, append and patch.
type payloadFlags struct {
	Payload  string
	Metadata string
	Note     string
	Publish  []string
}

func (p *payloadFlags) register(cmd *cobra.Command, withPayload bool) {
	if withPayload {
		cmd.Flags().StringVar(&p.Payload, "payload", "", "Event payload as JSON")
	}
	cmd.Flags().StringVar(&p.Metadata, "metadata", "", "Event metadata as JSON")
	cmd.Flags().StringVar(&p.Note, "note", "", "Note stored with the event")
	cmd.Flags().StringArrayVar(&p.Publish, "publish", nil, "Publish target plugin[:mode[:priority]] (repeatable)")
}

func (p *payloadFlags) options(token string) (*core.PayloadOptions, error) {
	payload, err := parseJSON("payload", p.Payload)
	if err != nil {
		return nil, err
	}
	metadata, err := parseJSON("metadata", p.Metadata)
	if err != nil {
		return nil, err
	}
	targets, err := parsePublish(p.Publish)
	if err != nil {
		return nil, err
	}
	return &core.PayloadOptions{
		Payload:        payload,
		Metadata:       metadata,
		Note:           p.Note,
		Token:          token,
		PublishTargets: targets,
	}, nil
}
