package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/eventdbx/pkg/codec"
	"github.com/aretw0/eventdbx/pkg/core"
)

// render writes v as indented JSON or YAML.
func render(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlValue(v)); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	}
}

// yamlValue turns json.Number into the narrowest exact numeric type so YAML
// prints it as a number rather than a quoted string.
func yamlValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = yamlValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = yamlValue(e)
		}
		return out
	}
	return v
}

func printResponse(cmd *cobra.Command, o *RootOptions, resp *core.Response) error {
	return render(cmd.OutOrStdout(), o.Output, resp.Value)
}

// parseJSON decodes a JSON flag value. Empty means absent. Numbers stay
// json.Number so they reach the engine with their original digits.
func parseJSON(flag, value string) (any, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	v, err := codec.New(true).Decode([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return v, nil
}

// parsePublish parses plugin[:mode[:priority]] targets.
func parsePublish(values []string) ([]core.PublishTarget, error) {
	var targets []core.PublishTarget
	for _, v := range values {
		parts := strings.Split(v, ":")
		if parts[0] == "" || len(parts) > 3 {
			return nil, fmt.Errorf("--publish %q: expected plugin[:mode[:priority]]", v)
		}
		t := core.PublishTarget{Plugin: parts[0]}
		if len(parts) > 1 {
			t.Mode = parts[1]
		}
		if len(parts) > 2 {
			t.Priority = parts[2]
		}
		targets = append(targets, t)
	}
	return targets, nil
}
