package native

import (
	"github.com/aretw0/introspection"
)

// ClientState exposes internal state for observability.
type ClientState struct {
	Path       string   `json:"path"`
	Open       bool     `json:"open"`
	Strict     bool     `json:"strict"`
	Calls      int      `json:"calls"`
	Failures   int      `json:"failures"`
	LastOp     string   `json:"last_op,omitempty"`
	Operations []string `json:"operations"`
	Missing    []string `json:"missing_symbols,omitempty"`
}

// State implements introspection.Introspectable.
func (c *Client) State() any {
	ops := Operations()
	names := make([]string, 0, len(ops))
	var missing []string
	for _, op := range ops {
		names = append(names, op.Name)
		if _, ok := c.lib.missing[op.Symbol]; ok {
			missing = append(missing, op.Symbol)
		}
	}

	return ClientState{
		Path:       c.path,
		Open:       !c.closed && c.handle != 0,
		Strict:     c.strict,
		Calls:      c.calls,
		Failures:   c.failures,
		LastOp:     c.lastOp,
		Operations: names,
		Missing:    missing,
	}
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "native-client"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
