package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	EngineType string `json:"engine_type"`
	Calls      int    `json:"calls"`
	Failures   int    `json:"failures"`
	// Engine is the wrapped engine's own state, when it reports one.
	Engine any `json:"engine,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := ServiceState{EngineType: "unknown", Calls: s.calls, Failures: s.failures}
	if s.engine != nil {
		st.EngineType = "engine"
		if comp, ok := s.engine.(introspection.Component); ok {
			st.EngineType = comp.ComponentType()
		}
		if in, ok := s.engine.(introspection.Introspectable); ok {
			st.Engine = in.State()
		}
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
