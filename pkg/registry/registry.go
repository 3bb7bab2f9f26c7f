// Package registry holds the agent factories available to the pipeline
// engine.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/dukex/leadion/pkg/protocol"
)

type Registry struct {
	logger         *slog.Logger
	agentFactories map[string]protocol.AgentFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:         log,
		agentFactories: make(map[string]protocol.AgentFactory),
	}
}

func (r *Registry) RegisterAgent(agentFactory protocol.AgentFactory) {
	r.agentFactories[agentFactory.ID()] = agentFactory
}

func (r *Registry) CreateAgent(agentID string, config map[string]any) (protocol.Agent, error) {
	factory, ok := r.agentFactories[agentID]
	if !ok {
		return nil, fmt.Errorf("agent '%s' not registered", agentID)
	}

	return factory.Create(config)
}

// HealthCheck reports whether the registry has agents to run.
func (r *Registry) HealthCheck() (string, bool) {
	if len(r.agentFactories) == 0 {
		return "No agents registered", false
	}

	return fmt.Sprintf("%d agents registered", len(r.agentFactories)), true
}

// AvailableAgents returns the registered agent IDs.
func (r *Registry) AvailableAgents() []string {
	ids := make([]string, 0, len(r.agentFactories))
	for id := range r.agentFactories {
		ids = append(ids, id)
	}

	return ids
}
