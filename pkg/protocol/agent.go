// Package protocol defines the interfaces and contracts for pluggable
// pipeline agents.
package protocol

import (
	"context"
	"log/slog"

	"github.com/dukex/leadion/pkg/models"
)

// AgentContext carries the per-run input an agent executes against.
type AgentContext struct {
	RunID    string
	Campaign models.CampaignRequest
	// Outputs holds the preceding stages' outputs, keyed by agent ID.
	Outputs map[string]any
}

// Agent is one named unit of work within the pipeline.
type Agent interface {
	// ID is the agent's stable identifier (e.g. "scraper_agent").
	ID() string
	// Role is the agent's display name.
	Role() string
	// TaskDescription is the free-text description of the agent's task,
	// from which the tracker derives the canonical task key.
	TaskDescription() string

	Execute(ctx context.Context, agentCtx AgentContext, logger *slog.Logger) (any, error)
}

// AgentFactory builds agents from configuration.
type AgentFactory interface {
	Create(config map[string]any) (Agent, error)
	ID() string
}

// Engine runs a campaign through the full agent pipeline and returns the
// outputs keyed by agent ID.
type Engine interface {
	Run(ctx context.Context, runID string, campaign models.CampaignRequest) (map[string]any, error)
}
