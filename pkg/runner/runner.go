// Package runner consumes dispatched campaign runs and executes them through
// the agent pipeline.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/leadion/pkg/analytics"
	"github.com/dukex/leadion/pkg/crew"
	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/events"
	"github.com/dukex/leadion/pkg/log"
	"github.com/dukex/leadion/pkg/protocol"
	"github.com/dukex/leadion/pkg/registry"
	"github.com/dukex/leadion/pkg/services"
)

// pipelineAgents is the canonical execution order.
var pipelineAgents = []string{
	"scraper_agent",
	"email_finder_agent",
	"email_validator_agent",
	"data_analytics_agent",
}

// Runner executes campaign runs dispatched over the event bus.
type Runner struct {
	id              string
	registry        *registry.Registry
	campaignService *services.Campaign
	eventBus        eventbus.EventBus
	tracer          trace.Tracer
	logger          *slog.Logger
}

func NewRunner(
	id string,
	reg *registry.Registry,
	campaignService *services.Campaign,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
) *Runner {
	return &Runner{
		id:              id,
		registry:        reg,
		campaignService: campaignService,
		eventBus:        eventBus,
		tracer:          tracer,
		logger:          log.WithModule("runner").With("runner_id", id),
	}
}

// Register subscribes the runner to run dispatch events. Execution is
// dispatched to its own goroutine: the pipeline publishes lifecycle events
// while it runs, and in embedded mode those share the consumer that delivered
// the dispatch, so running inline would hold them back until the run ended.
func (r *Runner) Register() error {
	return r.eventBus.Handle(events.RunRequestedEvent, func(ctx context.Context, raw any) error {
		request, ok := raw.(*events.RunRequested)
		if !ok {
			return nil
		}

		go r.Execute(ctx, request)

		return nil
	})
}

// Execute runs one campaign through the pipeline and records the outcome on
// the stored run. Failures are recorded, never returned: the dispatch event
// must not be redelivered for a run that failed on its own merits.
func (r *Runner) Execute(ctx context.Context, request *events.RunRequested) {
	logger := r.logger.With("run_id", request.RunID, "user_id", request.UserID)
	logger.InfoContext(ctx, "Executing campaign run")

	if err := r.campaignService.MarkRunning(ctx, request.RunID); err != nil {
		logger.ErrorContext(ctx, "Failed to mark run as running", "error", err)
	}

	agents, err := r.buildAgents()
	if err != nil {
		logger.ErrorContext(ctx, "Failed to build pipeline agents", "error", err)
		r.fail(ctx, request.RunID, err)

		return
	}

	engine := crew.NewSequentialCrew(agents, r.eventBus, r.tracer)

	outputs, err := engine.Run(ctx, request.RunID, request.Campaign)
	if err != nil {
		logger.ErrorContext(ctx, "Campaign run failed", "error", err)
		r.fail(ctx, request.RunID, err)

		return
	}

	leadsFound := analytics.Parse("data_analytics_agent", outputs["data_analytics_agent"]).LeadsFound

	if err := r.campaignService.MarkCompleted(ctx, request.RunID, leadsFound, nil); err != nil {
		logger.ErrorContext(ctx, "Failed to mark run as completed", "error", err)
	}

	logger.InfoContext(ctx, "Campaign run completed", "leads_found", leadsFound)
}

func (r *Runner) buildAgents() ([]protocol.Agent, error) {
	agents := make([]protocol.Agent, 0, len(pipelineAgents))

	for _, agentID := range pipelineAgents {
		agent, err := r.registry.CreateAgent(agentID, agentConfig(agentID))
		if err != nil {
			return nil, fmt.Errorf("failed to create agent %s: %w", agentID, err)
		}

		agents = append(agents, agent)
	}

	return agents, nil
}

func agentConfig(agentID string) map[string]any {
	if agentID == "scraper_agent" {
		return map[string]any{
			"service_url": os.Getenv("SCRAPER_SERVICE_URL"),
			"api_token":   os.Getenv("SCRAPER_API_TOKEN"),
		}
	}

	return map[string]any{}
}

func (r *Runner) fail(ctx context.Context, runID string, cause error) {
	if err := r.campaignService.MarkFailed(ctx, runID, cause.Error()); err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark run as failed", "error", err)
	}
}
