// Package crew runs campaigns through the fixed four-stage agent pipeline
// (scrape, find emails, validate, save) and publishes lifecycle events for
// every step so the tracker can follow progress.
package crew

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/events"
	"github.com/dukex/leadion/pkg/log"
	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/otelhelper"
	"github.com/dukex/leadion/pkg/protocol"
)

// SequentialCrew executes agents in pipeline order, feeding each agent the
// outputs of the stages before it. It implements protocol.Engine.
type SequentialCrew struct {
	agents []protocol.Agent
	bus    eventbus.EventBus
	tracer trace.Tracer
	logger *slog.Logger
}

// NewSequentialCrew builds a crew over an ordered agent list.
func NewSequentialCrew(agents []protocol.Agent, bus eventbus.EventBus, tracer trace.Tracer) *SequentialCrew {
	return &SequentialCrew{
		agents: agents,
		bus:    bus,
		tracer: tracer,
		logger: log.WithModule("crew"),
	}
}

// Run executes the pipeline for one campaign. It publishes pipeline, agent,
// and task lifecycle events as it goes; a stage failure publishes the error
// and fails the whole run.
func (c *SequentialCrew) Run(ctx context.Context, runID string, campaign models.CampaignRequest) (map[string]any, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "crew.run",
		attribute.String(otelhelper.RunIDKey, runID))
	defer span.End()

	started := time.Now()
	outputs := make(map[string]any, len(c.agents))

	c.publish(ctx, runID, &events.PipelineStarted{
		BaseEvent:  events.NewBaseEvent(events.PipelineStartedEvent, runID),
		TotalTasks: len(c.agents),
	})

	agentCtx := protocol.AgentContext{
		RunID:    runID,
		Campaign: campaign,
		Outputs:  outputs,
	}

	for _, agent := range c.agents {
		output, err := c.runAgent(ctx, runID, agent, agentCtx)
		if err != nil {
			c.publish(ctx, runID, &events.PipelineFailed{
				BaseEvent: events.NewBaseEvent(events.PipelineFailedEvent, runID),
				Error:     err.Error(),
				Duration:  time.Since(started),
			})
			otelhelper.SetError(span, err, attribute.String(otelhelper.AgentIDKey, agent.ID()))

			return nil, err
		}

		outputs[agent.ID()] = output
	}

	c.publish(ctx, runID, &events.PipelineFinished{
		BaseEvent: events.NewBaseEvent(events.PipelineFinishedEvent, runID),
		Result:    outputs,
		Duration:  time.Since(started),
	})

	return outputs, nil
}

func (c *SequentialCrew) runAgent(ctx context.Context, runID string, agent protocol.Agent, agentCtx protocol.AgentContext) (any, error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "crew.agent",
		attribute.String(otelhelper.RunIDKey, runID),
		attribute.String(otelhelper.AgentIDKey, agent.ID()),
		attribute.String(otelhelper.AgentRoleKey, agent.Role()))
	defer span.End()

	agentRef := events.AgentRef{ID: agent.ID(), Role: agent.Role()}
	taskRef := events.TaskRef{ID: agent.ID() + ":" + runID, Description: agent.TaskDescription()}

	c.publish(ctx, runID, &events.AgentStarted{
		BaseEvent: events.NewBaseEvent(events.AgentStartedEvent, runID),
		Agent:     agentRef,
	})
	c.publish(ctx, runID, &events.TaskStarted{
		BaseEvent: events.NewBaseEvent(events.TaskStartedEvent, runID),
		Task:      taskRef,
		Agent:     agentRef,
	})

	started := time.Now()

	output, err := agent.Execute(ctx, agentCtx, c.logger.With("agent", agent.ID()))
	if err != nil {
		otelhelper.SetError(span, err)

		c.publish(ctx, runID, &events.ErrorRaised{
			BaseEvent: events.NewBaseEvent(events.ErrorRaisedEvent, runID),
			Error:     err.Error(),
			Agent:     &agentRef,
			Task:      &taskRef,
		})
		c.publish(ctx, runID, &events.AgentFinished{
			BaseEvent: events.NewBaseEvent(events.AgentFinishedEvent, runID),
			Agent:     agentRef,
			Success:   false,
		})

		return nil, fmt.Errorf("agent %s failed: %w", agent.ID(), err)
	}

	c.publish(ctx, runID, &events.TaskFinished{
		BaseEvent:     events.NewBaseEvent(events.TaskFinishedEvent, runID),
		Task:          taskRef,
		Output:        output,
		ExecutionTime: time.Since(started).Seconds(),
	})
	c.publish(ctx, runID, &events.AgentFinished{
		BaseEvent: events.NewBaseEvent(events.AgentFinishedEvent, runID),
		Agent:     agentRef,
		Success:   true,
	})

	return output, nil
}

func (c *SequentialCrew) publish(ctx context.Context, runID string, event eventbus.Event) {
	if err := c.bus.Publish(ctx, runID, event); err != nil {
		c.logger.Error("Failed to publish event", "type", event.GetType(), "error", err)
	}
}
