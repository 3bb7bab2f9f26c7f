package crew

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/events"
	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/protocol"
)

type recordingBus struct {
	mu        sync.Mutex
	published []eventbus.Event
}

func (b *recordingBus) Publish(_ context.Context, _ string, event eventbus.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published = append(b.published, event)

	return nil
}

func (b *recordingBus) Handle(events.EventType, eventbus.EventHandler) error { return nil }
func (b *recordingBus) Subscribe(context.Context) error                      { return nil }
func (b *recordingBus) Close() error                                         { return nil }
func (b *recordingBus) GenerateID() string                                   { return "test" }

func (b *recordingBus) types() []events.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()

	eventTypes := make([]events.EventType, 0, len(b.published))
	for _, event := range b.published {
		eventTypes = append(eventTypes, event.GetType())
	}

	return eventTypes
}

type stubAgent struct {
	id          string
	role        string
	description string
	output      any
	err         error
}

func (a *stubAgent) ID() string              { return a.id }
func (a *stubAgent) Role() string            { return a.role }
func (a *stubAgent) TaskDescription() string { return a.description }

func (a *stubAgent) Execute(_ context.Context, _ protocol.AgentContext, _ *slog.Logger) (any, error) {
	return a.output, a.err
}

func testCampaign() models.CampaignRequest {
	return models.CampaignRequest{
		SearchStrategy: "b2b saas founders",
		TargetClients:  []string{"fintech"},
		CampaignAgenda: "Q3 outreach",
		MaxLeads:       50,
		SearchDepth:    2,
	}
}

func TestSequentialCrew_PublishesLifecycleEvents(t *testing.T) {
	bus := &recordingBus{}
	crew := NewSequentialCrew([]protocol.Agent{
		&stubAgent{id: "scraper_agent", role: "Lead Scraper", description: "Scrape LinkedIn for leads", output: "Found 5 leads"},
		&stubAgent{id: "email_validator_agent", role: "Email Validator", description: "Validate email addresses", output: map[string]any{"leads_found": 5}},
	}, bus, noop.NewTracerProvider().Tracer("test"))

	outputs, err := crew.Run(t.Context(), "run-12345678", testCampaign())
	require.NoError(t, err)

	assert.Equal(t, "Found 5 leads", outputs["scraper_agent"])
	assert.Equal(t, map[string]any{"leads_found": 5}, outputs["email_validator_agent"])

	assert.Equal(t, []events.EventType{
		events.PipelineStartedEvent,
		events.AgentStartedEvent,
		events.TaskStartedEvent,
		events.TaskFinishedEvent,
		events.AgentFinishedEvent,
		events.AgentStartedEvent,
		events.TaskStartedEvent,
		events.TaskFinishedEvent,
		events.AgentFinishedEvent,
		events.PipelineFinishedEvent,
	}, bus.types())
}

func TestSequentialCrew_TaskCorrelationIDs(t *testing.T) {
	bus := &recordingBus{}
	crew := NewSequentialCrew([]protocol.Agent{
		&stubAgent{id: "scraper_agent", role: "Lead Scraper", description: "Scrape LinkedIn for leads", output: "ok"},
	}, bus, noop.NewTracerProvider().Tracer("test"))

	_, err := crew.Run(t.Context(), "run-12345678", testCampaign())
	require.NoError(t, err)

	for _, event := range bus.published {
		if started, ok := event.(*events.TaskStarted); ok {
			assert.Equal(t, "scraper_agent:run-12345678", started.Task.ID)
		}

		if finished, ok := event.(*events.TaskFinished); ok {
			assert.Equal(t, "scraper_agent:run-12345678", finished.Task.ID)
			assert.Positive(t, finished.ExecutionTime)
		}
	}
}

func TestSequentialCrew_AgentFailureStopsPipeline(t *testing.T) {
	bus := &recordingBus{}
	boom := errors.New("scraping service returned status 500")
	crew := NewSequentialCrew([]protocol.Agent{
		&stubAgent{id: "scraper_agent", role: "Lead Scraper", description: "Scrape LinkedIn for leads", err: boom},
		&stubAgent{id: "email_validator_agent", role: "Email Validator", description: "Validate email addresses", output: "never runs"},
	}, bus, noop.NewTracerProvider().Tracer("test"))

	outputs, err := crew.Run(t.Context(), "run-12345678", testCampaign())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, outputs)

	assert.Equal(t, []events.EventType{
		events.PipelineStartedEvent,
		events.AgentStartedEvent,
		events.TaskStartedEvent,
		events.ErrorRaisedEvent,
		events.AgentFinishedEvent,
		events.PipelineFailedEvent,
	}, bus.types())

	for _, event := range bus.published {
		if finished, ok := event.(*events.AgentFinished); ok {
			assert.False(t, finished.Success)
		}
	}
}

func TestSequentialCrew_PassesPriorOutputsDownstream(t *testing.T) {
	bus := &recordingBus{}
	leads := models.LeadList{Leads: []models.Lead{{Name: "Ada Lovelace", Company: "Analytical Engines"}}}

	var seenOutputs map[string]any

	downstream := &inspectingAgent{
		stubAgent: stubAgent{id: "email_finder_agent", role: "Email Finder", description: "Find work email addresses"},
		inspect:   func(agentCtx protocol.AgentContext) { seenOutputs = agentCtx.Outputs },
	}

	crew := NewSequentialCrew([]protocol.Agent{
		&stubAgent{id: "scraper_agent", role: "Lead Scraper", description: "Scrape LinkedIn for leads", output: leads},
		downstream,
	}, bus, noop.NewTracerProvider().Tracer("test"))

	_, err := crew.Run(t.Context(), "run-12345678", testCampaign())
	require.NoError(t, err)
	assert.Equal(t, leads, seenOutputs["scraper_agent"])
}

type inspectingAgent struct {
	stubAgent

	inspect func(protocol.AgentContext)
}

func (a *inspectingAgent) Execute(_ context.Context, agentCtx protocol.AgentContext, _ *slog.Logger) (any, error) {
	a.inspect(agentCtx)

	return a.output, a.err
}
