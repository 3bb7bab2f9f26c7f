package runner_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dukex/leadion/pkg/channels/gochannel"
	"github.com/dukex/leadion/pkg/crew"
	"github.com/dukex/leadion/pkg/emailverify"
	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/export"
	"github.com/dukex/leadion/pkg/metrics"
	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence/file"
	"github.com/dukex/leadion/pkg/protocol"
	"github.com/dukex/leadion/pkg/registry"
	"github.com/dukex/leadion/pkg/runner"
	"github.com/dukex/leadion/pkg/services"
	"github.com/dukex/leadion/pkg/tracker"
)

func testCampaign() models.CampaignRequest {
	return models.CampaignRequest{
		SearchStrategy: "b2b saas founders",
		TargetClients:  []string{"fintech"},
		CampaignAgenda: "Q3 outreach",
		MaxLeads:       10,
		SearchDepth:    1,
	}
}

// End-to-end through the in-memory bus: a dispatched run executes the full
// agent pipeline and the stored run reflects the outcome. The external
// services are all unconfigured, so the pipeline runs in degraded mode and
// finds no leads.
func TestRunner_ExecutesDispatchedRun(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	publisher, subscriber, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(publisher, subscriber)
	t.Cleanup(func() { _ = bus.Close() })

	reg := registry.NewRegistry(slog.Default())
	crew.RegisterAgents(reg, emailverify.NewClient(""), export.NewClient(""))

	campaignService := services.NewCampaign(store, bus)

	r := runner.NewRunner("runner-test", reg, campaignService, bus, noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, r.Register())
	require.NoError(t, bus.Subscribe(t.Context()))

	run, err := campaignService.StartRun(t.Context(), "user-1", testCampaign())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		current, err := store.Runs().ByID(t.Context(), run.ID)

		return err == nil && current.Status == models.RunStatusCompleted
	}, 10*time.Second, 20*time.Millisecond)

	current, err := store.Runs().ByID(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.LeadsFound)
	require.NotNil(t, current.FinishedAt)
}

type stubAgent struct {
	id     string
	role   string
	task   string
	delay  time.Duration
	output any
}

func (a *stubAgent) ID() string              { return a.id }
func (a *stubAgent) Role() string            { return a.role }
func (a *stubAgent) TaskDescription() string { return a.task }

func (a *stubAgent) Execute(ctx context.Context, _ protocol.AgentContext, _ *slog.Logger) (any, error) {
	if a.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.delay):
		}
	}

	return a.output, nil
}

type stubAgentFactory struct{ agent *stubAgent }

func (f *stubAgentFactory) ID() string { return f.agent.id }

func (f *stubAgentFactory) Create(_ map[string]any) (protocol.Agent, error) {
	return f.agent, nil
}

// The run executes off the bus consumer goroutine, so the tracker keeps
// draining lifecycle events while the pipeline is still in flight: status
// shows running mid-run, and the lead count survives the finish event.
func TestRunner_TrackerObservesProgressMidRun(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	publisher, subscriber, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(publisher, subscriber)
	t.Cleanup(func() { _ = bus.Close() })

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterAgent(&stubAgentFactory{&stubAgent{
		id:     "scraper_agent",
		role:   "Lead Scraper",
		task:   "Scrape LinkedIn for leads",
		delay:  300 * time.Millisecond,
		output: "Found 7 leads",
	}})
	reg.RegisterAgent(&stubAgentFactory{&stubAgent{
		id:     "email_finder_agent",
		role:   "Email Finder",
		task:   "Enrich profiles with contact details",
		output: "Enriched 7 profiles",
	}})
	reg.RegisterAgent(&stubAgentFactory{&stubAgent{
		id:     "email_validator_agent",
		role:   "Email Validator",
		task:   "Validate email addresses",
		output: map[string]any{"valid_count": 6},
	}})
	reg.RegisterAgent(&stubAgentFactory{&stubAgent{
		id:     "data_analytics_agent",
		role:   "Data Analyst",
		task:   "Save campaign data",
		output: "Stored campaign results",
	}})

	state := tracker.NewStateManager()
	collector, err := metrics.NewCollector(false)
	require.NoError(t, err)
	require.NoError(t, tracker.NewHandlers(state, collector, nil).Register(bus))

	campaignService := services.NewCampaign(store, bus)

	r := runner.NewRunner("runner-test", reg, campaignService, bus, noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, r.Register())
	require.NoError(t, bus.Subscribe(t.Context()))

	run, err := campaignService.StartRun(t.Context(), "user-1", testCampaign())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return state.GetState().WorkflowStatus == tracker.StatusRunning
	}, 5*time.Second, 10*time.Millisecond, "status must be visible while the run is in flight")

	assert.Eventually(t, func() bool {
		return state.GetState().WorkflowStatus == tracker.StatusCompleted
	}, 10*time.Second, 20*time.Millisecond)

	snapshot := state.GetState()
	assert.Equal(t, 7, snapshot.Analytics["leads_found"])

	assert.Eventually(t, func() bool {
		current, err := store.Runs().ByID(t.Context(), run.ID)

		return err == nil && current.Status == models.RunStatusCompleted
	}, 10*time.Second, 20*time.Millisecond)
}

func TestRunner_UnknownAgentMarksRunFailed(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	publisher, subscriber, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(publisher, subscriber)
	t.Cleanup(func() { _ = bus.Close() })

	// Nothing registered: building the pipeline must fail and the run must be
	// recorded as failed rather than redelivered.
	reg := registry.NewRegistry(slog.Default())

	campaignService := services.NewCampaign(store, bus)

	r := runner.NewRunner("runner-test", reg, campaignService, bus, noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, r.Register())
	require.NoError(t, bus.Subscribe(t.Context()))

	run, err := campaignService.StartRun(t.Context(), "user-1", testCampaign())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		current, err := store.Runs().ByID(t.Context(), run.ID)

		return err == nil && current.Status == models.RunStatusFailed
	}, 10*time.Second, 20*time.Millisecond)

	current, err := store.Runs().ByID(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Contains(t, current.Error, "scraper_agent")
}
