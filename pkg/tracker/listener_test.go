package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/leadion/pkg/events"
)

func TestProgressListener_FullRun(t *testing.T) {
	listener := NewProgressListener()
	ctx := t.Context()

	assert.Equal(t, StatusIdle, listener.State().WorkflowStatus)

	require.NoError(t, listener.onPipelineStarted(ctx, &events.PipelineStarted{
		BaseEvent: events.NewBaseEvent(events.PipelineStartedEvent, "run-1"),
	}))
	require.NoError(t, listener.onAgentStarted(ctx, &events.AgentStarted{
		BaseEvent: events.NewBaseEvent(events.AgentStartedEvent, "run-1"),
		Agent:     events.AgentRef{Role: "Lead Scraper"},
	}))
	require.NoError(t, listener.onTaskStarted(ctx, &events.TaskStarted{
		BaseEvent: events.NewBaseEvent(events.TaskStartedEvent, "run-1"),
		Task:      events.TaskRef{Description: "Scrape LinkedIn for leads"},
	}))

	state := listener.State()
	assert.Equal(t, StatusRunning, state.WorkflowStatus)
	assert.Equal(t, "Lead Scraper", state.CurrentAgent)
	assert.Equal(t, "scrape_leads", state.CurrentTask)

	require.NoError(t, listener.onTaskFinished(ctx, &events.TaskFinished{
		BaseEvent: events.NewBaseEvent(events.TaskFinishedEvent, "run-1"),
		Task:      events.TaskRef{Description: "Scrape LinkedIn for leads"},
	}))
	require.NoError(t, listener.onAgentFinished(ctx, &events.AgentFinished{
		BaseEvent: events.NewBaseEvent(events.AgentFinishedEvent, "run-1"),
		Agent:     events.AgentRef{Role: "Lead Scraper"},
		Success:   true,
	}))

	state = listener.State()
	assert.Empty(t, state.CurrentAgent)
	assert.Empty(t, state.CurrentTask)
	assert.Equal(t, []string{"scrape_leads"}, state.Progress.CompletedTasks)
	assert.InDelta(t, 25.0, state.Progress.Percentage, 0.0001)

	require.NoError(t, listener.onPipelineFinished(ctx, &events.PipelineFinished{
		BaseEvent: events.NewBaseEvent(events.PipelineFinishedEvent, "run-1"),
		Result:    map[string]any{"leads_found": 21},
	}))

	state = listener.State()
	assert.Equal(t, StatusCompleted, state.WorkflowStatus)
	assert.Equal(t, 21, state.Analytics["leads_found"])
}

func TestProgressListener_FinishWithAgentKeyedResult(t *testing.T) {
	listener := NewProgressListener()

	require.NoError(t, listener.onPipelineFinished(t.Context(), &events.PipelineFinished{
		BaseEvent: events.NewBaseEvent(events.PipelineFinishedEvent, "run-1"),
		Result: map[string]any{
			"scraper_agent":        "Found 4 leads",
			"data_analytics_agent": "Stored campaign results",
		},
	}))

	assert.Equal(t, 4, listener.State().Analytics["leads_found"])
}

func TestProgressListener_AgentClearedOnlyWhenMatching(t *testing.T) {
	listener := NewProgressListener()
	ctx := t.Context()

	require.NoError(t, listener.onAgentStarted(ctx, &events.AgentStarted{
		BaseEvent: events.NewBaseEvent(events.AgentStartedEvent, "run-1"),
		Agent:     events.AgentRef{Role: "Email Validator"},
	}))

	// A stale finish from a different agent must not clear the current one.
	require.NoError(t, listener.onAgentFinished(ctx, &events.AgentFinished{
		BaseEvent: events.NewBaseEvent(events.AgentFinishedEvent, "run-1"),
		Agent:     events.AgentRef{Role: "Lead Scraper"},
	}))

	assert.Equal(t, "Email Validator", listener.State().CurrentAgent)
}

func TestProgressListener_CompletedTasksDeduplicated(t *testing.T) {
	listener := NewProgressListener()
	ctx := t.Context()

	for range 3 {
		require.NoError(t, listener.onTaskFinished(ctx, &events.TaskFinished{
			BaseEvent: events.NewBaseEvent(events.TaskFinishedEvent, "run-1"),
			Task:      events.TaskRef{Description: "Save campaign data"},
		}))
	}

	assert.Equal(t, []string{"save_data"}, listener.State().Progress.CompletedTasks)
}

func TestProgressListener_PipelineStartedResets(t *testing.T) {
	listener := NewProgressListener()
	ctx := t.Context()

	require.NoError(t, listener.onTaskFinished(ctx, &events.TaskFinished{
		BaseEvent: events.NewBaseEvent(events.TaskFinishedEvent, "run-1"),
		Task:      events.TaskRef{Description: "Scrape LinkedIn for leads"},
		Output:    "Found 9 leads",
	}))
	require.NoError(t, listener.onPipelineStarted(ctx, &events.PipelineStarted{
		BaseEvent: events.NewBaseEvent(events.PipelineStartedEvent, "run-2"),
	}))

	state := listener.State()
	assert.Empty(t, state.Progress.CompletedTasks)
	assert.Equal(t, 0, state.Analytics["leads_found"])
}
