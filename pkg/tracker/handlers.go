package tracker

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukex/leadion/pkg/analytics"
	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/events"
	"github.com/dukex/leadion/pkg/evaluation"
	"github.com/dukex/leadion/pkg/log"
	"github.com/dukex/leadion/pkg/metrics"
)

const (
	unknownAgent = "Unknown Agent"
	unknownTask  = "Unknown Task"
	unknownTool  = "Unknown Tool"
)

// Evaluator scores a finished run. It is optional: a nil evaluator leaves
// the evaluation section of the state empty.
type Evaluator interface {
	EvaluateAllAgents(ctx context.Context, result map[string]any) ([]evaluation.AgentEvaluation, error)
	EvaluateWorkflow(ctx context.Context, result map[string]any) (*evaluation.WorkflowEvaluation, error)
}

// Handlers translates engine lifecycle events into StateManager mutations and
// metric recordings. Handlers always return nil to the bus: a tracking
// failure must never nack the event and abort the observed run.
type Handlers struct {
	state     *StateManager
	metrics   *metrics.Collector
	evaluator Evaluator
	logger    *slog.Logger

	// Timing maps are keyed by the event's correlation ID, falling back to
	// the display name when the engine did not assign one. A finish or error
	// for an untracked key records duration 0.
	mu          sync.Mutex
	agentStarts map[string]time.Time
	taskStarts  map[string]time.Time
}

func NewHandlers(state *StateManager, collector *metrics.Collector, evaluator Evaluator) *Handlers {
	return &Handlers{
		state:       state,
		metrics:     collector,
		evaluator:   evaluator,
		logger:      log.WithModule("tracker"),
		agentStarts: make(map[string]time.Time),
		taskStarts:  make(map[string]time.Time),
	}
}

// Register subscribes every handler on the bus.
func (h *Handlers) Register(bus eventbus.EventBus) error {
	subscriptions := map[events.EventType]eventbus.EventHandler{
		events.PipelineStartedEvent:  h.HandlePipelineStarted,
		events.PipelineFinishedEvent: h.HandlePipelineFinished,
		events.PipelineFailedEvent:   h.HandlePipelineFailed,
		events.AgentStartedEvent:     h.HandleAgentStarted,
		events.AgentFinishedEvent:    h.HandleAgentFinished,
		events.TaskStartedEvent:      h.HandleTaskStarted,
		events.TaskFinishedEvent:     h.HandleTaskFinished,
		events.ToolStartedEvent:      h.HandleToolStarted,
		events.ErrorRaisedEvent:      h.HandleErrorRaised,
	}

	for eventType, handler := range subscriptions {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return nil
}

func (h *Handlers) HandlePipelineStarted(ctx context.Context, raw any) error {
	_, ok := raw.(*events.PipelineStarted)
	if !ok {
		return nil
	}

	h.mu.Lock()
	h.agentStarts = make(map[string]time.Time)
	h.taskStarts = make(map[string]time.Time)
	h.mu.Unlock()

	h.state.Reset()
	h.state.SetStartTime()
	h.state.UpdateStatus(StatusRunning)
	h.metrics.RecordWorkflowStart(ctx)

	return nil
}

func (h *Handlers) HandlePipelineFinished(ctx context.Context, raw any) error {
	event, ok := raw.(*events.PipelineFinished)
	if !ok {
		return nil
	}

	h.state.UpdateStatus(StatusCompleted)
	h.state.UpdateCurrentAgent("")
	h.state.UpdateCurrentTask("")
	h.state.UpdateCurrentTool("")

	if event.Result != nil {
		h.state.MergeLeadsFound(resultLeads(event.Result))

		if h.evaluator != nil {
			h.runEvaluation(ctx, event.Result)
		}
	}

	h.metrics.RecordWorkflowCompletion(ctx, event.Duration.Seconds(), true)

	return nil
}

func (h *Handlers) HandlePipelineFailed(ctx context.Context, raw any) error {
	event, ok := raw.(*events.PipelineFailed)
	if !ok {
		return nil
	}

	h.state.AddError(event.Error)
	h.state.UpdateStatus(StatusFailed)
	h.metrics.RecordWorkflowCompletion(ctx, event.Duration.Seconds(), false)

	return nil
}

func (h *Handlers) HandleAgentStarted(ctx context.Context, raw any) error {
	event, ok := raw.(*events.AgentStarted)
	if !ok {
		return nil
	}

	role := event.Agent.Role
	if role == "" {
		role = unknownAgent
	}

	h.state.UpdateCurrentAgent(role)
	h.state.UpdateCurrentTask("")
	h.state.UpdateCurrentTool("")

	h.mu.Lock()
	h.agentStarts[agentKey(event.Agent)] = time.Now()
	h.mu.Unlock()

	return nil
}

func (h *Handlers) HandleAgentFinished(ctx context.Context, raw any) error {
	event, ok := raw.(*events.AgentFinished)
	if !ok {
		return nil
	}

	role := event.Agent.Role
	if role == "" {
		role = unknownAgent
	}

	duration := h.popStart(h.agentStarts, agentKey(event.Agent))
	h.metrics.RecordAgentExecution(ctx, role, duration, !event.Success)

	// The current agent stays visible until the next one starts.
	return nil
}

func (h *Handlers) HandleTaskStarted(ctx context.Context, raw any) error {
	event, ok := raw.(*events.TaskStarted)
	if !ok {
		return nil
	}

	taskKey := ClassifyTask(taskDescription(&event.Task))
	h.state.UpdateCurrentTask(taskKey)

	h.mu.Lock()
	h.taskStarts[timingKey(event.Task.ID, taskKey)] = time.Now()
	h.mu.Unlock()

	return nil
}

func (h *Handlers) HandleTaskFinished(ctx context.Context, raw any) error {
	event, ok := raw.(*events.TaskFinished)
	if !ok {
		return nil
	}

	taskKey := ClassifyTask(taskDescription(&event.Task))
	h.state.AddCompletedTask(taskKey)

	duration := h.popStart(h.taskStarts, timingKey(event.Task.ID, taskKey))
	h.metrics.RecordTaskExecution(ctx, taskKey, duration, false)

	if event.Output != nil {
		agentName := TaskAgent(taskKey)
		result := h.state.ProcessAgentOutput(agentName, taskKey, event.Output, true, "", event.ExecutionTime)
		h.metrics.RecordLeads(ctx, result.LeadsFound)
	}

	return nil
}

func (h *Handlers) HandleToolStarted(ctx context.Context, raw any) error {
	event, ok := raw.(*events.ToolStarted)
	if !ok {
		return nil
	}

	tool := event.Tool
	if tool == "" {
		tool = unknownTool
	}

	h.state.UpdateCurrentTool(tool)

	return nil
}

func (h *Handlers) HandleErrorRaised(ctx context.Context, raw any) error {
	event, ok := raw.(*events.ErrorRaised)
	if !ok {
		return nil
	}

	message := event.Error
	if message == "" {
		message = "Unknown error occurred"
	}

	h.state.AddError(message)
	h.state.UpdateStatus(StatusFailed)

	if event.Agent != nil && event.Agent.Role != "" {
		h.popStart(h.agentStarts, agentKey(*event.Agent))
		h.metrics.RecordAgentExecution(ctx, event.Agent.Role, 0, true)
	}

	if event.Task != nil && event.Task.Description != "" {
		taskKey := ClassifyTask(event.Task.Description)
		h.popStart(h.taskStarts, timingKey(event.Task.ID, taskKey))
		h.metrics.RecordTaskExecution(ctx, taskKey, 0, true)
	}

	return nil
}

// popStart removes a start timestamp and returns the elapsed seconds, or 0
// when the key was never tracked.
func (h *Handlers) popStart(starts map[string]time.Time, key string) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	start, tracked := starts[key]
	if !tracked {
		return 0
	}

	delete(starts, key)

	return time.Since(start).Seconds()
}

func (h *Handlers) runEvaluation(ctx context.Context, result map[string]any) {
	agentEvaluations, err := h.evaluator.EvaluateAllAgents(ctx, result)
	if err != nil {
		h.logger.Error("Agent evaluation failed", "error", err)
	}

	workflowEvaluation, err := h.evaluator.EvaluateWorkflow(ctx, result)
	if err != nil {
		h.logger.Error("Workflow evaluation failed", "error", err)
		h.state.UpdateEvaluation(map[string]any{
			"workflow_evaluation": map[string]any{"error": err.Error()},
			"agent_evaluations":   agentEvaluations,
			"evaluation_enabled":  false,
		})

		return
	}

	h.state.UpdateEvaluation(map[string]any{
		"workflow_evaluation": workflowEvaluation,
		"agent_evaluations":   agentEvaluations,
		"evaluation_enabled":  true,
	})
	h.state.RecordEvaluationScore(workflowEvaluation.Score)
	h.metrics.RecordEvaluationResult(ctx, workflowEvaluation.Score, workflowEvaluation.Passed)

	h.logger.Info("Evaluation completed", "score", workflowEvaluation.Score, "passed", workflowEvaluation.Passed)
}

// ClassifyTask derives the canonical task key from the engine's free-text
// task description. Matching is by keyword, in priority order.
func ClassifyTask(description string) string {
	lowered := strings.ToLower(description)

	switch {
	case strings.Contains(lowered, "user input") || strings.Contains(lowered, "collect"):
		return "collect_user_input"
	case strings.Contains(lowered, "scrape") || strings.Contains(lowered, "lead"):
		return "scrape_leads"
	case strings.Contains(lowered, "validate") || strings.Contains(lowered, "email validation"):
		return "validate_lead_emails"
	case strings.Contains(lowered, "save") || strings.Contains(lowered, "data"):
		return "save_data"
	default:
		return "unknown_task"
	}
}

var taskAgents = map[string]string{
	"collect_user_input":   "user_input_agent",
	"scrape_leads":         "scraper_agent",
	"validate_lead_emails": "email_validator_agent",
	"save_data":            "data_analytics_agent",
}

// TaskAgent names the agent responsible for a canonical task key.
func TaskAgent(taskKey string) string {
	if agent, known := taskAgents[taskKey]; known {
		return agent
	}

	return "unknown_agent"
}

// resultLeads derives the final leads count from the pipeline result. The
// engine keys the result by agent ID, so the count is the max over every
// per-agent output, plus whatever the result parses to as a whole for engines
// that report a top-level count.
func resultLeads(result map[string]any) int {
	count := analytics.Parse("workflow", result).LeadsFound

	for agentName, output := range result {
		count = max(count, analytics.Parse(agentName, output).LeadsFound)
	}

	return count
}

func agentKey(agent events.AgentRef) string {
	if agent.ID != "" {
		return agent.ID
	}

	if agent.Role != "" {
		return agent.Role
	}

	return unknownAgent
}

func timingKey(correlationID, fallback string) string {
	if correlationID != "" {
		return correlationID
	}

	return fallback
}

func taskDescription(task *events.TaskRef) string {
	if task == nil || task.Description == "" {
		return unknownTask
	}

	return task.Description
}
