package tracker

import (
	"context"
	"sync"

	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/events"
)

// ProgressListener is a lightweight, independent state holder with the same
// shape as the StateManager snapshot, used for passive read access by UI
// surfaces that only need coarse progress. It keeps no timing maps and
// records no metrics.
type ProgressListener struct {
	mu sync.Mutex

	status         Status
	currentAgent   string
	currentTask    string
	currentTool    string
	completedTasks []string
	leadsFound     int
	evaluation     map[string]any
}

func NewProgressListener() *ProgressListener {
	return &ProgressListener{}
}

// Register subscribes the listener on the bus.
func (l *ProgressListener) Register(bus eventbus.EventBus) error {
	subscriptions := map[events.EventType]eventbus.EventHandler{
		events.PipelineStartedEvent:  l.onPipelineStarted,
		events.PipelineFinishedEvent: l.onPipelineFinished,
		events.PipelineFailedEvent:   l.onPipelineFailed,
		events.AgentStartedEvent:     l.onAgentStarted,
		events.AgentFinishedEvent:    l.onAgentFinished,
		events.TaskStartedEvent:      l.onTaskStarted,
		events.TaskFinishedEvent:     l.onTaskFinished,
		events.ToolStartedEvent:      l.onToolStarted,
	}

	for eventType, handler := range subscriptions {
		if err := bus.Handle(eventType, handler); err != nil {
			return err
		}
	}

	return nil
}

func (l *ProgressListener) onPipelineStarted(ctx context.Context, raw any) error {
	if _, ok := raw.(*events.PipelineStarted); !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.status = StatusRunning
	l.currentAgent = ""
	l.currentTask = ""
	l.currentTool = ""
	l.completedTasks = nil
	l.leadsFound = 0
	l.evaluation = nil

	return nil
}

func (l *ProgressListener) onPipelineFinished(ctx context.Context, raw any) error {
	event, ok := raw.(*events.PipelineFinished)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.status = StatusCompleted
	l.currentAgent = ""
	l.currentTask = ""
	l.currentTool = ""

	if event.Result != nil {
		l.leadsFound = max(l.leadsFound, resultLeads(event.Result))
	}

	return nil
}

func (l *ProgressListener) onPipelineFailed(ctx context.Context, raw any) error {
	if _, ok := raw.(*events.PipelineFailed); !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.status = StatusFailed
	l.currentAgent = ""
	l.currentTask = ""
	l.currentTool = ""

	return nil
}

func (l *ProgressListener) onAgentStarted(ctx context.Context, raw any) error {
	event, ok := raw.(*events.AgentStarted)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentAgent = event.Agent.Role

	return nil
}

func (l *ProgressListener) onAgentFinished(ctx context.Context, raw any) error {
	event, ok := raw.(*events.AgentFinished)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentAgent == event.Agent.Role {
		l.currentAgent = ""
	}

	return nil
}

func (l *ProgressListener) onTaskStarted(ctx context.Context, raw any) error {
	event, ok := raw.(*events.TaskStarted)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentTask = ClassifyTask(taskDescription(&event.Task))

	return nil
}

func (l *ProgressListener) onTaskFinished(ctx context.Context, raw any) error {
	event, ok := raw.(*events.TaskFinished)
	if !ok {
		return nil
	}

	taskKey := ClassifyTask(taskDescription(&event.Task))

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentTask == taskKey {
		l.currentTask = ""
	}

	for _, completed := range l.completedTasks {
		if completed == taskKey {
			return nil
		}
	}

	l.completedTasks = append(l.completedTasks, taskKey)

	return nil
}

func (l *ProgressListener) onToolStarted(ctx context.Context, raw any) error {
	event, ok := raw.(*events.ToolStarted)
	if !ok {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentTool = event.Tool

	return nil
}

// State returns a coarse progress snapshot.
func (l *ProgressListener) State() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	totalTasks := len(taskOrder)
	percentage := float64(len(l.completedTasks)) / float64(totalTasks) * 100

	status := l.status
	if status == "" {
		status = StatusIdle
	}

	completed := make([]string, len(l.completedTasks))
	copy(completed, l.completedTasks)

	return Snapshot{
		WorkflowStatus: status,
		CurrentAgent:   l.currentAgent,
		CurrentTask:    l.currentTask,
		CurrentTool:    l.currentTool,
		Progress: Progress{
			Percentage:     percentage,
			CompletedTasks: completed,
			TotalTasks:     totalTasks,
		},
		Analytics:  map[string]any{"leads_found": l.leadsFound},
		Evaluation: copyMap(l.evaluation),
	}
}
