// Package events defines event types and structures for pipeline lifecycle notifications.
package events

import (
	"time"

	"github.com/dukex/leadion/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Kafka topics.
const Topic = "leadion.events" // Topic for pipeline lifecycle events

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Run dispatch events.
	RunRequestedEvent EventType = "run.requested"

	// Pipeline lifecycle events.
	PipelineStartedEvent  EventType = "pipeline.started"
	PipelineFinishedEvent EventType = "pipeline.finished"
	PipelineFailedEvent   EventType = "pipeline.failed"

	// Agent lifecycle events.
	AgentStartedEvent  EventType = "agent.started"
	AgentFinishedEvent EventType = "agent.finished"

	// Task lifecycle events.
	TaskStartedEvent  EventType = "task.started"
	TaskFinishedEvent EventType = "task.finished"

	// Tool and error events.
	ToolStartedEvent EventType = "tool.started"
	ErrorRaisedEvent EventType = "error.raised"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// AgentRef identifies an agent within the engine. ID is a stable correlation
// identifier scoped to the run; Role is the display name and may collide
// across agents, so timing bookkeeping prefers ID.
type AgentRef struct {
	ID   string `json:"id,omitempty"`
	Role string `json:"role"`
}

// TaskRef identifies a task within the engine. Description is free text; the
// canonical task key is derived from it by the tracker.
type TaskRef struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
}

type RunRequested struct {
	BaseEvent

	UserID   string                 `json:"user_id"`
	Campaign models.CampaignRequest `json:"campaign"`
}

func (r RunRequested) GetType() EventType {
	return RunRequestedEvent
}

type PipelineStarted struct {
	BaseEvent

	TotalTasks int `json:"total_tasks"`
}

func (p PipelineStarted) GetType() EventType {
	return PipelineStartedEvent
}

type PipelineFinished struct {
	BaseEvent

	Result   map[string]any `json:"result,omitempty"`
	Duration time.Duration  `json:"duration"`
}

func (p PipelineFinished) GetType() EventType {
	return PipelineFinishedEvent
}

type PipelineFailed struct {
	BaseEvent

	Error    string        `json:"error"`
	Duration time.Duration `json:"duration"`
}

func (p PipelineFailed) GetType() EventType {
	return PipelineFailedEvent
}

type AgentStarted struct {
	BaseEvent

	Agent AgentRef `json:"agent"`
}

func (a AgentStarted) GetType() EventType {
	return AgentStartedEvent
}

type AgentFinished struct {
	BaseEvent

	Agent   AgentRef `json:"agent"`
	Success bool     `json:"success"`
}

func (a AgentFinished) GetType() EventType {
	return AgentFinishedEvent
}

type TaskStarted struct {
	BaseEvent

	Task  TaskRef  `json:"task"`
	Agent AgentRef `json:"agent"`
}

func (t TaskStarted) GetType() EventType {
	return TaskStartedEvent
}

type TaskFinished struct {
	BaseEvent

	Task TaskRef `json:"task"`
	// Output is loosely typed on purpose: the engine may report raw text, a
	// mapping, or a sequence of leads. It is resolved into a tagged variant
	// by pkg/analytics at consumption time.
	Output        any     `json:"output,omitempty"`
	ExecutionTime float64 `json:"execution_time,omitempty"`
}

func (t TaskFinished) GetType() EventType {
	return TaskFinishedEvent
}

type ToolStarted struct {
	BaseEvent

	Tool string `json:"tool"`
}

func (t ToolStarted) GetType() EventType {
	return ToolStartedEvent
}

type ErrorRaised struct {
	BaseEvent

	Error string    `json:"error"`
	Agent *AgentRef `json:"agent,omitempty"`
	Task  *TaskRef  `json:"task,omitempty"`
}

func (e ErrorRaised) GetType() EventType {
	return ErrorRaisedEvent
}

func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Metadata:  make(map[string]any),
	}
}
