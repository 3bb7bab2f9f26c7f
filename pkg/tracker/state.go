// Package tracker maintains the in-flight progress state of a pipeline run.
// It translates engine lifecycle events into state mutations and exposes
// snapshots for the UI polling layer. State lives in memory only; a process
// restart loses it.
package tracker

import "time"

// Status is the lifecycle phase of a pipeline run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// TaskNames maps canonical task keys to their display names.
var TaskNames = map[string]string{
	"scrape_leads":         "Lead Scraping",
	"find_lead_emails":     "Email Finding",
	"validate_lead_emails": "Email Validation",
	"save_data":            "Data Storage",
}

// taskOrder is the fixed canonical pipeline order. current_step is the
// 1-based index into this list.
var taskOrder = []string{
	"scrape_leads",
	"find_lead_emails",
	"validate_lead_emails",
	"save_data",
}

// Progress describes how far the run has advanced through the task order.
type Progress struct {
	Percentage     float64  `json:"percentage"`
	CompletedTasks []string `json:"completed_tasks"`
	TotalTasks     int      `json:"total_tasks"`
	CurrentStep    int      `json:"current_step"`
}

// Timing holds the raw timestamps the ETA extrapolation is derived from.
type Timing struct {
	StartTime           *time.Time `json:"start_time,omitempty"`
	CurrentTaskStart    *time.Time `json:"current_task_start,omitempty"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
}

// Snapshot is a point-in-time copy of the tracked state, safe to hand to the
// UI layer without further locking.
type Snapshot struct {
	WorkflowStatus Status         `json:"workflow_status"`
	CurrentAgent   string         `json:"current_agent,omitempty"`
	CurrentTask    string         `json:"current_task,omitempty"`
	CurrentTool    string         `json:"current_tool,omitempty"`
	Progress       Progress       `json:"progress"`
	Analytics      map[string]any `json:"analytics"`
	Evaluation     map[string]any `json:"evaluation,omitempty"`
	Timing         Timing         `json:"timing"`
	Errors         []string       `json:"errors"`
	LastUpdate     time.Time      `json:"last_update"`
}

// Summary condenses the run's analytics for reporting.
type Summary struct {
	LeadsFound      int      `json:"leads_found"`
	ExecutionTime   float64  `json:"execution_time"`
	SuccessRate     float64  `json:"success_rate"`
	EvaluationScore *float64 `json:"evaluation_score,omitempty"`
}
