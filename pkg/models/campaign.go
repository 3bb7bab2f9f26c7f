package models

import (
	"strings"
	"time"
)

// CampaignRequest is the validated user input that parameterizes one pipeline
// run.
type CampaignRequest struct {
	SearchStrategy string   `json:"search_strategy" validate:"required"`
	TargetClients  []string `json:"target_clients"  validate:"required,min=1,dive,required"`
	CampaignAgenda string   `json:"campaign_agenda" validate:"required"`
	MaxLeads       int      `json:"max_leads"       validate:"required,min=1,max=1000"`
	SearchDepth    int      `json:"search_depth"    validate:"required,min=1,max=5"`
}

// ParseTargetClients splits a comma-separated target list into trimmed,
// non-empty entries.
func ParseTargetClients(raw string) []string {
	parts := strings.Split(raw, ",")
	clients := make([]string, 0, len(parts))

	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			clients = append(clients, trimmed)
		}
	}

	return clients
}

// RunStatus tracks the lifecycle of a stored campaign run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// CampaignRun is the persisted record of one pipeline execution.
type CampaignRun struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Status          RunStatus       `json:"status"`
	Campaign        CampaignRequest `json:"campaign"`
	LeadsFound      int             `json:"leads_found"`
	EvaluationScore *float64        `json:"evaluation_score,omitempty"`
	Error           string          `json:"error,omitempty"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      *time.Time      `json:"finished_at,omitempty"`
}
