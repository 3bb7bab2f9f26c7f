package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/dukex/leadion/pkg/eventbus"
	"github.com/dukex/leadion/pkg/events"
	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

// ErrRunNotFound is returned when a campaign run is not found.
var ErrRunNotFound = persistence.ErrRunNotFound

// Campaign coordinates campaign runs: it validates requests, records them,
// and dispatches them to the pipeline workers through the event bus.
type Campaign struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	validator   *validator.Validate
}

// NewCampaign creates a new campaign service.
func NewCampaign(persistence persistence.Persistence, eventBus eventbus.EventBus) *Campaign {
	return &Campaign{
		persistence: persistence,
		eventBus:    eventBus,
		validator:   validator.New(),
	}
}

// HealthCheck checks the health of the persistence layer.
func (c *Campaign) HealthCheck(ctx context.Context) (string, bool) {
	if c.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := c.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ParseCampaign validates a raw campaign document against the campaign schema
// and binds it into a CampaignRequest.
func (c *Campaign) ParseCampaign(raw []byte) (*models.CampaignRequest, error) {
	if err := models.ValidateCampaignDocument(raw); err != nil {
		return nil, NewValidationError("ParseCampaign", "INVALID_CAMPAIGN", err.Error(), ErrInvalidCampaign)
	}

	var campaign models.CampaignRequest
	if err := json.Unmarshal(raw, &campaign); err != nil {
		return nil, NewValidationError("ParseCampaign", "INVALID_CAMPAIGN", err.Error(), ErrInvalidCampaign)
	}

	// Targets often arrive as a single comma-separated entry; normalize into
	// trimmed individual clients.
	campaign.TargetClients = models.ParseTargetClients(strings.Join(campaign.TargetClients, ","))

	return &campaign, nil
}

// StartRun validates the campaign, records a pending run, and publishes it
// for execution. Only one active run per user is allowed.
func (c *Campaign) StartRun(ctx context.Context, userID string, campaign models.CampaignRequest) (*models.CampaignRun, error) {
	if err := c.validator.Struct(campaign); err != nil {
		return nil, NewValidationError("StartRun", "INVALID_CAMPAIGN", err.Error(), ErrInvalidCampaign)
	}

	active, err := c.persistence.Runs().ActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active runs: %w", err)
	}

	if active != nil {
		return nil, ErrRunInProgress
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run ID: %w", err)
	}

	run := &models.CampaignRun{
		ID:        id.String(),
		UserID:    userID,
		Status:    models.RunStatusPending,
		Campaign:  campaign,
		StartedAt: time.Now().UTC(),
	}

	if err := c.persistence.Runs().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create campaign run: %w", err)
	}

	event := &events.RunRequested{
		BaseEvent: events.NewBaseEvent(events.RunRequestedEvent, run.ID),
		UserID:    userID,
		Campaign:  campaign,
	}

	if err := c.eventBus.Publish(ctx, run.ID, event); err != nil {
		run.Status = models.RunStatusFailed
		run.Error = "failed to dispatch run"
		_ = c.persistence.Runs().Update(ctx, run)

		return nil, fmt.Errorf("failed to publish run request: %w", err)
	}

	return run, nil
}

// FetchRun retrieves a run and checks it belongs to the given user.
func (c *Campaign) FetchRun(ctx context.Context, userID, runID string) (*models.CampaignRun, error) {
	run, err := c.persistence.Runs().ByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.UserID != userID {
		return nil, ErrNotRunOwner
	}

	return run, nil
}

// RunsByUser lists the user's campaign runs, most recent first.
func (c *Campaign) RunsByUser(ctx context.Context, userID string) ([]*models.CampaignRun, error) {
	runs, err := c.persistence.Runs().ByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// MarkRunning transitions a run to the running state.
func (c *Campaign) MarkRunning(ctx context.Context, runID string) error {
	return c.transition(ctx, runID, func(run *models.CampaignRun) {
		run.Status = models.RunStatusRunning
	})
}

// MarkCompleted records a successful run with its lead count and optional
// evaluation score.
func (c *Campaign) MarkCompleted(ctx context.Context, runID string, leadsFound int, evaluationScore *float64) error {
	return c.transition(ctx, runID, func(run *models.CampaignRun) {
		now := time.Now().UTC()
		run.Status = models.RunStatusCompleted
		run.LeadsFound = leadsFound
		run.EvaluationScore = evaluationScore
		run.FinishedAt = &now
	})
}

// MarkFailed records a failed run with the failure reason.
func (c *Campaign) MarkFailed(ctx context.Context, runID string, reason string) error {
	return c.transition(ctx, runID, func(run *models.CampaignRun) {
		now := time.Now().UTC()
		run.Status = models.RunStatusFailed
		run.Error = reason
		run.FinishedAt = &now
	})
}

func (c *Campaign) transition(ctx context.Context, runID string, apply func(*models.CampaignRun)) error {
	run, err := c.persistence.Runs().ByID(ctx, runID)
	if err != nil {
		return err
	}

	apply(run)

	if err := c.persistence.Runs().Update(ctx, run); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}

	return nil
}
