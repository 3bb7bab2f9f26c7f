package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

// RunRepository handles campaign-run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRunRepository creates a new campaign run repository.
func NewRunRepository(db *sql.DB, logger *slog.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Create inserts a new campaign run.
func (r *RunRepository) Create(ctx context.Context, run *models.CampaignRun) error {
	if run.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewRunError("Create", "", fmt.Errorf("failed to generate run ID: %w", err))
		}

		run.ID = id.String()
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	campaignJSON, err := json.Marshal(run.Campaign)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, fmt.Errorf("failed to marshal campaign: %w", err))
	}

	query := `
		INSERT INTO campaign_runs (id, user_id, status, campaign, leads_found, evaluation_score, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.UserID, run.Status, campaignJSON, run.LeadsFound,
		run.EvaluationScore, nullableString(run.Error), run.StartedAt, run.FinishedAt)
	if err != nil {
		return persistence.NewRunError("Create", run.ID, fmt.Errorf("failed to insert run: %w", err))
	}

	return nil
}

// ByID returns a campaign run by its ID.
func (r *RunRepository) ByID(ctx context.Context, id string) (*models.CampaignRun, error) {
	query := runSelect + " WHERE id = $1"

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewRunError("ByID", id, persistence.ErrRunNotFound)
		}

		return nil, persistence.NewRunError("ByID", id, err)
	}

	return run, nil
}

// ByUser returns a user's campaign runs, most recent first.
func (r *RunRepository) ByUser(ctx context.Context, userID string) ([]*models.CampaignRun, error) {
	query := runSelect + " WHERE user_id = $1 ORDER BY started_at DESC"

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, persistence.NewRunError("ByUser", "", fmt.Errorf("failed to query runs: %w", err))
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.CampaignRun, 0)

	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, persistence.NewRunError("ByUser", "", fmt.Errorf("failed to scan run: %w", err))
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewRunError("ByUser", "", fmt.Errorf("error iterating runs: %w", err))
	}

	return runs, nil
}

// ActiveByUser returns the user's in-flight run, or nil when none exists.
func (r *RunRepository) ActiveByUser(ctx context.Context, userID string) (*models.CampaignRun, error) {
	query := runSelect + ` WHERE user_id = $1 AND status IN ('pending', 'running') ORDER BY started_at DESC LIMIT 1`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewRunError("ActiveByUser", "", err)
	}

	return run, nil
}

// Update persists changes to an existing run.
func (r *RunRepository) Update(ctx context.Context, run *models.CampaignRun) error {
	campaignJSON, err := json.Marshal(run.Campaign)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, fmt.Errorf("failed to marshal campaign: %w", err))
	}

	query := `
		UPDATE campaign_runs
		SET status = $2, campaign = $3, leads_found = $4, evaluation_score = $5, error = $6, finished_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID, run.Status, campaignJSON, run.LeadsFound,
		run.EvaluationScore, nullableString(run.Error), run.FinishedAt)
	if err != nil {
		return persistence.NewRunError("Update", run.ID, fmt.Errorf("failed to update run: %w", err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRunError("Update", run.ID, fmt.Errorf("failed to check update result: %w", err))
	}

	if affected == 0 {
		return persistence.NewRunError("Update", run.ID, persistence.ErrRunNotFound)
	}

	return nil
}

const runSelect = `
	SELECT
		id
	  , user_id
	  , status
	  , campaign
	  , leads_found
	  , evaluation_score
	  , error
	  , started_at
	  , finished_at
	FROM campaign_runs
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scanRun(row rowScanner) (*models.CampaignRun, error) {
	var (
		run          models.CampaignRun
		campaignJSON []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&run.ID, &run.UserID, &run.Status, &campaignJSON, &run.LeadsFound,
		&run.EvaluationScore, &errorMessage, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(campaignJSON, &run.Campaign); err != nil {
		return nil, fmt.Errorf("failed to unmarshal campaign: %w", err)
	}

	run.Error = errorMessage.String

	return &run, nil
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
