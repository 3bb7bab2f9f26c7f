package file

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/leadion/pkg/models"
	"github.com/dukex/leadion/pkg/persistence"
)

const runsCollection = "campaign_runs"

// RunRepository stores campaign runs in a JSON collection file.
type RunRepository struct {
	store *store
}

func (r *RunRepository) Create(ctx context.Context, run *models.CampaignRun) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var runs []*models.CampaignRun
	if err := r.store.load(runsCollection, &runs); err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	runs = append(runs, run)

	if err := r.store.save(runsCollection, runs); err != nil {
		return persistence.NewRunError("Create", run.ID, err)
	}

	return nil
}

func (r *RunRepository) ByID(ctx context.Context, id string) (*models.CampaignRun, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var runs []*models.CampaignRun
	if err := r.store.load(runsCollection, &runs); err != nil {
		return nil, persistence.NewRunError("ByID", id, err)
	}

	for _, run := range runs {
		if run.ID == id {
			return run, nil
		}
	}

	return nil, persistence.NewRunError("ByID", id, persistence.ErrRunNotFound)
}

func (r *RunRepository) ByUser(ctx context.Context, userID string) ([]*models.CampaignRun, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var runs []*models.CampaignRun
	if err := r.store.load(runsCollection, &runs); err != nil {
		return nil, persistence.NewRunError("ByUser", "", err)
	}

	owned := make([]*models.CampaignRun, 0)

	for _, run := range runs {
		if run.UserID == userID {
			owned = append(owned, run)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].StartedAt.After(owned[j].StartedAt)
	})

	return owned, nil
}

func (r *RunRepository) ActiveByUser(ctx context.Context, userID string) (*models.CampaignRun, error) {
	runs, err := r.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, run := range runs {
		if run.Status == models.RunStatusPending || run.Status == models.RunStatusRunning {
			return run, nil
		}
	}

	return nil, nil
}

func (r *RunRepository) Update(ctx context.Context, run *models.CampaignRun) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var runs []*models.CampaignRun
	if err := r.store.load(runsCollection, &runs); err != nil {
		return persistence.NewRunError("Update", run.ID, err)
	}

	for i, existing := range runs {
		if existing.ID == run.ID {
			runs[i] = run

			if err := r.store.save(runsCollection, runs); err != nil {
				return persistence.NewRunError("Update", run.ID, err)
			}

			return nil
		}
	}

	return persistence.NewRunError("Update", run.ID, persistence.ErrRunNotFound)
}
