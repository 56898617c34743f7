package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaconnect/campaign-service/internal/domain"
)

type CampaignRepository struct {
	db *sqlx.DB
}

func NewCampaignRepository(db *sqlx.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create stores a new campaign with its criteria snapshot. The snapshot is
// what dispatch and reprocessing operate on; later edits to the filter form
// never affect a campaign that has already been created.
func (r *CampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	query := `
		INSERT INTO campaigns (name, message, media_url, criteria, status, created_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`

	result, err := r.db.ExecContext(ctx, query,
		campaign.Name, campaign.Message, campaign.MediaURL, campaign.Criteria, campaign.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	campaign.ID = id
	campaign.CreatedAt = time.Now()

	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int64) (*domain.Campaign, error) {
	query := `
		SELECT id, name, message, media_url, criteria, status, created_at, closed_at
		FROM campaigns
		WHERE id = ?
	`

	var campaign domain.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}

	return &campaign, nil
}

// GetByName returns the most recent campaign with the given name. Operators
// reference campaigns by the event name they typed; ids stay internal.
func (r *CampaignRepository) GetByName(ctx context.Context, name string) (*domain.Campaign, error) {
	query := `
		SELECT id, name, message, media_url, criteria, status, created_at, closed_at
		FROM campaigns
		WHERE name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var campaign domain.Campaign
	if err := r.db.GetContext(ctx, &campaign, query, name); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get campaign by name: %w", err)
	}

	return &campaign, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id int64, status domain.CampaignStatus) error {
	query := `UPDATE campaigns SET status = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, status, id); err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}

	return nil
}

// Close marks a campaign finished once its dispatch run completed.
func (r *CampaignRepository) Close(ctx context.Context, id int64) error {
	query := `
		UPDATE campaigns
		SET status = ?, closed_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := r.db.ExecContext(ctx, query, domain.CampaignFinished, id); err != nil {
		return fmt.Errorf("failed to close campaign: %w", err)
	}

	return nil
}
