package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaconnect/campaign-service/internal/domain"
)

// DeliveryRepository is the durable ledger of per-recipient delivery
// outcomes. The UNIQUE(campaign_id, recipient_id) key in the schema is what
// enforces the one-record-per-pair invariant; everything here leans on it.
type DeliveryRepository struct {
	db *sqlx.DB
}

func NewDeliveryRepository(db *sqlx.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// UpsertPending creates a pending record for every recipient that does not
// already have one for this campaign. Existing rows, whatever their status,
// are left untouched, so a restarted dispatch never duplicates work.
func (r *DeliveryRepository) UpsertPending(ctx context.Context, campaignID int64, recipients []domain.Recipient) error {
	if len(recipients) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(recipients))
	args := make([]any, 0, len(recipients)*3)
	for _, recipient := range recipients {
		placeholders = append(placeholders, "(?, ?, ?, 'pending')")
		args = append(args, campaignID, recipient.ID, recipient.Phone)
	}

	query := fmt.Sprintf(`
		INSERT INTO delivery_records (campaign_id, recipient_id, phone, status)
		VALUES %s
		ON DUPLICATE KEY UPDATE id = id
	`, strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert pending records: %w", err)
	}

	return nil
}

// RecordOutcome writes the result of one delivery attempt. A record that is
// already sent is never overwritten: the guarded UPDATE skips it and the
// caller gets domain.ErrTerminalState instead.
func (r *DeliveryRepository) RecordOutcome(
	ctx context.Context,
	campaignID, recipientID int64,
	status domain.DeliveryStatus,
	errorReason string,
) error {
	query := `
		UPDATE delivery_records
		SET status = ?, attempted_at = ?, error_reason = ?, updated_at = CURRENT_TIMESTAMP
		WHERE campaign_id = ? AND recipient_id = ? AND status <> 'sent'
	`

	var reason *string
	if errorReason != "" {
		reason = &errorReason
	}

	result, err := r.db.ExecContext(ctx, query, status, time.Now(), reason, campaignID, recipientID)
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		existing, err := r.GetRecord(ctx, campaignID, recipientID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("delivery record for campaign %d recipient %d: %w",
				campaignID, recipientID, domain.ErrNotFound)
		}
		if existing.Status.Terminal() {
			return fmt.Errorf("campaign %d recipient %d already sent: %w",
				campaignID, recipientID, domain.ErrTerminalState)
		}
		// Same status written twice (e.g. failed over failed with an
		// identical timestamp); MySQL reports zero affected rows but the
		// write is semantically fine.
	}

	return nil
}

func (r *DeliveryRepository) GetRecord(ctx context.Context, campaignID, recipientID int64) (*domain.DeliveryRecord, error) {
	query := `
		SELECT id, campaign_id, recipient_id, phone, status, attempted_at, error_reason, created_at, updated_at
		FROM delivery_records
		WHERE campaign_id = ? AND recipient_id = ?
	`

	var record domain.DeliveryRecord
	if err := r.db.GetContext(ctx, &record, query, campaignID, recipientID); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get delivery record: %w", err)
	}

	return &record, nil
}

func (r *DeliveryRepository) ListByCampaign(ctx context.Context, campaignID int64) ([]domain.DeliveryRecord, error) {
	query := `
		SELECT id, campaign_id, recipient_id, phone, status, attempted_at, error_reason, created_at, updated_at
		FROM delivery_records
		WHERE campaign_id = ?
		ORDER BY attempted_at IS NULL, attempted_at ASC, recipient_id ASC
	`

	var records []domain.DeliveryRecord
	if err := r.db.SelectContext(ctx, &records, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to list delivery records: %w", err)
	}

	return records, nil
}

func (r *DeliveryRepository) ListFailed(ctx context.Context, campaignID int64) ([]domain.DeliveryRecord, error) {
	query := `
		SELECT id, campaign_id, recipient_id, phone, status, attempted_at, error_reason, created_at, updated_at
		FROM delivery_records
		WHERE campaign_id = ? AND status = 'failed'
		ORDER BY attempted_at ASC, recipient_id ASC
	`

	var records []domain.DeliveryRecord
	if err := r.db.SelectContext(ctx, &records, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to list failed records: %w", err)
	}

	return records, nil
}

// Page returns one slice of a campaign's records in a stable order
// (attempted_at, then recipient_id, never-attempted rows last) plus the
// total count, so callers can compute page counts without loading the set.
func (r *DeliveryRepository) Page(ctx context.Context, campaignID int64, page, pageSize int) ([]domain.DeliveryRecord, int64, error) {
	offset := (page - 1) * pageSize

	var totalCount int64
	countQuery := "SELECT COUNT(*) FROM delivery_records WHERE campaign_id = ?"
	if err := r.db.GetContext(ctx, &totalCount, countQuery, campaignID); err != nil {
		return nil, 0, fmt.Errorf("failed to count delivery records: %w", err)
	}

	query := `
		SELECT id, campaign_id, recipient_id, phone, status, attempted_at, error_reason, created_at, updated_at
		FROM delivery_records
		WHERE campaign_id = ?
		ORDER BY attempted_at IS NULL, attempted_at ASC, recipient_id ASC
		LIMIT ? OFFSET ?
	`

	var records []domain.DeliveryRecord
	if err := r.db.SelectContext(ctx, &records, query, campaignID, pageSize, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to page delivery records: %w", err)
	}

	return records, totalCount, nil
}

func (r *DeliveryRepository) SummarizeByCampaign(ctx context.Context, campaignID int64) (*domain.StatusCounts, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0)    AS sent,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0)  AS failed,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending
		FROM delivery_records
		WHERE campaign_id = ?
	`

	var counts domain.StatusCounts
	if err := r.db.GetContext(ctx, &counts, query, campaignID); err != nil {
		return nil, fmt.Errorf("failed to summarize campaign: %w", err)
	}

	return &counts, nil
}

// SummarizeAll groups the ledger by campaign, most recent campaign first.
// Campaigns whose history has been pruned drop out of the overview.
func (r *DeliveryRepository) SummarizeAll(ctx context.Context) ([]domain.CampaignSummary, error) {
	query := `
		SELECT
			c.id         AS campaign_id,
			c.name       AS campaign_name,
			c.created_at AS created_at,
			COALESCE(SUM(CASE WHEN d.status = 'sent' THEN 1 ELSE 0 END), 0)    AS sent,
			COALESCE(SUM(CASE WHEN d.status = 'failed' THEN 1 ELSE 0 END), 0)  AS failed,
			COALESCE(SUM(CASE WHEN d.status = 'pending' THEN 1 ELSE 0 END), 0) AS pending
		FROM campaigns c
		INNER JOIN delivery_records d ON d.campaign_id = c.id
		GROUP BY c.id, c.name, c.created_at
		ORDER BY c.created_at DESC, c.id DESC
	`

	var summaries []domain.CampaignSummary
	if err := r.db.SelectContext(ctx, &summaries, query); err != nil {
		return nil, fmt.Errorf("failed to summarize campaigns: %w", err)
	}

	return summaries, nil
}

func (r *DeliveryRepository) DeleteByCampaign(ctx context.Context, campaignID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM delivery_records WHERE campaign_id = ?", campaignID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete delivery records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}

func (r *DeliveryRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM delivery_records")
	if err != nil {
		return 0, fmt.Errorf("failed to delete delivery records: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}
