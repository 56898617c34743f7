package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/igrejaconnect/campaign-service/internal/domain"
)

// RecipientRepository reads contacts from the church directory. The
// registration flow owns writes; the campaign engine only selects.
type RecipientRepository struct {
	db *sqlx.DB
}

func NewRecipientRepository(db *sqlx.DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// Filter selects recipients matching the given criteria. Every bound is
// optional; an absent bound imposes no restriction. Age bounds are
// translated into birth-date bounds at evaluation time, so recipients
// without a birth date are excluded only when an age bound is present.
func (r *RecipientRepository) Filter(ctx context.Context, criteria domain.RecipientFilter) ([]domain.Recipient, error) {
	query := `
		SELECT id, name, phone, gender, city, birth_date, registered_at
		FROM recipients
		WHERE 1=1
	`
	var conditions []string
	var args []any

	if criteria.DateStart != nil {
		conditions = append(conditions, "registered_at >= ?")
		args = append(args, *criteria.DateStart)
	}
	if criteria.DateEnd != nil {
		// Inclusive: anything registered before the end of that day.
		conditions = append(conditions, "registered_at < ?")
		args = append(args, criteria.DateEnd.AddDate(0, 0, 1))
	}

	now := time.Now()
	if criteria.AgeMin != nil {
		// age >= min: born on or before today minus min years.
		conditions = append(conditions, "birth_date IS NOT NULL AND birth_date <= ?")
		args = append(args, now.AddDate(-*criteria.AgeMin, 0, 0))
	}
	if criteria.AgeMax != nil {
		// age <= max: born strictly after today minus (max+1) years.
		conditions = append(conditions, "birth_date IS NOT NULL AND birth_date > ?")
		args = append(args, now.AddDate(-(*criteria.AgeMax+1), 0, 0))
	}

	if criteria.Gender != "" {
		conditions = append(conditions, "gender = ?")
		args = append(args, criteria.Gender)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY registered_at ASC, id ASC"

	var recipients []domain.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to filter recipients: %w", err)
	}

	return recipients, nil
}

func (r *RecipientRepository) GetByID(ctx context.Context, id int64) (*domain.Recipient, error) {
	query := `
		SELECT id, name, phone, gender, city, birth_date, registered_at
		FROM recipients
		WHERE id = ?
	`

	var recipient domain.Recipient
	if err := r.db.GetContext(ctx, &recipient, query, id); err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	return &recipient, nil
}

// ListByIDs resolves a set of recipient ids. Missing ids are simply absent
// from the result; reprocessing falls back to the ledger's denormalized
// phone number for those.
func (r *RecipientRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, name, phone, gender, city, birth_date, registered_at
		FROM recipients
		WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build recipient query: %w", err)
	}

	var recipients []domain.Recipient
	if err := r.db.SelectContext(ctx, &recipients, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	return recipients, nil
}
