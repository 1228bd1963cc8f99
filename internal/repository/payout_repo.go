package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
)

type CreatePayoutInput struct {
	ConsultantID int64
	AmountCents  int64
	InvoiceRef   string
}

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

const payoutColumns = `id, consultant_id, amount_cents, invoice_ref, status, note, created_at, resolved_at`

func scanPayout(row interface{ Scan(dest ...any) error }, payout *models.PayoutRequest) error {
	return row.Scan(
		&payout.ID,
		&payout.ConsultantID,
		&payout.AmountCents,
		&payout.InvoiceRef,
		&payout.Status,
		&payout.Note,
		&payout.CreatedAt,
		&payout.ResolvedAt,
	)
}

func (r *PayoutRepository) Create(
	ctx context.Context,
	input CreatePayoutInput,
) (*models.PayoutRequest, error) {
	query := `
		INSERT INTO payout_requests (id, consultant_id, amount_cents, invoice_ref, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING ` + payoutColumns

	var payout models.PayoutRequest
	row := r.db.QueryRow(ctx, query, uuid.New(), input.ConsultantID, input.AmountCents, input.InvoiceRef)
	if err := scanPayout(row, &payout); err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) GetByID(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE id = $1
	`
	var payout models.PayoutRequest
	if err := scanPayout(r.db.QueryRow(ctx, query, payoutID), &payout); err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) HasPending(ctx context.Context, consultantID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM payout_requests
			WHERE consultant_id = $1 AND status = 'pending'
		)
	`
	var hasPending bool
	if err := r.db.QueryRow(ctx, query, consultantID).Scan(&hasPending); err != nil {
		return false, err
	}
	return hasPending, nil
}

func (r *PayoutRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	payoutID uuid.UUID,
	currentStatus string,
	nextStatus string,
) (*models.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $3, resolved_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING ` + payoutColumns

	var payout models.PayoutRequest
	if err := scanPayout(r.db.QueryRow(ctx, query, payoutID, currentStatus, nextStatus), &payout); err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *PayoutRepository) ListForConsultant(
	ctx context.Context,
	consultantID int64,
) ([]models.PayoutRequest, error) {
	query := `
		SELECT ` + payoutColumns + `
		FROM payout_requests
		WHERE consultant_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, consultantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := make([]models.PayoutRequest, 0)
	for rows.Next() {
		var payout models.PayoutRequest
		if err := scanPayout(rows, &payout); err != nil {
			return nil, err
		}
		payouts = append(payouts, payout)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payouts, nil
}
