package repository

import (
	"context"
	"time"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
)

// EarningsRepository derives ledger figures from session and payout history.
// There is deliberately no stored balance to read or update; every figure is a
// fresh aggregate so the buckets can never drift from the history they summarize.
type EarningsRepository struct {
	db DBTX
}

func NewEarningsRepository(db DBTX) *EarningsRepository {
	return &EarningsRepository{db: db}
}

// TotalNetCents sums the consultant share of every closed session. The
// per-session split uses integer round-half-up, (gross*share + 50) / 100,
// which is the same formula services.SplitNet applies in Go, so SQL and Go
// rows always agree to the cent.
func (r *EarningsRepository) TotalNetCents(
	ctx context.Context,
	consultantID int64,
	sharePercent int64,
) (int64, error) {
	query := `
		SELECT COALESCE(SUM((gross_cents * $2 + 50) / 100), 0)
		FROM sessions
		WHERE consultant_id = $1 AND status = 'closed'
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, consultantID, sharePercent).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *EarningsRepository) NetCentsBetween(
	ctx context.Context,
	consultantID int64,
	sharePercent int64,
	from time.Time,
	to time.Time,
) (int64, error) {
	query := `
		SELECT COALESCE(SUM((gross_cents * $2 + 50) / 100), 0)
		FROM sessions
		WHERE consultant_id = $1 AND status = 'closed'
		  AND ended_at >= $3 AND ended_at < $4
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, consultantID, sharePercent, from, to).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *EarningsRepository) PendingPayoutCents(ctx context.Context, consultantID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payout_requests
		WHERE consultant_id = $1 AND status = 'pending'
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, consultantID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// PaidPayoutCents covers approved payouts as well as settled ones: approval is
// the moment the money leaves the available pool for good.
func (r *EarningsRepository) PaidPayoutCents(ctx context.Context, consultantID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payout_requests
		WHERE consultant_id = $1 AND status IN ('approved', 'paid')
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, consultantID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// ClosedSessionsBetween returns the raw closed sessions backing a statement
// page; the per-row commission split happens in the service so statement rows
// and summary totals come from one formula.
func (r *EarningsRepository) ClosedSessionsBetween(
	ctx context.Context,
	consultantID int64,
	from time.Time,
	to time.Time,
	limit int,
	offset int,
) ([]models.Session, int, error) {
	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM sessions
		WHERE consultant_id = $1 AND status = 'closed'
		  AND ended_at >= $2 AND ended_at < $3
	`
	if err := r.db.QueryRow(ctx, countQuery, consultantID, from, to).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE consultant_id = $1 AND status = 'closed'
		  AND ended_at >= $2 AND ended_at < $3
		ORDER BY ended_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.Query(ctx, query, consultantID, from, to, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var session models.Session
		if err := scanSession(rows, &session); err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}
