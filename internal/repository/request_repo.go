package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
)

type CreateRequestInput struct {
	CustomerID      int64
	ConsultantID    int64
	Type            string
	AppointmentTime *time.Time
	Note            *string
}

type RequestListFilter struct {
	ConsultantID int64
	Status       string
	Search       string
	Limit        int
	Offset       int
}

type RequestRepository struct {
	db DBTX
}

func NewRequestRepository(db DBTX) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, customer_id, consultant_id, type, status, appointment_time, note, created_at, decided_at`

func scanRequest(row interface{ Scan(dest ...any) error }, request *models.ConsultationRequest) error {
	return row.Scan(
		&request.ID,
		&request.CustomerID,
		&request.ConsultantID,
		&request.Type,
		&request.Status,
		&request.AppointmentTime,
		&request.Note,
		&request.CreatedAt,
		&request.DecidedAt,
	)
}

func (r *RequestRepository) Create(
	ctx context.Context,
	input CreateRequestInput,
) (*models.ConsultationRequest, error) {
	query := `
		INSERT INTO consultation_requests (id, customer_id, consultant_id, type, status, appointment_time, note)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		RETURNING ` + requestColumns

	var request models.ConsultationRequest
	row := r.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		input.CustomerID,
		input.ConsultantID,
		input.Type,
		input.AppointmentTime,
		input.Note,
	)
	if err := scanRequest(row, &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *RequestRepository) GetByID(ctx context.Context, requestID uuid.UUID) (*models.ConsultationRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM consultation_requests
		WHERE id = $1
	`
	var request models.ConsultationRequest
	if err := scanRequest(r.db.QueryRow(ctx, query, requestID), &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateStatusIfPending is the single transition path out of the pending state.
// It returns pgx.ErrNoRows when the request has already been decided, which
// callers treat as a lost race rather than a fault.
func (r *RequestRepository) UpdateStatusIfPending(
	ctx context.Context,
	requestID uuid.UUID,
	nextStatus string,
) (*models.ConsultationRequest, error) {
	query := `
		UPDATE consultation_requests
		SET status = $2, decided_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + requestColumns

	var request models.ConsultationRequest
	if err := scanRequest(r.db.QueryRow(ctx, query, requestID, nextStatus), &request); err != nil {
		return nil, err
	}
	return &request, nil
}

// ListForConsultant returns the consultant's requests most-recent-first.
// Pending immediate voice/video requests are withheld: those are surfaced only
// through the live notification channel until a decision is made.
func (r *RequestRepository) ListForConsultant(
	ctx context.Context,
	filter RequestListFilter,
) ([]models.RequestWithCustomer, int, error) {
	args := []any{filter.ConsultantID}
	whereParts := []string{
		"r.consultant_id = $1",
		"NOT (r.status = 'pending' AND r.appointment_time IS NULL AND r.type IN ('voice', 'video'))",
	}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		whereParts = append(whereParts, fmt.Sprintf("u.full_name ILIKE $%d", len(args)))
	}

	where := strings.Join(whereParts, " AND ")

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM consultation_requests r
		JOIN users u ON u.id = r.customer_id
		WHERE %s
	`, where)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT r.id, r.customer_id, r.consultant_id, r.type, r.status, r.appointment_time,
			   r.note, r.created_at, r.decided_at, u.full_name
		FROM consultation_requests r
		JOIN users u ON u.id = r.customer_id
		WHERE %s
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]models.RequestWithCustomer, 0)
	for rows.Next() {
		var request models.RequestWithCustomer
		if err := rows.Scan(
			&request.ID,
			&request.CustomerID,
			&request.ConsultantID,
			&request.Type,
			&request.Status,
			&request.AppointmentTime,
			&request.Note,
			&request.CreatedAt,
			&request.DecidedAt,
			&request.CustomerName,
		); err != nil {
			return nil, 0, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *RequestRepository) ListForCustomer(
	ctx context.Context,
	customerID int64,
	limit int,
	offset int,
) ([]models.ConsultationRequest, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM consultation_requests WHERE customer_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, customerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + requestColumns + `
		FROM consultation_requests
		WHERE customer_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]models.ConsultationRequest, 0)
	for rows.Next() {
		var request models.ConsultationRequest
		if err := scanRequest(rows, &request); err != nil {
			return nil, 0, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

// ExpireStale force-expires pending requests whose window has passed: immediate
// requests older than the cutoff, and scheduled requests whose appointment time
// is already behind us. The conditional status guard makes concurrent sweeper
// replicas and in-flight human decisions safe; whoever commits first wins.
func (r *RequestRepository) ExpireStale(
	ctx context.Context,
	cutoff time.Time,
	now time.Time,
) ([]models.ExpiredRequest, error) {
	query := `
		UPDATE consultation_requests
		SET status = 'expired', decided_at = NOW()
		WHERE status = 'pending'
		  AND (
			(appointment_time IS NULL AND created_at < $1)
			OR (appointment_time IS NOT NULL AND appointment_time < $2)
		  )
		RETURNING id, consultant_id
	`
	rows, err := r.db.Query(ctx, query, cutoff, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expired := make([]models.ExpiredRequest, 0)
	for rows.Next() {
		var record models.ExpiredRequest
		if err := rows.Scan(&record.ID, &record.ConsultantID); err != nil {
			return nil, err
		}
		expired = append(expired, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return expired, nil
}
