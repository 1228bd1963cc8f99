package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
)

type CreateSessionInput struct {
	RequestID    uuid.UUID
	CustomerID   int64
	ConsultantID int64
	Type         string
	GrossCents   int64
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, request_id, customer_id, consultant_id, type, gross_cents, status, started_at, ended_at`

func scanSession(row interface{ Scan(dest ...any) error }, session *models.Session) error {
	return row.Scan(
		&session.ID,
		&session.RequestID,
		&session.CustomerID,
		&session.ConsultantID,
		&session.Type,
		&session.GrossCents,
		&session.Status,
		&session.StartedAt,
		&session.EndedAt,
	)
}

// Create opens a session for an accepted request. The unique index on
// request_id surfaces a duplicate open as a 23505 constraint violation.
func (r *SessionRepository) Create(
	ctx context.Context,
	input CreateSessionInput,
) (*models.Session, error) {
	query := `
		INSERT INTO sessions (id, request_id, customer_id, consultant_id, type, gross_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'active')
		RETURNING ` + sessionColumns

	var session models.Session
	row := r.db.QueryRow(
		ctx,
		query,
		uuid.New(),
		input.RequestID,
		input.CustomerID,
		input.ConsultantID,
		input.Type,
		input.GrossCents,
	)
	if err := scanSession(row, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1
	`
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE request_id = $1
	`
	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, requestID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CloseIfActive transitions an active session to closed, stamping ended_at in
// the same statement. Closing an already-closed session returns pgx.ErrNoRows;
// the caller resolves that to the stored record to keep the operation idempotent.
func (r *SessionRepository) CloseIfActive(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'closed', ended_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING ` + sessionColumns

	var session models.Session
	if err := scanSession(r.db.QueryRow(ctx, query, sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) ListForActor(
	ctx context.Context,
	actorID int64,
	role string,
	limit int,
	offset int,
) ([]models.Session, int, error) {
	actorColumn := "customer_id"
	if role == "consultant" {
		actorColumn = "consultant_id"
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM sessions WHERE ` + actorColumn + ` = $1`
	if err := r.db.QueryRow(ctx, countQuery, actorID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE ` + actorColumn + ` = $1
		ORDER BY started_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, actorID, limit, offset)
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
