package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(
	ctx context.Context,
	sessionID uuid.UUID,
	senderID int64,
	content string,
) (*models.SessionMessage, error) {
	query := `
		INSERT INTO session_messages (id, session_id, sender_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, sender_id, content, created_at
	`
	var message models.SessionMessage
	err := r.db.QueryRow(ctx, query, uuid.New(), sessionID, senderID, content).Scan(
		&message.ID,
		&message.SessionID,
		&message.SenderID,
		&message.Content,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

func (r *MessageRepository) ListBySession(
	ctx context.Context,
	sessionID uuid.UUID,
	limit int,
	offset int,
) ([]models.SessionMessage, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM session_messages WHERE session_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, sessionID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, session_id, sender_id, content, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	messages := make([]models.SessionMessage, 0)
	for rows.Next() {
		var message models.SessionMessage
		if err := rows.Scan(
			&message.ID,
			&message.SessionID,
			&message.SenderID,
			&message.Content,
			&message.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return messages, total, nil
}
