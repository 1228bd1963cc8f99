package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/notify"
	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
)

var ErrSessionClosed = errors.New("session is closed")

const maxMessageLength = 4000

type ChatService struct {
	sessionRepo *repository.SessionRepository
	messageRepo *repository.MessageRepository
	events      EventPublisher
}

type ChatDelivery struct {
	Message     *models.SessionMessage `json:"message"`
	RecipientID int64                  `json:"recipient_id"`
}

func NewChatService(
	sessionRepo *repository.SessionRepository,
	messageRepo *repository.MessageRepository,
	events EventPublisher,
) *ChatService {
	return &ChatService{
		sessionRepo: sessionRepo,
		messageRepo: messageRepo,
		events:      events,
	}
}

// Send persists a message inside an active session and nudges both parties
// over the notification stream. The push is a refetch hint; message history is
// always served from the store.
func (s *ChatService) Send(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID uuid.UUID,
	content string,
) (*ChatDelivery, error) {
	content = strings.TrimSpace(content)
	if content == "" || len(content) > maxMessageLength {
		return nil, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, ErrForbidden
	}
	if session.Status != "active" {
		return nil, ErrSessionClosed
	}

	message, err := s.messageRepo.Create(ctx, sessionID, actorID, content)
	if err != nil {
		return nil, err
	}

	recipientID := session.CustomerID
	if actorID == session.CustomerID {
		recipientID = session.ConsultantID
	}

	if s.events != nil {
		event := notify.NewEvent(notify.EventChatMessage)
		event.SessionID = session.ID.String()
		event.RequestID = session.RequestID.String()
		s.events.Publish(session.ConsultantID, event)
		s.events.Publish(session.CustomerID, event)
	}

	return &ChatDelivery{Message: message, RecipientID: recipientID}, nil
}

func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID uuid.UUID,
	page int,
	limit int,
) ([]models.SessionMessage, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	if !canAccessSession(role, actorID, session) {
		return nil, 0, ErrForbidden
	}

	return s.messageRepo.ListBySession(ctx, sessionID, limit, (page-1)*limit)
}
