package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
)

// Scheduled sessions become joinable shortly before their appointment time.
const joinWindowLead = 5 * time.Minute

type SessionService struct {
	sessionRepo *repository.SessionRepository
	requestRepo *repository.RequestRepository
}

func NewSessionService(
	sessionRepo *repository.SessionRepository,
	requestRepo *repository.RequestRepository,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		requestRepo: requestRepo,
	}
}

type SessionDetail struct {
	models.Session
	Joinable bool `json:"joinable"`
}

// End closes a session. It is idempotent: a retried end call on an
// already-closed session returns the stored record with its original ended_at
// untouched. Closing is irreversible.
func (s *SessionService) End(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID uuid.UUID,
) (*models.Session, error) {
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
	if session.Status == "closed" {
		return session, nil
	}

	closed, err := s.sessionRepo.CloseIfActive(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race with another end call; the stored record wins.
			return s.sessionRepo.GetByID(ctx, sessionID)
		}
		return nil, err
	}
	return closed, nil
}

func (s *SessionService) Get(
	ctx context.Context,
	actorID int64,
	role string,
	sessionID uuid.UUID,
) (*SessionDetail, error) {
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

	request, err := s.requestRepo.GetByID(ctx, session.RequestID)
	if err != nil {
		return nil, err
	}

	return &SessionDetail{
		Session:  *session,
		Joinable: session.Status == "active" && IsJoinable(request, time.Now().UTC()),
	}, nil
}

func (s *SessionService) ListForActor(
	ctx context.Context,
	actorID int64,
	role string,
	page int,
	limit int,
) ([]models.Session, int, error) {
	return s.sessionRepo.ListForActor(ctx, actorID, role, limit, (page-1)*limit)
}

func canAccessSession(role string, actorID int64, session *models.Session) bool {
	if role == "customer" {
		return session.CustomerID == actorID
	}
	if role == "consultant" {
		return session.ConsultantID == actorID
	}
	return false
}

// JoinableAt returns the earliest moment a session for this request is
// actionable. Immediate requests are actionable from creation; scheduled ones
// open a fixed lead before the appointment. Derived policy, never stored.
func JoinableAt(request *models.ConsultationRequest) time.Time {
	if request.Immediate() {
		return request.CreatedAt
	}
	return request.AppointmentTime.Add(-joinWindowLead)
}

func IsJoinable(request *models.ConsultationRequest, now time.Time) bool {
	return !now.Before(JoinableAt(request))
}
