package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/notify"
	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
)

var (
	ErrForbidden        = errors.New("forbidden")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("not found")
	ErrInvalidTarget    = errors.New("consultant cannot receive requests")
	ErrNotOwner         = errors.New("request belongs to another user")
	ErrAlreadyDecided   = errors.New("request already decided")
	ErrDuplicateSession = errors.New("session already exists for request")
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type profileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.ConsultantProfile, error)
}

// EventPublisher is the notification bus seam. Publishing must never block or
// fail the state transition that triggered it.
type EventPublisher interface {
	Publish(userID int64, event notify.Event)
}

type RequestService struct {
	db          *pgxpool.Pool
	requestRepo *repository.RequestRepository
	userRepo    userReader
	profileRepo profileReader
	events      EventPublisher
}

func NewRequestService(
	db *pgxpool.Pool,
	requestRepo *repository.RequestRepository,
	userRepo userReader,
	profileRepo profileReader,
	events EventPublisher,
) *RequestService {
	return &RequestService{
		db:          db,
		requestRepo: requestRepo,
		userRepo:    userRepo,
		profileRepo: profileRepo,
		events:      events,
	}
}

type CreateRequestInput struct {
	ConsultantID    int64
	Type            string
	AppointmentTime *time.Time
	Note            *string
}

// DecisionResult carries the decided request plus, on accept, the session that
// was opened in the same transaction.
type DecisionResult struct {
	Request *models.ConsultationRequest `json:"request"`
	Session *models.Session             `json:"session,omitempty"`
}

func (s *RequestService) Create(
	ctx context.Context,
	customerID int64,
	input CreateRequestInput,
) (*models.ConsultationRequest, error) {
	consultationType, err := normalizeConsultationType(input.Type)
	if err != nil {
		return nil, err
	}
	if input.ConsultantID <= 0 || input.ConsultantID == customerID {
		return nil, ErrInvalidInput
	}
	if input.AppointmentTime != nil && input.AppointmentTime.Before(time.Now().Add(-1*time.Minute)) {
		return nil, ErrInvalidInput
	}

	consultant, err := s.userRepo.GetByID(ctx, input.ConsultantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTarget
		}
		return nil, err
	}
	if consultant.Role != "consultant" {
		return nil, ErrInvalidTarget
	}

	profile, err := s.profileRepo.GetByUserID(ctx, input.ConsultantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTarget
		}
		return nil, err
	}
	if profile.Status != "active" {
		return nil, ErrInvalidTarget
	}

	var appointmentTime *time.Time
	if input.AppointmentTime != nil {
		utc := input.AppointmentTime.UTC()
		appointmentTime = &utc
	}

	request, err := s.requestRepo.Create(ctx, repository.CreateRequestInput{
		CustomerID:      customerID,
		ConsultantID:    input.ConsultantID,
		Type:            consultationType,
		AppointmentTime: appointmentTime,
		Note:            input.Note,
	})
	if err != nil {
		return nil, err
	}

	s.publishRequestEvent(notify.EventNewRequest, request, nil, request.ConsultantID)
	return request, nil
}

// Decide records the consultant's accept or decline. The transition out of
// pending happens exactly once: a racing duplicate call loses the conditional
// update and gets ErrAlreadyDecided. Accepting also opens the session in the
// same transaction, so either both commit or neither does.
func (s *RequestService) Decide(
	ctx context.Context,
	consultantID int64,
	requestID uuid.UUID,
	decision string,
) (*DecisionResult, error) {
	accepted, err := normalizeDecision(decision)
	if err != nil {
		return nil, err
	}

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if request.ConsultantID != consultantID {
		return nil, ErrNotOwner
	}

	if !accepted {
		declined, err := s.requestRepo.UpdateStatusIfPending(ctx, requestID, "declined")
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrAlreadyDecided
			}
			return nil, err
		}
		s.publishRequestEvent(notify.EventRequestDeclined, declined, nil, declined.ConsultantID, declined.CustomerID)
		return &DecisionResult{Request: declined}, nil
	}

	profile, err := s.profileRepo.GetByUserID(ctx, consultantID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRequestRepo := repository.NewRequestRepository(tx)
	txSessionRepo := repository.NewSessionRepository(tx)

	acceptedRequest, err := txRequestRepo.UpdateStatusIfPending(ctx, requestID, "accepted")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyDecided
		}
		return nil, err
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		RequestID:    acceptedRequest.ID,
		CustomerID:   acceptedRequest.CustomerID,
		ConsultantID: acceptedRequest.ConsultantID,
		Type:         acceptedRequest.Type,
		GrossCents:   profile.RateFor(acceptedRequest.Type),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateSession
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.publishRequestEvent(notify.EventRequestAccepted, acceptedRequest, session, acceptedRequest.ConsultantID, acceptedRequest.CustomerID)
	return &DecisionResult{Request: acceptedRequest, Session: session}, nil
}

// Cancel is the customer-side exit from pending; it obeys the same
// exactly-once transition rule as a consultant decision.
func (s *RequestService) Cancel(
	ctx context.Context,
	customerID int64,
	requestID uuid.UUID,
) (*models.ConsultationRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if request.CustomerID != customerID {
		return nil, ErrNotOwner
	}

	cancelled, err := s.requestRepo.UpdateStatusIfPending(ctx, requestID, "cancelled")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlreadyDecided
		}
		return nil, err
	}

	s.publishRequestEvent(notify.EventRequestCancelled, cancelled, nil, cancelled.ConsultantID)
	return cancelled, nil
}

type RequestListFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// ListForConsultant pages through the consultant's requests. A consultant whose
// profile is not yet active sees an empty page rather than an error.
func (s *RequestService) ListForConsultant(
	ctx context.Context,
	consultantID int64,
	filter RequestListFilter,
) ([]models.RequestWithCustomer, int, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, consultantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []models.RequestWithCustomer{}, 0, nil
		}
		return nil, 0, err
	}
	if profile.Status != "active" {
		return []models.RequestWithCustomer{}, 0, nil
	}

	return s.requestRepo.ListForConsultant(ctx, repository.RequestListFilter{
		ConsultantID: consultantID,
		Status:       strings.TrimSpace(filter.Status),
		Search:       strings.TrimSpace(filter.Search),
		Limit:        filter.Limit,
		Offset:       (filter.Page - 1) * filter.Limit,
	})
}

func (s *RequestService) ListForCustomer(
	ctx context.Context,
	customerID int64,
	page int,
	limit int,
) ([]models.ConsultationRequest, int, error) {
	return s.requestRepo.ListForCustomer(ctx, customerID, limit, (page-1)*limit)
}

// Get returns a request to one of its two parties only.
func (s *RequestService) Get(
	ctx context.Context,
	actorID int64,
	requestID uuid.UUID,
) (*models.ConsultationRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if request.CustomerID != actorID && request.ConsultantID != actorID {
		return nil, ErrForbidden
	}
	return request, nil
}

func (s *RequestService) publishRequestEvent(
	eventType string,
	request *models.ConsultationRequest,
	session *models.Session,
	targets ...int64,
) {
	if s.events == nil {
		return
	}

	event := notify.NewEvent(eventType)
	event.RequestID = request.ID.String()
	if session != nil {
		event.SessionID = session.ID.String()
	}
	for _, target := range targets {
		s.events.Publish(target, event)
	}
}

func normalizeConsultationType(consultationType string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(consultationType)) {
	case "chat":
		return "chat", nil
	case "voice":
		return "voice", nil
	case "video":
		return "video", nil
	default:
		return "", ErrInvalidInput
	}
}

func normalizeDecision(decision string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(decision)) {
	case "accept", "accepted":
		return true, nil
	case "decline", "declined":
		return false, nil
	default:
		return false, ErrInvalidInput
	}
}
