package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/services"
)

type stubSessionService struct {
	endFn func(actorID int64, role string, sessionID uuid.UUID) (*models.Session, error)
	getFn func(actorID int64, role string, sessionID uuid.UUID) (*services.SessionDetail, error)
}

func (s *stubSessionService) End(_ context.Context, actorID int64, role string, sessionID uuid.UUID) (*models.Session, error) {
	return s.endFn(actorID, role, sessionID)
}

func (s *stubSessionService) Get(_ context.Context, actorID int64, role string, sessionID uuid.UUID) (*services.SessionDetail, error) {
	return s.getFn(actorID, role, sessionID)
}

func (s *stubSessionService) ListForActor(_ context.Context, _ int64, _ string, _ int, _ int) ([]models.Session, int, error) {
	return []models.Session{}, 0, nil
}

func newSessionApp(userID, role string, service sessionApplicationService) *fiber.App {
	app := newTestApp(userID, role)
	handler := &SessionHandler{service: service}
	app.Get("/sessions", handler.List)
	app.Get("/sessions/:id", handler.Get)
	app.Post("/sessions/:id/end", handler.End)
	return app
}

func TestEndSessionReturnsClosedRecord(t *testing.T) {
	sessionID := uuid.New()
	endedAt := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	calls := 0

	service := &stubSessionService{
		endFn: func(actorID int64, role string, id uuid.UUID) (*models.Session, error) {
			calls++
			return &models.Session{ID: id, Status: "closed", EndedAt: &endedAt}, nil
		},
	}
	app := newSessionApp("3", "customer", service)

	// A retried end is a plain success, not a conflict.
	for i := 0; i < 2; i++ {
		resp := doJSON(t, app, http.MethodPost, "/sessions/"+sessionID.String()+"/end", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("attempt %d: status %d, want %d", i+1, resp.StatusCode, http.StatusOK)
		}
		body := decodeBody(t, resp)
		session, ok := body["session"].(map[string]any)
		if !ok {
			t.Fatalf("response missing session: %v", body)
		}
		if session["status"] != "closed" {
			t.Fatalf("session status %v, want closed", session["status"])
		}
	}
	if calls != 2 {
		t.Fatalf("service called %d times, want 2", calls)
	}
}

func TestGetSessionNotParty(t *testing.T) {
	service := &stubSessionService{
		getFn: func(int64, string, uuid.UUID) (*services.SessionDetail, error) {
			return nil, services.ErrForbidden
		},
	}
	app := newSessionApp("3", "customer", service)

	resp := doJSON(t, app, http.MethodGet, "/sessions/"+uuid.NewString(), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	service := &stubSessionService{
		getFn: func(int64, string, uuid.UUID) (*services.SessionDetail, error) {
			return nil, services.ErrNotFound
		},
	}
	app := newSessionApp("3", "customer", service)

	resp := doJSON(t, app, http.MethodGet, "/sessions/"+uuid.NewString(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestListSessionsRejectsAdmin(t *testing.T) {
	app := newSessionApp("1", "admin", &stubSessionService{})

	resp := doJSON(t, app, http.MethodGet, "/sessions", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestEndSessionRejectsMalformedID(t *testing.T) {
	app := newSessionApp("3", "customer", &stubSessionService{})

	resp := doJSON(t, app, http.MethodPost, "/sessions/not-a-uuid/end", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}
