package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/services"
)

type stubPayoutService struct {
	requestFn  func(consultantID int64, amountCents int64, invoiceRef string) (*models.PayoutRequest, error)
	approveFn  func(payoutID uuid.UUID) (*models.PayoutRequest, error)
	markPaidFn func(payoutID uuid.UUID) (*models.PayoutRequest, error)
}

func (s *stubPayoutService) Request(_ context.Context, consultantID int64, amountCents int64, invoiceRef string) (*models.PayoutRequest, error) {
	return s.requestFn(consultantID, amountCents, invoiceRef)
}

func (s *stubPayoutService) Approve(_ context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	return s.approveFn(payoutID)
}

func (s *stubPayoutService) Reject(_ context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	return nil, services.ErrNotFound
}

func (s *stubPayoutService) MarkPaid(_ context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	return s.markPaidFn(payoutID)
}

func (s *stubPayoutService) ListForConsultant(_ context.Context, _ int64) ([]models.PayoutRequest, error) {
	return []models.PayoutRequest{}, nil
}

func newPayoutApp(userID, role string, service payoutApplicationService) *fiber.App {
	app := newTestApp(userID, role)
	handler := NewPayoutHandler(service, nil)
	app.Post("/payouts", handler.Create)
	app.Get("/payouts", handler.List)
	app.Patch("/payouts/:id/approve", handler.Approve)
	app.Patch("/payouts/:id/reject", handler.Reject)
	app.Patch("/payouts/:id/paid", handler.MarkPaid)
	return app
}

func TestCreatePayoutHappyPath(t *testing.T) {
	service := &stubPayoutService{
		requestFn: func(consultantID int64, amountCents int64, invoiceRef string) (*models.PayoutRequest, error) {
			if consultantID != 4 || amountCents != 12500 || invoiceRef != "invoices/4-1.pdf" {
				t.Errorf("unexpected payout request %d %d %q", consultantID, amountCents, invoiceRef)
			}
			return &models.PayoutRequest{ID: uuid.New(), ConsultantID: consultantID, AmountCents: amountCents, Status: "pending"}, nil
		},
	}
	app := newPayoutApp("4", "consultant", service)

	resp := doJSON(t, app, http.MethodPost, "/payouts", fiber.Map{
		"amount_cents": 12500,
		"invoice_ref":  "invoices/4-1.pdf",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusCreated)
	}
}

func TestCreatePayoutPreconditionMapping(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"non-positive amount", services.ErrInvalidAmount, http.StatusBadRequest},
		{"missing invoice", services.ErrMissingInvoice, http.StatusBadRequest},
		{"exceeds available", services.ErrAmountExceedsAvailable, http.StatusUnprocessableEntity},
		{"already pending", services.ErrPayoutAlreadyPending, http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := &stubPayoutService{
				requestFn: func(int64, int64, string) (*models.PayoutRequest, error) {
					return nil, tc.serviceErr
				},
			}
			app := newPayoutApp("4", "consultant", service)

			resp := doJSON(t, app, http.MethodPost, "/payouts", fiber.Map{"amount_cents": 1})
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestCreatePayoutRequiresConsultantRole(t *testing.T) {
	app := newPayoutApp("4", "customer", &stubPayoutService{})

	resp := doJSON(t, app, http.MethodPost, "/payouts", fiber.Map{"amount_cents": 100})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestApprovePayoutIsAdminOnly(t *testing.T) {
	app := newPayoutApp("4", "consultant", &stubPayoutService{})

	resp := doJSON(t, app, http.MethodPatch, "/payouts/"+uuid.NewString()+"/approve", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusForbidden)
	}
}

func TestApprovePayoutAsAdmin(t *testing.T) {
	payoutID := uuid.New()
	service := &stubPayoutService{
		approveFn: func(id uuid.UUID) (*models.PayoutRequest, error) {
			if id != payoutID {
				t.Errorf("payout id %s, want %s", id, payoutID)
			}
			return &models.PayoutRequest{ID: id, Status: "approved"}, nil
		},
	}
	app := newPayoutApp("1", "admin", service)

	resp := doJSON(t, app, http.MethodPatch, "/payouts/"+payoutID.String()+"/approve", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestMarkPaidBeforeApprovalIsConflict(t *testing.T) {
	service := &stubPayoutService{
		markPaidFn: func(uuid.UUID) (*models.PayoutRequest, error) {
			return nil, services.ErrPayoutNotApproved
		},
	}
	app := newPayoutApp("1", "admin", service)

	resp := doJSON(t, app, http.MethodPatch, "/payouts/"+uuid.NewString()+"/paid", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestMarkPaidUnknownPayout(t *testing.T) {
	service := &stubPayoutService{
		markPaidFn: func(uuid.UUID) (*models.PayoutRequest, error) {
			return nil, services.ErrNotFound
		},
	}
	app := newPayoutApp("1", "admin", service)

	resp := doJSON(t, app, http.MethodPatch, "/payouts/"+uuid.NewString()+"/paid", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}
