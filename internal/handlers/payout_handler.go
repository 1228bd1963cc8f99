package handlers

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/services"
)

type payoutApplicationService interface {
	Request(ctx context.Context, consultantID int64, amountCents int64, invoiceRef string) (*models.PayoutRequest, error)
	Approve(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error)
	Reject(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error)
	MarkPaid(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error)
	ListForConsultant(ctx context.Context, consultantID int64) ([]models.PayoutRequest, error)
}

type PayoutHandler struct {
	service payoutApplicationService
	storage services.InvoiceStorage
}

func NewPayoutHandler(service payoutApplicationService, storage services.InvoiceStorage) *PayoutHandler {
	return &PayoutHandler{service: service, storage: storage}
}

type createPayoutRequest struct {
	AmountCents int64  `json:"amount_cents"`
	InvoiceRef  string `json:"invoice_ref"`
}

func (h *PayoutHandler) Create(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createPayoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payout, err := h.service.Request(c.Context(), userID, req.AmountCents, req.InvoiceRef)
	if err != nil {
		return mapPayoutError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"payout": payout})
}

func (h *PayoutHandler) List(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	payouts, err := h.service.ListForConsultant(c.Context(), userID)
	if err != nil {
		return mapPayoutError(c, err)
	}

	return c.JSON(fiber.Map{"payouts": payouts})
}

// UploadInvoice stores the supporting document and returns the reference the
// consultant submits with the payout request.
func (h *PayoutHandler) UploadInvoice(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
	if h.storage == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Invoice storage is not configured"})
	}

	fileHeader, err := c.FormFile("invoice")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invoice file is required"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Failed to read invoice file"})
	}
	defer file.Close()

	filename := fmt.Sprintf("%d-%d%s", userID, time.Now().UTC().UnixNano(), filepath.Ext(fileHeader.Filename))
	ref, err := h.storage.UploadInvoice(c.Context(), file, filename)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Failed to store invoice"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"invoice_ref": ref})
}

func (h *PayoutHandler) Approve(c *fiber.Ctx) error {
	return h.resolve(c, "approve")
}

func (h *PayoutHandler) Reject(c *fiber.Ctx) error {
	return h.resolve(c, "reject")
}

func (h *PayoutHandler) MarkPaid(c *fiber.Ctx) error {
	return h.resolve(c, "paid")
}

func (h *PayoutHandler) resolve(c *fiber.Ctx, action string) error {
	_, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	payoutID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payout id"})
	}

	var payout *models.PayoutRequest
	switch action {
	case "approve":
		payout, err = h.service.Approve(c.Context(), payoutID)
	case "reject":
		payout, err = h.service.Reject(c.Context(), payoutID)
	default:
		payout, err = h.service.MarkPaid(c.Context(), payoutID)
	}
	if err != nil {
		return mapPayoutError(c, err)
	}

	return c.JSON(fiber.Map{"payout": payout})
}

func mapPayoutError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Amount must be positive"})
	case errors.Is(err, services.ErrMissingInvoice):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invoice reference is required"})
	case errors.Is(err, services.ErrAmountExceedsAvailable):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Amount exceeds available earnings"})
	case errors.Is(err, services.ErrPayoutAlreadyPending):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A payout request is already pending"})
	case errors.Is(err, services.ErrPayoutNotApproved):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Payout is not approved"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payout not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process payout"})
	}
}
