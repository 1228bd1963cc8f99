package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/services"
)

type requestApplicationService interface {
	Create(ctx context.Context, customerID int64, input services.CreateRequestInput) (*models.ConsultationRequest, error)
	Decide(ctx context.Context, consultantID int64, requestID uuid.UUID, decision string) (*services.DecisionResult, error)
	Cancel(ctx context.Context, customerID int64, requestID uuid.UUID) (*models.ConsultationRequest, error)
	ListForConsultant(ctx context.Context, consultantID int64, filter services.RequestListFilter) ([]models.RequestWithCustomer, int, error)
	ListForCustomer(ctx context.Context, customerID int64, page int, limit int) ([]models.ConsultationRequest, int, error)
	Get(ctx context.Context, actorID int64, requestID uuid.UUID) (*models.ConsultationRequest, error)
}

type RequestHandler struct {
	service requestApplicationService
}

func NewRequestHandler(service *services.RequestService) *RequestHandler {
	return &RequestHandler{service: service}
}

type createRequestRequest struct {
	ConsultantID    int64   `json:"consultant_id"`
	Type            string  `json:"type"`
	AppointmentTime *string `json:"appointment_time"`
	Note            *string `json:"note"`
}

type decisionRequest struct {
	Decision string `json:"decision"`
}

func (h *RequestHandler) Create(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "customer" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req createRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var appointmentTime *time.Time
	if req.AppointmentTime != nil && strings.TrimSpace(*req.AppointmentTime) != "" {
		parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(*req.AppointmentTime))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).
				JSON(fiber.Map{"error": "appointment_time must be a valid RFC3339 timestamp"})
		}
		appointmentTime = &parsed
	}

	request, err := h.service.Create(c.Context(), userID, services.CreateRequestInput{
		ConsultantID:    req.ConsultantID,
		Type:            req.Type,
		AppointmentTime: appointmentTime,
		Note:            req.Note,
	})
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"request": request})
}

func (h *RequestHandler) List(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	page, limit := parsePage(c)

	switch role {
	case "consultant":
		requests, total, err := h.service.ListForConsultant(c.Context(), userID, services.RequestListFilter{
			Status: c.Query("status"),
			Search: c.Query("search"),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			return mapRequestError(c, err)
		}
		return c.JSON(fiber.Map{
			"requests":   requests,
			"pagination": buildPaginationMeta(page, limit, total),
		})
	case "customer":
		requests, total, err := h.service.ListForCustomer(c.Context(), userID, page, limit)
		if err != nil {
			return mapRequestError(c, err)
		}
		return c.JSON(fiber.Map{
			"requests":   requests,
			"pagination": buildPaginationMeta(page, limit, total),
		})
	default:
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}
}

func (h *RequestHandler) Get(c *fiber.Ctx) error {
	userID, _, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.service.Get(c.Context(), userID, requestID)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func (h *RequestHandler) Decide(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.Decide(c.Context(), userID, requestID, req.Decision)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(result)
}

func (h *RequestHandler) Cancel(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "customer" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	requestID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request id"})
	}

	request, err := h.service.Cancel(c.Context(), userID, requestID)
	if err != nil {
		return mapRequestError(c, err)
	}

	return c.JSON(fiber.Map{"request": request})
}

func mapRequestError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, services.ErrInvalidTarget):
		return c.Status(fiber.StatusUnprocessableEntity).
			JSON(fiber.Map{"error": "Consultant cannot receive requests"})
	case errors.Is(err, services.ErrNotOwner), errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrAlreadyDecided):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Request already decided"})
	case errors.Is(err, services.ErrDuplicateSession):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session already exists"})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Request not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
