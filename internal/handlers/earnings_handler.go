package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/services"
)

type earningsApplicationService interface {
	Summary(ctx context.Context, consultantID int64, now time.Time) (*models.EarningsSummary, error)
	Statement(ctx context.Context, consultantID int64, month time.Month, year int, page int, limit int) ([]models.EarningsStatementRow, int, error)
}

type EarningsHandler struct {
	service earningsApplicationService
}

func NewEarningsHandler(service *services.EarningsService) *EarningsHandler {
	return &EarningsHandler{service: service}
}

func (h *EarningsHandler) Summary(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	summary, err := h.service.Summary(c.Context(), userID, time.Now().UTC())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute earnings"})
	}

	return c.JSON(fiber.Map{"earnings": summary})
}

func (h *EarningsHandler) Statement(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	now := time.Now().UTC()
	month := time.Month(parsePositiveInt(c.Query("month"), int(now.Month())))
	if month < time.January || month > time.December {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "month must be between 1 and 12"})
	}
	year, err := strconv.Atoi(c.Query("year", strconv.Itoa(now.Year())))
	if err != nil || year < 2000 || year > now.Year()+1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid year"})
	}

	page, limit := parsePage(c)
	rows, total, err := h.service.Statement(c.Context(), userID, month, year, page, limit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to compute statement"})
	}

	return c.JSON(fiber.Map{
		"statement":  rows,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}
