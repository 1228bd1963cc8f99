package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
)

type ConsultantHandler struct {
	profileRepo *repository.ConsultantProfileRepository
}

func NewConsultantHandler(profileRepo *repository.ConsultantProfileRepository) *ConsultantHandler {
	return &ConsultantHandler{profileRepo: profileRepo}
}

type consultantOnboardingRequest struct {
	Headline       *string `json:"headline"`
	Bio            *string `json:"bio"`
	ChatRateCents  int64   `json:"chat_rate_cents"`
	VoiceRateCents int64   `json:"voice_rate_cents"`
	VideoRateCents int64   `json:"video_rate_cents"`
}

func (h *ConsultantHandler) Onboarding(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	var req consultantOnboardingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ChatRateCents <= 0 || req.VoiceRateCents <= 0 || req.VideoRateCents <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rates must be greater than 0"})
	}
	if req.Headline != nil && strings.TrimSpace(*req.Headline) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "headline must not be empty"})
	}

	profile, err := h.profileRepo.UpdateOnboarding(c.Context(), userID, repository.ConsultantOnboardingInput{
		Headline:       req.Headline,
		Bio:            req.Bio,
		ChatRateCents:  req.ChatRateCents,
		VoiceRateCents: req.VoiceRateCents,
		VideoRateCents: req.VideoRateCents,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *ConsultantHandler) GetProfile(c *fiber.Ctx) error {
	userID, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "consultant" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	profile, err := h.profileRepo.GetByUserID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}

// Approve activates a consultant profile that is waiting on review. Re-approving
// an already-active profile is a conflict, not a success.
func (h *ConsultantHandler) Approve(c *fiber.Ctx) error {
	_, role, err := actorFromContext(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	if role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	consultantID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || consultantID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid consultant id"})
	}

	profile, err := h.profileRepo.UpdateStatusIfCurrent(c.Context(), consultantID, "pending_approval", "active")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusConflict).
				JSON(fiber.Map{"error": "Profile is not awaiting approval"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to approve profile"})
	}

	return c.JSON(fiber.Map{"profile": profile})
}
