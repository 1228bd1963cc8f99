package repository

import (
	"context"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
)

type ConsultantProfileRepository struct {
	db DBTX
}

func NewConsultantProfileRepository(db DBTX) *ConsultantProfileRepository {
	return &ConsultantProfileRepository{db: db}
}

func (r *ConsultantProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO consultant_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *ConsultantProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.ConsultantProfile, error) {
	query := `
		SELECT id, user_id, headline, bio, chat_rate_cents, voice_rate_cents, video_rate_cents,
			   status, created_at, updated_at
		FROM consultant_profiles
		WHERE user_id = $1
	`
	var profile models.ConsultantProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Headline,
		&profile.Bio,
		&profile.ChatRateCents,
		&profile.VoiceRateCents,
		&profile.VideoRateCents,
		&profile.Status,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

type ConsultantOnboardingInput struct {
	Headline       *string
	Bio            *string
	ChatRateCents  int64
	VoiceRateCents int64
	VideoRateCents int64
}

func (r *ConsultantProfileRepository) UpdateOnboarding(
	ctx context.Context,
	userID int64,
	input ConsultantOnboardingInput,
) (*models.ConsultantProfile, error) {
	query := `
		UPDATE consultant_profiles
		SET headline = $2,
			bio = $3,
			chat_rate_cents = $4,
			voice_rate_cents = $5,
			video_rate_cents = $6,
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING id, user_id, headline, bio, chat_rate_cents, voice_rate_cents, video_rate_cents,
				  status, created_at, updated_at
	`
	var profile models.ConsultantProfile
	err := r.db.QueryRow(
		ctx,
		query,
		userID,
		input.Headline,
		input.Bio,
		input.ChatRateCents,
		input.VoiceRateCents,
		input.VideoRateCents,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Headline,
		&profile.Bio,
		&profile.ChatRateCents,
		&profile.VoiceRateCents,
		&profile.VideoRateCents,
		&profile.Status,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ConsultantProfileRepository) UpdateStatusIfCurrent(
	ctx context.Context,
	userID int64,
	currentStatus string,
	nextStatus string,
) (*models.ConsultantProfile, error) {
	query := `
		UPDATE consultant_profiles
		SET status = $3, updated_at = NOW()
		WHERE user_id = $1 AND status = $2
		RETURNING id, user_id, headline, bio, chat_rate_cents, voice_rate_cents, video_rate_cents,
				  status, created_at, updated_at
	`
	var profile models.ConsultantProfile
	err := r.db.QueryRow(ctx, query, userID, currentStatus, nextStatus).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Headline,
		&profile.Bio,
		&profile.ChatRateCents,
		&profile.VoiceRateCents,
		&profile.VideoRateCents,
		&profile.Status,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
