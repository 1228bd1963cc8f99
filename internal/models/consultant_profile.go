package models

import "time"

type ConsultantProfile struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Headline       *string   `json:"headline"`
	Bio            *string   `json:"bio"`
	ChatRateCents  int64     `json:"chat_rate_cents"`
	VoiceRateCents int64     `json:"voice_rate_cents"`
	VideoRateCents int64     `json:"video_rate_cents"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RateFor returns the consultant's per-session rate for a consultation type.
func (p *ConsultantProfile) RateFor(consultationType string) int64 {
	switch consultationType {
	case "voice":
		return p.VoiceRateCents
	case "video":
		return p.VideoRateCents
	default:
		return p.ChatRateCents
	}
}
