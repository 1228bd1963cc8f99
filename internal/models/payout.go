package models

import (
	"time"

	"github.com/google/uuid"
)

type PayoutRequest struct {
	ID           uuid.UUID  `json:"id"`
	ConsultantID int64      `json:"consultant_id"`
	AmountCents  int64      `json:"amount_cents"`
	InvoiceRef   string     `json:"invoice_ref"`
	Status       string     `json:"status"`
	Note         *string    `json:"note,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at"`
}
