package models

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationRequest struct {
	ID              uuid.UUID  `json:"id"`
	CustomerID      int64      `json:"customer_id"`
	ConsultantID    int64      `json:"consultant_id"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	AppointmentTime *time.Time `json:"appointment_time"`
	Note            *string    `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	DecidedAt       *time.Time `json:"decided_at"`
}

// Immediate reports whether the request asks for a consultation right now
// rather than at a scheduled appointment time.
func (r *ConsultationRequest) Immediate() bool {
	return r.AppointmentTime == nil
}

type RequestWithCustomer struct {
	ConsultationRequest
	CustomerName string `json:"customer_name"`
}

type ExpiredRequest struct {
	ID           uuid.UUID
	ConsultantID int64
}
