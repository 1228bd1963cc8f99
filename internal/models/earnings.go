package models

import (
	"time"

	"github.com/google/uuid"
)

// EarningsSummary is derived from session and payout history on every read;
// nothing in it is stored as a running counter.
type EarningsSummary struct {
	AvailableCents     int64 `json:"available_cents"`
	InRequestCents     int64 `json:"in_request_cents"`
	PaidCents          int64 `json:"paid_cents"`
	TotalEarningsCents int64 `json:"total_earnings_cents"`
	ThisMonthCents     int64 `json:"this_month_cents"`
	LastMonthCents     int64 `json:"last_month_cents"`
}

type EarningsStatementRow struct {
	SessionID       uuid.UUID `json:"session_id"`
	Type            string    `json:"type"`
	GrossCents      int64     `json:"gross_cents"`
	NetCents        int64     `json:"net_cents"`
	CommissionCents int64     `json:"commission_cents"`
	EndedAt         time.Time `json:"ended_at"`
}
