package services

import (
	"context"
	"time"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
)

// SplitNet divides a gross session value between the consultant and the
// platform. Rounding is half-up on the consultant share, and the commission is
// the exact remainder, so net + commission == gross holds for every row.
func SplitNet(grossCents int64, sharePercent int64) (netCents int64, commissionCents int64) {
	netCents = (grossCents*sharePercent + 50) / 100
	commissionCents = grossCents - netCents
	return netCents, commissionCents
}

type EarningsService struct {
	earningsRepo *repository.EarningsRepository
	sharePercent int64
}

func NewEarningsService(earningsRepo *repository.EarningsRepository, sharePercent int64) *EarningsService {
	return &EarningsService{
		earningsRepo: earningsRepo,
		sharePercent: sharePercent,
	}
}

// Summary recomputes every bucket from session and payout history. The
// available pool is whatever the history has earned minus what payouts have
// earmarked or settled; no separately maintained counter exists to drift.
func (s *EarningsService) Summary(
	ctx context.Context,
	consultantID int64,
	now time.Time,
) (*models.EarningsSummary, error) {
	totalNet, err := s.earningsRepo.TotalNetCents(ctx, consultantID, s.sharePercent)
	if err != nil {
		return nil, err
	}

	inRequest, err := s.earningsRepo.PendingPayoutCents(ctx, consultantID)
	if err != nil {
		return nil, err
	}

	paid, err := s.earningsRepo.PaidPayoutCents(ctx, consultantID)
	if err != nil {
		return nil, err
	}

	thisMonthStart, nextMonthStart := monthBounds(now)
	lastMonthStart, _ := monthBounds(thisMonthStart.Add(-time.Hour))

	thisMonth, err := s.earningsRepo.NetCentsBetween(ctx, consultantID, s.sharePercent, thisMonthStart, nextMonthStart)
	if err != nil {
		return nil, err
	}

	lastMonth, err := s.earningsRepo.NetCentsBetween(ctx, consultantID, s.sharePercent, lastMonthStart, thisMonthStart)
	if err != nil {
		return nil, err
	}

	return &models.EarningsSummary{
		AvailableCents:     totalNet - inRequest - paid,
		InRequestCents:     inRequest,
		PaidCents:          paid,
		TotalEarningsCents: totalNet,
		ThisMonthCents:     thisMonth,
		LastMonthCents:     lastMonth,
	}, nil
}

// AvailableCents is the payout-facing read of the available bucket.
func (s *EarningsService) AvailableCents(ctx context.Context, consultantID int64) (int64, error) {
	return availableCents(ctx, s.earningsRepo, consultantID, s.sharePercent)
}

func availableCents(
	ctx context.Context,
	repo *repository.EarningsRepository,
	consultantID int64,
	sharePercent int64,
) (int64, error) {
	totalNet, err := repo.TotalNetCents(ctx, consultantID, sharePercent)
	if err != nil {
		return 0, err
	}
	inRequest, err := repo.PendingPayoutCents(ctx, consultantID)
	if err != nil {
		return 0, err
	}
	paid, err := repo.PaidPayoutCents(ctx, consultantID)
	if err != nil {
		return 0, err
	}
	return totalNet - inRequest - paid, nil
}

// Statement lists a month of closed sessions with the commission split applied
// per row.
func (s *EarningsService) Statement(
	ctx context.Context,
	consultantID int64,
	month time.Month,
	year int,
	page int,
	limit int,
) ([]models.EarningsStatementRow, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	sessions, total, err := s.earningsRepo.ClosedSessionsBetween(
		ctx,
		consultantID,
		from,
		to,
		limit,
		(page-1)*limit,
	)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]models.EarningsStatementRow, 0, len(sessions))
	for _, session := range sessions {
		net, commission := SplitNet(session.GrossCents, s.sharePercent)
		endedAt := session.StartedAt
		if session.EndedAt != nil {
			endedAt = *session.EndedAt
		}
		rows = append(rows, models.EarningsStatementRow{
			SessionID:       session.ID,
			Type:            session.Type,
			GrossCents:      session.GrossCents,
			NetCents:        net,
			CommissionCents: commission,
			EndedAt:         endedAt,
		})
	}

	return rows, total, nil
}

func monthBounds(now time.Time) (start time.Time, end time.Time) {
	start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}
