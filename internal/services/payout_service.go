package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
)

var (
	ErrInvalidAmount          = errors.New("payout amount must be positive")
	ErrAmountExceedsAvailable = errors.New("payout amount exceeds available earnings")
	ErrMissingInvoice         = errors.New("payout requires an invoice reference")
	ErrPayoutAlreadyPending   = errors.New("a payout request is already pending")
	ErrPayoutNotApproved      = errors.New("payout is not approved")
)

type PayoutService struct {
	db           *pgxpool.Pool
	payoutRepo   *repository.PayoutRepository
	sharePercent int64
}

func NewPayoutService(db *pgxpool.Pool, payoutRepo *repository.PayoutRepository, sharePercent int64) *PayoutService {
	return &PayoutService{
		db:           db,
		payoutRepo:   payoutRepo,
		sharePercent: sharePercent,
	}
}

// Request creates a pending payout. All preconditions are checked inside one
// transaction under a per-consultant advisory lock, so a concurrent session
// completion or duplicate payout attempt cannot slip between the available
// recomputation and the insert. The pending row itself is what moves the
// amount from available to in-request in the derived buckets.
func (s *PayoutService) Request(
	ctx context.Context,
	consultantID int64,
	amountCents int64,
	invoiceRef string,
) (*models.PayoutRequest, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	invoiceRef = strings.TrimSpace(invoiceRef)
	if invoiceRef == "" {
		return nil, ErrMissingInvoice
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", consultantID); err != nil {
		return nil, err
	}

	txPayoutRepo := repository.NewPayoutRepository(tx)
	txEarningsRepo := repository.NewEarningsRepository(tx)

	hasPending, err := txPayoutRepo.HasPending(ctx, consultantID)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, ErrPayoutAlreadyPending
	}

	available, err := availableCents(ctx, txEarningsRepo, consultantID, s.sharePercent)
	if err != nil {
		return nil, err
	}
	if amountCents > available {
		return nil, ErrAmountExceedsAvailable
	}

	payout, err := txPayoutRepo.Create(ctx, repository.CreatePayoutInput{
		ConsultantID: consultantID,
		AmountCents:  amountCents,
		InvoiceRef:   invoiceRef,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return payout, nil
}

// Approve resolves a pending payout in the consultant's favor; the amount
// moves from in-request to paid. Resolving a payout that is no longer pending
// is a no-op that returns the stored record.
func (s *PayoutService) Approve(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	return s.resolve(ctx, payoutID, "approved")
}

// Reject resolves a pending payout back to the consultant; the amount returns
// from in-request to available. Idempotent like Approve.
func (s *PayoutService) Reject(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	return s.resolve(ctx, payoutID, "rejected")
}

func (s *PayoutService) resolve(
	ctx context.Context,
	payoutID uuid.UUID,
	nextStatus string,
) (*models.PayoutRequest, error) {
	payout, err := s.payoutRepo.UpdateStatusIfCurrent(ctx, payoutID, "pending", nextStatus)
	if err == nil {
		return payout, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	existing, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return existing, nil
}

// MarkPaid records settlement of an approved payout. Already-settled payouts
// pass through unchanged; settling from any other state is a conflict.
func (s *PayoutService) MarkPaid(ctx context.Context, payoutID uuid.UUID) (*models.PayoutRequest, error) {
	payout, err := s.payoutRepo.UpdateStatusIfCurrent(ctx, payoutID, "approved", "paid")
	if err == nil {
		return payout, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	existing, err := s.payoutRepo.GetByID(ctx, payoutID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if existing.Status == "paid" {
		return existing, nil
	}
	return nil, ErrPayoutNotApproved
}

func (s *PayoutService) ListForConsultant(
	ctx context.Context,
	consultantID int64,
) ([]models.PayoutRequest, error) {
	return s.payoutRepo.ListForConsultant(ctx, consultantID)
}
