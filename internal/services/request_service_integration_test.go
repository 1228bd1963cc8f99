package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/DivyamUp14/ConsultAppBack/internal/models"
	"github.com/DivyamUp14/ConsultAppBack/internal/notify"
	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

const testSharePercent = 55

func TestRequestAcceptThroughPayoutFlow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	customerID := createTestAccount(t, ctx, pool, "customer", 0)
	consultantID := createTestAccount(t, ctx, pool, "consultant", 10000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, customerID, consultantID) })

	requestService := newIntegrationRequestService(pool)
	sessionService := NewSessionService(repository.NewSessionRepository(pool), repository.NewRequestRepository(pool))
	earningsService := NewEarningsService(repository.NewEarningsRepository(pool), testSharePercent)
	payoutService := NewPayoutService(pool, repository.NewPayoutRepository(pool), testSharePercent)

	request, err := requestService.Create(ctx, customerID, CreateRequestInput{
		ConsultantID: consultantID,
		Type:         "chat",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if request.Status != "pending" {
		t.Fatalf("expected pending request, got %q", request.Status)
	}

	result, err := requestService.Decide(ctx, consultantID, request.ID, "accept")
	if err != nil {
		t.Fatalf("Decide accept: %v", err)
	}
	if result.Session == nil || result.Session.Status != "active" {
		t.Fatalf("expected active session, got %+v", result.Session)
	}
	if result.Session.GrossCents != 10000 {
		t.Fatalf("expected gross 10000, got %d", result.Session.GrossCents)
	}

	// The pending state was consumed; a second decision loses the race.
	if _, err := requestService.Decide(ctx, consultantID, request.ID, "decline"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}

	closed, err := sessionService.End(ctx, customerID, "customer", result.Session.ID)
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if closed.Status != "closed" || closed.EndedAt == nil {
		t.Fatalf("expected closed session with ended_at, got %+v", closed)
	}

	// Ending again is a plain success returning the same record.
	closedAgain, err := sessionService.End(ctx, consultantID, "consultant", result.Session.ID)
	if err != nil {
		t.Fatalf("second End: %v", err)
	}
	if !closedAgain.EndedAt.Equal(*closed.EndedAt) {
		t.Fatalf("retried end moved ended_at: %v != %v", closedAgain.EndedAt, closed.EndedAt)
	}

	summary, err := earningsService.Summary(ctx, consultantID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	wantNet, _ := SplitNet(10000, testSharePercent)
	if summary.TotalEarningsCents != wantNet || summary.AvailableCents != wantNet {
		t.Fatalf("expected total/available %d, got %+v", wantNet, summary)
	}

	if _, err := payoutService.Request(ctx, consultantID, wantNet+1, "invoices/test.pdf"); !errors.Is(err, ErrAmountExceedsAvailable) {
		t.Fatalf("expected ErrAmountExceedsAvailable, got %v", err)
	}

	payout, err := payoutService.Request(ctx, consultantID, wantNet, "invoices/test.pdf")
	if err != nil {
		t.Fatalf("payout Request: %v", err)
	}
	if payout.Status != "pending" {
		t.Fatalf("expected pending payout, got %q", payout.Status)
	}

	if _, err := payoutService.Request(ctx, consultantID, 1, "invoices/test2.pdf"); !errors.Is(err, ErrPayoutAlreadyPending) {
		t.Fatalf("expected ErrPayoutAlreadyPending, got %v", err)
	}

	afterRequest, err := earningsService.Summary(ctx, consultantID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Summary after payout request: %v", err)
	}
	if afterRequest.AvailableCents != 0 || afterRequest.InRequestCents != wantNet {
		t.Fatalf("expected available 0 / in-request %d, got %+v", wantNet, afterRequest)
	}

	// Settlement requires an approval first.
	if _, err := payoutService.MarkPaid(ctx, payout.ID); !errors.Is(err, ErrPayoutNotApproved) {
		t.Fatalf("expected ErrPayoutNotApproved, got %v", err)
	}

	approved, err := payoutService.Approve(ctx, payout.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != "approved" {
		t.Fatalf("expected approved payout, got %q", approved.Status)
	}

	// Approving again is idempotent.
	if again, err := payoutService.Approve(ctx, payout.ID); err != nil || again.Status != "approved" {
		t.Fatalf("retried Approve = (%+v, %v)", again, err)
	}

	afterApprove, err := earningsService.Summary(ctx, consultantID, time.Now().UTC())
	if err != nil {
		t.Fatalf("Summary after approve: %v", err)
	}
	if afterApprove.InRequestCents != 0 || afterApprove.PaidCents != wantNet || afterApprove.AvailableCents != 0 {
		t.Fatalf("expected in-request 0 / paid %d, got %+v", wantNet, afterApprove)
	}

	paid, err := payoutService.MarkPaid(ctx, payout.ID)
	if err != nil {
		t.Fatalf("MarkPaid: %v", err)
	}
	if paid.Status != "paid" {
		t.Fatalf("expected paid payout, got %q", paid.Status)
	}
}

func TestRequestCancelBeatsDecision(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	customerID := createTestAccount(t, ctx, pool, "customer", 0)
	consultantID := createTestAccount(t, ctx, pool, "consultant", 5000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, customerID, consultantID) })

	requestService := newIntegrationRequestService(pool)

	request, err := requestService.Create(ctx, customerID, CreateRequestInput{
		ConsultantID: consultantID,
		Type:         "voice",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	cancelled, err := requestService.Cancel(ctx, customerID, request.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != "cancelled" {
		t.Fatalf("expected cancelled request, got %q", cancelled.Status)
	}

	if _, err := requestService.Decide(ctx, consultantID, request.ID, "accept"); !errors.Is(err, ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided after cancel, got %v", err)
	}
}

func TestInactiveConsultantRejectsRequests(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	customerID := createTestAccount(t, ctx, pool, "customer", 0)
	consultantID := createTestAccount(t, ctx, pool, "consultant", 5000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, customerID, consultantID) })

	// Push the profile back to pending review.
	if _, err := pool.Exec(ctx, "UPDATE consultant_profiles SET status = 'pending_approval' WHERE user_id = $1", consultantID); err != nil {
		t.Fatalf("reset profile status: %v", err)
	}

	requestService := newIntegrationRequestService(pool)

	if _, err := requestService.Create(ctx, customerID, CreateRequestInput{
		ConsultantID: consultantID,
		Type:         "chat",
	}); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestPendingImmediateCallRequestsAreWithheldFromList(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	chatCustomerID := createTestAccount(t, ctx, pool, "customer", 0)
	videoCustomerID := createTestAccount(t, ctx, pool, "customer", 0)
	consultantID := createTestAccount(t, ctx, pool, "consultant", 5000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, chatCustomerID, videoCustomerID, consultantID) })

	// Give the second customer a name the search filter can single out.
	if _, err := pool.Exec(ctx, "UPDATE users SET full_name = 'Avery Example' WHERE id = $1", videoCustomerID); err != nil {
		t.Fatalf("rename customer: %v", err)
	}

	requestService := newIntegrationRequestService(pool)

	chatRequest, err := requestService.Create(ctx, chatCustomerID, CreateRequestInput{
		ConsultantID: consultantID,
		Type:         "chat",
	})
	if err != nil {
		t.Fatalf("Create chat request: %v", err)
	}

	videoRequest, err := requestService.Create(ctx, videoCustomerID, CreateRequestInput{
		ConsultantID: consultantID,
		Type:         "video",
	})
	if err != nil {
		t.Fatalf("Create video request: %v", err)
	}

	appointment := time.Now().UTC().Add(48 * time.Hour)
	voiceRequest, err := requestService.Create(ctx, chatCustomerID, CreateRequestInput{
		ConsultantID:    consultantID,
		Type:            "voice",
		AppointmentTime: &appointment,
	})
	if err != nil {
		t.Fatalf("Create scheduled voice request: %v", err)
	}

	// While pending, the immediate video request is push-only. The immediate
	// chat and the scheduled voice stay listable.
	listed, total, err := requestService.ListForConsultant(ctx, consultantID, RequestListFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListForConsultant: %v", err)
	}
	if total != 2 || len(listed) != 2 {
		t.Fatalf("expected 2 listable requests, got total %d: %+v", total, listed)
	}
	if listed[0].ID != voiceRequest.ID || listed[1].ID != chatRequest.ID {
		t.Fatalf("expected most-recent-first [voice, chat], got %+v", listed)
	}
	for _, row := range listed {
		if row.ID == videoRequest.ID {
			t.Fatal("pending immediate video request leaked into the list")
		}
	}

	// Once decided, the call request becomes part of the visible history.
	if _, err := requestService.Decide(ctx, consultantID, videoRequest.ID, "decline"); err != nil {
		t.Fatalf("Decide decline: %v", err)
	}

	listed, total, err = requestService.ListForConsultant(ctx, consultantID, RequestListFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("ListForConsultant after decline: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 requests after decline, got %d", total)
	}
	if listed[0].ID != voiceRequest.ID || listed[1].ID != videoRequest.ID || listed[2].ID != chatRequest.ID {
		t.Fatalf("expected [voice, video, chat] by recency, got %+v", listed)
	}

	// The search filter matches on customer name.
	found, total, err := requestService.ListForConsultant(ctx, consultantID, RequestListFilter{
		Search: "avery",
		Page:   1,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("ListForConsultant search: %v", err)
	}
	if total != 1 || len(found) != 1 || found[0].ID != videoRequest.ID {
		t.Fatalf("expected search to return the video request only, got total %d: %+v", total, found)
	}
	if found[0].CustomerName != "Avery Example" {
		t.Fatalf("expected customer name on the row, got %q", found[0].CustomerName)
	}
}

func TestSweepExpiresOnlyLapsedRequests(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)

	customerID := createTestAccount(t, ctx, pool, "customer", 0)
	consultantID := createTestAccount(t, ctx, pool, "consultant", 5000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, customerID, consultantID) })

	requestRepo := repository.NewRequestRepository(pool)
	now := time.Now().UTC()

	staleImmediate, err := requestRepo.Create(ctx, repository.CreateRequestInput{
		CustomerID:   customerID,
		ConsultantID: consultantID,
		Type:         "chat",
	})
	if err != nil {
		t.Fatalf("seed immediate request: %v", err)
	}
	if _, err := pool.Exec(ctx,
		"UPDATE consultation_requests SET created_at = NOW() - interval '10 minutes' WHERE id = $1",
		staleImmediate.ID,
	); err != nil {
		t.Fatalf("backdate immediate request: %v", err)
	}

	passedAppointment := now.Add(-time.Hour)
	lapsedScheduled, err := requestRepo.Create(ctx, repository.CreateRequestInput{
		CustomerID:      customerID,
		ConsultantID:    consultantID,
		Type:            "video",
		AppointmentTime: &passedAppointment,
	})
	if err != nil {
		t.Fatalf("seed lapsed scheduled request: %v", err)
	}

	futureAppointment := now.Add(time.Hour)
	upcomingScheduled, err := requestRepo.Create(ctx, repository.CreateRequestInput{
		CustomerID:      customerID,
		ConsultantID:    consultantID,
		Type:            "voice",
		AppointmentTime: &futureAppointment,
	})
	if err != nil {
		t.Fatalf("seed upcoming scheduled request: %v", err)
	}

	publisher := &capturingPublisher{}
	sweeper := NewSweeper(requestRepo, publisher, 5*time.Minute, time.Second)

	// Other rows in a shared database may sweep alongside ours; assertions are
	// on our requests, not the total.
	if _, err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	wantStatus := map[uuid.UUID]string{
		staleImmediate.ID:    "expired",
		lapsedScheduled.ID:   "expired",
		upcomingScheduled.ID: "pending",
	}
	for id, want := range wantStatus {
		request, err := requestRepo.GetByID(ctx, id)
		if err != nil {
			t.Fatalf("GetByID %s: %v", id, err)
		}
		if request.Status != want {
			t.Fatalf("request %s status %q, want %q", id, request.Status, want)
		}
	}

	expiredIDs := map[string]bool{}
	for _, p := range publisher.published {
		if p.userID == consultantID && p.event.Type == notify.EventRequestExpired {
			expiredIDs[p.event.RequestID] = true
		}
	}
	if !expiredIDs[staleImmediate.ID.String()] || !expiredIDs[lapsedScheduled.ID.String()] {
		t.Fatalf("expected expiry events for both lapsed requests, got %v", expiredIDs)
	}
	if expiredIDs[upcomingScheduled.ID.String()] {
		t.Fatal("upcoming scheduled request must not emit an expiry event")
	}
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func newIntegrationRequestService(pool *pgxpool.Pool) *RequestService {
	return NewRequestService(
		pool,
		repository.NewRequestRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewConsultantProfileRepository(pool),
		nil,
	)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string, rateCents int64) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("flow-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		FullName:     "Flow Test " + role,
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}

	if role != "consultant" {
		return user.ID
	}

	profileRepo := repository.NewConsultantProfileRepository(pool)
	if err := profileRepo.CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty consultant profile: %v", err)
	}
	headline := "Test Consultant"
	if _, err := profileRepo.UpdateOnboarding(ctx, user.ID, repository.ConsultantOnboardingInput{
		Headline:       &headline,
		ChatRateCents:  rateCents,
		VoiceRateCents: rateCents,
		VideoRateCents: rateCents,
	}); err != nil {
		t.Fatalf("UpdateOnboarding consultant profile: %v", err)
	}
	if _, err := profileRepo.UpdateStatusIfCurrent(ctx, user.ID, "pending_approval", "active"); err != nil {
		t.Fatalf("activate consultant profile: %v", err)
	}

	return user.ID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM session_messages WHERE session_id IN (SELECT id FROM sessions WHERE customer_id = ANY($1) OR consultant_id = ANY($1))", userIDs); err != nil {
		t.Fatalf("cleanup session messages: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM sessions WHERE customer_id = ANY($1) OR consultant_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup sessions: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM consultation_requests WHERE customer_id = ANY($1) OR consultant_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup requests: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM payout_requests WHERE consultant_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup payouts: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM consultant_profiles WHERE user_id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup profiles: %v", err)
	}
	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
