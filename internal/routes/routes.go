package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DivyamUp14/ConsultAppBack/internal/config"
	"github.com/DivyamUp14/ConsultAppBack/internal/handlers"
	"github.com/DivyamUp14/ConsultAppBack/internal/middleware"
	"github.com/DivyamUp14/ConsultAppBack/internal/notify"
	"github.com/DivyamUp14/ConsultAppBack/internal/repository"
	"github.com/DivyamUp14/ConsultAppBack/internal/services"
)

// RegisterRoutes wires repositories, services and handlers onto the app and
// returns the background workers (hub, sweeper) for main to run.
func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) (*notify.Hub, *services.Sweeper) {
	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewConsultantProfileRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)
	earningsRepo := repository.NewEarningsRepository(db)

	hub := notify.NewHub()

	var invoiceStorage services.InvoiceStorage
	if cfg.SupabaseURL != "" && cfg.SupabaseBucket != "" && cfg.SupabaseServiceKey != "" {
		invoiceStorage = services.NewSupabaseInvoiceStorage(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	}

	requestService := services.NewRequestService(db, requestRepo, userRepo, profileRepo, hub)
	sessionService := services.NewSessionService(sessionRepo, requestRepo)
	chatService := services.NewChatService(sessionRepo, messageRepo, hub)
	earningsService := services.NewEarningsService(earningsRepo, cfg.CommissionShare)
	payoutService := services.NewPayoutService(db, payoutRepo, cfg.CommissionShare)
	sweeper := services.NewSweeper(requestRepo, hub, cfg.RequestTTL, cfg.SweepInterval)

	authHandler := handlers.NewAuthHandler(db, userRepo, profileRepo, cfg.JWTSecret)
	consultantHandler := handlers.NewConsultantHandler(profileRepo)
	requestHandler := handlers.NewRequestHandler(requestService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	chatHandler := handlers.NewChatHandler(chatService, hub, cfg.JWTSecret)
	earningsHandler := handlers.NewEarningsHandler(earningsService)
	payoutHandler := handlers.NewPayoutHandler(payoutService, invoiceStorage)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	consultants := authProtected.Group("/consultants")
	consultants.Post("/onboarding", consultantHandler.Onboarding)
	consultants.Get("/profile", consultantHandler.GetProfile)
	consultants.Put("/profile", consultantHandler.Onboarding)
	consultants.Post("/:id/approve", consultantHandler.Approve)

	requests := authProtected.Group("/requests")
	requests.Post("", requestHandler.Create)
	requests.Get("", requestHandler.List)
	requests.Get("/:id", requestHandler.Get)
	requests.Post("/:id/decision", requestHandler.Decide)
	requests.Post("/:id/cancel", requestHandler.Cancel)

	sessions := authProtected.Group("/sessions")
	sessions.Get("", sessionHandler.List)
	sessions.Get("/:id", sessionHandler.Get)
	sessions.Post("/:id/end", sessionHandler.End)
	sessions.Get("/:id/messages", chatHandler.GetMessages)
	sessions.Post("/:id/messages", chatHandler.SendMessage)

	earnings := authProtected.Group("/earnings")
	earnings.Get("/summary", earningsHandler.Summary)
	earnings.Get("/statement", earningsHandler.Statement)

	payouts := authProtected.Group("/payouts")
	payouts.Post("", payoutHandler.Create)
	payouts.Get("", payoutHandler.List)
	payouts.Post("/invoice", payoutHandler.UploadInvoice)
	payouts.Post("/:id/approve", payoutHandler.Approve)
	payouts.Post("/:id/reject", payoutHandler.Reject)
	payouts.Post("/:id/paid", payoutHandler.MarkPaid)

	api.Use("/v1/ws", chatHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(chatHandler.HandleWebSocket))

	return hub, sweeper
}
