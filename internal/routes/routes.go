package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/paulmbugua/Online-Tutor-App/internal/config"
	"github.com/paulmbugua/Online-Tutor-App/internal/handlers"
	"github.com/paulmbugua/Online-Tutor-App/internal/middleware"
	"github.com/paulmbugua/Online-Tutor-App/internal/repository"
	"github.com/paulmbugua/Online-Tutor-App/internal/services"
)

// App bundles the wired services the server binary needs beyond HTTP
// routing, currently the session machinery the completion sweeper drives.
type App struct {
	SessionRepo    *repository.SessionRepository
	SessionService *services.SessionService
}

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, log zerolog.Logger) (*App, error) {
	userRepo := repository.NewUserRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	earningsRepo := repository.NewEarningsRepository(db)
	packageRepo := repository.NewPackageRepository(db)
	intentRepo := repository.NewPaymentIntentRepository(db)

	notifier := services.NewLogNotifier(log)

	var meetingProvider services.MeetingProvider
	if cfg.ZoomAccountID != "" && cfg.ZoomClientID != "" && cfg.ZoomClientSecret != "" {
		meetingProvider = services.NewZoomMeetingService(cfg.ZoomAccountID, cfg.ZoomClientID, cfg.ZoomClientSecret)
	}

	var gateway services.PaymentGateway
	if cfg.MpesaConsumerKey != "" && cfg.MpesaConsumerSec != "" {
		gateway = services.NewDarajaGateway(
			cfg.MpesaConsumerKey,
			cfg.MpesaConsumerSec,
			cfg.MpesaShortcode,
			cfg.MpesaPasskey,
			cfg.MpesaCallbackURL,
		)
	}

	attendanceService := services.NewAttendanceService(attendanceRepo, sessionRepo, log)
	arbiter := services.NewCompletionArbiter(attendanceService)
	earningsService := services.NewEarningsService(earningsRepo)
	sessionService := services.NewSessionService(
		db,
		sessionRepo,
		earningsRepo,
		userRepo,
		tutorRepo,
		arbiter,
		meetingProvider,
		notifier,
		log,
	)
	paymentService := services.NewPaymentService(db, intentRepo, packageRepo, gateway, notifier, userRepo, log)

	authHandler := handlers.NewAuthHandler(db, userRepo, tutorRepo, cfg.JWTSecret)
	tutorHandler := handlers.NewTutorHandler(tutorRepo)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	earningsHandler := handlers.NewEarningsHandler(earningsService)
	webhookHandler := handlers.NewWebhookHandler(paymentService, attendanceService)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	// Provider callbacks authenticate by payload correlation, not by JWT.
	webhooks := api.Group("/webhooks")
	webhooks.Post("/payments", webhookHandler.PaymentCallback)
	webhooks.Post("/meetings", webhookHandler.MeetingCallback)

	authProtected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	tutors := authProtected.Group("/tutors")
	tutors.Post("/onboarding", tutorHandler.CompleteOnboarding)
	tutors.Get("/earnings", earningsHandler.ListEarnings)
	tutors.Get("/earnings/summary", earningsHandler.GetSummary)
	tutors.Get("/:id", tutorHandler.GetProfile)

	sessions := authProtected.Group("/sessions")
	sessions.Post("/book", sessionHandler.BookSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Post("/:id/accept", sessionHandler.AcceptSession)
	sessions.Post("/:id/cancel", sessionHandler.CancelSession)
	sessions.Post("/:id/meetings", sessionHandler.ProvisionMeetings)
	sessions.Post("/:id/request-completion", sessionHandler.RequestCompletion)
	sessions.Post("/:id/confirm-completion", sessionHandler.ConfirmCompletion)

	payments := authProtected.Group("/payments")
	payments.Get("/packages", paymentHandler.ListPackages)
	payments.Post("/initiate", paymentHandler.InitiatePayment)
	payments.Get("/transactions", paymentHandler.ListTransactions)
	payments.Get("/:transactionId/status", paymentHandler.ConfirmPayment)

	if err := registerDocsRoutes(app, cfg); err != nil {
		return nil, err
	}

	return &App{SessionRepo: sessionRepo, SessionService: sessionService}, nil
}
