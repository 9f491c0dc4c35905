package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/PsylineServices/psy-scheduler/internal/audit"
	"github.com/PsylineServices/psy-scheduler/internal/config"
	"github.com/PsylineServices/psy-scheduler/internal/events"
	"github.com/PsylineServices/psy-scheduler/internal/handlers"
	"github.com/PsylineServices/psy-scheduler/internal/idempotency"
	infraRepo "github.com/PsylineServices/psy-scheduler/internal/infra/repository"
	"github.com/PsylineServices/psy-scheduler/internal/mailer"
	"github.com/PsylineServices/psy-scheduler/internal/middleware"
	"github.com/PsylineServices/psy-scheduler/internal/notify"
	"github.com/PsylineServices/psy-scheduler/internal/sweeper"
	ucBooking "github.com/PsylineServices/psy-scheduler/internal/usecase/booking"
	ucPayment "github.com/PsylineServices/psy-scheduler/internal/usecase/payment"
	"github.com/PsylineServices/psy-scheduler/internal/webhookauth"
)

// RegisterRoutes wires every repository, use case and handler and returns
// the background sweeper for the caller to start.
func RegisterRoutes(
	r *gin.Engine,
	db *gorm.DB,
	rdb *redis.Client,
	cfg *config.Config,
	log *zap.Logger,
) *sweeper.Sweeper {

	// ======================================================
	// MIDDLEWARE GLOBAL
	// ======================================================
	r.Use(middleware.CORSMiddleware())

	// ======================================================
	// INFRA (SINGLETONS)
	// ======================================================
	slotRepo := infraRepo.NewSlotGormRepository(db)
	appointmentRepo := infraRepo.NewAppointmentGormRepository(db)
	paymentRepo := infraRepo.NewPaymentGormRepository(db)
	webhookEventRepo := infraRepo.NewWebhookEventGormRepository(db)
	idempotencyRepo := infraRepo.NewIdempotencyGormRepository(db)

	auditLogger := audit.New(db)
	auditDispatcher := audit.NewDispatcher(auditLogger, log)

	guard := idempotency.NewGuard(idempotencyRepo, rdb, cfg.IdempotencyTTL, log)

	var mail mailer.Sender
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(cfg)
	} else {
		mail = mailer.NewLogMailer(log)
	}

	// Telegram is optional; without a token the notifier simply is not
	// subscribed and webhook updates are dedup-only.
	var notifier *notify.TelegramNotifier
	if cfg.TelegramBotToken != "" {
		var err error
		notifier, err = notify.NewTelegramNotifier(
			cfg.TelegramBotToken,
			appointmentRepo,
			appointmentRepo,
			log,
		)
		if err != nil {
			log.Warn("telegram notifier disabled", zap.Error(err))
			notifier = nil
		}
	}

	var busHandlers []events.Handler
	if notifier != nil {
		busHandlers = append(busHandlers, notifier.HandleEvent)
	}
	bus := events.NewDispatcher(log, busHandlers...)

	// ======================================================
	// USE CASES — BOOKING
	// ======================================================
	minAdvance := time.Duration(cfg.MinAdvanceMinutes) * time.Minute

	createAppointmentUC := ucBooking.NewCreateAppointment(
		slotRepo,
		appointmentRepo,
		appointmentRepo,
		appointmentRepo,
		bus,
		auditDispatcher,
		minAdvance,
	)

	confirmAppointmentUC := ucBooking.NewConfirmAppointment(
		slotRepo,
		appointmentRepo,
		appointmentRepo,
		bus,
		mail,
		auditDispatcher,
		log,
	)

	cancelAppointmentUC := ucBooking.NewCancelAppointment(
		slotRepo,
		appointmentRepo,
		bus,
		auditDispatcher,
		log,
		cfg.CancelCutoff,
	)

	completeAppointmentUC := ucBooking.NewCompleteAppointment(
		appointmentRepo,
		bus,
		auditDispatcher,
	)

	listAppointmentsByDateUC := ucBooking.NewListAppointmentsByDate(
		appointmentRepo,
	)

	listAppointmentsByMonthUC := ucBooking.NewListAppointmentsByMonth(
		appointmentRepo,
	)

	availabilityUC := ucBooking.NewListAvailableSlots(
		slotRepo,
		appointmentRepo,
	)

	releaseExpiredUC := ucBooking.NewReleaseExpiredHolds(
		slotRepo,
		appointmentRepo,
		bus,
		log,
		cfg.HoldTTL,
	)

	// ======================================================
	// USE CASES — PAYMENTS
	// ======================================================
	createIntentUC := ucPayment.NewCreateIntent(
		paymentRepo,
		appointmentRepo,
		appointmentRepo,
	)

	reconcileUC := ucPayment.NewReconcileWebhook(
		paymentRepo,
		webhookEventRepo,
		confirmAppointmentUC,
		bus,
		log,
	)

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(db, cfg)
	meHandler := handlers.NewMeHandler(db)
	serviceHandler := handlers.NewServiceHandler(db)
	slotHandler := handlers.NewSlotHandler(db, slotRepo)

	appointmentHandler := handlers.NewAppointmentHandler(
		cancelAppointmentUC,
		completeAppointmentUC,
		listAppointmentsByDateUC,
		listAppointmentsByMonthUC,
		createIntentUC,
	)

	publicHandler := handlers.NewPublicHandler(
		db,
		availabilityUC,
		createAppointmentUC,
		guard,
		log,
	)

	webhookHandler := handlers.NewWebhookHandler(
		webhookauth.NewHMACVerifier(cfg.YookassaWebhookSecret),
		reconcileUC,
		log,
	)

	var botHandler handlers.BotHandler
	if notifier != nil {
		botHandler = notifier
	}
	telegramHandler := handlers.NewTelegramHandler(
		webhookauth.NewSecretTokenVerifier(cfg.TelegramWebhookSecret),
		webhookEventRepo,
		botHandler,
		log,
	)

	auditLogsHandler := handlers.NewAuditLogsHandler(db)

	// ======================================================
	// ROUTES
	// ======================================================
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ------------------------------
	// WEBHOOKS
	// ------------------------------
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/yookassa", webhookHandler.HandleYookassa)
		webhooks.POST("/telegram", telegramHandler.HandleUpdate)
	}

	api := r.Group("/api")
	{
		// ------------------------------
		// PUBLIC API
		// ------------------------------
		publicAPI := api.Group("/public")
		{
			publicAPI.GET("/services", publicHandler.ListServices)
			publicAPI.GET("/availability", publicHandler.Availability)
			publicAPI.POST("/appointments", publicHandler.CreateAppointment)
		}

		// ------------------------------
		// AUTH
		// ------------------------------
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		// ------------------------------
		// PRIVATE API
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(cfg))
		{
			secured.GET("/me", meHandler.GetMe)

			secured.GET("/me/services", serviceHandler.List)
			secured.POST("/me/services", serviceHandler.Create)
			secured.PATCH("/me/services/:id", serviceHandler.Update)

			secured.GET("/me/slots", slotHandler.List)
			secured.POST("/me/slots", slotHandler.Create)
			secured.DELETE("/me/slots/:id", slotHandler.Delete)

			// ------------------------------
			// APPOINTMENTS
			// ------------------------------
			secured.GET("/me/appointments", appointmentHandler.ListByDate)
			secured.GET("/me/appointments/month", appointmentHandler.ListByMonth)
			secured.PATCH("/me/appointments/:id/cancel", appointmentHandler.Cancel)
			secured.PATCH("/me/appointments/:id/complete", appointmentHandler.Complete)
			secured.POST("/me/appointments/:id/payment", appointmentHandler.CreatePaymentIntent)

			secured.GET("/me/audit-logs", auditLogsHandler.List)
		}
	}

	return sweeper.New(releaseExpiredUC, guard, cfg.SweepInterval, log)
}
