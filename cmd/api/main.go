package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slotwise/booking-api/internal/cache"
	"github.com/slotwise/booking-api/internal/config"
	"github.com/slotwise/booking-api/internal/email"
	"github.com/slotwise/booking-api/internal/handler"
	adminHandler "github.com/slotwise/booking-api/internal/handler/admin"
	availabilityHandler "github.com/slotwise/booking-api/internal/handler/availability"
	bookingHandler "github.com/slotwise/booking-api/internal/handler/booking"
	contactHandler "github.com/slotwise/booking-api/internal/handler/contact"
	"github.com/slotwise/booking-api/internal/middleware"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/internal/repository/postgres"
	"github.com/slotwise/booking-api/internal/repository/record"
	"github.com/slotwise/booking-api/internal/repository/recordstore"
	"github.com/slotwise/booking-api/internal/router"
	availabilityService "github.com/slotwise/booking-api/internal/service/availability"
	bookingService "github.com/slotwise/booking-api/internal/service/booking"
	"github.com/slotwise/booking-api/internal/service/captcha"
	contactService "github.com/slotwise/booking-api/internal/service/contact"
	"github.com/slotwise/booking-api/internal/service/notification"
	"github.com/slotwise/booking-api/pkg/auth"
	"github.com/slotwise/booking-api/pkg/logger"
	redisbroker "github.com/slotwise/booking-api/pkg/messaging/redis"
	"github.com/slotwise/booking-api/pkg/metrics"
	"github.com/slotwise/booking-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	m := metrics.NewMetrics("slotwise", "booking_api")

	bookingRepo, disabledRepo, cleanup, err := buildRepositories(cfg)
	if err != nil {
		appLogger.Fatal(err, "failed to initialize record store")
	}
	defer cleanup()

	// Disabled dates are loaded once and refreshed only on demand. A failed
	// startup load is survivable: the API runs with an empty set until an
	// admin triggers a refresh.
	disabledDates := cache.NewDisabledDates(disabledRepo)
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.Store.Timeout)
	if count, err := disabledDates.Reload(loadCtx); err != nil {
		appLogger.Warn("disabled dates startup load failed, serving empty set", "error", err.Error())
	} else {
		appLogger.Info("disabled dates loaded", "count", count)
	}
	cancelLoad()

	dispatcher, notifSvc := buildNotifications(cfg, appLogger, m)

	hours := cfg.Business.WeekHours()
	slotCfg := cfg.Slots.SlotConfig()
	location := cfg.Business.Location()

	availabilitySvc := availabilityService.NewService(
		bookingRepo, disabledDates, hours, slotCfg, location, appLogger, m)
	bookingSvc := bookingService.NewService(
		bookingRepo, slotCfg, location, dispatcher, appLogger, m)

	var verifier captcha.Verifier = captcha.NewTurnstile(cfg.Captcha.Secret)
	if cfg.Captcha.Skip {
		appLogger.Warn("captcha verification disabled")
		verifier = captcha.AlwaysPass{}
	}
	contactSvc := contactService.NewService(verifier, dispatcher, appLogger)

	tokens := auth.NewJWTService(cfg.Admin.JWTSecret, cfg.Admin.TokenExpiry)
	hasher := security.NewBcryptHasher(0)
	authMW := middleware.NewAuthMiddleware(tokens)

	h := handler.NewHandler()
	r := router.NewRouter(
		availabilityHandler.NewHandler(availabilitySvc),
		bookingHandler.NewHandler(bookingSvc),
		contactHandler.NewHandler(contactSvc),
		adminHandler.NewHandler(cfg.Admin.PasswordHash, hasher, tokens, disabledDates, appLogger),
		authMW,
		h,
		router.Config{
			RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst: cfg.RateLimit.Burst,
			ContactLimit:   cfg.RateLimit.ContactLimit,
			ContactWindow:  cfg.RateLimit.ContactWindow,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "booking_api",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Without a broker the API delivers notifications itself.
	if notifSvc != nil {
		appLogger.Info("in-process notification delivery enabled")
	}

	go func() {
		appLogger.Info("server starting", "port", cfg.Server.Port, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}

// buildRepositories wires the selected record store backend behind the
// domain repository interfaces.
func buildRepositories(cfg *config.Config) (repository.BookingRepository, repository.DisabledDateRepository, func(), error) {
	switch cfg.Store.Backend {
	case "airtable":
		store := recordstore.NewAirtableStore(recordstore.AirtableConfig{
			BaseID:  cfg.Store.Airtable.BaseID,
			APIKey:  cfg.Store.Airtable.APIKey,
			Timeout: cfg.Store.Timeout,
		})
		return record.NewBookingRepository(store, cfg.Store.Airtable.BookingsTable),
			record.NewDisabledDateRepository(store, cfg.Store.Airtable.DisabledDatesTable),
			func() {}, nil

	case "baserow":
		store := recordstore.NewBaserowStore(recordstore.BaserowConfig{
			BaseURL: cfg.Store.Baserow.BaseURL,
			Token:   cfg.Store.Baserow.Token,
			Timeout: cfg.Store.Timeout,
		})
		return record.NewBookingRepository(store, cfg.Store.Baserow.BookingsTable),
			record.NewDisabledDateRepository(store, cfg.Store.Baserow.DisabledDatesTable),
			func() {}, nil

	case "postgres":
		db, err := postgres.NewDB(cfg.Store.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewBookingRepository(db),
			postgres.NewDisabledDateRepository(db),
			func() { db.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// buildNotifications picks the dispatch path: through Redis to the worker
// when enabled, otherwise an in-process goroutine.
func buildNotifications(cfg *config.Config, appLogger *logger.Logger, m *metrics.Metrics) (notification.Dispatcher, *notification.Service) {
	if cfg.Redis.Enabled {
		broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
		}, &appLogger.ZL)
		if err != nil {
			appLogger.Fatal(err, "failed to connect to Redis")
		}
		return notification.NewBrokerDispatcher(broker), nil
	}

	var primary, fallback email.Sender
	if cfg.Email.SMTP.Host != "" {
		primary = email.NewSMTPSender(
			cfg.Email.SMTP.Host, cfg.Email.SMTP.Port,
			cfg.Email.SMTP.User, cfg.Email.SMTP.Password)
	}
	if cfg.Email.EmailJS.ServiceID != "" {
		fallback = email.NewEmailJSSender(
			cfg.Email.EmailJS.ServiceID, cfg.Email.EmailJS.TemplateID,
			cfg.Email.EmailJS.UserID, cfg.Email.EmailJS.AccessToken)
	}

	svc := notification.NewService(primary, fallback, cfg.Email, appLogger, m)
	return notification.NewDirectDispatcher(svc, appLogger), svc
}
