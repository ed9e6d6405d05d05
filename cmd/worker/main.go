// The worker consumes notification messages published by the API and
// delivers the emails out of process. It exists so slow SMTP conversations
// never hold an HTTP connection open.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slotwise/booking-api/internal/config"
	"github.com/slotwise/booking-api/internal/email"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/service/notification"
	"github.com/slotwise/booking-api/pkg/logger"
	redisbroker "github.com/slotwise/booking-api/pkg/messaging/redis"
)

var (
	messagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_worker_messages_processed_total",
		Help: "Notification messages handled by the worker",
	}, []string{"type", "outcome"})
	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notification_worker_processing_duration_seconds",
		Help:    "Time spent delivering one notification",
		Buckets: prometheus.DefBuckets,
	})
)

// WorkerConfig is env-only: the worker runs as a sidecar next to the API
// and shares nothing but the broker URL and email credentials.
type WorkerConfig struct {
	RedisURL          string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	HealthPort        string        `envconfig:"HEALTH_PORT" default:"8081"`
	ProcessTimeout    time.Duration `envconfig:"PROCESS_TIMEOUT" default:"60s"`
	FromEmail         string        `envconfig:"EMAIL_FROM"`
	FromName          string        `envconfig:"EMAIL_FROM_NAME"`
	NotificationEmail string        `envconfig:"EMAIL_NOTIFY"`
	RetryAttempts     int           `envconfig:"EMAIL_RETRY_ATTEMPTS" default:"2"`
	RetryBackoff      time.Duration `envconfig:"EMAIL_RETRY_BACKOFF" default:"400ms"`
	SMTPHost          string        `envconfig:"SMTP_HOST"`
	SMTPPort          int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser          string        `envconfig:"SMTP_USER"`
	SMTPPassword      string        `envconfig:"SMTP_PASSWORD"`
	EmailJSServiceID  string        `envconfig:"EMAILJS_SERVICE_ID"`
	EmailJSTemplateID string        `envconfig:"EMAILJS_TEMPLATE_ID"`
	EmailJSUserID     string        `envconfig:"EMAILJS_USER_ID"`
	EmailJSToken      string        `envconfig:"EMAILJS_ACCESS_TOKEN"`
}

func main() {
	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.InfoLevel,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
	})

	var cfg WorkerConfig
	if err := envconfig.Process("worker", &cfg); err != nil {
		appLogger.Fatal(err, "failed to load worker configuration")
	}

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		PoolSize:     10,
		MinIdleConns: 2,
	}, &appLogger.ZL)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to Redis")
	}
	defer broker.Close()

	var primary, fallback email.Sender
	if cfg.SMTPHost != "" {
		primary = email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	if cfg.EmailJSServiceID != "" {
		fallback = email.NewEmailJSSender(
			cfg.EmailJSServiceID, cfg.EmailJSTemplateID, cfg.EmailJSUserID, cfg.EmailJSToken)
	}

	notifSvc := notification.NewService(primary, fallback, config.EmailConfig{
		FromEmail:         cfg.FromEmail,
		FromName:          cfg.FromName,
		NotificationEmail: cfg.NotificationEmail,
		RetryAttempts:     cfg.RetryAttempts,
		RetryBackoff:      cfg.RetryBackoff,
	}, appLogger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	messages, err := broker.Subscribe(ctx, notification.Channel)
	if err != nil {
		appLogger.Fatal(err, "failed to subscribe to notification channel")
	}

	startHealthServer(cfg.HealthPort, appLogger)
	appLogger.Info("worker started", "channel", notification.Channel)

	for {
		select {
		case <-ctx.Done():
			appLogger.Info("worker shutting down")
			return
		case payload, ok := <-messages:
			if !ok {
				appLogger.Info("subscription closed, worker exiting")
				return
			}
			handleMessage(ctx, notifSvc, payload, cfg.ProcessTimeout, appLogger)
		}
	}
}

func handleMessage(ctx context.Context, svc *notification.Service, payload []byte, timeout time.Duration, appLogger *logger.Logger) {
	var msg model.NotificationMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		appLogger.Error(err, "dropping malformed notification message")
		messagesProcessed.WithLabelValues("unknown", "malformed").Inc()
		return
	}

	start := time.Now()
	procCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := svc.Process(procCtx, &msg); err != nil {
		appLogger.Error(err, "notification delivery failed",
			"notification_id", msg.ID.String(),
			"type", string(msg.Type),
		)
		messagesProcessed.WithLabelValues(string(msg.Type), "failed").Inc()
	} else {
		messagesProcessed.WithLabelValues(string(msg.Type), "delivered").Inc()
	}
	processingDuration.Observe(time.Since(start).Seconds())
}

func startHealthServer(port string, appLogger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			appLogger.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
}
