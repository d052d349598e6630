package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/config"
	"github.com/iliyamo/facility-reservation/internal/database"
	"github.com/iliyamo/facility-reservation/internal/handler"
	"github.com/iliyamo/facility-reservation/internal/integration/calendar"
	"github.com/iliyamo/facility-reservation/internal/integration/notification"
	"github.com/iliyamo/facility-reservation/internal/integration/payment"
	"github.com/iliyamo/facility-reservation/internal/middleware"
	"github.com/iliyamo/facility-reservation/internal/model"
	"github.com/iliyamo/facility-reservation/internal/obs"
	"github.com/iliyamo/facility-reservation/internal/queue"
	"github.com/iliyamo/facility-reservation/internal/repository"
	"github.com/iliyamo/facility-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	ctrl, err := newController(ctx, cfg, store, logger)
	if err != nil {
		return err
	}

	if cfg.Events.ConsumerEnabled {
		consumer := &queue.Consumer{URL: cfg.Events.URL, Queue: cfg.Events.Queue, LogDir: cfg.Events.LogDir, Log: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", slog.Any("error", err))
			}
		}()
	}

	limiter, closeLimiter := newRateLimiter(logger)
	defer closeLimiter()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(requestLogger(logger))
	router.RegisterRoutes(e,
		handler.NewReservationHandler(ctrl, logger),
		middleware.Identity(cfg.AuthMode, cfg.JWTSecret),
		limiter,
	)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			slog.String("addr", addr),
			slog.String("env", cfg.Env),
			slog.String("storage", cfg.StorageDriver),
			slog.String("auth", cfg.AuthMode))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStore returns the reservation store for STORAGE_DRIVER. For mysql it
// also returns the pool so the caller can close it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (booking.Store, *sql.DB, error) {
	if cfg.StorageDriver == "memory" {
		logger.Warn("using in-memory storage; reservations are lost on restart")
		return repository.NewMemoryReservationRepo(), nil, nil
	}
	db, err := database.Open(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return repository.NewReservationRepo(db), db, nil
}

func newController(ctx context.Context, cfg config.Config, store booking.Store, logger *slog.Logger) (*booking.Controller, error) {
	rate, err := model.NewMoney(cfg.Pricing.RateCents, cfg.Pricing.Currency)
	if err != nil {
		return nil, fmt.Errorf("PRICE_CURRENCY: %w", err)
	}
	policy, err := booking.ParseRoundingPolicy(cfg.Pricing.Rounding)
	if err != nil {
		return nil, err
	}

	var payments booking.PaymentGateway
	switch cfg.PaymentProvider {
	case "stripe":
		payments = payment.NewStripeGateway(payment.StripeConfig(cfg.Stripe), logger)
	case "none":
		payments = payment.Disabled{}
	default:
		payments = payment.NewHTTPClient(cfg.PaymentBaseURL, cfg.DownstreamTimeout, logger)
	}

	var cal booking.CalendarGateway
	switch cfg.CalendarProvider {
	case "google":
		g, err := calendar.NewGoogleCalendar(ctx, calendar.GoogleConfig(cfg.Google), logger)
		if err != nil {
			return nil, fmt.Errorf("google calendar: %w", err)
		}
		cal = g
	case "none":
		cal = calendar.Disabled{}
	default:
		cal = calendar.NewHTTPClient(cfg.CalendarBaseURL, cfg.DownstreamTimeout, logger)
	}

	var notifier booking.Notifier
	switch cfg.NotificationProvider {
	case "smtp":
		m, err := notification.NewSMTPMailer(notification.SMTPConfig(cfg.SMTP), logger)
		if err != nil {
			return nil, fmt.Errorf("smtp mailer: %w", err)
		}
		notifier = m
	case "none":
		notifier = notification.Disabled{}
	default:
		notifier = notification.NewHTTPClient(cfg.NotificationURL, cfg.DownstreamTimeout, logger)
	}

	opts := []booking.Option{
		booking.WithLogger(logger),
		booking.WithDownstreamTimeout(cfg.DownstreamTimeout),
		booking.WithRecipients(booking.RecipientTemplate(cfg.RecipientTemplate)),
	}
	if cfg.Events.PublishEnabled {
		opts = append(opts, booking.WithPublisher(queue.NewPublisher(cfg.Events.URL, cfg.Events.Queue, logger)))
	}
	return booking.NewController(store, booking.NewHourlyRate(rate, policy), payments, cal, notifier, opts...), nil
}

// newRateLimiter connects to Redis only when rate limiting is enabled. An
// unreachable Redis leaves the limiter as a pass-through.
func newRateLimiter(logger *slog.Logger) (echo.MiddlewareFunc, func()) {
	rlCfg := config.LoadRateLimitConfig()
	if !rlCfg.Enabled {
		return middleware.NewTokenBucket(rlCfg, nil, logger), func() {}
	}
	rdb := config.NewRedisClient(logger)
	if rdb == nil {
		return middleware.NewTokenBucket(rlCfg, nil, logger), func() {}
	}
	return middleware.NewTokenBucket(rlCfg, rdb, logger), func() { _ = rdb.Close() }
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if uid, ok := middleware.UserID(c); ok {
				attrs = append(attrs, slog.Int64("user_id", uid))
			}
			level := slog.LevelInfo
			if v.Error != nil {
				level = slog.LevelError
				attrs = append(attrs, slog.Any("error", v.Error))
			}
			logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	})
}
