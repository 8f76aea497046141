// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/cache"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/config"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/database"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/handler"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/notify"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/obs"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/repository"
	"github.com/anonymous-error404/FarmHouse-Website-Backend/internal/service"
	"github.com/sirupsen/logrus"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := newLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Tracing ───────────────────────────────────────────────────────
	if cfg.Otel.Enabled {
		shutdown, err := obs.InitTracer(ctx, cfg.Otel)
		if err != nil {
			log.Fatalf("tracing: %v", err)
		}
		defer func() { _ = shutdown(context.Background()) }()
		log.WithField("endpoint", cfg.Otel.Endpoint).Info("✓ Tracing enabled")
	}

	// ── 2. Booking store ─────────────────────────────────────────────────
	var store service.BookingStore
	switch cfg.Store {
	case "memory":
		store = repository.NewMemoryStore()
		log.Warn("using in-memory store; bookings are lost on restart")
	default:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatalf("database: %v", err)
		}
		store = repository.NewBookingRepository(pool)
		log.Info("✓ Connected to PostgreSQL")
	}

	// ── 3. Collaborators ─────────────────────────────────────────────────
	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.SMTP.Host != "" {
		notifiers = append(notifiers, notify.NewMailer(cfg.SMTP))
		log.WithField("host", cfg.SMTP.Host).Info("✓ Guest email enabled")
	}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		notifiers = append(notifiers, tg)
		log.Info("✓ Telegram admin notifications enabled")
	}
	if cfg.Rabbit.URL != "" {
		pub, err := notify.NewPublisher(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			log.Fatalf("rabbitmq: %v", err)
		}
		defer pub.Close()
		notifiers = append(notifiers, pub)
		log.WithField("exchange", cfg.Rabbit.Exchange).Info("✓ Publishing booking events")
	}

	opts := []service.Option{service.WithLocation(loc)}
	if cfg.Redis.URL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		opts = append(opts, service.WithCalendarCache(cache.NewCalendarCache(rdb, cfg.Redis.TTL)))
		log.WithField("addr", cfg.Redis.URL).Info("✓ Calendar cache enabled")
	}

	// ── 4. Wire up layers ────────────────────────────────────────────────
	bookingSvc := service.NewBookingService(store, notifiers, log, opts...)
	bookingHandler := handler.NewBookingHandler(bookingSvc, log)

	// ── 5. Start server with graceful shutdown ───────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler.NewRouter(bookingHandler, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Run in background goroutine so we can listen for shutdown signal.
	go func() {
		log.Infof("✓ Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Block until SIGINT or SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("graceful shutdown failed: %v", err)
		return
	}
	log.Info("server stopped")
}

func newLogger(cfg config.App) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}
