package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/iliyamo/avstage-backoffice/internal/config"
	"github.com/iliyamo/avstage-backoffice/internal/database"
	"github.com/iliyamo/avstage-backoffice/internal/handler"
	"github.com/iliyamo/avstage-backoffice/internal/logging"
	"github.com/iliyamo/avstage-backoffice/internal/notify"
	"github.com/iliyamo/avstage-backoffice/internal/queue"
	"github.com/iliyamo/avstage-backoffice/internal/ratelimit"
	"github.com/iliyamo/avstage-backoffice/internal/repository"
	"github.com/iliyamo/avstage-backoffice/internal/router"
	"github.com/iliyamo/avstage-backoffice/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(ctx, db, log); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	}

	clock := clockwork.NewRealClock()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Backend == "redis" && rdb != nil {
		limiter = ratelimit.NewRedisStore(rdb, cfg.RateLimit.Prefix, log)
	} else {
		if cfg.RateLimit.Backend == "redis" {
			log.Warn("redis unavailable, rate limiting per instance")
		}
		mem := ratelimit.NewMemoryStore(clock, cfg.RateLimit.SweepEvery)
		defer mem.Stop()
		limiter = mem
	}
	if !cfg.RateLimit.Enabled {
		limiter = nil
	}

	pub := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name)
	defer pub.Close()
	dispatcher := notify.NewDispatcher(pub, log, clock, notify.Options{
		AdminEmail: cfg.Mail.AdminEmail,
		Timeout:    cfg.Mail.SendTimeout,
	})
	defer dispatcher.Wait()

	bookingRepo := repository.NewBookingRepo(db)
	quoteRepo := repository.NewQuoteRepo(db)
	contactRepo := repository.NewContactRepo(db)
	subscriberRepo := repository.NewSubscriberRepo(db)

	window := cfg.RateLimit.SubmissionWindow
	gw := service.NewGateway(service.GatewayDeps{
		Limiter: limiter,
		Limits: service.Limits{
			Booking:    service.Rule{Limit: cfg.RateLimit.BookingLimit, Window: window},
			Contact:    service.Rule{Limit: cfg.RateLimit.ContactLimit, Window: window},
			Newsletter: service.Rule{Limit: cfg.RateLimit.NewsletterLimit, Window: window},
		},
		Bookings:    bookingRepo,
		Messages:    contactRepo,
		Subscribers: subscriberRepo,
		Notifier:    dispatcher,
		Clock:       clock,
		Log:         log,
	})
	bookings := service.NewBookingService(bookingRepo, dispatcher, clock, log)
	quotes := service.NewQuoteService(quoteRepo, clock, log)
	inbox := service.NewInboxService(contactRepo, subscriberRepo, clock, log)

	e := router.New(router.Deps{
		Public:       handler.NewPublicHandler(gw, quotes, log),
		Bookings:     handler.NewBookingHandler(bookings, log),
		Quotes:       handler.NewQuoteHandler(quotes, log),
		Inbox:        handler.NewInboxHandler(inbox, log),
		DB:           db,
		Limiter:      limiter,
		GlobalLimit:  cfg.RateLimit.GlobalLimit,
		GlobalWindow: cfg.RateLimit.GlobalWindow,
		Redis:        rdb,
		Cache:        cfg.Cache,
		JWT:          cfg.JWT,
		Log:          log,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env))
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

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", slog.Any("error", err))
	}
	return nil
}
