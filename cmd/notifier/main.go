// Command notifier drains the notification queue and delivers each message
// by e-mail.  Messages that cannot be rendered or sent are dead-lettered.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/iliyamo/avstage-backoffice/internal/config"
	"github.com/iliyamo/avstage-backoffice/internal/logging"
	"github.com/iliyamo/avstage-backoffice/internal/notify"
	"github.com/iliyamo/avstage-backoffice/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadNotifier()
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logging.New(cfg.Log)

	mailer, err := notify.NewSMTPMailer(cfg.Mail)
	if err != nil {
		log.Error("mailer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := notify.NewMailHandler(mailer, log, cfg.Mail.Timeout)
	consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.Name, cfg.Queue.Prefetch, handler, log)

	log.Info("notifier started", slog.String("queue", cfg.Queue.Name), slog.String("dlq", queue.DeadLetterQueue(cfg.Queue.Name)))
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("consumer stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("notifier stopped")
}
