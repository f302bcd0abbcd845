// Package notifier собирает процесс, доставляющий напоминания из очереди в Telegram.
package notifier

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/chat-relay/internal/config"
	"github.com/magabrotheeeer/chat-relay/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/metrics"
	notifierservice "github.com/magabrotheeeer/chat-relay/internal/services/notifier"
	"github.com/magabrotheeeer/chat-relay/internal/telegram"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *notifierservice.SenderService
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	telegramClient := telegram.NewClient(cfg.Telegram, metrics.New(), logger)
	senderService := notifierservice.NewSenderService(telegramClient, cfg.ReminderText, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderService,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	done, err := rabbitmq.ConsumerMessage(ctx, a.ch, rabbitmq.TrialReminderQueue, a.senderService.SendTrialReminder, a.logger)
	if err != nil {
		a.logger.Error("failed to start trial reminder consumer", sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("notifier shutting down gracefully")
	<-done

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
