package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/MjBots-creater/save-restricted-bot/config"
	"github.com/MjBots-creater/save-restricted-bot/internal/application"
	"github.com/MjBots-creater/save-restricted-bot/internal/infrastructure/telegram"
	"github.com/MjBots-creater/save-restricted-bot/pkg/broadcast"
	"github.com/MjBots-creater/save-restricted-bot/pkg/helpers"
)

// retryDelay spaces a rate-limited job from its redelivery.
const retryDelay = 3 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-broadcast-worker", cfg.Env)

	if !cfg.BroadcastQueueEnabled {
		logger.Info("BROADCAST_QUEUE_ENABLED=false; broadcast worker disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQBroadcastQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}
	if cfg.TelegramToken == "" {
		logger.Fatal("TELEGRAM_TOKEN is required")
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.WithError(err).Fatal("amqp dial")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.WithError(err).Fatal("amqp channel")
	}
	defer func() { _ = ch.Close() }()

	// Small prefetch keeps delivery paced under Telegram's limits
	if err := ch.Qos(4, 0, false); err != nil {
		logger.WithError(err).Fatal("qos")
	}
	if err := helpers.DeclareQueue(ch, cfg.RabbitMQBroadcastQueue); err != nil {
		logger.WithError(err).Fatal("queue declare")
	}
	msgs, err := ch.Consume(cfg.RabbitMQBroadcastQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.WithError(err).Fatal("consume")
	}

	pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQBroadcastQueue)
	if err != nil {
		logger.WithError(err).Fatal("amqp publisher")
	}
	defer pub.Close()

	tg, err := telegram.New(cfg.TelegramToken, cfg.TransportTimeout, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to authorize with telegram")
	}
	svc := application.NewBroadcastService(nil, tg, nil, cfg.TransportTimeout, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			handle(ctx, svc, pub, msg, logger)
		}
	}()

	logger.WithField("queue", cfg.RabbitMQBroadcastQueue).Info("broadcast worker listening")
	<-ctx.Done()
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
	}
}

// handle delivers one job. Every message is acked: a job that should be
// retried is republished with its attempt counter bumped, everything else
// is dropped after logging.
func handle(ctx context.Context, svc *application.BroadcastService, pub *helpers.RabbitPublisher, msg amqp.Delivery, logger *logrus.Logger) {
	var job broadcast.Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		helpers.LogWarn(logger, "bad broadcast message", err, nil)
		_ = msg.Nack(false, false)
		return
	}
	fields := logrus.Fields{"job_id": job.ID, "batch": job.Batch, "chat_id": job.ChatID, "attempt": job.Attempt}

	retry, err := svc.DeliverJob(ctx, job)
	switch {
	case err == nil:
	case retry:
		job.Attempt++
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
		}
		if perr := pub.PublishJSON(context.WithoutCancel(ctx), job.ID, job); perr != nil {
			helpers.LogError(logger, "broadcast requeue failed", perr, fields)
		} else {
			helpers.LogWarn(logger, "broadcast rate limited; requeued", err, fields)
		}
	default:
		helpers.LogWarn(logger, "broadcast delivery dropped", err, fields)
	}
	_ = msg.Ack(false)
}
