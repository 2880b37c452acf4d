// Package scheduler собирает фоновое приложение напоминаний об окончании подписки.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/course-access/internal/config"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/notify"
	"github.com/magabrotheeeer/course-access/internal/rabbitmq"
	schedulerservice "github.com/magabrotheeeer/course-access/internal/services/scheduler"
	"github.com/magabrotheeeer/course-access/internal/storage/repository"
)

const (
	dbReadyAttempts = 10
	dbReadyDelay    = 3 * time.Second
)

// App представляет приложение планировщика.
type App struct {
	schedulerService *schedulerservice.Service
	notifier         *notify.AsyncNotifier
	db               *repository.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	logger           *slog.Logger
}

func waitForDB(ctx context.Context, db *repository.Storage) error {
	var err error
	for range dbReadyAttempts {
		if err = repository.CheckDatabaseReady(ctx, db); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dbReadyDelay):
		}
	}
	return fmt.Errorf("database not ready after retries: %w", err)
}

// New создает новый экземпляр приложения планировщика.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("scheduler.New: rabbitmq url is required")
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to connect RabbitMQ: %w", err)
	}

	ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.GetNotificationQueues())
	if err != nil {
		closeResources(nil, conn, logger)
		return nil, fmt.Errorf("failed to setup RabbitMQ channel: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		closeResources(ch, conn, logger)
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}

	if err := waitForDB(ctx, db); err != nil {
		_ = db.DB.Close()
		closeResources(ch, conn, logger)
		return nil, err
	}

	notifier := notify.NewAsync(rabbitmq.NewPublisher(ch, cfg.Exchange), logger, cfg.BufferSize)

	return &App{
		schedulerService: schedulerservice.New(db, notifier, logger, cfg.ExpiryReminderInterval),
		notifier:         notifier,
		db:               db,
		conn:             conn,
		ch:               ch,
		logger:           logger,
	}, nil
}

func closeResources(ch *amqp.Channel, conn *amqp.Connection, logger *slog.Logger) {
	if ch != nil {
		if err := ch.Close(); err != nil {
			logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close connection", sl.Err(err))
		}
	}
}

// Run запускает планировщик и блокируется до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.notifier.Start(ctx)
	a.schedulerService.Run(ctx)
	a.notifier.Wait()

	a.logger.Info("shutting down scheduler service")

	closeResources(a.ch, a.conn, a.logger)
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
	return nil
}
