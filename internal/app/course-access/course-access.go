package courseaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/course-access/internal/cache"
	"github.com/magabrotheeeer/course-access/internal/config"
	"github.com/magabrotheeeer/course-access/internal/http/handlers/health"
	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/course-access/internal/lib/jwt"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/migrations"
	"github.com/magabrotheeeer/course-access/internal/notify"
	"github.com/magabrotheeeer/course-access/internal/rabbitmq"
	"github.com/magabrotheeeer/course-access/internal/services/access"
	"github.com/magabrotheeeer/course-access/internal/services/content"
	"github.com/magabrotheeeer/course-access/internal/services/course"
	"github.com/magabrotheeeer/course-access/internal/services/enrollment"
	"github.com/magabrotheeeer/course-access/internal/services/entitlement"
	"github.com/magabrotheeeer/course-access/internal/services/subscription"
	"github.com/magabrotheeeer/course-access/internal/services/user"
	"github.com/magabrotheeeer/course-access/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App HTTP-приложение со всеми зависимостями.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	cache    *cache.Cache
	notifier *notify.AsyncNotifier
	conn     *amqp.Connection
	ch       *amqp.Channel
}

// New подключает хранилище, кэш и брокер, применяет миграции и собирает маршруты.
// Если адрес RabbitMQ не задан, уведомления отключаются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "courseaccess.New"

	if cfg.JWTSecretKey == "" || cfg.Webhook.Secret == "" {
		return nil, fmt.Errorf("%s: jwt secret and webhook secret are required", op)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.DB.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}

	var notifier notify.Notifier = notify.Nop{}
	if cfg.RabbitMQURL != "" {
		app.conn, err = rabbitmq.Connect(cfg.RabbitMQURL, cfg.RabbitMQMaxRetries, cfg.RabbitMQRetryDelay)
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.ch, err = rabbitmq.SetupChannel(app.conn, cfg.Exchange, rabbitmq.GetNotificationQueues())
		if err != nil {
			app.close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		app.notifier = notify.NewAsync(rabbitmq.NewPublisher(app.ch, cfg.Exchange), logger, cfg.BufferSize)
		notifier = app.notifier
	} else {
		logger.Warn("rabbitmq url is empty, notifications are disabled")
	}

	entitlements := entitlement.New(db, cacheRedis, logger, cfg.SnapshotCacheTTL, cfg.MaxUpdateRetries)
	courses := course.New(db, cacheRedis, logger, cfg.SnapshotCacheTTL)
	enrollments := enrollment.New(db, courses, entitlements, notifier, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Entitlements:  entitlements,
		Courses:       courses,
		Content:       content.New(db, courses, logger),
		Enrollments:   enrollments,
		Users:         user.New(entitlements, db, logger),
		Processor:     subscription.NewProcessor(entitlements, courses, enrollments, notifier, logger, cfg.ProcessTimeout),
		Access:        access.NewEngine(courses, cfg.LookupTimeout),
		Tokens:        jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL),
		Limiter:       middlewarectx.NewIPRateLimiter(cfg.RPS, cfg.Burst),
		WebhookSecret: cfg.Webhook.Secret,
		Checkers: map[string]health.Checker{
			"postgres": health.CheckerFunc(db.DB.PingContext),
			"redis":    cacheRedis,
		},
		RequestTimeout: cfg.TimeoutHTTP,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Run обслуживает HTTP до отмены ctx, затем мягко останавливает сервер.
// Публикация уведомлений продолжается, пока сервер дорабатывает запросы.
func (a *App) Run(ctx context.Context) error {
	notifyCtx, stopNotifier := context.WithCancel(context.WithoutCancel(ctx))
	if a.notifier != nil {
		a.notifier.Start(notifyCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}

	stopNotifier()
	if a.notifier != nil {
		a.notifier.Wait()
	}
	a.close()
	return err
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	if err := a.db.DB.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
