// Package main Course Access API
//
// @title           Course Access API
// @version         1.0
// @description     API доступа к курсам: записи, подписки и вебхук биллинга
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	courseaccess "github.com/magabrotheeeer/course-access/internal/app/course-access"
	"github.com/magabrotheeeer/course-access/internal/config"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env, os.Stdout)

	log.Info("starting course-access", slog.String("env", cfg.Env))
	log.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := courseaccess.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("course-access stopped gracefully")
}
