package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/course-access/internal/app/scheduler"
	"github.com/magabrotheeeer/course-access/internal/config"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env, os.Stdout)
	log.Info("starting scheduler", slog.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := scheduler.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize scheduler", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Error("scheduler stopped with error", sl.Err(err))
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}
