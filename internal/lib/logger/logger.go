// Package logger собирает *slog.Logger в зависимости от окружения.
package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// New возвращает логгер для окружения env, пишущий в w.
// Для local вывод цветной через tint, для dev JSON с уровнем debug, для prod JSON с уровнем info.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.DateTime,
			NoColor:    !isTerminal(w),
		}))
	case envDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

// Discard возвращает логгер, который ничего не пишет. Используется в тестах.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
