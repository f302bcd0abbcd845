// Package logger создаёт корневой slog.Logger в зависимости от окружения.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Окружения, определяющие формат логов.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Setup возвращает логгер для окружения env с выводом в stdout.
func Setup(env string) *slog.Logger {
	return New(env, os.Stdout)
}

// New возвращает логгер для окружения env с выводом в w.
// local пишет текст с уровнем Debug, dev пишет JSON с Debug,
// всё остальное пишет JSON с уровнем Info.
func New(env string, w io.Writer) *slog.Logger {
	switch env {
	case EnvLocal:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvDev:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
}
