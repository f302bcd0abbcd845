// Package main HTTP-сервис ретранслятора Telegram ↔ языковая модель.
//
// @title           Chat Relay API
// @version         1.0
// @description     Вебхук Telegram и административный API ретранслятора сообщений в языковую модель

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	chatrelay "github.com/magabrotheeeer/chat-relay/internal/app/chat-relay"
	"github.com/magabrotheeeer/chat-relay/internal/config"
	"github.com/magabrotheeeer/chat-relay/internal/lib/logger"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
)

func main() {
	cfg := config.MustLoad()
	log := logger.Setup(cfg.Env)

	log.Info("starting chat-relay", slog.String("env", cfg.Env))
	log.Debug("config loaded", slog.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := chatrelay.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize app", sl.Err(err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("app stopped with error", sl.Err(err))
		os.Exit(1)
	}

	log.Info("chat-relay stopped gracefully")
}
