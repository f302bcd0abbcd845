package chatrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/chat-relay/internal/cache"
	"github.com/magabrotheeeer/chat-relay/internal/completion"
	"github.com/magabrotheeeer/chat-relay/internal/config"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/health"
	"github.com/magabrotheeeer/chat-relay/internal/lib/clock"
	"github.com/magabrotheeeer/chat-relay/internal/lib/jwt"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/metrics"
	"github.com/magabrotheeeer/chat-relay/internal/migrations"
	"github.com/magabrotheeeer/chat-relay/internal/services/admin"
	"github.com/magabrotheeeer/chat-relay/internal/services/relay"
	"github.com/magabrotheeeer/chat-relay/internal/services/transcript"
	"github.com/magabrotheeeer/chat-relay/internal/services/users"
	"github.com/magabrotheeeer/chat-relay/internal/storage"
	"github.com/magabrotheeeer/chat-relay/internal/telegram"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
}

// New подключает хранилище, применяет миграции и собирает HTTP-сервер.
// Redis необязателен: без адреса повторные события не отсекаются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "chatrelay.New"

	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := metrics.New()
	clk := clock.Real()
	checks := map[string]health.Pinger{"postgres": db}

	var dedup relay.Deduplicator
	var cacheRedis *cache.Cache
	if cfg.AddressRedis != "" {
		cacheRedis, err = cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		dedup = cacheRedis
		checks["redis"] = cacheRedis
	} else {
		logger.Warn("redis address is empty, update deduplication disabled")
	}

	usersService := users.NewService(db, clk, cfg.TrialDays, logger)
	transcriptService := transcript.NewService(db, clk, logger)
	completionClient := completion.NewClient(cfg.Completion, cfg.FallbackReply, m, logger)
	telegramClient := telegram.NewClient(cfg.Telegram, m, logger)
	relayService := relay.NewService(usersService, transcriptService, completionClient, telegramClient, dedup, cfg.Relay, m, logger)

	maker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)
	adminService := admin.NewService(usersService, db, maker, admin.Credentials{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.PasswordHash,
	}, logger)
	if cfg.PasswordHash == "" || cfg.JWTSecretKey == "" {
		logger.Warn("admin credentials are not configured, admin API login disabled")
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Routes{
		Relay:         relayService,
		Admin:         adminService,
		Tokens:        maker,
		Checks:        checks,
		Metrics:       m.Handler(),
		WebhookSecret: cfg.WebhookSecret,
		RPS:           cfg.RPS,
		Burst:         cfg.Burst,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run обслуживает запросы до отмены ctx, затем останавливает сервер,
// дожидаясь текущих обработчиков.
func (a *App) Run(ctx context.Context) error {
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

	a.close()
	return err
}

func (a *App) close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close redis", sl.Err(err))
		}
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
