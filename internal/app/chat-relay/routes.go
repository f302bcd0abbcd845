// Package chatrelay собирает HTTP-сервис ретранслятора: вебхук Telegram,
// административный API и служебные эндпоинты.
package chatrelay

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	// описание API для /docs
	_ "github.com/magabrotheeeer/chat-relay/docs"

	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/admin/list"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/admin/login"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/admin/remove"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/admin/renew"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/admin/reset"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/admin/status"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/health"
	"github.com/magabrotheeeer/chat-relay/internal/http/handlers/webhook"
	"github.com/magabrotheeeer/chat-relay/internal/http/middlewarectx"
	"github.com/magabrotheeeer/chat-relay/internal/services/admin"
)

// AdminService операции административного API.
type AdminService interface {
	Login(ctx context.Context, username, password string) (string, error)
	ListAll(ctx context.Context) ([]admin.UserView, error)
	Activate(ctx context.Context, userID string) error
	Deactivate(ctx context.Context, userID string) error
	Renew(ctx context.Context, userID string, days int) error
	Delete(ctx context.Context, userID string) error
	ResetAll(ctx context.Context) error
}

// Routes зависимости маршрутов.
type Routes struct {
	Relay         webhook.Service
	Admin         AdminService
	Tokens        middlewarectx.TokenParser
	Checks        map[string]health.Pinger
	Metrics       http.Handler
	WebhookSecret string
	RPS           float64
	Burst         int
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Routes) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/", health.New(logger, deps.Checks).ServeHTTP)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(deps.RPS, deps.Burst, logger))
		r.Use(middlewarectx.WebhookSecretMiddleware(deps.WebhookSecret, logger))
		r.Post("/webhook/telegram", webhook.New(logger, deps.Relay).ServeHTTP)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", login.New(logger, deps.Admin).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.Tokens, logger))
			r.Get("/users", list.New(logger, deps.Admin).ServeHTTP)
			r.Post("/users/{user_id}/activate", status.NewActivate(logger, deps.Admin).ServeHTTP)
			r.Post("/users/{user_id}/deactivate", status.NewDeactivate(logger, deps.Admin).ServeHTTP)
			r.Post("/users/{user_id}/renew", renew.New(logger, deps.Admin).ServeHTTP)
			r.Delete("/users/{user_id}", remove.New(logger, deps.Admin).ServeHTTP)
			r.Post("/reset", reset.New(logger, deps.Admin).ServeHTTP)
		})
	})

	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
