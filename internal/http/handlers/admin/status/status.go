// Package status обработчики блокировки и разблокировки пользователя.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/chat-relay/internal/http/response"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/storage"
)

type Service interface {
	Activate(ctx context.Context, userID string) error
	Deactivate(ctx context.Context, userID string) error
}

type Handler struct {
	log     *slog.Logger
	service Service
	active  bool
}

// NewActivate обработчик POST /admin/users/{user_id}/activate.
func NewActivate(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, active: true}
}

// NewDeactivate обработчик POST /admin/users/{user_id}/deactivate.
func NewDeactivate(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service, active: false}
}

// ServeHTTP godoc
// @Summary Блокировка и разблокировка пользователя
// @Description Меняет флаг active. Срок доступа и дата регистрации не меняются.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param user_id path string true "ID пользователя"
// @Success 200 {object} response.Response "Флаг изменен"
// @Failure 401 {object} response.Response "Не авторизован"
// @Failure 404 {object} response.Response "Пользователь не найден"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /admin/users/{user_id}/activate [post]
// @Router /admin/users/{user_id}/deactivate [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.status"

	userID := chi.URLParam(r, "user_id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
		slog.Bool("active", h.active),
	)

	if userID == "" {
		response.WriteError(w, r, http.StatusBadRequest, "user id is required")
		return
	}

	var err error
	if h.active {
		err = h.service.Activate(r.Context(), userID)
	} else {
		err = h.service.Deactivate(r.Context(), userID)
	}
	if errors.Is(err, storage.ErrUserNotFound) {
		log.Warn("user not found")
		response.WriteError(w, r, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		log.Error("failed to change user status", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to change user status")
		return
	}

	log.Info("user status changed")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id": userID,
		"active":  h.active,
	}))
}
