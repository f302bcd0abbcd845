package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/chat-relay/internal/http/response"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
)

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	Delete(ctx context.Context, userID string) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP удаляет пользователя вместе с историей. Повторное удаление
// отвечает успехом.
//
// @Summary Удаление пользователя
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param user_id path string true "ID пользователя"
// @Success 200 {object} response.Response "Пользователь удален"
// @Failure 401 {object} response.Response "Не авторизован"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /admin/users/{user_id} [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.remove"

	userID := chi.URLParam(r, "user_id")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", userID),
	)

	if userID == "" {
		response.WriteError(w, r, http.StatusBadRequest, "user id is required")
		return
	}

	if err := h.service.Delete(r.Context(), userID); err != nil {
		log.Error("failed to delete user", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to delete user")
		return
	}

	log.Info("user deleted")
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id": userID,
	}))
}
