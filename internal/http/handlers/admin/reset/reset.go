package reset

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/chat-relay/internal/http/middlewarectx"
	"github.com/magabrotheeeer/chat-relay/internal/http/response"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
)

// ConfirmParam подтверждение полной очистки, query ?confirm=yes.
const ConfirmParam = "confirm"

type Handler struct {
	log     *slog.Logger
	service Service
}

type Service interface {
	ResetAll(ctx context.Context) error
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Полная очистка
// @Description Удаляет всех пользователей и всю историю переписки.
// @Tags Admin
// @Produce  json
// @Security BearerAuth
// @Param confirm query string true "Подтверждение, значение yes"
// @Success 200 {object} response.Response "Данные удалены"
// @Failure 400 {object} response.Response "Нет подтверждения"
// @Failure 401 {object} response.Response "Не авторизован"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /admin/reset [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.reset"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("operator", r.Context().Value(middlewarectx.User)),
	)

	if r.URL.Query().Get(ConfirmParam) != "yes" {
		response.WriteError(w, r, http.StatusBadRequest, "reset requires confirm=yes")
		return
	}

	if err := h.service.ResetAll(r.Context()); err != nil {
		log.Error("failed to reset store", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to reset store")
		return
	}

	log.Warn("store reset")
	render.JSON(w, r, response.OK())
}
