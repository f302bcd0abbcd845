// Package renew обработчик продления доступа пользователя.
package renew

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/chat-relay/internal/http/response"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/services/admin"
	"github.com/magabrotheeeer/chat-relay/internal/storage"
)

// Request новый срок доступа в днях.
type Request struct {
	Days int `json:"days" validate:"required,min=1,max=365"`
}

type Service interface {
	Renew(ctx context.Context, userID string, days int) error
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP обрабатывает POST /admin/users/{user_id}/renew. Отсчет срока
// начинается заново с момента продления, блокировка снимается.
//
// @Summary Продление доступа
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param user_id path string true "ID пользователя"
// @Param request body Request true "Новый срок в днях, от 1 до 365"
// @Success 200 {object} response.Response "Доступ продлен"
// @Failure 400 {object} response.Response "Некорректный JSON"
// @Failure 401 {object} response.Response "Не авторизован"
// @Failure 404 {object} response.Response "Пользователь не найден"
// @Failure 422 {object} response.Response "Ошибка валидации"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /admin/users/{user_id}/renew [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.renew"

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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	err := h.service.Renew(r.Context(), userID, req.Days)
	switch {
	case errors.Is(err, storage.ErrUserNotFound):
		log.Warn("user not found")
		response.WriteError(w, r, http.StatusNotFound, "user not found")
		return
	case errors.Is(err, admin.ErrInvalidDays):
		response.WriteError(w, r, http.StatusUnprocessableEntity, "days out of range")
		return
	case err != nil:
		log.Error("failed to renew user", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "failed to renew user")
		return
	}

	log.Info("user renewed", slog.Int("days", req.Days))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id": userID,
		"days":    req.Days,
	}))
}
