// Package webhook принимает события Telegram и передает их в конвейер ретрансляции.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/chat-relay/internal/http/response"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/services/relay"
	"github.com/magabrotheeeer/chat-relay/internal/telegram"
)

const maxBodyBytes = 1 << 20

// Service обработка одного события.
type Service interface {
	Process(ctx context.Context, update *telegram.Update) (relay.Outcome, error)
}

// Handler обработчик POST /webhook/telegram.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает обработчик вебхука.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP отвечает 400 на неразбираемое или неполное событие, 500 на
// внутренний сбой и 200 с итогом обработки в остальных случаях. Детали
// ошибок клиенту не раскрываются.
//
// @Summary Событие Telegram
// @Description Принимает update от Telegram Bot API и запускает конвейер ретрансляции.
// @Tags Webhook
// @Accept  json
// @Produce  json
// @Param X-Telegram-Bot-Api-Secret-Token header string false "Секрет вебхука"
// @Param update body telegram.Update true "Событие Telegram"
// @Success 200 {object} response.Response "Итог обработки: replied, denied, ignored или duplicate"
// @Failure 400 {object} response.Response "Некорректное событие"
// @Failure 401 {object} response.Response "Неверный секрет вебхука"
// @Failure 429 {object} response.Response "Превышен лимит запросов"
// @Failure 500 {object} response.Response "Внутренняя ошибка сервера"
// @Router /webhook/telegram [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var update telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&update); err != nil {
		log.Warn("failed to decode update", sl.Err(err))
		response.WriteError(w, r, http.StatusBadRequest, "could not process update")
		return
	}

	// обработка доводится до конца даже при обрыве соединения с Telegram
	outcome, err := h.service.Process(context.WithoutCancel(r.Context()), &update)
	if errors.Is(err, relay.ErrMalformedUpdate) {
		log.Warn("malformed update", slog.Int64("update_id", update.UpdateID))
		response.WriteError(w, r, http.StatusBadRequest, "could not process update")
		return
	}
	if err != nil {
		log.Error("could not process update", sl.Err(err))
		response.WriteError(w, r, http.StatusInternalServerError, "could not process update")
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"outcome": outcome,
	}))
}
