package middlewarectx

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/magabrotheeeer/chat-relay/internal/http/response"
)

// TelegramSecretHeader заголовок, в котором Telegram передает секрет вебхука.
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookSecretMiddleware сверяет секрет вебхука. Пустой secret отключает проверку.
func WebhookSecretMiddleware(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(TelegramSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.Warn("webhook secret mismatch", slog.String("remote_addr", r.RemoteAddr))
				response.WriteError(w, r, http.StatusUnauthorized, "invalid webhook secret")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
