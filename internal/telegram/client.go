// Package telegram клиент Bot API для отправки сообщений и формат входящих
// событий вебхука.
//
// Доставка выполняется не более одного раза и без повторов: ошибка отправки
// записывается в лог и не возвращается вызывающему.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/chat-relay/internal/config"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/metrics"
)

const (
	methodSendMessage    = "sendMessage"
	methodSendChatAction = "sendChatAction"

	actionTyping = "typing"
)

// Client отправляет вызовы Bot API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewClient создает клиента по настройкам telegram.
func NewClient(cfg config.Telegram, m *metrics.Metrics, log *slog.Logger) *Client {
	timeout := cfg.TimeoutSending
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.BotToken,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    m,
		log:        log,
	}
}

// Send отправляет текст в чат. Одна попытка, ошибка только логируется.
func (c *Client) Send(ctx context.Context, chatID int64, text string) {
	const op = "telegram.Send"

	if err := c.SendMessage(ctx, chatID, text); err != nil {
		c.log.Error("failed to deliver message",
			slog.String("op", op),
			slog.Int64("chat_id", chatID),
			sl.Err(err))
	}
}

// SendMessage отправляет текст в чат и возвращает ошибку доставки.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	return c.call(ctx, methodSendMessage, sendMessageRequest{ChatID: chatID, Text: text})
}

// SendTyping показывает в чате индикатор набора текста. Ошибка только логируется.
func (c *Client) SendTyping(ctx context.Context, chatID int64) {
	const op = "telegram.SendTyping"

	if err := c.call(ctx, methodSendChatAction, sendChatActionRequest{ChatID: chatID, Action: actionTyping}); err != nil {
		c.log.Warn("failed to send typing action",
			slog.String("op", op),
			slog.Int64("chat_id", chatID),
			sl.Err(err))
	}
}

func (c *Client) call(ctx context.Context, method string, payload any) error {
	op := "telegram." + method

	err := c.do(ctx, method, payload)
	if err != nil {
		c.metrics.DeliveryResult(method, "error")
		return fmt.Errorf("%s: %w", op, err)
	}
	c.metrics.DeliveryResult(method, "ok")
	return nil
}

func (c *Client) do(ctx context.Context, method string, payload any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// текст ошибки net/http содержит URL вместе с токеном бота
		return fmt.Errorf("request failed: %s", redact(err.Error(), c.token))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var decoded apiResponse
	_ = json.Unmarshal(body, &decoded)

	if resp.StatusCode != http.StatusOK || !decoded.OK {
		return fmt.Errorf("unexpected response %s: %s", resp.Status, decoded.Description)
	}
	return nil
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	return strings.ReplaceAll(s, token, "<token>")
}
