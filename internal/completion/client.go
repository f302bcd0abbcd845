// Package completion клиент OpenAI-совместимого эндпоинта chat completions
// (OpenRouter). Любая ошибка провайдера превращается в фиксированный
// ответ-заглушку, поэтому вызывающий всегда получает текст.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/magabrotheeeer/chat-relay/internal/config"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/metrics"
	"github.com/magabrotheeeer/chat-relay/internal/models"
)

var (
	errEmptyChoices = errors.New("response has no choices")
	errEmptyContent = errors.New("response has empty content")
)

// Client выполняет один синхронный запрос к модели на каждый вызов Generate.
type Client struct {
	apiURL      string
	apiKey      string
	model       string
	temperature *float64
	referer     string
	title       string
	timeout     time.Duration
	fallback    string

	httpClient *http.Client
	metrics    *metrics.Metrics
	log        *slog.Logger
}

// NewClient создает клиента по настройкам completion. Пустой fallback
// заменяется на config.DefaultFallbackReply.
func NewClient(cfg config.Completion, fallback string, m *metrics.Metrics, log *slog.Logger) *Client {
	if fallback == "" {
		fallback = config.DefaultFallbackReply
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		referer:     cfg.Referer,
		title:       cfg.Title,
		timeout:     timeout,
		fallback:    fallback,
		httpClient:  &http.Client{},
		metrics:     m,
		log:         log,
	}
}

// Generate отправляет системную инструкцию и историю модели и возвращает
// ее ответ. Записи истории с ролью system отбрасываются. При любой ошибке
// (сеть, таймаут, код не 2xx, некорректный JSON, пустой ответ) возвращается
// текст-заглушка.
func (c *Client) Generate(ctx context.Context, systemInstruction string, history []models.ChatMessage) string {
	const op = "completion.Generate"
	log := c.log.With(slog.String("op", op))

	started := time.Now()
	reply, err := c.complete(ctx, systemInstruction, history)
	took := time.Since(started)
	if err != nil {
		log.Error("completion failed, using fallback", sl.Err(err), slog.Duration("took", took))
		c.metrics.CompletionResult("fallback", took)
		return c.fallback
	}

	c.metrics.CompletionResult("ok", took)
	log.Debug("completion received", slog.Duration("took", took), slog.Int("length", len(reply)))
	return reply
}

func (c *Client) complete(ctx context.Context, systemInstruction string, history []models.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, c.buildRequest(systemInstruction, history))
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message == nil {
		return "", errEmptyChoices
	}
	content := decoded.Choices[0].Message.Content
	if content == nil || strings.TrimSpace(*content) == "" {
		return "", errEmptyContent
	}
	return strings.TrimSpace(*content), nil
}

func (c *Client) buildRequest(systemInstruction string, history []models.ChatMessage) chatRequest {
	messages := make([]chatMessage, 0, len(history)+1)
	messages = append(messages, chatMessage{Role: string(models.RoleSystem), Content: systemInstruction})
	for _, m := range history {
		if !m.Role.Valid() {
			continue
		}
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}
}

func (c *Client) newRequest(ctx context.Context, body chatRequest) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}
	return req, nil
}
