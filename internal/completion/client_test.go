package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/chat-relay/internal/config"
	"github.com/magabrotheeeer/chat-relay/internal/lib/sl"
	"github.com/magabrotheeeer/chat-relay/internal/metrics"
	"github.com/magabrotheeeer/chat-relay/internal/models"
)

const fallback = "fallback reply"

func newTestClient(url string, timeout time.Duration) *Client {
	temp := 0.8
	return NewClient(config.Completion{
		APIURL:      url,
		APIKey:      "test-key",
		Model:       "test/model",
		Temperature: &temp,
		Referer:     "https://example.com",
		Title:       "Relay Bot",
		Timeout:     timeout,
	}, fallback, metrics.New(), sl.Discard())
}

func TestClient_GenerateSuccess(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "https://example.com", r.Header.Get("HTTP-Referer"))
		assert.Equal(t, "Relay Bot", r.Header.Get("X-Title"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  hello  "}}]}`))
	}))
	defer srv.Close()

	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleSystem, Content: "smuggled instruction"},
		{Role: models.RoleAssistant, Content: "earlier answer"},
		{Role: models.RoleUser, Content: "how are you?"},
	}
	reply := newTestClient(srv.URL, time.Second).Generate(context.Background(), "be kind", history)

	assert.Equal(t, "hello", reply)
	assert.Equal(t, "test/model", got.Model)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.8, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, chatMessage{Role: "system", Content: "be kind"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "hi"}, got.Messages[1])
	assert.Equal(t, chatMessage{Role: "assistant", Content: "earlier answer"}, got.Messages[2])
	assert.Equal(t, chatMessage{Role: "user", Content: "how are you?"}, got.Messages[3])
}

func TestClient_GenerateFallback(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		delay   time.Duration
		timeout time.Duration
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"boom"}`},
		{name: "rate limited", status: http.StatusTooManyRequests, body: `{}`},
		{name: "malformed json", status: http.StatusOK, body: `{"choices":[`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "missing message", status: http.StatusOK, body: `{"choices":[{}]}`},
		{name: "null content", status: http.StatusOK, body: `{"choices":[{"message":{"content":null}}]}`},
		{name: "blank content", status: http.StatusOK, body: `{"choices":[{"message":{"content":"   "}}]}`},
		{name: "error object instead of choices", status: http.StatusOK, body: `{"error":{"message":"no credits"}}`},
		{name: "timeout", status: http.StatusOK, body: `{"choices":[{"message":{"content":"late"}}]}`,
			delay: 300 * time.Millisecond, timeout: 50 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					select {
					case <-time.After(tt.delay):
					case <-r.Context().Done():
						return
					}
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			c := newTestClient(srv.URL, timeout)

			started := time.Now()
			reply := c.Generate(context.Background(), "sys", []models.ChatMessage{{Role: models.RoleUser, Content: "hi"}})
			assert.Equal(t, fallback, reply)
			assert.Less(t, time.Since(started), 250*time.Millisecond+timeout)
		})
	}
}

func TestClient_GenerateNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	reply := newTestClient(url, time.Second).Generate(context.Background(), "sys", nil)
	assert.Equal(t, fallback, reply)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(config.Completion{APIURL: "http://localhost"}, "", nil, sl.Discard())
	assert.Equal(t, config.DefaultFallbackReply, c.fallback)
	assert.Equal(t, 60*time.Second, c.timeout)
}
