package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/commodity_radar/app/commodity_radar/pkg/llm"
)

func reply(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gemini-2.0-flash",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

func newTestClient(t *testing.T, url string) llm.Backend {
	t.Helper()
	c, err := NewClient(context.Background(), llm.Config{
		Provider: "gemini3", APIKey: "gk", BaseURL: url, Model: "gemini-2.0-flash", Temperature: 0.2, MaxTokens: 512,
	})
	require.NoError(t, err)
	return c
}

func TestClient_Chat(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
		Tools []any `json:"tools"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/openai/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gk", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply("宏观偏松")))
	}))
	defer srv.Close()

	msgs := []*schema.Message{
		schema.UserMessage("问题"),
		schema.AssistantMessage("回答", nil),
		schema.UserMessage("追问"),
	}
	out, err := newTestClient(t, srv.URL).Chat(context.Background(), msgs, []string{"期权术语"})
	require.NoError(t, err)
	assert.Equal(t, "宏观偏松", out)

	assert.Equal(t, "gemini-2.0-flash", got.Model)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Empty(t, got.Tools)
}

func TestClient_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply("")))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL).Chat(context.Background(), []*schema.Message{schema.UserMessage("x")}, nil)
	assert.Empty(t, out)
	var be *llm.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "empty completion", be.Message)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad","code":400}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Chat(context.Background(), []*schema.Message{schema.UserMessage("x")}, nil)
	assert.True(t, llm.IsBackendError(err))
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta/openai", BaseURL(""))
	assert.Equal(t, "http://proxy/v1beta/openai", BaseURL("http://proxy/"))
	assert.Equal(t, "http://proxy/v1beta/openai", BaseURL("http://proxy/v1beta/openai/"))
}
