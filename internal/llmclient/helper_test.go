package llmclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/uistate/internal/config"
)

// setupTestLogger is a helper to create a zap logger for testing with an observer.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// getValidLLMConfig returns a valid LLMConfig pointed at endpoint.
func getValidLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:          config.ProviderGroq,
		APIKey:            "test-api-key",
		Model:             "test-model",
		Endpoint:          endpoint,
		APITimeout:        5 * time.Second,
		RepairTemperature: 0.2,
	}
}

// chatRequest is the subset of the request body the tests inspect.
type chatRequest struct {
	Model          string  `json:"model"`
	Temperature    float32 `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// newChatServer serves /v1/chat/completions, answering every request with
// content and handing the decoded request to inspect.
func newChatServer(t *testing.T, status int, content string, inspect func(chatRequest)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req chatRequest
		require.NoError(t, json.Unmarshal(body, &req))
		if inspect != nil {
			inspect(req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)
	return server
}

// newTestClient builds a Client against a chat server answering content.
func newTestClient(t *testing.T, content string, inspect func(chatRequest)) *Client {
	t.Helper()
	server := newChatServer(t, http.StatusOK, content, inspect)
	logger, _ := setupTestLogger(t)
	c, err := NewClient(logger, getValidLLMConfig(server.URL+"/v1"))
	require.NoError(t, err)
	return c
}
