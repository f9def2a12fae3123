package llmclient

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/config"
)

func TestNewClient_Validation(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		cfg := getValidLLMConfig("")
		cfg.APIKey = ""
		_, err := NewClient(zap.NewNop(), cfg)
		assert.ErrorContains(t, err, "API key")
	})

	t.Run("ollama needs no key", func(t *testing.T) {
		cfg := getValidLLMConfig("http://localhost:11434/v1")
		cfg.APIKey = ""
		cfg.Provider = config.ProviderOllama
		_, err := NewClient(zap.NewNop(), cfg)
		assert.NoError(t, err)
	})

	t.Run("missing model", func(t *testing.T) {
		cfg := getValidLLMConfig("")
		cfg.Model = ""
		_, err := NewClient(zap.NewNop(), cfg)
		assert.Error(t, err)
	})
}

func TestCompleteJSON_SendsJSONModeRequest(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, "```json\n{\"ok\": true}\n```", func(r chatRequest) { got = r })

	out, err := c.CompleteJSON(context.Background(), "system text", "user text", 0.2)
	require.NoError(t, err)

	assert.Equal(t, `{"ok": true}`, out)
	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
	assert.InDelta(t, 0.2, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user text", got.Messages[1].Content)
}

func TestCompleteJSON_ZeroTemperatureIsSent(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, `{}`, func(r chatRequest) { got = r })

	_, err := c.CompleteJSON(context.Background(), "s", "u", 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, got.Temperature, 1e-6)
}

func TestCompleteJSON_Errors(t *testing.T) {
	t.Run("http error", func(t *testing.T) {
		server := newChatServer(t, http.StatusTooManyRequests, "", nil)
		c, err := NewClient(zap.NewNop(), getValidLLMConfig(server.URL+"/v1"))
		require.NoError(t, err)

		_, err = c.CompleteJSON(context.Background(), "s", "u", 0)
		assert.ErrorContains(t, err, "chat completion failed")
	})

	t.Run("empty content", func(t *testing.T) {
		c := newTestClient(t, "   ", nil)
		_, err := c.CompleteJSON(context.Background(), "s", "u", 0)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})
}

func TestStripFences(t *testing.T) {
	testCases := map[string]string{
		`{"a":1}`:                 `{"a":1}`,
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"```json{\"a\":1}```":     `{"a":1}`,
	}
	for in, want := range testCases {
		assert.Equal(t, want, stripFences(in), in)
	}
}
