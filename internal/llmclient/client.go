// Package llmclient talks to an OpenAI-compatible chat completions API (Groq
// by default) and implements the planning and repair oracles on top of it.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uistate/internal/config"
	"github.com/xkilldash9x/uistate/internal/network"
)

// ErrEmptyResponse is returned when the model answers without any content.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Client sends JSON-mode chat completions to a single configured model.
type Client struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// NewClient builds a client from the LLM configuration. An API key is required
// for every provider except a local Ollama instance.
func NewClient(logger *zap.Logger, cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" && cfg.Provider != config.ProviderOllama {
		return nil, fmt.Errorf("an API key is required for provider %q (set GROQ_API_KEY)", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model must be configured")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.Endpoint, "/")
	}
	httpCfg := network.NewDefaultClientConfig()
	if cfg.APITimeout > 0 {
		httpCfg.RequestTimeout = cfg.APITimeout
		httpCfg.ResponseHeaderTimeout = cfg.APITimeout
	}
	clientCfg.HTTPClient = network.NewClient(httpCfg)

	return &Client{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger.Named("llm_client"),
	}, nil
}

// CompleteJSON sends a system and user message and returns the raw JSON text of
// the first choice, with any markdown fence removed.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, temperature float32) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   c.maxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}
	// The request field is omitempty, so a literal zero would fall back to the
	// provider default.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("Received chat completion.",
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	content := stripFences(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// stripFences removes a surrounding ```json ... ``` block if the model added one.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
