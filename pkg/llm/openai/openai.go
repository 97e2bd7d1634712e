// Package openai implements llm.Client against the OpenAI Chat Completions
// API (and any compatible endpoint reachable at a custom base URL).
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opsgraph/opsgraph/pkg/llm"
)

const providerName = "openai"

// Config holds the completion client settings.
type Config struct {
	// APIKey is the bearer token sent with every request.
	APIKey string

	// Model is the completion model (e.g., "gpt-4o-mini").
	Model string

	// BaseURL overrides the API host, e.g. for compatible local servers.
	// Defaults to https://api.openai.com.
	BaseURL string
}

// Client implements llm.Client over the Chat Completions HTTP API.
type Client struct {
	config Config
	http   *http.Client
}

// NewClient creates an OpenAI completion client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com"
	}
	return &Client{
		config: config,
		http:   http.DefaultClient,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends the message sequence to the completions endpoint and
// returns the generated text with token usage. All failure modes map to
// llm.ProviderError; there is no retry here.
func (c *Client) Complete(ctx context.Context, messages []llm.Message, maxTokens int, temperature float64) (*llm.Completion, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, llm.ProviderError{Provider: providerName, Err: fmt.Errorf("marshal request: %w", err)}
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, llm.ProviderError{Provider: providerName, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, llm.ProviderError{Provider: providerName, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, llm.ProviderError{Provider: providerName, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, llm.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(raw)),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, llm.ProviderError{Provider: providerName, Err: fmt.Errorf("unmarshal response: %w", err)}
	}

	if parsed.Error != nil {
		return nil, llm.ProviderError{Provider: providerName, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return nil, llm.ProviderError{Provider: providerName, Message: "no choices in response"}
	}

	completion := &llm.Completion{Text: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		completion.Usage = &llm.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}

	return completion, nil
}
