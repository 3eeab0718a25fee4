// Package llm provides an OpenAI-compatible chat completions client.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"xcreator/internal/adapter/httpclient"
	"xcreator/internal/domain"
	"xcreator/internal/port"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second
)

// Config holds configuration for the chat client.
type Config struct {
	// APIKey is the bearer token (required unless the endpoint is local).
	APIKey string

	// BaseURL is the API base URL. Any OpenAI-compatible host works.
	BaseURL string

	// Model is the chat model to use.
	Model string

	// Temperature is passed through when positive.
	Temperature float64

	// MaxTokens caps the reply length when positive.
	MaxTokens int

	Timeout time.Duration
	Retries uint
	Logger  *slog.Logger
}

// Client talks to /chat/completions.
type Client struct {
	http        *httpclient.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// New creates a chat client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" && cfg.BaseURL == DefaultBaseURL {
		return nil, errors.New("llm: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		http: httpclient.New("llm",
			httpclient.WithTimeout(cfg.Timeout),
			httpclient.WithRetry(cfg.Retries, time.Second),
			httpclient.WithLogger(cfg.Logger),
		),
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate produces a completion for a single user prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, []chatMessage{{Role: "user", Content: prompt}})
}

// GenerateWithSystem produces a completion with a system prompt.
func (c *Client) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	})
}

func (c *Client) ModelName() string {
	return c.model
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var resp chatResponse
	if err := c.http.DoJSON(ctx, http.MethodPost, c.baseURL+"/chat/completions", httpclient.BearerHeader(c.apiKey), req, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", &domain.UpstreamError{Service: "llm", Message: resp.Error.Message}
	}
	if len(resp.Choices) == 0 {
		return "", &domain.UpstreamError{Service: "llm", Message: "no choices returned"}
	}
	return resp.Choices[0].Message.Content, nil
}

// String identifies the client in logs.
func (c *Client) String() string {
	return fmt.Sprintf("llm(%s @ %s)", c.model, c.baseURL)
}

var _ port.LLM = (*Client)(nil)
