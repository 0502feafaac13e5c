// Package openai talks to an OpenAI-compatible
// chat-completions endpoint.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/git2gpt/chat"
)

const providerName = "openai"

// DefaultBaseURL is the public OpenAI API.
const DefaultBaseURL = "https://api.openai.com/v1"

// Config holds the settings needed to create a Provider.
type Config struct {
	// BaseURL is the API root; "/chat/completions" is
	// appended. Defaults to DefaultBaseURL.
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Model is the model identifier (e.g. "gpt-4").
	Model string
	// MaxTokens caps the reply length. Zero leaves it to
	// the provider.
	MaxTokens int
	// Timeout bounds the whole request. Zero means no
	// timeout.
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Provider sends chat completion requests.
//
// Pattern: Strategy -- implements chat.Client.
type Provider struct {
	endpoint  string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

type completionRequest struct {
	Model     string         `json:"model"`
	Messages  []chat.Message `json:"messages"`
	MaxTokens int            `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Choices []choice   `json:"choices"`
	Error   *errorBody `json:"error,omitempty"`
}

type choice struct {
	Message chat.Message `json:"message"`
}

type errorBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewProvider validates cfg and returns a Provider ready to
// send requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating openai provider"

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key must be set", errCtx)
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model must be set", errCtx)
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Provider{
		endpoint:  strings.TrimRight(base, "/") + "/chat/completions",
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    client,
	}, nil
}

// Send posts messages and returns the first choice's
// content. A single attempt is made.
func (p *Provider) Send(
	ctx context.Context,
	messages []chat.Message,
) (string, error) {
	const errCtx = "sending chat request"

	payload, err := json.Marshal(&completionRequest{
		Model:     p.model,
		Messages:  messages,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: marshal request: %w", errCtx, err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		p.endpoint,
		bytes.NewBuffer(payload),
	)
	if err != nil {
		return "", fmt.Errorf("%s: build request: %w", errCtx, err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	slog.Info(
		"sending chat request",
		"model", p.model,
		"messages", len(messages),
		"bytes", len(payload),
	)

	start := time.Now()

	resp, err := p.client.Do(req)
	if err != nil {
		return "", &chat.RemoteServiceError{Provider: providerName, Err: err}
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &chat.RemoteServiceError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read body: %w", err),
		}
	}

	slog.Info(
		"chat response",
		"status", resp.Status,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	var cr completionResponse

	decodeErr := json.Unmarshal(rb, &cr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(rb))
		if decodeErr == nil && cr.Error != nil {
			msg = cr.Error.Message
		}

		return "", &chat.RemoteServiceError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	if decodeErr != nil {
		return "", &chat.RemoteServiceError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode response: %w", decodeErr),
		}
	}

	if len(cr.Choices) == 0 {
		return "", &chat.RemoteServiceError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    "response has no choices",
		}
	}

	return cr.Choices[0].Message.Content, nil
}
