// Package ai implements the completion client used to generate reply text.
// It talks to an OpenAI-compatible chat completions endpoint (OpenRouter by
// default) over plain HTTP.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"gapbot/internal/config"
)

// Client defines the completion operations used by the message pipeline.
type Client interface {
	// Complete sends the prompt together with the configured system
	// instruction and sampling parameters and returns the generated text.
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrProvider indicates the provider returned a non-success status or an
	// unusable body. Distinct from transport errors for observability; the
	// pipeline treats both the same way.
	ErrProvider = errors.New("completion provider error")

	// ErrEmptyReply indicates a well-formed response carrying no text.
	ErrEmptyReply = errors.New("completion returned no text")
)

// OpenRouterClient is the HTTP implementation of Client. A single failed
// call is terminal; the caller decides the fallback.
type OpenRouterClient struct {
	cfg        config.AIConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewOpenRouterClient creates a completion client from the AI configuration.
func NewOpenRouterClient(cfg config.AIConfig, log *slog.Logger) *OpenRouterClient {
	return &OpenRouterClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "completion_client"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Client.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrProvider)
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: c.cfg.Instruction},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := c.cfg.BaseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.ErrorContext(ctx, "Completion provider returned error body",
			"status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: unparseable response: %v", ErrProvider, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}

	text := parsed.Choices[0].Message.Content
	c.log.DebugContext(ctx, "Completion generated", "model", c.cfg.Model, "reply_len", len(text))
	return text, nil
}
