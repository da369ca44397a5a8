// Package vision implements image captioning through Google's Gemini API.
package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"gapbot/internal/config"
)

// Captioner converts image bytes to a descriptive caption.
type Captioner interface {
	Caption(ctx context.Context, image []byte, mimeType string) (string, error)
}

// ErrCaption indicates the captioning provider call failed or produced no
// usable text.
var ErrCaption = errors.New("captioning error")

const captionInstruction = "Describe this image in one or two sentences, in the language most natural for its content. The description is used as a conversation prompt."

// generateFunc matches the genai Models.GenerateContent signature.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiCaptioner implements Captioner using the genai SDK.
type GeminiCaptioner struct {
	generate generateFunc
	model    string
	timeout  time.Duration
	log      *slog.Logger
}

// NewGeminiCaptioner creates a captioner from the vision configuration.
func NewGeminiCaptioner(ctx context.Context, cfg config.VisionConfig, log *slog.Logger) (*GeminiCaptioner, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("vision API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Token,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiCaptioner{
		generate: client.Models.GenerateContent,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		log:      log.With("component", "captioner"),
	}, nil
}

// Caption implements Captioner. The provider call is bounded by the
// configured vision timeout.
func (c *GeminiCaptioner) Caption(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 || mimeType == "" {
		return "", fmt.Errorf("%w: image data and MIME type are required", ErrCaption)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: captionInstruction}},
		},
	}

	resp, err := c.generate(ctx, c.model, contents, cfg)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini caption call failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrCaption, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		c.log.WarnContext(ctx, "Gemini caption request blocked",
			"reason", resp.PromptFeedback.BlockReason)
		return "", fmt.Errorf("%w: blocked by safety filter", ErrCaption)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrCaption)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty caption text", ErrCaption)
	}

	c.log.DebugContext(ctx, "Caption generated", "caption_len", len(text))
	return text, nil
}
