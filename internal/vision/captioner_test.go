package vision

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/genai"
)

func newTestCaptioner(timeout time.Duration, generate generateFunc) *GeminiCaptioner {
	return &GeminiCaptioner{
		generate: generate,
		model:    "gemini-2.0-flash",
		timeout:  timeout,
		log:      slog.New(slog.DiscardHandler),
	}
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func TestCaptionSuccess(t *testing.T) {
	t.Parallel()

	c := newTestCaptioner(time.Second, func(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		if model != "gemini-2.0-flash" {
			t.Errorf("model = %q", model)
		}
		if len(contents) != 1 || cfg.SystemInstruction == nil {
			t.Error("expected one content part and a system instruction")
		}
		return textResponse("  a cat on a rug  "), nil
	})

	got, err := c.Caption(context.Background(), []byte{0xFF, 0xD8}, "image/jpeg")
	if err != nil {
		t.Fatalf("Caption returned error: %v", err)
	}
	if got != "a cat on a rug" {
		t.Errorf("caption = %q, want trimmed text", got)
	}
}

func TestCaptionEnforcesConfiguredTimeout(t *testing.T) {
	t.Parallel()

	// A provider that never answers must be cut off by the adapter's own
	// deadline, not held open for the caller's full budget.
	c := newTestCaptioner(50*time.Millisecond, func(ctx context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	_, err := c.Caption(context.Background(), []byte("img"), "image/png")
	if !errors.Is(err, ErrCaption) {
		t.Fatalf("expected ErrCaption, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("hung provider call took %v, want ~50ms", elapsed)
	}
}

func TestCaptionBlockedBySafetyFilter(t *testing.T) {
	t.Parallel()

	c := newTestCaptioner(time.Second, func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
				BlockReason: genai.BlockedReasonSafety,
			},
		}, nil
	})

	if _, err := c.Caption(context.Background(), []byte("img"), "image/png"); !errors.Is(err, ErrCaption) {
		t.Fatalf("expected ErrCaption for blocked request, got %v", err)
	}
}

func TestCaptionEmptyResponse(t *testing.T) {
	t.Parallel()

	c := newTestCaptioner(time.Second, func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{}, nil
	})

	if _, err := c.Caption(context.Background(), []byte("img"), "image/png"); !errors.Is(err, ErrCaption) {
		t.Fatalf("expected ErrCaption for empty response, got %v", err)
	}
}

func TestCaptionRequiresImageAndMIME(t *testing.T) {
	t.Parallel()

	called := false
	c := newTestCaptioner(time.Second, func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		called = true
		return textResponse("x"), nil
	})

	if _, err := c.Caption(context.Background(), nil, "image/png"); !errors.Is(err, ErrCaption) {
		t.Fatalf("expected ErrCaption for empty image, got %v", err)
	}
	if _, err := c.Caption(context.Background(), []byte("img"), ""); !errors.Is(err, ErrCaption) {
		t.Fatalf("expected ErrCaption for empty MIME type, got %v", err)
	}
	if called {
		t.Error("provider must not be called for invalid input")
	}
}
