// Package speech implements the voice side of the bot: speech-to-text
// transcription of inbound voice notes and text-to-speech synthesis of
// outbound replies.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"gapbot/internal/config"
)

// Transcriber converts raw voice audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// ErrTranscription indicates the transcription provider call failed or
// returned an unusable response.
var ErrTranscription = errors.New("transcription error")

// WhisperTranscriber calls an OpenAI-compatible audio transcription
// endpoint (Groq or OpenAI Whisper).
type WhisperTranscriber struct {
	cfg        config.STTConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewWhisperTranscriber creates a transcriber from the STT configuration.
func NewWhisperTranscriber(cfg config.STTConfig, log *slog.Logger) *WhisperTranscriber {
	return &WhisperTranscriber{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "transcriber"),
	}
}

// Transcribe implements Transcriber. The filename extension tells the
// provider the container format (Telegram voice notes are .oga).
func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio payload", ErrTranscription)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to build transcription form: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("failed to write audio payload: %w", err)
	}
	writer.WriteField("model", t.cfg.Model)
	writer.WriteField("response_format", "json")
	writer.Close()

	url := t.cfg.BaseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("failed to create transcription request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.cfg.Token)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscription, resp.StatusCode, string(respBody))
	}

	// Providers drift on optional fields; only "text" is consumed, and an
	// unparseable body fails closed instead of crashing.
	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: unparseable response: %v", ErrTranscription, err)
	}

	text := strings.TrimSpace(result.Text)
	t.log.DebugContext(ctx, "Transcription complete", "text_len", len(text))
	return text, nil
}
