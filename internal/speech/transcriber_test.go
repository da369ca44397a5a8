package speech

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gapbot/internal/config"
)

func testSTTConfig(baseURL string) config.STTConfig {
	return config.STTConfig{
		Token:   "stt-token",
		BaseURL: baseURL,
		Model:   "whisper-large-v3",
		Timeout: 5 * time.Second,
	}
}

func TestTranscribeSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-large-v3" {
			t.Errorf("model field = %q", got)
		}
		w.Write([]byte(`{"text":"  سلام ربات  ","language":"fa","duration":1.2}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(testSTTConfig(srv.URL), slog.New(slog.DiscardHandler))
	got, err := tr.Transcribe(context.Background(), []byte("fake-ogg"), "voice.oga")
	if err != nil {
		t.Fatalf("Transcribe returned error: %v", err)
	}
	if got != "سلام ربات" {
		t.Errorf("Transcribe = %q, want trimmed text", got)
	}
}

func TestTranscribeProviderError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad audio"}`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(testSTTConfig(srv.URL), slog.New(slog.DiscardHandler))
	_, err := tr.Transcribe(context.Background(), []byte("fake"), "voice.oga")
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestTranscribeUnparseableResponseFailsClosed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	tr := NewWhisperTranscriber(testSTTConfig(srv.URL), slog.New(slog.DiscardHandler))
	_, err := tr.Transcribe(context.Background(), []byte("fake"), "voice.oga")
	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription for unparseable body, got %v", err)
	}
}

func TestTranscribeEmptyAudio(t *testing.T) {
	t.Parallel()

	tr := NewWhisperTranscriber(testSTTConfig("http://127.0.0.1:0"), slog.New(slog.DiscardHandler))
	if _, err := tr.Transcribe(context.Background(), nil, "voice.oga"); !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription for empty audio, got %v", err)
	}
}
