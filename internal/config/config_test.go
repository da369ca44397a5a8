package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingRequiredTokens(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation without tokens, got %v", err)
	}
}

func TestLoadDefaultsWithEnvTokens(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "tg-token")
	t.Setenv("BOT_AI_TOKEN", "ai-token")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Telegram.Token != "tg-token" {
		t.Errorf("telegram token = %q", cfg.Telegram.Token)
	}
	if cfg.AI.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("ai base url = %q", cfg.AI.BaseURL)
	}
	if cfg.AI.Model != "google/gemma-7b-it" {
		t.Errorf("ai model = %q", cfg.AI.Model)
	}
	if cfg.AI.Temperature != 0.2 {
		t.Errorf("ai temperature = %v", cfg.AI.Temperature)
	}
	if cfg.TTS.VoiceRatio != 0.9 || cfg.TTS.SampleRate != 22050 {
		t.Errorf("tts defaults = ratio %v rate %d", cfg.TTS.VoiceRatio, cfg.TTS.SampleRate)
	}
	if cfg.TTS.SynthesizeOnFallback {
		t.Error("synthesize_on_fallback must default to false")
	}
	if !cfg.TTS.Enabled {
		t.Error("tts must default to enabled")
	}
	if cfg.STT.Token != "" || cfg.Vision.Token != "" {
		t.Error("optional capability tokens must default to empty")
	}
	if cfg.Messages.Unsupported == "" || cfg.Messages.AIError == "" {
		t.Error("fallback messages must have defaults")
	}
	if cfg.Server.WebhookPath != "/webhook" {
		t.Errorf("webhook path = %q", cfg.Server.WebhookPath)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "tg-token")
	t.Setenv("BOT_AI_TOKEN", "ai-token")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
ai:
  model: mistralai/mistral-7b-instruct
  timeout: 90s
tts:
  enabled: false
  synthesize_on_fallback: true
server:
  addr: ":9999"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.AI.Model != "mistralai/mistral-7b-instruct" {
		t.Errorf("ai model = %q", cfg.AI.Model)
	}
	if cfg.AI.Timeout != 90*time.Second {
		t.Errorf("ai timeout = %v", cfg.AI.Timeout)
	}
	if cfg.TTS.Enabled {
		t.Error("tts.enabled override not applied")
	}
	if !cfg.TTS.SynthesizeOnFallback {
		t.Error("synthesize_on_fallback override not applied")
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
