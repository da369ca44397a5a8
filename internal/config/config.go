// Package config manages application configuration from default values,
// an optional config.yaml file, and BOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrValidation indicates the loaded configuration failed validation.
var ErrValidation = errors.New("configuration validation error")

// Config defines the application configuration. Values can be set via
// environment variables prefixed with BOT_ (e.g., BOT_TELEGRAM_TOKEN) or
// through config.yaml. The value is read once at startup and treated as
// immutable afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	AI       AIConfig       `mapstructure:"ai"`
	STT      STTConfig      `mapstructure:"stt"`
	Vision   VisionConfig   `mapstructure:"vision"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Log      LogConfig      `mapstructure:"log"`
	Messages Messages       `mapstructure:"messages"`
}

// ServerConfig holds the webhook HTTP server settings.
type ServerConfig struct {
	Addr        string `mapstructure:"addr"         validate:"required"`
	WebhookPath string `mapstructure:"webhook_path" validate:"required,startswith=/"`
}

// TelegramConfig holds the Telegram bot API settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

// AIConfig holds the completion provider settings (OpenAI-compatible API).
type AIConfig struct {
	Token       string        `mapstructure:"token"       validate:"required"`
	BaseURL     string        `mapstructure:"base_url"    validate:"required,url"`
	Model       string        `mapstructure:"model"       validate:"required"`
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `mapstructure:"max_tokens"  validate:"min=1"`
	Instruction string        `mapstructure:"instruction" validate:"required"`
	Timeout     time.Duration `mapstructure:"timeout"     validate:"min=1s,max=10m"`
}

// STTConfig holds the optional speech-to-text provider settings.
// An empty token disables transcription.
type STTConfig struct {
	Token   string        `mapstructure:"token"`
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Model   string        `mapstructure:"model"    validate:"required"`
	Timeout time.Duration `mapstructure:"timeout"  validate:"min=1s,max=10m"`
}

// VisionConfig holds the optional image captioning provider settings.
// An empty token disables captioning.
type VisionConfig struct {
	Token   string        `mapstructure:"token"`
	Model   string        `mapstructure:"model"   validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

// TTSConfig holds the speech synthesis settings.
type TTSConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	VoiceRatio           float64       `mapstructure:"voice_ratio" validate:"gt=0,lte=2"`
	SampleRate           int           `mapstructure:"sample_rate" validate:"min=8000,max=48000"`
	SynthesizeOnFallback bool          `mapstructure:"synthesize_on_fallback"`
	Timeout              time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

// FetchConfig bounds media downloads from the Telegram file API.
type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"   validate:"min=1s,max=10m"`
	MaxBytes int64         `mapstructure:"max_bytes" validate:"min=1024"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// Messages holds the user-facing fallback and instructional strings. The
// defaults are Persian, matching the bot's primary audience.
type Messages struct {
	AIError            string `mapstructure:"ai_error"             validate:"required"`
	VoiceFetchError    string `mapstructure:"voice_fetch_error"    validate:"required"`
	PhotoFetchError    string `mapstructure:"photo_fetch_error"    validate:"required"`
	TranscriptionHint  string `mapstructure:"transcription_hint"   validate:"required"`
	TranscriptionError string `mapstructure:"transcription_error"  validate:"required"`
	CaptionHint        string `mapstructure:"caption_hint"         validate:"required"`
	CaptionError       string `mapstructure:"caption_error"        validate:"required"`
	Unsupported        string `mapstructure:"unsupported"          validate:"required"`
}

// Load reads and validates configuration from:
// 1. Default values
// 2. An optional config file (config.yaml by default)
// 3. BOT_* environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Missing config file is fine, defaults plus env vars apply.
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.webhook_path", "/webhook")

	// Secrets default to empty so the keys are known to viper and can be
	// supplied through BOT_* environment variables alone.
	v.SetDefault("telegram.token", "")
	v.SetDefault("ai.token", "")
	v.SetDefault("stt.token", "")
	v.SetDefault("vision.token", "")

	v.SetDefault("ai.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("ai.model", "google/gemma-7b-it")
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.max_tokens", 1000)
	v.SetDefault("ai.instruction", "You are a helpful multilingual assistant. Detect the user's language and reply in the same language clearly and naturally. Prefer Persian when the input is Persian.")
	v.SetDefault("ai.timeout", time.Minute)

	v.SetDefault("stt.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("stt.model", "whisper-large-v3")
	v.SetDefault("stt.timeout", 2*time.Minute)

	v.SetDefault("vision.model", "gemini-2.0-flash")
	v.SetDefault("vision.timeout", time.Minute)

	v.SetDefault("tts.enabled", true)
	v.SetDefault("tts.voice_ratio", 0.9)
	v.SetDefault("tts.sample_rate", 22050)
	v.SetDefault("tts.synthesize_on_fallback", false)
	v.SetDefault("tts.timeout", 30*time.Second)

	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.max_bytes", int64(20*1024*1024))

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("messages.ai_error", "⚠️ خطا در دریافت پاسخ از مدل. لطفاً بعداً تلاش کنید.")
	v.SetDefault("messages.voice_fetch_error", "⚠️ دریافت فایل صوتی ممکن نشد. لطفاً دوباره تلاش کنید.")
	v.SetDefault("messages.photo_fetch_error", "⚠️ دریافت تصویر ممکن نشد. لطفاً دوباره تلاش کنید.")
	v.SetDefault("messages.transcription_hint", "✅ ویس دریافت شد — برای تبدیل خودکار ویس به متن، کلید سرویس رونویسی (BOT_STT_TOKEN) را اضافه کنید.")
	v.SetDefault("messages.transcription_error", "⚠️ تبدیل ویس به متن ممکن نشد.")
	v.SetDefault("messages.caption_hint", "✅ تصویر دریافت شد — برای فعال‌سازی توضیح تصویر، کلید سرویس بینایی (BOT_VISION_TOKEN) را اضافه کنید.")
	v.SetDefault("messages.caption_error", "⚠️ توضیح تصویر ممکن نشد.")
	v.SetDefault("messages.unsupported", "پیام دریافت شد (نوع پشتیبانی نشده).")
}
