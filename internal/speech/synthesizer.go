package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/faiface/beep"
	beepmp3 "github.com/faiface/beep/mp3"
	beepwav "github.com/faiface/beep/wav"
	"golang.org/x/text/language"

	"gapbot/internal/config"
	"gapbot/internal/lang"
)

// Artifact is a synthesized-speech byte buffer with its declared language.
type Artifact struct {
	Data     []byte
	MIME     string
	Filename string
	Lang     language.Tag
}

// Synthesizer renders text to an audio artifact in a requested language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, tag language.Tag) (*Artifact, error)
}

// ErrSynthesis indicates the underlying speech engine call failed. Failures
// of the optional post-transform never produce this error.
var ErrSynthesis = errors.New("speech synthesis error")

// Engine fetches raw MP3 speech for a single chunk of text in the given
// language code.
type Engine interface {
	Fetch(ctx context.Context, text, langCode string) ([]byte, error)
}

// The Google Translate TTS endpoint caps the query text per request, so
// longer replies are synthesized in chunks and concatenated.
const maxChunkLen = 200

// Voice codes the engine supports. Unrecognized tags fall back to the
// system default rather than failing the call.
var voiceCodes = map[language.Tag]string{
	lang.Persian: "fa",
	lang.Turkish: "tr",
	lang.English: "en",
}

// GoogleTTSEngine fetches speech from the public Google Translate TTS
// endpoint, the same engine the gTTS library wraps.
type GoogleTTSEngine struct {
	endpoint   string
	httpClient *http.Client
}

// NewGoogleTTSEngine creates the default speech engine.
func NewGoogleTTSEngine(cfg config.TTSConfig) *GoogleTTSEngine {
	return &GoogleTTSEngine{
		endpoint:   "https://translate.google.com/translate_tts",
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Fetch implements Engine.
func (e *GoogleTTSEngine) Fetch(ctx context.Context, text, langCode string) ([]byte, error) {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", langCode)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSynthesis, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read TTS response: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio response", ErrSynthesis)
	}
	return data, nil
}

// VoiceSynthesizer implements Synthesizer on top of an Engine, with an
// optional audio post-transform that shifts the playback rate by a constant
// ratio and normalizes the sample rate. The transform only adjusts the
// voice character; its failure degrades to the untransformed artifact.
type VoiceSynthesizer struct {
	cfg    config.TTSConfig
	engine Engine
	log    *slog.Logger
}

// NewVoiceSynthesizer creates a synthesizer from the TTS configuration.
func NewVoiceSynthesizer(cfg config.TTSConfig, engine Engine, log *slog.Logger) *VoiceSynthesizer {
	return &VoiceSynthesizer{
		cfg:    cfg,
		engine: engine,
		log:    log.With("component", "synthesizer"),
	}
}

// Synthesize implements Synthesizer.
func (s *VoiceSynthesizer) Synthesize(ctx context.Context, text string, tag language.Tag) (*Artifact, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrSynthesis)
	}

	code, ok := voiceCodes[tag]
	if !ok {
		s.log.DebugContext(ctx, "Unrecognized language tag, using default voice",
			"tag", tag.String(), "default", lang.Default.String())
		tag = lang.Default
		code = voiceCodes[tag]
	}

	var audio []byte
	for _, chunk := range splitChunks(text, maxChunkLen) {
		data, err := s.engine.Fetch(ctx, chunk, code)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSynthesis, err)
		}
		audio = append(audio, data...)
	}

	artifact := &Artifact{
		Data:     audio,
		MIME:     "audio/mpeg",
		Filename: "reply.mp3",
		Lang:     tag,
	}

	// The transform is a no-op when both knobs are at their neutral values.
	if s.cfg.VoiceRatio == 1.0 && s.cfg.SampleRate == 0 {
		return artifact, nil
	}

	transformed, err := s.transform(audio)
	if err != nil {
		s.log.WarnContext(ctx, "Audio post-transform failed, keeping untransformed audio", "error", err)
		return artifact, nil
	}
	artifact.Data = transformed
	artifact.MIME = "audio/wav"
	artifact.Filename = "reply.wav"
	return artifact, nil
}

// transform decodes the MP3, applies the voice ratio, resamples to the
// configured rate, and re-encodes as WAV through a scoped temp file.
func (s *VoiceSynthesizer) transform(mp3Data []byte) (_ []byte, err error) {
	streamer, format, err := beepmp3.Decode(io.NopCloser(bytes.NewReader(mp3Data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer streamer.Close()

	const quality = 4

	var st beep.Streamer = streamer
	outRate := format.SampleRate
	if s.cfg.VoiceRatio != 1.0 {
		st = beep.ResampleRatio(quality, s.cfg.VoiceRatio, st)
	}
	if s.cfg.SampleRate > 0 && int(format.SampleRate) != s.cfg.SampleRate {
		outRate = beep.SampleRate(s.cfg.SampleRate)
		st = beep.Resample(quality, format.SampleRate, outRate, st)
	}

	tmp, err := os.CreateTemp("", "gapbot-tts-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		if removeErr := os.Remove(tmp.Name()); removeErr != nil && err == nil {
			err = removeErr
		}
	}()

	outFormat := beep.Format{
		SampleRate:  outRate,
		NumChannels: format.NumChannels,
		Precision:   2,
	}
	if err := beepwav.Encode(tmp, st, outFormat); err != nil {
		return nil, fmt.Errorf("failed to encode WAV: %w", err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind temp file: %w", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, fmt.Errorf("failed to read transformed audio: %w", err)
	}
	return data, nil
}

// splitChunks breaks text into whitespace-delimited chunks of at most max
// runes. A single word longer than max is hard-split.
func splitChunks(text string, max int) []string {
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	var current []rune
	for _, field := range splitFieldsKeepLong(text, max) {
		fieldRunes := []rune(field)
		if len(current) > 0 && len(current)+1+len(fieldRunes) > max {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
		if len(current) > 0 {
			current = append(current, ' ')
		}
		current = append(current, fieldRunes...)
	}
	if len(current) > 0 {
		chunks = append(chunks, string(current))
	}
	return chunks
}

func splitFieldsKeepLong(text string, max int) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		runes := []rune(f)
		for len(runes) > max {
			out = append(out, string(runes[:max]))
			runes = runes[max:]
		}
		if len(runes) > 0 {
			out = append(out, string(runes))
		}
	}
	return out
}
