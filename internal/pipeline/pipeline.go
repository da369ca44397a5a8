// Package pipeline orchestrates the processing of inbound chat events: it
// classifies each event, extracts a usable prompt (transcribing voice or
// captioning photos when those providers are configured), asks the
// completion model for a reply, optionally synthesizes speech, and
// dispatches the result back to the originating chat.
//
// Process is total: every failure of an external dependency resolves to a
// user-facing fallback message, never an error crossing the webhook
// boundary.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot/models"

	"gapbot/internal/ai"
	"gapbot/internal/config"
	"gapbot/internal/lang"
	"gapbot/internal/speech"
	"gapbot/internal/telegram"
	"gapbot/internal/vision"
)

// Deps holds the pipeline's collaborators. Transcriber, Captioner, and
// Synthesizer are optional: a nil value disables the capability and the
// pipeline degrades per the configured messages.
type Deps struct {
	Logger      *slog.Logger
	Completion  ai.Client
	Fetcher     telegram.MediaFetcher
	Dispatcher  telegram.Dispatcher
	Transcriber speech.Transcriber
	Captioner   vision.Captioner
	Synthesizer speech.Synthesizer
}

// Policy captures the behavior knobs that drifted between historical
// variants of this bot, made explicit instead of re-derived per code path.
type Policy struct {
	// SynthesizeOnFallback controls whether canned error replies also get
	// synthesized audio.
	SynthesizeOnFallback bool

	// Messages are the user-facing fallback and instructional strings.
	Messages config.Messages
}

// Pipeline drives an InboundEvent to an OutboundBundle.
type Pipeline struct {
	deps   Deps
	policy Policy
	log    *slog.Logger
}

// New creates a pipeline. Completion, Fetcher, and Dispatcher are required;
// the optional capabilities may be nil.
func New(deps Deps, policy Policy) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		deps:   deps,
		policy: policy,
		log:    log.With("component", "pipeline"),
	}
}

// HandleUpdate classifies a webhook update and runs it through the
// pipeline, dispatching the resulting bundle. Unclassifiable updates are
// acknowledged as a no-op.
func (p *Pipeline) HandleUpdate(ctx context.Context, update *models.Update) {
	ev := EventFromUpdate(update)
	if ev == nil {
		p.log.DebugContext(ctx, "Update carries no message, ignoring")
		return
	}

	p.log.InfoContext(ctx, "Processing inbound event",
		"kind", ev.Kind, "chat_id", ev.ChatID, "message_id", ev.MessageID)

	if ev.Kind != KindUnsupported {
		p.deps.Dispatcher.SendTyping(ctx, ev.ChatID)
	}

	bundle := p.Process(ctx, ev)
	p.dispatch(ctx, bundle)
}

// Process drives the event to an OutboundBundle. It never returns an
// error: every failure path resolves to a fallback reply. The returned
// bundle always carries non-empty text.
func (p *Pipeline) Process(ctx context.Context, ev *InboundEvent) OutboundBundle {
	switch ev.Kind {
	case KindText:
		return p.processText(ctx, ev)
	case KindVoice:
		return p.processVoice(ctx, ev)
	case KindPhoto:
		return p.processPhoto(ctx, ev)
	default:
		// Fixed reply, no external calls.
		return OutboundBundle{ChatID: ev.ChatID, ReplyTo: ev.MessageID, Text: p.policy.Messages.Unsupported}
	}
}

func (p *Pipeline) processText(ctx context.Context, ev *InboundEvent) OutboundBundle {
	return p.complete(ctx, ev, ev.Text)
}

func (p *Pipeline) processVoice(ctx context.Context, ev *InboundEvent) OutboundBundle {
	data, _, err := p.deps.Fetcher.Fetch(ctx, ev.FileID)
	if err != nil {
		p.log.ErrorContext(ctx, "Voice download failed", "error", err, "chat_id", ev.ChatID)
		return p.fallback(ctx, ev, p.policy.Messages.VoiceFetchError)
	}

	if p.deps.Transcriber == nil {
		p.log.InfoContext(ctx, "Transcription not configured, replying with hint", "chat_id", ev.ChatID)
		return OutboundBundle{ChatID: ev.ChatID, ReplyTo: ev.MessageID, Text: p.policy.Messages.TranscriptionHint}
	}

	text, err := p.deps.Transcriber.Transcribe(ctx, data, "voice.oga")
	if err != nil || strings.TrimSpace(text) == "" {
		p.log.ErrorContext(ctx, "Transcription yielded no text", "error", err, "chat_id", ev.ChatID)
		return p.fallback(ctx, ev, p.policy.Messages.TranscriptionError)
	}

	p.log.DebugContext(ctx, "Voice transcribed", "chat_id", ev.ChatID, "text_len", len(text))
	return p.complete(ctx, ev, text)
}

func (p *Pipeline) processPhoto(ctx context.Context, ev *InboundEvent) OutboundBundle {
	data, mimeType, err := p.deps.Fetcher.Fetch(ctx, ev.FileID)
	if err != nil {
		p.log.ErrorContext(ctx, "Photo download failed", "error", err, "chat_id", ev.ChatID)
		return p.fallback(ctx, ev, p.policy.Messages.PhotoFetchError)
	}

	if p.deps.Captioner == nil {
		p.log.InfoContext(ctx, "Captioning not configured, replying with hint", "chat_id", ev.ChatID)
		return OutboundBundle{ChatID: ev.ChatID, ReplyTo: ev.MessageID, Text: p.policy.Messages.CaptionHint}
	}

	caption, err := p.deps.Captioner.Caption(ctx, data, mimeType)
	if err != nil || strings.TrimSpace(caption) == "" {
		p.log.ErrorContext(ctx, "Captioning yielded no text", "error", err, "chat_id", ev.ChatID)
		return p.fallback(ctx, ev, p.policy.Messages.CaptionError)
	}

	p.log.DebugContext(ctx, "Photo captioned", "chat_id", ev.ChatID, "caption_len", len(caption))
	return p.complete(ctx, ev, caption)
}

// complete runs the common tail of all content-bearing flows: call the
// completion model with the prompt, then best-effort synthesize speech for
// the reply in its detected language.
func (p *Pipeline) complete(ctx context.Context, ev *InboundEvent, prompt string) OutboundBundle {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		// Content extraction produced nothing; the model must not be called.
		return p.fallback(ctx, ev, p.policy.Messages.AIError)
	}

	reply, err := p.deps.Completion.Complete(ctx, prompt)
	if err != nil {
		p.log.ErrorContext(ctx, "Completion failed", "error", err, "chat_id", ev.ChatID)
		return p.fallback(ctx, ev, p.policy.Messages.AIError)
	}

	bundle := OutboundBundle{ChatID: ev.ChatID, ReplyTo: ev.MessageID, Text: reply}
	bundle.Audio = p.synthesize(ctx, reply)
	return bundle
}

// fallback builds a bundle carrying a canned reply. Audio is attached only
// when the SynthesizeOnFallback policy is set.
func (p *Pipeline) fallback(ctx context.Context, ev *InboundEvent, message string) OutboundBundle {
	bundle := OutboundBundle{ChatID: ev.ChatID, ReplyTo: ev.MessageID, Text: message}
	if p.policy.SynthesizeOnFallback {
		bundle.Audio = p.synthesize(ctx, message)
	}
	return bundle
}

// synthesize renders the reply as speech in its detected language. It is
// best-effort: any failure downgrades to text-only delivery and is only
// logged.
func (p *Pipeline) synthesize(ctx context.Context, text string) *speech.Artifact {
	if p.deps.Synthesizer == nil {
		return nil
	}

	tag := lang.Detect(text)
	artifact, err := p.deps.Synthesizer.Synthesize(ctx, text, tag)
	if err != nil {
		p.log.WarnContext(ctx, "Speech synthesis failed, sending text only",
			"error", err, "lang", tag.String())
		return nil
	}
	return artifact
}

// dispatch delivers the bundle: the text message always, the audio
// artifact best-effort. Delivery failures are logged only; there is no
// secondary channel to report them on. A cancelled context suppresses
// dispatch entirely so no partial reply goes out.
func (p *Pipeline) dispatch(ctx context.Context, bundle OutboundBundle) {
	if ctx.Err() != nil {
		p.log.WarnContext(ctx, "Context cancelled, skipping dispatch", "chat_id", bundle.ChatID)
		return
	}

	if bundle.Text != "" {
		if err := p.deps.Dispatcher.SendText(ctx, bundle.ChatID, bundle.Text, bundle.ReplyTo); err != nil {
			p.log.ErrorContext(ctx, "Failed to deliver text reply", "error", err, "chat_id", bundle.ChatID)
		}
	}

	if bundle.Audio != nil {
		if err := p.deps.Dispatcher.SendAudio(ctx, bundle.ChatID, bundle.Audio, bundle.ReplyTo); err != nil {
			p.log.ErrorContext(ctx, "Failed to deliver audio reply", "error", err, "chat_id", bundle.ChatID)
		}
	}
}
