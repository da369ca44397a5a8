package pipeline

import (
	"github.com/go-telegram/bot/models"

	"gapbot/internal/speech"
)

// Kind classifies an inbound event by the payload it carries.
type Kind string

const (
	KindText        Kind = "text"
	KindVoice       Kind = "voice"
	KindPhoto       Kind = "photo"
	KindUnsupported Kind = "unsupported"
)

// InboundEvent is the pipeline's view of a single webhook message. It is
// immutable once constructed and discarded when processing completes.
type InboundEvent struct {
	ChatID    int64
	MessageID int
	Kind      Kind

	// Text carries the raw message text for KindText.
	Text string

	// FileID carries the media reference for KindVoice and KindPhoto.
	FileID string
}

// OutboundBundle is the final reply addressed to a chat: a text message
// plus an optional best-effort audio artifact, threaded to the source
// message when ReplyTo is non-zero.
type OutboundBundle struct {
	ChatID  int64
	ReplyTo int
	Text    string
	Audio   *speech.Artifact
}

// EventFromUpdate classifies a Telegram update into an InboundEvent.
// Classification priority: text, then voice/audio, then photo, then
// unsupported. Updates without a message (or edited message) yield nil and
// are acknowledged as a no-op.
func EventFromUpdate(update *models.Update) *InboundEvent {
	if update == nil {
		return nil
	}

	msg := update.Message
	if msg == nil {
		msg = update.EditedMessage
	}
	if msg == nil {
		return nil
	}

	ev := &InboundEvent{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
	}

	switch {
	case msg.Text != "":
		ev.Kind = KindText
		ev.Text = msg.Text
	case msg.Voice != nil && msg.Voice.FileID != "":
		ev.Kind = KindVoice
		ev.FileID = msg.Voice.FileID
	case msg.Audio != nil && msg.Audio.FileID != "":
		ev.Kind = KindVoice
		ev.FileID = msg.Audio.FileID
	case len(msg.Photo) > 0:
		ev.Kind = KindPhoto
		ev.FileID = largestPhoto(msg.Photo).FileID
	default:
		ev.Kind = KindUnsupported
	}

	return ev
}

// largestPhoto selects the variant with the biggest reported area. The
// platform usually orders variants ascending, but the ordering is not a
// contract, so selection goes by width times height.
func largestPhoto(photos []models.PhotoSize) models.PhotoSize {
	best := photos[0]
	bestQuality := best.Width * best.Height
	for _, photo := range photos[1:] {
		if quality := photo.Width * photo.Height; quality > bestQuality {
			bestQuality = quality
			best = photo
		}
	}
	return best
}
