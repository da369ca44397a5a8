package pipeline

import (
	"testing"

	"github.com/go-telegram/bot/models"
)

func updateWithText(chatID int64, messageID int, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   messageID,
			Chat: models.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestEventFromUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		update   *models.Update
		wantKind Kind
		wantText string
		wantFile string
		wantNil  bool
	}{
		{
			name:    "nil update",
			update:  nil,
			wantNil: true,
		},
		{
			name:    "update without message",
			update:  &models.Update{},
			wantNil: true,
		},
		{
			name:     "text message",
			update:   updateWithText(1, 2, "hello"),
			wantKind: KindText,
			wantText: "hello",
		},
		{
			name: "edited message treated like message",
			update: &models.Update{
				EditedMessage: &models.Message{
					ID:   3,
					Chat: models.Chat{ID: 1},
					Text: "edited",
				},
			},
			wantKind: KindText,
			wantText: "edited",
		},
		{
			name: "voice message",
			update: &models.Update{
				Message: &models.Message{
					ID:    4,
					Chat:  models.Chat{ID: 1},
					Voice: &models.Voice{FileID: "voice-1"},
				},
			},
			wantKind: KindVoice,
			wantFile: "voice-1",
		},
		{
			name: "audio message classified as voice",
			update: &models.Update{
				Message: &models.Message{
					ID:    5,
					Chat:  models.Chat{ID: 1},
					Audio: &models.Audio{FileID: "audio-1"},
				},
			},
			wantKind: KindVoice,
			wantFile: "audio-1",
		},
		{
			name: "text takes priority over voice",
			update: &models.Update{
				Message: &models.Message{
					ID:    6,
					Chat:  models.Chat{ID: 1},
					Text:  "caption text",
					Voice: &models.Voice{FileID: "voice-1"},
				},
			},
			wantKind: KindText,
			wantText: "caption text",
		},
		{
			name: "voice takes priority over photo",
			update: &models.Update{
				Message: &models.Message{
					ID:    7,
					Chat:  models.Chat{ID: 1},
					Voice: &models.Voice{FileID: "voice-1"},
					Photo: []models.PhotoSize{{FileID: "photo-1", Width: 10, Height: 10}},
				},
			},
			wantKind: KindVoice,
			wantFile: "voice-1",
		},
		{
			name: "photo message selects largest variant by area",
			update: &models.Update{
				Message: &models.Message{
					ID:   8,
					Chat: models.Chat{ID: 1},
					Photo: []models.PhotoSize{
						{FileID: "small", Width: 90, Height: 90},
						{FileID: "large", Width: 800, Height: 600},
						{FileID: "medium", Width: 320, Height: 240},
					},
				},
			},
			wantKind: KindPhoto,
			wantFile: "large",
		},
		{
			name: "sticker message is unsupported",
			update: &models.Update{
				Message: &models.Message{
					ID:   9,
					Chat: models.Chat{ID: 1},
				},
			},
			wantKind: KindUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := EventFromUpdate(tt.update)
			if tt.wantNil {
				if ev != nil {
					t.Fatalf("expected nil event, got %+v", ev)
				}
				return
			}
			if ev == nil {
				t.Fatal("expected event, got nil")
			}
			if ev.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", ev.Kind, tt.wantKind)
			}
			if ev.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", ev.Text, tt.wantText)
			}
			if ev.FileID != tt.wantFile {
				t.Errorf("FileID = %q, want %q", ev.FileID, tt.wantFile)
			}
		})
	}
}
