// Package telegram wraps the go-telegram/bot library behind the two narrow
// surfaces the pipeline needs: fetching platform media and dispatching
// outbound messages.
package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"gapbot/internal/config"
	"gapbot/internal/speech"
)

// MediaFetcher resolves a platform file reference to downloadable bytes.
type MediaFetcher interface {
	// Fetch returns the file content and its detected MIME type.
	Fetch(ctx context.Context, fileID string) ([]byte, string, error)
}

// Dispatcher sends text and audio back to the originating chat. A replyTo
// of 0 sends an unthreaded message.
type Dispatcher interface {
	SendText(ctx context.Context, chatID int64, text string, replyTo int) error
	SendAudio(ctx context.Context, chatID int64, artifact *speech.Artifact, replyTo int) error
	SendTyping(ctx context.Context, chatID int64)
}

var (
	// ErrFetch indicates media could not be resolved or downloaded.
	ErrFetch = errors.New("media fetch error")

	// ErrDispatch indicates an outbound message could not be delivered.
	ErrDispatch = errors.New("dispatch error")
)

// Client implements MediaFetcher and Dispatcher on a shared bot instance.
type Client struct {
	bot        *bot.Bot
	cfg        config.FetchConfig
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a Telegram client from the bot token.
func New(token string, cfg config.FetchConfig, log *slog.Logger, opts ...bot.Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}

	opts = append(opts, bot.WithSkipGetMe())
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Client{
		bot:        b,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log.With("component", "telegram_client"),
	}, nil
}

// Fetch implements MediaFetcher. It resolves the file ID through getFile,
// downloads the content with a bounded size, and detects the MIME type.
// A truncated or empty body is an error, never silent partial data.
func (c *Client) Fetch(ctx context.Context, fileID string) (data []byte, mimeType string, err error) {
	if fileID == "" {
		return nil, "", fmt.Errorf("%w: empty file ID", ErrFetch)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	fileObj, err := c.bot.GetFile(fetchCtx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("%w: getFile failed: %v", ErrFetch, err)
	}
	if fileObj.FilePath == "" {
		return nil, "", fmt.Errorf("%w: empty file path for file ID %s", ErrFetch, fileID)
	}

	url := c.bot.FileDownloadLink(fileObj)
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: download failed: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("%w: status %d: %s", ErrFetch, resp.StatusCode, string(body))
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read failed: %v", ErrFetch, err)
	}
	if int64(len(data)) > c.cfg.MaxBytes {
		return nil, "", fmt.Errorf("%w: file exceeds %d bytes", ErrFetch, c.cfg.MaxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty file data", ErrFetch)
	}

	return data, http.DetectContentType(data), nil
}

// SendText implements Dispatcher.
func (c *Client) SendText(ctx context.Context, chatID int64, text string, replyTo int) error {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if replyTo > 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("%w: sendMessage failed: %v", ErrDispatch, err)
	}
	return nil
}

// SendAudio implements Dispatcher.
func (c *Client) SendAudio(ctx context.Context, chatID int64, artifact *speech.Artifact, replyTo int) error {
	if artifact == nil || len(artifact.Data) == 0 {
		return fmt.Errorf("%w: empty audio artifact", ErrDispatch)
	}

	params := &bot.SendAudioParams{
		ChatID: chatID,
		Audio: &models.InputFileUpload{
			Filename: artifact.Filename,
			Data:     bytes.NewReader(artifact.Data),
		},
	}
	if replyTo > 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	if _, err := c.bot.SendAudio(ctx, params); err != nil {
		return fmt.Errorf("%w: sendAudio failed: %v", ErrDispatch, err)
	}
	return nil
}

// SendTyping implements Dispatcher. The typing action is cosmetic; failure
// is logged and never propagated.
func (c *Client) SendTyping(ctx context.Context, chatID int64) {
	_, err := c.bot.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	if err != nil {
		c.log.WarnContext(ctx, "Failed to send typing action", "error", err, "chat_id", chatID)
	}
}
