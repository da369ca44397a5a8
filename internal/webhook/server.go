// Package webhook implements the inbound HTTP surface of the bot: a single
// endpoint receiving Telegram update envelopes, plus liveness routes.
//
// The endpoint always acknowledges receipt with HTTP 200 regardless of the
// internal outcome, so the platform never retry-storms on processing
// failures.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-telegram/bot/models"

	"gapbot/internal/config"
)

// Processor consumes classified webhook updates. Implemented by the
// message pipeline.
type Processor interface {
	HandleUpdate(ctx context.Context, update *models.Update)
}

const (
	// maxBodyBytes bounds the accepted envelope size; Telegram updates are
	// small JSON documents.
	maxBodyBytes = 1 << 20

	// processTimeout caps a single webhook invocation end to end, covering
	// the slowest chain of fetch, transcription, completion and synthesis.
	processTimeout = 3 * time.Minute

	shutdownTimeout = 10 * time.Second
)

// Server is the webhook HTTP server.
type Server struct {
	httpServer *http.Server
	processor  Processor
	log        *slog.Logger
}

// New creates a webhook server routing the configured path to the
// processor.
func New(cfg config.ServerConfig, processor Processor, log *slog.Logger) *Server {
	s := &Server{
		processor: processor,
		log:       log.With("component", "webhook_server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleHome)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST "+cfg.WebhookPath, s.handleUpdate)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Webhook server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown failed: %w", err)
	}
	return <-errCh
}

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "gapbot is running\n")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	io.WriteString(w, "OK")
}

// handleUpdate decodes the update envelope and drives it through the
// processor synchronously on the request context. Undecodable bodies are
// acknowledged as a no-op.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var update models.Update
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&update)
	if err != nil {
		s.log.WarnContext(r.Context(), "Undecodable webhook body, acknowledging as no-op", "error", err)
		s.acknowledge(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), processTimeout)
	defer cancel()

	s.processor.HandleUpdate(ctx, &update)

	s.log.InfoContext(ctx, "Finished processing update",
		"update_id", update.ID, "duration", time.Since(start))
	s.acknowledge(w)
}

func (s *Server) acknowledge(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"ok":true}`)
}
