// Package channels implements the HTTP front doors to the assistant core:
// the authenticated chat endpoint and the telephony voice webhook. Both are
// thin bridges — identity resolution, scope building, and the conversation
// loop all live in the assistant package and run fresh per request.
package channels

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/quintaverde/pai/pkg/pai/assistant"
	"github.com/quintaverde/pai/pkg/pai/directory"
)

// Server hosts the chat and voice endpoints.
type Server struct {
	cfg      *assistant.Config
	store    directory.Store
	conv     *assistant.Conversation
	executor *assistant.ToolExecutor
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates the channel server.
func NewServer(cfg *assistant.Config, store directory.Store, conv *assistant.Conversation, executor *assistant.ToolExecutor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		conv:     conv,
		executor: executor,
		logger:   logger.With("component", "channels"),
	}
}

// Handler builds the route mux. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/webhooks/voice", s.handleVoice)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

// Start begins serving. Non-blocking; errors after startup are logged.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // a turn can span several model calls
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("channel server starting", "address", addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("channel server error", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
		s.logger.Info("channel server stopped")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
