// Package channels – chat.go is the authenticated chat bridge.
package channels

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/quintaverde/pai/pkg/pai/assistant"
	"github.com/quintaverde/pai/pkg/pai/directory"
)

// chatRequest is one chat turn from a client.
type chatRequest struct {
	Message string           `json:"message"`
	History []assistant.Turn `json:"history,omitempty"`
}

// chatResponse is the turn's outcome.
type chatResponse struct {
	Reply   string                     `json:"reply"`
	Actions []assistant.ActionLogEntry `json:"actions,omitempty"`
}

// handleChat runs one authenticated chat turn. The client owns the
// conversation history and sends it with every request; the server keeps
// no session state.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	person, err := s.store.PersonByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		s.logger.Error("token lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "authentication unavailable")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	identity := assistant.Identity{
		PersonID:    person.ID,
		DisplayName: person.DisplayName,
		Role:        assistant.ParseRole(person.Role),
	}

	scope, err := assistant.BuildScope(r.Context(), s.store, identity, s.logger)
	if err != nil {
		s.logger.Error("scope build failed", "person", person.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "unable to resolve permissions")
		return
	}

	prompt := assistant.CompilePrompt(scope, s.cfg)
	tools := assistant.OfferedTools(scope)

	outcome, err := s.conv.Converse(r.Context(), prompt, tools, req.History, req.Message, "chat", scope)
	if err != nil {
		// Model failures are not the caller's fault; answer with an apology
		// instead of surfacing provider errors.
		s.logger.Error("turn failed", "person", person.ID, "error", err)
		writeJSON(w, http.StatusOK, chatResponse{
			Reply: "Sorry, I'm having trouble responding right now. Please try again in a moment.",
		})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:   outcome.Reply,
		Actions: outcome.Actions,
	})
}

// bearerToken extracts the Authorization bearer credential.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
