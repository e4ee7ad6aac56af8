// Package channels – voice.go is the telephony webhook bridge.
//
// The telephony platform drives the model itself; this endpoint only answers
// two webhook shapes. "assistant-request" fires at call start and returns the
// model configuration (compiled prompt plus offered tools) for this caller.
// "tool-calls" fires whenever the platform's model wants a tool executed.
//
// There is no session: every callback re-resolves the caller from the phone
// number and rebuilds the scope, so a restart mid-call loses nothing.
package channels

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/quintaverde/pai/pkg/pai/assistant"
	"github.com/quintaverde/pai/pkg/pai/directory"
)

// voiceWebhook is the envelope of every telephony webhook.
type voiceWebhook struct {
	Message struct {
		Type string `json:"type"`
		Call struct {
			Customer struct {
				Number string `json:"number"`
			} `json:"customer"`
		} `json:"call"`
		ToolCallList []voiceToolCall `json:"toolCallList"`
	} `json:"message"`
}

// voiceToolCall is one requested tool call. Arguments arrive as a JSON
// object or a pre-serialized string depending on the platform version.
type voiceToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// voiceToolResult is one executed tool result in the webhook reply.
type voiceToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// handleVoice dispatches a telephony webhook by message type.
func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	var hook voiceWebhook
	if err := json.NewDecoder(r.Body).Decode(&hook); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch hook.Message.Type {
	case "assistant-request":
		s.voiceAssistantRequest(w, r, &hook)
	case "tool-calls":
		s.voiceToolCalls(w, r, &hook)
	default:
		// Status updates, transcripts, end-of-call reports: acknowledged,
		// not acted on.
		writeJSON(w, http.StatusOK, map[string]string{})
	}
}

// resolveCaller maps the calling number to an identity. Unknown numbers get
// an empty identity at the base tier.
func (s *Server) resolveCaller(r *http.Request, number string) assistant.Identity {
	digits := directory.NormalizePhoneDigits(number)
	if digits == "" {
		return assistant.Identity{Role: assistant.RoleBase}
	}

	person, err := s.store.PersonByPhoneDigits(r.Context(), digits)
	if err != nil {
		if !errors.Is(err, directory.ErrNotFound) {
			s.logger.Error("phone lookup failed", "error", err)
		}
		return assistant.Identity{Role: assistant.RoleBase, Phone: number}
	}

	return assistant.Identity{
		PersonID:    person.ID,
		DisplayName: person.DisplayName,
		Role:        s.cfg.Voice.RoleForContactType(person.ContactType),
		Phone:       number,
	}
}

// voiceAssistantRequest answers the call-start webhook with the model
// configuration for this caller: system prompt, tool declarations, greeting.
func (s *Server) voiceAssistantRequest(w http.ResponseWriter, r *http.Request, hook *voiceWebhook) {
	identity := s.resolveCaller(r, hook.Message.Call.Customer.Number)

	scope, err := assistant.BuildScope(r.Context(), s.store, identity, s.logger)
	if err != nil {
		s.logger.Error("scope build failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to resolve permissions")
		return
	}

	prompt := assistant.CompilePrompt(scope, s.cfg)
	tools := assistant.OfferedTools(scope)
	if identity.PersonID == "" {
		// Unrecognized callers only get the space search.
		tools = assistant.MinimalTools()
	}

	greeting := "Hello! How can I help you today?"
	if identity.DisplayName != "" {
		greeting = "Hello " + identity.DisplayName + "! How can I help you today?"
	}

	s.logger.Info("voice call starting",
		"person", identity.PersonID,
		"role", identity.Role,
		"tools", len(tools),
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"assistant": map[string]any{
			"firstMessage": greeting,
			"model": map[string]any{
				"provider": "openai",
				"model":    s.cfg.Model,
				"messages": []map[string]string{
					{"role": "system", "content": prompt},
				},
				"tools": tools,
			},
		},
	})
}

// voiceToolCalls executes the platform model's tool calls. Identity and
// scope are re-derived from the calling number on every callback.
func (s *Server) voiceToolCalls(w http.ResponseWriter, r *http.Request, hook *voiceWebhook) {
	identity := s.resolveCaller(r, hook.Message.Call.Customer.Number)

	scope, err := assistant.BuildScope(r.Context(), s.store, identity, s.logger)
	if err != nil {
		s.logger.Error("scope build failed", "error", err)
		writeError(w, http.StatusInternalServerError, "unable to resolve permissions")
		return
	}

	calls := make([]assistant.ToolCall, 0, len(hook.Message.ToolCallList))
	for _, tc := range hook.Message.ToolCallList {
		calls = append(calls, assistant.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: assistant.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: normalizeArguments(tc.Function.Arguments),
			},
		})
	}

	results := s.executor.ExecuteBatch(r.Context(), scope, "voice", calls)

	out := make([]voiceToolResult, len(results))
	for i, res := range results {
		out[i] = voiceToolResult{ToolCallID: res.ToolCallID, Result: res.Content}
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// normalizeArguments accepts arguments as an object or a JSON-encoded
// string and returns the object form as a string.
func normalizeArguments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	// A string payload is double-encoded JSON; unwrap it.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
