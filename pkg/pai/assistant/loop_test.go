package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// scriptedModel serves canned chat-completion responses in order, repeating
// the last one once the script runs out.
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	calls     int
	requests  []chatRequest
}

func (s *scriptedModel) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		i := s.calls
		s.calls++
		if i >= len(s.responses) {
			i = len(s.responses) - 1
		}
		resp := s.responses[i]
		s.mu.Unlock()
		w.Write([]byte(resp))
	}
}

func textResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{
			"message":       map[string]any{"content": text},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

func toolCallResponse(id, name, args string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{{
			"message": map[string]any{
				"content": "",
				"tool_calls": []map[string]any{{
					"id":   id,
					"type": "function",
					"function": map[string]any{
						"name":      name,
						"arguments": args,
					},
				}},
			},
			"finish_reason": "tool_calls",
		}},
	})
	return string(b)
}

func testConversation(t *testing.T, model *scriptedModel) (*Conversation, *Scope, func()) {
	t.Helper()
	store := seedStore()

	modelSrv := httptest.NewServer(model.handler(t))

	cfg := DefaultConfig()
	cfg.API.BaseURL = modelSrv.URL
	cfg.API.APIKey = "test-key"
	cfg.Devices.LightingSettleMS = 1

	llm := NewLLMClient(cfg, testLogger())
	llm.sleep = func(time.Duration) {}

	exec := testExecutor(t, store, "http://unused.invalid")

	conv := NewConversation(llm, exec, cfg, testLogger())
	scope := residentScope(t, store)
	return conv, scope, modelSrv.Close
}

func TestConverseTextEndsTurn(t *testing.T) {
	model := &scriptedModel{responses: []string{textResponse("The lounge is open until 10pm.")}}
	conv, scope, done := testConversation(t, model)
	defer done()

	outcome, err := conv.Converse(context.Background(), "system", MinimalTools(),
		nil, "when does the lounge close?", "chat", scope)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Reply != "The lounge is open until 10pm." {
		t.Errorf("Reply = %q", outcome.Reply)
	}
	if model.calls != 1 {
		t.Errorf("model calls = %d, want 1", model.calls)
	}
	if len(outcome.Actions) != 0 {
		t.Errorf("actions = %d, want 0", len(outcome.Actions))
	}
}

func TestConverseToolRoundThenText(t *testing.T) {
	model := &scriptedModel{responses: []string{
		toolCallResponse("call_1", "search_spaces", `{"query":"unit"}`),
		textResponse("Both units are on this property."),
	}}
	conv, scope, done := testConversation(t, model)
	defer done()

	outcome, err := conv.Converse(context.Background(), "system", MinimalTools(),
		nil, "what units are there?", "chat", scope)
	if err != nil {
		t.Fatal(err)
	}
	if model.calls != 2 {
		t.Errorf("model calls = %d, want 2", model.calls)
	}
	if len(outcome.Actions) != 1 || outcome.Actions[0].Tool != "search_spaces" {
		t.Errorf("actions = %+v", outcome.Actions)
	}
	if outcome.Reply != "Both units are on this property." {
		t.Errorf("Reply = %q", outcome.Reply)
	}

	// Second request must carry the tool result back to the model.
	second := model.requests[1]
	var sawToolMsg bool
	for _, m := range second.Messages {
		if m.Role == "tool" && m.ToolCallID == "call_1" {
			sawToolMsg = true
		}
	}
	if !sawToolMsg {
		t.Error("tool result not fed back to the model")
	}
}

func TestConverseRoundLimit(t *testing.T) {
	// The model calls tools forever; the loop must stop at MaxRounds and
	// synthesize a reply from the action log.
	model := &scriptedModel{responses: []string{
		toolCallResponse("call_x", "search_spaces", `{"query":"unit"}`),
	}}
	conv, scope, done := testConversation(t, model)
	defer done()

	outcome, err := conv.Converse(context.Background(), "system", MinimalTools(),
		nil, "keep searching", "chat", scope)
	if err != nil {
		t.Fatal(err)
	}
	if model.calls != 3 {
		t.Errorf("model calls = %d, want 3 (round limit)", model.calls)
	}
	if len(outcome.Actions) != 3 {
		t.Errorf("actions = %d, want 3", len(outcome.Actions))
	}
	if !strings.Contains(outcome.Reply, "Here's what I did") {
		t.Errorf("fallback reply = %q", outcome.Reply)
	}
}

func TestConverseHistoryWindow(t *testing.T) {
	model := &scriptedModel{responses: []string{textResponse("ok")}}
	conv, scope, done := testConversation(t, model)
	defer done()

	history := make([]Turn, 30)
	for i := range history {
		history[i] = Turn{Role: "user", Text: "old message"}
	}

	if _, err := conv.Converse(context.Background(), "system", nil,
		history, "new message", "chat", scope); err != nil {
		t.Fatal(err)
	}

	// system + 20-turn window + new message.
	got := len(model.requests[0].Messages)
	if got != 22 {
		t.Errorf("messages sent = %d, want 22", got)
	}
}

func TestConverseModelFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := seedStore()
	cfg := DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.API.APIKey = "test-key"

	llm := NewLLMClient(cfg, testLogger())
	llm.sleep = func(time.Duration) {}
	conv := NewConversation(llm, testExecutor(t, store, "http://unused.invalid"), cfg, testLogger())

	scope := residentScope(t, store)
	if _, err := conv.Converse(context.Background(), "system", nil, nil, "hi", "chat", scope); err == nil {
		t.Fatal("expected error from failed model call")
	}
}

func TestConverseEndToEndLights(t *testing.T) {
	// Kitchen-style request: the model turns on the caller's unit lights,
	// then confirms.
	model := &scriptedModel{responses: []string{
		toolCallResponse("call_1", "control_lights", `{"group_id":"lg-a","power":"on"}`),
		textResponse("Unit A lights are on."),
	}}

	store := seedStore()
	lc := &lightingCapture{}
	lightingSrv := httptest.NewServer(lc.handler(t))
	defer lightingSrv.Close()

	modelSrv := httptest.NewServer(model.handler(t))
	defer modelSrv.Close()

	cfg := DefaultConfig()
	cfg.API.BaseURL = modelSrv.URL
	cfg.API.APIKey = "test-key"
	cfg.Devices.Lighting.BaseURL = lightingSrv.URL
	cfg.Devices.LightingSettleMS = 1

	llm := NewLLMClient(cfg, testLogger())
	llm.sleep = func(time.Duration) {}
	conv := NewConversation(llm, testExecutor(t, store, lightingSrv.URL), cfg, testLogger())

	scope := residentScope(t, store)
	outcome, err := conv.Converse(context.Background(),
		CompilePrompt(scope, cfg), OfferedTools(scope),
		nil, "turn on my lights", "chat", scope)
	if err != nil {
		t.Fatal(err)
	}

	if outcome.Reply != "Unit A lights are on." {
		t.Errorf("Reply = %q", outcome.Reply)
	}
	if len(lc.requests) != 1 {
		t.Fatalf("device requests = %d, want 1", len(lc.requests))
	}
	if got := instanceOf(lc.requests[0]); got != "powerSwitch" {
		t.Errorf("instance = %q", got)
	}
}
