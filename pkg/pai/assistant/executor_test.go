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

	"github.com/quintaverde/pai/pkg/pai/devices"
	"github.com/quintaverde/pai/pkg/pai/directory"
)

// lightingCapture records every lighting control request the executor sends.
type lightingCapture struct {
	mu       sync.Mutex
	requests []map[string]any
	// stateOn is the power state reported by /device/state.
	stateOn bool
}

func (lc *lightingCapture) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}

		switch r.URL.Path {
		case "/device/control":
			lc.mu.Lock()
			lc.requests = append(lc.requests, body)
			lc.mu.Unlock()
			w.Write([]byte(`{"code":200,"message":"ok"}`))
		case "/device/state":
			power := 0
			if lc.stateOn {
				power = 1
			}
			resp := map[string]any{
				"code": 200,
				"payload": map[string]any{
					"capabilities": []map[string]any{
						{"instance": "powerSwitch", "state": map[string]any{"value": power}},
						{"instance": "brightness", "state": map[string]any{"value": 50}},
					},
				},
			}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}
}

// instanceOf pulls the capability instance out of a captured control request.
func instanceOf(req map[string]any) string {
	payload, _ := req["payload"].(map[string]any)
	capability, _ := payload["capability"].(map[string]any)
	instance, _ := capability["instance"].(string)
	return instance
}

func testExecutor(t *testing.T, store directory.Store, lightingURL string) *ToolExecutor {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Devices.Lighting.BaseURL = lightingURL
	cfg.Devices.LightingSettleMS = 1

	e := NewToolExecutor(devices.NewClients(cfg.Devices), store, cfg, testLogger())
	e.sleep = func(time.Duration) {}
	return e
}

func callFor(kind ToolKind, args string) ToolCall {
	return ToolCall{
		ID:   "call_1",
		Type: "function",
		Function: FunctionCall{
			Name:      kind.Name(),
			Arguments: args,
		},
	}
}

func residentScope(t *testing.T, store directory.Store) *Scope {
	t.Helper()
	scope, err := BuildScope(context.Background(), store,
		Identity{PersonID: "alice", DisplayName: "Alice", Role: RoleResident}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return scope
}

func TestExecuteDeniedMakesNoDeviceCalls(t *testing.T) {
	store := seedStore()
	lc := &lightingCapture{}
	srv := httptest.NewServer(lc.handler(t))
	defer srv.Close()

	e := testExecutor(t, store, srv.URL)
	scope := residentScope(t, store)

	// lg-b belongs to another dwelling; Alice's scope excludes it.
	results := e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		callFor(ToolControlLights, `{"group_id":"lg-b","power":"on"}`),
	})

	if len(results) != 1 {
		t.Fatalf("results = %d", len(results))
	}
	if !strings.Contains(strings.ToLower(results[0].Content), "denied") {
		t.Errorf("result should say denied, got %q", results[0].Content)
	}
	if len(lc.requests) != 0 {
		t.Errorf("denied call reached the device API (%d requests)", len(lc.requests))
	}
}

func TestExecuteColorOnPoweredOffGroup(t *testing.T) {
	store := seedStore()
	lc := &lightingCapture{stateOn: false}
	srv := httptest.NewServer(lc.handler(t))
	defer srv.Close()

	e := testExecutor(t, store, srv.URL)
	scope := residentScope(t, store)

	results := e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		callFor(ToolControlLights, `{"group_id":"lg-a","color":"red"}`),
	})

	if strings.Contains(strings.ToLower(results[0].Content), "denied") {
		t.Fatalf("unexpected denial: %q", results[0].Content)
	}

	// Power-on must land before the color change.
	if len(lc.requests) != 2 {
		t.Fatalf("control requests = %d, want 2 (power then color)", len(lc.requests))
	}
	if got := instanceOf(lc.requests[0]); got != "powerSwitch" {
		t.Errorf("first request instance = %q, want powerSwitch", got)
	}
	if got := instanceOf(lc.requests[1]); got != "colorRgb" {
		t.Errorf("second request instance = %q, want colorRgb", got)
	}
}

func TestExecuteColorOnPoweredOnGroup(t *testing.T) {
	store := seedStore()
	lc := &lightingCapture{stateOn: true}
	srv := httptest.NewServer(lc.handler(t))
	defer srv.Close()

	e := testExecutor(t, store, srv.URL)
	scope := residentScope(t, store)

	e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		callFor(ToolControlLights, `{"group_id":"lg-a","color":"blue"}`),
	})

	// Already on: color goes straight through, no power command.
	if len(lc.requests) != 1 {
		t.Fatalf("control requests = %d, want 1", len(lc.requests))
	}
	if got := instanceOf(lc.requests[0]); got != "colorRgb" {
		t.Errorf("instance = %q, want colorRgb", got)
	}
}

func TestExecuteSendLinkWithoutPhone(t *testing.T) {
	store := seedStore()
	e := testExecutor(t, store, "http://unused.invalid")
	scope := residentScope(t, store) // chat identity: no phone

	results := e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		callFor(ToolSendLink, `{"url":"https://example.com/apply"}`),
	})

	if !strings.Contains(strings.ToLower(results[0].Content), "denied") {
		t.Errorf("send_link without phone should deny, got %q", results[0].Content)
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	store := seedStore()
	e := testExecutor(t, store, "http://unused.invalid")
	scope := residentScope(t, store)

	results := e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		{ID: "x", Function: FunctionCall{Name: "rm_rf", Arguments: "{}"}},
	})
	if !strings.Contains(results[0].Content, "Unknown tool") {
		t.Errorf("got %q", results[0].Content)
	}
}

func TestExecuteBuildFeature(t *testing.T) {
	store := seedStore()
	e := testExecutor(t, store, "http://unused.invalid")
	scope := residentScope(t, store)

	results := e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		callFor(ToolBuildFeature, `{"description":"let me schedule the sauna"}`),
	})

	if !strings.Contains(results[0].Content, "filed") {
		t.Errorf("got %q", results[0].Content)
	}
	if len(store.FeatureRequests) != 1 {
		t.Fatalf("feature requests = %d, want 1", len(store.FeatureRequests))
	}
	if store.FeatureRequests[0].PersonID != "alice" {
		t.Errorf("PersonID = %q", store.FeatureRequests[0].PersonID)
	}
}

func TestExecuteSearchSpaces(t *testing.T) {
	store := seedStore()
	e := testExecutor(t, store, "http://unused.invalid")
	scope := residentScope(t, store)

	results := e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		callFor(ToolSearchSpaces, `{"query":"unit"}`),
	})
	if !strings.Contains(results[0].Content, "Unit A") || !strings.Contains(results[0].Content, "Unit B") {
		t.Errorf("search should list matching units, got %q", results[0].Content)
	}
}

func TestExecuteBatchPreservesOrder(t *testing.T) {
	store := seedStore()
	e := testExecutor(t, store, "http://unused.invalid")
	scope := residentScope(t, store)

	results := e.ExecuteBatch(context.Background(), scope, "chat", []ToolCall{
		{ID: "c1", Function: FunctionCall{Name: "search_spaces", Arguments: `{"query":"unit a"}`}},
		{ID: "c2", Function: FunctionCall{Name: "search_spaces", Arguments: `{"query":"lounge"}`}},
	})

	if results[0].ToolCallID != "c1" || results[1].ToolCallID != "c2" {
		t.Errorf("results out of order: %q, %q", results[0].ToolCallID, results[1].ToolCallID)
	}
}

func TestExecuteRecordsAudit(t *testing.T) {
	store := seedStore()
	e := testExecutor(t, store, "http://unused.invalid")
	scope := residentScope(t, store)

	e.ExecuteBatch(context.Background(), scope, "voice", []ToolCall{
		callFor(ToolSearchSpaces, `{"query":"unit"}`),
	})

	if len(store.Actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(store.Actions))
	}
	rec := store.Actions[0]
	if rec.Tool != "search_spaces" || rec.Channel != "voice" || rec.PersonID != "alice" {
		t.Errorf("audit record = %+v", rec)
	}
}
