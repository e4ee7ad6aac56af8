package assistant

import (
	"context"
	"strings"
	"testing"
)

func TestCompilePromptIdentifiedCaller(t *testing.T) {
	store := seedStore()
	cfg := DefaultConfig()
	cfg.PropertyInfo = "Quiet hours 10pm-8am."

	scope, err := BuildScope(context.Background(), store,
		Identity{PersonID: "alice", DisplayName: "Alice", Role: RoleResident}, testLogger())
	if err != nil {
		t.Fatal(err)
	}

	prompt := CompilePrompt(scope, cfg)

	if !strings.Contains(prompt, "Alice") {
		t.Error("prompt missing caller name")
	}
	if !strings.Contains(prompt, "Unit A Lights") {
		t.Error("prompt missing accessible lighting")
	}
	if !strings.Contains(prompt, "Lounge Lights (id: lg-lounge) [common area]") {
		t.Error("prompt missing common-area tag")
	}
	if strings.Contains(prompt, "Unit B") {
		t.Error("prompt leaks another dwelling's devices")
	}
	if !strings.Contains(prompt, "Quiet hours") {
		t.Error("prompt missing property info")
	}
}

func TestCompilePromptUnidentifiedCaller(t *testing.T) {
	cfg := DefaultConfig()
	scope := &Scope{Identity: Identity{Role: RoleBase}}

	prompt := CompilePrompt(scope, cfg)

	if !strings.Contains(prompt, "has not been identified") {
		t.Error("prompt should state the caller is unidentified")
	}
	// Empty categories render no section headers at all.
	for _, header := range []string{"Lighting groups", "Thermostats", "Vehicles", "Camera feeds"} {
		if strings.Contains(prompt, header) {
			t.Errorf("empty category rendered header %q", header)
		}
	}
}

func TestCompilePromptDeterministic(t *testing.T) {
	store := seedStore()
	cfg := DefaultConfig()
	identity := Identity{PersonID: "alice", DisplayName: "Alice", Role: RoleResident}

	scope1, _ := BuildScope(context.Background(), store, identity, testLogger())
	scope2, _ := BuildScope(context.Background(), store, identity, testLogger())

	if CompilePrompt(scope1, cfg) != CompilePrompt(scope2, cfg) {
		t.Error("same scope should compile to the same prompt")
	}
}
