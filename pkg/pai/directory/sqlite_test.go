package directory

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) Store {
	t.Helper()
	store, err := OpenSQLite(Config{Path: filepath.Join(t.TempDir(), "directory.db")})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedTestData(t *testing.T, store Store) {
	t.Helper()
	db := store.(*sqlStore).db
	stmts := []struct {
		q    string
		args []any
	}{
		{`INSERT INTO people (id, display_name, phone, phone_digits, contact_type, role) VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{"p1", "Maya Torres", "+1 (555) 010-2020", "5550102020", "tenant", "resident"}},
		{`INSERT INTO people (id, display_name, phone, phone_digits, contact_type, role) VALUES (?, ?, ?, ?, ?, ?)`,
			[]any{"p2", "Sam Ruiz", "", "", "staff", "staff"}},
		{`INSERT INTO spaces (id, name, parent_id, is_dwelling, archived) VALUES (?, ?, NULL, ?, ?)`,
			[]any{"estate", "Main Estate", 0, 0}},
		{`INSERT INTO spaces (id, name, parent_id, is_dwelling, archived) VALUES (?, ?, ?, ?, ?)`,
			[]any{"unit-2", "Unit 2", "estate", 1, 0}},
		{`INSERT INTO spaces (id, name, parent_id, is_dwelling, archived) VALUES (?, ?, ?, ?, ?)`,
			[]any{"old-shed", "Old Shed", "estate", 0, 1}},
		{`INSERT INTO assignments (id, person_id, space_id, status) VALUES (?, ?, ?, ?)`,
			[]any{"a1", "p1", "unit-2", StatusActive}},
		{`INSERT INTO assignments (id, person_id, space_id, status) VALUES (?, ?, ?, ?)`,
			[]any{"a2", "p1", "estate", "terminated"}},
		{`INSERT INTO lighting_groups (id, name, space_id, vendor_id, model) VALUES (?, ?, ?, ?, ?)`,
			[]any{"lg1", "Kitchen", "estate", "dev-kitchen-1", "H6159"}},
		{`INSERT INTO thermostats (id, name, space_id, vendor_id, min_role) VALUES (?, ?, ?, ?, ?)`,
			[]any{"th1", "Main Floor", "estate", "tstat-1", "admin"}},
		{`INSERT INTO api_tokens (token, person_id, expires_at) VALUES (?, ?, NULL)`,
			[]any{"tok-maya", "p1"}},
	}
	for _, s := range stmts {
		if _, err := db.Exec(s.q, s.args...); err != nil {
			t.Fatalf("seed %q: %v", s.q, err)
		}
	}
}

func TestSQLitePersonByToken(t *testing.T) {
	store := openTestStore(t)
	seedTestData(t, store)
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		p, err := store.PersonByToken(ctx, "tok-maya")
		if err != nil {
			t.Fatalf("PersonByToken: %v", err)
		}
		if p.ID != "p1" || p.Role != "resident" {
			t.Errorf("unexpected person: %+v", p)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		if _, err := store.PersonByToken(ctx, "nope"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		db := store.(*sqlStore).db
		past := time.Now().Add(-time.Hour)
		if _, err := db.Exec(
			`INSERT INTO api_tokens (token, person_id, expires_at) VALUES (?, ?, ?)`,
			"tok-old", "p1", past); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if _, err := store.PersonByToken(ctx, "tok-old"); err != ErrNotFound {
			t.Errorf("expected ErrNotFound for expired token, got %v", err)
		}
	})
}

func TestSQLitePersonByPhoneDigits(t *testing.T) {
	store := openTestStore(t)
	seedTestData(t, store)
	ctx := context.Background()

	p, err := store.PersonByPhoneDigits(ctx, "5550102020")
	if err != nil {
		t.Fatalf("PersonByPhoneDigits: %v", err)
	}
	if p.DisplayName != "Maya Torres" {
		t.Errorf("unexpected person: %+v", p)
	}

	if _, err := store.PersonByPhoneDigits(ctx, "0000000000"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	// Empty digits must never match people without a phone on file.
	if _, err := store.PersonByPhoneDigits(ctx, ""); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for empty digits, got %v", err)
	}
}

func TestSQLiteActiveAssignments(t *testing.T) {
	store := openTestStore(t)
	seedTestData(t, store)

	got, err := store.ActiveAssignments(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ActiveAssignments: %v", err)
	}
	if len(got) != 1 || got[0].SpaceID != "unit-2" {
		t.Errorf("expected only the active unit-2 assignment, got %+v", got)
	}
}

func TestSQLiteSpacesExcludeArchived(t *testing.T) {
	store := openTestStore(t)
	seedTestData(t, store)

	spaces, err := store.Spaces(context.Background())
	if err != nil {
		t.Fatalf("Spaces: %v", err)
	}
	for _, sp := range spaces {
		if sp.ID == "old-shed" {
			t.Error("archived space returned")
		}
	}
	if len(spaces) != 2 {
		t.Errorf("expected 2 spaces, got %d", len(spaces))
	}
}

func TestSQLiteSearchSpaces(t *testing.T) {
	store := openTestStore(t)
	seedTestData(t, store)

	got, err := store.SearchSpaces(context.Background(), "unit")
	if err != nil {
		t.Fatalf("SearchSpaces: %v", err)
	}
	if len(got) != 1 || got[0].ID != "unit-2" {
		t.Errorf("expected unit-2, got %+v", got)
	}
}

func TestSQLiteDevicesAndWrites(t *testing.T) {
	store := openTestStore(t)
	seedTestData(t, store)
	ctx := context.Background()

	groups, err := store.LightingGroups(ctx)
	if err != nil || len(groups) != 1 || groups[0].VendorID != "dev-kitchen-1" {
		t.Fatalf("LightingGroups: %v %+v", err, groups)
	}

	tstats, err := store.Thermostats(ctx)
	if err != nil || len(tstats) != 1 || tstats[0].MinRole != "admin" {
		t.Fatalf("Thermostats: %v %+v", err, tstats)
	}

	if err := store.CreateFeatureRequest(ctx, FeatureRequest{
		ID: "fr1", PersonID: "p1", Title: "pool heater control",
	}); err != nil {
		t.Fatalf("CreateFeatureRequest: %v", err)
	}

	if err := store.RecordAction(ctx, ActionRecord{
		ID: "act1", PersonID: "p1", Channel: "chat",
		Tool: "control_lights", Target: "Kitchen", Result: "turned on",
	}); err != nil {
		t.Fatalf("RecordAction: %v", err)
	}

	db := store.(*sqlStore).db
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM actions`).Scan(&n); err != nil || n != 1 {
		t.Errorf("expected 1 audit row, got %d (%v)", n, err)
	}
}

func TestBindDollar(t *testing.T) {
	got := bindDollar("SELECT ? WHERE a = ? AND b IN (?, ?)")
	want := "SELECT $1 WHERE a = $2 AND b IN ($3, $4)"
	if got != want {
		t.Errorf("bindDollar = %q, want %q", got, want)
	}
}

func TestNormalizePhoneDigits(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 010-2020", "5550102020"},
		{"15550102020", "5550102020"},
		{"555-0102", "5550102"},
		{"", ""},
		{"ext. 42", "42"},
	}
	for _, tt := range tests {
		if got := NormalizePhoneDigits(tt.in); got != tt.want {
			t.Errorf("NormalizePhoneDigits(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Guard against the backends losing the Store shape.
var _ Store = (*sqlStore)(nil)
var _ Store = (*MemoryStore)(nil)
