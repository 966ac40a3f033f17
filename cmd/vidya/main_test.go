package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pavelanni/vidya/internal/store"
)

func TestSeedAdmin(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer db.Close()

	if err := seedAdmin(db, ""); err == nil {
		t.Fatal("expected error without a password on an empty database")
	}
	if err := seedAdmin(db, "s3cret-pass"); err != nil {
		t.Fatalf("seedAdmin: %v", err)
	}
	a, err := db.GetAccountByUsername("admin")
	if err != nil || a == nil {
		t.Fatalf("admin account not created: %v", err)
	}
	if !a.IsAdmin || !a.Active {
		t.Errorf("admin = %+v, want active admin", a)
	}

	// Existing accounts make seeding a no-op, even without a password.
	if err := seedAdmin(db, ""); err != nil {
		t.Fatalf("second seedAdmin: %v", err)
	}
	n, err := db.AccountCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("AccountCount = %d, want 1", n)
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := writeJSON(path, map[string]int{"students": 2}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("missing trailing newline")
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["students"] != 2 {
		t.Errorf("got %v", got)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := rootCmd()
	for _, name := range []string{"serve", "generate", "ask", "export"} {
		if c, _, err := root.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if root.Flags().Lookup("llm-key") == nil {
		t.Error("serve flags are not available on the root command")
	}
}
