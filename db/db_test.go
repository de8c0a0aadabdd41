package db

import (
	"testing"
)

func TestRebind(t *testing.T) {
	query := "SELECT id FROM notes WHERE tenant_id = ? AND id = ?"

	// Test case 1: MySQL keeps question marks
	t.Run("MySQL keeps placeholders", func(t *testing.T) {
		if got := MySQL.Rebind(query); got != query {
			t.Errorf("Rebind returned wrong query: got %v want %v", got, query)
		}
	})

	// Test case 2: Postgres numbers them
	t.Run("Postgres numbers placeholders", func(t *testing.T) {
		want := "SELECT id FROM notes WHERE tenant_id = $1 AND id = $2"
		if got := Postgres.Rebind(query); got != want {
			t.Errorf("Rebind returned wrong query: got %v want %v", got, want)
		}
	})
}

func TestDialectFor(t *testing.T) {
	for _, name := range []string{"mysql", "postgres"} {
		d, err := DialectFor(name)
		if err != nil {
			t.Fatalf("DialectFor(%q) failed: %v", name, err)
		}
		if d.Name != name {
			t.Errorf("DialectFor(%q) returned %v", name, d.Name)
		}
	}

	if _, err := DialectFor("memory"); err == nil {
		t.Errorf("DialectFor(memory) should fail")
	}
}
