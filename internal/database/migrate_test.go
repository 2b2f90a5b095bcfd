package database

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrateRejectsBadInput(t *testing.T) {
	if err := Migrate("", DirectionUp); err == nil {
		t.Fatal("expected error for empty DSN")
	}
	if err := Migrate("postgres://localhost/db", "sideways"); err == nil || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("expected direction error, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	if len(names) == 0 || len(names)%2 != 0 {
		t.Fatalf("expected paired up/down migrations, got %v", names)
	}

	up, err := fs.ReadFile(migrationFS, "migrations/000001_create_users.up.sql")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	for _, want := range []string{"users_email_key", "users_username_key", "users_phone_key"} {
		if !strings.Contains(string(up), want) {
			t.Errorf("schema missing constraint %s", want)
		}
	}
}
