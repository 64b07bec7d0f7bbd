package migrations

import (
	"fmt"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

func TestEmbeddedMigrations(t *testing.T) {
	src, err := iofs.New(sqlFS, "sql")
	if err != nil {
		t.Fatalf("open embedded migrations: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil {
		t.Fatalf("read first migration: %v", err)
	}
	if first != 1 {
		t.Fatalf("expected first migration version 1, got %d", first)
	}

	up, ident, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("read up migration: %v", err)
	}
	defer up.Close()
	if ident != "create_intake_requests" {
		t.Fatalf("unexpected migration identifier %q", ident)
	}
}

func TestIsDirty(t *testing.T) {
	if !IsDirty(fmt.Errorf("apply: %w", migrate.ErrDirty{Version: 1})) {
		t.Fatal("expected wrapped ErrDirty to be detected")
	}
	if IsDirty(migrate.ErrNoChange) {
		t.Fatal("ErrNoChange is not a dirty error")
	}
}
