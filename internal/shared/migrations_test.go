package shared

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"
)

func TestParseMigrationName(t *testing.T) {
	tests := []struct {
		file    string
		version int
		name    string
		dir     string
		ok      bool
	}{
		{file: "0000_create_library_up.sql", version: 0, name: "create_library", dir: "up", ok: true},
		{file: "0012_add_index_down.sql", version: 12, name: "add_index", dir: "down", ok: true},
		{file: "0001_notes.sql"},
		{file: "readme.md"},
		{file: "abcd_create_up.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, dir, ok := parseMigrationName(tt.file)
			if ok != tt.ok || version != tt.version || name != tt.name || dir != tt.dir {
				t.Errorf("parseMigrationName(%q) = %d, %q, %q, %v", tt.file, version, name, dir, ok)
			}
		})
	}
}

func TestStatements(t *testing.T) {
	script := `
-- header comment
CREATE TABLE a (id INTEGER); -- trailing
;
INSERT INTO a (id) VALUES (1)
`
	got := statements(script)
	want := []string{"CREATE TABLE a (id INTEGER)", "INSERT INTO a (id) VALUES (1)"}
	if !slices.Equal(got, want) {
		t.Errorf("statements() = %q, want %q", got, want)
	}
}

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	open := func(t *testing.T) *sql.DB {
		t.Helper()
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	}

	t.Run("Migrations", func(t *testing.T) {
		migrations, err := Migrations()
		if err != nil {
			t.Fatalf("failed to load migrations: %v", err)
		}
		if len(migrations) == 0 {
			t.Fatal("expected at least one migration")
		}
		if !slices.IsSortedFunc(migrations, func(a, b Migration) int { return a.Version - b.Version }) {
			t.Error("migrations not sorted by version")
		}
		for _, m := range migrations {
			if m.Up == "" || m.Down == "" || m.Name == "" {
				t.Errorf("migration %d incomplete: %+v", m.Version, m)
			}
		}
		if migrations[0].Name != "create_library" {
			t.Errorf("first migration = %q, want create_library", migrations[0].Name)
		}
	})

	t.Run("Migrate And Rollback", func(t *testing.T) {
		db := open(t)
		n, err := Migrate(ctx, db)
		if err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		if n == 0 {
			t.Error("expected at least one migration to be applied")
		}
		if _, err := db.Exec("SELECT 1 FROM playlist_tracks LIMIT 1"); err != nil {
			t.Errorf("playlist_tracks table should exist after migrations: %v", err)
		}

		applied, err := AppliedMigrations(ctx, db)
		if err != nil {
			t.Fatalf("AppliedMigrations() error = %v", err)
		}
		if len(applied) != n {
			t.Fatalf("applied = %d, want %d", len(applied), n)
		}
		if applied[0].AppliedAt.IsZero() {
			t.Error("applied_at not recorded")
		}

		m, err := Rollback(ctx, db)
		if err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}
		if m.Version != applied[len(applied)-1].Version {
			t.Errorf("rolled back %d, want newest %d", m.Version, applied[len(applied)-1].Version)
		}
		after, _ := AppliedMigrations(ctx, db)
		if len(after) != len(applied)-1 {
			t.Errorf("applied after rollback = %d, want %d", len(after), len(applied)-1)
		}
	})

	t.Run("Rollback with nothing applied", func(t *testing.T) {
		db := open(t)
		if _, err := Rollback(ctx, db); !errors.Is(err, ErrNoMigrations) {
			t.Errorf("Rollback() error = %v, want ErrNoMigrations", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db := open(t)
		if _, err := Migrate(ctx, db); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}
		n, err := Migrate(ctx, db)
		if err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}
		if n != 0 {
			t.Errorf("second run applied %d migrations", n)
		}

		applied, _ := AppliedMigrations(ctx, db)
		migrations, _ := Migrations()
		if len(applied) != len(migrations) {
			t.Errorf("expected %d migrations to be applied, got %d", len(migrations), len(applied))
		}
	})

	t.Run("Cancelled context", func(t *testing.T) {
		db := open(t)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := Migrate(cctx, db); err == nil {
			t.Error("Migrate() with cancelled context should fail")
		}
	})
}
