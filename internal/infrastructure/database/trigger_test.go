package database

import (
	"context"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"checkin/internal/application/normalize"
	"checkin/internal/domain"
)

func TestNotifyTriggerSQL(t *testing.T) {
	stmts := notifyTriggerSQL("events.guests", "o'hara")
	if len(stmts) != 2 {
		t.Fatalf("expected drop and create, got %d statements", len(stmts))
	}
	if !strings.Contains(stmts[0], `ON "events"."guests"`) {
		t.Errorf("drop statement: %s", stmts[0])
	}
	if !strings.Contains(stmts[1], `ON "events"."guests"`) || !strings.Contains(stmts[1], `attendees_notify('o''hara')`) {
		t.Errorf("create statement: %s", stmts[1])
	}
}

func TestResolveNames(t *testing.T) {
	table, channel := resolveNames(domain.DatabaseSettings{})
	if table != DefaultTable || channel != DefaultChannel {
		t.Errorf("defaults: %s %s", table, channel)
	}
	table, channel = resolveNames(domain.DatabaseSettings{Table: " guests ", Channel: "guests_feed"})
	if table != "guests" || channel != "guests_feed" {
		t.Errorf("custom: %s %s", table, channel)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 6 {
		t.Errorf("expected 3 up/down pairs, got %v", files)
	}
}

// TestOpenCustomTable runs against a real server when DATABASE_TEST_URL is set.
func TestOpenCustomTable(t *testing.T) {
	url := os.Getenv("DATABASE_TEST_URL")
	if url == "" {
		t.Skip("DATABASE_TEST_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := NewPool(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if err := RunMigrations(url, ""); err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS guests_test`,
		`CREATE TABLE guests_test (LIKE attendees INCLUDING DEFAULTS)`,
		`INSERT INTO guests_test (id, table_number, attendee_name) VALUES (1, '4', 'Ada')`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}

	src, err := Open(ctx, domain.DatabaseSettings{URL: url, Table: "guests_test", Channel: "guests_test_feed"}, normalize.New(nil), Schema{Migrate: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	// Give the listener time to issue LISTEN.
	time.Sleep(500 * time.Millisecond)
	if _, err := pool.Exec(ctx, `UPDATE guests_test SET status = 'checked-in', checked_in_at = NOW() WHERE id = 1`); err != nil {
		t.Fatal(err)
	}
	select {
	case d := <-src.Changes():
		if !strings.Contains(string(d.New), `"checked-in"`) {
			t.Errorf("unexpected delta %s", d.New)
		}
	case <-ctx.Done():
		t.Fatal("no notification on the custom channel")
	}
}
