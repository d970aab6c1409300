package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestListingMigrationGuardsPriceInvariants(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_listings.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no listings migration file found")
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	content := string(data)
	for _, sub := range []string{
		"CREATE TYPE listing_status AS ENUM ('active', 'sold', 'expired')",
		"CHECK (starting_price_cents > 0)",
		"CHECK (current_price_cents >= starting_price_cents)",
		"WHERE status = 'active'",
		"DROP TABLE IF EXISTS listings",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestTransactionsMigrationIsOnePerListing(t *testing.T) {
	matches, _ := filepath.Glob(filepath.Join("migrations", "*_create_transactions.sql"))
	if len(matches) != 1 {
		t.Fatalf("expected one transactions migration, got %d", len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(data), "CONSTRAINT ux_transactions_listing_id UNIQUE (listing_id)") {
		t.Fatal("transactions must be unique per listing")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	path, err := CreateSQLMigration(dir, "Add Bid Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260301120000_add_bid_index.sql" {
		t.Fatalf("unexpected filename %s", filepath.Base(path))
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration failed validation: %v", err)
	}
	if _, err := CreateSQLMigration(dir, "add bid index"); err == nil {
		t.Fatal("expected duplicate migration to fail")
	}
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "1_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected invalid filename error")
	}
}

func TestValidateDirRejectsEmpty(t *testing.T) {
	if err := ValidateDir(t.TempDir()); err == nil {
		t.Fatal("expected error for empty migrations dir")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := ParseVersion("20260301120000"); err != nil || v != 20260301120000 {
		t.Fatalf("unexpected parse result %d %v", v, err)
	}
	if _, err := ParseVersion("2026"); err == nil {
		t.Fatal("expected short version to fail")
	}
}
