package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mruizcampos/unimarket-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestInitSchemaContainsLedgerConstraints(t *testing.T) {
	content := readMigration(t, "*_init_schema.sql")

	checks := []string{
		"CREATE TABLE accounts",
		"CHECK (balance >= 0)",
		"CREATE TABLE movements",
		"CHECK (amount > 0)",
		"REFERENCES accounts (id)",
		"CREATE TABLE listings",
		"CREATE TABLE bids",
		"CREATE TABLE orders",
		"CREATE TABLE confirmation_codes",
		"CREATE TABLE notifications",
		"DROP TABLE IF EXISTS accounts",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationGuardsAcceptanceUniqueness(t *testing.T) {
	content := readMigration(t, "*_outbox_events.sql")

	checks := []string{
		"CREATE TABLE outbox_events",
		"ux_outbox_events_event_aggregate",
		"WHERE event_type = 'auction_accepted'",
		"WHERE published_at IS NULL",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
