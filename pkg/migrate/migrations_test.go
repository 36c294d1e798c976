package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/asdwsxzc123/jiale-mrp/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func assertContains(t *testing.T, content string, checks []string) {
	t.Helper()
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestMigrationsAreValid(t *testing.T) {
	if err := migrate.Validate(os.DirFS("migrations")); err != nil {
		t.Fatalf("validate migrations on disk: %v", err)
	}
	embedded, err := migrate.Source("")
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	if err := migrate.Validate(embedded); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
}

func TestValidateRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "bad filename", file: "2026_add.sql", content: "-- +goose Up\n-- +goose Down\n"},
		{name: "missing down", file: "20260105090000_add.sql", content: "-- +goose Up\nSELECT 1;\n"},
		{name: "down first", file: "20260105090000_add.sql", content: "-- +goose Down\n-- +goose Up\n"},
		{name: "unbalanced statements", file: "20260105090000_add.sql", content: "-- +goose Up\n-- +goose StatementBegin\n-- +goose Down\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.WriteFile(filepath.Join(dir, tc.file), []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := migrate.Validate(os.DirFS(dir)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestCounterMigrationKeysSequencesAndTraceDays(t *testing.T) {
	assertContains(t, readMigration(t, "create_counters"), []string{
		"CREATE TABLE IF NOT EXISTS document_sequences",
		"type_code text PRIMARY KEY",
		"CREATE TABLE IF NOT EXISTS trace_code_counters",
		"PRIMARY KEY (prefix, day)",
		"DROP TABLE IF EXISTS document_sequences",
	})
}

func TestDocumentMigrationScopesDocNoPerDomain(t *testing.T) {
	assertContains(t, readMigration(t, "create_commercial_documents"), []string{
		"CONSTRAINT ux_commercial_documents_domain_doc_no UNIQUE (domain, doc_no)",
		"FOREIGN KEY (document_id) REFERENCES commercial_documents(id) ON DELETE CASCADE",
		"CHECK (status <> 'TRANSFERRED' OR is_transferable = false)",
	})
}

func TestStockLedgerMigrationHasBalanceUniqueness(t *testing.T) {
	content := readMigration(t, "create_stock_ledger")
	assertContains(t, content, []string{
		"CONSTRAINT ux_stock_balances_item_location UNIQUE (item_id, location_id)",
		"CONSTRAINT ux_stock_transactions_doc_no UNIQUE (doc_no)",
		"CHECK (qty <> 0)",
	})
	if strings.Contains(content, "CHECK (quantity >= 0)") {
		t.Errorf("balance floor belongs to the configured negative policy, not the schema")
	}
}

func TestTraceabilityCodesAreUnique(t *testing.T) {
	assertContains(t, readMigration(t, "create_inspections_and_batches"), []string{
		"CONSTRAINT ux_raw_material_batches_traceability_code UNIQUE (traceability_code)",
		"CONSTRAINT ux_raw_material_batches_inspection_id UNIQUE (inspection_id)",
	})
	assertContains(t, readMigration(t, "create_production"), []string{
		"CONSTRAINT ux_finished_products_traceability_code UNIQUE (traceability_code)",
		"CONSTRAINT ux_finished_products_job_order_id UNIQUE (job_order_id)",
		"CONSTRAINT ux_job_orders_doc_no UNIQUE (doc_no)",
	})
}

func TestCreateSQLMigrationWritesGooseTemplate(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Branch Column!", now)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20260203040506_add_branch_column.sql" {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add branch column", now); err == nil {
		t.Fatalf("expected an error when the file already exists")
	}
	if _, err := migrate.Source(filepath.Join(dir, "missing")); err == nil {
		t.Fatalf("expected an error for a missing directory")
	}
}
