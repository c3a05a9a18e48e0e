package migrate_test

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/pkg/config"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
	"github.com/angelmondragon/shopeazy-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := fs.Glob(migrate.Embedded(), "*_"+suffix+".sql")
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := fs.ReadFile(migrate.Embedded(), matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	if err := migrate.Validate(migrate.Embedded()); err != nil {
		t.Fatalf("validate embedded migrations: %v", err)
	}
	if err := migrate.Validate(migrate.SourceFor("migrations")); err != nil {
		t.Fatalf("validate on-disk migrations: %v", err)
	}
}

func TestStockAndReservationConstraints(t *testing.T) {
	products := readMigration(t, "create_products")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS products",
		"CHECK (stock_count >= 0)",
		"CHECK (status IN ('ACTIVE', 'BLOCKED', 'INACTIVE'))",
		"DROP TABLE IF EXISTS products",
	} {
		if !strings.Contains(products, sub) {
			t.Errorf("products migration missing %q", sub)
		}
	}

	reservations := readMigration(t, "create_inventory_reservations")
	for _, sub := range []string{
		"PRIMARY KEY (user_id, product_id)",
		"CHECK (quantity >= 1)",
		"idx_inventory_reservations_expires_at",
		"DROP TABLE IF EXISTS inventory_reservations",
	} {
		if !strings.Contains(reservations, sub) {
			t.Errorf("reservations migration missing %q", sub)
		}
	}

	counters := readMigration(t, "create_sequence_counters")
	if !strings.Contains(counters, "name TEXT PRIMARY KEY") {
		t.Errorf("sequence counters must be keyed by name")
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	stamp := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	path, err := migrate.CreateSQLMigration(dir, "Add Order Tracking!", stamp)
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if filepath.Base(path) != "20261016093000_add_order_tracking.sql" {
		t.Fatalf("unexpected filename %q", path)
	}
	if err := migrate.Validate(os.DirFS(dir)); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "add order tracking", stamp); err == nil {
		t.Fatal("expected an existing file to be left alone")
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!", stamp); err == nil {
		t.Fatal("expected an empty slug to be rejected")
	}
}

func TestValidateRejectsBadFiles(t *testing.T) {
	cases := map[string]fstest.MapFS{
		"bad name": {"init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
			"20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		},
		"missing down": {"20260101000000_a.sql": {Data: []byte("-- +goose Up\n")}},
		"empty":        {},
	}
	for name, source := range cases {
		if err := migrate.Validate(source); err == nil {
			t.Fatalf("%s: expected validation failure", name)
		}
	}
}

func TestDialect(t *testing.T) {
	if got := migrate.Dialect("sqlite"); got != goose.DialectSQLite3 {
		t.Fatalf("expected sqlite3, got %q", got)
	}
	if got := migrate.Dialect("postgres"); got != goose.DialectPostgres {
		t.Fatalf("expected postgres, got %q", got)
	}
}

func TestMaybeRunDevAutoMigratesSQLite(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file:autorun_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	cfg := &config.Config{
		App:          config.AppConfig{Env: config.AppEnvDev},
		DB:           config.DBConfig{Driver: db.DriverSQLite},
		FeatureFlags: config.FeatureFlagsConfig{AutoMigrate: true},
	}
	logg := logger.New(logger.Options{ServiceName: "migrate-test", Level: "disabled", Output: io.Discard})

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, db.Wrap(conn)); err != nil {
		t.Fatalf("MaybeRunDev: %v", err)
	}
	for _, table := range []string{"products", "inventory_reservations", "carts", "cart_items", "orders", "outbox_events", "sequence_counters"} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestMaybeRunDevSkipsOutsideDev(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: config.AppEnvProd}}
	if err := migrate.MaybeRunDev(context.Background(), cfg, nil, nil); err != nil {
		t.Fatalf("expected no-op outside dev, got %v", err)
	}
}
