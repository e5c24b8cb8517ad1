package sqlstore_test

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tripthread/companion/migrations"
	"github.com/tripthread/companion/store"
	sqlstore "github.com/tripthread/companion/store/sql"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "companion-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:companion-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = migrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != migrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	})
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"extension_auth_state",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "extension_auth_state" {
		t.Fatalf("expected extension_auth_state table, got %q", tableName)
	}
}

func TestAuthStateStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	durable, err := sqlstore.NewFromPersistence(client)
	if err != nil {
		t.Fatalf("new auth state store: %v", err)
	}

	record, err := store.LoadRecord(ctx, durable)
	if err != nil {
		t.Fatalf("load empty record: %v", err)
	}
	if record.State != store.AuthStateUnauthorized {
		t.Fatalf("expected unauthorized default, got %q", record.State)
	}

	saved := store.AuthRecord{
		State:        store.AuthStateAuthorized,
		Credential:   "tt_abc123_secret",
		AccountID:    "acct_42",
		ServerOrigin: "https://app.tripthread.com",
	}
	if err := store.SaveRecord(ctx, durable, saved); err != nil {
		t.Fatalf("save record: %v", err)
	}

	loaded, err := store.LoadRecord(ctx, durable)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if loaded != saved {
		t.Fatalf("round trip mismatch: got %+v want %+v", loaded, saved)
	}
}

func TestAuthStateStore_SaveReplacesSingleRow(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	durable, err := sqlstore.NewFromPersistence(client)
	if err != nil {
		t.Fatalf("new auth state store: %v", err)
	}

	first := store.AuthRecord{
		State:        store.AuthStateAuthorized,
		Credential:   "tt_abc123_first",
		AccountID:    "acct_1",
		ServerOrigin: "https://app.tripthread.com",
	}
	if err := store.SaveRecord(ctx, durable, first); err != nil {
		t.Fatalf("save first record: %v", err)
	}

	second := store.AuthRecord{
		State:        store.AuthStateAuthorized,
		Credential:   "tt_def456_second",
		AccountID:    "acct_2",
		ServerOrigin: "https://app.tripthread.com",
	}
	if err := store.SaveRecord(ctx, durable, second); err != nil {
		t.Fatalf("save second record: %v", err)
	}

	var rowCount int
	if err := client.DB().NewRaw(
		"SELECT COUNT(*) FROM extension_auth_state",
	).Scan(ctx, &rowCount); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if rowCount != 1 {
		t.Fatalf("expected a single backing row, got %d", rowCount)
	}

	loaded, err := store.LoadRecord(ctx, durable)
	if err != nil {
		t.Fatalf("load record: %v", err)
	}
	if loaded != second {
		t.Fatalf("expected replacement record, got %+v", loaded)
	}
}

func TestAuthStateStore_ClearResetsToUnauthorized(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	durable, err := sqlstore.NewFromPersistence(client)
	if err != nil {
		t.Fatalf("new auth state store: %v", err)
	}

	if err := store.SaveRecord(ctx, durable, store.AuthRecord{
		State:        store.AuthStateAuthorized,
		Credential:   "tt_abc123_secret",
		AccountID:    "acct_42",
		ServerOrigin: "https://app.tripthread.com",
	}); err != nil {
		t.Fatalf("save record: %v", err)
	}

	if err := durable.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	loaded, err := store.LoadRecord(ctx, durable)
	if err != nil {
		t.Fatalf("load after clear: %v", err)
	}
	if loaded != store.EmptyRecord() {
		t.Fatalf("expected empty record after clear, got %+v", loaded)
	}
}

func TestAuthStateStore_RejectsUnknownKey(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	durable, err := sqlstore.NewFromPersistence(client)
	if err != nil {
		t.Fatalf("new auth state store: %v", err)
	}

	if err := durable.Set(ctx, map[string]string{"favorite_color": "blue"}); err == nil {
		t.Fatalf("expected unknown key rejection")
	}
}

func TestNew_RejectsUnsupportedClient(t *testing.T) {
	if _, err := sqlstore.New(nil); err == nil {
		t.Fatalf("expected nil client rejection")
	}
	if _, err := sqlstore.New(42); err == nil {
		t.Fatalf("expected unsupported client rejection")
	}
}
