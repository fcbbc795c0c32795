// Package sqltest opens in-memory sqlite databases for repository tests.
package sqltest

import (
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/sql"
)

const driverName = "sqlite"

// sqliteDialect rewrites the postgres column types used by the migrations.
var sqliteDialect = strings.NewReplacer(
	"bigserial primary key", "integer primary key autoincrement",
	"timestamptz", "timestamp",
)

// Open returns a fresh in-memory database with the migrations applied.
// Queries must use the default squirrel placeholders.
func Open(t *testing.T, sources ...sql.MigrationSource) sql.Database {
	t.Helper()

	// glebarez/sqlite is published as a gorm dialector over a cgo-free driver, its pool is handed to sqlx.
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	conn, err := gormDB.DB()
	if err != nil {
		t.Fatalf("get sqlite connection pool: %v", err)
	}
	conn.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })

	db := sqlx.NewDb(conn, driverName)
	for _, source := range sources {
		migrations, err := source()
		if err != nil {
			t.Fatalf("read migrations: %v", err)
		}

		for _, migration := range migrations {
			_, err = db.Exec(sqliteDialect.Replace(migration.SQL))
			if err != nil {
				t.Fatalf("apply migration %s: %v", migration.ID, err)
			}
		}
	}

	return sql.WrapDatabase(db, log.New(log.LevelDisabled))
}
