package testkit

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	dbpkg "github.com/vanelang/review-flow/internal/db"
)

// OpenTestDB returns an in-memory sqlite database with the full schema migrated.
// No Postgres is required; queries that differ per dialect switch on db.Dialector.Name().
func OpenTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.QueryEscape(t.Name()))
	gdb, err := gorm.Open(sqlite.Open(dsn), dbpkg.Options(logger.Silent, false))
	if err != nil {
		t.Fatalf("gorm.Open(sqlite): %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("gdb.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := dbpkg.Migrate(gdb); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return gdb
}
