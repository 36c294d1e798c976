// Package dbtest opens throwaway SQLite databases carrying the full model schema.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db"
	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
)

// Open returns a migrated in-memory database unique to the calling test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:test_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return conn
}

// Client wraps Open in a db.Client with a single attempt per transaction.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromConn(conn, db.RetryPolicy{MaxAttempts: 1}, nil), conn
}

// ConcurrentClient wraps Open in a db.Client tuned for tests that hammer one
// row from many goroutines. SQLite's shared cache reports lock contention as
// "database table is locked" instead of blocking, so the policy replays many
// times with a short capped backoff.
func ConcurrentClient(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	policy := db.RetryPolicy{MaxAttempts: 200, BaseBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond}
	return db.NewFromConn(conn, policy, nil), conn
}

// SeedCustomer inserts an active customer with a zero outstanding balance.
func SeedCustomer(t testing.TB, conn *gorm.DB) models.Customer {
	t.Helper()
	c := models.Customer{Code: "C-" + shortID(), Name: "Customer", OutstandingAmount: decimal.Zero, IsActive: true}
	if err := conn.Create(&c).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return c
}

// SeedSupplier inserts an active supplier with a zero outstanding balance.
func SeedSupplier(t testing.TB, conn *gorm.DB) models.Supplier {
	t.Helper()
	s := models.Supplier{Code: "S-" + shortID(), Name: "Supplier", OutstandingAmount: decimal.Zero, IsActive: true}
	if err := conn.Create(&s).Error; err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	return s
}

// SeedItem inserts an active stock item.
func SeedItem(t testing.TB, conn *gorm.DB, description string) models.StockItem {
	t.Helper()
	i := models.StockItem{Code: "I-" + shortID(), Description: description, IsActive: true}
	if err := conn.Create(&i).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return i
}

// SeedLocation inserts a stock location.
func SeedLocation(t testing.TB, conn *gorm.DB) models.StockLocation {
	t.Helper()
	l := models.StockLocation{Code: "L-" + shortID(), Name: "Warehouse"}
	if err := conn.Create(&l).Error; err != nil {
		t.Fatalf("seed location: %v", err)
	}
	return l
}

func shortID() string {
	return uuid.NewString()[:8]
}
