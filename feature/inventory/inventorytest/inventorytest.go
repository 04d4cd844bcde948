// Package inventorytest provides an in-memory inventory for tests.
package inventorytest

import (
	"sync/atomic"
	"testing"

	"incus-sync/core/database"
	"incus-sync/feature/inventory"

	"gorm.io/gorm"
)

// WriteCounter counts create, update and delete statements issued through a gorm.DB.
type WriteCounter struct {
	n atomic.Int64
}

// Count returns the number of writes seen so far.
func (w *WriteCounter) Count() int64 {
	return w.n.Load()
}

// Reset sets the counter back to zero.
func (w *WriteCounter) Reset() {
	w.n.Store(0)
}

// NewDB opens a migrated in-memory SQLite inventory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := inventory.Migrate(db); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// NewStore returns a store on a fresh inventory and a counter of its writes.
func NewStore(t testing.TB) (*inventory.GormStore, *gorm.DB, *WriteCounter) {
	t.Helper()

	db := NewDB(t)
	counter := &WriteCounter{}
	count := func(*gorm.DB) { counter.n.Add(1) }

	cb := db.Callback()
	if err := cb.Create().After("gorm:create").Register("inventorytest:count_create", count); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	if err := cb.Update().After("gorm:update").Register("inventorytest:count_update", count); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	if err := cb.Delete().After("gorm:delete").Register("inventorytest:count_delete", count); err != nil {
		t.Fatalf("register callback: %v", err)
	}
	return inventory.NewGormStore(db), db, counter
}
