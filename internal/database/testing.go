package database

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var memSeq atomic.Int64

// OpenInMemory returns a migrated, private in-memory sqlite database.
func OpenInMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:wanx_mem_%d?mode=memory&cache=shared", memSeq.Add(1))
	db, err := Open(sqlite.Open(dsn), nil)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := MigrateDB(db); err != nil {
		return nil, err
	}
	return db, nil
}
