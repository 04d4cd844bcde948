// Package database handles inventory database connections and schema inspection.
//
// It provides a wrapper around GORM to configure MySQL (production) or SQLite
// (tests, single-node installs) connections from the application's configuration.
//
// # Connect
//
// Connect opens the database with driver error translation enabled, so that
// unique-constraint violations surface as gorm.ErrDuplicatedKey regardless of the driver.
//
// # Schema Inspection
//
// GetTableColumns reads the live column list of a table. The integrity feature
// compares it against the inventory models to detect drift.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "virtual_machines")
package database
