// Package database opens the in-memory session store.
package database

import (
	"database/sql"
	"fmt"
	"net/url"

	// Package sqlite3 provides interface to SQLite3 databases.
	_ "github.com/mattn/go-sqlite3"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
)

const (
	dbDriver = "sqlite3"
)

// Database holds the session store. Its contents are lost at exit.
type Database struct {
	DB *sql.DB
}

// memoryDSN names a shared-cache in-memory database.
func memoryDSN(name string) string {
	return "file:" + url.PathEscape(name) + "?mode=memory&cache=shared"
}

// InitDB opens the named in-memory database (consts.ProgramName when empty) and creates its tables.
func InitDB(name string) (d *Database, err error) {
	if name == "" {
		name = consts.ProgramName
	}
	dsn := memoryDSN(name)

	d = new(Database)
	d.DB, err = sql.Open(dbDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", dsn, err)
	}

	// The database lives only as long as a connection to it does.
	d.DB.SetMaxOpenConns(1)
	d.DB.SetMaxIdleConns(1)
	d.DB.SetConnMaxLifetime(0)
	d.DB.SetConnMaxIdleTime(0)

	// Enable foreign keys
	if _, err := d.DB.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = d.DB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Allow SQLite to wait for locks (in milliseconds)
	if _, err := d.DB.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = d.DB.Close()
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	if err := d.initTables(); err != nil {
		_ = d.DB.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	logger.Pl.D(2, "Opened session store %q", dsn)
	return d, nil
}

// Close releases the database, discarding its contents.
func (d *Database) Close() error {
	return d.DB.Close()
}

// initTables initializes the SQL tables.
func (d *Database) initTables() (err error) {
	tx, err := d.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Pl.E("Panic rollback failed for table creation: %v", rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Pl.E("transaction rollback failed after original error %v: %v", err, rbErr)
			}
		}
	}()

	if err = initBatchesTable(tx); err != nil {
		return err
	}

	if err = initBatchItemsTable(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
