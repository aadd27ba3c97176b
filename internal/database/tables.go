package database

import (
	"database/sql"
	"fmt"
)

// initBatchesTable initializes the batch summary table.
func initBatchesTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS batches (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        media_type TEXT NOT NULL CHECK(media_type IN ('audio', 'video')),
        total INTEGER NOT NULL DEFAULT 0,
        completed INTEGER NOT NULL DEFAULT 0,
        failed INTEGER NOT NULL DEFAULT 0,
        started_at TIMESTAMP NOT NULL,
        finished_at TIMESTAMP
    );
    CREATE INDEX IF NOT EXISTS idx_batches_started_at ON batches(started_at);
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create batches table: %w", err)
	}
	return nil
}

// initBatchItemsTable initializes the per-item outcome table.
func initBatchItemsTable(tx *sql.Tx) error {
	query := `
    CREATE TABLE IF NOT EXISTS batch_items (
        batch_id INTEGER NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
        position INTEGER NOT NULL,
        url TEXT NOT NULL,
        title TEXT,
        state TEXT NOT NULL CHECK(state IN ('pending', 'resolving', 'downloading', 'transcoding', 'done', 'failed')),
        error TEXT,
        output_path TEXT,
        PRIMARY KEY (batch_id, position)
    );
    `
	if _, err := tx.Exec(query); err != nil {
		return fmt.Errorf("failed to create batch_items table: %w", err)
	}
	return nil
}
