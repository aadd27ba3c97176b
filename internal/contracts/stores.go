// Package contracts defines interfaces that decouple the application layer from storage implementations.
package contracts

import (
	"context"

	"grabarr/internal/models"
)

// Store allows access to the main store repo methods.
type Store interface {
	HistoryStore() HistoryStore
}

// HistoryStore records batch outcomes for the current session.
type HistoryStore interface {
	// StartBatch records a new batch and returns its ID.
	StartBatch(ctx context.Context, b *models.BatchResult) (int64, error)
	// RecordItem stores one finished item of a batch.
	RecordItem(ctx context.Context, batchID int64, item models.ItemResult) error
	// FinishBatch stores the final counts of a batch.
	FinishBatch(ctx context.Context, b *models.BatchResult) error
	// Batches returns the newest batches first, items included.
	Batches(ctx context.Context, limit int) ([]models.BatchResult, error)
}
