package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
)

// HistoryStore holds a pointer to the sql.DB.
type HistoryStore struct {
	DB *sql.DB
}

// GetHistoryStore returns a history store instance with injected database.
func GetHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{
		DB: db,
	}
}

// StartBatch inserts the batch row and returns its ID.
func (hs *HistoryStore) StartBatch(ctx context.Context, b *models.BatchResult) (int64, error) {
	query := squirrel.
		Insert(consts.DBBatches).
		Columns(consts.QBatchMediaType, consts.QBatchTotal, consts.QBatchStartedAt).
		Values(string(b.MediaType), b.Total, b.StartedAt).
		RunWith(hs.DB)

	res, err := query.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to insert batch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read batch ID: %w", err)
	}
	return id, nil
}

// RecordItem inserts one item outcome.
func (hs *HistoryStore) RecordItem(ctx context.Context, batchID int64, item models.ItemResult) error {
	query := squirrel.
		Insert(consts.DBBatchItems).
		Columns(
			consts.QItemBatchID,
			consts.QItemPosition,
			consts.QItemURL,
			consts.QItemTitle,
			consts.QItemState,
			consts.QItemError,
			consts.QItemOutput,
		).
		Values(batchID, item.Position, item.URL, item.Title, string(item.State), item.Error, item.OutputPath).
		RunWith(hs.DB)

	if _, err := query.ExecContext(ctx); err != nil {
		return fmt.Errorf("failed to record item %d of batch %d: %w", item.Position, batchID, err)
	}
	return nil
}

// FinishBatch writes the final counts and finish time.
func (hs *HistoryStore) FinishBatch(ctx context.Context, b *models.BatchResult) (err error) {
	tx, err := hs.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Pl.E("Panic rollback failed for batch %d: %v", b.ID, rbErr)
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Pl.E("Error rolling back batch %d (original error: %v): %v", b.ID, err, rbErr)
			}
		}
	}()

	finished := b.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	query := squirrel.
		Update(consts.DBBatches).
		Set(consts.QBatchCompleted, b.Completed).
		Set(consts.QBatchFailed, b.Failed).
		Set(consts.QBatchFinishedAt, finished).
		Where(squirrel.Eq{consts.QBatchID: b.ID}).
		RunWith(tx)

	res, err := query.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to finish batch %d: %w", b.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = fmt.Errorf("batch %d not found", b.ID)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Batches returns up to limit batches, newest first. A limit below 1 returns all.
func (hs *HistoryStore) Batches(ctx context.Context, limit int) ([]models.BatchResult, error) {
	query := squirrel.
		Select(
			consts.QBatchID,
			consts.QBatchMediaType,
			consts.QBatchTotal,
			consts.QBatchCompleted,
			consts.QBatchFailed,
			consts.QBatchStartedAt,
			consts.QBatchFinishedAt,
		).
		From(consts.DBBatches).
		OrderBy(consts.QBatchID + " DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(hs.DB).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Pl.E("Failed to close rows: %v", err)
		}
	}()

	var batches []models.BatchResult
	for rows.Next() {
		var (
			b         models.BatchResult
			mediaType string
			finished  sql.NullTime
		)
		if err := rows.Scan(&b.ID, &mediaType, &b.Total, &b.Completed, &b.Failed, &b.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.MediaType = models.MediaType(mediaType)
		if finished.Valid {
			b.FinishedAt = finished.Time
			b.Progress = 1.0
		} else if b.Total > 0 {
			b.Progress = float64(b.Completed+b.Failed) / float64(b.Total)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range batches {
		items, err := hs.batchItems(ctx, batches[i].ID)
		if err != nil {
			return nil, err
		}
		batches[i].Items = items
	}
	return batches, nil
}

// batchItems returns a batch's items in queue order.
func (hs *HistoryStore) batchItems(ctx context.Context, batchID int64) ([]models.ItemResult, error) {
	query := squirrel.
		Select(
			consts.QItemPosition,
			consts.QItemURL,
			consts.QItemTitle,
			consts.QItemState,
			consts.QItemError,
			consts.QItemOutput,
		).
		From(consts.DBBatchItems).
		Where(squirrel.Eq{consts.QItemBatchID: batchID}).
		OrderBy(consts.QItemPosition).
		RunWith(hs.DB)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query items of batch %d: %w", batchID, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Pl.E("Failed to close rows: %v", err)
		}
	}()

	var items []models.ItemResult
	for rows.Next() {
		var (
			it                    models.ItemResult
			state                 string
			title, errMsg, output sql.NullString
		)
		if err := rows.Scan(&it.Position, &it.URL, &title, &state, &errMsg, &output); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.State = models.ItemState(state)
		it.Title = title.String
		it.Error = errMsg.String
		it.OutputPath = output.String
		items = append(items, it)
	}
	return items, rows.Err()
}
