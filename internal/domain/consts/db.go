package consts

// Tables
const (
	DBBatches    = "batches"
	DBBatchItems = "batch_items"
)

// Batches
const (
	QBatchID         = "id"
	QBatchMediaType  = "media_type"
	QBatchTotal      = "total"
	QBatchCompleted  = "completed"
	QBatchFailed     = "failed"
	QBatchStartedAt  = "started_at"
	QBatchFinishedAt = "finished_at"
)

// Batch items
const (
	QItemBatchID  = "batch_id"
	QItemPosition = "position"
	QItemURL      = "url"
	QItemTitle    = "title"
	QItemState    = "state"
	QItemError    = "error"
	QItemOutput   = "output_path"
)
