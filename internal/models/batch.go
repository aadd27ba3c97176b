package models

import "time"

// ItemResult is the outcome of one item in a batch.
type ItemResult struct {
	Position   int       `json:"position"`
	Handle     string    `json:"handle"`
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	State      ItemState `json:"state"`
	Error      string    `json:"error,omitempty"`
	OutputPath string    `json:"output_path,omitempty"`
}

// BatchResult aggregates one "download all" run.
type BatchResult struct {
	ID         int64        `json:"id,omitempty"`
	MediaType  MediaType    `json:"media_type"`
	Total      int          `json:"total"`
	Completed  int          `json:"completed"`
	Failed     int          `json:"failed"`
	Progress   float64      `json:"progress"`
	Items      []ItemResult `json:"items,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
}

// Record counts a finished item and recomputes progress.
func (b *BatchResult) Record(item ItemResult) {
	switch item.State {
	case StateDone:
		b.Completed++
	default:
		b.Failed++
	}
	b.Items = append(b.Items, item)
	if b.Total > 0 {
		b.Progress = float64(b.Completed+b.Failed) / float64(b.Total)
	}
	if b.Completed+b.Failed == b.Total {
		b.Progress = 1.0
	}
}
