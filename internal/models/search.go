package models

import "time"

// VideoSummary is one search result entry.
type VideoSummary struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Channel    string    `json:"channel,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	UploadDate time.Time `json:"upload_date,omitzero"`
}

// SearchResultSet is the outcome of one search.
//
// A nil Entries slice with NoResults false and Err set means the fetch failed.
type SearchResultSet struct {
	Query     string         `json:"query"`
	Entries   []VideoSummary `json:"entries"`
	NoResults bool           `json:"no_results"`
	Err       error          `json:"-"`
}

// Failed reports whether the fetch behind the set failed.
func (s SearchResultSet) Failed() bool {
	return s.Err != nil
}
