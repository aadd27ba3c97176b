// Package models holds the data passed between grabarr's components.
package models

// LinkItem is one pending entry in the link queue.
type LinkItem struct {
	Handle       string `json:"handle"`
	ID           string `json:"id"`
	URL          string `json:"url"`
	Title        string `json:"title,omitempty"`
	ThumbnailKey string `json:"thumbnail_key,omitempty"`
	Hydrated     bool   `json:"hydrated"`
}

// DisplayTitle returns the title, or the raw URL when none has been resolved.
func (l LinkItem) DisplayTitle() string {
	if l.Title != "" {
		return l.Title
	}
	return l.URL
}

// VideoMeta is the metadata engine's description of a single item.
type VideoMeta struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	URL        string   `json:"webpage_url"`
	Duration   float64  `json:"duration"`
	UploadDate string   `json:"upload_date"`
	Thumbnail  string   `json:"thumbnail"`
	Formats    []Format `json:"formats"`
}

// Format is one available stream descriptor.
type Format struct {
	ID     string  `json:"format_id"`
	Ext    string  `json:"ext"`
	Height int     `json:"height"`
	VCodec string  `json:"vcodec"`
	ACodec string  `json:"acodec"`
	TBR    float64 `json:"tbr"`
}
