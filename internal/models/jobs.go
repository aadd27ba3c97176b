package models

import (
	"fmt"

	"grabarr/internal/domain/errs"
)

// MediaType selects audio extraction or video transcoding.
type MediaType string

const (
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// ParseMediaType validates a media type string.
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaAudio, MediaVideo:
		return MediaType(s), nil
	}
	return "", fmt.Errorf("%w: invalid media type %q, accept: audio, video", errs.ErrValidation, s)
}

// Selections are the profile choices made on the surface.
type Selections struct {
	Resolution int    `json:"resolution"`
	Bitrate    string `json:"bitrate"`
	Encoder    string `json:"encoder"`
}

// DownloadJob is the per-item plan built at orchestration time.
type DownloadJob struct {
	Link       LinkItem
	MediaType  MediaType
	Resolution int
	Bitrate    string
	Encoder    string
	Title      string
	Duration   float64
	OutputPath string
}
