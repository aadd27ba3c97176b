// Package consts holds various global, unchanging values.
package consts

// Program.
const (
	ProgramName = "grabarr"
	DefaultPort = 8833
)

// Search.
const (
	SearchLimit    = 10
	SearchProvider = "ytsearch"
)

// Worker pool.
const (
	DefaultWorkers = 4
)

// Filenames.
const (
	MaxFilenameLen = 120
	PartialSuffix  = ".part"
	TempTag        = "tmp_"
)

// Selections.
const (
	DefaultResolution = 720
	DefaultBitrate    = "5M"
	EncoderAuto       = "auto"
)

// Resolutions offered to the user.
var Resolutions = [...]int{1080, 720, 480, 360}

// Thumbnails.
const (
	ThumbnailWidth       = 160
	ThumbnailHeight      = 90
	ThumbnailRadius      = 10
	ThumbnailURLTemplate = "https://i.ytimg.com/vi/%s/mqdefault.jpg"
	ThumbnailRatePerSec  = 8
)

// URL schemes accepted for downloads.
var ValidSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
}

// Status line messages.
const (
	StatusReady        = "Ready"
	StatusSearching    = "Searching..."
	StatusNoResults    = "No results"
	StatusSearchFailed = "Search failed"
	StatusAllComplete  = "All downloads completed!"
	StatusNoDest       = "Error: Select save location first!"
)
