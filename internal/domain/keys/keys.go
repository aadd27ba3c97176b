// Package keys holds the Viper keys and terminal flag names.
package keys

// Program.
const (
	ConfigFile string = "config"
	DebugLevel string = "debug"
	Workers    string = "workers"
)

// Files and directories.
const (
	Destination string = "destination"
	LinkFile    string = "file"
)

// External engines.
const (
	YTDLPPath  string = "ytdlp-path"
	FFmpegPath string = "ffmpeg-path"
)

// Profile selections.
const (
	MediaType  string = "media"
	Resolution string = "resolution"
	Bitrate    string = "bitrate"
	Encoder    string = "encoder"
)

// Timeouts.
const (
	ProbeTimeout     string = "probe-timeout"
	ThumbnailTimeout string = "thumbnail-timeout"
)

// Thumbnails.
const (
	ThumbnailURLTemplate string = "thumbnail-url"
	ThumbnailRate        string = "thumbnail-rate"
	ThumbnailDedupe      string = "thumbnail-dedupe"
)

// Network.
const (
	CookiesFromBrowser string = "cookies-from-browser"
	ServerPort         string = "port"
	ServerHost         string = "host"
)
