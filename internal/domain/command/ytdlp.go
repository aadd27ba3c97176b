// Package command holds the flags passed to the external engines.
package command

// yt-dlp general.
const (
	YTDLP              = "yt-dlp"
	CookiesFromBrowser = "--cookies-from-browser"
	Format             = "-f"
	NoPlaylist         = "--no-playlist"
	ForceOverwrites    = "--force-overwrites"
	ProgressFlag       = "--progress"
	Newline            = "--newline"
	Output             = "-o"
	Print              = "--print"
	AfterMove          = "after_move:%(filepath)s"
	FFmpegLocation     = "--ffmpeg-location"
	NoWarnings         = "--no-warnings"
)

// yt-dlp JSON only.
const (
	SkipDownload = "--skip-download"
	OutputJSON   = "-J"
	FlatPlaylist = "--flat-playlist"
)

// yt-dlp audio extraction.
const (
	ExtractAudio  = "-x"
	AudioFormat   = "--audio-format"
	AudioQuality  = "--audio-quality"
	EmbedMetadata = "--embed-metadata"

	// ExtractAudioTag prefixes the engine's output while it converts to the audio format.
	ExtractAudioTag = "[ExtractAudio]"
)

// Format selectors.
const (
	FormatBestAudio = "bestaudio/best"
	// FormatVideoTmpl takes the maximum height twice.
	FormatVideoTmpl = "bestvideo[height<=%d][vcodec!^=av01]+bestaudio/best[height<=%d][vcodec!^=av01]"
)

// Fixed audio output.
const (
	AudioOutputFormat  = "mp3"
	AudioOutputQuality = "192K"
)
