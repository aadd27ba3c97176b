package command

// ffmpeg general.
const (
	FFmpeg        = "ffmpeg"
	HideBanner    = "-hide_banner"
	ListEncoders  = "-encoders"
	Version       = "-version"
	Overwrite     = "-y"
	Input         = "-i"
	NoStats       = "-nostats"
	Progress      = "-progress"
	ProgressPipe  = "pipe:1"
	LogLevel      = "-loglevel"
	LogLevelError = "error"
)

// Progress output.
const (
	ProgressTimePrefix = "out_time_us="
	ProgressEnd        = "progress=end"
)

var (
	VideoCodec   = "-c:v"
	VideoBitrate = "-b:v"
	PixelFmt     = []string{"-pix_fmt", "yuv420p"}
	AudioToAAC   = []string{"-c:a", "aac", "-b:a", "192k"}
	FastStart    = []string{"-movflags", "+faststart"}
	OutputMP4    = []string{"-f", "mp4"}
	OutputExtMP4 = ".mp4"
)

// Encoder specific arguments, appended after the codec selection.
var (
	SoftwareArgs = []string{"-preset", "medium"}
	NvidiaArgs   = []string{"-preset", "p4", "-rc", "vbr"}
	AMDArgs      = []string{"-quality", "balanced", "-rc", "vbr_peak"}
	IntelArgs    = []string{"-preset", "medium", "-look_ahead", "0"}
)
