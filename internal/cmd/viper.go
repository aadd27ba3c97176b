// Package cmd registers grabarr's command line flags and binds them to Viper.
package cmd

import (
	"grabarr/internal/domain/command"
	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/keys"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bind binds each named flag in fs to the Viper key of the same name.
func bind(fs *pflag.FlagSet, names ...string) error {
	for _, n := range names {
		if err := viper.BindPFlag(n, fs.Lookup(n)); err != nil {
			return err
		}
	}
	return nil
}

// InitProgramFlags initializes flags which apply to the whole program.
func InitProgramFlags(rootCmd *cobra.Command) error {
	fs := rootCmd.PersistentFlags()

	// Config file (any format Viper reads)
	fs.String(keys.ConfigFile, "", "Load settings from this config file (yaml, toml, json...)")

	// Debugging level
	fs.IntP(keys.DebugLevel, "d", 0, "Debug level (0 - 5)")

	// Shared worker pool for thumbnails and link lookups
	fs.Int(keys.Workers, consts.DefaultWorkers, "Number of background workers for thumbnails and link lookups")

	// Output directory
	fs.StringP(keys.Destination, "o", "", "Directory to save downloads to")

	return bind(fs, keys.ConfigFile, keys.DebugLevel, keys.Workers, keys.Destination)
}

// InitEngineFlags initializes the external engine locations and timeouts.
func InitEngineFlags(rootCmd *cobra.Command) error {
	fs := rootCmd.PersistentFlags()

	fs.String(keys.YTDLPPath, command.YTDLP, "Path to the yt-dlp executable")
	fs.String(keys.FFmpegPath, command.FFmpeg, "Path to the ffmpeg executable")
	fs.Duration(keys.ProbeTimeout, consts.ProbeTimeout, "Time allowed for the hardware encoder probe")
	fs.String(keys.CookiesFromBrowser, "", "Read cookies from this browser (e.g. firefox, chrome) for yt-dlp and page requests")

	return bind(fs, keys.YTDLPPath, keys.FFmpegPath, keys.ProbeTimeout, keys.CookiesFromBrowser)
}

// InitThumbnailFlags initializes thumbnail fetching settings.
func InitThumbnailFlags(rootCmd *cobra.Command) error {
	fs := rootCmd.PersistentFlags()

	fs.String(keys.ThumbnailURLTemplate, consts.ThumbnailURLTemplate, "Thumbnail URL template, %s is replaced with the video ID")
	fs.Duration(keys.ThumbnailTimeout, consts.ThumbnailTimeout, "Time allowed for each thumbnail request")
	fs.Float64(keys.ThumbnailRate, consts.ThumbnailRatePerSec, "Maximum thumbnail requests per second (0 for unlimited)")
	fs.Bool(keys.ThumbnailDedupe, true, "Share one request between callers waiting on the same thumbnail")

	return bind(fs, keys.ThumbnailURLTemplate, keys.ThumbnailTimeout, keys.ThumbnailRate, keys.ThumbnailDedupe)
}

// InitProfileFlags initializes the download profile selections on a command.
func InitProfileFlags(c *cobra.Command) error {
	fs := c.Flags()

	fs.StringP(keys.MediaType, "m", "video", "Download as 'audio' (MP3) or 'video' (MP4)")
	fs.IntP(keys.Resolution, "r", consts.DefaultResolution, "Maximum video height (1080, 720, 480, 360)")
	fs.StringP(keys.Bitrate, "b", consts.DefaultBitrate, "Video bitrate passed to the encoder (e.g. 5M)")
	fs.StringP(keys.Encoder, "e", consts.EncoderAuto, "Video encoder (auto, libx264, h264_nvenc, h264_amf, h264_qsv)")

	return bind(fs, keys.MediaType, keys.Resolution, keys.Bitrate, keys.Encoder)
}

// InitServerFlags initializes the web server address flags.
func InitServerFlags(c *cobra.Command) error {
	fs := c.Flags()

	fs.String(keys.ServerHost, "127.0.0.1", "Address to listen on")
	fs.IntP(keys.ServerPort, "p", consts.DefaultPort, "Port to listen on")

	return bind(fs, keys.ServerHost, keys.ServerPort)
}

// InitLinkFlags initializes the link input flags on a command.
func InitLinkFlags(c *cobra.Command) error {
	fs := c.Flags()

	fs.StringP(keys.LinkFile, "f", "", "Read links from this file, one per line ('#' starts a comment)")

	return bind(fs, keys.LinkFile)
}
