// Package regex compiles and caches various regex expressions.
package regex

import (
	"regexp"
	"sync"
)

var (
	ansiEscape     *regexp.Regexp
	ansiOnce       sync.Once
	unsafeChars    *regexp.Regexp
	unsafeOnce     sync.Once
	extraSpaces    *regexp.Regexp
	spacesOnce     sync.Once
	dlProgress     *regexp.Regexp
	dlProgressOnce sync.Once
	encoderLine    *regexp.Regexp
	encoderOnce    sync.Once
)

// AnsiEscapeCompile compiles regex for ANSI escape codes.
func AnsiEscapeCompile() *regexp.Regexp {
	ansiOnce.Do(func() {
		ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	})
	return ansiEscape
}

// UnsafeFilenameCharsCompile compiles regex for characters not allowed in output filenames.
func UnsafeFilenameCharsCompile() *regexp.Regexp {
	unsafeOnce.Do(func() {
		unsafeChars = regexp.MustCompile(`[^\w\s.-]`)
	})
	return unsafeChars
}

// ExtraSpacesCompile compiles regex for runs of whitespace.
func ExtraSpacesCompile() *regexp.Regexp {
	spacesOnce.Do(func() {
		extraSpaces = regexp.MustCompile(`\s+`)
	})
	return extraSpaces
}

// DownloadProgressCompile compiles regex for yt-dlp "[download]  42.0% of ..." lines.
func DownloadProgressCompile() *regexp.Regexp {
	dlProgressOnce.Do(func() {
		dlProgress = regexp.MustCompile(`^\[download\]\s+(\d+(?:\.\d+)?)%`)
	})
	return dlProgress
}

// EncoderLineCompile compiles regex for ffmpeg -encoders table rows, e.g. " V....D h264_nvenc  NVIDIA ...".
func EncoderLineCompile() *regexp.Regexp {
	encoderOnce.Do(func() {
		encoderLine = regexp.MustCompile(`^\s*([VAS])[F.][S.][X.][B.][D.]\s+(\S+)`)
	})
	return encoderLine
}
