package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"grabarr/internal/domain/command"
	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
)

// FFmpeg drives the transcode engine.
type FFmpeg struct {
	Runner Runner
	Path   string
}

// NewFFmpeg returns a transcode engine using path (or "ffmpeg" when empty).
func NewFFmpeg(r Runner, path string) *FFmpeg {
	if path == "" {
		path = command.FFmpeg
	}
	return &FFmpeg{Runner: r, Path: path}
}

// Encoders returns the raw capability listing.
func (f *FFmpeg) Encoders(ctx context.Context) (string, error) {
	out, err := f.Runner.Output(ctx, Cmd{Name: f.Path, Args: []string{command.HideBanner, command.ListEncoders}})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify checks that the engine runs at all.
func (f *FFmpeg) Verify(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, consts.VersionCheckTimeout)
	defer cancel()

	out, err := f.Runner.Output(ctx, Cmd{Name: f.Path, Args: []string{command.HideBanner, command.Version}})
	if err != nil {
		return fmt.Errorf("%w: transcode engine %q is not runnable: %w", errs.ErrEnvironment, f.Path, err)
	}
	if !strings.Contains(strings.ToLower(string(out)), "version") {
		return fmt.Errorf("%w: unexpected version output from %q", errs.ErrEnvironment, f.Path)
	}
	return nil
}

// TranscodeArgs builds the full argument list for one transcode.
func TranscodeArgs(input, output string, codecArgs []string) []string {
	args := make([]string, 0, len(codecArgs)+12)
	args = append(args,
		command.HideBanner,
		command.Overwrite,
		command.Input, input,
	)
	args = append(args, codecArgs...)
	args = append(args,
		command.Progress, command.ProgressPipe,
		command.NoStats,
		command.LogLevel, command.LogLevelError,
		output,
	)
	return args
}

// Transcode runs one transcode, reporting progress against duration (seconds) when known.
func (f *FFmpeg) Transcode(ctx context.Context, input, output string, codecArgs []string, duration float64, onProgress func(float64)) error {
	args := TranscodeArgs(input, output, codecArgs)

	return f.Runner.Stream(ctx, Cmd{Name: f.Path, Args: args}, func(line string) {
		if onProgress == nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == command.ProgressEnd {
			onProgress(1.0)
			return
		}
		if !strings.HasPrefix(line, command.ProgressTimePrefix) || duration <= 0 {
			return
		}
		us, err := strconv.ParseInt(strings.TrimPrefix(line, command.ProgressTimePrefix), 10, 64)
		if err != nil {
			return
		}
		onProgress(min(float64(us)/1e6/duration, 1.0))
	})
}
