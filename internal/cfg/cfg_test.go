package cfg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/keys"
	"grabarr/internal/models"
)

func TestCollectLinks(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "links.txt")
	content := "# queued from the browser\nhttps://youtu.be/aaaaaaaaaaa\n\nhttps://youtu.be/bbbbbbbbbbb\n"
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	links, err := collectLinks([]string{"https://youtu.be/ccccccccccc"}, file)
	if err != nil {
		t.Fatalf("collectLinks: %v", err)
	}
	want := []string{"https://youtu.be/ccccccccccc", "https://youtu.be/aaaaaaaaaaa", "https://youtu.be/bbbbbbbbbbb"}
	if strings.Join(links, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", links, want)
	}

	if _, err := collectLinks(nil, ""); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadConfigFileFillsUnsetFlags(t *testing.T) {
	t.Parallel()

	c := &cobra.Command{Use: "test"}
	c.Flags().String(keys.FFmpegPath, "ffmpeg", "")
	c.Flags().String(keys.YTDLPPath, "yt-dlp", "")
	c.Flags().Int(keys.Workers, consts.DefaultWorkers, "")
	c.Flags().Bool(keys.ThumbnailDedupe, true, "")
	c.Flags().Duration(keys.ProbeTimeout, consts.ProbeTimeout, "")
	if err := c.Flags().Set(keys.YTDLPPath, "/cli/yt-dlp"); err != nil {
		t.Fatalf("set: %v", err)
	}

	file := filepath.Join(t.TempDir(), "grabarr.yaml")
	yaml := "ffmpeg_path: /opt/ffmpeg\nytdlp-path: /config/yt-dlp\nworkers: 7\nthumbnail-dedupe: false\nprobe-timeout: 3s\nresolution: 480\n"
	if err := os.WriteFile(file, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := loadConfigFile(c, file); err != nil {
		t.Fatalf("loadConfigFile: %v", err)
	}

	fs := c.Flags()
	if got, _ := fs.GetString(keys.FFmpegPath); got != "/opt/ffmpeg" {
		t.Errorf("ffmpeg-path = %q", got)
	}
	if got, _ := fs.GetString(keys.YTDLPPath); got != "/cli/yt-dlp" {
		t.Errorf("command line value overwritten: %q", got)
	}
	if got, _ := fs.GetInt(keys.Workers); got != 7 {
		t.Errorf("workers = %d", got)
	}
	if got, _ := fs.GetBool(keys.ThumbnailDedupe); got {
		t.Error("thumbnail-dedupe not applied")
	}
	if got, _ := fs.GetDuration(keys.ProbeTimeout); got != 3*time.Second {
		t.Errorf("probe-timeout = %v", got)
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	t.Parallel()

	c := &cobra.Command{Use: "test"}
	if err := loadConfigFile(c, filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

// Uses the global Viper instance, so not parallel.
func TestSelections(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set(keys.MediaType, "video")
	viper.Set(keys.Resolution, 480)
	viper.Set(keys.Bitrate, "2M")
	viper.Set(keys.Encoder, consts.EncoderNvidia)

	mt, sel, err := selections()
	if err != nil {
		t.Fatalf("selections: %v", err)
	}
	want := models.Selections{Resolution: 480, Bitrate: "2M", Encoder: consts.EncoderNvidia}
	if mt != models.MediaVideo || sel != want {
		t.Fatalf("got %q %+v", mt, sel)
	}

	viper.Set(keys.MediaType, "flac")
	if _, _, err := selections(); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPrintResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printResults(&buf, models.SearchResultSet{Query: "x", NoResults: true})
	if strings.TrimSpace(buf.String()) != consts.StatusNoResults {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	printResults(&buf, models.SearchResultSet{Query: "x", Entries: []models.VideoSummary{
		{ID: "a", Title: "First", Channel: "Chan", Duration: 75, URL: "https://youtu.be/a",
			UploadDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)},
		{ID: "b", Title: "Second", URL: "https://youtu.be/b"},
	}})
	out := buf.String()
	for _, want := range []string{"TITLE", "First", "Chan", "1:15", "2024-03-09", "https://youtu.be/b"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printSummary(&buf, models.BatchResult{
		Total: 2, Completed: 1, Failed: 1,
		Items: []models.ItemResult{
			{URL: "not-a-url", State: models.StateFailed, Error: "invalid URL"},
			{URL: "https://youtu.be/a", Title: "Song", State: models.StateDone, OutputPath: "/music/Song.mp3"},
		},
	})
	out := buf.String()
	for _, want := range []string{"failed  not-a-url: invalid URL", "ok      Song -> /music/Song.mp3", "Completed: 1/2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressObserver(t *testing.T) {
	t.Parallel()

	p := newProgressObserver(io.Discard, 2)
	p.OnStatus("Downloading: a")
	p.OnItemProgress("a", 0.5)
	if p.current != 50 {
		t.Fatalf("current = %d", p.current)
	}
	// A new stage restarting at zero never moves the bar back.
	p.OnItemProgress("a", 0.1)
	if p.current != 50 {
		t.Fatalf("bar moved back to %d", p.current)
	}
	p.OnBatchProgress(models.BatchResult{Total: 2, Completed: 1, Progress: 0.5})
	if p.done != 1 || p.current != 100 {
		t.Fatalf("done = %d, current = %d", p.done, p.current)
	}
	p.OnItemProgress("b", 0.5)
	if p.current != 150 {
		t.Fatalf("current = %d", p.current)
	}
	p.OnBatchProgress(models.BatchResult{Total: 2, Completed: 1, Failed: 1, Progress: 1})
	if p.done != 2 || p.current != 200 {
		t.Fatalf("done = %d, current = %d", p.done, p.current)
	}
	p.OnBatchComplete(models.BatchResult{})
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("%w: bad", errs.ErrValidation), 2},
		{fmt.Errorf("select: %w", errs.ErrNoDestination), 2},
		{fmt.Errorf("%w: ffmpeg missing", errs.ErrEnvironment), 3},
		{errors.New("1 of 2 downloads failed"), 1},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
