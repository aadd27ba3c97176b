package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"grabarr/internal/domain/command"
	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
	"grabarr/internal/domain/regex"
	"grabarr/internal/models"
	"grabarr/internal/parsing"
)

// YTDLP drives the metadata/extraction engine.
type YTDLP struct {
	Runner             Runner
	Path               string
	FFmpegPath         string
	CookiesFromBrowser string
}

// NewYTDLP returns a metadata engine using path (or "yt-dlp" when empty).
func NewYTDLP(r Runner, path, ffmpegPath, cookieSource string) *YTDLP {
	if path == "" {
		path = command.YTDLP
	}
	return &YTDLP{
		Runner:             r,
		Path:               path,
		FFmpegPath:         ffmpegPath,
		CookiesFromBrowser: cookieSource,
	}
}

// Available reports an error if the engine cannot be found.
func (y *YTDLP) Available() error {
	_, err := y.Runner.LookPath(y.Path)
	return err
}

func (y *YTDLP) baseArgs() []string {
	args := []string{command.NoWarnings}
	if y.CookiesFromBrowser != "" {
		args = append(args, command.CookiesFromBrowser, y.CookiesFromBrowser)
	}
	return args
}

// Resolve fetches the canonical metadata for a single URL.
func (y *YTDLP) Resolve(ctx context.Context, url string) (models.VideoMeta, error) {
	args := append(y.baseArgs(), command.OutputJSON, command.SkipDownload, command.NoPlaylist, url)

	out, err := y.Runner.Output(ctx, Cmd{Name: y.Path, Args: args})
	if err != nil {
		return models.VideoMeta{}, err
	}

	var meta models.VideoMeta
	if err := json.Unmarshal(out, &meta); err != nil {
		return models.VideoMeta{}, fmt.Errorf("%w: could not decode metadata for %q: %w", errs.ErrEngine, url, err)
	}
	if meta.ID == "" && meta.Title == "" {
		return models.VideoMeta{}, fmt.Errorf("%w: no metadata returned for %q", errs.ErrEngine, url)
	}
	if meta.URL == "" {
		meta.URL = url
	}
	return meta, nil
}

type searchEntry struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Channel    string  `json:"channel"`
	Uploader   string  `json:"uploader"`
	Duration   float64 `json:"duration"`
	UploadDate string  `json:"upload_date"`
	Timestamp  int64   `json:"timestamp"`
}

type searchPlaylist struct {
	Entries []searchEntry `json:"entries"`
}

// Search runs a provider search and returns up to limit summaries.
//
// An empty slice with a nil error is an explicit "no entries" result.
func (y *YTDLP) Search(ctx context.Context, query string, limit int) ([]models.VideoSummary, error) {
	if limit <= 0 {
		limit = consts.SearchLimit
	}
	term := consts.SearchProvider + strconv.Itoa(limit) + ":" + query
	args := append(y.baseArgs(), command.FlatPlaylist, command.OutputJSON, term)

	out, err := y.Runner.Output(ctx, Cmd{Name: y.Path, Args: args})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrTransientFetch, err)
	}

	var pl searchPlaylist
	if err := json.Unmarshal(out, &pl); err != nil {
		return nil, fmt.Errorf("%w: could not decode search results for %q: %w", errs.ErrTransientFetch, query, err)
	}

	results := make([]models.VideoSummary, 0, min(len(pl.Entries), limit))
	for _, e := range pl.Entries {
		if len(results) == limit {
			break
		}
		if e.ID == "" {
			continue
		}
		u := e.WebpageURL
		if u == "" {
			u = e.URL
		}
		if u == "" || !strings.Contains(u, "://") {
			u = parsing.WatchURL(e.ID)
		}
		channel := e.Channel
		if channel == "" {
			channel = e.Uploader
		}
		results = append(results, models.VideoSummary{
			ID:         e.ID,
			Title:      e.Title,
			URL:        u,
			Channel:    channel,
			Duration:   e.Duration,
			UploadDate: parsing.ParseUploadDate(e.UploadDate, e.Timestamp),
		})
	}
	return results, nil
}

// DownloadRequest describes one download run.
type DownloadRequest struct {
	URL            string
	Format         string
	OutputTemplate string
	Extra          []string

	// OnPostProcess, if set, is called once when audio extraction starts.
	OnPostProcess func()
}

// Download fetches the media and returns the final file path printed by the engine.
func (y *YTDLP) Download(ctx context.Context, req DownloadRequest, onProgress func(float64)) (string, error) {
	args := y.baseArgs()
	args = append(args,
		command.Format, req.Format,
		command.NoPlaylist,
		command.ForceOverwrites,
		command.Newline,
		command.ProgressFlag,
		command.Output, req.OutputTemplate,
		command.Print, command.AfterMove,
	)
	if y.FFmpegPath != "" {
		args = append(args, command.FFmpegLocation, y.FFmpegPath)
	}
	args = append(args, req.Extra...)
	args = append(args, req.URL) // URL must go last

	var outputPath string
	postProcessing := false
	err := y.Runner.Stream(ctx, Cmd{Name: y.Path, Args: args}, func(line string) {
		if !postProcessing && strings.HasPrefix(line, command.ExtractAudioTag) {
			postProcessing = true
			if req.OnPostProcess != nil {
				req.OnPostProcess()
			}
		}
		if m := regex.DownloadProgressCompile().FindStringSubmatch(line); m != nil {
			if pct, err := strconv.ParseFloat(m[1], 64); err == nil && onProgress != nil {
				onProgress(min(pct/100.0, 1.0))
			}
			return
		}
		trimmed := strings.TrimSpace(line)
		if filepath.IsAbs(trimmed) {
			outputPath = trimmed
		}
		logger.Pl.D(4, "yt-dlp: %s", line)
	})
	if err != nil {
		return "", err
	}
	if outputPath == "" {
		return "", fmt.Errorf("%w: no output filename captured for %q", errs.ErrEngine, req.URL)
	}
	return outputPath, nil
}
