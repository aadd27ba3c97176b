package parsing

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
	"grabarr/internal/domain/logger"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// WatchURL returns the canonical watch page for a video ID.
func WatchURL(id string) string {
	return watchURLPrefix + url.QueryEscape(id)
}

// ValidateURL checks the URL has an http(s) scheme and a host.
func ValidateURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty URL", errs.ErrValidation)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %w", errs.ErrValidation, raw, err)
	}
	if _, ok := consts.ValidSchemes[strings.ToLower(u.Scheme)]; !ok {
		return nil, fmt.Errorf("%w: URL %q must use http or https", errs.ErrValidation, raw)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: URL %q has no host", errs.ErrValidation, raw)
	}
	return u, nil
}

// VideoIDFromURL derives the video ID from recognizable watch, short-link and shorts URLs.
func VideoIDFromURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "music.")

	var id string
	switch host {
	case "youtu.be":
		id, _, _ = strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	case "youtube.com", "youtube-nocookie.com":
		if u.Path == "/watch" {
			id = u.Query().Get("v")
			break
		}
		for _, prefix := range []string{"/shorts/", "/embed/", "/live/"} {
			if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
				id, _, _ = strings.Cut(rest, "/")
				break
			}
		}
	}

	if !validVideoID(id) {
		return "", false
	}
	return id, true
}

func validVideoID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// ParseLinkFile returns the URLs listed in a file, one per line, in file order.
//
// Blank lines and lines starting with '#' are skipped. Repeated URLs are kept,
// since each line is an independent queue entry.
func ParseLinkFile(fpath string) ([]string, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Pl.E("Failed to close file %q: %v", fpath, err)
		}
	}()

	var links []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		u := strings.TrimSpace(scanner.Text())
		if u == "" || strings.HasPrefix(u, "#") {
			continue
		}
		links = append(links, u)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return links, nil
}
