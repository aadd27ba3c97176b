package parsing

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/errs"
)

func TestValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://www.youtube.com/watch?v=abc", false},
		{"http", "http://example.com/video", false},
		{"upper scheme", "HTTPS://example.com", false},
		{"empty", "   ", true},
		{"no scheme", "not-a-url", true},
		{"ftp", "ftp://example.com/file", true},
		{"no host", "https:///path", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestVideoIDFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ", true},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ", true},
		{"https://youtu.be/dQw4w9WgXcQ?si=xyz", "dQw4w9WgXcQ", true},
		{"https://youtube.com/shorts/abc_DEF-123", "abc_DEF-123", true},
		{"https://vimeo.com/12345", "", false},
		{"https://www.youtube.com/watch", "", false},
		{"https://www.youtube.com/watch?v=bad%20id", "", false},
	}

	for _, tt := range tests {
		got, ok := VideoIDFromURL(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("VideoIDFromURL(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWatchURLRoundTrip(t *testing.T) {
	t.Parallel()

	id, ok := VideoIDFromURL(WatchURL("abc123"))
	if !ok || id != "abc123" {
		t.Fatalf("expected abc123, got %q (%v)", id, ok)
	}
}

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		fallback string
		want     string
	}{
		{"plain", "My Video", "id1", "My_Video"},
		{"unsafe", `a/b\c:d*e?f"g<h>i|j`, "id1", "abcdefghij"},
		{"non ascii", "Café über 日本", "id1", "Caf_ber"},
		{"spaces", "  lots   of   space  ", "id1", "lots_of_space"},
		{"empty falls back", "日本語", "abc123", "abc123"},
		{"both empty", "", "", "download"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SanitizeFilename(tt.title, tt.fallback); got != tt.want {
				t.Fatalf("SanitizeFilename(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	t.Parallel()

	got := SanitizeFilename(strings.Repeat("a", 300), "id")
	if len(got) != consts.MaxFilenameLen {
		t.Fatalf("expected length %d, got %d", consts.MaxFilenameLen, len(got))
	}
}

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	if got := NormalizeQuery("  lo-fi   beats \t"); got != "lo-fi beats" {
		t.Fatalf("unexpected query %q", got)
	}
}

func TestParseUploadDate(t *testing.T) {
	t.Parallel()

	got := ParseUploadDate("20240102", 0)
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if got := ParseUploadDate("", 1700000000); got.Unix() != 1700000000 {
		t.Fatalf("expected timestamp fallback, got %v", got)
	}
	if got := ParseUploadDate("garbage", 0); !got.IsZero() {
		t.Fatalf("expected zero time, got %v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		0:      "",
		61:     "1:01",
		3725.4: "1:02:05",
	}
	for in, want := range tests {
		if got := FormatDuration(in); got != want {
			t.Errorf("FormatDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestHyphenateYyyyMmDd(t *testing.T) {
	t.Parallel()

	if got := HyphenateYyyyMmDd("20240102"); got != "2024-01-02" {
		t.Fatalf("unexpected %q", got)
	}
	if got := HyphenateYyyyMmDd("2024"); got != "2024" {
		t.Fatalf("unexpected %q", got)
	}
}

func TestParseLinkFile(t *testing.T) {
	t.Parallel()

	fpath := filepath.Join(t.TempDir(), "links.txt")
	content := "# comment\nhttps://a.example/1\n\n  https://b.example/2  \nhttps://a.example/1\n"
	if err := os.WriteFile(fpath, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ParseLinkFile(fpath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"https://a.example/1", "https://b.example/2", "https://a.example/1"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
