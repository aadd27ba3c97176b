package parsing

import (
	"strings"
	"unicode"

	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/regex"
)

// SanitizeFilename strips path-unsafe and non-ASCII characters, joins words with
// underscores and truncates to consts.MaxFilenameLen. Falls back to fallback when
// nothing usable remains.
func SanitizeFilename(title, fallback string) string {
	name := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII || unicode.IsControl(r) {
			return -1
		}
		return r
	}, title)

	name = regex.UnsafeFilenameCharsCompile().ReplaceAllString(name, "")
	name = strings.TrimSpace(regex.ExtraSpacesCompile().ReplaceAllString(name, " "))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.Trim(name, "._-")

	if len(name) > consts.MaxFilenameLen {
		name = strings.TrimRight(name[:consts.MaxFilenameLen], "._-")
	}
	if name == "" {
		if fallback == "" || fallback == title {
			return "download"
		}
		return SanitizeFilename(fallback, "")
	}
	return name
}

// NormalizeQuery trims and collapses whitespace in a search query.
func NormalizeQuery(q string) string {
	return strings.TrimSpace(regex.ExtraSpacesCompile().ReplaceAllString(q, " "))
}
