package downloads

import (
	"errors"
	"fmt"
	"os"

	"github.com/dhowden/tag"

	"grabarr/internal/domain/logger"
)

// AudioVerifier checks an extracted audio file.
type AudioVerifier interface {
	Verify(path string) error
}

// tagVerifier reads the file's tags to confirm it is a readable audio file.
type tagVerifier struct{}

func (tagVerifier) Verify(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Pl.E("Failed to close file %q: %v", path, err)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%q is empty", path)
	}

	m, err := tag.ReadFrom(f)
	if errors.Is(err, tag.ErrNoTagsFound) {
		logger.Pl.D(2, "No tags in %q", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("unreadable tags in %q: %w", path, err)
	}
	logger.Pl.D(2, "Verified %s file %q (title %q, artist %q)", m.FileType(), path, m.Title(), m.Artist())
	return nil
}
