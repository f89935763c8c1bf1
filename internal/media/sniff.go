package media

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
)

const DefaultSampleSize = 2048

// DetectCategory guesses the MIME type of sample and maps its primary
// component onto a media category.
func DetectCategory(sample []byte) (metadata.Category, bool) {
	return metadata.ParseCategory(mimetype.Detect(sample).String())
}

// SniffCategory reads up to sampleSize bytes from the start of the file at
// path (DefaultSampleSize when sampleSize is not positive) and guesses its
// media category. Files that are not audio, video or images report false.
func SniffCategory(path string, sampleSize int) (metadata.Category, bool, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("%w: media file %s", errs.ErrNotFound, path)
		}

		return "", false, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	defer file.Close()

	sample := make([]byte, sampleSize)
	n, err := io.ReadFull(file, sample)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", false, fmt.Errorf("%w: reading %s: %w", errs.ErrIO, path, err)
	}

	category, ok := DetectCategory(sample[:n])
	return category, ok, nil
}
