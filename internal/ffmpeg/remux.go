package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/ffmetadata"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/pkg/logger"
)

// RemuxOptions are the ffmpeg arguments that copy every stream of the
// input unchanged while taking global metadata and chapters from a second
// FFMETADATA input.
type RemuxOptions struct {
	MetadataPath string
	Overwrite    bool
}

// GetStrArguments implements transcoder.Options. The source input and the
// output path are added by the transcoder itself.
func (o RemuxOptions) GetStrArguments() []string {
	args := []string{
		"-i", o.MetadataPath,
		"-map_metadata", "1",
		"-map_chapters", "1",
		"-codec", "copy",
	}
	if o.Overwrite {
		args = append(args, "-y")
	}

	return args
}

func exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}

	return absA == absB
}

// Remux writes output as a copy of source whose global metadata and
// chapters are replaced by those in the FFMETADATA document at
// metadataPath. Remuxing in place is refused; write to another path and
// rename instead.
func (s *Service) Remux(ctx context.Context, metadataPath string, source string, output string, overwrite bool) (string, error) {
	if found, err := exists(source); err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrIO, err)
	} else if !found {
		return "", fmt.Errorf("%w: media file %s", errs.ErrNotFound, source)
	}

	outputExists, err := exists(output)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	if outputExists && !overwrite {
		return "", fmt.Errorf("%w: output %s (use overwrite to replace it)", errs.ErrAlreadyExists, output)
	}

	if samePath(source, output) {
		return "", fmt.Errorf("%w: output %s cannot be the same as the media file", errs.ErrInvalidArgument, output)
	}

	if found, err := exists(metadataPath); err != nil || !found {
		return "", fmt.Errorf("%w: metadata document %s is not available", errs.ErrIO, metadataPath)
	}

	log.Emit(logger.INFO, "Remuxing %s -> %s\n", source, output)
	opts := RemuxOptions{MetadataPath: metadataPath, Overwrite: overwrite}
	err = s.runner.Run(ctx, source, output, opts, func(progress *FfmpegProgress) {
		log.Emit(logger.VERBOSE, "%s: %.1f%% (time=%s speed=%s)\n", output, progress.Progress, progress.CurrentTime, progress.Speed)
	})
	if err != nil {
		return "", fmt.Errorf("remuxing %s: %w", source, err)
	}

	// Runners report a failed exit; a missing output is caught separately.
	if found, _ := exists(output); !found {
		return "", fmt.Errorf("%w: ffmpeg did not produce %s", errs.ErrIO, output)
	}

	log.Emit(logger.SUCCESS, "Wrote %s\n", output)
	return output, nil
}

// WriteMetadata renders m as FFMETADATA (using the catalog's write names)
// into a temporary document and remuxes source with it. The temporary
// document is always removed before returning.
func (s *Service) WriteMetadata(ctx context.Context, m *metadata.MediaMetadata, source string, output string, overwrite bool) (string, error) {
	file, err := os.CreateTemp("", "ffmeta-*.txt")
	if err != nil {
		return "", fmt.Errorf("%w: creating temporary metadata document: %w", errs.ErrIO, err)
	}
	defer os.Remove(file.Name())

	writeErr := ffmetadata.Dump(file, m.ForWriting())
	closeErr := file.Close()
	if writeErr != nil {
		return "", writeErr
	}
	if closeErr != nil {
		return "", fmt.Errorf("%w: closing temporary metadata document: %w", errs.ErrIO, closeErr)
	}

	return s.Remux(ctx, file.Name(), source, output, overwrite)
}

// DefaultOutputPath suggests an output path beside source, for example
// /media/song.mp3 becomes /media/song.ffmeta.mp3.
func DefaultOutputPath(source string) string {
	ext := filepath.Ext(source)
	return strings.TrimSuffix(source, ext) + ".ffmeta" + ext
}
