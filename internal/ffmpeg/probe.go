package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/pkg/logger"
)

type execProber struct {
	path string
}

func (p *execProber) Probe(ctx context.Context, path string) ([]byte, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		"-show_chapters",
		path,
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w (output: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}

// Probe runs ffprobe against path and decodes its report.
func (s *Service) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: media file %s", errs.ErrNotFound, path)
		}

		return nil, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}

	log.Emit(logger.VERBOSE, "Probing %s\n", path)
	output, err := s.prober.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	var result ProbeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output for %s: %w", errs.ErrFormat, path, err)
	}

	if result.Format == nil {
		return nil, fmt.Errorf("%w: ffprobe reported no format for %s", errs.ErrFormat, path)
	}

	return &result, nil
}

// ProbeMetadata probes path and projects the result into MediaMetadata.
// Chapters skipped during projection are logged as warnings and returned.
func (s *Service) ProbeMetadata(ctx context.Context, path string) (*metadata.MediaMetadata, []Warning, error) {
	result, err := s.Probe(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	m, warnings, err := Project(result)
	if err != nil {
		return nil, nil, err
	}

	for _, warning := range warnings {
		log.Emit(logger.WARNING, "%s: %s\n", path, warning)
	}

	return m, warnings, nil
}
