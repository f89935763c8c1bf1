package ffmpeg

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/internal/timestamp"
)

// Warning is a non-fatal problem found while projecting a probe result.
type Warning struct {
	// Chapter is the index of the offending chapter in the probe output.
	Chapter int
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("chapter #%d: %s", w.Chapter, w.Message)
}

// secondsToTimestamp converts ffprobe's decimal seconds into a Timestamp,
// truncating anything below a millisecond.
func secondsToTimestamp(seconds string) (timestamp.Timestamp, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(seconds), 64)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, fmt.Errorf("negative offset %s", seconds)
	}

	return timestamp.FromMilliseconds(int64(value * 1000)), nil
}

// Project builds MediaMetadata from a probe result. Format tags are kept in
// ffprobe's order with lowercased keys. Chapters are sorted by their start
// (stable) and any chapter without a usable start_time or end_time is
// skipped with a Warning rather than failing the projection.
func Project(result *ProbeResult) (*metadata.MediaMetadata, []Warning, error) {
	if result == nil || result.Format == nil {
		return nil, nil, fmt.Errorf("%w: probe result has no format section", errs.ErrFormat)
	}

	var tags []metadata.Tag
	for _, tag := range result.Format.Tags {
		tags = append(tags, metadata.Tag{Key: strings.ToLower(tag.Key), Value: tag.Value})
	}

	// Warnings carry the chapter's position after sorting.
	ordered := slices.Clone(result.Chapters)
	slices.SortStableFunc(ordered, func(a, b Chapter) int { return cmp.Compare(a.Start, b.Start) })

	var (
		chapters []metadata.MediaChapter
		warnings []Warning
	)
	for i, c := range ordered {
		if c.StartTime == "" || c.EndTime == "" {
			warnings = append(warnings, Warning{Chapter: i, Message: "missing start_time or end_time, skipping"})
			continue
		}

		start, err := secondsToTimestamp(c.StartTime)
		if err != nil {
			warnings = append(warnings, Warning{Chapter: i, Message: fmt.Sprintf("invalid start_time %q, skipping", c.StartTime)})
			continue
		}

		end, err := secondsToTimestamp(c.EndTime)
		if err != nil {
			warnings = append(warnings, Warning{Chapter: i, Message: fmt.Sprintf("invalid end_time %q, skipping", c.EndTime)})
			continue
		}

		title, _ := c.Tags.Get("title")
		description, _ := c.Tags.Get("description")
		chapters = append(chapters, metadata.MediaChapter{
			Title:       title,
			Description: description,
			StartTime:   start,
			EndTime:     end,
		})
	}

	return metadata.New(tags, chapters), warnings, nil
}
