// Package ffmetadata reads and writes ffmpeg's FFMETADATA text format, the
// document ffmpeg accepts (and produces with -f ffmetadata) to describe a
// media file's tags and chapters:
//
//	;FFMETADATA
//	title=Some Title
//
//	[CHAPTER]
//	TIMEBASE=1/1000
//	START=0
//	END=1000
//	title=Intro
package ffmetadata

import (
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/internal/timestamp"
)

const (
	Header          = ";FFMETADATA"
	ChapterMarker   = "[CHAPTER]"
	defaultTimebase = "1/1000"
)

var keyValuePattern = regexp.MustCompile(`^([\p{L}\p{N}_]+)=(.*)$`)

// chapterState accumulates the fields of the chapter section currently
// being read.
type chapterState struct {
	title       string
	description string
	start       *timestamp.Timestamp
	end         *timestamp.Timestamp
	timebase    *big.Rat
	rawStart    string
	rawEnd      string
	line        int
}

func newChapterState(line int) *chapterState {
	return &chapterState{line: line, timebase: big.NewRat(1, 1000)}
}

func (c *chapterState) complete() bool {
	return c.title != "" && c.start != nil && c.end != nil
}

func (c *chapterState) build() metadata.MediaChapter {
	return metadata.MediaChapter{
		Title:       c.title,
		Description: c.description,
		StartTime:   *c.start,
		EndTime:     *c.end,
	}
}

// set records a recognised chapter key. START and END are resolved
// against the timebase once the section closes, since ffmpeg does not
// require TIMEBASE to come first.
func (c *chapterState) set(key, value string, line int) error {
	switch strings.ToLower(key) {
	case "timebase":
		rate, err := parseTimebase(value)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", errs.ErrFormat, line, err)
		}
		c.timebase = rate
	case "start":
		c.rawStart = value
	case "end":
		c.rawEnd = value
	case "title":
		c.title = value
	case "description":
		c.description = value
	}

	return nil
}

// resolve converts the raw START/END values into timestamps using the
// chapter's timebase.
func (c *chapterState) resolve() error {
	for _, field := range []struct {
		name  string
		raw   string
		store **timestamp.Timestamp
	}{
		{"START", c.rawStart, &c.start},
		{"END", c.rawEnd, &c.end},
	} {
		if field.raw == "" {
			continue
		}

		ts, err := scaleToTimestamp(field.raw, c.timebase)
		if err != nil {
			return fmt.Errorf("%w: chapter starting on line %d: invalid %s: %w", errs.ErrFormat, c.line, field.name, err)
		}
		*field.store = &ts
	}

	return nil
}

func parseTimebase(value string) (*big.Rat, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return nil, fmt.Errorf("timebase %q is not of the form num/den", value)
	}

	n, errN := strconv.ParseInt(num, 10, 64)
	d, errD := strconv.ParseInt(den, 10, 64)
	if errN != nil || errD != nil || n <= 0 || d <= 0 {
		return nil, fmt.Errorf("timebase %q must be two positive integers", value)
	}

	return big.NewRat(n, d), nil
}

// scaleToTimestamp converts a tick count in the given timebase (seconds per
// tick) to whole milliseconds, truncating any remainder.
func scaleToTimestamp(raw string, timebase *big.Rat) (timestamp.Timestamp, error) {
	ticks, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	if ticks < 0 {
		return 0, fmt.Errorf("%q is negative", raw)
	}

	ms := new(big.Rat).Mul(new(big.Rat).SetInt64(ticks), timebase)
	ms.Mul(ms, big.NewRat(1000, 1))

	whole := new(big.Int).Quo(ms.Num(), ms.Denom())
	if !whole.IsInt64() {
		return 0, fmt.Errorf("%q overflows the timestamp range", raw)
	}

	return timestamp.FromMilliseconds(whole.Int64()), nil
}

// Loads parses an FFMETADATA document.
//
// Lines before the first [CHAPTER] marker that look like key=value become
// tags, in document order and with duplicates kept. Anything else outside
// a chapter is ignored, as are unknown keys inside one.
//
// A chapter that is missing its title, START or END when the next [CHAPTER]
// marker is reached is an error. The final chapter is treated more
// leniently: if the document ends before it is complete, it is dropped.
func Loads(content string) (*metadata.MediaMetadata, error) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	if !strings.EqualFold(strings.TrimSpace(lines[0]), Header) {
		return nil, fmt.Errorf("%w: missing %s header", errs.ErrFormat, Header)
	}

	var (
		tags     []metadata.Tag
		chapters []metadata.MediaChapter
		current  *chapterState
	)

	for i, line := range lines[1:] {
		lineNumber := i + 2
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.EqualFold(line, ChapterMarker) {
			if current != nil {
				if err := current.resolve(); err != nil {
					return nil, err
				}

				if !current.complete() {
					return nil, fmt.Errorf("%w: chapter before line %d is incomplete (title, START and END are required)", errs.ErrFormat, lineNumber)
				}

				chapters = append(chapters, current.build())
			}

			current = newChapterState(lineNumber)
			continue
		}

		match := keyValuePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		key, value := match[1], match[2]
		if current == nil {
			tags = append(tags, metadata.Tag{Key: key, Value: value})
			continue
		}

		if err := current.set(key, value, lineNumber); err != nil {
			return nil, err
		}
	}

	if current != nil {
		if err := current.resolve(); err != nil {
			return nil, err
		}

		if current.complete() {
			chapters = append(chapters, current.build())
		}
	}

	return metadata.New(tags, chapters), nil
}

// Load reads the whole of r and parses it with Loads.
func Load(r io.Reader) (*metadata.MediaMetadata, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading ffmetadata: %w", errs.ErrIO, err)
	}

	return Loads(string(content))
}

// DumpChapter renders a single chapter section. The description line is
// omitted when the chapter has no description.
func DumpChapter(chapter metadata.MediaChapter) string {
	lines := []string{
		ChapterMarker,
		"TIMEBASE=" + defaultTimebase,
		"START=" + strconv.FormatInt(chapter.StartTime.Milliseconds(), 10),
		"END=" + strconv.FormatInt(chapter.EndTime.Milliseconds(), 10),
		"title=" + chapter.Title,
	}
	if chapter.Description != "" {
		lines = append(lines, "description="+chapter.Description)
	}

	return strings.Join(lines, "\n")
}

// Dumps renders m as an FFMETADATA document. Tags are written exactly as
// they appear in m; use MediaMetadata.ForWriting first to apply the
// catalog's write names. The metadata version is not part of the format.
func Dumps(m *metadata.MediaMetadata) string {
	tags := make([]string, len(m.Tags))
	for i, tag := range m.Tags {
		tags[i] = tag.Key + "=" + tag.Value
	}

	chapters := make([]string, len(m.Chapters))
	for i, chapter := range m.Chapters {
		chapters[i] = DumpChapter(chapter)
	}

	return strings.Join([]string{
		Header,
		strings.Join(tags, "\n"),
		"",
		strings.Join(chapters, "\n\n"),
	}, "\n")
}

// Dump writes the Dumps rendering of m to w.
func Dump(w io.Writer, m *metadata.MediaMetadata) error {
	if _, err := io.WriteString(w, Dumps(m)); err != nil {
		return fmt.Errorf("%w: writing ffmetadata: %w", errs.ErrIO, err)
	}

	return nil
}
