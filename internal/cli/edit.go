package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/internal/timestamp"
	"github.com/hbomb79/ffmeta/pkg/logger"
	"github.com/urfave/cli/v2"
)

func (a *app) editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change the tags and chapters of a media file, writing the result to a copy",
		ArgsUsage: "MEDIA",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Set a tag, as key=value (replaces the first existing value)",
			},
			&cli.StringSliceFlag{
				Name:  "remove-tag",
				Usage: "Remove every tag with this key",
			},
			&cli.BoolFlag{
				Name:  "defaults",
				Usage: "Fill in missing desired tags that have a suggested default",
			},
			&cli.StringSliceFlag{
				Name:    "chapter",
				Aliases: []string{"C"},
				Usage:   `Add a chapter, as "START-END=Title" (e.g. "1:30-4:02.500=Verse")`,
			},
			&cli.BoolFlag{
				Name:  "clear-chapters",
				Usage: "Remove all existing chapters before adding new ones",
			},
		}, outputFlags()...),
		Action: a.edit,
	}
}

// parseTagFlag splits a key=value flag. The value may itself contain '='.
func parseTagFlag(flag string) (string, string, error) {
	key, value, found := strings.Cut(flag, "=")
	if !found || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("%w: tag %q must be of the form key=value", errs.ErrInvalidArgument, flag)
	}

	return strings.TrimSpace(key), value, nil
}

// parseChapterFlag reads a "START-END=Title" chapter definition. The times
// use the flexible timestamp form, so "1:30" and "01:01:30.000" are both
// accepted.
func parseChapterFlag(flag string) (metadata.MediaChapter, error) {
	span, title, found := strings.Cut(flag, "=")
	if !found || title == "" {
		return metadata.MediaChapter{}, fmt.Errorf("%w: chapter %q must be of the form START-END=Title", errs.ErrInvalidArgument, flag)
	}

	rawStart, rawEnd, found := strings.Cut(span, "-")
	if !found {
		return metadata.MediaChapter{}, fmt.Errorf("%w: chapter %q is missing its END time", errs.ErrInvalidArgument, flag)
	}

	start, err := timestamp.ParseFlexible(strings.TrimSpace(rawStart))
	if err != nil {
		return metadata.MediaChapter{}, fmt.Errorf("chapter %q start: %w", flag, err)
	}

	end, err := timestamp.ParseFlexible(strings.TrimSpace(rawEnd))
	if err != nil {
		return metadata.MediaChapter{}, fmt.Errorf("chapter %q end: %w", flag, err)
	}

	return metadata.MediaChapter{Title: title, StartTime: start, EndTime: end}, nil
}

// applyDefaults sets every missing desired tag that has a default provider,
// preferring the providers in overrides.
func applyDefaults(m *metadata.MediaMetadata, category metadata.Category, overrides metadata.Defaults) {
	for _, def := range slices.Collect(m.MissingTags(category)) {
		if value, ok := def.DefaultValueWith(overrides); ok && value != "" {
			log.Emit(logger.INFO, "Defaulting %s to %q\n", def.Key, value)
			m.SetTag(def.Key, value)
		}
	}
}

func (a *app) edit(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: expected exactly one MEDIA argument", errs.ErrInvalidArgument)
	}
	source := c.Args().First()

	// Parse every flag up front so mistakes are reported before probing.
	var tags [][2]string
	for _, flag := range c.StringSlice("tag") {
		key, value, err := parseTagFlag(flag)
		if err != nil {
			return err
		}
		tags = append(tags, [2]string{key, value})
	}

	var chapters []metadata.MediaChapter
	for _, flag := range c.StringSlice("chapter") {
		chapter, err := parseChapterFlag(flag)
		if err != nil {
			return err
		}
		chapters = append(chapters, chapter)
	}

	m, _, err := a.service.ProbeMetadata(c.Context, source)
	if err != nil {
		return err
	}

	if c.Bool("clear-chapters") {
		m.Chapters = nil
	}

	for _, key := range c.StringSlice("remove-tag") {
		if removed := m.RemoveTags(key); removed == 0 {
			log.Emit(logger.WARNING, "No %q tag to remove\n", key)
		}
	}

	for _, tag := range tags {
		if _, known := metadata.Lookup(tag[0]); !known {
			warnUnknownKey(tag[0])
		}
		m.SetTag(tag[0], tag[1])
	}

	if c.Bool("defaults") {
		category, ok, err := a.sniff(source, a.config.SniffSampleSize)
		if err != nil {
			return err
		}
		if !ok {
			log.Emit(logger.WARNING, "Could not tell what kind of media %s is, only required tags will be defaulted\n", source)
		}

		applyDefaults(m, category, a.defaults)
	}

	m.Chapters = append(m.Chapters, chapters...)
	m.SortChapters()

	return a.write(c, m, source)
}

func warnUnknownKey(key string) {
	if suggestion, ok := metadata.Suggest(key); ok {
		log.Emit(logger.WARNING, "%q is not a known tag, did you mean %q?\n", key, suggestion.Key)
		return
	}

	log.Emit(logger.WARNING, "%q is not a known tag\n", key)
}
