package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/ffmpeg"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/pkg/logger"
	"github.com/rjeczalik/notify"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const (
	documentSniffSize = 512
	watchSettleDelay  = 250 * time.Millisecond
)

type lintReport struct {
	path          string
	category      metadata.Category
	invalid       metadata.TagErrors
	missing       []metadata.TagDefinition
	unknown       []metadata.Tag
	chapterIssues []metadata.ChapterIssue
	warnings      []ffmpeg.Warning
}

func (r *lintReport) clean() bool {
	return len(r.invalid) == 0 && len(r.missing) == 0 && len(r.unknown) == 0 && len(r.chapterIssues) == 0 && len(r.warnings) == 0
}

func (a *app) lintCommand() *cli.Command {
	return &cli.Command{
		Name:      "lint",
		Usage:     "Check media files or metadata documents for invalid, missing and unknown tags",
		ArgsUsage: "FILE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Lint again whenever one of the files changes",
			},
		},
		Action: a.lint,
	}
}

// isDocument reports whether the file at path is a metadata document
// (FFMETADATA or JSON) rather than a media file.
func isDocument(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("%w: %s", errs.ErrNotFound, path)
		}

		return false, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}
	defer file.Close()

	head := make([]byte, documentSniffSize)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("%w: reading %s: %w", errs.ErrIO, path, err)
	}

	head = bytes.TrimSpace(head[:n])
	return isFFMetadata(head) || bytes.HasPrefix(head, []byte("{")), nil
}

func (a *app) lintFile(ctx context.Context, path string) (*lintReport, error) {
	report := &lintReport{path: path}

	document, err := isDocument(path)
	if err != nil {
		return nil, err
	}

	var m *metadata.MediaMetadata
	if document {
		if m, err = loadDocument(path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	} else {
		if m, report.warnings, err = a.service.ProbeMetadata(ctx, path); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		category, ok, err := a.sniff(path, a.config.SniffSampleSize)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if ok {
			report.category = category
		}
	}

	if err := m.ValidateTags(); err != nil {
		if !errors.As(err, &report.invalid) {
			return nil, err
		}
	}

	for def := range m.MissingTags(report.category) {
		report.missing = append(report.missing, def)
	}
	for tag := range m.UnknownTags() {
		report.unknown = append(report.unknown, tag)
	}
	report.chapterIssues = m.ChapterIssues()

	return report, nil
}

// lintAll lints each path, probing up to the configured number of media
// files at once. Reports are returned in the order of paths.
func (a *app) lintAll(ctx context.Context, paths []string) ([]*lintReport, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.ProbeConcurrency)

	reports := make([]*lintReport, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			report, err := a.lintFile(ctx, path)
			if err != nil {
				return err
			}

			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return reports, nil
}

func printReport(w io.Writer, report *lintReport) {
	if report.category != "" {
		headingStyle.Fprintf(w, "%s (%s)\n", report.path, report.category)
	} else {
		headingStyle.Fprintf(w, "%s\n", report.path)
	}

	for _, tagErr := range report.invalid {
		errorStyle.Fprintf(w, "  invalid  %s\n", tagErr.Error())
	}
	for _, def := range report.missing {
		warningStyle.Fprintf(w, "  missing  %s (%s)\n", def.Key, def.Title)
	}
	for _, tag := range report.unknown {
		if suggestion, ok := metadata.Suggest(tag.Key); ok {
			mutedStyle.Fprintf(w, "  unknown  %s, did you mean %s?\n", tag.Key, suggestion.Key)
		} else {
			mutedStyle.Fprintf(w, "  unknown  %s\n", tag.Key)
		}
	}
	for _, issue := range report.chapterIssues {
		warningStyle.Fprintf(w, "  chapter  %s\n", issue)
	}
	for _, warning := range report.warnings {
		warningStyle.Fprintf(w, "  skipped  %s\n", warning)
	}

	if report.clean() {
		successStyle.Fprintf(w, "  no problems found\n")
	}
}

func (a *app) lintOnce(c *cli.Context, paths []string) error {
	reports, err := a.lintAll(c.Context, paths)
	if err != nil {
		return err
	}

	invalid := 0
	for _, report := range reports {
		printReport(c.App.Writer, report)
		if len(report.invalid) > 0 {
			invalid++
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d file(s) have invalid tags", errs.ErrValidation, invalid, len(reports))
	}

	return nil
}

func (a *app) lint(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return fmt.Errorf("%w: expected at least one FILE argument", errs.ErrInvalidArgument)
	}

	if !c.Bool("watch") {
		return a.lintOnce(c, paths)
	}

	return a.watch(c, paths)
}

// watch lints paths, then lints them again every time one of them is
// written, until the command's context is cancelled.
func (a *app) watch(c *cli.Context, paths []string) error {
	events := make(chan notify.EventInfo, 16)
	for _, path := range paths {
		if err := notify.Watch(path, events, notify.Write, notify.Create, notify.Rename); err != nil {
			notify.Stop(events)
			return fmt.Errorf("%w: watching %s: %w", errs.ErrIO, path, err)
		}
	}
	defer notify.Stop(events)

	for {
		if err := a.lintOnce(c, paths); err != nil {
			log.Emit(logger.ERROR, "%s\n", err)
		}
		mutedStyle.Fprintf(c.App.Writer, "Watching %d file(s) for changes...\n", len(paths))

		select {
		case event := <-events:
			log.Emit(logger.VERBOSE, "%s changed (%s)\n", event.Path(), event.Event())
		case <-c.Context.Done():
			return nil
		}

		// Editors tend to write a file in several steps; wait for them to
		// settle before linting again.
		settle := time.After(watchSettleDelay)
	drain:
		for {
			select {
			case <-events:
			case <-settle:
				break drain
			case <-c.Context.Done():
				return nil
			}
		}
	}
}
