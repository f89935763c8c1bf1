package cli

import (
	"fmt"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/ffmpeg"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/pkg/logger"
	"github.com/urfave/cli/v2"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:    "out",
			Aliases: []string{"o"},
			Usage:   "Where to write the new media file (default MEDIA with .ffmeta before the extension)",
		},
		&cli.BoolFlag{
			Name:  "overwrite",
			Usage: "Replace the output file if it already exists",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Write the metadata even if some tags fail validation",
		},
	}
}

func (a *app) applyCommand() *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Write a metadata document (JSON or FFMETADATA) into a copy of a media file",
		ArgsUsage: "MEDIA",
		Flags: append([]cli.Flag{
			&cli.PathFlag{
				Name:     "metadata",
				Aliases:  []string{"m"},
				Usage:    "The metadata document to apply",
				Required: true,
			},
		}, outputFlags()...),
		Action: a.apply,
	}
}

func (a *app) apply(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: expected exactly one MEDIA argument", errs.ErrInvalidArgument)
	}

	m, err := loadDocument(c.Path("metadata"))
	if err != nil {
		return err
	}

	return a.write(c, m, c.Args().First())
}

// write validates m and remuxes it into the output chosen by the command's
// output flags.
func (a *app) write(c *cli.Context, m *metadata.MediaMetadata, source string) error {
	if err := m.ValidateTags(); err != nil {
		if !c.Bool("force") {
			return fmt.Errorf("refusing to write invalid tags (use --force to override):\n%w", err)
		}

		log.Emit(logger.WARNING, "Writing invalid tags:\n%s\n", err)
	}

	for _, issue := range m.ChapterIssues() {
		log.Emit(logger.WARNING, "%s\n", issue)
	}

	output := c.Path("out")
	if output == "" {
		output = ffmpeg.DefaultOutputPath(source)
	}

	written, err := a.service.WriteMetadata(c.Context, m, source, output, c.Bool("overwrite"))
	if err != nil {
		return err
	}

	successStyle.Fprintf(c.App.Writer, "Wrote %s\n", written)
	return nil
}
