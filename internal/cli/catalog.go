package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/urfave/cli/v2"
)

func (a *app) catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "List the tags ffmeta knows about",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "category",
				Usage: "Only list the tags desired for audio, video or image files",
			},
		},
		Action: a.catalog,
	}
}

func printDefinition(w io.Writer, def metadata.TagDefinition) {
	valueStyle.Fprintf(w, "%s", def.Key)
	fmt.Fprintf(w, "  %s\n", def.Title)
	fmt.Fprintf(w, "    %s\n", def.Description)
	if def.WriteName() != def.Key {
		mutedStyle.Fprintf(w, "    written as %s\n", def.WriteName())
	}
	if len(def.Examples) > 0 {
		mutedStyle.Fprintf(w, "    examples: %s\n", strings.Join(def.Examples, ", "))
	}
	if def.Default != nil {
		mutedStyle.Fprintf(w, "    has a suggested default\n")
	}
}

func (a *app) catalog(c *cli.Context) error {
	definitions := metadata.Definitions()
	if name := c.String("category"); name != "" {
		category, ok := metadata.ParseCategory(name)
		if !ok {
			return fmt.Errorf("%w: unknown category %q (expected audio, video or image)", errs.ErrInvalidArgument, name)
		}

		definitions = metadata.DesiredTags(category)
		headingStyle.Fprintf(c.App.Writer, "Tags desired for %s files\n", category)
	}

	for def := range definitions {
		printDefinition(c.App.Writer, def)
	}

	return nil
}
