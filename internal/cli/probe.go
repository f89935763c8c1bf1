package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hbomb79/ffmeta/internal/document"
	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/internal/ffmetadata"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/urfave/cli/v2"
)

const (
	formatJSON       = "json"
	formatFFMetadata = "ffmetadata"
)

// isFFMetadata reports whether content starts with the FFMETADATA header
// rather than being a JSON document.
func isFFMetadata(content []byte) bool {
	firstLine, _, _ := bytes.Cut(content, []byte("\n"))
	return strings.EqualFold(strings.TrimSpace(string(firstLine)), ffmetadata.Header)
}

// loadDocument reads a metadata document in either supported format.
func loadDocument(path string) (*metadata.MediaMetadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: metadata document %s", errs.ErrNotFound, path)
		}

		return nil, fmt.Errorf("%w: %w", errs.ErrIO, err)
	}

	if isFFMetadata(content) {
		return ffmetadata.Loads(string(content))
	}

	return document.Unmarshal(content)
}

func renderDocument(w io.Writer, m *metadata.MediaMetadata, format string) error {
	switch format {
	case formatJSON:
		return document.Dump(w, m)
	case formatFFMetadata:
		if err := ffmetadata.Dump(w, m); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	default:
		return fmt.Errorf("%w: unknown format %q (expected %s or %s)", errs.ErrInvalidArgument, format, formatJSON, formatFFMetadata)
	}
}

func (a *app) probeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "Print the tags and chapters of a media file",
		ArgsUsage: "MEDIA",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format, json or ffmetadata",
				Value:   formatJSON,
			},
			&cli.PathFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Write the document to this file instead of stdout",
			},
		},
		Action: a.probe,
	}
}

func (a *app) probe(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: expected exactly one MEDIA argument", errs.ErrInvalidArgument)
	}

	m, _, err := a.service.ProbeMetadata(c.Context, c.Args().First())
	if err != nil {
		return err
	}

	out := c.Path("out")
	if out == "" {
		return renderDocument(c.App.Writer, m, c.String("format"))
	}

	var buf bytes.Buffer
	if err := renderDocument(&buf, m, c.String("format")); err != nil {
		return err
	}

	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: writing %s: %w", errs.ErrIO, out, err)
	}

	successStyle.Fprintf(c.App.Writer, "Wrote metadata of %s to %s\n", c.Args().First(), out)
	return nil
}
