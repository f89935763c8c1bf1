// Package cli wires the ffmeta commands. Each command is a thin layer over
// the metadata, codec and ffmpeg packages; all output goes to the app's
// Writer so the commands can be exercised without a terminal.
package cli

import (
	"context"

	"github.com/hbomb79/ffmeta/internal/config"
	"github.com/hbomb79/ffmeta/internal/ffmpeg"
	"github.com/hbomb79/ffmeta/internal/media"
	"github.com/hbomb79/ffmeta/internal/metadata"
	"github.com/hbomb79/ffmeta/pkg/logger"
	"github.com/urfave/cli/v2"
)

var log = logger.Get("CLI")

// Version is overridden at build time using ldflags.
var Version = "development"

// MediaService is the subset of ffmpeg.Service the commands need.
type MediaService interface {
	ProbeMetadata(ctx context.Context, path string) (*metadata.MediaMetadata, []ffmpeg.Warning, error)
	WriteMetadata(ctx context.Context, m *metadata.MediaMetadata, source string, output string, overwrite bool) (string, error)
}

// SniffFunc guesses the media category of a file.
type SniffFunc func(path string, sampleSize int) (metadata.Category, bool, error)

type app struct {
	config     *config.Config
	service    MediaService
	sniff      SniffFunc
	newService func(*config.Config) MediaService
	defaults   metadata.Defaults
}

// New builds the ffmeta application, backed by the real ffmpeg binaries.
func New() *cli.App {
	return newApp(&app{
		sniff: media.SniffCategory,
		newService: func(cfg *config.Config) MediaService {
			return ffmpeg.New(ffmpeg.Config{FfmpegBinPath: cfg.FfmpegBinaryPath, FfprobeBinPath: cfg.FfprobeBinaryPath})
		},
	})
}

// NewWithService builds the application around the given media service
// and category sniffer instead of ffmpeg.
func NewWithService(service MediaService, sniff SniffFunc) *cli.App {
	return newApp(&app{
		sniff:      sniff,
		newService: func(*config.Config) MediaService { return service },
	})
}

func newApp(a *app) *cli.App {
	return &cli.App{
		Name:                      "ffmeta",
		Usage:                     "Inspect and edit the tags and chapters of media files",
		Version:                   Version,
		EnableBashCompletion:      true,
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the configuration file (default " + config.DefaultPath + ")",
				EnvVars: []string{"FFMETA_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable coloured output",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log everything, including ffmpeg progress",
			},
		},
		Before: a.setup,
		Commands: []*cli.Command{
			a.probeCommand(),
			a.applyCommand(),
			a.editCommand(),
			a.lintCommand(),
			a.catalogCommand(),
		},
	}
}

// setup loads the configuration and prepares logging before any command
// runs.
func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	a.config = cfg

	level, err := logger.ParseStatus(cfg.LogLevel)
	if err != nil {
		return err
	}
	if c.Bool("verbose") {
		level = logger.VERBOSE
	}
	logger.SetMinLoggingLevel(level.Level())
	logger.SetOutput(c.App.ErrWriter)
	if cfg.NoColor || c.Bool("no-color") {
		logger.SetColorEnabled(false)
	}

	a.service = a.newService(cfg)
	if cfg.Encoder != "" {
		encoder := cfg.Encoder
		a.defaults = metadata.Defaults{"encoder": func() string { return encoder }}
	}
	log.Emit(logger.DEBUG, "Loaded configuration %+v\n", *cfg)
	return nil
}
