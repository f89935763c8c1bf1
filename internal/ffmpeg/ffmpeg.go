// Package ffmpeg is the bridge to the ffprobe and ffmpeg binaries: it probes
// media files for their tags and chapters, and remuxes a media file with a
// new FFMETADATA document without re-encoding any streams.
package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/hbomb79/ffmeta/pkg/logger"
)

var log = logger.Get("FFmpeg")

type Config struct {
	FfmpegBinPath  string
	FfprobeBinPath string
}

func (c Config) ffmpegPath() string {
	if c.FfmpegBinPath == "" {
		return "ffmpeg"
	}

	return c.FfmpegBinPath
}

func (c Config) ffprobePath() string {
	if c.FfprobeBinPath == "" {
		return "ffprobe"
	}

	return c.FfprobeBinPath
}

type FfmpegProgress struct {
	FramesProcessed string
	CurrentTime     string
	CurrentBitrate  string
	Progress        float64
	Speed           string
}

// Runner executes a single ffmpeg invocation, reading input and writing
// output using the options given, and blocks until it exits.
type Runner interface {
	Run(ctx context.Context, input string, output string, opts transcoder.Options, updateHandler func(*FfmpegProgress)) error
}

// Prober runs ffprobe against a file and returns its raw JSON output.
type Prober interface {
	Probe(ctx context.Context, path string) ([]byte, error)
}

type transcoderRunner struct {
	config Config
}

func (r *transcoderRunner) Run(ctx context.Context, input string, output string, opts transcoder.Options, updateHandler func(*FfmpegProgress)) error {
	instance := ffmpeg.
		New(&ffmpeg.Config{
			ProgressEnabled: true,
			FfmpegBinPath:   r.config.ffmpegPath(),
			FfprobeBinPath:  r.config.ffprobePath(),
		}).
		Input(input).
		Output(output).
		WithContext(&ctx)

	progressChannel, err := instance.Start(opts)
	if err != nil {
		return parseFfmpegError(err)
	}

	for prog := range progressChannel {
		updateHandler(&FfmpegProgress{
			FramesProcessed: prog.GetFramesProcessed(),
			CurrentTime:     prog.GetCurrentTime(),
			CurrentBitrate:  prog.GetCurrentBitrate(),
			Progress:        prog.GetProgress(),
			Speed:           prog.GetSpeed(),
		})
	}

	log.Emit(logger.DEBUG, "FFmpeg closed progress channel for %s\n", output)
	if err := ctx.Err(); err != nil {
		return err
	}

	// The progress channel is closed once the process has been waited on,
	// so its exit status is available here.
	return exitError(instance.GetRunningCmdInstance())
}

// exitError reports a command that ran to completion but did not exit
// successfully.
func exitError(cmd *exec.Cmd) error {
	if cmd == nil || cmd.ProcessState == nil || cmd.ProcessState.Success() {
		return nil
	}

	return fmt.Errorf("%w: ffmpeg %s", errs.ErrIO, cmd.ProcessState)
}

// parseFfmpegError picks the message out of the JSON ffprobe embeds in
// transcoder errors. The rest of that output describes how the binary was
// built and is not useful to users.
func parseFfmpegError(err error) error {
	messageMatcher := regexp.MustCompile(`(?s)message: ({.*})`)
	groups := messageMatcher.FindStringSubmatch(err.Error())
	if len(groups) == 0 {
		return err
	}

	var out struct {
		Error struct {
			String string `json:"string"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(groups[1]), &out); jsonErr != nil || out.Error.String == "" {
		return errors.New(groups[1])
	}

	return errors.New(out.Error.String)
}

// Service probes and remuxes media files using the configured binaries.
type Service struct {
	runner Runner
	prober Prober
}

// New creates a Service that executes the ffmpeg/ffprobe binaries named
// in config (falling back to $PATH lookups).
func New(config Config) *Service {
	return &Service{
		runner: &transcoderRunner{config: config},
		prober: &execProber{path: config.ffprobePath()},
	}
}

// NewWithRunners creates a Service using the given runner and prober in
// place of the real binaries.
func NewWithRunners(runner Runner, prober Prober) *Service {
	return &Service{runner: runner, prober: prober}
}
