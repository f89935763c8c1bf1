package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/ffmeta/internal/errs"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

const DefaultPath = "~/.config/ffmeta/config.yaml"

// Config is the user configuration, read from a YAML file and then
// overridden by FFMETA_* environment variables. cleanenv applies env-default
// to any field left at its zero value, so options that default to on are
// expressed negatively.
type Config struct {
	FfmpegBinaryPath  string `yaml:"ffmpeg_binary" env:"FFMETA_FFMPEG_BINARY" env-default:"ffmpeg" validate:"required"`
	FfprobeBinaryPath string `yaml:"ffprobe_binary" env:"FFMETA_FFPROBE_BINARY" env-default:"ffprobe" validate:"required"`
	SniffSampleSize   int    `yaml:"sniff_sample_size" env:"FFMETA_SNIFF_SAMPLE_SIZE" env-default:"2048" validate:"min=1"`
	LogLevel          string `yaml:"log_level" env:"FFMETA_LOG_LEVEL" env-default:"info" validate:"oneof=verbose debug info success warning error fatal"`
	NoColor           bool   `yaml:"no_color" env:"FFMETA_NO_COLOR"`
	ProbeConcurrency  int    `yaml:"probe_concurrency" env:"FFMETA_PROBE_CONCURRENCY" env-default:"4" validate:"min=1,max=64"`
	// Encoder is suggested as the value of the "encoder" tag.
	Encoder string `yaml:"encoder" env:"FFMETA_ENCODER" env-default:"ffmeta"`
}

// Load reads the configuration at path. An empty path means DefaultPath,
// which is allowed to be missing (only the environment is read then); an
// explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("%w: expanding config path %s: %w", errs.ErrInvalidArgument, path, err)
	}

	config := &Config{}
	if _, statErr := os.Stat(expanded); statErr == nil {
		if err := cleanenv.ReadConfig(expanded, config); err != nil {
			return nil, fmt.Errorf("%w: failed to load configuration %s: %w", errs.ErrFormat, expanded, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) && !explicit {
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("%w: failed to read configuration from environment: %w", errs.ErrFormat, err)
		}
	} else if errors.Is(statErr, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: config file %s", errs.ErrNotFound, expanded)
	} else {
		return nil, fmt.Errorf("%w: %w", errs.ErrIO, statErr)
	}

	if err := config.expandPaths(); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("%w: invalid configuration: %w", errs.ErrValidation, err)
	}

	return config, nil
}

func (c *Config) expandPaths() error {
	for _, path := range []*string{&c.FfmpegBinaryPath, &c.FfprobeBinaryPath} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("%w: expanding %s: %w", errs.ErrInvalidArgument, *path, err)
		}
		*path = expanded
	}

	return nil
}
