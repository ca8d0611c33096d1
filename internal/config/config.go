// Package config loads the mediascan configuration from an optional YAML
// file and MEDIASCAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/mediascan/internal/discover"
	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/settings"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/mitchellh/go-homedir"
)

// DefaultConfigPath is consulted when no configuration file is
// explicitly provided. It is not an error for it to be missing.
const DefaultConfigPath = "~/.config/mediascan/config.yaml"

// Config is the configuration of a mediascan run. Values are taken from
// the YAML file (if any), then overridden by environment variables, and
// then by any CLI flags.
type Config struct {
	Extensions       []string      `yaml:"extensions" env:"MEDIASCAN_EXTENSIONS" env-default:".mp3,.mp4,.avi,.mkv,.mov,.wav,.flac,.m4a,.aac" validate:"min=1,dive,required"`
	Adapters         []string      `yaml:"adapters" env:"MEDIASCAN_ADAPTERS" env-default:"container,tags" validate:"unique,dive,adapter"`
	Output           OutputConfig  `yaml:"output"`
	Binaries         BinaryConfig  `yaml:"binaries"`
	ProgressInterval int           `yaml:"progress_interval" env:"MEDIASCAN_PROGRESS_INTERVAL" env-default:"10" validate:"gt=0"`
	LogLevel         string        `yaml:"log_level" env:"MEDIASCAN_LOG_LEVEL" env-default:"INFO" validate:"loglevel"`
	SettingsPath     string        `yaml:"settings_path" env:"MEDIASCAN_SETTINGS_PATH"`
	WatchDebounce    time.Duration `yaml:"watch_debounce" env:"MEDIASCAN_WATCH_DEBOUNCE" env-default:"2s"`
}

// OutputConfig controls the reports written at the end of a batch.
type OutputConfig struct {
	Path          string `yaml:"path" env:"MEDIASCAN_OUTPUT" env-default:"media_metadata.xlsx" validate:"required"`
	JSONPath      string `yaml:"json" env:"MEDIASCAN_JSON_OUTPUT"`
	GroupByFolder bool   `yaml:"group_by_folder" env:"MEDIASCAN_GROUP_BY_FOLDER"`
}

// BinaryConfig locates the external tools used by some adapters.
type BinaryConfig struct {
	Ffprobe  string `yaml:"ffprobe" env:"MEDIASCAN_FFPROBE_PATH" env-default:"ffprobe"`
	Exiftool string `yaml:"exiftool" env:"MEDIASCAN_EXIFTOOL_PATH"`
}

// Load reads the configuration from the file at the path provided,
// overlaying any MEDIASCAN_* environment variables. If the path is
// empty, DefaultConfigPath is used if it exists; otherwise only the
// environment (and defaults) are used.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand configuration path %s: %w", path, err)
	}

	config := &Config{}
	if _, err := os.Stat(expanded); err == nil || explicit {
		if err := config.LoadFromFile(expanded); err != nil {
			return nil, err
		}
	} else if errors.Is(err, fs.ErrNotExist) {
		if err := cleanenv.ReadEnv(config); err != nil {
			return nil, fmt.Errorf("failed to load configuration from environment - %v", err)
		}
	} else {
		return nil, fmt.Errorf("failed to access configuration file %s: %w", expanded, err)
	}

	if err := config.Finalize(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromFile loads a configuration file formatted in YAML in to the
// config, overlaying any MEDIASCAN_* environment variables.
func (config *Config) LoadFromFile(configPath string) error {
	if err := cleanenv.ReadConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to load configuration from %s - %v", configPath, err)
	}

	return nil
}

// Finalize normalizes the configuration (extension casing, adapter names
// and '~' expansion of paths) and then validates it. It must be called
// after any CLI flag overrides are applied.
func (config *Config) Finalize() error {
	for i, ext := range config.Extensions {
		config.Extensions[i] = discover.NormalizeExtension(ext)
	}
	for i, name := range config.Adapters {
		config.Adapters[i] = strings.ToLower(strings.TrimSpace(name))
	}
	if len(config.Adapters) == 0 {
		config.Adapters = append([]string{}, extract.DefaultAdapters...)
	}
	if config.SettingsPath == "" {
		config.SettingsPath = settings.DefaultPath()
	}

	for _, path := range []*string{&config.Output.Path, &config.Output.JSONPath, &config.SettingsPath, &config.Binaries.Exiftool} {
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return fmt.Errorf("failed to expand path %s: %w", *path, err)
		}
		*path = expanded
	}

	return config.Validate()
}

// Validate ensures the configuration is usable.
func (config *Config) Validate() error {
	if err := newValidator().Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if config.WatchDebounce < 0 {
		return fmt.Errorf("invalid configuration: watch debounce must not be negative (got %s)", config.WatchDebounce)
	}

	return nil
}

// DiscoveryExtensions returns the extension allow-list for discovery. Image
// extensions are included when the EXIF adapter is enabled.
func (config *Config) DiscoveryExtensions() []string {
	exts := append([]string{}, config.Extensions...)
	if extract.Includes(config.Adapters, extract.ExifSource) {
		exts = append(exts, discover.ImageExtensions...)
	}

	return exts
}

// AdapterOptions returns the options used to construct the adapter chain.
func (config *Config) AdapterOptions() extract.Options {
	return extract.Options{
		FfprobeBinaryPath:  config.Binaries.Ffprobe,
		ExiftoolBinaryPath: config.Binaries.Exiftool,
	}
}

// MinLogLevel returns the logging level configured.
func (config *Config) MinLogLevel() logger.LogStatus {
	status, err := logger.ParseLogStatus(config.LogLevel)
	if err != nil {
		return logger.DEFAULT_MIN_STAT
	}

	return status
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("adapter", func(fl validator.FieldLevel) bool {
		return extract.Includes(extract.KnownAdapters(), fl.Field().String())
	})
	validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logger.ParseLogStatus(fl.Field().String())
		return err == nil
	})

	return validate
}
