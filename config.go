package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// envPrefix scopes environment overrides, e.g. BITRATE_WINDOW=500ms
	envPrefix = "BITRATE_"

	// configPathEnvVar names a YAML config file when --config is not given
	configPathEnvVar = "BITRATE_CONFIG"
)

// Config holds the settings for one run
type Config struct {
	Mode        string        `koanf:"mode" validate:"oneof=time gop frame"`
	Window      time.Duration `koanf:"window" validate:"gt=0"`
	Width       int           `koanf:"width" validate:"gte=0,lte=100000"`
	Height      int           `koanf:"height" validate:"gte=2,lte=200"`
	Format      string        `koanf:"format" validate:"oneof=table csv json"`
	InputFormat string        `koanf:"input_format" validate:"oneof=auto ffprobe csv"`
	Timescale   uint32        `koanf:"timescale"`
	Graph       bool          `koanf:"graph"`
	List        bool          `koanf:"list"`
	AllModes    bool          `koanf:"all_modes"`
	MinPct      float64       `koanf:"min_pct" validate:"gte=0,lte=100"`
	Cursor      float64       `koanf:"cursor" validate:"gte=-1,lte=1"`
	Metrics     bool          `koanf:"metrics"`
	Log         LogConfig     `koanf:"log"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=console json"`
}

// defaultConfig returns the built-in defaults, overridden by file, env and flags
func defaultConfig() *Config {
	return &Config{
		Mode:        "time",
		Window:      time.Second,
		Width:       0, // terminal width
		Height:      12,
		Format:      "table",
		InputFormat: "auto",
		Graph:       true,
		Cursor:      -1, // no cursor
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// LoadConfig layers configuration sources:
//  1. Defaults
//  2. YAML file from path, or from $BITRATE_CONFIG (optional)
//  3. BITRATE_* environment variables
//  4. Explicitly set command-line flags (overrides)
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(configPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for key, value := range overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransformFunc maps BITRATE_LOG_LEVEL -> log.level and BITRATE_MIN_PCT -> min_pct.
// Returning "" skips the variable.
func envTransformFunc(key string) string {
	if key == configPathEnvVar {
		return ""
	}
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if rest, ok := strings.CutPrefix(key, "log_"); ok {
		return "log." + rest
	}
	return key
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and cross-field constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldErrorMessage(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if c.InputFormat == "csv" && c.Timescale == 0 {
		return errors.New("csv input requires a timescale (ticks per second)")
	}

	return nil
}

// fieldErrorMessage renders a validator failure using the config key name
func fieldErrorMessage(fe validator.FieldError) string {
	name := strings.ToLower(fe.Namespace())
	name = strings.TrimPrefix(name, "config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", name, fe.Param(), fe.Value())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s, got %v", name, fe.Tag(), fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}

// ModeName returns the mode label used in reports
func (c *Config) ModeName() string {
	if c.Mode == "time" {
		return fmt.Sprintf("time (%s windows)", formatDuration(c.Window))
	}
	return c.Mode
}
