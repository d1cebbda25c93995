// Package config loads nysig settings from an optional YAML file, fills
// defaults, applies environment overrides and validates the result.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config path is given and the file exists.
const DefaultPath = "nysig.yaml"

// Environment variables that override file values.
const (
	EnvRulesFile  = "NYSIG_RULES_FILE"
	EnvResultsDir = "NYSIG_RESULTS_DIR"
	EnvHistoryDB  = "NYSIG_HISTORY_DB"
	EnvLogLevel   = "NYSIG_LOG_LEVEL"
)

// Config holds the settings shared by every command.
type Config struct {
	// RulesFile is the rule store source. JSON unless it ends in .yaml/.yml.
	RulesFile string `yaml:"rules_file" default:"rules.json" validate:"required"`

	// ResultsDir receives trading_signals_<ts>.json files.
	ResultsDir string `yaml:"results_dir" default:"results" validate:"required"`

	// HistoryDB is the SQLite run history. Empty disables history.
	HistoryDB string `yaml:"history_db"`

	// MetricsFile is the Prometheus textfile written after evaluate.
	// Empty disables it.
	MetricsFile string `yaml:"metrics_file"`

	Log LogConfig `yaml:"log"`
}

// LogConfig selects log level and encoding.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" default:"console" validate:"oneof=console json"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Default returns a Config with every default applied.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// Struct tags are static; a failure here is a programming error.
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv(EnvRulesFile); v != "" {
		c.RulesFile = v
	}
	if v := os.Getenv(EnvResultsDir); v != "" {
		c.ResultsDir = v
	}
	if v := os.Getenv(EnvHistoryDB); v != "" {
		c.HistoryDB = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Resolve picks the config file to read: path if set, otherwise
// DefaultPath when it exists, otherwise none.
func Resolve(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}
