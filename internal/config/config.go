// Package config loads hvaccore settings from YAML.
//
// Unknown keys are rejected so that typos surface instead of silently
// falling back to defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/engryamato/hvaccore/internal/entity"
	"github.com/engryamato/hvaccore/internal/history"
)

// Config is the root of the configuration file.
type Config struct {
	History  HistoryConfig  `yaml:"history"`
	Flow     FlowConfig     `yaml:"flow"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
}

// HistoryConfig bounds undo history.
type HistoryConfig struct {
	MaxSize int `yaml:"max_size"`
}

// FlowConfig selects which equipment types act as flow sources.
type FlowConfig struct {
	SourceEquipmentTypes []entity.EquipmentType `yaml:"source_equipment_types"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig locates the SQLite file. Empty disables persistence.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		History: HistoryConfig{MaxSize: history.DefaultMaxSize},
		Flow: FlowConfig{SourceEquipmentTypes: []entity.EquipmentType{
			entity.EquipmentDiffuser,
			entity.EquipmentHood,
			entity.EquipmentDamper,
		}},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns
// the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults and validates the result.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges. Returns a *ValidationError listing every
// problem found.
func (c Config) Validate() error {
	var problems []string
	if c.History.MaxSize <= 0 {
		problems = append(problems, fmt.Sprintf("history.max_size must be positive, got %d", c.History.MaxSize))
	}
	if len(c.Flow.SourceEquipmentTypes) == 0 {
		problems = append(problems, "flow.source_equipment_types must not be empty")
	}
	for _, t := range c.Flow.SourceEquipmentTypes {
		if !validEquipmentType(t) {
			problems = append(problems, fmt.Sprintf("flow.source_equipment_types: unknown type %q", t))
		}
	}
	if _, ok := levels[strings.ToLower(c.Log.Level)]; !ok {
		problems = append(problems, fmt.Sprintf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("log.format: must be text or json, got %q", c.Log.Format))
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validEquipmentType(t entity.EquipmentType) bool {
	switch t {
	case entity.EquipmentHood, entity.EquipmentFan, entity.EquipmentDiffuser, entity.EquipmentDamper:
		return true
	}
	return false
}

// ValidationError reports every invalid setting at once.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
