// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the life server configuration.
//
// Precedence, lowest to highest: DefaultConfig, the YAML file, environment
// variables, then command-line flags applied by the caller.
//
// # Environment Variables
//
//   - LIFE_PORT: HTTP port
//   - LIFE_STORE: "badger" or "memory"
//   - LIFE_DATA_DIR: badger data directory
//   - LIFE_LOG_LEVEL: debug, info, warn, error
//   - OTEL_TRACES_EXPORTER, OTEL_METRICS_EXPORTER, OTEL_EXPORTER_OTLP_ENDPOINT
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AleutianAI/AleutianLife/services/life/boards"
	"github.com/AleutianAI/AleutianLife/services/life/middleware"
	"github.com/AleutianAI/AleutianLife/services/life/telemetry"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Store types.
const (
	StoreBadger = "badger"
	StoreMemory = "memory"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig               `yaml:"server"`
	Store     StoreConfig                `yaml:"store"`
	Boards    boards.ServiceConfig       `yaml:"boards"`
	RateLimit middleware.RateLimitConfig `yaml:"rate_limit"`
	Telemetry telemetry.Config           `yaml:"telemetry"`
	Logging   LoggingConfig              `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// MaxBodyBytes caps request bodies. Zero disables the cap.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gte=0"`
}

// StoreConfig selects the board store.
type StoreConfig struct {
	// Type is "badger" (persistent) or "memory".
	Type string `yaml:"type" validate:"oneof=badger memory"`

	// DataDir is the badger directory. Required for badger.
	DataDir string `yaml:"data_dir" validate:"required_if=Type badger"`

	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval" validate:"gte=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`

	// Dir receives daily log files when set.
	Dir string `yaml:"dir"`

	// JSON forces JSON output. Otherwise JSON is used only when stderr is
	// not a terminal.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	dataDir := "life-data"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".aleutian", "life", "data")
	}

	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            12230,
			ShutdownTimeout: 10 * time.Second,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			MaxBodyBytes:    1 << 20,
		},
		Store: StoreConfig{
			Type:       StoreBadger,
			DataDir:    dataDir,
			SyncWrites: true,
			GCInterval: 5 * time.Minute,
		},
		Boards:    boards.DefaultServiceConfig(),
		RateLimit: middleware.DefaultRateLimitConfig(),
		Telemetry: telemetry.DefaultConfig(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the configuration.
//
// # Description
//
// Starts from DefaultConfig, overlays the YAML file at path when path is
// non-empty, applies environment overrides and validates the result.
//
// # Inputs
//
//   - path: YAML file path. Empty skips the file.
//
// # Outputs
//
//   - Config: The merged configuration.
//   - error: Read or parse failure, or ErrInvalidConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read the config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("LIFE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LIFE_PORT %q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("LIFE_STORE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("LIFE_DATA_DIR"); v != "" {
		cfg.Store.DataDir = v
	}
	if v := os.Getenv("LIFE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OTEL_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TraceExporter = v
	}
	if v := os.Getenv("OTEL_METRICS_EXPORTER"); v != "" {
		cfg.Telemetry.MetricExporter = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLPEndpoint = v
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field constraint.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, describe(verrs))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
	}
	return msg
}

// WriteDefault writes DefaultConfig as YAML to path, creating parent
// directories.
func WriteDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
