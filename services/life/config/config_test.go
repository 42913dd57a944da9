// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnv reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"LIFE_PORT", "LIFE_STORE", "LIFE_DATA_DIR", "LIFE_LOG_LEVEL",
		"OTEL_TRACES_EXPORTER", "OTEL_METRICS_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 12230, cfg.Server.Port)
	assert.Equal(t, StoreBadger, cfg.Store.Type)
	assert.NotEmpty(t, cfg.Store.DataDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 65_536, cfg.Boards.MaxCells)

	cfg.Server.MaxBodyBytes = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, cfg.Server)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "life.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
  shutdown_timeout: 3s
store:
  type: memory
boards:
  max_steps: 42
logging:
  level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, 42, cfg.Boards.MaxSteps)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, DefaultConfig().Boards.MaxAttempts, cfg.Boards.MaxAttempts)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "life.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0644))

	t.Setenv("LIFE_PORT", "9100")
	t.Setenv("LIFE_STORE", "memory")
	t.Setenv("LIFE_LOG_LEVEL", "warn")
	t.Setenv("OTEL_TRACES_EXPORTER", "stdout")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server: [\n"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("LIFE_PORT", "eighty")
	_, err = Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown store", func(c *Config) { c.Store.Type = "redis" }},
		{"badger without dir", func(c *Config) { c.Store.DataDir = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad trace exporter", func(c *Config) { c.Telemetry.TraceExporter = "jaeger" }},
		{"negative max steps", func(c *Config) { c.Boards.MaxSteps = -1 }},
		{"zero shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestValidate_MemoryWithoutDir(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	cfg.Store.Type = StoreMemory
	cfg.Store.DataDir = ""
	assert.NoError(t, cfg.Validate())
}

func TestWriteDefault_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "life.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
