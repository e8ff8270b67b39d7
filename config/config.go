// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config holds the settings for an import run.
//
// A Config is built from defaults, optionally overlaid with a YAML file, and
// finally with command line flags. Validate must pass before the config is
// handed to docimport.Open.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Destination kinds.
const (
	DestinationBadger   = "badger"
	DestinationPostgres = "postgres"
	DestinationAPI      = "api"
	DestinationScript   = "script"
)

// DestinationConfig selects and configures where records are delivered.
type DestinationConfig struct {
	// Kind is one of badger, postgres, api or script.
	Kind string `yaml:"kind"`

	// Path is the badger data directory.
	Path string `yaml:"path"`

	// DSN is the PostgreSQL connection string for the postgres kind.
	DSN string `yaml:"dsn"`
	// EnsureSchema creates the songs and edit_count tables when missing.
	EnsureSchema bool `yaml:"ensure_schema"`

	// URL is the application base URL for the api kind.
	URL string `yaml:"url"`

	// Host, Port, User, Database and Password are psql connection settings
	// for the script kind.
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Database   string `yaml:"database"`
	Password   string `yaml:"password"`
	Psql       string `yaml:"psql"`
	ScriptDir  string `yaml:"script_dir"`
	KeepScript bool   `yaml:"keep_script"`

	// Timeout bounds a single API request or the psql run.
	Timeout time.Duration `yaml:"timeout"`
}

// Config holds all settings for an import run.
type Config struct {
	// SourceLocations maps a label (usually a language) to a directory.
	SourceLocations map[string]string `yaml:"source_locations"`

	// BatchSize is the number of records committed together.
	// Default: 100
	BatchSize int `yaml:"batch_size"`

	// Workers is the extraction pool size. 0 means half the CPUs.
	Workers int `yaml:"workers"`

	// ConfirmOverride skips the interactive confirmation.
	ConfirmOverride bool `yaml:"confirm_override"`

	// ExtractTimeout bounds each legacy-format decode.
	// Default: 10s
	ExtractTimeout time.Duration `yaml:"extract_timeout"`

	// AntiwordPath is the antiword executable.
	AntiwordPath string `yaml:"antiword_path"`

	// ReportInterval is how many documents pass between progress snapshots.
	// Default: 100
	ReportInterval int `yaml:"report_interval"`

	// ErrorLogDir is where the failure CSV is written.
	// Default: current directory
	ErrorLogDir string `yaml:"error_log_dir"`

	// ReindexURL is the application base URL. When set, a reindex is
	// requested after a run that committed records.
	ReindexURL string `yaml:"reindex_url"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	Destination DestinationConfig `yaml:"destination"`
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithSource adds a label to directory mapping.
func WithSource(label, dir string) Option {
	return func(c *Config) {
		if c.SourceLocations == nil {
			c.SourceLocations = make(map[string]string)
		}
		c.SourceLocations[label] = dir
	}
}

// WithBatchSize sets the batch size.
func WithBatchSize(size int) Option {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithWorkers sets the extraction pool size.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithConfirmOverride skips the confirmation prompt.
func WithConfirmOverride(yes bool) Option {
	return func(c *Config) {
		c.ConfirmOverride = yes
	}
}

// WithExtractTimeout sets the per-document decode bound.
func WithExtractTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ExtractTimeout = d
	}
}

// WithErrorLogDir sets where the failure log is written.
func WithErrorLogDir(dir string) Option {
	return func(c *Config) {
		c.ErrorLogDir = dir
	}
}

// WithReindexURL sets the application base URL for the reindex call.
func WithReindexURL(url string) Option {
	return func(c *Config) {
		c.ReindexURL = url
	}
}

// WithDestination replaces the destination settings.
func WithDestination(d DestinationConfig) Option {
	return func(c *Config) {
		c.Destination = d
	}
}

// DefaultConfig returns a Config that writes to a local badger store.
func DefaultConfig() *Config {
	return &Config{
		SourceLocations: make(map[string]string),
		BatchSize:       100,
		ExtractTimeout:  10 * time.Second,
		AntiwordPath:    "antiword",
		ReportInterval:  100,
		ErrorLogDir:     ".",
		LogLevel:        "info",
		Destination: DestinationConfig{
			Kind: DestinationBadger,
			Path: "./docimport-data",
		},
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LoadFile overlays the YAML file at path onto the defaults.
// Keys missing from the file keep their default values.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.SourceLocations == nil {
		cfg.SourceLocations = make(map[string]string)
	}
	return cfg, nil
}

// Normalize puts the configuration in canonical form.
func (c *Config) Normalize() {
	c.Destination.Kind = strings.ToLower(strings.TrimSpace(c.Destination.Kind))
	c.Destination.URL = strings.TrimSuffix(c.Destination.URL, "/")
	c.ReindexURL = strings.TrimSuffix(c.ReindexURL, "/")
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if len(c.SourceLocations) == 0 {
		return errors.New("config: at least one source location is required")
	}
	for label, dir := range c.SourceLocations {
		if strings.TrimSpace(label) == "" {
			return errors.New("config: source location label cannot be empty")
		}
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("config: source location %q has no directory", label)
		}
	}
	if c.BatchSize < 1 {
		return errors.New("config: BatchSize must be at least 1")
	}
	if c.Workers < 0 {
		return errors.New("config: Workers cannot be negative")
	}
	if c.ExtractTimeout <= 0 {
		return errors.New("config: ExtractTimeout must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.Destination.Kind {
	case DestinationBadger:
		if c.Destination.Path == "" {
			return errors.New("config: destination path is required for badger")
		}
	case DestinationPostgres:
		if c.Destination.DSN == "" {
			return errors.New("config: destination dsn is required for postgres")
		}
	case DestinationAPI:
		if c.Destination.URL == "" {
			return errors.New("config: destination url is required for api")
		}
	case DestinationScript:
		if c.Destination.Database == "" {
			return errors.New("config: destination database is required for script")
		}
	default:
		return fmt.Errorf("config: unknown destination kind %q", c.Destination.Kind)
	}
	return nil
}
