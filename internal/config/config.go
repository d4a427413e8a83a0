// Package config loads the YAML configuration file.
//
// Configuration is resolved in order of increasing precedence:
//  1. Built-in defaults (Default)
//  2. The YAML file given to Load
//  3. The DIGITALSEE_CORPUS environment variable
//  4. Command-line flags, applied by the caller
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/FocuswithJustin/digitalsee/internal/logging"
	"github.com/FocuswithJustin/digitalsee/internal/validation"
)

// EnvCorpus overrides corpus.dir.
const EnvCorpus = "DIGITALSEE_CORPUS"

// Config is the full application configuration.
type Config struct {
	Corpus CorpusConfig `yaml:"corpus"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Export ExportConfig `yaml:"export"`
}

// CorpusConfig locates the corpus.
type CorpusConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
	// Watch rebuilds the snapshot only when corpus files change.
	Watch bool `yaml:"watch"`
	// CacheTTL reuses a snapshot for this long. Zero rebuilds per request.
	CacheTTL time.Duration `yaml:"cache_ttl"`
	// WatchDebounce coalesces bursts of file events.
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// LogConfig selects the logging level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ExportConfig configures document export.
type ExportConfig struct {
	Prefix string `yaml:"prefix"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{Dir: "./xmls"},
		Server: ServerConfig{
			Port:          8080,
			WatchDebounce: 200 * time.Millisecond,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Export: ExportConfig{Prefix: "matched_"},
	}
}

// Load returns the defaults overlaid with the file at path and the
// environment. An empty path skips the file; a path that does not exist is
// an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// decode overlays YAML onto c. Keys absent from data keep their current
// values; unknown keys are rejected.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(EnvCorpus)); v != "" {
		c.Corpus.Dir = v
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Corpus.Dir) == "" {
		return fmt.Errorf("corpus.dir must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.CacheTTL < 0 {
		return fmt.Errorf("server.cache_ttl must be non-negative, got %s", c.Server.CacheTTL)
	}
	if c.Server.WatchDebounce < 0 {
		return fmt.Errorf("server.watch_debounce must be non-negative, got %s", c.Server.WatchDebounce)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log.format: %w", err)
	}

	if c.Export.Prefix == "" {
		return fmt.Errorf("export.prefix must not be empty")
	}
	if err := validation.ValidatePrefix(c.Export.Prefix); err != nil {
		return fmt.Errorf("export.prefix: %w", err)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
