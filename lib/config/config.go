// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/truthqr/lib/envelope"
	"github.com/bureau-foundation/truthqr/lib/publish"
	"github.com/bureau-foundation/truthqr/lib/serializer"
	"github.com/bureau-foundation/truthqr/lib/transport"
)

// EnvironmentVariable names the variable Load reads the config path
// from.
const EnvironmentVariable = "TRUTHQR_CONFIG"

// Envelope kinds.
const (
	EnvelopeLine = "line"
	EnvelopeURL  = "url"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config is the complete truthqr configuration.
type Config struct {
	Envelope   EnvelopeConfig   `yaml:"envelope" toml:"envelope"`
	Serializer SerializerConfig `yaml:"serializer" toml:"serializer"`
	Transport  TransportConfig  `yaml:"transport" toml:"transport"`
	Chunking   ChunkingConfig   `yaml:"chunking" toml:"chunking"`
	Store      StoreConfig      `yaml:"store" toml:"store"`
	Log        LogConfig        `yaml:"log" toml:"log"`
}

// EnvelopeConfig selects and configures the framing of fragments.
type EnvelopeConfig struct {
	// Kind is "line" or "url".
	Kind string `yaml:"kind" toml:"kind"`

	// Prefix is the document kind emitted. Default: ER
	Prefix string `yaml:"prefix" toml:"prefix"`

	// Version is the wire format version. Default: v1
	Version string `yaml:"version" toml:"version"`

	// Scheme is the deep-link scheme of the url envelope. Default: truth
	Scheme string `yaml:"scheme" toml:"scheme"`

	// WebBase switches the url envelope to web URLs under this base.
	WebBase string `yaml:"web_base" toml:"web_base"`

	// PayloadParam is the url query key carrying the fragment.
	// Default: c
	PayloadParam string `yaml:"payload_param" toml:"payload_param"`

	// VersionParam is the web-form query key carrying the version.
	// Default: v
	VersionParam string `yaml:"version_param" toml:"version_param"`

	// AcceptPrefixes lists additional document kinds accepted when
	// parsing. Lines are still emitted with Prefix.
	AcceptPrefixes []string `yaml:"accept_prefixes" toml:"accept_prefixes"`
}

// SerializerConfig selects the document format.
type SerializerConfig struct {
	// Name is json, jsonc, yaml, cbor or auto. Default: json
	Name string `yaml:"name" toml:"name"`
}

// TransportConfig selects the transport codec.
type TransportConfig struct {
	// Name is base64url, deflate, gzip, zstd or lz4. Default: base64url
	Name string `yaml:"name" toml:"name"`
}

// ChunkingConfig controls how the publisher splits payloads.
type ChunkingConfig struct {
	// Strategy is "size" or "count". Default: size
	Strategy string `yaml:"strategy" toml:"strategy"`

	// Size is the maximum fragment length for the size strategy.
	// Default: 1200
	Size int `yaml:"size" toml:"size"`

	// Count is the number of fragments for the count strategy.
	// Default: 4
	Count int `yaml:"count" toml:"count"`
}

// StoreConfig selects and configures the chunk store.
type StoreConfig struct {
	// Backend is memory, sqlite or redis. Default: memory
	Backend string `yaml:"backend" toml:"backend"`

	// TTLSeconds is how long an untouched set lives. Default: 86400
	TTLSeconds int `yaml:"ttl_seconds" toml:"ttl_seconds"`

	// SQLitePath is the database file of the sqlite backend.
	SQLitePath string `yaml:"sqlite_path" toml:"sqlite_path"`

	// RedisAddr is host:port of the redis backend.
	// Default: 127.0.0.1:6379
	RedisAddr string `yaml:"redis_addr" toml:"redis_addr"`

	// RedisNamespace prefixes every redis key. Default: truthqr
	RedisNamespace string `yaml:"redis_namespace" toml:"redis_namespace"`

	// Timeout bounds each store operation issued by the CLI, as a Go
	// duration string. Default: 5s
	Timeout string `yaml:"timeout" toml:"timeout"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level" toml:"level"`
}

// Default returns the configuration used for keys a file omits.
func Default() *Config {
	return &Config{
		Envelope: EnvelopeConfig{
			Kind:         EnvelopeLine,
			Prefix:       envelope.DefaultPrefix,
			Version:      envelope.DefaultVersion,
			Scheme:       envelope.DefaultScheme,
			PayloadParam: envelope.DefaultPayloadParam,
			VersionParam: envelope.DefaultVersionParam,
		},
		Serializer: SerializerConfig{Name: "json"},
		Transport:  TransportConfig{Name: "base64url"},
		Chunking: ChunkingConfig{
			Strategy: string(publish.BySize),
			Size:     publish.DefaultMaxLen,
			Count:    4,
		},
		Store: StoreConfig{
			Backend:        BackendMemory,
			TTLSeconds:     86400,
			RedisAddr:      "127.0.0.1:6379",
			RedisNamespace: "truthqr",
			Timeout:        "5s",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load loads configuration from the file named by TRUTHQR_CONFIG.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your truthqr config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Store.SQLitePath = expandVars(c.Store.SQLitePath, vars)
	c.Store.RedisAddr = expandVars(c.Store.RedisAddr, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// TTL returns the store TTL as a duration.
func (s StoreConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// OperationTimeout returns the parsed store timeout.
func (s StoreConfig) OperationTimeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("store.timeout: %w", err)
	}
	return timeout, nil
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch c.Envelope.Kind {
	case EnvelopeLine:
		for _, prefix := range append([]string{c.Envelope.Prefix}, c.Envelope.AcceptPrefixes...) {
			if strings.Contains(prefix, envelope.Separator) {
				errs = append(errs, fmt.Errorf("envelope prefix %q must not contain %q", prefix, envelope.Separator))
			}
		}
		if strings.Contains(c.Envelope.Version, envelope.Separator) {
			errs = append(errs, fmt.Errorf("envelope.version must not contain %q", envelope.Separator))
		}
	case EnvelopeURL:
		if c.Envelope.Scheme == "" && c.Envelope.WebBase == "" {
			errs = append(errs, fmt.Errorf("envelope.scheme or envelope.web_base is required for url envelopes"))
		}
	default:
		errs = append(errs, fmt.Errorf("envelope.kind must be one of: [%s %s], got %q", EnvelopeLine, EnvelopeURL, c.Envelope.Kind))
	}
	if c.Envelope.Prefix == "" {
		errs = append(errs, fmt.Errorf("envelope.prefix is required"))
	}
	if c.Envelope.Version == "" {
		errs = append(errs, fmt.Errorf("envelope.version is required"))
	}

	if _, err := serializer.ByName(c.Serializer.Name); err != nil {
		errs = append(errs, fmt.Errorf("serializer.name: %w", err))
	}
	if _, err := transport.ByName(c.Transport.Name); err != nil {
		errs = append(errs, fmt.Errorf("transport.name: %w", err))
	}

	if _, err := publish.ParseStrategy(c.Chunking.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("chunking.strategy: %w", err))
	}
	if c.Chunking.Size < 1 {
		errs = append(errs, fmt.Errorf("chunking.size must be at least 1, got %d", c.Chunking.Size))
	}
	if c.Chunking.Count < 1 {
		errs = append(errs, fmt.Errorf("chunking.count must be at least 1, got %d", c.Chunking.Count))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be one of: [%s %s %s], got %q",
			BackendMemory, BackendSQLite, BackendRedis, c.Store.Backend))
	}
	if c.Store.TTLSeconds < 0 {
		errs = append(errs, fmt.Errorf("store.ttl_seconds must not be negative"))
	}
	if timeout, err := c.Store.OperationTimeout(); err != nil {
		errs = append(errs, err)
	} else if timeout <= 0 {
		errs = append(errs, fmt.Errorf("store.timeout must be positive"))
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
