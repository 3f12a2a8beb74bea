// Package config loads Flametower settings from a TOML file and the
// environment.
//
// Settings are resolved in three layers, later layers winning:
//
//  1. [Default]
//  2. the TOML file (missing file means defaults)
//  3. FLAMETOWER_* environment variables, optionally seeded from .env files
//
// Example config.toml:
//
//	[render]
//	color_mode = "width"
//	formats = ["svg", "png"]
//
//	[cache]
//	redis_addr = "localhost:6379"
//	ttl = "12h"
//
//	[server]
//	addr = ":8080"
//	storage = "mongo"
//	mongo_uri = "mongodb://localhost:27017"
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	errs "github.com/matzehuels/flametower/pkg/errors"
	"github.com/matzehuels/flametower/pkg/flame"
	"github.com/matzehuels/flametower/pkg/pipeline"
	"github.com/matzehuels/flametower/pkg/render"
)

const (
	appName = "flametower"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "FLAMETOWER_"
)

// Storage backends for saved graphs.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageMongo  = "mongo"
)

// Config is the complete Flametower configuration.
type Config struct {
	Render RenderConfig `toml:"render"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
}

// RenderConfig holds pipeline defaults. Zero values defer to the pipeline's
// own defaults.
type RenderConfig struct {
	ColorMode string   `toml:"color_mode"`
	Width     float64  `toml:"width"`
	RowHeight float64  `toml:"row_height"`
	Formats   []string `toml:"formats"`
	Palette   []string `toml:"palette"`
	Title     string   `toml:"title"`
	Unit      string   `toml:"unit"`
}

// CacheConfig selects the cache backend. RedisAddr wins over Dir.
type CacheConfig struct {
	Dir       string   `toml:"dir"`
	Disabled  bool     `toml:"disabled"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// ServerConfig configures `flametower serve`.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	Storage       string `toml:"storage"`
	StorageDir    string `toml:"storage_dir"`
	MongoURI      string `toml:"mongo_uri"`
	MongoDatabase string `toml:"mongo_database"`
	Metrics       bool   `toml:"metrics"`
}

// Duration is a time.Duration written as a string ("90s", "12h") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			Storage:       StorageMemory,
			MongoDatabase: appName,
			Metrics:       true,
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/flametower/config.toml, falling back
// to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the TOML file at path and applies environment overrides. A
// missing file or empty path yields defaults. envFiles are loaded with
// godotenv first; missing ones are skipped and variables already set in the
// environment are kept.
func Load(path string, envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, errs.Wrap(errs.ErrCodeInvalidInput, err, "load env file %s", f)
		}
	}

	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return errs.New(errs.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// =============================================================================
// Environment Overrides
// =============================================================================

type envVar struct {
	name string
	set  func(c *Config, v string) error
}

var envVars = []envVar{
	{"COLOR_MODE", func(c *Config, v string) error { c.Render.ColorMode = v; return nil }},
	{"WIDTH", func(c *Config, v string) error { return parseFloat(v, &c.Render.Width) }},
	{"ROW_HEIGHT", func(c *Config, v string) error { return parseFloat(v, &c.Render.RowHeight) }},
	{"FORMATS", func(c *Config, v string) error { c.Render.Formats = splitList(v); return nil }},
	{"PALETTE", func(c *Config, v string) error { c.Render.Palette = splitList(v); return nil }},
	{"UNIT", func(c *Config, v string) error { c.Render.Unit = v; return nil }},
	{"CACHE_DIR", func(c *Config, v string) error { c.Cache.Dir = v; return nil }},
	{"CACHE_DISABLED", func(c *Config, v string) error { return parseBool(v, &c.Cache.Disabled) }},
	{"CACHE_TTL", func(c *Config, v string) error { return c.Cache.TTL.UnmarshalText([]byte(v)) }},
	{"REDIS_ADDR", func(c *Config, v string) error { c.Cache.RedisAddr = v; return nil }},
	{"ADDR", func(c *Config, v string) error { c.Server.Addr = v; return nil }},
	{"STORAGE", func(c *Config, v string) error { c.Server.Storage = v; return nil }},
	{"STORAGE_DIR", func(c *Config, v string) error { c.Server.StorageDir = v; return nil }},
	{"MONGO_URI", func(c *Config, v string) error { c.Server.MongoURI = v; return nil }},
	{"MONGO_DATABASE", func(c *Config, v string) error { c.Server.MongoDatabase = v; return nil }},
	{"METRICS", func(c *Config, v string) error { return parseBool(v, &c.Server.Metrics) }},
}

// ApplyEnv overrides fields from FLAMETOWER_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok {
			continue
		}
		if err := ev.set(c, strings.TrimSpace(v)); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid %s%s", EnvPrefix, ev.name)
		}
	}
	return nil
}

func parseFloat(s string, dst *float64) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func parseBool(s string, dst *bool) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// Validation
// =============================================================================

// Validate checks every section and returns the first problem found.
func (c Config) Validate() error {
	if c.Render.ColorMode != "" {
		if _, err := flame.ParseColorMode(c.Render.ColorMode); err != nil {
			return err
		}
	}
	if len(c.Render.Palette) > 0 {
		if _, err := flame.ParsePalette(c.Render.Palette); err != nil {
			return err
		}
	}
	if len(c.Render.Formats) > 0 {
		if _, err := render.ParseFormats(c.Render.Formats); err != nil {
			return err
		}
	}
	if c.Render.Width < 0 || c.Render.Width > pipeline.MaxWidth {
		return errs.New(errs.ErrCodeInvalidInput, "render.width must be between 0 and %g", pipeline.MaxWidth)
	}
	if c.Render.RowHeight < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "render.row_height must not be negative")
	}
	if c.Cache.TTL.Duration < 0 {
		return errs.New(errs.ErrCodeInvalidInput, "cache.ttl must not be negative")
	}
	storages := []string{StorageMemory, StorageFile, StorageMongo}
	if !slices.Contains(storages, c.Server.Storage) {
		return errs.New(errs.ErrCodeInvalidInput, "server.storage must be one of %s, got %q", strings.Join(storages, ", "), c.Server.Storage)
	}
	if c.Server.Storage == StorageMongo && c.Server.MongoURI == "" {
		return errs.New(errs.ErrCodeInvalidInput, "server.mongo_uri is required for mongo storage")
	}
	return nil
}

// Apply fills the zero-valued fields of opts from the render section, so
// explicit flags and request fields keep precedence.
func (r RenderConfig) Apply(opts *pipeline.Options) {
	if opts.ColorMode == "" && r.ColorMode != "" {
		opts.ColorMode = flame.ColorMode(r.ColorMode)
	}
	if opts.Width == 0 {
		opts.Width = r.Width
	}
	if opts.RowHeight == 0 {
		opts.RowHeight = r.RowHeight
	}
	if len(opts.Formats) == 0 {
		opts.Formats = slices.Clone(r.Formats)
	}
	if len(opts.Palette) == 0 {
		opts.Palette = slices.Clone(r.Palette)
	}
	if opts.Title == "" {
		opts.Title = r.Title
	}
	if opts.Unit == "" {
		opts.Unit = r.Unit
	}
}
