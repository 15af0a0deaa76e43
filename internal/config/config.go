// Package config loads the flowmend.toml configuration file shared by the
// CLI and the HTTP server.
//
// Every field is optional; [Default] supplies the values used when the file
// or a key is absent:
//
//	[server]
//	addr = ":8080"
//	read_timeout = "15s"
//
//	[store]
//	backend = "file"          # memory | file | redis | mongo
//	dir = "~/.local/share/flowmend/workflows"
//
//	[cache]
//	enabled = true
//	ttl = "24h"
//
//	[catalog]
//	path = "./catalog.toml"
//
//	[layout]
//	node_width = 240
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/flowmend/pkg/errors"
	"github.com/matzehuels/flowmend/pkg/repair"
)

const appName = "flowmend"

// FileName is the configuration file looked up by [Find].
const FileName = "flowmend.toml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the parsed configuration file.
type Config struct {
	Server  Server              `toml:"server"`
	Store   Store               `toml:"store"`
	Cache   Cache               `toml:"cache"`
	Catalog Catalog             `toml:"catalog"`
	Layout  repair.LayoutConfig `toml:"layout"`
}

// Server configures the HTTP API.
type Server struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// Store configures where known-good workflows are kept.
type Store struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Cache configures the repair result cache. RedisAddr selects a Redis cache
// instead of the file cache in Dir.
type Cache struct {
	Enabled   *bool    `toml:"enabled"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

// On reports whether caching is enabled. Caching is on unless disabled
// explicitly.
func (c Cache) On() bool { return c.Enabled == nil || *c.Enabled }

// Catalog points at an optional catalog override file.
type Catalog struct {
	Path string `toml:"path"`
}

// Duration is a time.Duration that decodes from TOML strings like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: Server{
			Addr:         ":8080",
			ReadTimeout:  Duration{15 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
			MaxBodyBytes: 8 << 20,
		},
		Store: Store{
			Backend:         BackendMemory,
			Dir:             filepath.Join(DataDir(), "workflows"),
			RedisAddr:       "localhost:6379",
			MongoDatabase:   appName,
			MongoCollection: "workflows",
		},
		Cache: Cache{
			Dir: CacheDir(),
			TTL: Duration{24 * time.Hour},
		},
		Layout: repair.DefaultLayout(),
	}
}

// Load reads the file at path over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if err := errors.ValidatePath(path); err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config %s", path)
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	return Parse(data)
}

// Parse decodes TOML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q", undecoded[0].String())
	}
	return cfg, cfg.Validate()
}

// Find returns the configuration from ./flowmend.toml or
// $XDG_CONFIG_HOME/flowmend/flowmend.toml, whichever exists first, and the
// path it came from. With no file it returns the defaults and "".
func Find() (Config, string, error) {
	for _, p := range []string{FileName, filepath.Join(ConfigDir(), FileName)} {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	return Default(), "", nil
}

// Validate checks value ranges and backend names.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Dir == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.dir is required for the file backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.redis_addr is required for the redis backend")
		}
	case BackendMongo:
		if err := errors.ValidateURL(c.Store.MongoURI, "mongodb", "mongodb+srv"); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "store.mongo_uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown store backend %q (must be one of: memory, file, redis, mongo)", c.Store.Backend)
	}
	if c.Server.ReadTimeout.Duration < 0 || c.Server.WriteTimeout.Duration < 0 || c.Cache.TTL.Duration < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "durations must not be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "server.max_body_bytes must be positive")
	}
	l := c.Layout
	if l.NodeWidth < 0 || l.NodeHeight < 0 || l.HSpacing < 0 || l.VSpacing < 0 || l.Padding < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "layout sizes must not be negative")
	}
	return nil
}

// =============================================================================
// Paths
// =============================================================================

// CacheDir returns $XDG_CACHE_HOME/flowmend, or ~/.cache/flowmend.
func CacheDir() string { return xdgDir("XDG_CACHE_HOME", ".cache") }

// DataDir returns $XDG_DATA_HOME/flowmend, or ~/.local/share/flowmend.
func DataDir() string { return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share")) }

// ConfigDir returns $XDG_CONFIG_HOME/flowmend, or ~/.config/flowmend.
func ConfigDir() string { return xdgDir("XDG_CONFIG_HOME", ".config") }

func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback, appName)
}
