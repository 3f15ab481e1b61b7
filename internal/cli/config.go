package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/graphir/graphir/pkg/cache"
)

// Config is the CLI configuration, read from graphir.toml.
type Config struct {
	Cache CacheConfig `toml:"cache"`
}

// CacheConfig selects and configures the artifact cache backend.
type CacheConfig struct {
	// Backend is "file" (default), "redis", or "null".
	Backend string `toml:"backend"`
	// Dir is the file backend's directory. Empty means the user cache dir.
	Dir string `toml:"dir"`
	// URL is the redis backend's connection URL.
	URL string `toml:"url"`
	// TTL is the artifact expiry as a Go duration string, e.g. "24h".
	// Empty or "0" stores without expiry.
	TTL string `toml:"ttl"`
}

const configFile = "graphir.toml"

// loadConfig reads the configuration from path. When path is empty it looks
// for graphir.toml in the working directory and then in the user config
// directory; a missing file yields the defaults.
func loadConfig(path string) (Config, error) {
	cfg := Config{Cache: CacheConfig{Backend: "file"}}

	if path == "" {
		path = findConfig()
		if path == "" {
			return cfg, nil
		}
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "file"
	}
	switch cfg.Cache.Backend {
	case "file", "redis", "null":
	default:
		return Config{}, fmt.Errorf("%s: unknown cache backend %q (must be 'file', 'redis', or 'null')",
			path, cfg.Cache.Backend)
	}
	return cfg, nil
}

func findConfig() string {
	if _, err := os.Stat(configFile); err == nil {
		return configFile
	}
	if dir, err := os.UserConfigDir(); err == nil {
		p := filepath.Join(dir, "graphir", configFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// ttl parses the configured expiry. Zero disables expiration.
func (c CacheConfig) ttl() (time.Duration, error) {
	if c.TTL == "" || c.TTL == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache ttl %q: %w", c.TTL, err)
	}
	return d, nil
}

// cacheDir resolves the file backend's directory.
func (c CacheConfig) cacheDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return filepath.Join(base, "graphir"), nil
}

// openCache constructs the configured cache backend.
func openCache(ctx context.Context, cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "null":
		return cache.NewNullCache(), nil
	case "redis":
		if cfg.URL == "" {
			return nil, fmt.Errorf("redis cache backend needs a url")
		}
		return cache.NewRedisCache(ctx, cfg.URL)
	default:
		dir, err := cfg.cacheDir()
		if err != nil {
			return nil, err
		}
		return cache.NewFileCache(dir)
	}
}
