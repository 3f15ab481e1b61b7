package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graphir.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "redis"
url = "redis://localhost:6379/1"
ttl = "12h"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache.Backend != "redis" {
		t.Errorf("backend = %q, want redis", cfg.Cache.Backend)
	}
	if cfg.Cache.URL != "redis://localhost:6379/1" {
		t.Errorf("url = %q", cfg.Cache.URL)
	}
	ttl, err := cfg.Cache.ttl()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl != 12*time.Hour {
		t.Errorf("ttl = %v, want 12h", ttl)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Cache.Backend != "file" {
		t.Errorf("default backend = %q, want file", cfg.Cache.Backend)
	}
	ttl, err := cfg.Cache.ttl()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl != 0 {
		t.Errorf("default ttl = %v, want 0", ttl)
	}
}

func TestLoadConfigUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
[cache]
backend = "memcached"
`)
	if _, err := loadConfig(path); err == nil {
		t.Error("loadConfig accepted unknown backend")
	}
}

func TestLoadConfigBadTTL(t *testing.T) {
	path := writeConfig(t, `
[cache]
ttl = "yesterday"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if _, err := cfg.Cache.ttl(); err == nil {
		t.Error("ttl accepted a malformed duration")
	}
}

func TestCacheDirOverride(t *testing.T) {
	cfg := CacheConfig{Dir: "/tmp/custom"}
	dir, err := cfg.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir: %v", err)
	}
	if dir != "/tmp/custom" {
		t.Errorf("dir = %q, want override", dir)
	}
}
