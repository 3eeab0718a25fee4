package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Profiles.MaxPosts != 20 {
		t.Errorf("expected MaxPosts=20, got %d", cfg.Profiles.MaxPosts)
	}
	if cfg.Store.Backend != "bolt" {
		t.Errorf("expected bolt backend, got %s", cfg.Store.Backend)
	}
	if cfg.HTTP.RetryAttempts != 1 {
		t.Errorf("expected a single attempt by default, got %d", cfg.HTTP.RetryAttempts)
	}
	if cfg.Match.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Match.TopK)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "xcreator.yaml")

	content := `
profiles:
  max_posts: 50
store:
  backend: memory
match:
  top_k: 5
  rerank: true
cache:
  ttl_minutes: 0
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Profiles.MaxPosts != 50 {
		t.Errorf("expected MaxPosts=50, got %d", cfg.Profiles.MaxPosts)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", cfg.Store.Backend)
	}
	if cfg.Match.TopK != 5 || !cfg.Match.Rerank {
		t.Errorf("unexpected match config %+v", cfg.Match)
	}
	if cfg.CacheTTL() != 0 {
		t.Errorf("expected cache disabled, got %v", cfg.CacheTTL())
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected default embedding model kept, got %s", cfg.Embedding.Model)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "xcreator.yaml")

	content := `
store:
  backend: pinecone
logging:
  level: loud
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"store.pinecone.host", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got %v", want, err)
		}
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := EnsureDir(tmpDir); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".xcreator", "config.yaml")

	content := `
server:
  addr: ":9000"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected Addr=:9000, got %s", cfg.Server.Addr)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xcreator.yaml")
	cfg := DefaultConfig()
	cfg.Seed.DefaultCategory = "organization"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Seed.DefaultCategory != "organization" {
		t.Errorf("expected organization, got %s", loaded.Seed.DefaultCategory)
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()

	path := StorePath("/home/user/project", cfg)
	expected := filepath.Join("/home/user/project", ".xcreator", "vectors.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}

	cfg.Store.Path = "/var/lib/xcreator.db"
	if got := StorePath("/ignored", cfg); got != "/var/lib/xcreator.db" {
		t.Errorf("expected absolute path kept, got %s", got)
	}

	if cfg.MatchCacheTTL() != 5*time.Minute {
		t.Errorf("expected 5m match cache ttl, got %v", cfg.MatchCacheTTL())
	}
}
