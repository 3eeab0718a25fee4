package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for xcreator.
type Config struct {
	Profiles  ProfilesConfig  `yaml:"profiles"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Match     MatchConfig     `yaml:"match"`
	Seed      SeedConfig      `yaml:"seed"`
	HTTP      HTTPConfig      `yaml:"http"`
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProfilesConfig configures the X API profile source.
type ProfilesConfig struct {
	BaseURL           string  `yaml:"base_url"`
	BearerTokenEnv    string  `yaml:"bearer_token_env"`
	MaxPosts          int     `yaml:"max_posts"`           // clamped to 5..100
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unpaced
	Burst             int     `yaml:"burst"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "openai", "ollama", "compatible", "mock"
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	Dimension int    `yaml:"dimension"`
}

// LLMConfig configures the chat model used for classification and re-ranking.
type LLMConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	Backend  string         `yaml:"backend"` // "bolt", "pinecone", "memory"
	Path     string         `yaml:"path"`    // bolt file, relative to the workspace dir
	Pinecone PineconeConfig `yaml:"pinecone"`
}

// PineconeConfig configures the hosted index.
type PineconeConfig struct {
	Host      string `yaml:"host"` // index host, e.g. https://xcreator-abc123.svc.pinecone.io
	APIKeyEnv string `yaml:"api_key_env"`
}

// MatchConfig holds match defaults and the result cache.
type MatchConfig struct {
	TopK       int  `yaml:"top_k"`
	Rerank     bool `yaml:"rerank"`
	CacheSize  int  `yaml:"cache_size"` // 0 disables the match cache
	CacheTTLMs int  `yaml:"cache_ttl_ms"`
}

// SeedConfig selects handle list files for bulk seeding.
type SeedConfig struct {
	Includes        []string `yaml:"includes"`
	Excludes        []string `yaml:"excludes"`
	DefaultCategory string   `yaml:"default_category"`
	AutoCorrect     bool     `yaml:"auto_correct"`
}

// HTTPConfig configures the outbound transport shared by all adapters.
type HTTPConfig struct {
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	RetryAttempts  uint `yaml:"retry_attempts"` // 1 = no retry
}

// ServerConfig configures the HTTP API and MCP server.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
	MCPAddr     string   `yaml:"mcp_addr"` // empty = stdio
}

// CacheConfig configures the X API response cache.
type CacheConfig struct {
	Dir        string `yaml:"dir"`
	TTLMinutes int    `yaml:"ttl_minutes"` // 0 disables caching
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Profiles: ProfilesConfig{
			BaseURL:           "https://api.twitter.com",
			BearerTokenEnv:    "X_BEARER_TOKEN",
			MaxPosts:          20,
			RequestsPerSecond: 1,
			Burst:             1,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
		},
		LLM: LLMConfig{
			Enabled:     true,
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0,
			MaxTokens:   400,
		},
		Store: StoreConfig{
			Backend: "bolt",
			Path:    filepath.Join(".xcreator", "vectors.db"),
			Pinecone: PineconeConfig{
				APIKeyEnv: "PINECONE_API_KEY",
			},
		},
		Match: MatchConfig{
			TopK:       10,
			Rerank:     false,
			CacheSize:  256,
			CacheTTLMs: 5 * 60 * 1000,
		},
		Seed: SeedConfig{
			Includes:        []string{"seeds/**/*.txt", "seeds/**/*.csv"},
			Excludes:        []string{"**/.git/**"},
			DefaultCategory: "individual",
		},
		HTTP: HTTPConfig{
			TimeoutSeconds: 60,
			RetryAttempts:  1,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			CORSOrigins: []string{"*"},
		},
		Cache: CacheConfig{
			Dir:        filepath.Join(".xcreator", "cache"),
			TTLMinutes: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for xcreator.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "xcreator.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".xcreator", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error

	if c.Profiles.MaxPosts < 1 {
		errs = append(errs, errors.New("profiles.max_posts must be positive"))
	}
	if c.Profiles.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("profiles.requests_per_second must not be negative"))
	}

	switch c.Embedding.Provider {
	case "openai", "ollama", "compatible", "mock":
	default:
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of openai, ollama, compatible, mock", c.Embedding.Provider))
	}
	if c.Embedding.Provider == "compatible" && c.Embedding.BaseURL == "" {
		errs = append(errs, errors.New("embedding.base_url is required for the compatible provider"))
	}
	if c.Embedding.Dimension < 0 {
		errs = append(errs, errors.New("embedding.dimension must not be negative"))
	}

	switch c.Store.Backend {
	case "bolt", "memory":
	case "pinecone":
		if c.Store.Pinecone.Host == "" {
			errs = append(errs, errors.New("store.pinecone.host is required for the pinecone backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of bolt, pinecone, memory", c.Store.Backend))
	}

	if c.Match.TopK < 1 {
		errs = append(errs, errors.New("match.top_k must be positive"))
	}
	if c.Match.CacheSize < 0 || c.Match.CacheTTLMs < 0 {
		errs = append(errs, errors.New("match cache settings must not be negative"))
	}
	if c.Cache.TTLMinutes < 0 {
		errs = append(errs, errors.New("cache.ttl_minutes must not be negative"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// HTTPTimeout returns the outbound request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// CacheTTL returns the X API response cache TTL.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

// MatchCacheTTL returns how long match results stay cached.
func (c *Config) MatchCacheTTL() time.Duration {
	return time.Duration(c.Match.CacheTTLMs) * time.Millisecond
}

// StorePath resolves the bolt file against the workspace dir.
func StorePath(dir string, cfg *Config) string {
	if filepath.IsAbs(cfg.Store.Path) {
		return cfg.Store.Path
	}
	return filepath.Join(dir, cfg.Store.Path)
}

// CachePath resolves the response cache dir against the workspace dir.
func CachePath(dir string, cfg *Config) string {
	if filepath.IsAbs(cfg.Cache.Dir) {
		return cfg.Cache.Dir
	}
	return filepath.Join(dir, cfg.Cache.Dir)
}

// EnsureDir ensures the .xcreator directory exists.
func EnsureDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".xcreator"), 0o755)
}
