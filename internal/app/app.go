// Package app builds the process-wide service handles from configuration and
// exposes the operations shared by the CLI, HTTP API and MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"xcreator/config"
	"xcreator/internal/adapter/cache"
	"xcreator/internal/adapter/classifier"
	"xcreator/internal/adapter/embedding"
	"xcreator/internal/adapter/httpcache"
	"xcreator/internal/adapter/llm"
	"xcreator/internal/adapter/memstore"
	"xcreator/internal/adapter/pinecone"
	"xcreator/internal/adapter/store"
	"xcreator/internal/adapter/twitter"
	"xcreator/internal/domain"
	"xcreator/internal/port"
	"xcreator/internal/usecase"
)

// ErrRebuildRequired means the local store holds vectors from a different
// embedding configuration.
var ErrRebuildRequired = errors.New("vector store rebuild required")

// App holds one instance of every service handle.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   port.VectorStore
	ingest  *usecase.IngestUseCase
	matcher *usecase.MatchUseCase
	matches *cache.MatchCache
	xcache  *httpcache.Cache
	closers []func() error
}

// Option overrides a collaborator that would otherwise be built from config.
type Option func(*deps)

type deps struct {
	source   port.ProfileSource
	embedder port.Embedder
	store    port.VectorStore
	llm      port.LLM
	rebuild  bool
}

// WithSource injects the profile source.
func WithSource(s port.ProfileSource) Option {
	return func(d *deps) { d.source = s }
}

// WithEmbedder injects the embedding service.
func WithEmbedder(e port.Embedder) Option {
	return func(d *deps) { d.embedder = e }
}

// WithStore injects the vector store.
func WithStore(s port.VectorStore) Option {
	return func(d *deps) { d.store = s }
}

// WithLLM injects the chat model behind the classifier and ranker.
func WithLLM(l port.LLM) Option {
	return func(d *deps) { d.llm = l }
}

// WithRebuild clears a local store whose embedding configuration changed
// instead of refusing to open it.
func WithRebuild(rebuild bool) Option {
	return func(d *deps) { d.rebuild = rebuild }
}

// New wires every component. dir anchors relative store and cache paths.
func New(dir string, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var d deps
	for _, opt := range opts {
		opt(&d)
	}

	a := &App{cfg: cfg, logger: logger}

	var err error
	if d.embedder == nil {
		if d.embedder, err = newEmbedder(cfg, logger); err != nil {
			return nil, err
		}
	}
	if d.source == nil {
		if d.source, a.xcache, err = newSource(dir, cfg, logger); err != nil {
			return nil, err
		}
	}
	if d.store == nil {
		if d.store, err = a.openStore(dir, cfg, d.embedder.Dimension(), d.rebuild); err != nil {
			return nil, err
		}
	}
	if d.llm == nil && cfg.LLM.Enabled {
		if d.llm, err = newLLM(cfg, logger); err != nil {
			a.Close() //nolint:errcheck
			return nil, err
		}
	}

	var (
		cls    port.Classifier
		ranker port.Ranker
	)
	if d.llm != nil {
		c := classifier.New(d.llm)
		cls, ranker = c, c
	}

	a.store = d.store
	a.matches = cache.NewMatchCache(cfg.Match.CacheSize, cfg.MatchCacheTTL())
	a.ingest = usecase.NewIngestUseCase(d.source, cls, d.embedder, d.store,
		usecase.WithMaxPosts(cfg.Profiles.MaxPosts),
		usecase.WithIngestLogger(logger),
		usecase.WithWriteHook(a.matches.Invalidate),
	)
	a.matcher = usecase.NewMatchUseCase(d.store, ranker, logger)

	logger.Debug("app ready",
		"store", cfg.Store.Backend,
		"embedding", d.embedder.ModelName(),
		"classifier", d.llm != nil,
	)
	return a, nil
}

// Config returns the configuration the app was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases the store.
func (a *App) Close() error {
	if a.xcache != nil {
		s := a.xcache.Stats()
		a.logger.Debug("x api cache", "hits", s.Hits, "misses", s.Misses, "ttl", a.xcache.TTL())
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(dir string, cfg *config.Config, dimension int, rebuild bool) (port.VectorStore, error) {
	switch cfg.Store.Backend {
	case "memory":
		return memstore.NewMemoryStore(dimension), nil

	case "pinecone":
		ps, err := pinecone.New(cfg.Store.Pinecone.Host, os.Getenv(cfg.Store.Pinecone.APIKeyEnv),
			pinecone.WithDimension(dimension),
			pinecone.WithRetries(cfg.HTTP.RetryAttempts),
			pinecone.WithLogger(a.logger),
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ps.Close)
		return ps, nil

	default:
		bs, err := store.NewBoltStore(config.StorePath(dir, cfg))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, bs.Close)
		a.logger.Debug("opened bolt store", "path", bs.Path())

		result, err := bs.CheckMigration(cfg)
		if err != nil {
			a.Close() //nolint:errcheck
			return nil, fmt.Errorf("check migration: %w", err)
		}
		if result.NeedsRebuild {
			if !rebuild {
				a.Close() //nolint:errcheck
				return nil, fmt.Errorf("%w: %s", ErrRebuildRequired, result.Reason)
			}
			a.logger.Warn("clearing vector store", "reason", result.Reason)
			if err := bs.Clear(); err != nil {
				a.Close() //nolint:errcheck
				return nil, fmt.Errorf("clear store: %w", err)
			}
		}
		if result.NeedsMigration || result.NeedsRebuild {
			a.logger.Debug("migrating store", "reason", result.Reason)
		}
		if err := bs.Migrate(cfg); err != nil {
			a.Close() //nolint:errcheck
			return nil, fmt.Errorf("migrate store: %w", err)
		}

		vs, err := store.NewBoltVectorStore(bs, dimension, a.logger)
		if err != nil {
			a.Close() //nolint:errcheck
			return nil, err
		}
		return vs, nil
	}
}

func newEmbedder(cfg *config.Config, logger *slog.Logger) (port.Embedder, error) {
	opts := []embedding.Option{
		embedding.WithDimension(cfg.Embedding.Dimension),
		embedding.WithTimeout(cfg.HTTPTimeout()),
		embedding.WithRetries(cfg.HTTP.RetryAttempts),
		embedding.WithLogger(logger),
	}
	switch cfg.Embedding.Provider {
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, opts...)
	case "compatible":
		return embedding.NewOpenAICompatibleEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, opts...)
	default:
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, opts...)
	}
}

func newSource(dir string, cfg *config.Config, logger *slog.Logger) (port.ProfileSource, *httpcache.Cache, error) {
	responses, err := httpcache.NewWithPath(cfg.CacheTTL(), config.CachePath(dir, cfg))
	if err != nil {
		return nil, nil, err
	}

	opts := []twitter.Option{
		twitter.WithBaseURL(cfg.Profiles.BaseURL),
		twitter.WithCache(responses),
		twitter.WithLogger(logger),
		twitter.WithTimeout(cfg.HTTPTimeout()),
		twitter.WithRetries(cfg.HTTP.RetryAttempts),
	}
	if cfg.Profiles.RequestsPerSecond > 0 {
		opts = append(opts, twitter.WithRateLimit(cfg.Profiles.RequestsPerSecond, cfg.Profiles.Burst))
	}
	src, err := twitter.New(os.Getenv(cfg.Profiles.BearerTokenEnv), opts...)
	if err != nil {
		return nil, nil, err
	}
	return src, responses, nil
}

func newLLM(cfg *config.Config, logger *slog.Logger) (port.LLM, error) {
	return llm.New(llm.Config{
		APIKey:      os.Getenv(cfg.LLM.APIKeyEnv),
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.HTTPTimeout(),
		Retries:     cfg.HTTP.RetryAttempts,
		Logger:      logger,
	})
}

// Ingest runs the ingestion pipeline.
func (a *App) Ingest(ctx context.Context, handle string, category domain.Category, opts domain.IngestOptions) (*domain.IngestResult, error) {
	return a.ingest.Ingest(ctx, handle, category, opts)
}

// Match returns cached matches or runs the match engine. A profile that is
// not stored yet is ingested once and the lookup retried.
func (a *App) Match(ctx context.Context, req domain.MatchRequest) (*domain.MatchResponse, error) {
	if resp, ok := a.matches.Get(req); ok {
		a.logger.Debug("match cache hit", "handle", req.Handle)
		return resp, nil
	}

	resp, err := a.matcher.FindMatches(ctx, req)
	if errors.Is(err, domain.ErrNotFound) {
		a.logger.InfoContext(ctx, "profile not stored, ingesting", "handle", req.Handle, "category", req.Category)

		result, ierr := a.ingest.Ingest(ctx, req.Handle, req.Category, domain.IngestOptions{AutoCorrect: a.cfg.Seed.AutoCorrect})
		if ierr != nil {
			return nil, ierr
		}
		retry := req
		retry.Category = result.Category
		resp, err = a.matcher.FindMatches(ctx, retry)
	}
	if err != nil {
		return nil, err
	}

	a.matches.Put(req, resp)
	return resp, nil
}

// Posts returns the candidate's posts closest to the searcher's profile.
func (a *App) Posts(ctx context.Context, searcher, candidate string, topK int) ([]domain.PostMatch, error) {
	return a.matcher.MatchingPosts(ctx, searcher, candidate, topK)
}

// Reclassify moves a stored profile to the other category.
func (a *App) Reclassify(ctx context.Context, handle string, from, to domain.Category) (*domain.StoredProfile, error) {
	return a.ingest.Reclassify(ctx, handle, from, to)
}

// Stats reports per-namespace record counts.
func (a *App) Stats(ctx context.Context) (domain.Stats, error) {
	return a.store.DescribeStats(ctx)
}
