package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"

	"xcreator/internal/adapter/memstore"
	"xcreator/internal/domain"
	"xcreator/internal/port"
)

type stubSource struct {
	profiles map[string]*domain.Profile // by lowercase handle
	posts    map[string][]domain.Post   // by profile id
	err      error
	calls    int
}

func (s *stubSource) FetchProfile(_ context.Context, handle string) (*domain.Profile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[strings.ToLower(handle)]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (s *stubSource) FetchPosts(_ context.Context, profileID string, limit int) ([]domain.Post, error) {
	posts := s.posts[profileID]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

type stubClassifier struct {
	verdict domain.Verdict
	err     error
}

func (c *stubClassifier) Classify(context.Context, port.ProfileSummary, []string) (domain.Verdict, error) {
	return c.verdict, c.err
}

// stubEmbedder maps each text to a deterministic 3-d vector.
type stubEmbedder struct {
	drop  int
	err   error
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([]domain.Vector, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([]domain.Vector, 0, len(texts))
	for _, t := range texts {
		out = append(out, domain.Vector{1, float64(len(t) % 7), float64(strings.Count(t, " ") + 1)})
	}
	return out[:len(out)-e.drop], nil
}

func (e *stubEmbedder) Dimension() int    { return 3 }
func (e *stubEmbedder) ModelName() string { return "stub" }

type stubRanker struct {
	ranking []int
	err     error
	seen    []string
}

func (r *stubRanker) Rank(_ context.Context, _ string, candidates []string) ([]int, error) {
	r.seen = candidates
	return r.ranking, r.err
}

// countingStore wraps a MemoryStore, counting writes and optionally failing
// upserts into one namespace.
type countingStore struct {
	*memstore.MemoryStore
	mu        sync.Mutex
	upserts   int
	deletes   int
	failOnNS  string
	lastQuery domain.Filter
	lastTopK  int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: memstore.NewMemoryStore(0)}
}

func (s *countingStore) Upsert(ctx context.Context, ns string, items []port.VectorItem) error {
	s.mu.Lock()
	s.upserts++
	s.mu.Unlock()
	if ns == s.failOnNS {
		return errors.New("store unavailable")
	}
	return s.MemoryStore.Upsert(ctx, ns, items)
}

func (s *countingStore) Delete(ctx context.Context, ns string, ids []string) error {
	s.mu.Lock()
	s.deletes++
	s.mu.Unlock()
	return s.MemoryStore.Delete(ctx, ns, ids)
}

func (s *countingStore) Query(ctx context.Context, ns string, v domain.Vector, topK int, f domain.Filter) ([]port.VectorResult, error) {
	s.mu.Lock()
	s.lastQuery = f
	s.lastTopK = topK
	s.mu.Unlock()
	return s.MemoryStore.Query(ctx, ns, v, topK, f)
}

func nikeSource() *stubSource {
	return &stubSource{
		profiles: map[string]*domain.Profile{
			"nike": {
				ID:             "415859364",
				Username:       "Nike",
				Name:           "Nike",
				Bio:            "Just Do It.",
				FollowersCount: 9800000,
				Verified:       true,
				VerifiedType:   "business",
			},
			"mkbhd": {
				ID:             "29873662",
				Username:       "MKBHD",
				Name:           "Marques Brownlee",
				Bio:            "",
				FollowersCount: 6500000,
			},
			"quiet": {ID: "1", Username: "quiet", Name: "Quiet", Bio: "nothing to say"},
		},
		posts: map[string][]domain.Post{
			"415859364": {
				{ID: "1001", Text: "New drop this Friday", LikeCount: 300},
				{ID: "1002", Text: "Run with us", LikeCount: 120},
			},
			"29873662": {
				{ID: "2001", Text: "The best phone of the year"},
			},
		},
	}
}
