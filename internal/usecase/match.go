package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

// MaxTopK caps how many matches or posts one request returns.
const MaxTopK = 100

const (
	rerankPoolFactor = 3
	minRerankPool    = 15
	summarySamples   = 3
	summaryChars     = 200
)

// MatchUseCase retrieves and ranks opposite-category profiles. It never writes.
type MatchUseCase struct {
	store  port.VectorStore
	ranker port.Ranker
	logger *slog.Logger
}

// NewMatchUseCase creates a new match engine. ranker may be nil, which
// disables re-ranking.
func NewMatchUseCase(store port.VectorStore, ranker port.Ranker, logger *slog.Logger) *MatchUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchUseCase{
		store:  store,
		ranker: ranker,
		logger: logger,
	}
}

// FindMatches returns the nearest profiles of the opposite category.
func (u *MatchUseCase) FindMatches(ctx context.Context, req domain.MatchRequest) (*domain.MatchResponse, error) {
	if !req.Category.Valid() {
		return nil, &domain.InvalidCategoryError{Value: string(req.Category)}
	}
	if req.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidInput)
	}
	req.TopK = min(req.TopK, MaxTopK)
	handle, err := NormalizeHandle(req.Handle)
	if err != nil {
		return nil, err
	}

	query, err := probeProfile(ctx, u.store, req.Category, handle)
	if err != nil {
		return nil, err
	}
	if query == nil {
		return nil, fmt.Errorf("%w: no %s profile for @%s", domain.ErrNotFound, req.Category, handle)
	}
	if len(query.Vector) == 0 {
		return nil, fmt.Errorf("%w: stored profile %s has no vector", domain.ErrInsufficientContent, query.Key)
	}

	filter := BuildFilter(req.Category.Opposite(), req.MinFollowers, req.MaxFollowers)
	fetchK := FetchCount(req.TopK, req.Rerank)

	u.logger.Debug("querying candidates", "key", query.Key, "top_k", fetchK, "rerank", req.Rerank)

	results, err := u.store.Query(ctx, NamespaceProfiles, query.Vector, fetchK, filter)
	if err != nil {
		return nil, fmt.Errorf("query candidates for %s: %w", query.Key, err)
	}

	matches := make([]domain.Match, len(results))
	for i, r := range results {
		matches[i] = domain.Match{Key: r.ID, Score: r.Score, Metadata: r.Metadata}
	}

	reranked := false
	if req.Rerank && len(matches) > 0 {
		matches, reranked = u.rerank(ctx, query, matches)
	}

	if len(matches) > req.TopK {
		matches = matches[:req.TopK]
	}

	return &domain.MatchResponse{
		Query:    *query,
		Matches:  matches,
		Reranked: reranked,
	}, nil
}

// MatchingPosts returns the candidate's posts closest to the searcher's
// profile vector, explaining why the candidate matched.
func (u *MatchUseCase) MatchingPosts(ctx context.Context, searcherHandle, candidateHandle string, topK int) ([]domain.PostMatch, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidInput)
	}
	topK = min(topK, MaxTopK)
	searcher, err := NormalizeHandle(searcherHandle)
	if err != nil {
		return nil, err
	}
	candidate, err := NormalizeHandle(candidateHandle)
	if err != nil {
		return nil, err
	}

	var query *domain.StoredProfile
	for _, category := range []domain.Category{domain.CategoryOrganization, domain.CategoryIndividual} {
		query, err = probeProfile(ctx, u.store, category, searcher)
		if err != nil {
			return nil, err
		}
		if query != nil {
			break
		}
	}
	if query == nil {
		return nil, fmt.Errorf("%w: no stored profile for @%s", domain.ErrNotFound, searcher)
	}

	for _, variant := range HandleVariants(candidate) {
		filter := domain.Filter{"author_handle": {"$eq": variant}}
		results, err := u.store.Query(ctx, NamespaceTweets, query.Vector, topK, filter)
		if err != nil {
			return nil, fmt.Errorf("query posts for @%s: %w", variant, err)
		}
		if len(results) == 0 {
			continue
		}

		posts := make([]domain.PostMatch, len(results))
		for i, r := range results {
			posts[i] = domain.PostMatch{Key: r.ID, Score: r.Score, Metadata: r.Metadata}
		}
		return posts, nil
	}

	return []domain.PostMatch{}, nil
}

func (u *MatchUseCase) rerank(ctx context.Context, query *domain.StoredProfile, matches []domain.Match) ([]domain.Match, bool) {
	if u.ranker == nil {
		return matches, false
	}

	candidates := make([]string, len(matches))
	for i, m := range matches {
		candidates[i] = profileSummaryText(m.Metadata, summaryChars)
	}

	ranking, err := u.ranker.Rank(ctx, profileSummaryText(query.Metadata, 0), candidates)
	if err != nil {
		u.logger.Warn("re-rank failed, using similarity order", "key", query.Key, "error", err)
		return matches, false
	}
	if len(ranking) == 0 {
		u.logger.Warn("re-rank returned no ranking, using similarity order", "key", query.Key)
		return matches, false
	}

	order, valid := ApplyRanking(len(matches), ranking)
	if valid == 0 {
		return matches, false
	}

	out := make([]domain.Match, len(order))
	for i, idx := range order {
		out[i] = matches[idx]
	}
	return out, true
}

// ApplyRanking turns an untrusted 1-based ranking into a full 0-based
// permutation of n candidates. Out-of-range and repeated indices are dropped
// and omitted candidates are appended in their original order. valid counts
// the ranking entries that were kept.
func ApplyRanking(n int, ranking []int) (order []int, valid int) {
	seen := make([]bool, n)
	order = make([]int, 0, n)

	for _, r := range ranking {
		idx := r - 1
		if idx < 0 || idx >= n || seen[idx] {
			continue
		}
		seen[idx] = true
		order = append(order, idx)
	}
	valid = len(order)

	for i := 0; i < n; i++ {
		if !seen[i] {
			order = append(order, i)
		}
	}
	return order, valid
}

// FetchCount is how many candidates to pull from the store for topK results.
func FetchCount(topK int, rerank bool) int {
	if !rerank {
		return topK
	}
	return max(topK*rerankPoolFactor, minRerankPool)
}

// BuildFilter restricts candidates to a category and optional follower bounds.
func BuildFilter(target domain.Category, minFollowers, maxFollowers *int) domain.Filter {
	filter := domain.Filter{
		"category": {"$eq": string(target)},
	}

	followers := domain.Condition{}
	if minFollowers != nil {
		followers["$gte"] = *minFollowers
	}
	if maxFollowers != nil {
		followers["$lte"] = *maxFollowers
	}
	if len(followers) > 0 {
		filter["follower_count"] = followers
	}
	return filter
}

// profileSummaryText renders the bio and up to three sample posts. Each piece
// is cut to limit runes when limit is positive.
func profileSummaryText(meta domain.Metadata, limit int) string {
	clip := func(s string) string {
		if limit > 0 {
			return truncate(s, limit)
		}
		return s
	}

	var sb strings.Builder
	if name := meta.StringValue("username"); name != "" {
		sb.WriteString("@" + name)
		if display := meta.StringValue("name"); display != "" {
			sb.WriteString(" (" + display + ")")
		}
		sb.WriteString("\n")
	}
	if bio := meta.StringValue("bio"); bio != "" {
		sb.WriteString("Bio: " + clip(bio) + "\n")
	}

	samples := meta.StringsValue("sample_tweets")
	if len(samples) > summarySamples {
		samples = samples[:summarySamples]
	}
	if len(samples) > 0 {
		sb.WriteString("Posts:\n")
		for _, s := range samples {
			sb.WriteString("- " + clip(s) + "\n")
		}
	}
	return strings.TrimSpace(sb.String())
}
