package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

const (
	// DefaultMaxPosts is the number of recent original posts fetched per profile.
	DefaultMaxPosts = 20

	classifierSamples = 5
	storedSamples     = 10
	sampleChars       = 280
	postTextChars     = 500
)

// IngestUseCase owns the write path into the vector store.
type IngestUseCase struct {
	source     port.ProfileSource
	classifier port.Classifier
	embedder   port.Embedder
	store      port.VectorStore
	logger     *slog.Logger
	maxPosts   int
	now        func() time.Time
	onWrite    func()
	locks      keyedMutex
}

// IngestOption configures an IngestUseCase.
type IngestOption func(*IngestUseCase)

// WithMaxPosts sets how many recent posts are fetched per profile.
func WithMaxPosts(n int) IngestOption {
	return func(u *IngestUseCase) {
		if n > 0 {
			u.maxPosts = n
		}
	}
}

// WithIngestLogger sets a custom logger.
func WithIngestLogger(logger *slog.Logger) IngestOption {
	return func(u *IngestUseCase) { u.logger = logger }
}

// WithClock overrides the timestamp source for ingested_at.
func WithClock(now func() time.Time) IngestOption {
	return func(u *IngestUseCase) { u.now = now }
}

// WithWriteHook registers a callback run after every successful store write.
func WithWriteHook(fn func()) IngestOption {
	return func(u *IngestUseCase) { u.onWrite = fn }
}

// NewIngestUseCase creates a new ingestion pipeline. classifier may be nil,
// in which case validation is always skipped.
func NewIngestUseCase(
	source port.ProfileSource,
	classifier port.Classifier,
	embedder port.Embedder,
	store port.VectorStore,
	opts ...IngestOption,
) *IngestUseCase {
	u := &IngestUseCase{
		source:     source,
		classifier: classifier,
		embedder:   embedder,
		store:      store,
		logger:     slog.Default(),
		maxPosts:   DefaultMaxPosts,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Ingest fetches, validates, embeds and stores one profile with its posts.
func (u *IngestUseCase) Ingest(
	ctx context.Context,
	rawHandle string,
	requested domain.Category,
	opts domain.IngestOptions,
) (*domain.IngestResult, error) {
	if !requested.Valid() {
		return nil, &domain.InvalidCategoryError{Value: string(requested)}
	}
	handle, err := NormalizeHandle(rawHandle)
	if err != nil {
		return nil, err
	}

	log := u.logger.With("run_id", uuid.NewString(), "handle", handle)
	log.InfoContext(ctx, "ingesting profile", "category", requested)

	profile, err := u.source.FetchProfile(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("fetch profile %s: %w", handle, err)
	}

	posts, err := u.source.FetchPosts(ctx, profile.ID, u.maxPosts)
	if err != nil {
		return nil, fmt.Errorf("fetch posts for %s: %w", handle, err)
	}
	log.Debug("fetched profile", "user_id", profile.ID, "posts", len(posts))

	effective := requested
	validation := "skipped"
	var correction *domain.Correction

	if !opts.SkipValidation && u.classifier != nil {
		verdict, cerr := u.classifier.Classify(ctx, summarize(profile), postTexts(posts, classifierSamples))
		if cerr != nil {
			log.Warn("classification failed, proceeding with requested category", "error", cerr)
		}
		outcome := assessVerdict(requested, verdict, cerr)
		validation = outcome.String()

		switch decide(outcome, opts.AutoCorrect) {
		case ActionCorrect:
			log.Info("auto-correcting category", "from", requested, "to", verdict.Category)
			effective = verdict.Category
			correction = &domain.Correction{From: requested, To: verdict.Category, Reasoning: verdict.Reasoning}
		case ActionReject:
			log.Info("rejecting ingestion on classification mismatch", "suggested", verdict.Category)
			return nil, &domain.ClassificationMismatchError{
				Requested:  requested,
				Suggested:  verdict.Category,
				Confidence: verdict.Confidence,
				Reasoning:  verdict.Reasoning,
			}
		}
	}

	key := ProfileKey(effective, handle)
	unlock := u.locks.Lock(key)
	defer unlock()

	existing, err := u.probe(ctx, effective, handle)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Info("profile already stored", "key", existing.Key)
		return &domain.IngestResult{
			Key:        existing.Key,
			Existed:    true,
			Category:   effective,
			Metadata:   existing.Metadata,
			Validation: validation,
			Correction: correction,
		}, nil
	}

	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: @%s has no original posts", domain.ErrNoContent, handle)
	}

	hasBio := strings.TrimSpace(profile.Bio) != ""
	texts := make([]string, 0, len(posts)+1)
	if hasBio {
		texts = append(texts, profile.Bio)
	}
	texts = append(texts, postTexts(posts, len(posts))...)

	vectors, err := u.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", handle, err)
	}
	if len(vectors) != len(texts) {
		return nil, &domain.UpstreamError{
			Service: "embedding",
			Message: fmt.Sprintf("expected %d vectors, got %d", len(texts), len(vectors)),
		}
	}

	var bioVector domain.Vector
	postVectors := vectors
	if hasBio {
		bioVector = vectors[0]
		postVectors = vectors[1:]
	}

	composed, err := Compose(bioVector, postVectors)
	if err != nil {
		return nil, fmt.Errorf("compose %s: %w", handle, err)
	}

	meta := u.profileMetadata(profile, effective, posts)
	if err := u.store.Upsert(ctx, NamespaceProfiles, []port.VectorItem{{ID: key, Vector: composed, Metadata: meta}}); err != nil {
		return nil, fmt.Errorf("store profile %s: %w", key, err)
	}

	items := make([]port.VectorItem, len(posts))
	for i, p := range posts {
		items[i] = port.VectorItem{
			ID:       PostKey(handle, p.ID),
			Vector:   postVectors[i],
			Metadata: postMetadata(profile, p),
		}
	}
	if err := u.store.Upsert(ctx, NamespaceTweets, items); err != nil {
		// A profile without its posts cannot be explained later; undo it.
		if derr := u.store.Delete(ctx, NamespaceProfiles, []string{key}); derr != nil {
			log.Error("failed to roll back profile after post write failure", "key", key, "error", derr)
		}
		return nil, fmt.Errorf("store posts for %s: %w", key, err)
	}
	u.notifyWrite()

	log.InfoContext(ctx, "profile ingested", "key", key, "posts", len(posts), "category", effective)

	return &domain.IngestResult{
		Key:        key,
		Category:   effective,
		Metadata:   meta,
		PostCount:  len(posts),
		Validation: validation,
		Correction: correction,
	}, nil
}

// Reclassify moves a stored profile from one category to the other.
func (u *IngestUseCase) Reclassify(ctx context.Context, rawHandle string, from, to domain.Category) (*domain.StoredProfile, error) {
	if !from.Valid() {
		return nil, &domain.InvalidCategoryError{Value: string(from)}
	}
	if !to.Valid() {
		return nil, &domain.InvalidCategoryError{Value: string(to)}
	}
	if from == to {
		return nil, fmt.Errorf("%w: profile is already %s", domain.ErrInvalidInput, to)
	}
	handle, err := NormalizeHandle(rawHandle)
	if err != nil {
		return nil, err
	}

	existing, err := u.probe(ctx, from, handle)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: no %s profile for @%s", domain.ErrNotFound, from, handle)
	}

	newKey := ProfileKey(to, handle)
	unlock := u.locks.Lock(newKey)
	defer unlock()

	// Case variants already stored under the target category are replaced by
	// the moved record.
	targets := VariantKeys(to, handle)
	present, err := u.store.Fetch(ctx, NamespaceProfiles, targets)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", newKey, err)
	}
	stale := []string{existing.Key}
	for _, k := range targets {
		if _, ok := present[k]; ok && k != newKey {
			stale = append(stale, k)
		}
	}

	meta := existing.Metadata.Clone()
	meta["category"] = string(to)

	if err := u.store.Upsert(ctx, NamespaceProfiles, []port.VectorItem{{ID: newKey, Vector: existing.Vector, Metadata: meta}}); err != nil {
		return nil, fmt.Errorf("store profile %s: %w", newKey, err)
	}
	if err := u.store.Delete(ctx, NamespaceProfiles, stale); err != nil {
		return nil, fmt.Errorf("delete profiles %v: %w", stale, err)
	}
	u.notifyWrite()

	u.logger.InfoContext(ctx, "profile reclassified", "handle", handle, "from", existing.Key, "to", newKey, "replaced", len(stale)-1)

	return &domain.StoredProfile{Key: newKey, Vector: existing.Vector, Metadata: meta}, nil
}

// probe looks up a profile under every case variant of handle; the first hit wins.
func (u *IngestUseCase) probe(ctx context.Context, category domain.Category, handle string) (*domain.StoredProfile, error) {
	return probeProfile(ctx, u.store, category, handle)
}

func probeProfile(ctx context.Context, store port.VectorStore, category domain.Category, handle string) (*domain.StoredProfile, error) {
	keys := VariantKeys(category, handle)
	found, err := store.Fetch(ctx, NamespaceProfiles, keys)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", keys[0], err)
	}
	for _, k := range keys {
		if item, ok := found[k]; ok {
			return &domain.StoredProfile{Key: k, Vector: item.Vector, Metadata: item.Metadata}, nil
		}
	}
	return nil, nil
}

func (u *IngestUseCase) profileMetadata(p *domain.Profile, category domain.Category, posts []domain.Post) domain.Metadata {
	samples := make([]string, 0, min(len(posts), storedSamples))
	for _, post := range posts {
		if len(samples) == storedSamples {
			break
		}
		samples = append(samples, truncate(post.Text, sampleChars))
	}

	meta := domain.Metadata{
		"user_id":         p.ID,
		"username":        p.Username,
		"name":            p.Name,
		"category":        string(category),
		"follower_count":  p.FollowersCount,
		"following_count": p.FollowingCount,
		"tweet_count":     p.TweetCount,
		"verified":        p.Verified,
		"sample_tweets":   samples,
		"ingested_at":     u.now().UTC().Format(time.RFC3339),
	}
	setIfPresent(meta, "bio", p.Bio)
	setIfPresent(meta, "verified_type", p.VerifiedType)
	setIfPresent(meta, "profile_image_url", p.ProfileImageURL)
	return meta
}

func postMetadata(p *domain.Profile, post domain.Post) domain.Metadata {
	meta := domain.Metadata{
		"tweet_id":         post.ID,
		"text":             truncate(post.Text, postTextChars),
		"like_count":       post.LikeCount,
		"retweet_count":    post.RetweetCount,
		"author_id":        p.ID,
		"author_handle":    p.Username,
		"author_name":      p.Name,
		"author_followers": p.FollowersCount,
	}
	if !post.CreatedAt.IsZero() {
		meta["created_at"] = post.CreatedAt.UTC().Format(time.RFC3339)
	}
	return meta
}

func setIfPresent(meta domain.Metadata, key, value string) {
	if strings.TrimSpace(value) != "" {
		meta[key] = value
	}
}

func summarize(p *domain.Profile) port.ProfileSummary {
	return port.ProfileSummary{
		Username:       p.Username,
		Name:           p.Name,
		Bio:            p.Bio,
		FollowersCount: p.FollowersCount,
		FollowingCount: p.FollowingCount,
		Verified:       p.Verified,
		VerifiedType:   p.VerifiedType,
	}
}

func postTexts(posts []domain.Post, n int) []string {
	texts := make([]string, 0, min(n, len(posts)))
	for _, p := range posts {
		if len(texts) == n {
			break
		}
		texts = append(texts, p.Text)
	}
	return texts
}

func (u *IngestUseCase) notifyWrite() {
	if u.onWrite != nil {
		u.onWrite()
	}
}

// keyedMutex serializes work per key within this process. Entries are
// reference counted and dropped once the last holder unlocks.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*keyedEntry)
	}
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		if e.refs--; e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
