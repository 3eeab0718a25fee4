package cache

import (
	"testing"
	"time"

	"xcreator/internal/domain"
)

func req(handle string, topK int) domain.MatchRequest {
	return domain.MatchRequest{Handle: handle, Category: domain.CategoryOrganization, TopK: topK}
}

func resp(key string) *domain.MatchResponse {
	return &domain.MatchResponse{Query: domain.StoredProfile{Key: key}}
}

func TestMatchCache_GetPut(t *testing.T) {
	c := NewMatchCache(10, time.Minute)

	if _, ok := c.Get(req("nike", 5)); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Put(req("nike", 5), resp("organization_nike"))

	got, ok := c.Get(req("NIKE", 5))
	if !ok || got.Query.Key != "organization_nike" {
		t.Fatalf("expected case-insensitive hit, got %v %v", got, ok)
	}
	if _, ok := c.Get(req("nike", 6)); ok {
		t.Error("different topK must miss")
	}
}

func TestMatchCache_FollowerBoundsInKey(t *testing.T) {
	floor := 1000
	a := req("nike", 5)
	b := req("nike", 5)
	b.MinFollowers = &floor

	if Key(a) == Key(b) {
		t.Error("follower bounds must change the key")
	}
}

func TestMatchCache_Eviction(t *testing.T) {
	c := NewMatchCache(2, time.Minute)
	c.Put(req("a", 1), resp("a"))
	c.Put(req("b", 1), resp("b"))
	c.Get(req("a", 1))
	c.Put(req("c", 1), resp("c"))

	if _, ok := c.Get(req("b", 1)); ok {
		t.Error("expected least recently used entry evicted")
	}
	if _, ok := c.Get(req("a", 1)); !ok {
		t.Error("expected recently used entry kept")
	}
	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
}

func TestMatchCache_TTL(t *testing.T) {
	c := NewMatchCache(10, time.Minute)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put(req("nike", 5), resp("x"))
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(req("nike", 5)); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Error("expected expired entry removed")
	}
}

func TestMatchCache_Invalidate(t *testing.T) {
	c := NewMatchCache(10, time.Minute)
	c.Put(req("nike", 5), resp("x"))
	c.Invalidate()

	if _, ok := c.Get(req("nike", 5)); ok {
		t.Error("expected miss after invalidation")
	}
}

func TestMatchCache_Disabled(t *testing.T) {
	c := NewMatchCache(0, time.Minute)
	if c != nil {
		t.Fatal("expected nil cache for size 0")
	}
	c.Put(req("nike", 5), resp("x"))
	c.Invalidate()
	if _, ok := c.Get(req("nike", 5)); ok {
		t.Error("nil cache must always miss")
	}
}
