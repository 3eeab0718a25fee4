package memstore

import (
	"context"
	"errors"
	"math"
	"testing"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

func TestMemoryStore_QueryFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	err := s.Upsert(ctx, "profiles", []port.VectorItem{
		{ID: "individual_a", Vector: domain.Vector{1, 0}, Metadata: domain.Metadata{"category": "individual", "follower_count": 100}},
		{ID: "individual_b", Vector: domain.Vector{0.7, 0.7}, Metadata: domain.Metadata{"category": "individual", "follower_count": 5000}},
		{ID: "organization_c", Vector: domain.Vector{1, 0}, Metadata: domain.Metadata{"category": "organization", "follower_count": 100}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := s.Query(ctx, "profiles", domain.Vector{1, 0}, 10, domain.Filter{"category": {"$eq": "individual"}})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "individual_a" || results[1].ID != "individual_b" {
		t.Errorf("unexpected order: %s, %s", results[0].ID, results[1].ID)
	}
	if math.Abs(results[0].Score-1) > 1e-9 {
		t.Errorf("expected score 1, got %f", results[0].Score)
	}

	results, err = s.Query(ctx, "profiles", domain.Vector{1, 0}, 10, domain.Filter{
		"category":       {"$eq": "individual"},
		"follower_count": {"$gte": 1000},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 || results[0].ID != "individual_b" {
		t.Errorf("expected only individual_b, got %+v", results)
	}
}

func TestMemoryStore_TopKTruncates(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Upsert(ctx, "ns", []port.VectorItem{{ID: id, Vector: domain.Vector{1, 1}}}); err != nil {
			t.Fatal(err)
		}
	}

	results, err := s.Query(ctx, "ns", domain.Vector{1, 1}, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestMemoryStore_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)

	err := s.Upsert(ctx, "ns", []port.VectorItem{{ID: "x", Vector: domain.Vector{1, 2}}})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on upsert, got %v", err)
	}

	_, err = s.Query(ctx, "ns", domain.Vector{1}, 1, nil)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on query, got %v", err)
	}
}

func TestMemoryStore_FetchDeleteStats(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)

	_ = s.Upsert(ctx, "profiles", []port.VectorItem{{ID: "p1", Vector: domain.Vector{1, 0}}})
	_ = s.Upsert(ctx, "tweets", []port.VectorItem{
		{ID: "t1", Vector: domain.Vector{1, 0}},
		{ID: "t2", Vector: domain.Vector{0, 1}},
	})

	found, err := s.Fetch(ctx, "profiles", []string{"p1", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := found["p1"]; !ok || len(found) != 1 {
		t.Errorf("expected only p1, got %v", found)
	}

	stats, _ := s.DescribeStats(ctx)
	if stats.Total != 3 || stats.Namespaces["tweets"] != 2 || stats.Dimension != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}

	if err := s.Delete(ctx, "tweets", []string{"t1", "nope"}); err != nil {
		t.Fatal(err)
	}
	stats, _ = s.DescribeStats(ctx)
	if stats.Namespaces["tweets"] != 1 {
		t.Errorf("expected 1 tweet after delete, got %d", stats.Namespaces["tweets"])
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	meta := domain.Metadata{"bio": "original"}
	_ = s.Upsert(ctx, "ns", []port.VectorItem{{ID: "x", Vector: domain.Vector{1}, Metadata: meta}})

	meta["bio"] = "mutated"
	found, _ := s.Fetch(ctx, "ns", []string{"x"})
	if got := found["x"].Metadata.StringValue("bio"); got != "original" {
		t.Errorf("store aliased caller metadata, got %q", got)
	}
}
