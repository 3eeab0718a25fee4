package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

// MemoryStore is a namespaced in-memory vector index with brute-force cosine
// search. It backs tests and serves as the search cache of the bolt store.
type MemoryStore struct {
	mu         sync.RWMutex
	dimension  int
	namespaces map[string]map[string]port.VectorItem
}

// NewMemoryStore creates an empty store. A zero dimension is fixed by the
// first vector written.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dimension:  dimension,
		namespaces: make(map[string]map[string]port.VectorItem),
	}
}

// Upsert writes items into namespace, replacing existing ids.
func (s *MemoryStore) Upsert(_ context.Context, namespace string, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		if err := s.checkDimension(item.Vector); err != nil {
			return fmt.Errorf("upsert %s: %w", item.ID, err)
		}
	}

	ns := s.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]port.VectorItem)
		s.namespaces[namespace] = ns
	}
	for _, item := range items {
		if s.dimension == 0 {
			s.dimension = len(item.Vector)
		}
		ns[item.ID] = port.VectorItem{
			ID:       item.ID,
			Vector:   append(domain.Vector(nil), item.Vector...),
			Metadata: item.Metadata.Clone(),
		}
	}
	return nil
}

// Fetch returns the subset of ids present in namespace.
func (s *MemoryStore) Fetch(_ context.Context, namespace string, ids []string) (map[string]port.VectorItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]port.VectorItem)
	ns := s.namespaces[namespace]
	for _, id := range ids {
		if item, ok := ns[id]; ok {
			out[id] = port.VectorItem{
				ID:       item.ID,
				Vector:   append(domain.Vector(nil), item.Vector...),
				Metadata: item.Metadata.Clone(),
			}
		}
	}
	return out, nil
}

// Query finds the topK items nearest to vector that satisfy filter.
func (s *MemoryStore) Query(_ context.Context, namespace string, vector domain.Vector, topK int, filter domain.Filter) ([]port.VectorResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		return nil, nil
	}

	ns := s.namespaces[namespace]
	scores := make([]port.VectorResult, 0, len(ns))
	for id, item := range ns {
		if !filter.Matches(item.Metadata) {
			continue
		}
		scores = append(scores, port.VectorResult{
			ID:       id,
			Score:    CosineSimilarity(vector, item.Vector),
			Metadata: item.Metadata,
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score == scores[j].Score {
			return scores[i].ID < scores[j].ID
		}
		return scores[i].Score > scores[j].Score
	})

	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]port.VectorResult, topK)
	for i := range results {
		results[i] = scores[i]
		results[i].Metadata = scores[i].Metadata.Clone()
	}
	return results, nil
}

// Delete removes ids from namespace. Missing ids are ignored.
func (s *MemoryStore) Delete(_ context.Context, namespace string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.namespaces[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

// DescribeStats reports per-namespace counts.
func (s *MemoryStore) DescribeStats(_ context.Context) (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.Stats{
		Namespaces: make(map[string]int, len(s.namespaces)),
		Dimension:  s.dimension,
	}
	for name, ns := range s.namespaces {
		if len(ns) == 0 {
			continue
		}
		stats.Namespaces[name] = len(ns)
		stats.Total += len(ns)
	}
	return stats, nil
}

// Dimension returns the fixed vector size, or 0 if nothing was written yet.
func (s *MemoryStore) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension
}

func (s *MemoryStore) checkDimension(v domain.Vector) error {
	if len(v) == 0 {
		return fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
	}
	if s.dimension != 0 && len(v) != s.dimension {
		return fmt.Errorf("%w: expected %d, got %d", domain.ErrDimensionMismatch, s.dimension, len(v))
	}
	return nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(a, b domain.Vector) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ port.VectorStore = (*MemoryStore)(nil)
