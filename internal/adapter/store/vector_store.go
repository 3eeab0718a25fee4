package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"go.etcd.io/bbolt"

	"xcreator/internal/adapter/memstore"
	"xcreator/internal/domain"
	"xcreator/internal/port"
)

// BoltVectorStore implements port.VectorStore on bbolt. Every record is
// mirrored in memory for brute-force search.
type BoltVectorStore struct {
	store  *BoltStore
	mu     sync.Mutex
	index  *memstore.MemoryStore
	logger *slog.Logger
}

type storedVector struct {
	Vector   domain.Vector   `json:"v"`
	Metadata domain.Metadata `json:"m,omitempty"`
}

// NewBoltVectorStore loads every namespace from store into memory. A zero
// dimension is fixed by the first vector written.
func NewBoltVectorStore(store *BoltStore, dimension int, logger *slog.Logger) (*BoltVectorStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &BoltVectorStore{
		store:  store,
		index:  memstore.NewMemoryStore(dimension),
		logger: logger,
	}
	if err := s.loadVectors(); err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltVectorStore) loadVectors() error {
	loaded := make(map[string][]port.VectorItem)

	err := s.store.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketNamespaces)
		if root == nil {
			return nil
		}
		return root.ForEach(func(name, v []byte) error {
			if v != nil {
				return nil
			}
			ns := string(name)
			return root.Bucket(name).ForEach(func(k, v []byte) error {
				var stored storedVector
				if err := json.Unmarshal(v, &stored); err != nil {
					s.logger.Warn("skipping corrupted vector", "namespace", ns, "key", string(k), "error", err)
					return nil
				}
				loaded[ns] = append(loaded[ns], port.VectorItem{
					ID:       string(k),
					Vector:   stored.Vector,
					Metadata: stored.Metadata,
				})
				return nil
			})
		})
	})
	if err != nil {
		return err
	}

	for ns, items := range loaded {
		if err := s.index.Upsert(context.Background(), ns, items); err != nil {
			return fmt.Errorf("namespace %s: %w", ns, err)
		}
	}
	return nil
}

// Upsert writes items to disk and memory. Nothing is written if any item has
// the wrong dimension.
func (s *BoltVectorStore) Upsert(ctx context.Context, namespace string, items []port.VectorItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkDimensions(items); err != nil {
		return err
	}

	err := s.store.db.Update(func(tx *bbolt.Tx) error {
		b, err := namespaceBucket(tx, namespace, true)
		if err != nil {
			return err
		}
		for _, item := range items {
			data, err := json.Marshal(storedVector{Vector: item.Vector, Metadata: item.Metadata})
			if err != nil {
				return fmt.Errorf("encode %s: %w", item.ID, err)
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", namespace, err)
	}

	return s.index.Upsert(ctx, namespace, items)
}

// Fetch returns the stored records for ids.
func (s *BoltVectorStore) Fetch(ctx context.Context, namespace string, ids []string) (map[string]port.VectorItem, error) {
	return s.index.Fetch(ctx, namespace, ids)
}

// Query finds the topK nearest vectors matching filter using cosine similarity.
func (s *BoltVectorStore) Query(ctx context.Context, namespace string, vector domain.Vector, topK int, filter domain.Filter) ([]port.VectorResult, error) {
	return s.index.Query(ctx, namespace, vector, topK, filter)
}

// Delete removes ids from namespace.
func (s *BoltVectorStore) Delete(ctx context.Context, namespace string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.store.db.Update(func(tx *bbolt.Tx) error {
		b, err := namespaceBucket(tx, namespace, false)
		if err != nil || b == nil {
			return err
		}
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", namespace, err)
	}
	return s.index.Delete(ctx, namespace, ids)
}

// DescribeStats reports per-namespace counts and the vector dimension.
func (s *BoltVectorStore) DescribeStats(ctx context.Context) (domain.Stats, error) {
	return s.index.DescribeStats(ctx)
}

func (s *BoltVectorStore) checkDimensions(items []port.VectorItem) error {
	dim := s.index.Dimension()
	for _, item := range items {
		if len(item.Vector) == 0 {
			return fmt.Errorf("%s: %w: empty vector", item.ID, domain.ErrDimensionMismatch)
		}
		if dim == 0 {
			dim = len(item.Vector)
		}
		if len(item.Vector) != dim {
			return fmt.Errorf("%s: %w: expected %d, got %d", item.ID, domain.ErrDimensionMismatch, dim, len(item.Vector))
		}
	}
	return nil
}

var _ port.VectorStore = (*BoltVectorStore)(nil)
