package port

import (
	"context"

	"xcreator/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates embeddings for the given texts in one logical batch.
	// Returns a slice of vectors, one per input text, in input order.
	Embed(ctx context.Context, texts []string) ([]domain.Vector, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// VectorStore is a namespaced key -> (vector, metadata) store.
type VectorStore interface {
	// Upsert adds or updates vectors in a namespace.
	Upsert(ctx context.Context, namespace string, items []VectorItem) error

	// Fetch returns the records found for keys. Missing keys are absent from the map.
	Fetch(ctx context.Context, namespace string, keys []string) (map[string]VectorItem, error)

	// Query finds the topK nearest vectors to query whose metadata matches filter.
	Query(ctx context.Context, namespace string, query domain.Vector, topK int, filter domain.Filter) ([]VectorResult, error)

	// Delete removes vectors by key.
	Delete(ctx context.Context, namespace string, keys []string) error

	// DescribeStats returns record counts per namespace.
	DescribeStats(ctx context.Context) (domain.Stats, error)
}

// VectorItem represents a vector to be stored.
type VectorItem struct {
	ID       string          // Unique key within the namespace
	Vector   domain.Vector   // Embedding vector
	Metadata domain.Metadata // Optional metadata
}

// VectorResult represents a search result.
type VectorResult struct {
	ID       string          // Record key
	Score    float64         // Similarity score (higher is better)
	Metadata domain.Metadata // Stored metadata
}
