// Package pinecone implements port.VectorStore against a Pinecone index
// through the official Go SDK.
package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/pinecone-io/go-pinecone/v5/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

const (
	service     = "vector store"
	upsertBatch = 100
	fetchBatch  = 100
)

// index is the subset of *pinecone.IndexConnection the store uses. One
// connection is bound to one namespace.
type index interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	FetchVectors(ctx context.Context, ids []string) (*pinecone.FetchVectorsResponse, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteVectorsById(ctx context.Context, ids []string) error
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

type dialer func(namespace string) (index, error)

// Store is a namespaced vector store backed by one Pinecone index.
type Store struct {
	dial      dialer
	dimension int
	attempts  uint
	delay     time.Duration
	logger    *slog.Logger

	mu    sync.Mutex
	conns map[string]index
}

// Option configures a Store.
type Option func(*Store)

// WithRetries sets how many attempts transient failures get.
func WithRetries(n uint) Option {
	return func(s *Store) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithDimension sets the dimension reported by DescribeStats.
func WithDimension(n int) Option {
	return func(s *Store) { s.dimension = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New connects to the index at host.
func New(host, apiKey string, opts ...Option) (*Store, error) {
	if host == "" {
		return nil, errors.New("pinecone: index host is required")
	}
	if apiKey == "" {
		return nil, errors.New("pinecone: API key is required")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey, SourceTag: "xcreator"})
	if err != nil {
		return nil, fmt.Errorf("pinecone: create client: %w", err)
	}
	dial := func(namespace string) (index, error) {
		return pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
	}
	return newStore(dial, opts...), nil
}

func newStore(dial dialer, opts ...Option) *Store {
	s := &Store{
		dial:     dial,
		attempts: 1,
		delay:    500 * time.Millisecond,
		logger:   slog.Default(),
		conns:    make(map[string]index),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases every namespace connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for ns, conn := range s.conns {
		errs = append(errs, conn.Close())
		delete(s.conns, ns)
	}
	return errors.Join(errs...)
}

func (s *Store) conn(namespace string) (index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.conns[namespace]; ok {
		return c, nil
	}
	c, err := s.dial(namespace)
	if err != nil {
		return nil, &domain.UpstreamError{Service: service, Message: err.Error()}
	}
	s.conns[namespace] = c
	return c, nil
}

// Upsert writes items in batches.
func (s *Store) Upsert(ctx context.Context, namespace string, items []port.VectorItem) error {
	conn, err := s.conn(namespace)
	if err != nil {
		return err
	}
	for start := 0; start < len(items); start += upsertBatch {
		end := min(start+upsertBatch, len(items))

		batch := make([]*pinecone.Vector, 0, end-start)
		for _, item := range items[start:end] {
			meta, err := toStruct(item.Metadata)
			if err != nil {
				return fmt.Errorf("upsert %s: metadata: %w", item.ID, err)
			}
			values := toFloat32(item.Vector)
			batch = append(batch, &pinecone.Vector{Id: item.ID, Values: &values, Metadata: meta})
		}
		err := s.call(ctx, "upsert", func() error {
			_, err := conn.UpsertVectors(ctx, batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("upsert into %s: %w", namespace, err)
		}
	}
	return nil
}

// Fetch returns the records found for ids, with values.
func (s *Store) Fetch(ctx context.Context, namespace string, ids []string) (map[string]port.VectorItem, error) {
	conn, err := s.conn(namespace)
	if err != nil {
		return nil, err
	}
	out := make(map[string]port.VectorItem, len(ids))
	for start := 0; start < len(ids); start += fetchBatch {
		end := min(start+fetchBatch, len(ids))

		var resp *pinecone.FetchVectorsResponse
		err := s.call(ctx, "fetch", func() error {
			var err error
			resp, err = conn.FetchVectors(ctx, ids[start:end])
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch from %s: %w", namespace, err)
		}
		if resp == nil {
			continue
		}
		for id, v := range resp.Vectors {
			if v == nil {
				continue
			}
			out[id] = port.VectorItem{ID: id, Vector: fromValues(v.Values), Metadata: fromStruct(v.Metadata)}
		}
	}
	return out, nil
}

// Query returns the topK nearest records matching filter.
func (s *Store) Query(ctx context.Context, namespace string, v domain.Vector, topK int, filter domain.Filter) ([]port.VectorResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	conn, err := s.conn(namespace)
	if err != nil {
		return nil, err
	}

	req := &pinecone.QueryByVectorValuesRequest{
		Vector:          toFloat32(v),
		TopK:            uint32(topK),
		IncludeMetadata: true,
	}
	if len(filter) > 0 {
		if req.MetadataFilter, err = filterStruct(filter); err != nil {
			return nil, fmt.Errorf("query %s: filter: %w", namespace, err)
		}
	}

	var resp *pinecone.QueryVectorsResponse
	err = s.call(ctx, "query", func() error {
		var err error
		resp, err = conn.QueryByVectorValues(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", namespace, err)
	}
	if resp == nil {
		return nil, nil
	}

	results := make([]port.VectorResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		results = append(results, port.VectorResult{
			ID:       m.Vector.Id,
			Score:    float64(m.Score),
			Metadata: fromStruct(m.Vector.Metadata),
		})
	}
	return results, nil
}

// Delete removes ids from namespace.
func (s *Store) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	conn, err := s.conn(namespace)
	if err != nil {
		return err
	}
	err = s.call(ctx, "delete", func() error {
		return conn.DeleteVectorsById(ctx, ids)
	})
	if err != nil {
		return fmt.Errorf("delete from %s: %w", namespace, err)
	}
	return nil
}

// DescribeStats reports per-namespace counts.
func (s *Store) DescribeStats(ctx context.Context) (domain.Stats, error) {
	conn, err := s.conn("")
	if err != nil {
		return domain.Stats{}, err
	}

	var resp *pinecone.DescribeIndexStatsResponse
	err = s.call(ctx, "describe", func() error {
		var err error
		resp, err = conn.DescribeIndexStats(ctx)
		return err
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("describe index: %w", err)
	}

	stats := domain.Stats{Namespaces: make(map[string]int), Dimension: s.dimension}
	if resp == nil {
		return stats, nil
	}
	stats.Total = int(resp.TotalVectorCount)
	for name, ns := range resp.Namespaces {
		if ns != nil {
			stats.Namespaces[name] = int(ns.VectorCount)
		}
	}
	return stats, nil
}

// call runs fn with the configured retry policy. SDK errors become
// *domain.UpstreamError.
func (s *Store) call(ctx context.Context, op string, fn func() error) error {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("retrying pinecone call", "op", op, "attempt", n+1, "error", err)
		}),
	}
	if s.delay > 0 {
		opts = append(opts, retry.Delay(s.delay), retry.MaxJitter(max(s.delay/2, time.Millisecond)))
	}

	err := retry.Do(func() error {
		if err := fn(); err != nil {
			return &domain.UpstreamError{Service: service, Message: err.Error()}
		}
		return nil
	}, opts...)
	if err == nil {
		return nil
	}
	var upstream *domain.UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}
	return &domain.UpstreamError{Service: service, Message: err.Error()}
}

func toFloat32(v domain.Vector) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func fromValues(values *[]float32) domain.Vector {
	if values == nil {
		return nil
	}
	out := make(domain.Vector, len(*values))
	for i, x := range *values {
		out[i] = float64(x)
	}
	return out
}

// toStruct converts metadata to a protobuf struct. structpb only accepts
// []any lists, so typed string slices are widened first.
func toStruct(meta domain.Metadata) (*structpb.Struct, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	fields := make(map[string]any, len(meta))
	for k, v := range meta {
		fields[k] = widen(v)
	}
	return structpb.NewStruct(fields)
}

func fromStruct(s *structpb.Struct) domain.Metadata {
	if s == nil {
		return domain.Metadata{}
	}
	return domain.Metadata(s.AsMap())
}

func filterStruct(f domain.Filter) (*structpb.Struct, error) {
	fields := make(map[string]any, len(f))
	for field, cond := range f {
		ops := make(map[string]any, len(cond))
		for op, operand := range cond {
			ops[op] = widen(operand)
		}
		fields[field] = ops
	}
	return structpb.NewStruct(fields)
}

func widen(v any) any {
	switch list := v.(type) {
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out
	case []int:
		out := make([]any, len(list))
		for i, n := range list {
			out[i] = n
		}
		return out
	}
	return v
}

var _ port.VectorStore = (*Store)(nil)
