package pinecone

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pinecone-io/go-pinecone/v5/pinecone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"xcreator/internal/domain"
	"xcreator/internal/port"
)

// fakeIndex records calls for one namespace connection.
type fakeIndex struct {
	namespace string
	upserts   [][]*pinecone.Vector
	fetches   [][]string
	queries   []*pinecone.QueryByVectorValuesRequest
	deletes   [][]string
	closed    bool

	fetchResp *pinecone.FetchVectorsResponse
	queryResp *pinecone.QueryVectorsResponse
	statsResp *pinecone.DescribeIndexStatsResponse
	failures  int
	err       error
}

func (f *fakeIndex) fail() error {
	if f.failures > 0 {
		f.failures--
		return f.err
	}
	return nil
}

func (f *fakeIndex) UpsertVectors(_ context.Context, in []*pinecone.Vector) (uint32, error) {
	if err := f.fail(); err != nil {
		return 0, err
	}
	f.upserts = append(f.upserts, in)
	return uint32(len(in)), nil
}

func (f *fakeIndex) FetchVectors(_ context.Context, ids []string) (*pinecone.FetchVectorsResponse, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.fetches = append(f.fetches, ids)
	return f.fetchResp, nil
}

func (f *fakeIndex) QueryByVectorValues(_ context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	f.queries = append(f.queries, in)
	return f.queryResp, nil
}

func (f *fakeIndex) DeleteVectorsById(_ context.Context, ids []string) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.deletes = append(f.deletes, ids)
	return nil
}

func (f *fakeIndex) DescribeIndexStats(context.Context) (*pinecone.DescribeIndexStatsResponse, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.statsResp, nil
}

func (f *fakeIndex) Close() error {
	f.closed = true
	return nil
}

type fakeDialer struct {
	mu    sync.Mutex
	conns map[string]*fakeIndex
	dials int
}

func (d *fakeDialer) get(ns string) *fakeIndex {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conns == nil {
		d.conns = make(map[string]*fakeIndex)
	}
	c, ok := d.conns[ns]
	if !ok {
		c = &fakeIndex{namespace: ns}
		d.conns[ns] = c
	}
	return c
}

func (d *fakeDialer) dial(ns string) (index, error) {
	d.dials++
	return d.get(ns), nil
}

func newTestStore(opts ...Option) (*Store, *fakeDialer) {
	d := &fakeDialer{}
	return newStore(d.dial, append([]Option{func(s *Store) { s.delay = 0 }}, opts...)...), d
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestUpsert_SendsMetadataPerNamespace(t *testing.T) {
	s, d := newTestStore()

	err := s.Upsert(context.Background(), "profiles", []port.VectorItem{{
		ID:     "organization_nike",
		Vector: domain.Vector{0.5, 0.25},
		Metadata: domain.Metadata{
			"category":       "organization",
			"follower_count": 9800000,
			"sample_tweets":  []string{"Just do it"},
		},
	}})
	require.NoError(t, err)

	conn := d.get("profiles")
	require.Len(t, conn.upserts, 1)
	v := conn.upserts[0][0]
	assert.Equal(t, "organization_nike", v.Id)
	require.NotNil(t, v.Values)
	assert.Equal(t, []float32{0.5, 0.25}, *v.Values)

	meta := v.Metadata.AsMap()
	assert.Equal(t, "organization", meta["category"])
	assert.Equal(t, float64(9800000), meta["follower_count"])
	assert.Equal(t, []any{"Just do it"}, meta["sample_tweets"])
	assert.Empty(t, d.get("tweets").upserts)
}

func TestUpsert_Batches(t *testing.T) {
	s, d := newTestStore()

	items := make([]port.VectorItem, 150)
	for i := range items {
		items[i] = port.VectorItem{ID: string(rune('a' + i%26)), Vector: domain.Vector{1}}
	}
	require.NoError(t, s.Upsert(context.Background(), "tweets", items))

	conn := d.get("tweets")
	require.Len(t, conn.upserts, 2)
	assert.Len(t, conn.upserts[0], 100)
	assert.Len(t, conn.upserts[1], 50)
	assert.Equal(t, 1, d.dials, "connection is reused per namespace")
}

func TestFetch(t *testing.T) {
	s, d := newTestStore()
	values := []float32{1, 0}
	d.get("profiles").fetchResp = &pinecone.FetchVectorsResponse{
		Vectors: map[string]*pinecone.Vector{
			"individual_runner": {Id: "individual_runner", Values: &values, Metadata: mustStruct(t, map[string]any{"username": "runner"})},
		},
	}

	got, err := s.Fetch(context.Background(), "profiles", []string{"individual_runner", "individual_missing"})
	require.NoError(t, err)
	require.Contains(t, got, "individual_runner")
	assert.NotContains(t, got, "individual_missing")
	assert.Equal(t, domain.Vector{1, 0}, got["individual_runner"].Vector)
	assert.Equal(t, "runner", got["individual_runner"].Metadata.StringValue("username"))
	assert.Equal(t, [][]string{{"individual_runner", "individual_missing"}}, d.get("profiles").fetches)
}

func TestQuery_PassesFilter(t *testing.T) {
	s, d := newTestStore()
	d.get("profiles").queryResp = &pinecone.QueryVectorsResponse{
		Matches: []*pinecone.ScoredVector{{
			Vector: &pinecone.Vector{Id: "individual_runner", Metadata: mustStruct(t, map[string]any{"follower_count": 20000})},
			Score:  0.75,
		}},
	}

	results, err := s.Query(context.Background(), "profiles", domain.Vector{1, 0}, 5, domain.Filter{
		"category":       {"$eq": "individual"},
		"follower_count": {"$gte": 1000},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "individual_runner", results[0].ID)
	assert.InDelta(t, 0.75, results[0].Score, 1e-6)
	assert.Equal(t, 20000, results[0].Metadata.IntValue("follower_count"))

	req := d.get("profiles").queries[0]
	assert.Equal(t, uint32(5), req.TopK)
	assert.True(t, req.IncludeMetadata)
	filter := req.MetadataFilter.AsMap()
	assert.Equal(t, map[string]any{"$eq": "individual"}, filter["category"])
	assert.Equal(t, map[string]any{"$gte": float64(1000)}, filter["follower_count"])
}

func TestQuery_ZeroTopK(t *testing.T) {
	s, d := newTestStore()
	results, err := s.Query(context.Background(), "profiles", domain.Vector{1}, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, d.dials)
}

func TestDescribeStats(t *testing.T) {
	s, d := newTestStore(WithDimension(1536))
	d.get("").statsResp = &pinecone.DescribeIndexStatsResponse{
		TotalVectorCount: 15,
		Namespaces: map[string]*pinecone.NamespaceSummary{
			"profiles": {VectorCount: 3},
			"tweets":   {VectorCount: 12},
		},
	}

	stats, err := s.DescribeStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Namespaces["profiles"])
	assert.Equal(t, 12, stats.Namespaces["tweets"])
	assert.Equal(t, 1536, stats.Dimension)
	assert.Equal(t, 15, stats.Total)
}

func TestErrorsAreUpstream(t *testing.T) {
	s, d := newTestStore()
	conn := d.get("tweets")
	conn.failures, conn.err = 5, errors.New("rpc error: code = Unavailable")

	err := s.Delete(context.Background(), "tweets", []string{"x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	var upstream *domain.UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "vector store", upstream.Service)
	assert.Contains(t, upstream.Message, "Unavailable")
}

func TestRetries(t *testing.T) {
	s, d := newTestStore(WithRetries(3))
	conn := d.get("tweets")
	conn.failures, conn.err = 2, errors.New("transient")

	require.NoError(t, s.Delete(context.Background(), "tweets", []string{"x"}))
	assert.Equal(t, [][]string{{"x"}}, conn.deletes)
}

func TestDelete_Empty(t *testing.T) {
	s, d := newTestStore()
	require.NoError(t, s.Delete(context.Background(), "tweets", nil))
	assert.Zero(t, d.dials)
}

func TestClose_ReleasesConnections(t *testing.T) {
	s, d := newTestStore()
	_, err := s.Fetch(context.Background(), "profiles", []string{"a"})
	require.NoError(t, err)

	require.NoError(t, s.Close())
	assert.True(t, d.get("profiles").closed)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "key")
	assert.Error(t, err)
	_, err = New("idx.svc.pinecone.io", "")
	assert.Error(t, err)
}
