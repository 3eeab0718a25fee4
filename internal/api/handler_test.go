package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcreator/internal/domain"
)

type fakeService struct {
	ingestErr  error
	existed    bool
	matchErr   error
	postsErr   error
	statsErr   error
	lastMatch  domain.MatchRequest
	lastIngest domain.IngestOptions
	lastPosts  [3]any
}

func (f *fakeService) Ingest(_ context.Context, handle string, category domain.Category, opts domain.IngestOptions) (*domain.IngestResult, error) {
	f.lastIngest = opts
	if f.ingestErr != nil {
		return nil, f.ingestErr
	}
	return &domain.IngestResult{Key: string(category) + "_" + strings.ToLower(handle), Category: category, Existed: f.existed}, nil
}

func (f *fakeService) Match(_ context.Context, req domain.MatchRequest) (*domain.MatchResponse, error) {
	f.lastMatch = req
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	return &domain.MatchResponse{
		Query:   domain.StoredProfile{Key: "organization_nike"},
		Matches: []domain.Match{{Key: "individual_runner", Score: 0.9}},
	}, nil
}

func (f *fakeService) Posts(_ context.Context, searcher, candidate string, topK int) ([]domain.PostMatch, error) {
	f.lastPosts = [3]any{searcher, candidate, topK}
	return nil, f.postsErr
}

func (f *fakeService) Reclassify(_ context.Context, handle string, from, to domain.Category) (*domain.StoredProfile, error) {
	return &domain.StoredProfile{Key: string(to) + "_" + handle}, nil
}

func (f *fakeService) Stats(context.Context) (domain.Stats, error) {
	return domain.Stats{Namespaces: map[string]int{"profiles": 2}, Total: 2}, f.statsErr
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestIngest(t *testing.T) {
	svc := &fakeService{}
	h := New(svc, nil, 10, false).Routes(nil)

	rec := do(t, h, http.MethodPost, "/api/ingest", `{"handle":"Nike","category":"brand","auto_correct":true}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result domain.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "organization_nike", result.Key)
	assert.True(t, svc.lastIngest.AutoCorrect)

	svc.existed = true
	rec = do(t, h, http.MethodPost, "/api/ingest", `{"handle":"Nike","category":"organization"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIngest_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"profile not found", fmt.Errorf("fetch: %w", domain.ErrProfileNotFound), http.StatusNotFound, "profile_not_found"},
		{"mismatch", &domain.ClassificationMismatchError{Requested: "organization", Suggested: "individual", Confidence: "high"}, http.StatusConflict, "classification_mismatch"},
		{"no content", domain.ErrNoContent, http.StatusUnprocessableEntity, "no_content"},
		{"invalid handle", domain.ErrInvalidHandle, http.StatusBadRequest, "invalid_handle"},
		{"upstream", &domain.UpstreamError{Service: "embedding", StatusCode: 503}, http.StatusBadGateway, "upstream_unavailable"},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeService{ingestErr: tt.err}, nil, 10, false).Routes(nil)
			rec := do(t, h, http.MethodPost, "/api/ingest", `{"handle":"nike","category":"organization"}`)

			assert.Equal(t, tt.status, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.code, resp.Code)
			if tt.code == "classification_mismatch" {
				assert.Equal(t, "individual", resp.Suggested)
			}
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, resp.Message, "disk on fire")
			}
		})
	}
}

func TestIngest_BadRequests(t *testing.T) {
	h := New(&fakeService{}, nil, 10, false).Routes(nil)

	for name, body := range map[string]string{
		"malformed":        `{"handle":`,
		"missing handle":   `{"category":"organization"}`,
		"unknown category": `{"handle":"nike","category":"company"}`,
		"unknown field":    `{"handle":"nike","category":"organization","force":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/ingest", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMatch_Defaults(t *testing.T) {
	svc := &fakeService{}
	h := New(svc, nil, 7, true).Routes(nil)

	rec := do(t, h, http.MethodPost, "/api/match", `{"handle":"nike","category":"organization","min_followers":1000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, svc.lastMatch.TopK)
	assert.True(t, svc.lastMatch.Rerank)
	require.NotNil(t, svc.lastMatch.MinFollowers)
	assert.Equal(t, 1000, *svc.lastMatch.MinFollowers)
	assert.Nil(t, svc.lastMatch.MaxFollowers)

	rec = do(t, h, http.MethodPost, "/api/match", `{"handle":"nike","category":"organization","top_k":3,"rerank":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, svc.lastMatch.TopK)
	assert.False(t, svc.lastMatch.Rerank)

	var resp domain.MatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "individual_runner", resp.Matches[0].Key)
}

func TestMatch_CapsTopK(t *testing.T) {
	svc := &fakeService{}
	h := New(svc, nil, 10, true).Routes(nil)

	rec := do(t, h, http.MethodPost, "/api/match", `{"handle":"nike","category":"organization","top_k":9223372036854775807}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, svc.lastMatch.TopK)
}

func TestMatch_NotFound(t *testing.T) {
	h := New(&fakeService{matchErr: domain.ErrNotFound}, nil, 10, false).Routes(nil)
	rec := do(t, h, http.MethodPost, "/api/match", `{"handle":"ghost","category":"individual"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPosts(t *testing.T) {
	svc := &fakeService{}
	h := New(svc, nil, 10, false).Routes(nil)

	rec := do(t, h, http.MethodGet, "/api/posts?searcher=nike&candidate=runner&top_k=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [3]any{"nike", "runner", 3}, svc.lastPosts)
	assert.JSONEq(t, `{"posts":[],"count":0}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/posts?searcher=nike", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/posts?searcher=nike&candidate=runner&top_k=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReclassifyAndStats(t *testing.T) {
	h := New(&fakeService{}, nil, 10, false).Routes(nil)

	rec := do(t, h, http.MethodPost, "/api/reclassify", `{"handle":"nike","from":"individual","to":"organization"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "organization_nike")

	rec = do(t, h, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"profiles":2`)
}

func TestHealth(t *testing.T) {
	h := New(&fakeService{}, nil, 10, false).Routes(nil)
	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	h = New(&fakeService{statsErr: domain.ErrUpstreamUnavailable}, nil, 10, false).Routes(nil)
	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMiddleware(t *testing.T) {
	h := New(&fakeService{}, nil, 10, false).Routes([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/match", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)

	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("X-Request-ID", "8c3e7a8e-6c1b-4f5e-9d6a-2f7b1c0e4a11")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "8c3e7a8e-6c1b-4f5e-9d6a-2f7b1c0e4a11", rec.Header().Get("X-Request-ID"))

	rec = do(t, h, http.MethodGet, "/api/match", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
