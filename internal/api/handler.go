// Package api serves the ingestion and matching operations as a JSON HTTP API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"xcreator/internal/domain"
)

// Service is the set of operations the API exposes.
type Service interface {
	Ingest(ctx context.Context, handle string, category domain.Category, opts domain.IngestOptions) (*domain.IngestResult, error)
	Match(ctx context.Context, req domain.MatchRequest) (*domain.MatchResponse, error)
	Posts(ctx context.Context, searcher, candidate string, topK int) ([]domain.PostMatch, error)
	Reclassify(ctx context.Context, handle string, from, to domain.Category) (*domain.StoredProfile, error)
	Stats(ctx context.Context) (domain.Stats, error)
}

const (
	maxBodyBytes = 1 << 20
	maxTopK      = 100
)

// Handler contains dependencies for HTTP handlers
type Handler struct {
	svc        Service
	logger     *slog.Logger
	defaultTop int
	rerank     bool
	now        func() time.Time
}

// New creates a new Handler instance. defaultTopK and rerank apply when a
// match request leaves them out.
func New(svc Service, logger *slog.Logger, defaultTopK int, rerank bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultTopK <= 0 {
		defaultTopK = 10
	}
	return &Handler{svc: svc, logger: logger, defaultTop: defaultTopK, rerank: rerank, now: time.Now}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestRequest is the body of POST /api/ingest.
type IngestRequest struct {
	Handle         string `json:"handle"`
	Category       string `json:"category"`
	SkipValidation bool   `json:"skip_validation"`
	AutoCorrect    bool   `json:"auto_correct"`
}

// MatchRequest is the body of POST /api/match.
type MatchRequest struct {
	Handle       string `json:"handle"`
	Category     string `json:"category"`
	TopK         int    `json:"top_k"`
	MinFollowers *int   `json:"min_followers"`
	MaxFollowers *int   `json:"max_followers"`
	Rerank       *bool  `json:"rerank"`
}

// ReclassifyRequest is the body of POST /api/reclassify.
type ReclassifyRequest struct {
	Handle string `json:"handle"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// PostsResponse wraps GET /api/posts results.
type PostsResponse struct {
	Posts []domain.PostMatch `json:"posts"`
	Count int                `json:"count"`
}

// Health handles GET /health requests
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Stats(r.Context()); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Vector store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Timestamp: h.now().UTC()})
}

// Ingest handles POST /api/ingest requests
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Handle) == "" {
		writeError(w, http.StatusBadRequest, "handle is required")
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.svc.Ingest(r.Context(), req.Handle, category, domain.IngestOptions{
		SkipValidation: req.SkipValidation,
		AutoCorrect:    req.AutoCorrect,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}

// Match handles POST /api/match requests
func (h *Handler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Handle) == "" {
		writeError(w, http.StatusBadRequest, "handle is required")
		return
	}
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	topK := req.TopK
	if topK <= 0 {
		topK = h.defaultTop
	}
	topK = min(topK, maxTopK)
	rerank := h.rerank
	if req.Rerank != nil {
		rerank = *req.Rerank
	}

	resp, err := h.svc.Match(r.Context(), domain.MatchRequest{
		Handle:       req.Handle,
		Category:     category,
		TopK:         topK,
		MinFollowers: req.MinFollowers,
		MaxFollowers: req.MaxFollowers,
		Rerank:       rerank,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Posts handles GET /api/posts?searcher=&candidate=&top_k= requests
func (h *Handler) Posts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	searcher := strings.TrimSpace(q.Get("searcher"))
	candidate := strings.TrimSpace(q.Get("candidate"))
	if searcher == "" || candidate == "" {
		writeError(w, http.StatusBadRequest, "Query parameters 'searcher' and 'candidate' are required")
		return
	}

	topK := 5
	if s := q.Get("top_k"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "top_k must be a positive integer")
			return
		}
		topK = min(n, maxTopK)
	}

	posts, err := h.svc.Posts(r.Context(), searcher, candidate, topK)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if posts == nil {
		posts = []domain.PostMatch{}
	}
	writeJSON(w, http.StatusOK, PostsResponse{Posts: posts, Count: len(posts)})
}

// Reclassify handles POST /api/reclassify requests
func (h *Handler) Reclassify(w http.ResponseWriter, r *http.Request) {
	var req ReclassifyRequest
	if !decode(w, r, &req) {
		return
	}
	from, err := domain.ParseCategory(req.From)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := domain.ParseCategory(req.To)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	profile, err := h.svc.Reclassify(r.Context(), req.Handle, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Stats handles GET /api/stats requests
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)

	log := h.logger.With("request_id", RequestID(r.Context()), "path", r.URL.Path, "status", status, "error", err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Debug("request rejected")
	}

	resp := ErrorResponse{Error: http.StatusText(status), Message: err.Error(), Code: code}
	var mismatch *domain.ClassificationMismatchError
	if errors.As(err, &mismatch) {
		resp.Suggested = string(mismatch.Suggested)
	}
	if status == http.StatusInternalServerError {
		resp.Message = "Internal error"
	}
	writeJSON(w, status, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
	})
}
