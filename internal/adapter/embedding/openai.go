package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"xcreator/internal/adapter/httpclient"
	"xcreator/internal/domain"
	"xcreator/internal/port"
)

// maxBatch is the OpenAI per-request input limit.
const maxBatch = 2048

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	apiKey    string
	model     string
	baseURL   string
	dimension int
	client    *httpclient.Client
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data  []embeddingData `json:"data"`
	Error *apiError       `json:"error,omitempty"`
}

type embeddingData struct {
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Option configures an OpenAIEmbedder.
type Option func(*options)

type options struct {
	dimension int
	timeout   time.Duration
	retries   uint
	logger    *slog.Logger
}

// WithDimension requests a reduced output size from models that support it.
func WithDimension(d int) Option {
	return func(o *options) { o.dimension = d }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries sets how many attempts transient failures get.
func WithRetries(n uint) Option {
	return func(o *options) { o.retries = n }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func NewOpenAIEmbedder(apiKeyEnv, model string, opts ...Option) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKeyEnv, model, "https://api.openai.com/v1", opts...)
}

func NewOllamaEmbedder(model, baseURL string, opts ...Option) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	e := newEmbedder("ollama", model, baseURL, opts)
	if e.dimension == 0 {
		switch model {
		case "mxbai-embed-large":
			e.dimension = 1024
		case "all-minilm":
			e.dimension = 384
		default:
			e.dimension = 768
		}
	}
	return e, nil
}

func NewOpenAICompatibleEmbedder(apiKeyEnv, model, baseURL string, opts ...Option) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	e := newEmbedder(apiKey, model, baseURL, opts)
	if e.dimension == 0 {
		switch model {
		case "text-embedding-3-large":
			e.dimension = 3072
		case "jina-embeddings-v3":
			e.dimension = 1024
		default:
			e.dimension = 1536
		}
	}
	return e, nil
}

func newEmbedder(apiKey, model, baseURL string, opts []Option) *OpenAIEmbedder {
	o := options{timeout: 60 * time.Second, retries: 1, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &OpenAIEmbedder{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		dimension: o.dimension,
		client: httpclient.New("embedding",
			httpclient.WithTimeout(o.timeout),
			httpclient.WithRetry(o.retries, time.Second),
			httpclient.WithLogger(o.logger),
		),
	}
}

// Embed returns one vector per text in input order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([]domain.Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([]domain.Vector, 0, len(texts))
	for i := 0; i < len(texts); i += maxBatch {
		end := min(i+maxBatch, len(texts))

		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, vectors...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([]domain.Vector, error) {
	req := embeddingRequest{Input: texts, Model: e.model}
	if e.model == "text-embedding-3-small" || e.model == "text-embedding-3-large" {
		req.Dimensions = e.dimension
	}

	var resp embeddingResponse
	if err := e.client.DoJSON(ctx, http.MethodPost, e.baseURL+"/embeddings", httpclient.BearerHeader(e.apiKey), req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, &domain.UpstreamError{Service: "embedding", Message: resp.Error.Message}
	}

	vectors := make([]domain.Vector, len(texts))
	for _, data := range resp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			continue
		}
		vectors[data.Index] = data.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, &domain.UpstreamError{
				Service: "embedding",
				Message: fmt.Sprintf("missing vector for input %d of %d", i, len(texts)),
			}
		}
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// MockEmbedder hashes words into a fixed-size bag-of-words vector. Texts that
// share vocabulary land close together, which is enough for offline runs.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([]domain.Vector, error) {
	out := make([]domain.Vector, len(texts))
	for i, text := range texts {
		v := make(domain.Vector, e.dimension)
		for _, word := range words(text) {
			h := fnv.New32a()
			h.Write([]byte(word)) //nolint:errcheck // fnv never fails
			v[int(h.Sum32())%e.dimension]++
		}
		normalize(v)
		out[i] = v
	}
	return out, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

func words(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		alnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if alnum && start < 0 {
			start = i
		}
		if !alnum && start >= 0 {
			out = append(out, strings.ToLower(s[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, strings.ToLower(s[start:]))
	}
	return out
}

func normalize(v domain.Vector) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}

var (
	_ port.Embedder = (*OpenAIEmbedder)(nil)
	_ port.Embedder = (*MockEmbedder)(nil)
)
