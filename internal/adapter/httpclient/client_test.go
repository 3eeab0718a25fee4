package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xcreator/internal/domain"
)

func TestDoJSON_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"echo":"hi"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := New("test")
	var out struct {
		Echo string `json:"echo"`
	}
	err := c.DoJSON(context.Background(), http.MethodPost, srv.URL, BearerHeader("secret"), map[string]string{"a": "b"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out.Echo)
}

func TestFetch_StatusMapsToUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New("x").Fetch(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstreamUnavailable))
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
}

func TestFetch_NoRetryByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New("x").Fetch(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok")) //nolint:errcheck
	}))
	defer srv.Close()

	c := New("x", WithRetry(3, time.Millisecond))
	data, err := c.Fetch(context.Background(), http.MethodGet, srv.URL, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_PermanentFailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("x", WithRetry(3, time.Millisecond))
	_, err := c.Fetch(context.Background(), http.MethodGet, srv.URL, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, StatusCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoJSON_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html>")) //nolint:errcheck
	}))
	defer srv.Close()

	var out map[string]any
	err := New("x").DoJSON(context.Background(), http.MethodGet, srv.URL, nil, nil, &out)
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}
