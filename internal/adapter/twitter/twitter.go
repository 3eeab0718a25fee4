// Package twitter fetches X user profiles and recent original posts through
// the X API v2 with an app bearer token.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"xcreator/internal/adapter/httpcache"
	"xcreator/internal/adapter/httpclient"
	"xcreator/internal/domain"
	"xcreator/internal/port"
)

const (
	defaultBaseURL = "https://api.twitter.com"

	// X API bounds for max_results on the user timeline.
	minResults = 5
	maxResults = 100

	userFields  = "description,public_metrics,verified,verified_type,profile_image_url"
	tweetFields = "created_at,public_metrics"
)

// Client is a port.ProfileSource backed by the X API.
type Client struct {
	token   string
	baseURL string
	http    *httpclient.Client
	cache   *httpcache.Cache
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*config)

type config struct {
	baseURL string
	cache   *httpcache.Cache
	logger  *slog.Logger
	limiter *rate.Limiter
	timeout time.Duration
	retries uint
}

// WithBaseURL points the client at another API host (tests, proxies).
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = u }
}

// WithCache caches successful responses.
func WithCache(cache *httpcache.Cache) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithRateLimit paces outbound calls to rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *config) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithRetries sets how many attempts transient failures get.
func WithRetries(attempts uint) Option {
	return func(c *config) { c.retries = attempts }
}

// New creates an X API client.
func New(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("x api bearer token is required")
	}

	cfg := &config{
		baseURL: defaultBaseURL,
		logger:  slog.Default(),
		timeout: 30 * time.Second,
		retries: 1,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		token:   token,
		baseURL: cfg.baseURL,
		cache:   cfg.cache,
		logger:  cfg.logger,
		http: httpclient.New("x api",
			httpclient.WithTimeout(cfg.timeout),
			httpclient.WithRetry(cfg.retries, time.Second),
			httpclient.WithLimiter(cfg.limiter),
			httpclient.WithLogger(cfg.logger),
		),
	}, nil
}

type userResponse struct {
	Data   *apiUser   `json:"data"`
	Errors []apiError `json:"errors"`
}

type apiUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	Description     string `json:"description"`
	Verified        bool   `json:"verified"`
	VerifiedType    string `json:"verified_type"`
	ProfileImageURL string `json:"profile_image_url"`
	PublicMetrics   struct {
		FollowersCount int `json:"followers_count"`
		FollowingCount int `json:"following_count"`
		TweetCount     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
}

type tweetsResponse struct {
	Data []apiTweet `json:"data"`
	Meta struct {
		ResultCount int `json:"result_count"`
	} `json:"meta"`
	Errors []apiError `json:"errors"`
}

type apiTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount    int `json:"like_count"`
		RetweetCount int `json:"retweet_count"`
	} `json:"public_metrics"`
}

// FetchProfile looks up a user by handle.
func (c *Client) FetchProfile(ctx context.Context, handle string) (*domain.Profile, error) {
	endpoint := fmt.Sprintf("%s/2/users/by/username/%s?%s",
		c.baseURL, url.PathEscape(handle), url.Values{"user.fields": {userFields}}.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("@%s: %w", handle, domain.ErrProfileNotFound)
		}
		return nil, err
	}

	var resp userResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.UpstreamError{Service: c.http.Service(), Message: "malformed user response: " + err.Error()}
	}
	// The API answers 200 with only an errors array for unknown or suspended users.
	if resp.Data == nil {
		detail := "no data"
		if len(resp.Errors) > 0 {
			detail = resp.Errors[0].Detail
		}
		c.logger.Debug("user lookup returned no data", "handle", handle, "detail", detail)
		return nil, fmt.Errorf("@%s: %w", handle, domain.ErrProfileNotFound)
	}

	u := resp.Data
	return &domain.Profile{
		ID:              u.ID,
		Username:        u.Username,
		Name:            u.Name,
		Bio:             u.Description,
		FollowersCount:  u.PublicMetrics.FollowersCount,
		FollowingCount:  u.PublicMetrics.FollowingCount,
		TweetCount:      u.PublicMetrics.TweetCount,
		Verified:        u.Verified,
		VerifiedType:    u.VerifiedType,
		ProfileImageURL: u.ProfileImageURL,
	}, nil
}

// FetchPosts returns up to limit recent original posts, newest first.
// Replies and reposts are excluded.
func (c *Client) FetchPosts(ctx context.Context, profileID string, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	params := url.Values{
		"max_results":  {strconv.Itoa(ClampResults(limit))},
		"exclude":      {"replies,retweets"},
		"tweet.fields": {tweetFields},
	}
	endpoint := fmt.Sprintf("%s/2/users/%s/tweets?%s", c.baseURL, url.PathEscape(profileID), params.Encode())

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var resp tweetsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.UpstreamError{Service: c.http.Service(), Message: "malformed timeline response: " + err.Error()}
	}

	posts := make([]domain.Post, 0, min(len(resp.Data), limit))
	for _, t := range resp.Data {
		if len(posts) == limit {
			break
		}
		post := domain.Post{
			ID:           t.ID,
			Text:         t.Text,
			LikeCount:    t.PublicMetrics.LikeCount,
			RetweetCount: t.PublicMetrics.RetweetCount,
		}
		if ts, err := time.Parse(time.RFC3339, t.CreatedAt); err == nil {
			post.CreatedAt = ts
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.cache.Fetch(ctx, httpcache.Key("x", endpoint), func(ctx context.Context) ([]byte, error) {
		c.logger.Debug("x api request", "url", endpoint)
		return c.http.Fetch(ctx, http.MethodGet, endpoint, httpclient.BearerHeader(c.token), nil)
	})
}

// ClampResults fits n into the range the timeline endpoint accepts.
func ClampResults(n int) int {
	return min(max(n, minResults), maxResults)
}

var _ port.ProfileSource = (*Client)(nil)
