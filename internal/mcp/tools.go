package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"xcreator/internal/domain"
)

// IngestInput is the input schema for ingest_profile.
type IngestInput struct {
	Handle         string `json:"handle" jsonschema:"X handle to ingest, with or without @"`
	Category       string `json:"category" jsonschema:"organization (brand) or individual (creator)"`
	SkipValidation bool   `json:"skip_validation,omitempty" jsonschema:"skip the LLM category check"`
	AutoCorrect    bool   `json:"auto_correct,omitempty" jsonschema:"store under the suggested category when the classifier confidently disagrees"`
}

// MatchInput is the input schema for find_matches.
type MatchInput struct {
	Handle       string `json:"handle" jsonschema:"handle of the profile to find matches for"`
	Category     string `json:"category" jsonschema:"category of that profile; matches come from the other category"`
	TopK         int    `json:"top_k,omitempty" jsonschema:"number of matches to return"`
	MinFollowers *int   `json:"min_followers,omitempty" jsonschema:"lower bound on candidate follower count"`
	MaxFollowers *int   `json:"max_followers,omitempty" jsonschema:"upper bound on candidate follower count"`
	Rerank       bool   `json:"rerank,omitempty" jsonschema:"re-order candidates with the LLM"`
}

// PostsInput is the input schema for matching_posts.
type PostsInput struct {
	Searcher  string `json:"searcher" jsonschema:"handle whose profile vector is the query"`
	Candidate string `json:"candidate" jsonschema:"handle whose posts are searched"`
	TopK      int    `json:"top_k,omitempty" jsonschema:"number of posts to return (default 5)"`
}

// StatsInput is the empty input for store_stats.
type StatsInput struct{}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_profile",
		Description: "Fetch an X profile with its recent posts, embed it and store it as a brand or creator",
	}, s.handleIngest)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "find_matches",
		Description: "Find the closest profiles of the opposite category to a stored profile",
	}, s.handleMatch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "matching_posts",
		Description: "Find a candidate's posts closest to the searcher's profile",
	}, s.handlePosts)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "store_stats",
		Description: "Count stored profiles and posts",
	}, s.handleStats)
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, any, error) {
	if input.Handle == "" {
		return toolError("handle is required"), nil, nil
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return toolError("%v", err), nil, nil
	}

	result, err := s.svc.Ingest(ctx, input.Handle, category, domain.IngestOptions{
		SkipValidation: input.SkipValidation,
		AutoCorrect:    input.AutoCorrect,
	})
	if err != nil {
		return toolError("Failed to ingest @%s: %v", input.Handle, err), nil, nil
	}
	return toolJSON(result)
}

func (s *Server) handleMatch(ctx context.Context, _ *mcp.CallToolRequest, input MatchInput) (*mcp.CallToolResult, any, error) {
	if input.Handle == "" {
		return toolError("handle is required"), nil, nil
	}
	category, err := domain.ParseCategory(input.Category)
	if err != nil {
		return toolError("%v", err), nil, nil
	}
	topK := input.TopK
	if topK <= 0 {
		topK = s.defaultTop
	}

	resp, err := s.svc.Match(ctx, domain.MatchRequest{
		Handle:       input.Handle,
		Category:     category,
		TopK:         topK,
		MinFollowers: input.MinFollowers,
		MaxFollowers: input.MaxFollowers,
		Rerank:       input.Rerank,
	})
	if err != nil {
		return toolError("Failed to match @%s: %v", input.Handle, err), nil, nil
	}
	return toolJSON(resp)
}

func (s *Server) handlePosts(ctx context.Context, _ *mcp.CallToolRequest, input PostsInput) (*mcp.CallToolResult, any, error) {
	if input.Searcher == "" || input.Candidate == "" {
		return toolError("searcher and candidate are required"), nil, nil
	}
	topK := input.TopK
	if topK <= 0 {
		topK = 5
	}

	posts, err := s.svc.Posts(ctx, input.Searcher, input.Candidate, topK)
	if err != nil {
		return toolError("Failed to find posts: %v", err), nil, nil
	}
	if posts == nil {
		posts = []domain.PostMatch{}
	}
	return toolJSON(posts)
}

func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ StatsInput) (*mcp.CallToolResult, any, error) {
	stats, err := s.svc.Stats(ctx)
	if err != nil {
		return toolError("Failed to read store stats: %v", err), nil, nil
	}
	return toolJSON(stats)
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
