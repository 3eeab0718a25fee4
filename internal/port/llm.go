package port

import (
	"context"

	"xcreator/internal/domain"
)

// LLM represents a language model for text generation.
type LLM interface {
	// Generate generates text based on the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithSystem generates text with a system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}

// Classifier judges whether a profile is an organization or an individual.
type Classifier interface {
	Classify(ctx context.Context, summary ProfileSummary, samples []string) (domain.Verdict, error)
}

// Ranker orders candidate summaries by fit to a query summary.
type Ranker interface {
	// Rank returns 1-based candidate indices from best to worst fit.
	// The result is untrusted: it may omit, repeat or overflow indices.
	Rank(ctx context.Context, query string, candidates []string) ([]int, error)
}

// ProfileSummary is the profile text a classifier sees.
type ProfileSummary struct {
	Username       string
	Name           string
	Bio            string
	FollowersCount int
	FollowingCount int
	Verified       bool
	VerifiedType   string
}
