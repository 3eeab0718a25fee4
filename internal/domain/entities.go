package domain

import (
	"strings"
	"time"
)

// Category is one of the two mutually exclusive profile kinds.
type Category string

const (
	CategoryOrganization Category = "organization"
	CategoryIndividual   Category = "individual"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryOrganization || c == CategoryIndividual
}

// Opposite returns the other category.
func (c Category) Opposite() Category {
	if c == CategoryOrganization {
		return CategoryIndividual
	}
	return CategoryOrganization
}

// ParseCategory accepts the category names plus the brand/creator aliases used by the UI.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "organization", "brand", "org":
		return CategoryOrganization, nil
	case "individual", "creator", "person":
		return CategoryIndividual, nil
	}
	return "", &InvalidCategoryError{Value: s}
}

// Vector is an embedding. float64 keeps composition reproducible.
type Vector []float64

// Metadata is the flat attribute map stored next to a vector.
// Values are strings, float64/int numbers, bools or []string.
type Metadata map[string]any

// Profile is a social-media account snapshot as fetched from the profile source.
type Profile struct {
	ID              string
	Username        string // as fetched, case preserved
	Name            string
	Bio             string
	FollowersCount  int
	FollowingCount  int
	TweetCount      int
	Verified        bool
	VerifiedType    string
	ProfileImageURL string
}

// Post is a single original post (tweet) by a profile.
type Post struct {
	ID           string
	Text         string
	LikeCount    int
	RetweetCount int
	CreatedAt    time.Time
}

// Verdict is the classification service's judgment about a profile.
type Verdict struct {
	Category   Category `json:"category"`
	Confidence string   `json:"confidence"` // "high", "medium" or "low"
	Reasoning  string   `json:"reasoning"`
}

// IngestOptions controls category validation during ingestion.
type IngestOptions struct {
	SkipValidation bool
	AutoCorrect    bool
}

// Correction records an automatic category switch.
type Correction struct {
	From      Category `json:"from"`
	To        Category `json:"to"`
	Reasoning string   `json:"reasoning"`
}

// IngestResult is returned by a successful or short-circuited ingestion.
type IngestResult struct {
	Key        string      `json:"key"`
	Existed    bool        `json:"existed"`
	Category   Category    `json:"category"`
	Metadata   Metadata    `json:"metadata"`
	PostCount  int         `json:"post_count"`
	Validation string      `json:"validation,omitempty"`
	Correction *Correction `json:"correction,omitempty"`
}

// StoredProfile is a profile record read back from the vector store.
type StoredProfile struct {
	Key      string   `json:"key"`
	Vector   Vector   `json:"-"`
	Metadata Metadata `json:"metadata"`
}

// Match is one candidate profile with its similarity score.
type Match struct {
	Key      string   `json:"key"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// MatchRequest describes a nearest-neighbour lookup for a stored profile.
type MatchRequest struct {
	Handle       string
	Category     Category
	TopK         int
	MinFollowers *int
	MaxFollowers *int
	Rerank       bool
}

// MatchResponse is the query profile plus its ranked matches.
type MatchResponse struct {
	Query    StoredProfile `json:"query"`
	Matches  []Match       `json:"matches"`
	Reranked bool          `json:"reranked"`
}

// PostMatch is a post that explains why a candidate matched.
type PostMatch struct {
	Key      string   `json:"key"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
}

// Stats reports per-namespace record counts.
type Stats struct {
	Namespaces map[string]int `json:"namespaces"`
	Dimension  int            `json:"dimension"`
	Total      int            `json:"total"`
}
