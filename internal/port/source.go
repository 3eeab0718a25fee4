package port

import (
	"context"

	"xcreator/internal/domain"
)

// ProfileSource fetches profiles and their recent original posts.
type ProfileSource interface {
	// FetchProfile returns domain.ErrProfileNotFound when the handle does not exist.
	FetchProfile(ctx context.Context, handle string) (*domain.Profile, error)

	// FetchPosts returns up to max recent posts, excluding replies and reposts.
	FetchPosts(ctx context.Context, profileID string, limit int) ([]domain.Post, error)
}
