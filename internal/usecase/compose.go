package usecase

import (
	"fmt"

	"xcreator/internal/domain"
)

// Fixed blend of bio and post content in a profile embedding.
const (
	bioWeight   = 0.3
	tweetWeight = 0.7
)

// Compose turns a bio vector (nil when the profile has no bio) and post
// vectors into one content-style vector.
func Compose(bio domain.Vector, tweets []domain.Vector) (domain.Vector, error) {
	if len(bio) == 0 && len(tweets) == 0 {
		return nil, domain.ErrInsufficientContent
	}

	if len(tweets) == 0 {
		out := make(domain.Vector, len(bio))
		copy(out, bio)
		return out, nil
	}

	mean, err := meanVector(tweets)
	if err != nil {
		return nil, err
	}
	if len(bio) == 0 {
		return mean, nil
	}

	if len(bio) != len(mean) {
		return nil, fmt.Errorf("%w: bio has %d dimensions, posts have %d", domain.ErrDimensionMismatch, len(bio), len(mean))
	}

	out := make(domain.Vector, len(bio))
	for i := range out {
		out[i] = bioWeight*bio[i] + tweetWeight*mean[i]
	}
	return out, nil
}

func meanVector(vectors []domain.Vector) (domain.Vector, error) {
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty post vector", domain.ErrDimensionMismatch)
	}

	sum := make(domain.Vector, dim)
	for n, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: post vector %d has %d dimensions, want %d", domain.ErrDimensionMismatch, n, len(v), dim)
		}
		for i, x := range v {
			sum[i] += x
		}
	}

	count := float64(len(vectors))
	for i := range sum {
		sum[i] /= count
	}
	return sum, nil
}
