package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProfileNotFound means the profile source has no such account.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrUpstreamUnavailable covers transport failures and non-2xx replies from
	// the profile source, embedding service or vector store.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrNoContent means the profile has no original posts to embed.
	ErrNoContent = errors.New("profile has no extractable content")

	// ErrInsufficientContent means neither a bio nor post vectors were available.
	ErrInsufficientContent = errors.New("insufficient content to compose embedding")

	// ErrNotFound means the profile is not in the vector store.
	ErrNotFound = errors.New("not found")

	// ErrDimensionMismatch means vectors of different sizes were combined.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidHandle means the handle cannot be a platform username.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// ClassificationMismatchError is returned when the classifier disagrees with
// the requested category at high confidence and auto-correction is off.
type ClassificationMismatchError struct {
	Requested  Category
	Suggested  Category
	Confidence string
	Reasoning  string
}

func (e *ClassificationMismatchError) Error() string {
	return fmt.Sprintf("classification mismatch: requested %s, classifier suggests %s (%s confidence): %s",
		e.Requested, e.Suggested, e.Confidence, e.Reasoning)
}

// UpstreamError is a non-2xx or transport failure from an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s unavailable: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamUnavailable
}

// InvalidCategoryError reports an unknown category name.
type InvalidCategoryError struct {
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %q (want organization or individual)", e.Value)
}

func (e *InvalidCategoryError) Unwrap() error {
	return ErrInvalidInput
}
