package usecase

import (
	"fmt"
	"strings"

	"xcreator/internal/domain"
)

// Vector store namespaces.
const (
	NamespaceProfiles = "profiles"
	NamespaceTweets   = "tweets"
)

// NormalizeHandle strips whitespace and a leading "@", and validates the
// result against the platform's username rules (1-15 chars of [A-Za-z0-9_]).
// Case is preserved.
func NormalizeHandle(raw string) (string, error) {
	h := strings.TrimSpace(raw)
	h = strings.TrimPrefix(h, "@")
	h = strings.TrimSpace(h)
	if !isValidUsername(h) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidHandle, raw)
	}
	return h, nil
}

func isValidUsername(username string) bool {
	if len(username) < 1 || len(username) > 15 {
		return false
	}
	for _, r := range username {
		isLower := r >= 'a' && r <= 'z'
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if !isLower && !isUpper && !isDigit && r != '_' {
			return false
		}
	}
	return true
}

// ProfileKey is the canonical store key for a profile.
func ProfileKey(category domain.Category, handle string) string {
	return string(category) + "_" + strings.ToLower(handle)
}

// PostKey is the store key for a post.
func PostKey(handle, postID string) string {
	return strings.ToLower(handle) + "_" + postID
}

// HandleVariants returns the distinct spellings a handle may have been
// stored under: lowercase (canonical) first, then as typed, UPPER and Title.
func HandleVariants(handle string) []string {
	candidates := []string{
		strings.ToLower(handle),
		handle,
		strings.ToUpper(handle),
		titleCase(handle),
	}

	seen := make(map[string]bool, len(candidates))
	variants := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		variants = append(variants, c)
	}
	return variants
}

// VariantKeys returns the probe keys for a handle under one category.
func VariantKeys(category domain.Category, handle string) []string {
	variants := HandleVariants(handle)
	keys := make([]string, len(variants))
	for i, v := range variants {
		keys[i] = string(category) + "_" + v
	}
	return keys
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
