// Package util provides shared identifier and validation helpers.
package util

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

const (
	// DefaultShortIDLength is the default number of characters for short IDs.
	DefaultShortIDLength = 8
	// MaxAmbiguousCandidates is the max number of candidates to show in ambiguous error.
	MaxAmbiguousCandidates = 5
)

// Errors returned by ID resolution functions.
var (
	ErrAmbiguousID = errors.New("ambiguous ID prefix")
	ErrNotFound    = errors.New("not found")
)

var (
	trailingDigits = regexp.MustCompile(`(\d+)$`)
	slugUnsafe     = regexp.MustCompile(`[^a-z0-9]+`)
)

// ShortID returns the first n characters of id (DefaultShortIDLength when n <= 0).
func ShortID(id string, n int) string {
	if n <= 0 {
		n = DefaultShortIDLength
	}
	if len(id) <= n {
		return id
	}
	return id[:n]
}

// FeatureSuffix returns the part of a feature id that task ids embed: the
// trailing number when there is one ("feature-042" -> "042"), otherwise the id
// without its "feature-" prefix.
func FeatureSuffix(featureID string) string {
	if m := trailingDigits.FindStringSubmatch(featureID); m != nil {
		return m[1]
	}
	return strings.TrimPrefix(featureID, "feature-")
}

// TaskID derives the id of the seq-th task of a feature:
//
//	TaskID("feature-12", 3) → "task-12-003"
func TaskID(featureID string, seq int) string {
	return fmt.Sprintf("task-%s-%03d", FeatureSuffix(featureID), seq)
}

// Slug lowercases s and collapses every run of non-alphanumerics into "-".
func Slug(s string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// ResolvePrefix resolves an exact id or a unique prefix among candidates.
//
// Resolution rules:
//  1. An exact match wins.
//  2. A prefix matching exactly one candidate resolves to it.
//  3. Several matches return ErrAmbiguousID listing some candidates.
//  4. No match returns ErrNotFound.
func ResolvePrefix(idOrPrefix string, candidates []string, entityType string) (string, error) {
	if idOrPrefix == "" {
		return "", fmt.Errorf("%s ID: %w", entityType, ErrNotFound)
	}
	var matches []string
	for _, c := range candidates {
		if c == idOrPrefix {
			return c, nil
		}
		if strings.HasPrefix(c, idOrPrefix) {
			matches = append(matches, c)
		}
	}
	sort.Strings(matches)

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s with prefix %q: %w", entityType, idOrPrefix, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		shown := matches
		if len(shown) > MaxAmbiguousCandidates {
			shown = shown[:MaxAmbiguousCandidates]
		}
		return "", fmt.Errorf("%w: prefix %q matches %d %ss: %v",
			ErrAmbiguousID, idOrPrefix, len(matches), entityType, shown)
	}
}
