// Package naming assigns collision-free names by numeric suffixing.
package naming

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MaxLength bounds project, task and team names.
const MaxLength = 100

// maxAttempts caps suffix probing against a pathological name set.
const maxAttempts = 10_000

var (
	// ErrEmptyName is returned for blank candidates.
	ErrEmptyName = errors.New("naming: empty candidate")
	// ErrExhausted is returned when no free suffix was found.
	ErrExhausted = errors.New("naming: suffixes exhausted")
)

// ExistsFunc reports whether name is already taken in the caller's scope.
// Comparison is expected to ignore case.
type ExistsFunc func(ctx context.Context, name string) (bool, error)

// Resolve returns candidate when it is free, otherwise the first free
// "candidate (n)" for n = 1, 2, ... When the suffixed name would exceed
// maxLength runes, the candidate prefix is cut so the result fits exactly.
// A maxLength of zero disables truncation.
func Resolve(ctx context.Context, candidate string, exists ExistsFunc, maxLength int) (string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", ErrEmptyName
	}
	base := []rune(candidate)
	if maxLength > 0 && len(base) > maxLength {
		base = base[:maxLength]
	}

	name := string(base)
	taken, err := exists(ctx, name)
	if err != nil {
		return "", err
	}
	if !taken {
		return name, nil
	}

	for n := 1; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name = withSuffix(base, n, maxLength)
		taken, err := exists(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrExhausted, candidate)
}

func withSuffix(base []rune, n, maxLength int) string {
	suffix := fmt.Sprintf(" (%d)", n)
	keep := len(base)
	if maxLength > 0 && keep+len(suffix) > maxLength {
		keep = max(maxLength-len(suffix), 0)
	}
	return string(base[:keep]) + suffix
}
