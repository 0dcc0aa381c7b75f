package naming

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func existsIn(names ...string) ExistsFunc {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[strings.ToLower(name)] = struct{}{}
	}
	return func(_ context.Context, name string) (bool, error) {
		_, ok := set[strings.ToLower(name)]
		return ok, nil
	}
}

func TestResolveReturnsFreeCandidateUnchanged(t *testing.T) {
	got, err := Resolve(context.Background(), "Apollo", existsIn("Gemini"), MaxLength)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "Apollo" {
		t.Fatalf("expected Apollo, got %q", got)
	}
}

func TestResolveAppendsFirstFreeSuffix(t *testing.T) {
	got, err := Resolve(context.Background(), "X", existsIn("X", "X (1)", "X (2)"), MaxLength)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "X (3)" {
		t.Fatalf("expected X (3), got %q", got)
	}
}

func TestResolveIgnoresCase(t *testing.T) {
	got, err := Resolve(context.Background(), "apollo", existsIn("APOLLO"), MaxLength)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != "apollo (1)" {
		t.Fatalf("expected apollo (1), got %q", got)
	}
}

func TestResolveTruncatesToFitSuffix(t *testing.T) {
	candidate := strings.Repeat("a", 98)
	got, err := Resolve(context.Background(), candidate, existsIn(candidate), 100)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if utf8.RuneCountInString(got) != 100 {
		t.Fatalf("expected 100 characters, got %d", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, " (1)") {
		t.Fatalf("expected suffix (1), got %q", got)
	}
}

func TestResolveRecomputesTruncationAsSuffixGrows(t *testing.T) {
	candidate := strings.Repeat("b", 100)
	taken := []string{candidate}
	for n := 1; n <= 9; n++ {
		taken = append(taken, withSuffix([]rune(candidate), n, 100))
	}
	got, err := Resolve(context.Background(), candidate, existsIn(taken...), 100)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := strings.Repeat("b", 95) + " (10)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolveTruncatesMultibyteSafely(t *testing.T) {
	candidate := strings.Repeat("é", 10)
	got, err := Resolve(context.Background(), candidate, existsIn(candidate), 10)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid utf8, got %q", got)
	}
	if got != strings.Repeat("é", 6)+" (1)" {
		t.Fatalf("unexpected name %q", got)
	}
}

func TestResolveRejectsBlankCandidate(t *testing.T) {
	if _, err := Resolve(context.Background(), "   ", existsIn(), MaxLength); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestResolvePropagatesPredicateError(t *testing.T) {
	boom := errors.New("boom")
	exists := func(context.Context, string) (bool, error) { return false, boom }
	if _, err := Resolve(context.Background(), "X", exists, MaxLength); !errors.Is(err, boom) {
		t.Fatalf("expected predicate error, got %v", err)
	}
}
