// Package slug builds URL-safe identifiers that are unique within a scope.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dangerclosesec/huddle/internal/domain"
)

// MaxAttempts bounds how often Assign regenerates after a storage conflict.
const MaxAttempts = 5

var invalidRun = regexp.MustCompile(`[^a-z0-9_]+`)

// Scope answers whether a slug is already taken among its siblings.
type Scope interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
}

// ScopeFunc adapts a function to Scope.
type ScopeFunc func(ctx context.Context, slug string) (bool, error)

func (f ScopeFunc) SlugExists(ctx context.Context, slug string) (bool, error) {
	return f(ctx, slug)
}

// Normalize lowercases name and replaces every run of characters outside
// [a-z0-9_] with a single dash. Leading and trailing dashes are dropped.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = invalidRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Generate returns the normalized name, or the first free "name-N" when it is
// taken. Names without any usable character get a numeric slug.
func Generate(ctx context.Context, scope Scope, name string) (string, error) {
	base := Normalize(name)
	if base == "" {
		return GenerateNumeric(ctx, scope)
	}

	candidate := base
	for n := 1; ; n++ {
		taken, err := scope.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// GenerateNumeric returns the smallest positive integer not yet used as a slug.
func GenerateNumeric(ctx context.Context, scope Scope) (string, error) {
	for n := 1; ; n++ {
		candidate := strconv.Itoa(n)
		taken, err := scope.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
}

// Assign generates a slug and hands it to create. When create fails with a
// conflict, another writer took the slug in between; generation is retried.
func Assign(ctx context.Context, generate func(ctx context.Context) (string, error), create func(slug string) error) error {
	var err error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		var s string
		s, err = generate(ctx)
		if err != nil {
			return err
		}
		err = create(s)
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
