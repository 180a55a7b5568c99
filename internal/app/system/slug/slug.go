// internal/app/system/slug/slug.go
//
// Package slug builds URL slugs for camp profiles.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Fallback is used when a name has no slug-safe characters.
const Fallback = "camp"

// MaxAttempts bounds collision suffixes (-2 .. -MaxAttempts).
const MaxAttempts = 1000

// ErrExhausted is returned when every suffix up to MaxAttempts is taken.
var ErrExhausted = errors.New("slug: no free suffix")

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Make converts name to a slug: lowercase, runs of anything outside
// [a-z0-9] collapse to one dash, no leading or trailing dashes.
func Make(name string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return s != "" && Make(s) == s
}

// TakenFunc reports whether a candidate slug is already used.
type TakenFunc func(ctx context.Context, candidate string) (bool, error)

// Unique returns the first of base, base-2, base-3, ... that taken reports free.
func Unique(ctx context.Context, name string, taken TakenFunc) (string, error) {
	base := Make(name)
	candidate := base
	for n := 2; ; n++ {
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		if n > MaxAttempts {
			return "", fmt.Errorf("%w for %q", ErrExhausted, base)
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
