// internal/app/system/normalize/normalize.go
//
// Package normalize canonicalises user-supplied values before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name, preserving case.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// NameCI returns the case-folded form of a name for indexed lookups.
func NameCI(s string) string {
	return text.Fold(Name(s))
}

// Status lowercases and trims a status value.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a query string value, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}

// Strings trims every element and drops empties and duplicates, keeping
// first-seen order.
func Strings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
