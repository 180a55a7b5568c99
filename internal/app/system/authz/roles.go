// internal/app/system/authz/roles.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/camphub/internal/app/system/auth"
)

// HasAnyRole reports whether the caller's role is one of roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return false
	}
	cur := strings.ToLower(u.Role)
	for _, want := range roles {
		if cur == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// HasRole is a convenience wrapper for a single role.
func HasRole(r *http.Request, role string) bool {
	return HasAnyRole(r, role)
}
