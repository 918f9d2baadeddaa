// Package auth provides JWT-based authorization for the admin surface of
// the catalog API.
package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for storing JWT claims.
const ClaimsKey contextKey = "claims"

// RoleAdmin marks tokens allowed to mutate the catalog.
const RoleAdmin = "admin"

// Claims is the JWT claims structure for admin tokens. It embeds
// RegisteredClaims for standard fields (sub, exp, iat) and adds the role.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// IsAdmin reports whether the token grants catalog mutation rights.
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// GetClaims retrieves JWT claims from the request context.
// Returns nil and false if claims are not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}
